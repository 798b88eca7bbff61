package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook delivery results used as label values.
const (
	WebhookResultUpdated          = "updated"
	WebhookResultDuplicate        = "duplicate"
	WebhookResultInvalidSignature = "invalid_signature"
	WebhookResultInvalidPayload   = "invalid_payload"
	WebhookResultIgnored          = "ignored"
	WebhookResultOrderMissing     = "order_missing"
	WebhookResultError            = "error"
)

// WebhookMetrics records webhook delivery outcomes per provider.
type WebhookMetrics struct {
	duration   *prometheus.HistogramVec
	deliveries *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook deliveries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook deliveries by provider and result.",
	}, []string{"provider", "result"})
	reg.MustRegister(duration, deliveries)
	return &WebhookMetrics{
		duration:   duration,
		deliveries: deliveries,
	}
}

// ObserveDuration records the processing duration for the named provider.
func (m *WebhookMetrics) ObserveDuration(provider string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncResult increments the delivery counter for the provider/result pair.
func (m *WebhookMetrics) IncResult(provider, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
