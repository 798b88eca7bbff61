package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarsiddique/cryptocart-backend/api/controllers"
	webhookcontrollers "github.com/omarsiddique/cryptocart-backend/api/controllers/webhooks"
	"github.com/omarsiddique/cryptocart-backend/api/middleware"
	btcpaywebhook "github.com/omarsiddique/cryptocart-backend/internal/webhooks/btcpay"
	"github.com/omarsiddique/cryptocart-backend/pkg/config"
	"github.com/omarsiddique/cryptocart-backend/pkg/logger"
	"github.com/omarsiddique/cryptocart-backend/pkg/metrics"
	"github.com/omarsiddique/cryptocart-backend/pkg/types"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.ReadinessProbe,
	redisP controllers.ReadinessProbe,
	btcpayWebhookService webhookcontrollers.BTCPayWebhookService,
	btcpayWebhookGuard *btcpaywebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.MethodNotAllowed(methodNotAllowed)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	r.Post("/webhook/btcpay/", webhookcontrollers.BTCPayWebhook(
		btcpayWebhookService,
		&cfg.BTCPay,
		btcpayWebhookGuard,
		webhookMetrics,
		logg,
	))

	return r
}

// methodNotAllowed mirrors the webhook handler's 405 body so providers and
// probes see the same shape no matter which layer rejects the method.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(types.WebhookError{Error: "Invalid Method"})
}
