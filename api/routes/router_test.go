package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	btcpaywebhook "github.com/omarsiddique/cryptocart-backend/internal/webhooks/btcpay"
	"github.com/omarsiddique/cryptocart-backend/pkg/config"
	"github.com/omarsiddique/cryptocart-backend/pkg/logger"
	"github.com/omarsiddique/cryptocart-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubWebhookService struct {
	calls int
	err   error
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *btcpaywebhook.InvoiceEvent) error {
	s.calls++
	return s.err
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("cc:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test", Port: "0"},
		BTCPay: config.BTCPayConfig{WebhookSecret: "secret"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, service *stubWebhookService, registry *prometheus.Registry) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	guard, err := btcpaywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "btcpay-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	var mets *metrics.WebhookMetrics
	if registry != nil {
		mets = metrics.NewWebhookMetrics(registry)
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		service,
		guard,
		mets,
		registry,
	)
}

func signBody(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookRouteEndToEnd(t *testing.T) {
	service := &stubWebhookService{}
	router := newTestRouter(t, testConfig(), service, nil)

	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/btcpay/", bytes.NewReader(payload))
	req.Header.Set("BTCPay-Sig", signBody(payload, "secret"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"message":"Status Updated"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
}

func TestWebhookRouteRejectsGet(t *testing.T) {
	service := &stubWebhookService{}
	router := newTestRouter(t, testConfig(), service, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/btcpay/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"error":"Invalid Method"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked for GET")
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig(), &stubWebhookService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-CryptoCart-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	guard, err := btcpaywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "btcpay-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	router := NewRouter(
		cfg,
		logg,
		stubPinger{err: fmt.Errorf("connection refused")},
		stubPinger{},
		&stubWebhookService{},
		guard,
		nil,
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := newTestRouter(t, testConfig(), &stubWebhookService{}, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestDeliveryIncrementsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	service := &stubWebhookService{}
	router := newTestRouter(t, testConfig(), service, registry)

	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/btcpay/", bytes.NewReader(payload))
	req.Header.Set("BTCPay-Sig", signBody(payload, "secret"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsResp := httptest.NewRecorder()
	router.ServeHTTP(metricsResp, metricsReq)
	if !strings.Contains(metricsResp.Body.String(), `webhook_deliveries_total{provider="btcpay",result="updated"} 1`) {
		t.Fatalf("expected updated delivery counter in exposition:\n%s", metricsResp.Body.String())
	}
}
