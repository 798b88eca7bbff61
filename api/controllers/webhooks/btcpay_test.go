package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	btcpaywebhook "github.com/omarsiddique/cryptocart-backend/internal/webhooks/btcpay"
	pkgerrors "github.com/omarsiddique/cryptocart-backend/pkg/errors"
)

func TestBTCPayWebhook_SettledSuccess(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Status Updated"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if service.lastEvent.InvoiceID != "INV-1234" || service.lastEvent.Type != "InvoiceSettled" {
		t.Fatalf("unexpected event %+v", service.lastEvent)
	}
}

func TestBTCPayWebhook_ExpiredSuccess(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-5678","type":"InvoiceExpired"}`)
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
}

func TestBTCPayWebhook_DuplicateDelivery(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	header := buildBTCPaySignature(payload, "secret")
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec2 := deliver(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if got := strings.TrimSpace(rec2.Body.String()); got != `{"message":"Status Updated"}` {
		t.Fatalf("unexpected duplicate body %s", got)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestBTCPayWebhook_InvalidSignature(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, "sha256=deadbeef")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid signature, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Invalid signature"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestBTCPayWebhook_TamperedBody(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	header := buildBTCPaySignature(payload, "secret")
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	tampered := bytes.Replace(payload, []byte("INV-1234"), []byte("INV-9999"), 1)
	rec := deliver(handler, tampered, header)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for tampered body, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on tampered body")
	}
}

func TestBTCPayWebhook_MissingSignatureHeader(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	handler := newBTCPayHandler(t, &fakeBTCPayWebhookService{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/btcpay/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing header, got %d", rec.Code)
	}
}

func TestBTCPayWebhook_MissingFields(t *testing.T) {
	tests := []string{
		`{"type":"InvoiceSettled"}`,
		`{"invoiceId":"INV-1234"}`,
		`{"invoiceId":"","type":"InvoiceSettled"}`,
		`{}`,
	}

	for _, body := range tests {
		payload := []byte(body)
		service := &fakeBTCPayWebhookService{}
		handler := newBTCPayHandler(t, service)

		rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Missing data"}` {
			t.Fatalf("body %s: unexpected response %s", body, got)
		}
		if service.calls != 0 {
			t.Fatalf("body %s: service should not be invoked", body)
		}
	}
}

func TestBTCPayWebhook_UnknownEventType(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceExpiredXYZ"}`)
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown event type, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"No action for this status"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked for unknown event type")
	}
}

func TestBTCPayWebhook_OrderNotFound(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-GONE","type":"InvoiceSettled"}`)
	service := &fakeBTCPayWebhookService{
		err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found for invoice"),
	}
	store := newInMemoryStore()
	guard, err := btcpaywebhook.NewIdempotencyGuard(store, time.Minute, "btcpay-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := BTCPayWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil, nil)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Order not found for invoice"}` {
		t.Fatalf("unexpected body %s", got)
	}

	// The failed delivery must not stay marked; a retry after the order
	// exists has to reach the service again.
	service.err = nil
	rec2 := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach service, got %d calls", service.calls)
	}
}

func TestBTCPayWebhook_MalformedJSONStaysGeneric(t *testing.T) {
	payload := []byte(`{"invoiceId":`)
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for malformed body, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Something went wrong"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if strings.Contains(rec.Body.String(), "unexpected end") {
		t.Fatalf("parser detail leaked into response body")
	}
}

func TestBTCPayWebhook_ServiceFailureStaysGeneric(t *testing.T) {
	payload := []byte(`{"invoiceId":"INV-1234","type":"InvoiceSettled"}`)
	service := &fakeBTCPayWebhookService{
		err: fmt.Errorf("pq: deadlock detected"),
	}
	handler := newBTCPayHandler(t, service)

	rec := deliver(handler, payload, buildBTCPaySignature(payload, "secret"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Something went wrong"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if strings.Contains(rec.Body.String(), "deadlock") {
		t.Fatalf("store detail leaked into response body")
	}
}

func TestBTCPayWebhook_RejectsNonPost(t *testing.T) {
	service := &fakeBTCPayWebhookService{}
	handler := newBTCPayHandler(t, service)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/webhook/btcpay/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Invalid Method"}` {
			t.Fatalf("%s: unexpected body %s", method, got)
		}
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked for non-POST methods")
	}
}

func newBTCPayHandler(t *testing.T, service *fakeBTCPayWebhookService) http.HandlerFunc {
	t.Helper()
	guard, err := btcpaywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "btcpay-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return BTCPayWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil, nil)
}

func deliver(handler http.HandlerFunc, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/btcpay/", bytes.NewReader(payload))
	req.Header.Set("BTCPay-Sig", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func buildBTCPaySignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type fakeBTCPayWebhookService struct {
	calls     int
	err       error
	lastEvent btcpaywebhook.InvoiceEvent
}

func (f *fakeBTCPayWebhookService) HandleEvent(ctx context.Context, event *btcpaywebhook.InvoiceEvent) error {
	f.calls++
	if event != nil {
		f.lastEvent = *event
	}
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
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
