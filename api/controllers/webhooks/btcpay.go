package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omarsiddique/cryptocart-backend/api/responses"
	"github.com/omarsiddique/cryptocart-backend/api/validators"
	btcpaywebhook "github.com/omarsiddique/cryptocart-backend/internal/webhooks/btcpay"
	pkgerrors "github.com/omarsiddique/cryptocart-backend/pkg/errors"
	"github.com/omarsiddique/cryptocart-backend/pkg/logger"
	"github.com/omarsiddique/cryptocart-backend/pkg/metrics"
)

const (
	providerBTCPay  = "btcpay"
	signatureHeader = "BTCPay-Sig"

	msgStatusUpdated    = "Status Updated"
	msgNoAction         = "No action for this status"
	errInvalidMethod    = "Invalid Method"
	errInvalidSignature = "Invalid signature"
	errMissingData      = "Missing data"
	errOrderNotFound    = "Order not found for invoice"
	errGeneric          = "Something went wrong"
)

type BTCPayWebhookService interface {
	HandleEvent(ctx context.Context, event *btcpaywebhook.InvoiceEvent) error
}

type btcpayWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type btcpaySigner interface {
	SigningSecret() string
}

// BTCPayWebhook handles BTCPay invoice lifecycle events. The raw body is
// authenticated against the shared secret before anything in it is trusted,
// and every non-200 path leaves the order store untouched.
func BTCPayWebhook(svc BTCPayWebhookService, signer btcpaySigner, guard btcpayWebhookGuard, mets *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		defer func() {
			mets.ObserveDuration(providerBTCPay, time.Since(start))
		}()

		if r.Method != http.MethodPost {
			responses.WriteWebhookError(ctx, logg, w, http.StatusMethodNotAllowed, errInvalidMethod, nil)
			return
		}

		if svc == nil || signer == nil || guard == nil {
			mets.IncResult(providerBTCPay, metrics.WebhookResultError)
			responses.WriteWebhookError(ctx, logg, w, http.StatusInternalServerError, errGeneric,
				pkgerrors.New(pkgerrors.CodeInternal, "btcpay webhook dependencies unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			mets.IncResult(providerBTCPay, metrics.WebhookResultError)
			responses.WriteWebhookError(ctx, logg, w, http.StatusInternalServerError, errGeneric,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !btcpaywebhook.VerifySignature(payload, signer.SigningSecret(), r.Header.Get(signatureHeader)) {
			mets.IncResult(providerBTCPay, metrics.WebhookResultInvalidSignature)
			responses.WriteWebhookError(ctx, logg, w, http.StatusForbidden, errInvalidSignature,
				pkgerrors.New(pkgerrors.CodeForbidden, "btcpay signature mismatch"))
			return
		}

		var event btcpaywebhook.InvoiceEvent
		if err := validators.DecodeJSON(payload, &event); err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeValidation {
				mets.IncResult(providerBTCPay, metrics.WebhookResultInvalidPayload)
				responses.WriteWebhookError(ctx, logg, w, http.StatusBadRequest, errMissingData, err)
				return
			}
			mets.IncResult(providerBTCPay, metrics.WebhookResultError)
			responses.WriteWebhookError(ctx, logg, w, http.StatusInternalServerError, errGeneric, err)
			return
		}

		if logg != nil {
			ctx = logg.WithInvoiceID(ctx, event.InvoiceID)
		}

		if _, known := btcpaywebhook.TransitionFor(event.Type); !known {
			mets.IncResult(providerBTCPay, metrics.WebhookResultIgnored)
			responses.WriteWebhookAck(w, http.StatusBadRequest, msgNoAction)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.DedupKey())
		if err != nil {
			mets.IncResult(providerBTCPay, metrics.WebhookResultError)
			responses.WriteWebhookError(ctx, logg, w, http.StatusInternalServerError, errGeneric,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			mets.IncResult(providerBTCPay, metrics.WebhookResultDuplicate)
			responses.WriteWebhookAck(w, http.StatusOK, msgStatusUpdated)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			_ = guard.Delete(ctx, event.DedupKey())

			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				mets.IncResult(providerBTCPay, metrics.WebhookResultOrderMissing)
				responses.WriteWebhookError(ctx, logg, w, http.StatusNotFound, errOrderNotFound, err)
				return
			}

			mets.IncResult(providerBTCPay, metrics.WebhookResultError)
			responses.WriteWebhookError(ctx, logg, w, http.StatusInternalServerError, errGeneric, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("btcpay event %s processed", event.DedupKey()))
		}
		mets.IncResult(providerBTCPay, metrics.WebhookResultUpdated)
		responses.WriteWebhookAck(w, http.StatusOK, msgStatusUpdated)
	}
}
