package btcpaywebhook

import (
	"strings"

	"github.com/omarsiddique/cryptocart-backend/pkg/enums"
)

// InvoiceEvent is the slice of the BTCPay delivery payload this service acts
// on; every other field in the payload is ignored.
type InvoiceEvent struct {
	InvoiceID string `json:"invoiceId" validate:"required"`
	Type      string `json:"type" validate:"required"`
}

// DedupKey identifies a delivery for idempotency purposes. BTCPay retries
// carry the same invoice/type pair, so the pair is the natural key.
func (e InvoiceEvent) DedupKey() string {
	return e.InvoiceID + ":" + strings.ToLower(strings.TrimSpace(e.Type))
}

// Transition is the status pair an event maps the order to.
type Transition struct {
	PaymentStatus enums.PaymentStatus
	OrderStatus   enums.OrderStatus
}

// TransitionFor maps a provider event type (matched case-insensitively) to the
// order transition it triggers. The second return is false for event types the
// service takes no action on.
func TransitionFor(eventType string) (Transition, bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "invoicesettled":
		return Transition{
			PaymentStatus: enums.PaymentStatusPaid,
			OrderStatus:   enums.OrderStatusProcessing,
		}, true
	case "invoiceexpired":
		return Transition{
			PaymentStatus: enums.PaymentStatusFailed,
			OrderStatus:   enums.OrderStatusExpired,
		}, true
	default:
		return Transition{}, false
	}
}
