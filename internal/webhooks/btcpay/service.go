package btcpaywebhook

import (
	"context"

	"github.com/omarsiddique/cryptocart-backend/pkg/enums"
	pkgerrors "github.com/omarsiddique/cryptocart-backend/pkg/errors"
)

type ordersRepository interface {
	UpdatePaymentState(ctx context.Context, invoiceID string, payment enums.PaymentStatus, order enums.OrderStatus) (int64, error)
}

type ServiceParams struct {
	OrdersRepo ordersRepository
}

// Service reconciles order state from verified BTCPay invoice events.
type Service struct {
	orders ordersRepository
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	return &Service{orders: params.OrdersRepo}, nil
}

// HandleEvent applies the transition for a recognized event to the order the
// invoice belongs to. The write is a single conditional update keyed by
// invoice id, so concurrent redelivery can never leave a mixed status pair.
func (s *Service) HandleEvent(ctx context.Context, event *InvoiceEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice event required")
	}

	transition, ok := TransitionFor(event.Type)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "no action for this status")
	}

	affected, err := s.orders.UpdatePaymentState(ctx, event.InvoiceID, transition.PaymentStatus, transition.OrderStatus)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment state")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for invoice")
	}
	return nil
}
