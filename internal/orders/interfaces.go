package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/omarsiddique/cryptocart-backend/pkg/db/models"
	"github.com/omarsiddique/cryptocart-backend/pkg/enums"
)

// Repository is the order store surface the webhook reconciliation depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByInvoiceID(ctx context.Context, invoiceID string) (*models.Order, error)
	UpdatePaymentState(ctx context.Context, invoiceID string, payment enums.PaymentStatus, order enums.OrderStatus) (int64, error)
}
