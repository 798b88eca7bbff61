package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/omarsiddique/cryptocart-backend/internal/repo"
	"github.com/omarsiddique/cryptocart-backend/pkg/db/models"
	"github.com/omarsiddique/cryptocart-backend/pkg/enums"
)

type repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) FindByInvoiceID(ctx context.Context, invoiceID string) (*models.Order, error) {
	var order models.Order
	err := r.base.DB(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentState writes the status pair in a single conditional UPDATE
// keyed by invoice_id. Both columns land together and no other column is
// touched; the returned count is zero when no order carries the invoice.
func (r *repository) UpdatePaymentState(ctx context.Context, invoiceID string, payment enums.PaymentStatus, order enums.OrderStatus) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"payment_status": payment,
			"order_status":   order,
		})
	return res.RowsAffected, res.Error
}
