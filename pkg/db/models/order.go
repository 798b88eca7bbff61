package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/omarsiddique/cryptocart-backend/pkg/enums"
)

// Order is a storefront order row. The order number is assigned at checkout,
// the invoice ID is assigned by the payment gateway when the invoice is
// created, and the status pair is reconciled from gateway callbacks.
type Order struct {
	OrderNumber     string              `gorm:"column:order_number;primaryKey"`
	UserID          int                 `gorm:"column:userID;not null"`
	Username        string              `gorm:"column:username;not null"`
	ProductID       int                 `gorm:"column:product_id;not null"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	InvoiceID       string              `gorm:"column:invoice_id;not null;index"`
	DeliveryMethod  *string             `gorm:"column:delivery_method"`
	DeliveryAddress *string             `gorm:"column:delivery_address"`
	PaymentMethod   *string             `gorm:"column:payment_method"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:varchar(50)"`
	OrderStatus     enums.OrderStatus   `gorm:"column:order_status;type:varchar(50)"`
	Timestamp       time.Time           `gorm:"column:timestamp;autoCreateTime"`
}

// TableName maps to the legacy storefront table.
func (Order) TableName() string {
	return "orders"
}
