package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is an immutable record of a settled checkout. Only Status changes
// after creation.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user_ordered,priority:1"`
	User              *User                 `gorm:"foreignKey:UserID;references:ID"`
	OrderedAt         time.Time             `gorm:"column:ordered_at;not null;index:idx_orders_user_ordered,priority:2"`
	Status            enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'Processing'"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress   types.ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	ProviderOrderID   string                `gorm:"column:provider_order_id;not null"`
	ProviderPaymentID string                `gorm:"column:provider_payment_id;not null;uniqueIndex:ux_orders_provider_payment_id"`
	ProviderSignature string                `gorm:"column:provider_signature;not null"`
	Items             []OrderLineItem       `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusProcessing
	}
	return nil
}
