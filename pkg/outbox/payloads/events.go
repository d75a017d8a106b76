package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderSettledEvent is emitted in the same transaction that persists a
// settled order.
type OrderSettledEvent struct {
	OrderID           uuid.UUID          `json:"order_id"`
	UserID            uuid.UUID          `json:"user_id"`
	ProviderOrderID   string             `json:"provider_order_id"`
	ProviderPaymentID string             `json:"provider_payment_id"`
	TotalAmount       string             `json:"total_amount"`
	Items             []OrderSettledItem `json:"items"`
	OrderedAt         time.Time          `json:"ordered_at"`
}

// OrderSettledItem mirrors a persisted line item.
type OrderSettledItem struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Name      string    `json:"name"`
	Weight    string    `json:"weight"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

// OrderStatusChangedEvent is emitted whenever an admin changes an order status.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}
