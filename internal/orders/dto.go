package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// LineItemView is the wire shape of a purchased line.
type LineItemView struct {
	ProductID uuid.UUID       `json:"productId"`
	VariantID uuid.UUID       `json:"variantId"`
	Name      string          `json:"name"`
	Weight    string          `json:"weight"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderCustomer carries the owning user's identity on admin rows.
type OrderCustomer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// OrderView is returned by both the history and admin listings.
type OrderView struct {
	ID                uuid.UUID             `json:"orderId"`
	OrderedAt         time.Time             `json:"orderedAt"`
	Status            enums.OrderStatus     `json:"status"`
	TotalAmount       decimal.Decimal       `json:"totalAmount"`
	ProviderOrderID   string                `json:"providerOrderId"`
	ProviderPaymentID string                `json:"paymentId"`
	ShippingAddress   types.ShippingAddress `json:"shippingAddress"`
	Items             []LineItemView        `json:"lineItems"`
	Customer          *OrderCustomer        `json:"user,omitempty"`
}

// OrderList wraps a page of the caller's orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// AdminOrderList wraps an offset page of all orders.
type AdminOrderList struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ToView maps a persisted order into its wire shape. The customer is only
// attached when the User association was loaded.
func ToView(order models.Order) OrderView {
	view := OrderView{
		ID:                order.ID,
		OrderedAt:         order.OrderedAt.UTC(),
		Status:            order.Status,
		TotalAmount:       order.TotalAmount,
		ProviderOrderID:   order.ProviderOrderID,
		ProviderPaymentID: order.ProviderPaymentID,
		ShippingAddress:   order.ShippingAddress,
		Items:             make([]LineItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, LineItemView{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Weight:    item.Weight,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	if order.User != nil {
		view.Customer = &OrderCustomer{
			ID:    order.User.ID,
			Name:  order.User.Name,
			Email: order.User.Email,
		}
	}
	return view
}
