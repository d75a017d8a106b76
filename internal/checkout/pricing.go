package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Quote is the catalog-derived price of a submitted cart.
type Quote struct {
	Lines       []models.OrderLineItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Drift       []PriceDrift
}

// PriceDrift notes a line where the client's price differs from the catalog.
type PriceDrift struct {
	VariantID uuid.UUID       `json:"variantId"`
	Claimed   decimal.Decimal `json:"claimed"`
	Catalog   decimal.Decimal `json:"catalog"`
}

// TotalMismatchDetails is attached when the claimed total is rejected.
type TotalMismatchDetails struct {
	Claimed  string `json:"claimed"`
	Computed string `json:"computed"`
}

// buildQuote re-prices every line from the catalog snapshot. Name, weight and
// unit price on the resulting lines always come from the catalog.
func buildQuote(items []LineItemInput, snapshots map[uuid.UUID]catalog.VariantSnapshot, shippingFee decimal.Decimal) (*Quote, error) {
	quote := &Quote{
		Lines:       make([]models.OrderLineItem, 0, len(items)),
		Subtotal:    decimal.Zero,
		ShippingFee: shippingFee,
	}
	for _, item := range items {
		snap, ok := snapshots[item.VariantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", item.VariantID)).
				WithDetails(map[string]any{"variantId": item.VariantID})
		}
		if snap.ProductID != item.ProductID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s does not belong to product %s", item.VariantID, item.ProductID)).
				WithDetails(map[string]any{"variantId": item.VariantID, "productId": item.ProductID})
		}
		lineTotal := snap.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		quote.Lines = append(quote.Lines, models.OrderLineItem{
			ProductID: snap.ProductID,
			VariantID: snap.VariantID,
			Name:      snap.ProductName,
			Weight:    snap.Weight,
			UnitPrice: snap.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
		if !item.Price.Equal(snap.Price) {
			quote.Drift = append(quote.Drift, PriceDrift{VariantID: item.VariantID, Claimed: item.Price, Catalog: snap.Price})
		}
	}
	quote.Total = quote.Subtotal.Add(shippingFee)
	return quote, nil
}

// matches compares at cent precision.
func (q *Quote) matches(claimed decimal.Decimal) bool {
	return q.Total.Round(2).Equal(claimed.Round(2))
}

// lines returns fresh copies so a retried insert never reuses ids assigned by
// a rolled back attempt.
func (q *Quote) lines() []models.OrderLineItem {
	out := make([]models.OrderLineItem, len(q.Lines))
	copy(out, q.Lines)
	return out
}
