package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const settledStatus = "settled"

type verifyLineItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	VariantID uuid.UUID       `json:"variantId" validate:"required"`
	Name      string          `json:"name" validate:"max=200"`
	Weight    string          `json:"weight" validate:"max=64"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"required,min=1,max=1000"`
}

type verifyRequest struct {
	ProviderOrderID string                  `json:"providerOrderId" validate:"required,max=128"`
	PaymentID       string                  `json:"paymentId" validate:"required,max=128"`
	Signature       string                  `json:"signature" validate:"required,max=256"`
	LineItems       []verifyLineItemRequest `json:"lineItems" validate:"required,min=1,max=100,dive"`
	ShippingAddress types.ShippingAddress   `json:"shippingAddress"`
	TotalAmount     decimal.Decimal         `json:"totalAmount"`
}

type verifyResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (r verifyRequest) toInput(userID uuid.UUID, email string) checkout.SettleInput {
	items := make([]checkout.LineItemInput, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		items = append(items, checkout.LineItemInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      validators.SanitizeString(item.Name, 200),
			Weight:    validators.SanitizeString(item.Weight, 64),
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return checkout.SettleInput{
		UserID: userID,
		Email:  email,
		Confirmation: checkout.PaymentConfirmation{
			ProviderOrderID: r.ProviderOrderID,
			PaymentID:       r.PaymentID,
			Signature:       r.Signature,
		},
		LineItems:       items,
		ShippingAddress: r.ShippingAddress,
		ClaimedTotal:    r.TotalAmount,
	}
}

// VerifyCheckout settles a paid cart: the payment confirmation is verified,
// stock is reserved and the order is recorded before the response is sent.
func VerifyCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Settle(ctx, req.toInput(userID, middleware.EmailFromContext(ctx)))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyResponse{OrderID: order.ID.String(), Status: settledStatus})
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}
