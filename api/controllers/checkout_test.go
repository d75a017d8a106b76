package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	input checkout.SettleInput
	order *models.Order
	err   error
	calls int
}

func (s *stubCheckoutService) Settle(ctx context.Context, input checkout.SettleInput) (*models.Order, error) {
	s.calls++
	s.input = input
	return s.order, s.err
}

const verifyBody = `{
	"providerOrderId": "order_9A7",
	"paymentId": "pay_31F",
	"signature": "c0ffee",
	"lineItems": [
		{"productId": "0b0d8a53-7a43-4c2e-8d53-3f4b6c1e7a10", "variantId": "8e6f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b", "name": " Toor Dal ", "weight": "1kg", "price": 120.5, "quantity": 2}
	],
	"shippingAddress": {"name": "Asha", "phone": "5550100", "street": "1 Main St", "city": "Pune", "state": "MH", "zip": "411001"},
	"totalAmount": "241.00"
}`

func verifyRequestFor(body string, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, "asha@example.com", "user"))
	}
	return req
}

func TestVerifyCheckoutReturnsSettledOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{order: &models.Order{ID: orderID}}
	userID := uuid.New()

	resp := httptest.NewRecorder()
	VerifyCheckout(svc, testLogger())(resp, verifyRequestFor(verifyBody, userID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body verifyResponse
	decodeData(t, resp, &body)
	if body.OrderID != orderID.String() || body.Status != "settled" {
		t.Fatalf("unexpected response %+v", body)
	}

	in := svc.input
	if in.UserID != userID || in.Email != "asha@example.com" {
		t.Fatalf("identity not forwarded: %+v", in)
	}
	if in.Confirmation.ProviderOrderID != "order_9A7" || in.Confirmation.PaymentID != "pay_31F" || in.Confirmation.Signature != "c0ffee" {
		t.Fatalf("confirmation not forwarded: %+v", in.Confirmation)
	}
	if len(in.LineItems) != 1 || in.LineItems[0].Name != "Toor Dal" || in.LineItems[0].Quantity != 2 {
		t.Fatalf("line items not mapped: %+v", in.LineItems)
	}
	if !in.LineItems[0].Price.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("unexpected price %s", in.LineItems[0].Price)
	}
	if !in.ClaimedTotal.Equal(decimal.RequireFromString("241")) {
		t.Fatalf("unexpected total %s", in.ClaimedTotal)
	}
	if in.ShippingAddress.City != "Pune" {
		t.Fatalf("address not mapped: %+v", in.ShippingAddress)
	}
}

func TestVerifyCheckoutRequiresUser(t *testing.T) {
	svc := &stubCheckoutService{}
	resp := httptest.NewRecorder()
	VerifyCheckout(svc, testLogger())(resp, verifyRequestFor(verifyBody, ""))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestVerifyCheckoutRejectsMalformedBody(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"no line items":   `{"providerOrderId":"o","paymentId":"p","signature":"s","lineItems":[]}`,
		"zero quantity":   `{"providerOrderId":"o","paymentId":"p","signature":"s","lineItems":[{"productId":"0b0d8a53-7a43-4c2e-8d53-3f4b6c1e7a10","variantId":"8e6f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b","quantity":0}]}`,
		"missing payment": `{"providerOrderId":"o","signature":"s","lineItems":[{"productId":"0b0d8a53-7a43-4c2e-8d53-3f4b6c1e7a10","variantId":"8e6f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b","quantity":1}]}`,
	}
	for name, body := range cases {
		svc := &stubCheckoutService{}
		resp := httptest.NewRecorder()
		VerifyCheckout(svc, testLogger())(resp, verifyRequestFor(body, uuid.NewString()))

		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.Code)
		}
		if got := decodeError(t, resp).Code; got != string(pkgerrors.CodeValidation) {
			t.Fatalf("%s: unexpected code %s", name, got)
		}
		if svc.calls != 0 {
			t.Fatalf("%s: service should not be called", name)
		}
	}
}

func TestVerifyCheckoutMapsSettlementErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   pkgerrors.Code
	}{
		{pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment signature mismatch"), http.StatusBadRequest, pkgerrors.CodeInvalidSignature},
		{pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock"), http.StatusConflict, pkgerrors.CodeInsufficientStock},
		{pkgerrors.New(pkgerrors.CodeNotFound, "variant not found"), http.StatusNotFound, pkgerrors.CodeNotFound},
		{pkgerrors.New(pkgerrors.CodePersistenceFailure, "persist order"), http.StatusInternalServerError, pkgerrors.CodePersistenceFailure},
		{pkgerrors.New(pkgerrors.CodeTimeout, "checkout timed out"), http.StatusGatewayTimeout, pkgerrors.CodeTimeout},
	}
	for _, tc := range cases {
		svc := &stubCheckoutService{err: tc.err}
		resp := httptest.NewRecorder()
		VerifyCheckout(svc, testLogger())(resp, verifyRequestFor(verifyBody, uuid.NewString()))

		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.code, tc.status, resp.Code)
		}
		if got := decodeError(t, resp).Code; got != string(tc.code) {
			t.Fatalf("expected code %s, got %s", tc.code, got)
		}
	}
}
