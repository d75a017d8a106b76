package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCheckout struct{}

func (stubCheckout) Settle(ctx context.Context, input checkout.SettleInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

type stubOrders struct{}

func (stubOrders) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrders) ListAll(ctx context.Context, query orders.AdminQuery) (*orders.AdminOrderList, error) {
	return &orders.AdminOrderList{}, nil
}

func (stubOrders) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*orders.OrderView, error) {
	return &orders.OrderView{ID: input.OrderID, Status: enums.OrderStatus(input.Status)}, nil
}

type denyLimiter struct{}

func (denyLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	return false, limit + 1, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 60},
		Admin:    config.AdminConfig{Secret: "ops-secret"},
		Checkout: config.CheckoutConfig{RateLimitPerMinute: 30},
	}
}

func newTestRouter(limiter rateLimiter) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg)
	return NewRouter(testConfig(), logg, Dependencies{
		DB:       stubPinger{},
		Limiter:  limiter,
		Gatherer: reg,
		Checkout: stubCheckout{},
		Orders:   stubOrders{},
	})
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "asha@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(nil)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestOrderRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(nil)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodGet, "/api/v1/orders/history", nil),
	} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", req.URL.Path, resp.Code)
		}
	}
}

func TestOrderHistoryRoute(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/history", nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVerifyRouteIsRateLimited(t *testing.T) {
	router := newTestRouter(denyLimiter{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	router := newTestRouter(nil)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	customer.Header.Set("Authorization", bearer(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?sort=-status", nil)
	admin.Header.Set("Authorization", bearer(t, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", resp.Code, resp.Body.String())
	}

	orderID := uuid.New()
	update := httptest.NewRequest(http.MethodPut, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"Shipped"}`))
	update.Header.Set("X-Admin-Secret", "ops-secret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, update)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin secret, got %d: %s", resp.Code, resp.Body.String())
	}
}
