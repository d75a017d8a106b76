package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const checkoutRateWindow = time.Minute

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies groups everything the HTTP surface needs. Redis and Limiter
// may be nil when redis is not configured.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Limiter  rateLimiter
	Gatherer prometheus.Gatherer
	Checkout checkout.Service
	Orders   orders.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	// Load already rejected malformed entries.
	proxies, _ := cfg.App.ProxyPrefixes()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.With(middleware.RateLimit("checkout_verify", deps.Limiter, cfg.Checkout.RateLimitPerMinute, checkoutRateWindow, proxies, logg)).
			Post("/verify", controllers.VerifyCheckout(deps.Checkout, logg))
		r.Get("/history", controllers.OrderHistory(deps.Orders, logg))
	})

	r.Route("/api/admin/v1/orders", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, cfg.Admin, logg))
		r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
		r.Put("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
	})

	return r
}
