package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/localdrop-backend/api/controllers"
	checkoutcontrollers "github.com/angelmondragon/localdrop-backend/api/controllers/checkout"
	ordercontrollers "github.com/angelmondragon/localdrop-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/localdrop-backend/api/controllers/webhooks"
	"github.com/angelmondragon/localdrop-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
)

type redisStore interface {
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type CheckoutService interface {
	Estimate(ctx context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.Quote, error)
	Authorize(ctx context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.AuthorizeResult, error)
}

type OrderConfirmer interface {
	Confirm(ctx context.Context, callerID uuid.UUID, authorizationID string) (*models.Order, error)
}

type OrdersService interface {
	Get(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderView, error)
	List(ctx context.Context, actor orders.Actor, filter orders.ListFilter, params pagination.Params) (*orders.OrderList, error)
	VendorAct(ctx context.Context, actor orders.Actor, orderID uuid.UUID, action orders.VendorAction) (*orders.OrderView, error)
	CourierAct(ctx context.Context, actor orders.Actor, orderID uuid.UUID, action orders.CourierAction, verificationCode string) (*orders.OrderView, error)
	CourierJobs(ctx context.Context, actor orders.Actor, limit int) ([]orders.CourierJob, error)
}

type WebhookGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type SigningSecretSource interface {
	SigningSecret() string
}

type WebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// Params carries everything the HTTP surface depends on. Nil services answer 500.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        redisStore
	Checkout     CheckoutService
	Confirmer    OrderConfirmer
	Orders       OrdersService
	Webhooks     WebhookService
	StripeClient SigningSecretSource
	WebhookGuard WebhookGuard
	Metrics      http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if p.DB != nil {
		readiness["db"] = p.DB
	}
	if p.Redis != nil {
		readiness["redis"] = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.Webhooks, p.StripeClient, p.WebhookGuard, logg))
	})

	var (
		idempotencyStore middleware.IdempotencyStore
		limiter          middleware.RateLimitStore
	)
	if p.Redis != nil {
		idempotencyStore = p.Redis
		limiter = p.Redis
	}
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/checkout", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleBuyer))
			r.Use(middleware.RateLimit(checkoutPolicy, limiter, logg))
			r.Post("/estimate", checkoutcontrollers.Estimate(p.Checkout, logg))
			r.Post("/authorize", checkoutcontrollers.Authorize(p.Checkout, logg))
			r.Post("/confirm", checkoutcontrollers.Confirm(p.Confirmer, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
		})

		r.Route("/v1/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleVendor))
			r.Use(middleware.StorefrontContext(logg))
			r.Post("/orders/{orderId}/{action}", ordercontrollers.VendorAction(p.Orders, logg))
		})

		r.Route("/v1/courier", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCourier))
			r.Get("/jobs", ordercontrollers.CourierJobs(p.Orders, logg))
			r.Post("/orders/{orderId}/{action}", ordercontrollers.CourierAction(p.Orders, logg))
		})
	})

	return r
}
