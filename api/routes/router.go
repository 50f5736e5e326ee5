package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/droppoint-backend/api/controllers/orders"
	"github.com/angelmondragon/droppoint-backend/api/middleware"
	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/internal/payments"
	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/maps"
	"github.com/angelmondragon/droppoint-backend/pkg/redis"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// Cache is the redis surface the HTTP layer needs.
type Cache interface {
	redis.Pinger
	middleware.ResponseStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Geocoder resolves display addresses for map pins.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, point types.GeographyPoint) (*maps.Address, error)
}

// LiveHub registers SSE viewers.
type LiveHub interface {
	Subscribe(userID uuid.UUID, role enums.ActorRole) (*notifications.Session, func())
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache Cache,
	metricsHandler http.Handler,
	eligibilityService eligibility.Service,
	geocoder Geocoder,
	ordersService orders.Service,
	paymentsService payments.Service,
	notificationsService notifications.Service,
	hub LiveHub,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.CORS(cfg.App),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	limits := cfg.RateLimit
	quotePolicy := middleware.NewRateLimitPolicy("quote", limits.Window, limits.QuoteUser, limits.QuoteIP)
	geocodePolicy := middleware.NewRateLimitPolicy("geocode", limits.Window, limits.GeocodeUser, limits.GeocodeIP)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", limits.Window, limits.CheckoutUser, limits.CheckoutIP)

	// interface values holding a nil pointer must not reach middleware nil checks
	var (
		idem    middleware.ResponseStore
		limiter interface {
			FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
		}
		cachePing redis.Pinger
	)
	if cache != nil {
		idem, limiter, cachePing = cache, cache, cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePing))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idem, logg))

		r.With(middleware.RateLimit(quotePolicy, limiter, logg)).
			Post("/eligibility/quote", controllers.EligibilityQuote(eligibilityService, logg))
		r.With(middleware.RateLimit(geocodePolicy, limiter, logg)).
			Get("/geo/reverse", controllers.ReverseGeocode(geocoder, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
				Post("/", ordercontrollers.PlaceOrder(ordersService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/stream", ordercontrollers.Stream(hub, cfg.Stream.HeartbeatInterval, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
				Post("/{orderId}/payments/intent", ordercontrollers.InitiatePayment(paymentsService, logg))
			r.Post("/{orderId}/payments/verify", ordercontrollers.VerifyPayment(paymentsService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleStaff, enums.ActorRoleAdmin))
				r.Post("/{orderId}/fulfillment", ordercontrollers.AdvanceFulfillment(ordersService, logg))
				r.Post("/{orderId}/payment-status", ordercontrollers.SetPaymentStatus(ordersService, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
			r.Get("/origin", controllers.AdminGetOrigin(eligibilityService, logg))
			r.Put("/origin", controllers.AdminSetOrigin(eligibilityService, logg))
		})
	})

	return r
}
