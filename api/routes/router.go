package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/taskrent-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/taskrent-backend/api/controllers/orders"
	ticketcontrollers "github.com/angelmondragon/taskrent-backend/api/controllers/tickets"
	uploadcontrollers "github.com/angelmondragon/taskrent-backend/api/controllers/uploads"
	walletcontrollers "github.com/angelmondragon/taskrent-backend/api/controllers/wallet"
	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/pkg/config"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/taskrent-backend/pkg/redis"
)

// Params carries everything the router wires. Optional dependencies may be nil.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	RateLimits  middleware.RateLimiterStore
	Orders      ordercontrollers.Service
	Tickets     ticketcontrollers.Service
	Wallets     walletcontrollers.Service
	Uploader    uploadcontrollers.Uploader
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	verifyPolicy := middleware.NewAuthRateLimitPolicy(
		"verify_password",
		cfg.RateLimit.VerifyPasswordWindow,
		cfg.RateLimit.VerifyPasswordIPLimit,
		cfg.RateLimit.VerifyPasswordUserLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		idempotent := middleware.Idempotency(p.Idempotency, logg)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.With(idempotent).Post("/", ordercontrollers.Create(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.With(idempotent).Post("/{orderId}/actions/{action}", ordercontrollers.Action(p.Orders, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/{ticketNumber}", ticketcontrollers.Detail(p.Tickets, logg))
			r.Post("/id/{ticketId}/messages", ticketcontrollers.PostMessage(p.Tickets, logg))
			r.Post("/id/{ticketId}/close", ticketcontrollers.Close(p.Tickets, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletcontrollers.Balance(p.Wallets, logg))
			r.With(idempotent).Post("/payment-password", walletcontrollers.SetPaymentPassword(p.Wallets, logg))
			r.With(middleware.AuthRateLimit(verifyPolicy, p.RateLimits, logg)).
				Post("/verify-password", walletcontrollers.VerifyPassword(p.Wallets, logg))
		})

		r.Post("/uploads", uploadcontrollers.Image(uploadcontrollers.Params{
			Uploader: p.Uploader,
			Prefix:   cfg.GCS.UploadPrefix,
			MaxBytes: int64(cfg.GCS.MaxUploadMB) << 20,
			Logger:   logg,
		}))
	})

	return r
}
