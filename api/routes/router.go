package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/api/controllers"
	"github.com/angelmondragon/miniapp-storefront/api/middleware"
	"github.com/angelmondragon/miniapp-storefront/pkg/config"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/redis"
)

// NewRouter mounts the storefront and admin surfaces. redisClient may be nil, which
// disables admin login throttling. metricsHandler may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sessions middleware.EngineSource,
	catalogStore controllers.SnapshotSource,
	redisClient *redis.Client,
	backendURL string,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	lang := language.Make(cfg.App.Locale)

	var (
		limiterStore middleware.RateLimiterStore
		readyPinger  controllers.Pinger
	)
	if redisClient != nil {
		limiterStore = redisClient
		readyPinger = redisClient
	}

	loginPolicy := middleware.NewLoginRateLimitPolicy(
		"admin_login",
		cfg.AdminRateLimit.LoginWindow,
		cfg.AdminRateLimit.LoginIPLimit,
		cfg.AdminRateLimit.LoginCredentialLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, catalogStore, readyPinger))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(sessions, enums.ModeStorefront, logg))

		r.Get("/catalog", controllers.CatalogList(lang, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(lang, logg))
			r.Post("/{sku}/increment", controllers.CartIncrement(lang, logg))
			r.Post("/{sku}/decrement", controllers.CartDecrement(lang, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutGet(lang, logg))
			r.Put("/", controllers.CheckoutUpdate(lang, logg))
			r.With(middleware.SubmitRateLimit(cfg.Checkout.SubmitLimit, cfg.Checkout.SubmitWindow, logg)).
				Post("/submit", controllers.CheckoutSubmit(lang, logg))
			r.Post("/reset", controllers.CheckoutReset(lang, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminCredential(logg))
		r.Use(middleware.Session(sessions, enums.ModeAdmin, logg))

		r.With(middleware.LoginRateLimit(loginPolicy, limiterStore, logg)).
			Post("/login", controllers.AdminLogin(backendURL, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.AdminInventory(logg))
			r.Put("/{sku}", controllers.AdminSetStock(logg))
			r.Post("/save", controllers.AdminSave(logg))
			r.Post("/sync", controllers.AdminSync(logg))
		})
	})

	return r
}
