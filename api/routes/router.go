package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pierrevannier/freelancehub-backend/api/controllers"
	"github.com/pierrevannier/freelancehub-backend/api/middleware"
	"github.com/pierrevannier/freelancehub-backend/internal/licenses"
	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/internal/subscriptions"
	"github.com/pierrevannier/freelancehub-backend/pkg/auth/session"
	"github.com/pierrevannier/freelancehub-backend/pkg/config"
	"github.com/pierrevannier/freelancehub-backend/pkg/db"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	catalog plans.Catalog,
	licenseService licenses.Service,
	subscriptionsRepo *subscriptions.Repository,
	gate *subscriptions.Gate,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	readyDeps := map[string]controllers.Pinger{}
	if dbP != nil {
		readyDeps["database"] = dbP
	}
	if redisClient != nil {
		readyDeps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/v1/plans", controllers.PlanList(catalog))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.AccessState(gate, logg))

		activationGuard := func(next http.Handler) http.Handler { return next }
		if redisClient != nil {
			activationGuard = middleware.ActivationRateLimit(cfg.ActivationRateLimit, redisClient, logg)
		}

		// Activation stays open to expired accounts: redeeming a key is how
		// they become writable again.
		r.With(activationGuard).
			Post("/licenses/activate", controllers.LicenseActivate(licenseService, logg))
		r.With(middleware.RequireWritable(logg)).
			Delete("/licenses", controllers.LicenseDeactivate(licenseService, logg))

		r.Get("/subscriptions/me", controllers.SubscriptionMe(subscriptionsRepo, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/licenses", func(r chi.Router) {
			r.Post("/", controllers.AdminLicenseIssue(licenseService, logg))
			r.Post("/grant", controllers.AdminLicenseGrant(licenseService, logg))
			r.Get("/", controllers.AdminLicenseList(licenseService, logg))
			r.Get("/inspect", controllers.AdminLicenseInspect(licenseService, logg))
			r.Get("/export", controllers.AdminLicenseExport(licenseService, catalog, logg))
			r.Delete("/{licenseId}", controllers.AdminLicenseDelete(licenseService, logg))
		})
	})

	return r
}
