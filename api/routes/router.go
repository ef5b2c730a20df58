package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Sessions controllers.Sessions
	Verifier pkgAuth.Verifier
	Gatherer prometheus.Gatherer
	Pingers  map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))
		r.Use(middleware.Auth(deps.Verifier, logg))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionFetch(deps.Sessions, logg))
			r.With(middleware.RequireIdentity(logg)).Post("/login", controllers.SessionLogin(deps.Sessions, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Sessions, logg))
			r.Post("/items", controllers.CartAddItem(deps.Sessions, logg))
			r.Patch("/items", controllers.CartUpdateQuantity(deps.Sessions, logg))
			r.Delete("/items", controllers.CartRemoveItem(deps.Sessions, logg))
			r.Post("/checkout", controllers.CartCheckout(deps.Sessions, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistFetch(deps.Sessions, logg))
			r.Post("/items", controllers.WishlistAddItem(deps.Sessions, logg))
			r.Delete("/items", controllers.WishlistRemoveItem(deps.Sessions, logg))
			r.Post("/toggle", controllers.WishlistToggle(deps.Sessions, logg))
			r.Post("/move", controllers.WishlistMoveToCart(deps.Sessions, logg))
			r.Post("/move-all", controllers.WishlistMoveAllToCart(deps.Sessions, logg))
		})
	})

	return r
}
