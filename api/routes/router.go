package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/boxoffice-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/orders"
	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
)

// Deps is everything the router hands to controllers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
	Ready    map[string]controllers.Pinger

	Events   controllers.EventReader
	Carts    cartcontrollers.Sessions
	Checkout controllers.CheckoutSessions
	Orders   ordercontrollers.Reader
	Panels   controllers.PanelManager
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/{eventID}", controllers.EventGet(d.Events, logg))
		r.Get("/orders/{orderID}", ordercontrollers.Detail(d.Orders, cfg.JWT, logg))
		r.Get("/orders", ordercontrollers.ListByEmail(d.Orders, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(d.Carts, logg))
				r.Delete("/", cartcontrollers.Clear(d.Carts, logg))
				r.Post("/items", cartcontrollers.AddItem(d.Carts, d.Events, logg))
				r.Patch("/items/{ticketTypeID}", cartcontrollers.UpdateQuantity(d.Carts, logg))
				r.Delete("/items/{ticketTypeID}", cartcontrollers.RemoveItem(d.Carts, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutGet(d.Checkout, logg))
				r.Post("/", controllers.CheckoutSubmit(d.Checkout, logg))
				r.Put("/channel", controllers.CheckoutSelectChannel(d.Checkout, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))

		r.Route("/panels/{eventID}", func(r chi.Router) {
			r.Put("/", controllers.PanelMount(d.Panels, logg))
			r.Get("/", controllers.PanelGet(d.Panels, logg))
			r.Delete("/", controllers.PanelUnmount(d.Panels, logg))
			r.Post("/tickets/refresh", controllers.PanelRefreshTickets(d.Panels, logg))
		})
	})

	return r
}
