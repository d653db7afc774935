package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/NahunMenem/TurnosLu/libs/auth"
)

type RouterConfig struct {
	// AdminTokenHash is the bcrypt hash guarding admin routes; empty disables
	// the guard.
	AdminTokenHash string
	CORSOrigins    []string
	// Middlewares wrap every route, outermost first.
	Middlewares []func(http.Handler) http.Handler
	Health      http.HandlerFunc
	Ready       http.HandlerFunc
}

// NewRouter mounts the API under /api/v1 plus the health endpoints.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range cfg.Middlewares {
		r.Use(mw)
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health)
	}
	if cfg.Ready != nil {
		r.Get("/readyz", cfg.Ready)
	}

	admin := auth.RequireAdmin(cfg.AdminTokenHash)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/slots", h.Slots)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.CreateAppointment)
			r.Get("/", h.ListAppointments)
			r.Get("/{id}", h.GetAppointment)
			r.Get("/{id}/payments/total", h.TotalPaid)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/{id}/confirm", h.ConfirmAppointment)
				r.Delete("/{id}", h.RemoveAppointment)
				r.Post("/{id}/payments", h.RegisterPayment)
			})
		})

		r.Post("/payments/webhooks/stripe", h.StripeWebhook)

		r.Get("/services", h.ListServices)
		r.Get("/services/{id}/rules", h.ListRules)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/reports/cash", h.CashReport)
			r.Post("/services", h.CreateService)
			r.Post("/rules", h.CreateRule)
		})
	})
	return r
}
