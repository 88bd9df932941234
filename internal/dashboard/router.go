package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"savings-admin/console/internal/guard"
)

// NewRouter mounts the dashboard routes behind the route guard. healthz, when non-nil,
// is served at /healthz.
func NewRouter(h *Handlers, healthz http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(guard.Middleware)

	if healthz != nil {
		r.Method(http.MethodGet, "/healthz", healthz)
	}

	// Sign-in (no session required)
	r.Get("/", h.LoginPage)
	r.Post("/", h.Login)
	r.Post("/logout", h.Logout)

	r.Get("/dashboard", h.Overview)
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.Customers)
		r.Get("/{id}", h.Customer)
		r.Post("/{id}/verify-device", h.VerifyDevice)
	})
	r.Get("/transactions", h.Transactions)
	r.Get("/analytics", h.Analytics)

	return r
}
