package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the API router. Everything except the health check
// sits behind session authentication.
func NewRouter(h *LockHandler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/api/files/{fileID}", h.GetFile)
		r.Post("/api/files/{fileID}/checkout", h.Checkout)
		r.Post("/api/files/{fileID}/checkin", h.Checkin)
		r.Post("/api/files/{fileID}/checkout/override", h.OverrideCheckout)
		r.Get("/api/checkouts", h.ListCheckouts)
		r.Get("/ws", h.ServeWS)
	})

	return r
}
