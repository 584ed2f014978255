package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/floristika/insumos-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса флористики.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetQuote)
			r.Delete("/", h.Cancel)

			r.Put("/slots/{slotID}/flower", h.ChooseFlower)
			r.Put("/slots/{slotID}/quantity", h.SetQuantity)

			r.Put("/container", h.ChooseContainer)
			r.Get("/containers", h.GetContainers)

			r.Put("/term", h.SetTerm)

			r.Post("/submit", h.Submit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
