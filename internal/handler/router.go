package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/raffle-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware движка резервации билетов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/raffles", h.CreateRaffle)
		r.Patch("/raffles/{raffleID}/status", h.UpdateRaffleStatus)
		r.Post("/raffles/{raffleID}/reserve", h.Reserve)
		r.Get("/raffles/{raffleID}/availability", h.Availability)

		r.Post("/holds/{holdID}/confirm", h.Confirm)
		r.Post("/holds/{holdID}/cancel", h.Cancel)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
