package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foodbridge/internal/repository"
	"foodbridge/internal/service"
	"foodbridge/internal/service/donorapi"
)

type Handler struct {
	router    *chi.Mux
	donations *service.DonationService
	auth      *service.AuthService
	payments  *service.PaymentService
}

func NewHandler(donations *service.DonationService, auth *service.AuthService, payments *service.PaymentService) *Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	h := &Handler{
		router:    router,
		donations: donations,
		auth:      auth,
		payments:  payments,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)

		r.Get("/donations", h.ListDonations)
		r.Post("/donations", h.CreateDonation)
		r.Get("/donations/live", h.LiveDonations)
		r.Put("/donations/{id}", h.UpdateDonation)
		r.Delete("/donations/{id}", h.DeleteDonation)

		r.Post("/sync", h.Sync)

		r.Post("/payments", h.InitiatePayment)
		r.Get("/payments", h.ListPayments)
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if errors.Is(err, service.ErrInvalidStatus) || errors.Is(err, service.ErrInvalidTransition) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if errors.Is(err, service.ErrAuthFailed) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var apiErr *donorapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case donorapi.KindBadRequest:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": apiErr.Message})
		default:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": apiErr.Message})
		}
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
