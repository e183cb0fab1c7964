package router

import (
	"net/http"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/handlers"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/websocket"
	"github.com/gorilla/mux"
)

// NewRouter creates and configures the HTTP router
func NewRouter(h *handlers.Handler, hub *websocket.Hub) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Seats
	api.HandleFunc("/flights/{id}/seats", h.GetFlightSeats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/seats/{id}/reserve", h.ReserveSeat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/seats/{id}/release", h.ReleaseSeat).Methods(http.MethodPost, http.MethodOptions)

	// Pricing, availability and policies
	api.HandleFunc("/pricing/quote", h.QuotePrice).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/availability/check", h.CheckAvailability).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/policies/validate", h.ValidatePolicies).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/blackouts/check", h.CheckBlackout).Methods(http.MethodPost, http.MethodOptions)

	// Promotions
	api.HandleFunc("/promotions/validate", h.ValidatePromotion).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/promotions/discount", h.CalculateDiscount).Methods(http.MethodPost, http.MethodOptions)

	// Bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.CancelBooking).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/refund", h.GetRefundQuote).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time seat updates
	api.HandleFunc("/flights/{id}/ws", hub.ServeFlight)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
