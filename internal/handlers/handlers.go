package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/promotion"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	validate       *validator.Validate
	log            *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService, log *zap.Logger) *Handler {
	return &Handler{
		bookingService: bookingService,
		validate:       validator.New(),
		log:            log,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindInvalid:
		return http.StatusBadRequest
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondErr writes err with the status of its kind. Unclassified errors are logged and
// hidden from the caller.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind == errs.KindInternal {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error: "Internal server error",
			Kind:  string(errs.KindInternal),
		})
		return
	}
	if e.Kind == errs.KindUnavailable {
		h.log.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondJSON(w, statusFor(e.Kind), models.ErrorResponse{
		Error:      e.Message,
		Kind:       string(e.Kind),
		Violations: e.Violations,
	})
}

// decode reads and validates the request body, answering 400 itself on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:      "Invalid request",
			Kind:       string(errs.KindInvalid),
			Violations: validationMessages(err),
		})
		return false
	}
	return true
}

func validationMessages(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// GetFlightSeats handles GET /api/flights/{id}/seats
func (h *Handler) GetFlightSeats(w http.ResponseWriter, r *http.Request) {
	flightID, ok := pathID(w, r)
	if !ok {
		return
	}
	seats, err := h.bookingService.ListSeats(r.Context(), flightID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if seats == nil {
		seats = []models.FlightSeat{}
	}
	respondJSON(w, http.StatusOK, seats)
}

// ReserveSeat handles POST /api/seats/{id}/reserve
func (h *Handler) ReserveSeat(w http.ResponseWriter, r *http.Request) {
	seatID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.ReserveSeatRequest
	if !h.decode(w, r, &req) {
		return
	}
	seat, err := h.bookingService.ReserveSeat(r.Context(), seatID, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, seat)
}

// ReleaseSeat handles POST /api/seats/{id}/release
func (h *Handler) ReleaseSeat(w http.ResponseWriter, r *http.Request) {
	seatID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.ReleaseSeatRequest
	if !h.decode(w, r, &req) {
		return
	}
	seat, err := h.bookingService.ReleaseSeat(r.Context(), seatID, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, seat)
}

// QuotePrice handles POST /api/pricing/quote
func (h *Handler) QuotePrice(w http.ResponseWriter, r *http.Request) {
	var req models.PriceQuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	quote, err := h.bookingService.QuotePrice(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// CheckAvailability handles POST /api/availability/check
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.CheckAvailability(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ValidatePolicies handles POST /api/policies/validate
func (h *Handler) ValidatePolicies(w http.ResponseWriter, r *http.Request) {
	var req models.PolicyValidationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.ValidatePolicies(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CheckBlackout handles POST /api/blackouts/check
func (h *Handler) CheckBlackout(w http.ResponseWriter, r *http.Request) {
	var req models.BlackoutCheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.CheckBlackout(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ValidatePromotion handles POST /api/promotions/validate
func (h *Handler) ValidatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotion.ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.ValidatePromotion(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CalculateDiscount handles POST /api/promotions/discount
func (h *Handler) CalculateDiscount(w http.ResponseWriter, r *http.Request) {
	var req models.DiscountRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.CalculateDiscount(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CreateBooking handles POST /api/bookings. It answers once the booking workflow finishes.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.bookingService.CreateBooking(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.bookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// GetRefundQuote handles GET /api/bookings/{id}/refund
func (h *Handler) GetRefundQuote(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.bookingService.QuoteRefund(r.Context(), bookingID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CancelBooking handles DELETE /api/bookings/{id}
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.bookingService.CancelBooking(r.Context(), bookingID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
