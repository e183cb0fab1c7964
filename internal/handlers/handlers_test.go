package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/pricing"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/service/mocks"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/flights/{id}/seats", h.GetFlightSeats).Methods(http.MethodGet)
	api.HandleFunc("/seats/{id}/reserve", h.ReserveSeat).Methods(http.MethodPost)
	api.HandleFunc("/pricing/quote", h.QuotePrice).Methods(http.MethodPost)
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", h.CancelBooking).Methods(http.MethodDelete)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	return r
}

func newTestHandler() (*mocks.MockBookingService, *mux.Router) {
	mockService := new(mocks.MockBookingService)
	return mockService, setupTestRouter(NewHandler(mockService, zap.NewNop()))
}

func do(router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandler_GetFlightSeats(t *testing.T) {
	mockService, router := newTestHandler()
	flightID := uuid.New()
	mockService.On("ListSeats", mock.Anything, flightID).Return([]models.FlightSeat{
		{ID: uuid.New(), FlightID: flightID, SeatNumber: "1A", Status: models.SeatStatusAvailable},
	}, nil)

	rec := do(router, http.MethodGet, "/api/flights/"+flightID.String()+"/seats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var seats []models.FlightSeat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&seats))
	require.Len(t, seats, 1)
	assert.Equal(t, "1A", seats[0].SeatNumber)

	rec = do(router, http.MethodGet, "/api/flights/not-a-uuid/seats", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_ReserveSeat(t *testing.T) {
	seatID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name           string
		body           interface{}
		mockError      error
		callsService   bool
		expectedStatus int
	}{
		{
			name:           "seat held",
			body:           models.ReserveSeatRequest{UserID: userID},
			callsService:   true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "held by someone else",
			body:           models.ReserveSeatRequest{UserID: userID},
			mockError:      errs.Forbidden("Seat is held by another customer"),
			callsService:   true,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "lost race",
			body:           models.ReserveSeatRequest{UserID: userID},
			mockError:      errs.Conflict("Seat 1A was updated by another request, try again"),
			callsService:   true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown seat",
			body:           models.ReserveSeatRequest{UserID: userID},
			mockError:      errs.NotFound("Seat not found"),
			callsService:   true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "store down",
			body:           models.ReserveSeatRequest{UserID: userID},
			mockError:      errs.Unavailable(errors.New("timeout"), "failed to load seat"),
			callsService:   true,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "missing user",
			body:           map[string]int{"durationMinutes": 5},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "hold too long",
			body:           models.ReserveSeatRequest{UserID: userID, DurationMinutes: 600},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService, router := newTestHandler()
			if tt.callsService {
				var seat *models.FlightSeat
				if tt.mockError == nil {
					seat = &models.FlightSeat{ID: seatID, SeatNumber: "1A", Status: models.SeatStatusReserved}
				}
				mockService.On("ReserveSeat", mock.Anything, seatID, mock.Anything).Return(seat, tt.mockError)
			}

			rec := do(router, http.MethodPost, "/api/seats/"+seatID.String()+"/reserve", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
			if !tt.callsService {
				mockService.AssertNotCalled(t, "ReserveSeat", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func validBooking() models.CreateBookingRequest {
	return models.CreateBookingRequest{
		CustomerID:     uuid.New(),
		CustomerEmail:  "jane@example.com",
		PassengerCount: 2,
		Segments: []models.SegmentRequest{
			{FlightID: uuid.New(), CabinClass: models.CabinEconomy},
		},
	}
}

func TestHandler_CreateBooking(t *testing.T) {
	mockService, router := newTestHandler()
	req := validBooking()
	mockService.On("CreateBooking", mock.Anything, req).Return(&models.BookingWorkflowResult{
		BookingID:   uuid.New(),
		PNR:         "K7M2QX",
		Status:      models.BookingStatusConfirmed,
		TotalAmount: decimal.RequireFromString("899.90"),
	}, nil)

	rec := do(router, http.MethodPost, "/api/bookings", req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var result models.BookingWorkflowResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "K7M2QX", result.PNR)
	assert.True(t, decimal.RequireFromString("899.90").Equal(result.TotalAmount))
	mockService.AssertExpectations(t)
}

func TestHandler_CreateBooking_PolicyViolation(t *testing.T) {
	mockService, router := newTestHandler()
	violations := []string{"Maximum 4 passengers per booking", "Flights are not sold on Strike day"}
	mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(
		&models.BookingWorkflowResult{Status: models.BookingStatusFailed},
		errs.PolicyViolation("Booking violates policy", violations...),
	)

	rec := do(router, http.MethodPost, "/api/bookings", validBooking())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Booking violates policy", body.Error)
	assert.Equal(t, string(errs.KindPolicyViolation), body.Kind)
	assert.Equal(t, violations, body.Violations)
}

func TestHandler_CreateBooking_Validation(t *testing.T) {
	mockService, router := newTestHandler()
	req := validBooking()
	req.PassengerCount = 12
	req.Segments[0].CabinClass = "steerage"

	rec := do(router, http.MethodPost, "/api/bookings", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(errs.KindInvalid), body.Kind)
	assert.Len(t, body.Violations, 2)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestHandler_GetBooking_HidesInternalErrors(t *testing.T) {
	mockService, router := newTestHandler()
	bookingID := uuid.New()
	mockService.On("GetBooking", mock.Anything, bookingID).Return(nil, errors.New("pq: relation does not exist"))

	rec := do(router, http.MethodGet, "/api/bookings/"+bookingID.String(), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Internal server error", body.Error)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestHandler_CancelBooking(t *testing.T) {
	mockService, router := newTestHandler()
	bookingID := uuid.New()
	mockService.On("CancelBooking", mock.Anything, bookingID).Return(&models.CancellationWorkflowResult{
		BookingID:       bookingID,
		Status:          models.BookingStatusCancelled,
		IsRefundable:    true,
		RefundAmount:    decimal.NewFromInt(1570),
		CancellationFee: decimal.NewFromInt(230),
	}, nil)

	rec := do(router, http.MethodDelete, "/api/bookings/"+bookingID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var result models.CancellationWorkflowResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, models.BookingStatusCancelled, result.Status)
	assert.True(t, decimal.NewFromInt(230).Equal(result.CancellationFee))
}

func TestHandler_QuotePrice(t *testing.T) {
	mockService, router := newTestHandler()
	flightID := uuid.New()
	mockService.On("QuotePrice", mock.Anything, mock.MatchedBy(func(req models.PriceQuoteRequest) bool {
		return req.FlightID == flightID && req.PassengerCount == 3 && req.BookingDate == nil
	})).Return(&pricing.Quote{
		FlightID:   flightID,
		CabinClass: models.CabinBusiness,
		TotalPrice: decimal.RequireFromString("3150.00"),
		Currency:   "USD",
	}, nil)

	rec := do(router, http.MethodPost, "/api/pricing/quote", models.PriceQuoteRequest{
		FlightID:       flightID,
		CabinClass:     models.CabinBusiness,
		PassengerCount: 3,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var quote pricing.Quote
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&quote))
	assert.True(t, decimal.RequireFromString("3150").Equal(quote.TotalPrice))
	mockService.AssertExpectations(t)
}

func TestHandler_HealthCheck(t *testing.T) {
	_, router := newTestHandler()
	rec := do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
