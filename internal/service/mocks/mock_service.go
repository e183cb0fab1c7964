package mocks

import (
	"context"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/availability"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/pricing"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/promotion"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) ListSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FlightSeat), args.Error(1)
}

func (m *MockBookingService) ReserveSeat(ctx context.Context, seatID uuid.UUID, req models.ReserveSeatRequest) (*models.FlightSeat, error) {
	args := m.Called(ctx, seatID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlightSeat), args.Error(1)
}

func (m *MockBookingService) ReleaseSeat(ctx context.Context, seatID uuid.UUID, req models.ReleaseSeatRequest) (*models.FlightSeat, error) {
	args := m.Called(ctx, seatID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlightSeat), args.Error(1)
}

func (m *MockBookingService) QuotePrice(ctx context.Context, req models.PriceQuoteRequest) (*pricing.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Quote), args.Error(1)
}

func (m *MockBookingService) CheckAvailability(ctx context.Context, req models.AvailabilityRequest) (*availability.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Result), args.Error(1)
}

func (m *MockBookingService) ValidatePolicies(ctx context.Context, req models.PolicyValidationRequest) (*availability.PolicyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.PolicyResult), args.Error(1)
}

func (m *MockBookingService) CheckBlackout(ctx context.Context, req models.BlackoutCheckRequest) (*availability.BlackoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.BlackoutResult), args.Error(1)
}

func (m *MockBookingService) ValidatePromotion(ctx context.Context, req promotion.ValidateRequest) (*promotion.Validation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Validation), args.Error(1)
}

func (m *MockBookingService) CalculateDiscount(ctx context.Context, req models.DiscountRequest) (*models.DiscountResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscountResponse), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.BookingWorkflowResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingWorkflowResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) QuoteRefund(ctx context.Context, bookingID uuid.UUID) (*refund.Result, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Result), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*models.CancellationWorkflowResult, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationWorkflowResult), args.Error(1)
}
