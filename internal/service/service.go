package service

import (
	"context"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/availability"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/booking"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/pricing"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/promotion"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/seats"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/workflows"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// BookingService defines the booking service interface
type BookingService interface {
	ListSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error)
	ReserveSeat(ctx context.Context, seatID uuid.UUID, req models.ReserveSeatRequest) (*models.FlightSeat, error)
	ReleaseSeat(ctx context.Context, seatID uuid.UUID, req models.ReleaseSeatRequest) (*models.FlightSeat, error)

	QuotePrice(ctx context.Context, req models.PriceQuoteRequest) (*pricing.Quote, error)
	CheckAvailability(ctx context.Context, req models.AvailabilityRequest) (*availability.Result, error)
	ValidatePolicies(ctx context.Context, req models.PolicyValidationRequest) (*availability.PolicyResult, error)
	CheckBlackout(ctx context.Context, req models.BlackoutCheckRequest) (*availability.BlackoutResult, error)

	ValidatePromotion(ctx context.Context, req promotion.ValidateRequest) (*promotion.Validation, error)
	CalculateDiscount(ctx context.Context, req models.DiscountRequest) (*models.DiscountResponse, error)

	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.BookingWorkflowResult, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	QuoteRefund(ctx context.Context, bookingID uuid.UUID) (*refund.Result, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (*models.CancellationWorkflowResult, error)
}

// Engines are the domain components the service answers from
type Engines struct {
	Pricing      *pricing.Engine
	Availability *availability.Engine
	Promotions   *promotion.Engine
	Seats        *seats.Inventory
	Refunds      *refund.Service
	Bookings     *booking.Coordinator
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	temporalClient  client.Client
	taskQueue       string
	engines         Engines
	seatLockMinutes int
	log             *zap.Logger
	now             func() time.Time
}

// NewBookingService creates a new BookingService. Reads go straight to the engines; bookings
// and cancellations run as workflows on taskQueue.
func NewBookingService(temporalClient client.Client, taskQueue string, engines Engines, seatLockMinutes int, log *zap.Logger) BookingService {
	return &bookingServiceImpl{
		temporalClient:  temporalClient,
		taskQueue:       taskQueue,
		engines:         engines,
		seatLockMinutes: seatLockMinutes,
		log:             log,
		now:             time.Now,
	}
}

func (s *bookingServiceImpl) ListSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error) {
	return s.engines.Seats.List(ctx, flightID)
}

func (s *bookingServiceImpl) ReserveSeat(ctx context.Context, seatID uuid.UUID, req models.ReserveSeatRequest) (*models.FlightSeat, error) {
	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = s.seatLockMinutes
	}
	return s.engines.Seats.Reserve(ctx, seatID, req.UserID, minutes)
}

func (s *bookingServiceImpl) ReleaseSeat(ctx context.Context, seatID uuid.UUID, req models.ReleaseSeatRequest) (*models.FlightSeat, error) {
	return s.engines.Seats.Release(ctx, seatID, req.UserID)
}

func (s *bookingServiceImpl) dateOr(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now()
	}
	return *t
}

func (s *bookingServiceImpl) QuotePrice(ctx context.Context, req models.PriceQuoteRequest) (*pricing.Quote, error) {
	return s.engines.Pricing.ComputePrice(ctx, req.FlightID, req.CabinClass, s.dateOr(req.BookingDate), req.PassengerCount)
}

func (s *bookingServiceImpl) CheckAvailability(ctx context.Context, req models.AvailabilityRequest) (*availability.Result, error) {
	return s.engines.Availability.CheckAvailability(ctx, req.FlightID, req.CabinClass, req.RequestedSeats)
}

func (s *bookingServiceImpl) ValidatePolicies(ctx context.Context, req models.PolicyValidationRequest) (*availability.PolicyResult, error) {
	return s.engines.Availability.ValidatePolicies(ctx, req.FlightID, req.CabinClass, s.dateOr(req.BookingDate), req.PassengerCount)
}

func (s *bookingServiceImpl) CheckBlackout(ctx context.Context, req models.BlackoutCheckRequest) (*availability.BlackoutResult, error) {
	return s.engines.Availability.CheckBlackout(ctx, req.FlightID, req.CabinClass, req.TravelDate, req.CheckPromotions)
}

func (s *bookingServiceImpl) ValidatePromotion(ctx context.Context, req promotion.ValidateRequest) (*promotion.Validation, error) {
	return s.engines.Promotions.Validate(ctx, req)
}

func (s *bookingServiceImpl) CalculateDiscount(ctx context.Context, req models.DiscountRequest) (*models.DiscountResponse, error) {
	if req.BookingAmount.IsNegative() {
		return nil, errs.Invalid("Booking amount cannot be negative")
	}
	passengers := req.PassengerCount
	if passengers == 0 {
		passengers = 1
	}
	amount, err := s.engines.Promotions.CalculateDiscount(ctx, req.PromotionID, req.BookingAmount, passengers)
	if err != nil {
		return nil, err
	}
	return &models.DiscountResponse{PromotionID: req.PromotionID, DiscountAmount: amount}, nil
}

// CreateBooking runs the booking workflow and waits for its outcome. A workflow that ends
// without a confirmed booking is returned as the error kind its failing step reported.
func (s *bookingServiceImpl) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.BookingWorkflowResult, error) {
	bookingID := uuid.New()
	workflowOptions := client.StartWorkflowOptions{
		ID:        models.BookingWorkflowID(bookingID),
		TaskQueue: s.taskQueue,
	}

	run, err := s.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.BookingWorkflow, models.BookingWorkflowInput{
		BookingID: bookingID,
		Request:   req,
	})
	if err != nil {
		return nil, errs.Unavailable(err, "Booking could not be started")
	}
	s.log.Info("booking workflow started",
		zap.String("booking_id", bookingID.String()),
		zap.String("workflow_id", run.GetID()),
	)

	var result models.BookingWorkflowResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, errs.Unavailable(err, "Booking did not complete")
	}
	if result.Failure != nil {
		return &result, failureError(result.Failure)
	}
	return &result, nil
}

func (s *bookingServiceImpl) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.engines.Bookings.Get(ctx, bookingID)
}

func (s *bookingServiceImpl) QuoteRefund(ctx context.Context, bookingID uuid.UUID) (*refund.Result, error) {
	_, res, err := s.engines.Refunds.Quote(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelBooking runs the cancellation workflow. A cancellation already running for the
// booking is joined rather than started twice.
func (s *bookingServiceImpl) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*models.CancellationWorkflowResult, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        models.CancellationWorkflowID(bookingID),
		TaskQueue: s.taskQueue,
	}

	run, err := s.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.CancellationWorkflow, models.CancellationWorkflowInput{
		BookingID: bookingID,
	})
	if err != nil {
		return nil, errs.Unavailable(err, "Cancellation could not be started")
	}

	var result models.CancellationWorkflowResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, errs.Unavailable(err, "Cancellation did not complete")
	}
	if result.Failure != nil {
		return &result, failureError(result.Failure)
	}
	return &result, nil
}

// failureError rebuilds the error a workflow step failed with
func failureError(f *models.WorkflowFailure) error {
	return &errs.Error{Kind: errs.Kind(f.Kind), Message: f.Message, Violations: f.Violations}
}
