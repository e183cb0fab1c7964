package booking

import (
	"context"
	"errors"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Get returns a booking with each segment's current departure
func (c *Coordinator) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("Booking not found")
		}
		return nil, errs.Wrap(err, "failed to load booking")
	}
	return b, nil
}

// CreatePending stores the admitted booking. Repeating it for the same booking ID returns
// the stored booking.
func (c *Coordinator) CreatePending(ctx context.Context, adm *Admission) (*models.Booking, error) {
	existing, err := c.store.GetBooking(ctx, adm.BookingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errs.Wrap(err, "failed to load booking")
	}

	pnr, err := NewPNR()
	if err != nil {
		return nil, errs.Wrap(err, "failed to generate PNR")
	}

	b := &models.Booking{
		ID:                   adm.BookingID,
		PNR:                  pnr,
		CustomerID:           adm.CustomerID,
		CustomerEmail:        adm.CustomerEmail,
		Status:               models.BookingStatusPending,
		PassengerCount:       adm.PassengerCount,
		Currency:             adm.Currency,
		TotalAmount:          adm.TotalAmount,
		DiscountAmount:       adm.DiscountAmount,
		PromotionID:          adm.PromotionID,
		CancellationPolicyID: adm.CancellationPolicyID,
	}
	for _, s := range adm.Segments {
		dep := s.Departure
		b.Segments = append(b.Segments, models.BookingSegment{
			FlightID:   s.FlightID,
			CabinClass: s.CabinClass,
			UnitPrice:  s.UnitPrice,
			SeatIDs:    s.SeatIDs,
			Departure:  &dep,
		})
	}

	if err := c.store.CreateBooking(ctx, b); err != nil {
		return nil, errs.Wrap(err, "failed to create booking")
	}
	c.log.Info("booking created", zap.String("booking_id", b.ID.String()), zap.String("pnr", b.PNR))
	return b, nil
}

// HoldInventory takes the booking's passengers out of each cabin's availability, bounded by
// the cabin's current maximum bookable seats. It holds all segments or none, and a segment
// the booking already holds is left as is.
func (c *Coordinator) HoldInventory(ctx context.Context, bookingID uuid.UUID) error {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return err
	}

	held := make([]models.BookingSegment, 0, len(b.Segments))
	for _, s := range b.Segments {
		maxBookable, err := c.availability.MaxBookableSeats(ctx, s.FlightID, s.CabinClass)
		if err == nil {
			err = c.store.ReserveCabinSeats(ctx, b.ID, s.FlightID, s.CabinClass, b.PassengerCount, maxBookable)
		}
		if err != nil {
			c.releaseSegments(ctx, b.ID, held)
			if errors.Is(err, store.ErrCapacityExceeded) {
				return errs.Conflict("Not enough seats left in %s", s.CabinClass)
			}
			return errs.Wrap(err, "failed to hold inventory")
		}
		held = append(held, s)
	}
	return nil
}

// ReleaseInventory returns whatever the booking holds to each cabin's availability
func (c *Coordinator) ReleaseInventory(ctx context.Context, bookingID uuid.UUID) error {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	return c.releaseSegments(ctx, b.ID, b.Segments)
}

func (c *Coordinator) releaseSegments(ctx context.Context, bookingID uuid.UUID, segments []models.BookingSegment) error {
	var first error
	for _, s := range segments {
		if err := c.store.ReleaseCabinSeats(ctx, bookingID, s.FlightID, s.CabinClass); err != nil {
			c.log.Error("failed to release inventory",
				zap.String("flight_id", s.FlightID.String()),
				zap.String("cabin", string(s.CabinClass)),
				zap.Error(err),
			)
			if first == nil {
				first = errs.Wrap(err, "failed to release inventory")
			}
		}
	}
	return first
}

// AssignSeats books the selected seats, or picks open seats in the cabin when none were
// selected. Flights without a provisioned seat map are left unassigned.
func (c *Coordinator) AssignSeats(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var booked []uuid.UUID
	for i, s := range b.Segments {
		ids := s.SeatIDs
		if len(ids) == 0 {
			ids, err = c.openSeats(ctx, s.FlightID, s.CabinClass, b.PassengerCount)
			if err != nil {
				return nil, err
			}
		}
		for _, seatID := range ids {
			if _, err := c.seats.Book(ctx, seatID, b.ID, b.CustomerID); err != nil {
				c.unbook(ctx, booked)
				return nil, err
			}
			booked = append(booked, seatID)
		}
		b.Segments[i].SeatIDs = ids
	}

	if err := c.store.UpdateBooking(ctx, b); err != nil {
		c.unbook(ctx, booked)
		return nil, errs.Wrap(err, "failed to save seat assignment")
	}
	return b, nil
}

func (c *Coordinator) openSeats(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass, n int) ([]uuid.UUID, error) {
	all, err := c.seats.List(ctx, flightID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, n)
	for _, s := range all {
		if s.CabinClass == cabin && s.Status == models.SeatStatusAvailable {
			ids = append(ids, s.ID)
			if len(ids) == n {
				return ids, nil
			}
		}
	}
	c.log.Info("seat map cannot seat every passenger, leaving seats for check-in",
		zap.String("flight_id", flightID.String()),
		zap.String("cabin", string(cabin)),
		zap.Int("open", len(ids)),
	)
	return nil, nil
}

// UnassignSeats returns every seat booked for the booking to sale
func (c *Coordinator) UnassignSeats(ctx context.Context, bookingID uuid.UUID) error {
	assigned, err := c.seats.BookingSeats(ctx, bookingID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(assigned))
	for _, s := range assigned {
		ids = append(ids, s.ID)
	}
	return c.unbook(ctx, ids)
}

func (c *Coordinator) unbook(ctx context.Context, seatIDs []uuid.UUID) error {
	var first error
	for _, id := range seatIDs {
		if _, err := c.seats.Unbook(ctx, id); err != nil {
			c.log.Error("failed to unbook seat", zap.String("seat_id", id.String()), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// RedeemPromotion records the booking's promotion usage. It returns nil when the booking
// carries no promotion.
func (c *Coordinator) RedeemPromotion(ctx context.Context, bookingID uuid.UUID) (*models.Promotion, error) {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PromotionID == nil {
		return nil, nil
	}
	return c.promotions.RecordUsage(ctx, *b.PromotionID, b.CustomerID, b.ID, b.DiscountAmount)
}

// Confirm marks a pending booking as confirmed and paid
func (c *Coordinator) Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case models.BookingStatusConfirmed:
		return b, nil
	case models.BookingStatusPending:
	default:
		return nil, errs.Conflict("Booking is %s", b.Status)
	}

	b.Status = models.BookingStatusConfirmed
	b.PaidAmount = b.TotalAmount
	if err := c.store.UpdateBooking(ctx, b); err != nil {
		return nil, errs.Wrap(err, "failed to confirm booking")
	}
	c.log.Info("booking confirmed", zap.String("booking_id", b.ID.String()), zap.String("pnr", b.PNR))
	return b, nil
}

// Fail marks a pending booking as failed. Unknown bookings are ignored.
func (c *Coordinator) Fail(ctx context.Context, bookingID uuid.UUID, reason string) error {
	b, err := c.store.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errs.Wrap(err, "failed to load booking")
	}
	if b.Status != models.BookingStatusPending {
		return nil
	}
	b.Status = models.BookingStatusFailed
	b.FailureReason = reason
	if err := c.store.UpdateBooking(ctx, b); err != nil {
		return errs.Wrap(err, "failed to mark booking failed")
	}
	c.log.Warn("booking failed", zap.String("booking_id", b.ID.String()), zap.String("reason", reason))
	return nil
}

// PrepareCancellation computes the refund for a confirmed booking without changing it
func (c *Coordinator) PrepareCancellation(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error) {
	b, res, err := c.refunds.Quote(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusConfirmed {
		return nil, errs.Conflict("Booking is %s", b.Status)
	}
	return &Cancellation{Booking: b, Refund: *res}, nil
}

// CompleteCancellation records the refund and marks the booking cancelled
func (c *Coordinator) CompleteCancellation(ctx context.Context, bookingID uuid.UUID, res refund.Result) (*models.Booking, error) {
	b, err := c.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingStatusCancelled {
		return b, nil
	}

	now := c.now()
	refundAmount := res.RefundAmount
	fee := res.CancellationFee
	b.Status = models.BookingStatusCancelled
	b.RefundAmount = &refundAmount
	b.CancellationFee = &fee
	b.CancelledAt = &now
	if err := c.store.UpdateBooking(ctx, b); err != nil {
		return nil, errs.Wrap(err, "failed to cancel booking")
	}
	c.log.Info("booking cancelled",
		zap.String("booking_id", b.ID.String()),
		zap.String("refund", refundAmount.String()),
	)
	return b, nil
}
