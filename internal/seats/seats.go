// Package seats arbitrates concurrent seat selection. Every mutation is a compare-and-set on
// the seat row's version, so two requests for the same seat can never both succeed.
//
// Holds expire softly: nothing sweeps expired reservations. Every read and every transition
// checks LockedUntil against the clock, and an expired hold behaves as an available seat.
package seats

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/retry"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const swapAttempts = 3

// Listener is told about every committed seat change
type Listener func(seat models.FlightSeat)

// Inventory applies seat transitions against a SeatStore
type Inventory struct {
	store     store.SeatStore
	log       *zap.Logger
	now       func() time.Time
	listeners []Listener
}

// NewInventory creates a seat inventory
func NewInventory(s store.SeatStore, log *zap.Logger) *Inventory {
	return &Inventory{store: s, log: log, now: time.Now}
}

// OnChange registers l to run after each committed transition
func (inv *Inventory) OnChange(l Listener) {
	inv.listeners = append(inv.listeners, l)
}

// Reserve holds a seat for userID for durationMinutes
func (inv *Inventory) Reserve(ctx context.Context, seatID, userID uuid.UUID, durationMinutes int) (*models.FlightSeat, error) {
	if durationMinutes <= 0 {
		return nil, errs.Invalid("Hold duration must be positive")
	}
	d := time.Duration(durationMinutes) * time.Minute
	return inv.apply(ctx, seatID, "reserve", func(seat models.FlightSeat, now time.Time) (models.FlightSeat, bool, error) {
		n, err := reserve(seat, userID, now, d)
		return n, err == nil, err
	})
}

// Release drops userID's hold on a seat
func (inv *Inventory) Release(ctx context.Context, seatID, userID uuid.UUID) (*models.FlightSeat, error) {
	return inv.apply(ctx, seatID, "release", func(seat models.FlightSeat, _ time.Time) (models.FlightSeat, bool, error) {
		n, err := release(seat, userID)
		return n, err == nil, err
	})
}

// Book assigns a seat to bookingID. Booking the same seat again for the same booking is a no-op.
func (inv *Inventory) Book(ctx context.Context, seatID, bookingID, holderID uuid.UUID) (*models.FlightSeat, error) {
	return inv.apply(ctx, seatID, "book", func(seat models.FlightSeat, now time.Time) (models.FlightSeat, bool, error) {
		return book(seat, bookingID, holderID, now)
	})
}

// Unbook returns a booked or held seat to sale. Unbooking an available seat is a no-op.
func (inv *Inventory) Unbook(ctx context.Context, seatID uuid.UUID) (*models.FlightSeat, error) {
	return inv.apply(ctx, seatID, "unbook", func(seat models.FlightSeat, _ time.Time) (models.FlightSeat, bool, error) {
		return unbook(seat)
	})
}

// Get returns a seat as readers should see it at the current time
func (inv *Inventory) Get(ctx context.Context, seatID uuid.UUID) (*models.FlightSeat, error) {
	seat, err := inv.load(ctx, seatID)
	if err != nil {
		return nil, err
	}
	v := view(*seat, inv.now())
	return &v, nil
}

// List returns a flight's seat map
func (inv *Inventory) List(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error) {
	seats, err := inv.store.ListFlightSeats(ctx, flightID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list seats")
	}
	now := inv.now()
	out := make([]models.FlightSeat, 0, len(seats))
	for _, s := range seats {
		out = append(out, view(s, now))
	}
	return out, nil
}

// BookingSeats returns the seats currently assigned to a booking
func (inv *Inventory) BookingSeats(ctx context.Context, bookingID uuid.UUID) ([]models.FlightSeat, error) {
	seats, err := inv.store.ListBookingSeats(ctx, bookingID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list booking seats")
	}
	return seats, nil
}

type transition func(seat models.FlightSeat, now time.Time) (models.FlightSeat, bool, error)

func (inv *Inventory) load(ctx context.Context, seatID uuid.UUID) (*models.FlightSeat, error) {
	seat, err := inv.store.GetSeat(ctx, seatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("Seat not found")
		}
		return nil, errs.Wrap(err, "failed to load seat")
	}
	return seat, nil
}

func (inv *Inventory) apply(ctx context.Context, seatID uuid.UUID, op string, t transition) (*models.FlightSeat, error) {
	var (
		n       models.FlightSeat
		changed bool
		number  string
	)
	// a lost compare-and-set reloads the seat and reruns the transition against the winner's state
	err := retry.Do(ctx, func(ctx context.Context) error {
		seat, err := inv.load(ctx, seatID)
		if err != nil {
			return err
		}
		number = seat.SeatNumber
		n, changed, err = t(*seat, inv.now())
		if err != nil || !changed {
			return err
		}
		return inv.store.SwapSeat(ctx, n)
	}, retry.WithMaxAttempts(swapAttempts), retry.If(func(err error) bool {
		return errors.Is(err, store.ErrVersionConflict)
	}))

	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return nil, errs.Conflict("Seat %s was updated by another request, try again", number)
	case errors.Is(err, store.ErrNotFound):
		return nil, errs.NotFound("Seat not found")
	case err != nil:
		return nil, errs.Wrap(err, "failed to %s seat", op)
	}
	if !changed {
		return &n, nil
	}

	inv.log.Debug("seat updated",
		zap.String("op", op),
		zap.String("seat_id", seatID.String()),
		zap.String("status", string(n.Status)),
		zap.Int64("version", n.Version),
	)
	for _, l := range inv.listeners {
		l(n)
	}
	return &n, nil
}
