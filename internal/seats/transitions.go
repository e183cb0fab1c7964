package seats

import (
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
)

// The transitions below are pure: they take the stored row and return the row to write,
// with Version bumped, or a classified error. They never touch storage.

func next(seat models.FlightSeat) models.FlightSeat {
	seat.Version++
	return seat
}

func clearLock(seat *models.FlightSeat) {
	seat.LockedUntil = nil
	seat.LockedByUserID = nil
}

func unsellable(seat models.FlightSeat) error {
	return errs.Conflict("Seat %s is not available", seat.SeatNumber)
}

// reserve places a new hold, or restarts the clock on userID's own unexpired hold
func reserve(seat models.FlightSeat, userID uuid.UUID, now time.Time, d time.Duration) (models.FlightSeat, error) {
	if !seat.CanBeReserved(now) && !seat.HeldBy(userID, now) {
		if seat.Status == models.SeatStatusReserved {
			return seat, errs.Conflict("Seat %s is held by another customer", seat.SeatNumber)
		}
		return seat, unsellable(seat)
	}
	until := now.Add(d)
	holder := userID
	n := next(seat)
	n.Status = models.SeatStatusReserved
	n.LockedUntil = &until
	n.LockedByUserID = &holder
	n.BookingID = nil
	return n, nil
}

func release(seat models.FlightSeat, userID uuid.UUID) (models.FlightSeat, error) {
	if seat.Status != models.SeatStatusReserved {
		return seat, errs.Conflict("Seat %s is not reserved", seat.SeatNumber)
	}
	if seat.LockedByUserID == nil || *seat.LockedByUserID != userID {
		return seat, errs.Forbidden("Seat %s is not held by you", seat.SeatNumber)
	}
	n := next(seat)
	n.Status = models.SeatStatusAvailable
	clearLock(&n)
	return n, nil
}

// book promotes an available seat, an expired hold, or holderID's own hold. holderID may be
// uuid.Nil when the booking was made without an interactive seat selection.
func book(seat models.FlightSeat, bookingID, holderID uuid.UUID, now time.Time) (models.FlightSeat, bool, error) {
	switch seat.Status {
	case models.SeatStatusBooked:
		if seat.BookingID != nil && *seat.BookingID == bookingID {
			return seat, false, nil
		}
		return seat, false, errs.Conflict("Seat %s is already booked", seat.SeatNumber)
	case models.SeatStatusReserved:
		if !seat.LockExpired(now) && !seat.HeldBy(holderID, now) {
			return seat, false, errs.Conflict("Seat %s is held by another customer", seat.SeatNumber)
		}
	case models.SeatStatusAvailable:
	default:
		return seat, false, unsellable(seat)
	}
	id := bookingID
	n := next(seat)
	n.Status = models.SeatStatusBooked
	n.BookingID = &id
	clearLock(&n)
	return n, true, nil
}

func unbook(seat models.FlightSeat) (models.FlightSeat, bool, error) {
	switch seat.Status {
	case models.SeatStatusAvailable:
		return seat, false, nil
	case models.SeatStatusBooked, models.SeatStatusReserved:
	default:
		return seat, false, unsellable(seat)
	}
	n := next(seat)
	n.Status = models.SeatStatusAvailable
	n.BookingID = nil
	clearLock(&n)
	return n, true, nil
}

// view is what readers see: an expired hold reads as available with no lock fields
func view(seat models.FlightSeat, now time.Time) models.FlightSeat {
	if seat.Status == models.SeatStatusReserved && seat.LockExpired(now) {
		seat.Status = models.SeatStatusAvailable
		clearLock(&seat)
	}
	return seat
}
