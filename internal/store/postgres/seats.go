package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const seatCols = `id, flight_id, seat_number, cabin_class, status, locked_until, locked_by_user_id, booking_id, version`

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Store) GetSeat(ctx context.Context, id uuid.UUID) (*models.FlightSeat, error) {
	var seat models.FlightSeat
	err := s.pool.QueryRow(ctx, `SELECT `+seatCols+` FROM flight_seats WHERE id = $1`, id).Scan(
		&seat.ID, &seat.FlightID, &seat.SeatNumber, &seat.CabinClass, &seat.Status,
		&seat.LockedUntil, &seat.LockedByUserID, &seat.BookingID, &seat.Version,
	)
	if err != nil {
		return nil, notFound(err, "seat")
	}
	return &seat, nil
}

func (s *Store) listSeats(ctx context.Context, where string, arg uuid.UUID) ([]models.FlightSeat, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+seatCols+` FROM flight_seats WHERE `+where+` ORDER BY seat_number`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	var seats []models.FlightSeat
	for rows.Next() {
		var seat models.FlightSeat
		err := rows.Scan(
			&seat.ID, &seat.FlightID, &seat.SeatNumber, &seat.CabinClass, &seat.Status,
			&seat.LockedUntil, &seat.LockedByUserID, &seat.BookingID, &seat.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seats: %w", err)
	}
	return seats, nil
}

func (s *Store) ListFlightSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error) {
	return s.listSeats(ctx, "flight_id = $1", flightID)
}

func (s *Store) ListBookingSeats(ctx context.Context, bookingID uuid.UUID) ([]models.FlightSeat, error) {
	return s.listSeats(ctx, "booking_id = $1", bookingID)
}

// SwapSeat writes the whole row only while the stored version is next.Version-1
func (s *Store) SwapSeat(ctx context.Context, next models.FlightSeat) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE flight_seats
		SET status = $1, locked_until = $2, locked_by_user_id = $3, booking_id = $4, version = $5
		WHERE id = $6 AND version = $7
	`, string(next.Status), next.LockedUntil, next.LockedByUserID, next.BookingID, next.Version, next.ID, next.Version-1)
	if err != nil {
		return fmt.Errorf("failed to update seat: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flight_seats WHERE id = $1)`, next.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check seat: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrVersionConflict
	}
	return nil
}

// ReserveCabinSeats records the booking's hold and applies a conditional decrement in one
// transaction, so concurrent holds cannot oversell and a repeated hold is a no-op
func (s *Store) ReserveCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass, n, maxBookable int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO booking_inventory_holds (booking_id, flight_id, cabin_class, seats)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id, flight_id, cabin_class) DO NOTHING
	`, bookingID, flightID, string(cabin), n)
	if err != nil {
		return fmt.Errorf("failed to record inventory hold: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil
	}

	result, err = tx.Exec(ctx, `
		UPDATE cabin_price_tiers
		SET available_seats = available_seats - $1
		WHERE flight_id = $2 AND cabin_class = $3
		  AND (total_seats - available_seats) + $1 <= $4
	`, n, flightID, string(cabin), maxBookable)
	if err != nil {
		return fmt.Errorf("failed to reserve cabin seats: %w", err)
	}
	if result.RowsAffected() == 0 {
		tx.Rollback(ctx)
		if _, err := s.GetCabinPriceTier(ctx, flightID, cabin); err != nil {
			return err
		}
		return store.ErrCapacityExceeded
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReleaseCabinSeats deletes the booking's hold and returns exactly the seats it recorded
func (s *Store) ReleaseCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var n int
	err = tx.QueryRow(ctx, `
		DELETE FROM booking_inventory_holds
		WHERE booking_id = $1 AND flight_id = $2 AND cabin_class = $3
		RETURNING seats
	`, bookingID, flightID, string(cabin)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.GetCabinPriceTier(ctx, flightID, cabin); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete inventory hold: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE cabin_price_tiers
		SET available_seats = LEAST(available_seats + $1, total_seats)
		WHERE flight_id = $2 AND cabin_class = $3
	`, n, flightID, string(cabin))
	if err != nil {
		return fmt.Errorf("failed to release cabin seats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
