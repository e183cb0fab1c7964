package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func encodeSeatIDs(ids []uuid.UUID) ([]byte, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return json.Marshal(ids)
}

// CreateBooking inserts the booking and its segments in one transaction
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (
			id, pnr, customer_id, customer_email, status, passenger_count, currency,
			total_amount, discount_amount, paid_amount, promotion_id, cancellation_policy_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`,
		b.ID, b.PNR, b.CustomerID, b.CustomerEmail, string(b.Status), b.PassengerCount, b.Currency,
		b.TotalAmount, b.DiscountAmount, b.PaidAmount, b.PromotionID, b.CancellationPolicyID,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := insertSegments(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSegments(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	batch := &pgx.Batch{}
	for i, seg := range b.Segments {
		seatIDs, err := encodeSeatIDs(seg.SeatIDs)
		if err != nil {
			return fmt.Errorf("failed to encode seat ids: %w", err)
		}
		batch.Queue(`
			INSERT INTO booking_segments (booking_id, position, flight_id, cabin_class, unit_price, seat_ids)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, b.ID, i, seg.FlightID, string(seg.CabinClass), seg.UnitPrice, seatIDs)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert booking segments: %w", err)
	}
	return nil
}

// GetBooking joins each segment to its flight; a segment whose flight is gone has no departure
func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := s.pool.QueryRow(ctx, `
		SELECT id, pnr, customer_id, COALESCE(customer_email, ''), status, passenger_count, currency,
		       total_amount, discount_amount, paid_amount, promotion_id, cancellation_policy_id,
		       refund_amount, cancellation_fee, COALESCE(failure_reason, ''),
		       created_at, updated_at, cancelled_at
		FROM bookings
		WHERE id = $1
	`, id).Scan(
		&b.ID, &b.PNR, &b.CustomerID, &b.CustomerEmail, &b.Status, &b.PassengerCount, &b.Currency,
		&b.TotalAmount, &b.DiscountAmount, &b.PaidAmount, &b.PromotionID, &b.CancellationPolicyID,
		&b.RefundAmount, &b.CancellationFee, &b.FailureReason,
		&b.CreatedAt, &b.UpdatedAt, &b.CancelledAt,
	)
	if err != nil {
		return nil, notFound(err, "booking")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT bs.flight_id, bs.cabin_class, bs.unit_price, bs.seat_ids, f.departure_time
		FROM booking_segments bs
		LEFT JOIN flights f ON f.id = bs.flight_id
		WHERE bs.booking_id = $1
		ORDER BY bs.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking segments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seg       models.BookingSegment
			seatIDs   []byte
			departure *time.Time
		)
		if err := rows.Scan(&seg.FlightID, &seg.CabinClass, &seg.UnitPrice, &seatIDs, &departure); err != nil {
			return nil, fmt.Errorf("failed to scan booking segment: %w", err)
		}
		if len(seatIDs) > 0 {
			if err := json.Unmarshal(seatIDs, &seg.SeatIDs); err != nil {
				return nil, fmt.Errorf("failed to decode seat ids: %w", err)
			}
		}
		seg.Departure = departure
		b.Segments = append(b.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read booking segments: %w", err)
	}
	return &b, nil
}

// UpdateBooking rewrites the mutable booking columns and the segments' seat assignments
func (s *Store) UpdateBooking(ctx context.Context, b *models.Booking) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1, paid_amount = $2, refund_amount = $3, cancellation_fee = $4,
		    failure_reason = NULLIF($5, ''), cancelled_at = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`,
		string(b.Status), b.PaidAmount, b.RefundAmount, b.CancellationFee,
		b.FailureReason, b.CancelledAt, b.ID,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return notFound(err, "booking")
	}

	for i, seg := range b.Segments {
		seatIDs, err := encodeSeatIDs(seg.SeatIDs)
		if err != nil {
			return fmt.Errorf("failed to encode seat ids: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE booking_segments SET seat_ids = $1 WHERE booking_id = $2 AND position = $3
		`, seatIDs, b.ID, i); err != nil {
			return fmt.Errorf("failed to update booking segment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit booking update: %w", err)
	}
	return nil
}
