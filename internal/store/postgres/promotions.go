package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/doug-martin/goqu/v9"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var promotionCols = []interface{}{
	"id", "code", "name", "discount_type", "discount_value", "max_discount_amount",
	"min_booking_amount", "status", "is_active", "valid_from", "valid_to", "max_total_uses",
	"max_uses_per_customer", "current_usage_count", "applicable_days", "applicable_routes",
	"applicable_airline_ids", "first_time_customers_only", "created_at",
}

// scanPromotion reads promotionCols. Route and airline allow-lists are JSON arrays.
func scanPromotion(row pgx.Row) (*models.Promotion, error) {
	var (
		p        models.Promotion
		days     int16
		routes   []byte
		airlines []byte
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.DiscountType, &p.DiscountValue, &p.MaxDiscountAmount,
		&p.MinBookingAmount, &p.Status, &p.IsActive, &p.ValidFrom, &p.ValidTo, &p.MaxTotalUses,
		&p.MaxUsesPerCustomer, &p.CurrentUsageCount, &days, &routes,
		&airlines, &p.FirstTimeCustomersOnly, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ApplicableDays = models.Weekdays(days)
	if len(routes) > 0 {
		if err := json.Unmarshal(routes, &p.ApplicableRoutes); err != nil {
			return nil, fmt.Errorf("failed to decode applicable routes: %w", err)
		}
	}
	if len(airlines) > 0 {
		if err := json.Unmarshal(airlines, &p.ApplicableAirlineIDs); err != nil {
			return nil, fmt.Errorf("failed to decode applicable airlines: %w", err)
		}
	}
	return &p, nil
}

func (s *Store) getPromotion(ctx context.Context, where goqu.Ex) (*models.Promotion, error) {
	sql, args, err := build(dialect.From("promotions").Select(promotionCols...).Where(where).Prepared(true))
	if err != nil {
		return nil, err
	}
	p, err := scanPromotion(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, "promotion")
	}
	return p, nil
}

func (s *Store) GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	return s.getPromotion(ctx, goqu.Ex{"id": id})
}

// GetPromotionByCode matches codes case-insensitively; codes are stored upper case
func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	return s.getPromotion(ctx, goqu.Ex{"code": strings.ToUpper(strings.TrimSpace(code))})
}

func (s *Store) CountPromotionUsage(ctx context.Context, promotionID, customerID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = $1 AND customer_id = $2
	`, promotionID, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count promotion usage: %w", err)
	}
	return n, nil
}

func (s *Store) CountCustomerBookings(ctx context.Context, customerID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE customer_id = $1 AND status NOT IN ('cancelled', 'failed')
	`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count customer bookings: %w", err)
	}
	return n, nil
}

// RedeemPromotion locks the promotion row, re-checks both caps, then records the usage and
// bumps the counter in the same transaction. A booking that already redeemed gets the row back unchanged.
func (s *Store) RedeemPromotion(ctx context.Context, usage models.PromotionUsage) (*models.Promotion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql, args, err := build(dialect.From("promotions").
		Select(promotionCols...).
		Where(goqu.Ex{"id": usage.PromotionID}).
		ForUpdate(goqu.Wait).
		Prepared(true))
	if err != nil {
		return nil, err
	}
	p, err := scanPromotion(tx.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, "promotion")
	}

	var redeemed bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM promotion_usages WHERE promotion_id = $1 AND booking_id = $2)
	`, p.ID, usage.BookingID).Scan(&redeemed)
	if err != nil {
		return nil, fmt.Errorf("failed to check promotion usage: %w", err)
	}
	if redeemed {
		return p, nil
	}

	if p.Status != models.PromotionActive {
		return nil, store.ErrPromotionNotActive
	}
	if p.MaxTotalUses != nil && p.CurrentUsageCount >= *p.MaxTotalUses {
		return nil, store.ErrUsageLimitReached
	}
	if p.MaxUsesPerCustomer != nil {
		var used int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = $1 AND customer_id = $2
		`, p.ID, usage.CustomerID).Scan(&used)
		if err != nil {
			return nil, fmt.Errorf("failed to count promotion usage: %w", err)
		}
		if used >= *p.MaxUsesPerCustomer {
			return nil, store.ErrCustomerLimitReached
		}
	}

	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO promotion_usages (id, promotion_id, customer_id, booking_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`, usage.ID, usage.PromotionID, usage.CustomerID, usage.BookingID, usage.DiscountAmount, nullTime(usage.UsedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to record promotion usage: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE promotions
		SET current_usage_count = current_usage_count + 1,
		    status = CASE
		        WHEN max_total_uses IS NOT NULL AND current_usage_count + 1 >= max_total_uses THEN 'exhausted'
		        ELSE status
		    END
		WHERE id = $1
		RETURNING current_usage_count, status
	`, p.ID).Scan(&p.CurrentUsageCount, &p.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update promotion usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}
	return p, nil
}
