package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var scopeCols = []interface{}{"airline_id", "departure_airport", "arrival_airport", "cabin_class"}

func scopeDest(s *models.Scope) []interface{} {
	return []interface{}{&s.AirlineID, &s.DepartureAirport, &s.ArrivalAirport, &s.CabinClass}
}

func withScope(cols ...interface{}) []interface{} {
	return append(cols, scopeCols...)
}

// date renders t as a UTC calendar date for date columns
func date(t time.Time) string {
	return models.DateOf(t).Format("2006-01-02")
}

func (s *Store) GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	query := `
		SELECT id, airline_id, flight_number, departure_airport, arrival_airport,
		       departure_time, arrival_time, COALESCE(departure_timezone, '')
		FROM flights
		WHERE id = $1
	`
	var f models.Flight
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.AirlineID, &f.FlightNumber, &f.DepartureAirport, &f.ArrivalAirport,
		&f.DepartureTime, &f.ArrivalTime, &f.DepartureTimezone,
	)
	if err != nil {
		return nil, notFound(err, "flight")
	}
	return &f, nil
}

func (s *Store) GetCabinPriceTier(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.CabinPriceTier, error) {
	query := `
		SELECT flight_id, cabin_class, base_price, current_price, tax_amount, currency,
		       total_seats, available_seats, is_active, cancellation_policy_id
		FROM cabin_price_tiers
		WHERE flight_id = $1 AND cabin_class = $2
	`
	var t models.CabinPriceTier
	err := s.pool.QueryRow(ctx, query, flightID, string(cabin)).Scan(
		&t.FlightID, &t.CabinClass, &t.BasePrice, &t.CurrentPrice, &t.TaxAmount, &t.Currency,
		&t.TotalSeats, &t.AvailableSeats, &t.IsActive, &t.CancellationPolicyID,
	)
	if err != nil {
		return nil, notFound(err, "cabin price tier")
	}
	return &t, nil
}

// queryRows runs a goqu select and scans each row with scan
func queryRows(ctx context.Context, s *Store, ds *goqu.SelectDataset, what string, scan func(pgx.Rows) error) error {
	sql, args, err := build(ds.Prepared(true))
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", what, err)
	}
	return nil
}

func (s *Store) ListDynamicPricingRules(ctx context.Context, airlineID uuid.UUID) ([]models.DynamicPricingRule, error) {
	ds := dialect.From("dynamic_pricing_rules").
		Select(withScope(
			"id", "name", "rule_type", "adjustment_percentage", "priority", "is_active",
			"applicable_days", "season_start", "season_end",
			"min_booking_percentage", "max_booking_percentage",
			"min_days_before_departure", "max_days_before_departure",
			"start_hour", "end_hour", "created_at",
		)...).
		Where(goqu.C("is_active").IsTrue(), airlineScope(airlineID))

	var out []models.DynamicPricingRule
	err := queryRows(ctx, s, ds, "pricing rules", func(rows pgx.Rows) error {
		var r models.DynamicPricingRule
		var days int16
		dest := []interface{}{
			&r.ID, &r.Name, &r.RuleType, &r.AdjustmentPercentage, &r.Priority, &r.IsActive,
			&days, &r.SeasonStart, &r.SeasonEnd,
			&r.MinBookingPercentage, &r.MaxBookingPercentage,
			&r.MinDaysBeforeDeparture, &r.MaxDaysBeforeDeparture,
			&r.StartHour, &r.EndHour, &r.CreatedAt,
		}
		if err := rows.Scan(append(dest, scopeDest(&r.Scope)...)...); err != nil {
			return err
		}
		r.ApplicableDays = models.Weekdays(days)
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *Store) ListSeasonalPricing(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.SeasonalPricing, error) {
	day := date(on)
	ds := dialect.From("seasonal_pricing").
		Select(withScope("id", "name", "start_date", "end_date", "adjustment_percentage", "priority", "is_active", "created_at")...).
		Where(
			goqu.C("is_active").IsTrue(),
			airlineScope(airlineID),
			goqu.C("start_date").Lte(day),
			goqu.C("end_date").Gte(day),
		)

	var out []models.SeasonalPricing
	err := queryRows(ctx, s, ds, "seasonal pricing", func(rows pgx.Rows) error {
		var p models.SeasonalPricing
		dest := []interface{}{&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.AdjustmentPercentage, &p.Priority, &p.IsActive, &p.CreatedAt}
		if err := rows.Scan(append(dest, scopeDest(&p.Scope)...)...); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (s *Store) ListBookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.BookingPolicy, error) {
	ds := dialect.From("booking_policies").
		Select(withScope(
			"id", "code", "name", "policy_type", "value", "secondary_value",
			goqu.COALESCE(goqu.C("error_message"), "").As("error_message"),
			"priority", "is_active", "created_at",
		)...).
		Where(goqu.C("is_active").IsTrue(), airlineScope(airlineID))

	var out []models.BookingPolicy
	err := queryRows(ctx, s, ds, "booking policies", func(rows pgx.Rows) error {
		var p models.BookingPolicy
		dest := []interface{}{&p.ID, &p.Code, &p.Name, &p.Type, &p.Value, &p.SecondaryValue, &p.ErrorMessage, &p.Priority, &p.IsActive, &p.CreatedAt}
		if err := rows.Scan(append(dest, scopeDest(&p.Scope)...)...); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (s *Store) ListOverbookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.OverbookingPolicy, error) {
	ds := dialect.From("overbooking_policies").
		Select(withScope("id", "max_overbooking_percentage", "max_overbooked_seats", "priority", "is_active", "created_at")...).
		Where(goqu.C("is_active").IsTrue(), airlineScope(airlineID))

	var out []models.OverbookingPolicy
	err := queryRows(ctx, s, ds, "overbooking policies", func(rows pgx.Rows) error {
		var p models.OverbookingPolicy
		dest := []interface{}{&p.ID, &p.MaxOverbookingPercentage, &p.MaxOverbookedSeats, &p.Priority, &p.IsActive, &p.CreatedAt}
		if err := rows.Scan(append(dest, scopeDest(&p.Scope)...)...); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (s *Store) ListBlackoutDates(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.BlackoutDate, error) {
	day := date(on)
	ds := dialect.From("blackout_dates").
		Select(withScope(
			"id", "name", goqu.COALESCE(goqu.C("description"), "").As("description"),
			"start_date", "end_date", "blocks_bookings", "blocks_promotions", "is_active", "created_at",
		)...).
		Where(
			goqu.C("is_active").IsTrue(),
			airlineScope(airlineID),
			goqu.C("start_date").Lte(day),
			goqu.C("end_date").Gte(day),
		)

	var out []models.BlackoutDate
	err := queryRows(ctx, s, ds, "blackout dates", func(rows pgx.Rows) error {
		var b models.BlackoutDate
		dest := []interface{}{&b.ID, &b.Name, &b.Description, &b.StartDate, &b.EndDate, &b.BlocksBookings, &b.BlocksPromotions, &b.IsActive, &b.CreatedAt}
		if err := rows.Scan(append(dest, scopeDest(&b.Scope)...)...); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func (s *Store) GetCancellationPolicy(ctx context.Context, id uuid.UUID) (*models.CancellationPolicy, error) {
	var p models.CancellationPolicy
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, is_refundable FROM cancellation_policies WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.IsRefundable)
	if err != nil {
		return nil, notFound(err, "cancellation policy")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, min_hours_before_departure, max_hours_before_departure, refund_percentage, flat_fee
		FROM cancellation_policy_rules
		WHERE policy_id = $1
		ORDER BY min_hours_before_departure DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancellation rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.CancellationPolicyRule
		if err := rows.Scan(&r.ID, &r.MinHoursBeforeDeparture, &r.MaxHoursBeforeDeparture, &r.RefundPercentage, &r.FlatFee); err != nil {
			return nil, fmt.Errorf("failed to scan cancellation rule: %w", err)
		}
		p.Rules = append(p.Rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cancellation rules: %w", err)
	}
	return &p, nil
}
