// Package pricing computes per-seat fares from a cabin's base price and the
// adjustment rules that apply to a flight on a booking date.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/scope"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// AdjustmentDemand labels the adjustment derived from live inventory
	AdjustmentDemand = "demand_based"
	// AdjustmentSeasonal labels the adjustment from a seasonal pricing row
	AdjustmentSeasonal = "seasonal"

	defaultLastMinuteDays = 3
)

var (
	hundred    = decimal.NewFromInt(100)
	floorRatio = decimal.RequireFromString("0.5")
)

// Reader is the data the engine needs
type Reader interface {
	GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	GetCabinPriceTier(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.CabinPriceTier, error)
	ListDynamicPricingRules(ctx context.Context, airlineID uuid.UUID) ([]models.DynamicPricingRule, error)
	ListSeasonalPricing(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.SeasonalPricing, error)
}

// Adjustment is one audited line of a price computation
type Adjustment struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Quote is the result of ComputePrice
type Quote struct {
	FlightID          uuid.UUID         `json:"flightId"`
	CabinClass        models.CabinClass `json:"cabinClass"`
	PassengerCount    int               `json:"passengerCount"`
	BasePrice         decimal.Decimal   `json:"basePrice"`
	AdjustedUnitPrice decimal.Decimal   `json:"adjustedUnitPrice"`
	TaxAmount         decimal.Decimal   `json:"taxAmount"`
	TotalPrice        decimal.Decimal   `json:"totalPrice"`
	Adjustments       []Adjustment      `json:"adjustments"`
	Currency          string            `json:"currency"`
	FloorApplied      bool              `json:"floorApplied"`
}

// Engine computes fares. It holds no state between calls.
type Engine struct {
	reader Reader
	log    *zap.Logger
}

// NewEngine creates a pricing engine
func NewEngine(reader Reader, log *zap.Logger) *Engine {
	return &Engine{reader: reader, log: log}
}

// ComputePrice returns the per-seat and total price for passengerCount seats in cabin
func (e *Engine) ComputePrice(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass, bookingDate time.Time, passengerCount int) (*Quote, error) {
	if passengerCount < 1 {
		return nil, errs.Invalid("Passenger count must be at least 1")
	}

	flight, err := e.reader.GetFlight(ctx, flightID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("Flight not found")
		}
		return nil, errs.Wrap(err, "failed to load flight")
	}

	tier, err := e.reader.GetCabinPriceTier(ctx, flightID, cabin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("No fare available for %s cabin", cabin)
		}
		return nil, errs.Wrap(err, "failed to load price tier")
	}
	if !tier.IsActive {
		return nil, errs.NotFound("No fare available for %s cabin", cabin)
	}

	rules, err := e.reader.ListDynamicPricingRules(ctx, flight.AirlineID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load pricing rules")
	}

	seasons, err := e.reader.ListSeasonalPricing(ctx, flight.AirlineID, flight.DepartureTime)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load seasonal pricing")
	}

	target := scope.For(flight, cabin)
	base := tier.BasePrice
	adjustments := make([]Adjustment, 0)

	applicable := scope.Filter(rules, target, func(r models.DynamicPricingRule) models.Scope { return r.Scope })
	scope.Sort(applicable, dynamicRank)

	for i := range applicable {
		r := &applicable[i]
		if !r.IsActive || !ruleApplies(r, flight, bookingDate) {
			continue
		}
		adjustments = append(adjustments, adjust(r.Name, string(r.RuleType), base, r.AdjustmentPercentage))
	}

	if r := routeRule(applicable); r != nil {
		adjustments = append(adjustments, adjust(r.Name, string(r.RuleType), base, r.AdjustmentPercentage))
	}

	if s := seasonFor(seasons, target, flight.DepartureTime); s != nil {
		adjustments = append(adjustments, adjust(s.Name, AdjustmentSeasonal, base, s.AdjustmentPercentage))
	}

	if pct := DemandAdjustment(tier.TotalSeats, tier.AvailableSeats); !pct.IsZero() {
		adjustments = append(adjustments, adjust("Demand", AdjustmentDemand, base, pct))
	}

	adjusted := base
	for _, a := range adjustments {
		adjusted = adjusted.Add(a.Amount)
	}

	floor := base.Mul(floorRatio).RoundCeil(2)
	floorApplied := false
	if adjusted.LessThan(floor) {
		adjusted = floor
		floorApplied = true
	}
	adjusted = adjusted.Round(2)

	total := adjusted.Add(tier.TaxAmount).Mul(decimal.NewFromInt(int64(passengerCount)))

	e.log.Debug("price computed",
		zap.String("flight_id", flightID.String()),
		zap.String("cabin", string(cabin)),
		zap.String("base", base.String()),
		zap.String("adjusted", adjusted.String()),
		zap.Int("adjustments", len(adjustments)),
	)

	return &Quote{
		FlightID:          flightID,
		CabinClass:        cabin,
		PassengerCount:    passengerCount,
		BasePrice:         base,
		AdjustedUnitPrice: adjusted,
		TaxAmount:         tier.TaxAmount,
		TotalPrice:        total,
		Adjustments:       adjustments,
		Currency:          tier.Currency,
		FloorApplied:      floorApplied,
	}, nil
}

// DemandAdjustment maps the booked share of a cabin to a percentage band
func DemandAdjustment(totalSeats, availableSeats int) decimal.Decimal {
	if totalSeats <= 0 {
		return decimal.Zero
	}
	booked := decimal.NewFromInt(int64(totalSeats - availableSeats)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(totalSeats)))

	switch {
	case booked.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return decimal.NewFromInt(25)
	case booked.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return decimal.NewFromInt(15)
	case booked.GreaterThanOrEqual(decimal.NewFromInt(70)):
		return decimal.NewFromInt(10)
	case booked.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return decimal.NewFromInt(5)
	case booked.LessThan(decimal.NewFromInt(20)):
		return decimal.NewFromInt(-10)
	}
	return decimal.Zero
}

// adjust computes a delta against the original base; deltas are summed, never compounded
func adjust(name, kind string, base, pct decimal.Decimal) Adjustment {
	return Adjustment{
		Name:       name,
		Type:       kind,
		Percentage: pct,
		Amount:     base.Mul(pct).Div(hundred).Round(2),
	}
}

func dynamicRank(r models.DynamicPricingRule) (int, time.Time, uuid.UUID) {
	return r.Priority, r.CreatedAt, r.ID
}

func seasonFor(seasons []models.SeasonalPricing, target scope.Target, departure time.Time) *models.SeasonalPricing {
	matching := scope.Filter(seasons, target, func(s models.SeasonalPricing) models.Scope { return s.Scope })
	scope.Sort(matching, func(s models.SeasonalPricing) (int, time.Time, uuid.UUID) {
		return s.Priority, s.CreatedAt, s.ID
	})
	for i := range matching {
		if matching[i].IsActive && matching[i].Contains(departure) {
			return &matching[i]
		}
	}
	return nil
}

// routeRule picks the highest-priority route-specific rule naming both endpoints.
// rules must already be scope-filtered and sorted.
func routeRule(rules []models.DynamicPricingRule) *models.DynamicPricingRule {
	for i := range rules {
		r := &rules[i]
		if r.IsActive && r.RuleType == models.RuleRouteSpecific &&
			r.Scope.DepartureAirport != nil && r.Scope.ArrivalAirport != nil {
			return r
		}
	}
	return nil
}
