// Package availability decides whether a cabin can take more passengers, whether a booking
// breaks any booking policy, and whether a travel date is blacked out.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/scope"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reader is the data the engine needs
type Reader interface {
	GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	GetCabinPriceTier(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.CabinPriceTier, error)
	ListBookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.BookingPolicy, error)
	ListOverbookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.OverbookingPolicy, error)
	ListBlackoutDates(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.BlackoutDate, error)
}

// Result is the outcome of CheckAvailability
type Result struct {
	IsAvailable          bool   `json:"isAvailable"`
	AvailableSeats       int    `json:"availableSeats"`
	MaxBookableSeats     int    `json:"maxBookableSeats"`
	OverbookingAllowance int    `json:"overbookingAllowance"`
	Reason               string `json:"reason,omitempty"`
}

// Violation is one booking policy that rejected the request
type Violation struct {
	PolicyID uuid.UUID `json:"policyId"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
}

// PolicyResult lists every violated policy, highest priority first
type PolicyResult struct {
	IsValid    bool        `json:"isValid"`
	Violations []Violation `json:"violations"`
}

// Messages returns the user-facing text of each violation
func (r *PolicyResult) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

// BlackoutResult describes the blackout window covering a travel date, if any
type BlackoutResult struct {
	IsBlackout       bool       `json:"isBlackout"`
	BlocksBookings   bool       `json:"blocksBookings"`
	BlocksPromotions bool       `json:"blocksPromotions"`
	BlackoutID       *uuid.UUID `json:"blackoutId,omitempty"`
	Name             string     `json:"name,omitempty"`
	Description      string     `json:"description,omitempty"`
}

// Engine answers capacity, policy and blackout questions. It is read-only.
type Engine struct {
	reader Reader
	log    *zap.Logger
}

// NewEngine creates an availability engine
func NewEngine(reader Reader, log *zap.Logger) *Engine {
	return &Engine{reader: reader, log: log}
}

// CheckAvailability reports whether requestedSeats more seats can be sold in cabin,
// counting the overbooking allowance of the highest-priority matching policy
func (e *Engine) CheckAvailability(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass, requestedSeats int) (*Result, error) {
	if requestedSeats < 1 {
		return nil, errs.Invalid("Requested seats must be at least 1")
	}

	flight, tier, err := e.loadCabin(ctx, flightID, cabin)
	if err != nil {
		return nil, err
	}

	policies, err := e.reader.ListOverbookingPolicies(ctx, flight.AirlineID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load overbooking policies")
	}

	allowance := OverbookingAllowance(tier.TotalSeats, overbookingPolicyFor(policies, scope.For(flight, cabin)))
	maxBookable := tier.TotalSeats + allowance
	available := maxBookable - tier.BookedSeats()

	result := &Result{
		IsAvailable:          available >= requestedSeats,
		AvailableSeats:       available,
		MaxBookableSeats:     maxBookable,
		OverbookingAllowance: allowance,
	}

	switch {
	case !result.IsAvailable && available <= 0:
		result.Reason = fmt.Sprintf("No seats available in %s", cabin)
	case !result.IsAvailable:
		result.Reason = fmt.Sprintf("Only %d seats available in %s", available, cabin)
	}

	if !result.IsAvailable {
		e.log.Debug("availability rejected",
			zap.String("flight_id", flightID.String()),
			zap.String("cabin", string(cabin)),
			zap.Int("requested", requestedSeats),
			zap.Int("available", available),
		)
	}

	return result, nil
}

// MaxBookableSeats is the cabin's total plus overbooking allowance
func (e *Engine) MaxBookableSeats(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (int, error) {
	res, err := e.CheckAvailability(ctx, flightID, cabin, 1)
	if err != nil {
		return 0, err
	}
	return res.MaxBookableSeats, nil
}

// OverbookingAllowance is min(ceil(total × pct / 100), cap). A nil policy allows nothing.
func OverbookingAllowance(totalSeats int, p *models.OverbookingPolicy) int {
	if p == nil || totalSeats <= 0 || !p.MaxOverbookingPercentage.IsPositive() {
		return 0
	}
	allowance := int(p.MaxOverbookingPercentage.
		Mul(decimalFromInt(totalSeats)).
		Div(hundred).
		Ceil().
		IntPart())
	if p.MaxOverbookedSeats != nil && *p.MaxOverbookedSeats < allowance {
		allowance = *p.MaxOverbookedSeats
	}
	if allowance < 0 {
		return 0
	}
	return allowance
}

func overbookingPolicyFor(policies []models.OverbookingPolicy, target scope.Target) *models.OverbookingPolicy {
	matching := scope.Filter(policies, target, func(p models.OverbookingPolicy) models.Scope { return p.Scope })
	scope.Sort(matching, func(p models.OverbookingPolicy) (int, time.Time, uuid.UUID) {
		return p.Priority, p.CreatedAt, p.ID
	})
	for i := range matching {
		if matching[i].IsActive {
			return &matching[i]
		}
	}
	return nil
}

// ValidatePolicies evaluates every matching booking policy and returns all violations
func (e *Engine) ValidatePolicies(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass, bookingDate time.Time, passengerCount int) (*PolicyResult, error) {
	flight, err := e.loadFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	policies, err := e.reader.ListBookingPolicies(ctx, flight.AirlineID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load booking policies")
	}

	matching := scope.Filter(policies, scope.For(flight, cabin), func(p models.BookingPolicy) models.Scope { return p.Scope })
	scope.Sort(matching, func(p models.BookingPolicy) (int, time.Time, uuid.UUID) {
		return p.Priority, p.CreatedAt, p.ID
	})

	in := policyInput{
		hoursBeforeDeparture: flight.DepartureTime.Sub(bookingDate).Hours(),
		passengerCount:       passengerCount,
	}

	result := &PolicyResult{IsValid: true, Violations: make([]Violation, 0)}
	for i := range matching {
		p := &matching[i]
		if !p.IsActive {
			continue
		}
		msg, violated := evaluate(p, in)
		if !violated {
			continue
		}
		if p.ErrorMessage != "" {
			msg = p.ErrorMessage
		}
		result.Violations = append(result.Violations, Violation{
			PolicyID: p.ID,
			Code:     p.Code,
			Name:     p.Name,
			Message:  msg,
		})
	}
	result.IsValid = len(result.Violations) == 0

	return result, nil
}

// CheckBlackout finds the blackout window covering travelDate for the flight's route and cabin.
// An empty cabin only sees windows without a cabin filter. Windows that only block promotions
// are considered when checkPromotions is set. Overlapping windows resolve to the earliest created.
func (e *Engine) CheckBlackout(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass, travelDate time.Time, checkPromotions bool) (*BlackoutResult, error) {
	flight, err := e.loadFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	windows, err := e.reader.ListBlackoutDates(ctx, flight.AirlineID, travelDate)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load blackout dates")
	}

	matching := scope.Filter(windows, scope.For(flight, cabin), func(b models.BlackoutDate) models.Scope { return b.Scope })
	scope.Sort(matching, func(b models.BlackoutDate) (int, time.Time, uuid.UUID) {
		return 0, b.CreatedAt, b.ID
	})

	for i := range matching {
		b := &matching[i]
		if !b.IsActive || !b.Contains(travelDate) {
			continue
		}
		if !b.BlocksBookings && !(checkPromotions && b.BlocksPromotions) {
			continue
		}
		id := b.ID
		return &BlackoutResult{
			IsBlackout:       true,
			BlocksBookings:   b.BlocksBookings,
			BlocksPromotions: b.BlocksPromotions,
			BlackoutID:       &id,
			Name:             b.Name,
			Description:      b.Description,
		}, nil
	}

	return &BlackoutResult{}, nil
}

func (e *Engine) loadFlight(ctx context.Context, flightID uuid.UUID) (*models.Flight, error) {
	flight, err := e.reader.GetFlight(ctx, flightID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("Flight not found")
		}
		return nil, errs.Wrap(err, "failed to load flight")
	}
	return flight, nil
}

func (e *Engine) loadCabin(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.Flight, *models.CabinPriceTier, error) {
	flight, err := e.loadFlight(ctx, flightID)
	if err != nil {
		return nil, nil, err
	}
	tier, err := e.reader.GetCabinPriceTier(ctx, flightID, cabin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errs.NotFound("Cabin %s not found on flight", cabin)
		}
		return nil, nil, errs.Wrap(err, "failed to load cabin")
	}
	if !tier.IsActive {
		return nil, nil, errs.NotFound("Cabin %s is not open for sale", cabin)
	}
	return flight, tier, nil
}
