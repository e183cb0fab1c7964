// Package promotion validates promotion codes, computes discounts and records redemptions.
package promotion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/lock"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reasons returned to the customer when a code is rejected
const (
	ReasonInvalidCode   = "Invalid promotion code"
	ReasonNotActive     = "Promotion is not active"
	ReasonNotYetValid   = "Promotion is not yet valid"
	ReasonExpired       = "Promotion has expired"
	ReasonUsageLimit    = "Promotion usage limit has been reached"
	ReasonCustomerLimit = "You have already used this promotion the maximum number of times"
	ReasonMinimumAmount = "Booking amount is below the minimum for this promotion"
	ReasonFirstTimeOnly = "Promotion is only available to first-time customers"
	ReasonTravelDay     = "Promotion is not valid on the travel date"
	ReasonRoute         = "Promotion is not valid for this route"
	ReasonAirline       = "Promotion is not valid for this airline"
)

// Store is the data the engine needs
type Store interface {
	GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	store.PromotionStore
}

// ValidateRequest describes the itinerary a code is checked against
type ValidateRequest struct {
	Code           string          `json:"code" validate:"required,max=32"`
	CustomerID     uuid.UUID       `json:"customerId" validate:"required"`
	BookingAmount  decimal.Decimal `json:"bookingAmount"`
	PassengerCount int             `json:"passengerCount" validate:"omitempty,min=1,max=9"`
	FlightIDs      []uuid.UUID     `json:"flightIds"`
}

// Validation is the outcome of Validate. Reason is set when IsValid is false.
type Validation struct {
	IsValid           bool             `json:"isValid"`
	PromotionID       *uuid.UUID       `json:"promotionId,omitempty"`
	Name              string           `json:"name,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	EstimatedDiscount *decimal.Decimal `json:"estimatedDiscount,omitempty"`
}

func rejected(reason string) *Validation {
	return &Validation{Reason: reason}
}

// Engine evaluates promotions against a store
type Engine struct {
	store  Store
	locker lock.Locker
	log    *zap.Logger
	now    func() time.Time
}

// NewEngine creates a promotion engine. locker serialises redemptions of one promotion across workers.
func NewEngine(s Store, locker lock.Locker, log *zap.Logger) *Engine {
	return &Engine{store: s, locker: locker, log: log, now: time.Now}
}

// Validate runs the eligibility checks in order and stops at the first failure.
// It never marks the promotion as used.
func (e *Engine) Validate(ctx context.Context, req ValidateRequest) (*Validation, error) {
	code := normalize(req.Code)
	if code == "" {
		return rejected(ReasonInvalidCode), nil
	}

	p, err := e.store.GetPromotionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return rejected(ReasonInvalidCode), nil
		}
		return nil, errs.Wrap(err, "failed to load promotion")
	}
	if !p.IsActive {
		return rejected(ReasonInvalidCode), nil
	}

	if p.Status != models.PromotionActive {
		if p.Status == models.PromotionExhausted {
			return rejected(ReasonUsageLimit), nil
		}
		return rejected(ReasonNotActive), nil
	}

	now := e.now()
	if now.Before(p.ValidFrom) {
		return rejected(ReasonNotYetValid), nil
	}
	if now.After(p.ValidTo) {
		return rejected(ReasonExpired), nil
	}

	if p.MaxTotalUses != nil && p.CurrentUsageCount >= *p.MaxTotalUses {
		return rejected(ReasonUsageLimit), nil
	}

	if p.MaxUsesPerCustomer != nil {
		used, err := e.store.CountPromotionUsage(ctx, p.ID, req.CustomerID)
		if err != nil {
			return nil, errs.Wrap(err, "failed to count promotion usage")
		}
		if used >= *p.MaxUsesPerCustomer {
			return rejected(ReasonCustomerLimit), nil
		}
	}

	if p.MinBookingAmount != nil && req.BookingAmount.LessThan(*p.MinBookingAmount) {
		return rejected(ReasonMinimumAmount), nil
	}

	if p.FirstTimeCustomersOnly {
		prior, err := e.store.CountCustomerBookings(ctx, req.CustomerID)
		if err != nil {
			return nil, errs.Wrap(err, "failed to count customer bookings")
		}
		if prior > 0 {
			return rejected(ReasonFirstTimeOnly), nil
		}
	}

	flights, err := e.loadFlights(ctx, req.FlightIDs)
	if err != nil {
		return nil, err
	}
	if reason := checkItinerary(p, flights); reason != "" {
		return rejected(reason), nil
	}

	pax := req.PassengerCount
	if pax < 1 {
		pax = 1
	}
	discount := Discount(p, req.BookingAmount, pax)
	id := p.ID

	return &Validation{
		IsValid:           true,
		PromotionID:       &id,
		Name:              p.Name,
		EstimatedDiscount: &discount,
	}, nil
}

// CalculateDiscount loads a promotion and applies Discount
func (e *Engine) CalculateDiscount(ctx context.Context, promotionID uuid.UUID, bookingAmount decimal.Decimal, passengerCount int) (decimal.Decimal, error) {
	p, err := e.store.GetPromotion(ctx, promotionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, errs.NotFound("Promotion not found")
		}
		return decimal.Zero, errs.Wrap(err, "failed to load promotion")
	}
	return Discount(p, bookingAmount, passengerCount), nil
}

// RecordUsage is the only path that consumes a promotion. The store applies the usage row,
// the count increment and the exhaustion flip as one unit; the lock keeps concurrent
// redemptions of the same promotion from racing across processes.
func (e *Engine) RecordUsage(ctx context.Context, promotionID, customerID, bookingID uuid.UUID, discountAmount decimal.Decimal) (*models.Promotion, error) {
	release, err := e.locker.Obtain(ctx, "promotion:"+promotionID.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.log.Warn("failed to release promotion lock", zap.String("promotion_id", promotionID.String()), zap.Error(err))
		}
	}()

	p, err := e.store.RedeemPromotion(ctx, models.PromotionUsage{
		ID:             uuid.New(),
		PromotionID:    promotionID,
		CustomerID:     customerID,
		BookingID:      bookingID,
		DiscountAmount: discountAmount,
		UsedAt:         e.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, errs.NotFound("Promotion not found")
		case errors.Is(err, store.ErrUsageLimitReached):
			return nil, errs.Conflict(ReasonUsageLimit)
		case errors.Is(err, store.ErrCustomerLimitReached):
			return nil, errs.Conflict(ReasonCustomerLimit)
		case errors.Is(err, store.ErrPromotionNotActive):
			return nil, errs.Conflict(ReasonNotActive)
		}
		return nil, errs.Wrap(err, "failed to record promotion usage")
	}

	e.log.Info("promotion redeemed",
		zap.String("promotion_id", promotionID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int("usage_count", p.CurrentUsageCount),
		zap.String("status", string(p.Status)),
	)

	return p, nil
}

// Discount applies the promotion's discount type to an amount, capped at maxDiscountAmount
// and at the amount itself
func Discount(p *models.Promotion, bookingAmount decimal.Decimal, passengerCount int) decimal.Decimal {
	var d decimal.Decimal
	switch p.DiscountType {
	case models.DiscountPercentage:
		d = bookingAmount.Mul(p.DiscountValue).Div(decimal.NewFromInt(100))
	case models.DiscountFixedAmount:
		d = p.DiscountValue
	case models.DiscountPerPassenger:
		d = p.DiscountValue.Mul(decimal.NewFromInt(int64(passengerCount)))
	default:
		return decimal.Zero
	}
	if p.MaxDiscountAmount != nil && d.GreaterThan(*p.MaxDiscountAmount) {
		d = *p.MaxDiscountAmount
	}
	if d.GreaterThan(bookingAmount) {
		d = bookingAmount
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (e *Engine) loadFlights(ctx context.Context, ids []uuid.UUID) ([]*models.Flight, error) {
	flights := make([]*models.Flight, 0, len(ids))
	for _, id := range ids {
		f, err := e.store.GetFlight(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, errs.NotFound("Flight %s not found", id)
			}
			return nil, errs.Wrap(err, "failed to load flight")
		}
		flights = append(flights, f)
	}
	return flights, nil
}
