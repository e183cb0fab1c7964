// Package refund computes how much of a paid fare is returned on cancellation.
package refund

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ReasonNothingPaid   = "Nothing was paid for this booking"
	ReasonNonRefundable = "This fare is non-refundable"
	ReasonTooLate       = "Cancellation is too close to departure for a refund"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of a refund calculation
type Result struct {
	IsRefundable    bool            `json:"isRefundable"`
	RefundAmount    decimal.Decimal `json:"refundAmount"`
	CancellationFee decimal.Decimal `json:"cancellationFee"`
	// HoursBeforeDeparture is nil when no segment has a scheduled departure
	HoursBeforeDeparture *float64   `json:"hoursBeforeDeparture,omitempty"`
	AppliedRuleID        *uuid.UUID `json:"appliedRuleId,omitempty"`
	Reason               string     `json:"reason,omitempty"`
}

// Calculate is a pure function of the booking's paid amount, the policy tiers and the
// segment departures, evaluated at now
func Calculate(b *models.Booking, policy *models.CancellationPolicy, now time.Time) Result {
	paid := b.PaidAmount
	if !paid.IsPositive() {
		return Result{RefundAmount: decimal.Zero, CancellationFee: decimal.Zero, Reason: ReasonNothingPaid}
	}

	if policy == nil || !policy.IsRefundable {
		return Result{RefundAmount: decimal.Zero, CancellationFee: paid, Reason: ReasonNonRefundable}
	}

	res := Result{}
	var rule *models.CancellationPolicyRule
	if dep, ok := b.EarliestDeparture(); ok {
		hours := dep.Sub(now).Hours()
		res.HoursBeforeDeparture = &hours
		rule = tierFor(policy.Rules, func(min int) bool { return float64(min) <= hours })
	} else {
		// no known departure counts as infinitely far out
		rule = tierFor(policy.Rules, func(int) bool { return true })
	}

	if rule == nil {
		res.RefundAmount = decimal.Zero
		res.CancellationFee = paid
		res.Reason = ReasonTooLate
		return res
	}

	id := rule.ID
	res.AppliedRuleID = &id
	refund := paid.Mul(rule.RefundPercentage).Div(hundred).Sub(rule.FlatFee).Round(2)
	if refund.IsNegative() {
		refund = decimal.Zero
	}
	if refund.GreaterThan(paid) {
		refund = paid
	}
	res.RefundAmount = refund
	res.CancellationFee = paid.Sub(refund)
	res.IsRefundable = refund.IsPositive()
	if !res.IsRefundable {
		res.Reason = ReasonTooLate
	}
	return res
}

// tierFor picks the qualifying rule with the largest minimum notice. Equal minimums resolve by ID.
func tierFor(rules []models.CancellationPolicyRule, qualifies func(minHours int) bool) *models.CancellationPolicyRule {
	sorted := append([]models.CancellationPolicyRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinHoursBeforeDeparture != sorted[j].MinHoursBeforeDeparture {
			return sorted[i].MinHoursBeforeDeparture > sorted[j].MinHoursBeforeDeparture
		}
		return strings.Compare(sorted[i].ID.String(), sorted[j].ID.String()) < 0
	})
	for i := range sorted {
		if qualifies(sorted[i].MinHoursBeforeDeparture) {
			return &sorted[i]
		}
	}
	return nil
}

// Reader is the data the service needs
type Reader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetCancellationPolicy(ctx context.Context, id uuid.UUID) (*models.CancellationPolicy, error)
}

// Service loads a booking and its policy and runs Calculate
type Service struct {
	reader Reader
	log    *zap.Logger
	now    func() time.Time
}

func NewService(reader Reader, log *zap.Logger) *Service {
	return &Service{reader: reader, log: log, now: time.Now}
}

// Quote computes the refund a booking would receive if cancelled now
func (s *Service) Quote(ctx context.Context, bookingID uuid.UUID) (*models.Booking, *Result, error) {
	b, err := s.reader.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errs.NotFound("Booking not found")
		}
		return nil, nil, errs.Wrap(err, "failed to load booking")
	}
	if b.Status != models.BookingStatusConfirmed && b.Status != models.BookingStatusPending {
		return nil, nil, errs.Conflict("Booking is %s", b.Status)
	}

	policy, err := s.policyFor(ctx, b)
	if err != nil {
		return nil, nil, err
	}

	res := Calculate(b, policy, s.now())
	return b, &res, nil
}

func (s *Service) policyFor(ctx context.Context, b *models.Booking) (*models.CancellationPolicy, error) {
	if b.CancellationPolicyID == nil {
		return nil, nil
	}
	p, err := s.reader.GetCancellationPolicy(ctx, *b.CancellationPolicyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("booking references a missing cancellation policy",
				zap.String("booking_id", b.ID.String()),
				zap.String("policy_id", b.CancellationPolicyID.String()),
			)
			return nil, nil
		}
		return nil, errs.Wrap(err, "failed to load cancellation policy")
	}
	return p, nil
}
