// Package activities exposes the booking coordinator's steps as Temporal activities.
package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/booking"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/notify"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
)

// Activity names used by the workflows
const (
	ActivityAdmit                = "Admit"
	ActivityCreatePending        = "CreatePending"
	ActivityHoldInventory        = "HoldInventory"
	ActivityReleaseInventory     = "ReleaseInventory"
	ActivityAssignSeats          = "AssignSeats"
	ActivityUnassignSeats        = "UnassignSeats"
	ActivityRedeemPromotion      = "RedeemPromotion"
	ActivityConfirm              = "Confirm"
	ActivityFail                 = "Fail"
	ActivityPrepareCancellation  = "PrepareCancellation"
	ActivityCompleteCancellation = "CompleteCancellation"
	ActivityNotify               = "Notify"
)

// Coordinator is the part of booking.Coordinator the activities drive
type Coordinator interface {
	Admit(ctx context.Context, bookingID uuid.UUID, req models.CreateBookingRequest) (*booking.Admission, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	CreatePending(ctx context.Context, adm *booking.Admission) (*models.Booking, error)
	HoldInventory(ctx context.Context, bookingID uuid.UUID) error
	ReleaseInventory(ctx context.Context, bookingID uuid.UUID) error
	AssignSeats(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	UnassignSeats(ctx context.Context, bookingID uuid.UUID) error
	RedeemPromotion(ctx context.Context, bookingID uuid.UUID) (*models.Promotion, error)
	Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	Fail(ctx context.Context, bookingID uuid.UUID, reason string) error
	PrepareCancellation(ctx context.Context, bookingID uuid.UUID) (*booking.Cancellation, error)
	CompleteCancellation(ctx context.Context, bookingID uuid.UUID, res refund.Result) (*models.Booking, error)
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, b *models.Booking) error
	BookingCancelled(ctx context.Context, b *models.Booking) error
	PromotionExhausted(ctx context.Context, p *models.Promotion) error
}

// Activities holds the activity implementations
type Activities struct {
	coordinator Coordinator
	notifier    Notifier
}

func NewActivities(coordinator Coordinator, notifier Notifier) *Activities {
	return &Activities{coordinator: coordinator, notifier: notifier}
}

// Register adds every activity to the worker under its Activity* name
func (a *Activities) Register(r worker.ActivityRegistry) {
	r.RegisterActivityWithOptions(a.Admit, activity.RegisterOptions{Name: ActivityAdmit})
	r.RegisterActivityWithOptions(a.CreatePending, activity.RegisterOptions{Name: ActivityCreatePending})
	r.RegisterActivityWithOptions(a.HoldInventory, activity.RegisterOptions{Name: ActivityHoldInventory})
	r.RegisterActivityWithOptions(a.ReleaseInventory, activity.RegisterOptions{Name: ActivityReleaseInventory})
	r.RegisterActivityWithOptions(a.AssignSeats, activity.RegisterOptions{Name: ActivityAssignSeats})
	r.RegisterActivityWithOptions(a.UnassignSeats, activity.RegisterOptions{Name: ActivityUnassignSeats})
	r.RegisterActivityWithOptions(a.RedeemPromotion, activity.RegisterOptions{Name: ActivityRedeemPromotion})
	r.RegisterActivityWithOptions(a.Confirm, activity.RegisterOptions{Name: ActivityConfirm})
	r.RegisterActivityWithOptions(a.Fail, activity.RegisterOptions{Name: ActivityFail})
	r.RegisterActivityWithOptions(a.PrepareCancellation, activity.RegisterOptions{Name: ActivityPrepareCancellation})
	r.RegisterActivityWithOptions(a.CompleteCancellation, activity.RegisterOptions{Name: ActivityCompleteCancellation})
	r.RegisterActivityWithOptions(a.Notify, activity.RegisterOptions{Name: ActivityNotify})
}

// AdmitInput is the input for the Admit activity
type AdmitInput struct {
	BookingID uuid.UUID                   `json:"bookingId"`
	Request   models.CreateBookingRequest `json:"request"`
}

// BookingInput identifies the booking a step acts on
type BookingInput struct {
	BookingID uuid.UUID `json:"bookingId"`
}

type FailInput struct {
	BookingID uuid.UUID `json:"bookingId"`
	Reason    string    `json:"reason"`
}

type CompleteCancellationInput struct {
	BookingID uuid.UUID     `json:"bookingId"`
	Refund    refund.Result `json:"refund"`
}

// NotifyInput names the booking event to publish
type NotifyInput struct {
	BookingID uuid.UUID `json:"bookingId"`
	Topic     string    `json:"topic"`
}

type RedeemPromotionOutput struct {
	Redeemed  bool `json:"redeemed"`
	Exhausted bool `json:"exhausted"`
}

// Admit checks and prices the itinerary without writing anything
func (a *Activities) Admit(ctx context.Context, input AdmitInput) (*booking.Admission, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Admitting booking", "bookingId", input.BookingID)

	adm, err := a.coordinator.Admit(ctx, input.BookingID, input.Request)
	if err != nil {
		logger.Info("Booking rejected", "bookingId", input.BookingID, "reason", errs.Message(err))
		return nil, applicationError(err)
	}
	return adm, nil
}

func (a *Activities) CreatePending(ctx context.Context, adm booking.Admission) (*models.Booking, error) {
	b, err := a.coordinator.CreatePending(ctx, &adm)
	return b, applicationError(err)
}

func (a *Activities) HoldInventory(ctx context.Context, input BookingInput) error {
	return applicationError(a.coordinator.HoldInventory(ctx, input.BookingID))
}

func (a *Activities) ReleaseInventory(ctx context.Context, input BookingInput) error {
	return applicationError(a.coordinator.ReleaseInventory(ctx, input.BookingID))
}

func (a *Activities) AssignSeats(ctx context.Context, input BookingInput) (*models.Booking, error) {
	b, err := a.coordinator.AssignSeats(ctx, input.BookingID)
	return b, applicationError(err)
}

func (a *Activities) UnassignSeats(ctx context.Context, input BookingInput) error {
	return applicationError(a.coordinator.UnassignSeats(ctx, input.BookingID))
}

// RedeemPromotion records the promotion usage and announces the promotion's last use
func (a *Activities) RedeemPromotion(ctx context.Context, input BookingInput) (*RedeemPromotionOutput, error) {
	p, err := a.coordinator.RedeemPromotion(ctx, input.BookingID)
	if err != nil {
		return nil, applicationError(err)
	}
	if p == nil {
		return &RedeemPromotionOutput{}, nil
	}

	out := &RedeemPromotionOutput{Redeemed: true, Exhausted: p.Status == models.PromotionExhausted}
	if out.Exhausted {
		if err := a.notifier.PromotionExhausted(ctx, p); err != nil {
			activity.GetLogger(ctx).Warn("Failed to publish promotion exhausted", "promotionId", p.ID, "error", err)
		}
	}
	return out, nil
}

func (a *Activities) Confirm(ctx context.Context, input BookingInput) (*models.Booking, error) {
	b, err := a.coordinator.Confirm(ctx, input.BookingID)
	return b, applicationError(err)
}

func (a *Activities) Fail(ctx context.Context, input FailInput) error {
	return applicationError(a.coordinator.Fail(ctx, input.BookingID, input.Reason))
}

func (a *Activities) PrepareCancellation(ctx context.Context, input BookingInput) (*booking.Cancellation, error) {
	c, err := a.coordinator.PrepareCancellation(ctx, input.BookingID)
	return c, applicationError(err)
}

func (a *Activities) CompleteCancellation(ctx context.Context, input CompleteCancellationInput) (*models.Booking, error) {
	b, err := a.coordinator.CompleteCancellation(ctx, input.BookingID, input.Refund)
	return b, applicationError(err)
}

// Notify publishes a booking event. Workflows ignore its failures.
func (a *Activities) Notify(ctx context.Context, input NotifyInput) error {
	b, err := a.coordinator.Get(ctx, input.BookingID)
	if err != nil {
		return applicationError(err)
	}

	switch input.Topic {
	case notify.TopicBookingConfirmed:
		err = a.notifier.BookingConfirmed(ctx, b)
	case notify.TopicBookingCancelled:
		err = a.notifier.BookingCancelled(ctx, b)
	default:
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown booking topic %q", input.Topic), string(errs.KindInvalid), nil)
	}
	if err != nil {
		return temporal.NewApplicationErrorWithCause("failed to publish booking event", string(errs.KindUnavailable), err)
	}
	return nil
}

// applicationError carries the error kind as the Temporal error type and the violations as
// details. Only Conflict, Unavailable and unclassified errors are retried.
func applicationError(err error) error {
	if err == nil {
		return nil
	}

	kind := errs.KindInternal
	message := err.Error()
	var violations []string
	var e *errs.Error
	if errors.As(err, &e) {
		kind, message, violations = e.Kind, e.Message, e.Violations
	}

	if errs.IsRetryable(err) || kind == errs.KindInternal {
		return temporal.NewApplicationErrorWithCause(message, string(kind), err, violations)
	}
	return temporal.NewNonRetryableApplicationError(message, string(kind), err, violations)
}
