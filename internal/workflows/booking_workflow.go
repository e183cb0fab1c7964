package workflows

import (
	"errors"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/activities"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/booking"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/notify"
	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// ActivityTimeout bounds a single attempt of a booking step
	ActivityTimeout = 30 * time.Second
	// MaxActivityAttempts is how often a retryable step runs before the booking fails
	MaxActivityAttempts = 3
	// NotifyTimeout bounds the single attempt at publishing a booking event
	NotifyTimeout = 10 * time.Second
)

func stepOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: ActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    MaxActivityAttempts,
		},
	}
}

func notifyOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: NotifyTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1, // events are best effort
		},
	}
}

// BookingWorkflow admits the itinerary, writes the pending booking, then holds inventory,
// assigns seats, redeems the promotion and confirms. A failed step undoes the completed ones
// in reverse and marks the booking failed.
func BookingWorkflow(ctx workflow.Context, input models.BookingWorkflowInput) (*models.BookingWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Booking workflow started", "bookingId", input.BookingID)

	state := models.BookingWorkflowState{
		BookingID:   input.BookingID,
		Step:        models.StepAdmit,
		Status:      models.BookingStatusPending,
		LastUpdated: workflow.Now(ctx),
	}
	err := workflow.SetQueryHandler(ctx, models.QueryGetState, func() (models.BookingWorkflowState, error) {
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	enter := func(step string) {
		state.Step = step
		state.LastUpdated = workflow.Now(ctx)
	}

	ctx = workflow.WithActivityOptions(ctx, stepOptions())
	ref := activities.BookingInput{BookingID: input.BookingID}
	result := &models.BookingWorkflowResult{BookingID: input.BookingID, Status: models.BookingStatusPending}

	// Nothing is written before admission, so a rejection needs no compensation
	var adm booking.Admission
	err = workflow.ExecuteActivity(ctx, activities.ActivityAdmit, activities.AdmitInput{
		BookingID: input.BookingID,
		Request:   input.Request,
	}).Get(ctx, &adm)
	if err != nil {
		result.Status = models.BookingStatusFailed
		result.Failure = failureOf(err)
		state.Status, state.FailureReason = result.Status, result.Failure.Message
		enter(models.StepDone)
		logger.Info("Booking rejected", "bookingId", input.BookingID, "reason", result.Failure.Message)
		return result, nil
	}
	result.TotalAmount = adm.TotalAmount
	result.DiscountAmount = adm.DiscountAmount

	var compensations []string
	fail := func(cause error) (*models.BookingWorkflowResult, error) {
		enter(models.StepCompensating)
		result.Status = models.BookingStatusFailed
		result.Failure = failureOf(cause)
		state.Status, state.FailureReason = result.Status, result.Failure.Message
		logger.Warn("Booking step failed, compensating", "bookingId", input.BookingID, "error", cause)

		// compensations must run even when the workflow itself was cancelled
		cctx, _ := workflow.NewDisconnectedContext(ctx)
		for i := len(compensations) - 1; i >= 0; i-- {
			if err := workflow.ExecuteActivity(cctx, compensations[i], ref).Get(cctx, nil); err != nil {
				logger.Error("Compensation failed", "activity", compensations[i], "error", err)
			}
		}
		err := workflow.ExecuteActivity(cctx, activities.ActivityFail, activities.FailInput{
			BookingID: input.BookingID,
			Reason:    result.Failure.Message,
		}).Get(cctx, nil)
		if err != nil {
			logger.Error("Failed to mark booking failed", "bookingId", input.BookingID, "error", err)
		}
		enter(models.StepDone)
		return result, nil
	}

	enter(models.StepCreatePending)
	var pending models.Booking
	if err := workflow.ExecuteActivity(ctx, activities.ActivityCreatePending, adm).Get(ctx, &pending); err != nil {
		return fail(err)
	}
	result.PNR = pending.PNR

	// HoldInventory releases its own partial holds, so it is undone only once it succeeded
	enter(models.StepHoldInventory)
	if err := workflow.ExecuteActivity(ctx, activities.ActivityHoldInventory, ref).Get(ctx, nil); err != nil {
		return fail(err)
	}
	compensations = append(compensations, activities.ActivityReleaseInventory)

	// seats are unassigned by booking, which is safe even if nothing was assigned
	enter(models.StepAssignSeats)
	compensations = append(compensations, activities.ActivityUnassignSeats)
	if err := workflow.ExecuteActivity(ctx, activities.ActivityAssignSeats, ref).Get(ctx, nil); err != nil {
		return fail(err)
	}

	enter(models.StepRedeemPromotion)
	var redeemed activities.RedeemPromotionOutput
	if err := workflow.ExecuteActivity(ctx, activities.ActivityRedeemPromotion, ref).Get(ctx, &redeemed); err != nil {
		return fail(err)
	}

	enter(models.StepConfirm)
	var confirmed models.Booking
	if err := workflow.ExecuteActivity(ctx, activities.ActivityConfirm, ref).Get(ctx, &confirmed); err != nil {
		return fail(err)
	}

	result.Status = models.BookingStatusConfirmed
	state.Status = result.Status
	enter(models.StepDone)
	logger.Info("Booking confirmed", "bookingId", input.BookingID, "pnr", confirmed.PNR)

	publish(ctx, input.BookingID, notify.TopicBookingConfirmed)
	return result, nil
}

// CancellationWorkflow quotes the refund, returns seats and inventory to sale, then records
// the cancellation with the quoted refund
func CancellationWorkflow(ctx workflow.Context, input models.CancellationWorkflowInput) (*models.CancellationWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Cancellation workflow started", "bookingId", input.BookingID)

	ctx = workflow.WithActivityOptions(ctx, stepOptions())
	ref := activities.BookingInput{BookingID: input.BookingID}
	result := &models.CancellationWorkflowResult{BookingID: input.BookingID}

	var quote booking.Cancellation
	if err := workflow.ExecuteActivity(ctx, activities.ActivityPrepareCancellation, ref).Get(ctx, &quote); err != nil {
		result.Failure = failureOf(err)
		logger.Info("Cancellation rejected", "bookingId", input.BookingID, "reason", result.Failure.Message)
		return result, nil
	}
	if quote.Booking != nil {
		result.Status = quote.Booking.Status
	}

	for _, step := range []string{activities.ActivityUnassignSeats, activities.ActivityReleaseInventory} {
		if err := workflow.ExecuteActivity(ctx, step, ref).Get(ctx, nil); err != nil {
			result.Failure = failureOf(err)
			logger.Error("Cancellation step failed", "activity", step, "error", err)
			return result, nil
		}
	}

	var cancelled models.Booking
	err := workflow.ExecuteActivity(ctx, activities.ActivityCompleteCancellation, activities.CompleteCancellationInput{
		BookingID: input.BookingID,
		Refund:    quote.Refund,
	}).Get(ctx, &cancelled)
	if err != nil {
		result.Failure = failureOf(err)
		logger.Error("Failed to record cancellation", "bookingId", input.BookingID, "error", err)
		return result, nil
	}

	result.Status = cancelled.Status
	result.IsRefundable = quote.Refund.IsRefundable
	result.RefundAmount = quote.Refund.RefundAmount
	result.CancellationFee = quote.Refund.CancellationFee
	result.Reason = quote.Refund.Reason
	logger.Info("Booking cancelled", "bookingId", input.BookingID, "refund", result.RefundAmount.String())

	publish(ctx, input.BookingID, notify.TopicBookingCancelled)
	return result, nil
}

// publish fires a booking event and only logs when it cannot be delivered
func publish(ctx workflow.Context, bookingID uuid.UUID, topic string) {
	nctx := workflow.WithActivityOptions(ctx, notifyOptions())
	err := workflow.ExecuteActivity(nctx, activities.ActivityNotify, activities.NotifyInput{
		BookingID: bookingID,
		Topic:     topic,
	}).Get(nctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish booking event", "topic", topic, "bookingId", bookingID, "error", err)
	}
}

// failureOf turns an activity failure back into the error kind, message and violations
// the activity reported
func failureOf(err error) *models.WorkflowFailure {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		f := &models.WorkflowFailure{Kind: appErr.Type(), Message: appErr.Message()}
		if appErr.HasDetails() {
			var violations []string
			if appErr.Details(&violations) == nil {
				f.Violations = violations
			}
		}
		return f
	}
	if temporal.IsCanceledError(err) {
		return &models.WorkflowFailure{Kind: string(errs.KindUnavailable), Message: "Booking was cancelled before it completed"}
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &models.WorkflowFailure{Kind: string(errs.KindUnavailable), Message: "Booking step timed out"}
	}
	return &models.WorkflowFailure{Kind: string(errs.KindInternal), Message: err.Error()}
}
