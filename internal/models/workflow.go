package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingWorkflowID is unique per booking, so a repeated submit cannot start a second workflow
func BookingWorkflowID(bookingID uuid.UUID) string {
	return "booking-" + bookingID.String()
}

func CancellationWorkflowID(bookingID uuid.UUID) string {
	return "cancel-" + bookingID.String()
}

// Queries for workflow state
const (
	QueryGetState = "get_state"
)

// Booking workflow steps, reported through QueryGetState
const (
	StepAdmit           = "admit"
	StepCreatePending   = "create_pending"
	StepHoldInventory   = "hold_inventory"
	StepAssignSeats     = "assign_seats"
	StepRedeemPromotion = "redeem_promotion"
	StepConfirm         = "confirm"
	StepCompensating    = "compensating"
	StepDone            = "done"
)

// BookingWorkflowInput represents input for the booking workflow
type BookingWorkflowInput struct {
	BookingID uuid.UUID            `json:"bookingId"`
	Request   CreateBookingRequest `json:"request"`
}

// BookingWorkflowState represents the current state of the booking workflow
type BookingWorkflowState struct {
	BookingID     uuid.UUID     `json:"bookingId"`
	Step          string        `json:"step"`
	Status        BookingStatus `json:"status"`
	FailureReason string        `json:"failureReason,omitempty"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// WorkflowFailure describes why a workflow could not complete. Kind is an errs.Kind value.
type WorkflowFailure struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// BookingWorkflowResult is the result of the booking workflow
type BookingWorkflowResult struct {
	BookingID      uuid.UUID        `json:"bookingId"`
	PNR            string           `json:"pnr,omitempty"`
	Status         BookingStatus    `json:"status"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	Failure        *WorkflowFailure `json:"failure,omitempty"`
}

type CancellationWorkflowInput struct {
	BookingID uuid.UUID `json:"bookingId"`
}

// CancellationWorkflowResult is the result of the cancellation workflow
type CancellationWorkflowResult struct {
	BookingID       uuid.UUID        `json:"bookingId"`
	Status          BookingStatus    `json:"status"`
	IsRefundable    bool             `json:"isRefundable"`
	RefundAmount    decimal.Decimal  `json:"refundAmount"`
	CancellationFee decimal.Decimal  `json:"cancellationFee"`
	Reason          string           `json:"reason,omitempty"`
	Failure         *WorkflowFailure `json:"failure,omitempty"`
}
