package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking represents a flight reservation identified by its PNR
type Booking struct {
	ID                   uuid.UUID        `json:"id"`
	PNR                  string           `json:"pnr"`
	CustomerID           uuid.UUID        `json:"customerId"`
	CustomerEmail        string           `json:"customerEmail,omitempty"`
	Status               BookingStatus    `json:"status"`
	Segments             []BookingSegment `json:"segments"`
	PassengerCount       int              `json:"passengerCount"`
	Currency             string           `json:"currency"`
	TotalAmount          decimal.Decimal  `json:"totalAmount"`
	DiscountAmount       decimal.Decimal  `json:"discountAmount"`
	PaidAmount           decimal.Decimal  `json:"paidAmount"`
	PromotionID          *uuid.UUID       `json:"promotionId,omitempty"`
	CancellationPolicyID *uuid.UUID       `json:"cancellationPolicyId,omitempty"`
	RefundAmount         *decimal.Decimal `json:"refundAmount,omitempty"`
	CancellationFee      *decimal.Decimal `json:"cancellationFee,omitempty"`
	FailureReason        string           `json:"failureReason,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	CancelledAt          *time.Time       `json:"cancelledAt,omitempty"`
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusFailed    BookingStatus = "failed"
)

// BookingSegment is one flight of an itinerary
type BookingSegment struct {
	FlightID   uuid.UUID       `json:"flightId"`
	CabinClass CabinClass      `json:"cabinClass"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	SeatIDs    []uuid.UUID     `json:"seatIds,omitempty"`
	// Departure is nil when the segment's flight no longer exists
	Departure *time.Time `json:"departure,omitempty"`
}

// EarliestDeparture returns the first scheduled departure among segments that still have a flight
func (b *Booking) EarliestDeparture() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, s := range b.Segments {
		if s.Departure == nil {
			continue
		}
		if !found || s.Departure.Before(earliest) {
			earliest = *s.Departure
			found = true
		}
	}
	return earliest, found
}

// CreateBookingRequest represents a request to create a new booking
type CreateBookingRequest struct {
	CustomerID     uuid.UUID        `json:"customerId" validate:"required"`
	CustomerEmail  string           `json:"customerEmail" validate:"required,email"`
	PassengerCount int              `json:"passengerCount" validate:"required,min=1,max=9"`
	PromotionCode  string           `json:"promotionCode,omitempty" validate:"omitempty,alphanum,max=32"`
	Segments       []SegmentRequest `json:"segments" validate:"required,min=1,max=4,dive"`
}

// SegmentRequest selects a cabin and optionally explicit seats on one flight
type SegmentRequest struct {
	FlightID   uuid.UUID   `json:"flightId" validate:"required"`
	CabinClass CabinClass  `json:"cabinClass" validate:"required,oneof=economy premium_economy business first"`
	SeatIDs    []uuid.UUID `json:"seatIds,omitempty"`
}
