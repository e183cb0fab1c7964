package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReserveSeatRequest represents a request to hold a seat
type ReserveSeatRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	// DurationMinutes falls back to the configured hold length when zero
	DurationMinutes int `json:"durationMinutes,omitempty" validate:"omitempty,min=1,max=60"`
}

// ReleaseSeatRequest represents a request to drop a seat hold
type ReleaseSeatRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// PriceQuoteRequest represents a request to price a cabin on one flight
type PriceQuoteRequest struct {
	FlightID       uuid.UUID  `json:"flightId" validate:"required"`
	CabinClass     CabinClass `json:"cabinClass" validate:"required,oneof=economy premium_economy business first"`
	PassengerCount int        `json:"passengerCount" validate:"required,min=1,max=9"`
	// BookingDate defaults to now
	BookingDate *time.Time `json:"bookingDate,omitempty"`
}

type AvailabilityRequest struct {
	FlightID       uuid.UUID  `json:"flightId" validate:"required"`
	CabinClass     CabinClass `json:"cabinClass" validate:"required,oneof=economy premium_economy business first"`
	RequestedSeats int        `json:"requestedSeats" validate:"required,min=1"`
}

type PolicyValidationRequest struct {
	FlightID       uuid.UUID  `json:"flightId" validate:"required"`
	CabinClass     CabinClass `json:"cabinClass" validate:"required,oneof=economy premium_economy business first"`
	PassengerCount int        `json:"passengerCount" validate:"required,min=1"`
	BookingDate    *time.Time `json:"bookingDate,omitempty"`
}

type BlackoutCheckRequest struct {
	FlightID        uuid.UUID  `json:"flightId" validate:"required"`
	CabinClass      CabinClass `json:"cabinClass,omitempty" validate:"omitempty,oneof=economy premium_economy business first"`
	TravelDate      time.Time  `json:"travelDate" validate:"required"`
	CheckPromotions bool       `json:"checkPromotions"`
}

// DiscountRequest asks what a promotion takes off an amount
type DiscountRequest struct {
	PromotionID    uuid.UUID       `json:"promotionId" validate:"required"`
	BookingAmount  decimal.Decimal `json:"bookingAmount"`
	PassengerCount int             `json:"passengerCount" validate:"omitempty,min=1,max=9"`
}

type DiscountResponse struct {
	PromotionID    uuid.UUID       `json:"promotionId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error      string   `json:"error"`
	Kind       string   `json:"kind,omitempty"`
	Violations []string `json:"violations,omitempty"`
}
