package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Flight represents a scheduled flight
type Flight struct {
	ID                uuid.UUID `json:"id"`
	AirlineID         uuid.UUID `json:"airlineId"`
	FlightNumber      string    `json:"flightNumber"`
	DepartureAirport  string    `json:"departureAirport"`
	ArrivalAirport    string    `json:"arrivalAirport"`
	DepartureTime     time.Time `json:"departureTime"`
	ArrivalTime       time.Time `json:"arrivalTime"`
	DepartureTimezone string    `json:"departureTimezone,omitempty"`
}

// LocalDeparture returns the departure time in the departure airport's zone.
// Unknown or empty zones fall back to UTC.
func (f *Flight) LocalDeparture() time.Time {
	if f.DepartureTimezone == "" {
		return f.DepartureTime.UTC()
	}
	loc, err := time.LoadLocation(f.DepartureTimezone)
	if err != nil {
		return f.DepartureTime.UTC()
	}
	return f.DepartureTime.In(loc)
}

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// Valid reports whether c is one of the known cabin classes
func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// CabinPriceTier holds fare and capacity for one cabin on one flight
type CabinPriceTier struct {
	FlightID             uuid.UUID       `json:"flightId"`
	CabinClass           CabinClass      `json:"cabinClass"`
	BasePrice            decimal.Decimal `json:"basePrice"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	TaxAmount            decimal.Decimal `json:"taxAmount"`
	Currency             string          `json:"currency"`
	TotalSeats           int             `json:"totalSeats"`
	AvailableSeats       int             `json:"availableSeats"`
	IsActive             bool            `json:"isActive"`
	CancellationPolicyID *uuid.UUID      `json:"cancellationPolicyId,omitempty"`
}

// BookedSeats is the number of seats sold, including any overbooked seats
func (t *CabinPriceTier) BookedSeats() int {
	return t.TotalSeats - t.AvailableSeats
}

// SeatStatus is the lifecycle state of a seat on a flight
type SeatStatus string

const (
	SeatStatusAvailable   SeatStatus = "available"
	SeatStatusReserved    SeatStatus = "reserved"
	SeatStatusBooked      SeatStatus = "booked"
	SeatStatusBlocked     SeatStatus = "blocked"
	SeatStatusUnavailable SeatStatus = "unavailable"
)

// FlightSeat is the per-seat-per-flight lock row
type FlightSeat struct {
	ID             uuid.UUID  `json:"id"`
	FlightID       uuid.UUID  `json:"flightId"`
	SeatNumber     string     `json:"seatNumber"`
	CabinClass     CabinClass `json:"cabinClass"`
	Status         SeatStatus `json:"status"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	LockedByUserID *uuid.UUID `json:"lockedByUserId,omitempty"`
	BookingID      *uuid.UUID `json:"bookingId,omitempty"`
	Version        int64      `json:"version"`
}

// LockExpired reports whether a reserved seat's hold has lapsed at now
func (s *FlightSeat) LockExpired(now time.Time) bool {
	return s.LockedUntil == nil || s.LockedUntil.Before(now)
}

// CanBeReserved is true for available seats and for reserved seats whose lock has expired.
// Expiry is checked lazily here instead of by a background sweeper.
func (s *FlightSeat) CanBeReserved(now time.Time) bool {
	switch s.Status {
	case SeatStatusAvailable:
		return true
	case SeatStatusReserved:
		return s.LockExpired(now)
	}
	return false
}

// EffectiveStatus is the status a reader should act on at now
func (s *FlightSeat) EffectiveStatus(now time.Time) SeatStatus {
	if s.Status == SeatStatusReserved && s.LockExpired(now) {
		return SeatStatusAvailable
	}
	return s.Status
}

// HeldBy reports whether userID holds an unexpired reservation on the seat
func (s *FlightSeat) HeldBy(userID uuid.UUID, now time.Time) bool {
	return s.Status == SeatStatusReserved &&
		s.LockedByUserID != nil && *s.LockedByUserID == userID &&
		!s.LockExpired(now)
}
