// Package store declares the data-access surface the booking engines run against.
// Implementations live in the memory and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrVersionConflict      = errors.New("row was modified concurrently")
	ErrCapacityExceeded     = errors.New("cabin capacity exceeded")
	ErrUsageLimitReached    = errors.New("promotion usage limit reached")
	ErrCustomerLimitReached = errors.New("promotion customer usage limit reached")
	ErrPromotionNotActive   = errors.New("promotion is not active")
)

// RuleReader is the read-only query surface over flights and reference rules.
// List methods return active rows whose airline is airlineID or unset; callers apply
// the remaining scope filters.
type RuleReader interface {
	GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	GetCabinPriceTier(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.CabinPriceTier, error)
	ListDynamicPricingRules(ctx context.Context, airlineID uuid.UUID) ([]models.DynamicPricingRule, error)
	ListSeasonalPricing(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.SeasonalPricing, error)
	ListBookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.BookingPolicy, error)
	ListOverbookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.OverbookingPolicy, error)
	ListBlackoutDates(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.BlackoutDate, error)
	GetCancellationPolicy(ctx context.Context, id uuid.UUID) (*models.CancellationPolicy, error)
}

// PromotionStore reads promotions and applies redemptions atomically
type PromotionStore interface {
	GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error)
	CountPromotionUsage(ctx context.Context, promotionID, customerID uuid.UUID) (int, error)
	CountCustomerBookings(ctx context.Context, customerID uuid.UUID) (int, error)
	// RedeemPromotion inserts the usage record, increments the usage count and flips the
	// status to exhausted when the cap is reached, all as one unit. It fails with
	// ErrUsageLimitReached or ErrCustomerLimitReached without side effects. Redeeming again
	// for the same booking changes nothing and returns the promotion.
	RedeemPromotion(ctx context.Context, usage models.PromotionUsage) (*models.Promotion, error)
}

// SeatStore persists seat lock rows with compare-and-set on Version
type SeatStore interface {
	GetSeat(ctx context.Context, id uuid.UUID) (*models.FlightSeat, error)
	ListFlightSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error)
	ListBookingSeats(ctx context.Context, bookingID uuid.UUID) ([]models.FlightSeat, error)
	// SwapSeat writes next only if the stored row still has next.Version-1.
	// It fails with ErrVersionConflict otherwise.
	SwapSeat(ctx context.Context, next models.FlightSeat) error
}

// InventoryStore moves the cabin availability counter. Each booking holds a cabin at most
// once, so repeating either call for the same booking has no further effect.
type InventoryStore interface {
	// ReserveCabinSeats records a hold of n seats for bookingID and decrements availableSeats
	// by n as long as the booked count stays within maxBookable. It fails with
	// ErrCapacityExceeded otherwise. An existing hold makes it a no-op.
	ReserveCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass, n, maxBookable int) error
	// ReleaseCabinSeats drops bookingID's hold and returns its seats, never above totalSeats.
	// Without a hold it changes nothing.
	ReleaseCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass) error
}

// BookingStore persists bookings
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateBooking(ctx context.Context, b *models.Booking) error
}

// Store is everything a deployment provides
type Store interface {
	RuleReader
	PromotionStore
	SeatStore
	InventoryStore
	BookingStore
	Close()
}
