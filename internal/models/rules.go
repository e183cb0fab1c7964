package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scope narrows a rule to an airline, route or cabin. Nil fields match anything.
type Scope struct {
	AirlineID        *uuid.UUID  `json:"airlineId,omitempty"`
	DepartureAirport *string     `json:"departureAirport,omitempty"`
	ArrivalAirport   *string     `json:"arrivalAirport,omitempty"`
	CabinClass       *CabinClass `json:"cabinClass,omitempty"`
}

// Weekdays is a bitmask of time.Weekday values, bit 0 = Sunday
type Weekdays uint8

const AllWeekdays Weekdays = 0x7f

// WeekdaysOf builds a mask from the given days
func WeekdaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// Has reports whether the bit for d is set
func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// DateOf truncates t to midnight of its UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateWithin compares calendar dates only, both bounds inclusive
func DateWithin(t, start, end time.Time) bool {
	day := DateOf(t)
	return !day.Before(DateOf(start)) && !day.After(DateOf(end))
}

// DaysBetween is the calendar-day difference between the UTC dates of from and to
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

type RuleType string

const (
	RuleDayOfWeek       RuleType = "day_of_week"
	RuleSeasonal        RuleType = "seasonal"
	RuleDemandBased     RuleType = "demand_based"
	RuleAdvancePurchase RuleType = "advance_purchase"
	RuleLastMinute      RuleType = "last_minute"
	RuleTimeOfDay       RuleType = "time_of_day"
	RuleRouteSpecific   RuleType = "route_specific"
)

// DynamicPricingRule adjusts a base fare by a signed percentage when its predicate holds
type DynamicPricingRule struct {
	ID                     uuid.UUID       `json:"id"`
	Name                   string          `json:"name"`
	RuleType               RuleType        `json:"ruleType"`
	AdjustmentPercentage   decimal.Decimal `json:"adjustmentPercentage"`
	Priority               int             `json:"priority"`
	IsActive               bool            `json:"isActive"`
	Scope                  Scope           `json:"scope"`
	ApplicableDays         Weekdays        `json:"applicableDays"`
	SeasonStart            *time.Time      `json:"seasonStart,omitempty"`
	SeasonEnd              *time.Time      `json:"seasonEnd,omitempty"`
	MinBookingPercentage   *int            `json:"minBookingPercentage,omitempty"`
	MaxBookingPercentage   *int            `json:"maxBookingPercentage,omitempty"`
	MinDaysBeforeDeparture *int            `json:"minDaysBeforeDeparture,omitempty"`
	MaxDaysBeforeDeparture *int            `json:"maxDaysBeforeDeparture,omitempty"`
	StartHour              *int            `json:"startHour,omitempty"`
	EndHour                *int            `json:"endHour,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
}

// SeasonalPricing applies a percentage to departures within a date range
type SeasonalPricing struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	StartDate            time.Time       `json:"startDate"`
	EndDate              time.Time       `json:"endDate"`
	AdjustmentPercentage decimal.Decimal `json:"adjustmentPercentage"`
	Priority             int             `json:"priority"`
	IsActive             bool            `json:"isActive"`
	Scope                Scope           `json:"scope"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// Contains reports whether the UTC date of t falls on or between the start and end dates
func (s *SeasonalPricing) Contains(t time.Time) bool {
	return DateWithin(t, s.StartDate, s.EndDate)
}

type PolicyType string

const (
	PolicyMinimumAdvancePurchase PolicyType = "minimum_advance_purchase"
	PolicyMaximumAdvanceBooking  PolicyType = "maximum_advance_booking"
	PolicyMinimumPassengers      PolicyType = "minimum_passengers"
	PolicyMaximumPassengers      PolicyType = "maximum_passengers"
	PolicyAgeRestriction         PolicyType = "age_restriction"
	PolicyRouteRestriction       PolicyType = "route_restriction"
)

// BookingPolicy constrains when and how a booking may be made
type BookingPolicy struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Type           PolicyType `json:"type"`
	Value          int        `json:"value"`
	SecondaryValue *int       `json:"secondaryValue,omitempty"`
	ErrorMessage   string     `json:"errorMessage"`
	Priority       int        `json:"priority"`
	IsActive       bool       `json:"isActive"`
	Scope          Scope      `json:"scope"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// OverbookingPolicy allows selling seats beyond nominal capacity
type OverbookingPolicy struct {
	ID                       uuid.UUID       `json:"id"`
	MaxOverbookingPercentage decimal.Decimal `json:"maxOverbookingPercentage"`
	MaxOverbookedSeats       *int            `json:"maxOverbookedSeats,omitempty"`
	Priority                 int             `json:"priority"`
	IsActive                 bool            `json:"isActive"`
	Scope                    Scope           `json:"scope"`
	CreatedAt                time.Time       `json:"createdAt"`
}

// BlackoutDate restricts bookings and/or promotions within a date range
type BlackoutDate struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	BlocksBookings   bool      `json:"blocksBookings"`
	BlocksPromotions bool      `json:"blocksPromotions"`
	IsActive         bool      `json:"isActive"`
	Scope            Scope     `json:"scope"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Contains reports whether the UTC date of t falls on or between the start and end dates
func (b *BlackoutDate) Contains(t time.Time) bool {
	return DateWithin(t, b.StartDate, b.EndDate)
}

// CancellationPolicy groups the refund tiers applied on cancellation
type CancellationPolicy struct {
	ID           uuid.UUID                `json:"id"`
	Name         string                   `json:"name"`
	IsRefundable bool                     `json:"isRefundable"`
	Rules        []CancellationPolicyRule `json:"rules"`
}

// CancellationPolicyRule is one refund tier keyed by notice given before departure
type CancellationPolicyRule struct {
	ID                      uuid.UUID       `json:"id"`
	MinHoursBeforeDeparture int             `json:"minHoursBeforeDeparture"`
	MaxHoursBeforeDeparture *int            `json:"maxHoursBeforeDeparture,omitempty"`
	RefundPercentage        decimal.Decimal `json:"refundPercentage"`
	FlatFee                 decimal.Decimal `json:"flatFee"`
}
