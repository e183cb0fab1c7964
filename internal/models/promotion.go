package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountPerPassenger DiscountType = "per_passenger"
)

type PromotionStatus string

const (
	PromotionDraft     PromotionStatus = "draft"
	PromotionActive    PromotionStatus = "active"
	PromotionPaused    PromotionStatus = "paused"
	PromotionExpired   PromotionStatus = "expired"
	PromotionExhausted PromotionStatus = "exhausted"
	PromotionCancelled PromotionStatus = "cancelled"
)

// RouteFilter is one allowed departure/arrival pair. A nil side matches any airport.
type RouteFilter struct {
	Departure *string `json:"dep,omitempty"`
	Arrival   *string `json:"arr,omitempty"`
}

// Promotion is a redeemable discount code
type Promotion struct {
	ID                     uuid.UUID        `json:"id"`
	Code                   string           `json:"code"`
	Name                   string           `json:"name"`
	DiscountType           DiscountType     `json:"discountType"`
	DiscountValue          decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount      *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	MinBookingAmount       *decimal.Decimal `json:"minBookingAmount,omitempty"`
	Status                 PromotionStatus  `json:"status"`
	IsActive               bool             `json:"isActive"`
	ValidFrom              time.Time        `json:"validFrom"`
	ValidTo                time.Time        `json:"validTo"`
	MaxTotalUses           *int             `json:"maxTotalUses,omitempty"`
	MaxUsesPerCustomer     *int             `json:"maxUsesPerCustomer,omitempty"`
	CurrentUsageCount      int              `json:"currentUsageCount"`
	ApplicableDays         Weekdays         `json:"applicableDays"`
	ApplicableRoutes       []RouteFilter    `json:"applicableRoutes,omitempty"`
	ApplicableAirlineIDs   []uuid.UUID      `json:"applicableAirlineIds,omitempty"`
	FirstTimeCustomersOnly bool             `json:"firstTimeCustomersOnly"`
	CreatedAt              time.Time        `json:"createdAt"`
}

// PromotionUsage is the audit record of one redemption. It is never updated.
type PromotionUsage struct {
	ID             uuid.UUID       `json:"id"`
	PromotionID    uuid.UUID       `json:"promotionId"`
	CustomerID     uuid.UUID       `json:"customerId"`
	BookingID      uuid.UUID       `json:"bookingId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	UsedAt         time.Time       `json:"usedAt"`
}
