// Package booking runs the booking and cancellation commands against the engines. Each
// method is one step the workflows execute as an activity, with its own compensation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/availability"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/pricing"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/promotion"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/seats"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Segment is one admitted flight with the price and capacity it was admitted at
type Segment struct {
	FlightID         uuid.UUID         `json:"flightId"`
	CabinClass       models.CabinClass `json:"cabinClass"`
	SeatIDs          []uuid.UUID       `json:"seatIds,omitempty"`
	Departure        time.Time         `json:"departure"`
	UnitPrice        decimal.Decimal   `json:"unitPrice"`
	TotalPrice       decimal.Decimal   `json:"totalPrice"`
	MaxBookableSeats int               `json:"maxBookableSeats"`
}

// Admission is an itinerary that passed every availability, policy, blackout and promotion check
type Admission struct {
	BookingID            uuid.UUID       `json:"bookingId"`
	CustomerID           uuid.UUID       `json:"customerId"`
	CustomerEmail        string          `json:"customerEmail"`
	PassengerCount       int             `json:"passengerCount"`
	Currency             string          `json:"currency"`
	Segments             []Segment       `json:"segments"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discountAmount"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	PromotionID          *uuid.UUID      `json:"promotionId,omitempty"`
	PromotionCode        string          `json:"promotionCode,omitempty"`
	CancellationPolicyID *uuid.UUID      `json:"cancellationPolicyId,omitempty"`
}

// Cancellation is a booking with the refund it will receive
type Cancellation struct {
	Booking *models.Booking `json:"booking"`
	Refund  refund.Result   `json:"refund"`
}

// Coordinator wires the engines to the store
type Coordinator struct {
	store        store.Store
	pricing      *pricing.Engine
	availability *availability.Engine
	promotions   *promotion.Engine
	seats        *seats.Inventory
	refunds      *refund.Service
	log          *zap.Logger
	now          func() time.Time
}

// NewCoordinator creates a booking coordinator
func NewCoordinator(
	s store.Store,
	pricingEngine *pricing.Engine,
	availabilityEngine *availability.Engine,
	promotionEngine *promotion.Engine,
	inventory *seats.Inventory,
	refunds *refund.Service,
	log *zap.Logger,
) *Coordinator {
	return &Coordinator{
		store:        s,
		pricing:      pricingEngine,
		availability: availabilityEngine,
		promotions:   promotionEngine,
		seats:        inventory,
		refunds:      refunds,
		log:          log,
		now:          time.Now,
	}
}

// Admit checks every segment and the promotion, and prices the itinerary.
// All rejection reasons are collected into one PolicyViolation.
func (c *Coordinator) Admit(ctx context.Context, bookingID uuid.UUID, req models.CreateBookingRequest) (*Admission, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	now := c.now()
	adm := &Admission{
		BookingID:      bookingID,
		CustomerID:     req.CustomerID,
		CustomerEmail:  req.CustomerEmail,
		PassengerCount: req.PassengerCount,
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
	}
	var violations []string

	for i, sr := range req.Segments {
		flight, err := c.store.GetFlight(ctx, sr.FlightID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, errs.NotFound("Flight %s not found", sr.FlightID)
			}
			return nil, errs.Wrap(err, "failed to load flight")
		}
		label := fmt.Sprintf("%s %s-%s", flight.FlightNumber, flight.DepartureAirport, flight.ArrivalAirport)

		avail, err := c.availability.CheckAvailability(ctx, sr.FlightID, sr.CabinClass, req.PassengerCount)
		if err != nil {
			return nil, err
		}
		if !avail.IsAvailable {
			violations = append(violations, fmt.Sprintf("%s: %s", label, avail.Reason))
		}

		policies, err := c.availability.ValidatePolicies(ctx, sr.FlightID, sr.CabinClass, now, req.PassengerCount)
		if err != nil {
			return nil, err
		}
		for _, msg := range policies.Messages() {
			violations = append(violations, fmt.Sprintf("%s: %s", label, msg))
		}

		blackout, err := c.availability.CheckBlackout(ctx, sr.FlightID, sr.CabinClass, flight.DepartureTime, false)
		if err != nil {
			return nil, err
		}
		if blackout.BlocksBookings {
			violations = append(violations, fmt.Sprintf("%s: travel date falls in blackout period %s", label, blackout.Name))
		}

		quote, err := c.pricing.ComputePrice(ctx, sr.FlightID, sr.CabinClass, now, req.PassengerCount)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			adm.Currency = quote.Currency
			tier, err := c.store.GetCabinPriceTier(ctx, sr.FlightID, sr.CabinClass)
			if err != nil {
				return nil, errs.Wrap(err, "failed to load cabin")
			}
			adm.CancellationPolicyID = tier.CancellationPolicyID
		} else if quote.Currency != adm.Currency {
			return nil, errs.Invalid("All segments must be priced in the same currency")
		}

		adm.Segments = append(adm.Segments, Segment{
			FlightID:         sr.FlightID,
			CabinClass:       sr.CabinClass,
			SeatIDs:          sr.SeatIDs,
			Departure:        flight.DepartureTime,
			UnitPrice:        quote.AdjustedUnitPrice.Add(quote.TaxAmount),
			TotalPrice:       quote.TotalPrice,
			MaxBookableSeats: avail.MaxBookableSeats,
		})
		adm.Subtotal = adm.Subtotal.Add(quote.TotalPrice)
	}

	if len(violations) > 0 {
		return nil, errs.PolicyViolation("Booking cannot be made", violations...)
	}

	if req.PromotionCode != "" {
		if err := c.applyPromotion(ctx, adm, req); err != nil {
			return nil, err
		}
	}
	adm.TotalAmount = adm.Subtotal.Sub(adm.DiscountAmount)

	c.log.Info("booking admitted",
		zap.String("booking_id", bookingID.String()),
		zap.Int("segments", len(adm.Segments)),
		zap.String("total", adm.TotalAmount.String()),
	)
	return adm, nil
}

func (c *Coordinator) applyPromotion(ctx context.Context, adm *Admission, req models.CreateBookingRequest) error {
	flightIDs := make([]uuid.UUID, 0, len(adm.Segments))
	for _, seg := range adm.Segments {
		blackout, err := c.availability.CheckBlackout(ctx, seg.FlightID, seg.CabinClass, seg.Departure, true)
		if err != nil {
			return err
		}
		if blackout.BlocksPromotions {
			return errs.PolicyViolation("Promotion cannot be applied",
				fmt.Sprintf("Promotions are not available during %s", blackout.Name))
		}
		flightIDs = append(flightIDs, seg.FlightID)
	}

	v, err := c.promotions.Validate(ctx, promotion.ValidateRequest{
		Code:           req.PromotionCode,
		CustomerID:     req.CustomerID,
		BookingAmount:  adm.Subtotal,
		PassengerCount: req.PassengerCount,
		FlightIDs:      flightIDs,
	})
	if err != nil {
		return err
	}
	if !v.IsValid {
		return errs.PolicyViolation("Promotion cannot be applied", v.Reason)
	}

	adm.PromotionID = v.PromotionID
	adm.PromotionCode = req.PromotionCode
	if v.EstimatedDiscount != nil {
		adm.DiscountAmount = *v.EstimatedDiscount
	}
	return nil
}

func checkRequest(req models.CreateBookingRequest) error {
	if req.PassengerCount < 1 {
		return errs.Invalid("Passenger count must be at least 1")
	}
	if len(req.Segments) == 0 {
		return errs.Invalid("At least one flight is required")
	}
	for _, s := range req.Segments {
		if !s.CabinClass.Valid() {
			return errs.Invalid("Unknown cabin class %q", s.CabinClass)
		}
		if len(s.SeatIDs) > 0 && len(s.SeatIDs) != req.PassengerCount {
			return errs.Invalid("Select one seat per passenger or none")
		}
	}
	return nil
}
