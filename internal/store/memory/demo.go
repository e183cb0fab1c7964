package memory

import (
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed IDs so a local setup can be exercised with curl
var (
	DemoAirlineID            = uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0001")
	DemoFlightTLVJFK         = uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0101")
	DemoFlightJFKTLV         = uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0102")
	DemoCancellationPolicyID = uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0201")
	DemoPromotionID          = uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0301")
)

// SeedDemo loads two flights with economy and business cabins, a seat map, a handful of
// pricing rules and policies and the WELCOME10 promotion. Departures are relative to now.
func (s *Store) SeedDemo(now time.Time) {
	airline := DemoAirlineID
	policyID := DemoCancellationPolicyID
	day := models.DateOf(now)

	flights := []models.Flight{
		{
			ID:                DemoFlightTLVJFK,
			AirlineID:         airline,
			FlightNumber:      "LY001",
			DepartureAirport:  "TLV",
			ArrivalAirport:    "JFK",
			DepartureTime:     day.AddDate(0, 0, 21).Add(22 * time.Hour),
			ArrivalTime:       day.AddDate(0, 0, 22).Add(9 * time.Hour),
			DepartureTimezone: "Asia/Jerusalem",
		},
		{
			ID:                DemoFlightJFKTLV,
			AirlineID:         airline,
			FlightNumber:      "LY002",
			DepartureAirport:  "JFK",
			ArrivalAirport:    "TLV",
			DepartureTime:     day.AddDate(0, 0, 35).Add(23 * time.Hour),
			ArrivalTime:       day.AddDate(0, 0, 36).Add(16 * time.Hour),
			DepartureTimezone: "America/New_York",
		},
	}

	for _, f := range flights {
		s.AddFlight(f)
		s.AddCabinPriceTier(models.CabinPriceTier{
			FlightID:             f.ID,
			CabinClass:           models.CabinEconomy,
			BasePrice:            decimal.NewFromInt(450),
			CurrentPrice:         decimal.NewFromInt(450),
			TaxAmount:            decimal.NewFromInt(65),
			Currency:             "USD",
			TotalSeats:           30,
			AvailableSeats:       30,
			IsActive:             true,
			CancellationPolicyID: &policyID,
		})
		s.AddCabinPriceTier(models.CabinPriceTier{
			FlightID:             f.ID,
			CabinClass:           models.CabinBusiness,
			BasePrice:            decimal.NewFromInt(2100),
			CurrentPrice:         decimal.NewFromInt(2100),
			TaxAmount:            decimal.NewFromInt(180),
			Currency:             "USD",
			TotalSeats:           8,
			AvailableSeats:       8,
			IsActive:             true,
			CancellationPolicyID: &policyID,
		})
		s.seedSeats(f.ID, models.CabinBusiness, 1, 2, "ACDF")
		s.seedSeats(f.ID, models.CabinEconomy, 10, 5, "ABCDEF")
	}

	s.AddDynamicPricingRule(models.DynamicPricingRule{
		ID:                   uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0401"),
		Name:                 "Weekend departure surcharge",
		RuleType:             models.RuleDayOfWeek,
		AdjustmentPercentage: decimal.NewFromInt(10),
		Priority:             10,
		IsActive:             true,
		Scope:                models.Scope{AirlineID: &airline},
		ApplicableDays:       models.WeekdaysOf(time.Friday, time.Saturday),
		CreatedAt:            now,
	})
	minDays := 14
	s.AddDynamicPricingRule(models.DynamicPricingRule{
		ID:                     uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0402"),
		Name:                   "Early bird",
		RuleType:               models.RuleAdvancePurchase,
		AdjustmentPercentage:   decimal.NewFromInt(-8),
		Priority:               5,
		IsActive:               true,
		MinDaysBeforeDeparture: &minDays,
		CreatedAt:              now,
	})

	s.AddBookingPolicy(models.BookingPolicy{
		ID:           uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0501"),
		Code:         "MAX_PAX",
		Name:         "Maximum passengers",
		Type:         models.PolicyMaximumPassengers,
		Value:        9,
		ErrorMessage: "Maximum 9 passengers per booking",
		Priority:     1,
		IsActive:     true,
		CreatedAt:    now,
	})
	s.AddBookingPolicy(models.BookingPolicy{
		ID:           uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0502"),
		Code:         "MIN_ADVANCE",
		Name:         "Minimum advance purchase",
		Type:         models.PolicyMinimumAdvancePurchase,
		Value:        1,
		ErrorMessage: "Bookings close one day before departure",
		Priority:     2,
		IsActive:     true,
		CreatedAt:    now,
	})

	economy := models.CabinEconomy
	s.AddOverbookingPolicy(models.OverbookingPolicy{
		ID:                       uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0601"),
		MaxOverbookingPercentage: decimal.NewFromInt(5),
		Priority:                 1,
		IsActive:                 true,
		Scope:                    models.Scope{AirlineID: &airline, CabinClass: &economy},
		CreatedAt:                now,
	})

	s.AddCancellationPolicy(models.CancellationPolicy{
		ID:           policyID,
		Name:         "Flexible",
		IsRefundable: true,
		Rules: []models.CancellationPolicyRule{
			{ID: uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0211"), MinHoursBeforeDeparture: 168, RefundPercentage: decimal.NewFromInt(100), FlatFee: decimal.Zero},
			{ID: uuid.MustParse("6f1b1c5e-1d5a-4a35-9f0e-2f0d7c1a0212"), MinHoursBeforeDeparture: 24, RefundPercentage: decimal.NewFromInt(50), FlatFee: decimal.NewFromInt(25)},
		},
	})

	maxUses := 100
	perCustomer := 1
	s.AddPromotion(models.Promotion{
		ID:                 DemoPromotionID,
		Code:               "WELCOME10",
		Name:               "Welcome 10% off",
		DiscountType:       models.DiscountPercentage,
		DiscountValue:      decimal.NewFromInt(10),
		Status:             models.PromotionActive,
		IsActive:           true,
		ValidFrom:          day.AddDate(0, 0, -1),
		ValidTo:            day.AddDate(0, 3, 0),
		MaxTotalUses:       &maxUses,
		MaxUsesPerCustomer: &perCustomer,
		ApplicableDays:     models.AllWeekdays,
		CreatedAt:          now,
	})
}

func (s *Store) seedSeats(flightID uuid.UUID, cabin models.CabinClass, firstRow, rows int, letters string) {
	for row := firstRow; row < firstRow+rows; row++ {
		for _, l := range letters {
			s.AddSeat(models.FlightSeat{
				ID:         uuid.New(),
				FlightID:   flightID,
				SeatNumber: fmt.Sprintf("%d%c", row, l),
				CabinClass: cabin,
				Status:     models.SeatStatusAvailable,
				Version:    1,
			})
		}
	}
}
