package availability

import (
	"fmt"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

type policyInput struct {
	hoursBeforeDeparture float64
	passengerCount       int
}

// check returns a default message and whether the policy is violated
type check func(p *models.BookingPolicy, in policyInput) (string, bool)

// checks has no entry for age restrictions: booking requests carry no passenger ages
var checks = map[models.PolicyType]check{
	models.PolicyMinimumAdvancePurchase: minimumAdvancePurchase,
	models.PolicyMaximumAdvanceBooking:  maximumAdvanceBooking,
	models.PolicyMinimumPassengers:      minimumPassengers,
	models.PolicyMaximumPassengers:      maximumPassengers,
	models.PolicyRouteRestriction:       routeRestriction,
}

func evaluate(p *models.BookingPolicy, in policyInput) (string, bool) {
	c, ok := checks[p.Type]
	if !ok {
		return "", false
	}
	return c(p, in)
}

func minimumAdvancePurchase(p *models.BookingPolicy, in policyInput) (string, bool) {
	return fmt.Sprintf("Bookings must be made at least %d hours before departure", p.Value),
		in.hoursBeforeDeparture < float64(p.Value)
}

func maximumAdvanceBooking(p *models.BookingPolicy, in policyInput) (string, bool) {
	return fmt.Sprintf("Bookings cannot be made more than %d days before departure", p.Value),
		in.hoursBeforeDeparture > float64(p.Value*24)
}

func minimumPassengers(p *models.BookingPolicy, in policyInput) (string, bool) {
	return fmt.Sprintf("At least %d passengers are required", p.Value),
		in.passengerCount < p.Value
}

func maximumPassengers(p *models.BookingPolicy, in policyInput) (string, bool) {
	return fmt.Sprintf("No more than %d passengers are allowed per booking", p.Value),
		in.passengerCount > p.Value
}

// routeRestriction closes the routes its scope matches to sale
func routeRestriction(_ *models.BookingPolicy, _ policyInput) (string, bool) {
	return "This route is not available for booking", true
}
