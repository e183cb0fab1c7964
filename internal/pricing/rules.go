package pricing

import (
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
)

// predicate decides whether a rule of one type applies to a flight booked on bookingDate
type predicate func(r *models.DynamicPricingRule, f *models.Flight, bookingDate time.Time) bool

// predicates covers the rule types evaluated by the generic scan. Seasonal, demand-based
// and route-specific adjustments have dedicated lookups.
var predicates = map[models.RuleType]predicate{
	models.RuleDayOfWeek:       dayOfWeekApplies,
	models.RuleAdvancePurchase: advancePurchaseApplies,
	models.RuleLastMinute:      lastMinuteApplies,
	models.RuleTimeOfDay:       timeOfDayApplies,
}

func ruleApplies(r *models.DynamicPricingRule, f *models.Flight, bookingDate time.Time) bool {
	p, ok := predicates[r.RuleType]
	if !ok {
		return false
	}
	return p(r, f, bookingDate)
}

func dayOfWeekApplies(r *models.DynamicPricingRule, f *models.Flight, _ time.Time) bool {
	return r.ApplicableDays.Has(f.LocalDeparture().Weekday())
}

func advancePurchaseApplies(r *models.DynamicPricingRule, f *models.Flight, bookingDate time.Time) bool {
	days := models.DaysBetween(bookingDate, f.DepartureTime)
	if r.MinDaysBeforeDeparture != nil && days < *r.MinDaysBeforeDeparture {
		return false
	}
	if r.MaxDaysBeforeDeparture != nil && days > *r.MaxDaysBeforeDeparture {
		return false
	}
	return true
}

func lastMinuteApplies(r *models.DynamicPricingRule, f *models.Flight, bookingDate time.Time) bool {
	limit := defaultLastMinuteDays
	if r.MaxDaysBeforeDeparture != nil {
		limit = *r.MaxDaysBeforeDeparture
	}
	return models.DaysBetween(bookingDate, f.DepartureTime) <= limit
}

// timeOfDayApplies matches the departure's local hour against [start, end]; a band with
// start > end wraps past midnight
func timeOfDayApplies(r *models.DynamicPricingRule, f *models.Flight, _ time.Time) bool {
	start, end := 0, 23
	if r.StartHour != nil {
		start = *r.StartHour
	}
	if r.EndHour != nil {
		end = *r.EndHour
	}
	hour := f.LocalDeparture().Hour()
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
