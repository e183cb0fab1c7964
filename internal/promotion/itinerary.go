package promotion

import (
	"strings"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
)

// checkItinerary runs the travel-day, route and airline checks and returns the first failure
func checkItinerary(p *models.Promotion, flights []*models.Flight) string {
	if len(flights) == 0 {
		return ""
	}

	if p.ApplicableDays != 0 {
		earliest := flights[0]
		for _, f := range flights[1:] {
			if f.DepartureTime.Before(earliest.DepartureTime) {
				earliest = f
			}
		}
		if !p.ApplicableDays.Has(earliest.LocalDeparture().Weekday()) {
			return ReasonTravelDay
		}
	}

	if len(p.ApplicableRoutes) > 0 {
		for _, f := range flights {
			if !routeAllowed(p.ApplicableRoutes, f) {
				return ReasonRoute
			}
		}
	}

	if len(p.ApplicableAirlineIDs) > 0 {
		for _, f := range flights {
			if !airlineAllowed(p.ApplicableAirlineIDs, f.AirlineID) {
				return ReasonAirline
			}
		}
	}

	return ""
}

func routeAllowed(routes []models.RouteFilter, f *models.Flight) bool {
	for _, r := range routes {
		if r.Departure != nil && !strings.EqualFold(*r.Departure, f.DepartureAirport) {
			continue
		}
		if r.Arrival != nil && !strings.EqualFold(*r.Arrival, f.ArrivalAirport) {
			continue
		}
		return true
	}
	return false
}

func airlineAllowed(ids []uuid.UUID, airlineID uuid.UUID) bool {
	for _, id := range ids {
		if id == airlineID {
			return true
		}
	}
	return false
}
