// Package scope matches airline/route/cabin scoped rules against a flight and orders
// competing rules deterministically.
package scope

import (
	"sort"
	"strings"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
)

// Target is what a rule scope is matched against
type Target struct {
	AirlineID        uuid.UUID
	DepartureAirport string
	ArrivalAirport   string
	CabinClass       models.CabinClass
}

// For builds the target of a flight and cabin. An empty cabin only matches cabin wildcards.
func For(f *models.Flight, cabin models.CabinClass) Target {
	return Target{
		AirlineID:        f.AirlineID,
		DepartureAirport: f.DepartureAirport,
		ArrivalAirport:   f.ArrivalAirport,
		CabinClass:       cabin,
	}
}

// Matches reports whether every non-nil filter of s equals the target
func Matches(s models.Scope, t Target) bool {
	if s.AirlineID != nil && *s.AirlineID != t.AirlineID {
		return false
	}
	if s.DepartureAirport != nil && !strings.EqualFold(*s.DepartureAirport, t.DepartureAirport) {
		return false
	}
	if s.ArrivalAirport != nil && !strings.EqualFold(*s.ArrivalAirport, t.ArrivalAirport) {
		return false
	}
	if s.CabinClass != nil && *s.CabinClass != t.CabinClass {
		return false
	}
	return true
}

// Sort orders items by priority desc, then creation time asc, then ID.
// Storage return order never decides which rule wins.
func Sort[T any](items []T, key func(T) (int, time.Time, uuid.UUID)) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, ci, ii := key(items[i])
		pj, cj, ij := key(items[j])
		if pi != pj {
			return pi > pj
		}
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return strings.Compare(ii.String(), ij.String()) < 0
	})
}

// Filter keeps the items whose scope matches t
func Filter[T any](items []T, t Target, scopeOf func(T) models.Scope) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Matches(scopeOf(it), t) {
			out = append(out, it)
		}
	}
	return out
}
