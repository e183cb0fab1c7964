package scope

import (
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestMatches(t *testing.T) {
	airline := uuid.New()
	target := Target{
		AirlineID:        airline,
		DepartureAirport: "JFK",
		ArrivalAirport:   "LHR",
		CabinClass:       models.CabinBusiness,
	}

	tests := []struct {
		name  string
		scope models.Scope
		want  bool
	}{
		{"all wildcards", models.Scope{}, true},
		{"airline matches", models.Scope{AirlineID: &airline}, true},
		{"other airline", models.Scope{AirlineID: ptr(uuid.New())}, false},
		{"route matches ignoring case", models.Scope{DepartureAirport: ptr("jfk"), ArrivalAirport: ptr("LHR")}, true},
		{"wrong arrival", models.Scope{ArrivalAirport: ptr("CDG")}, false},
		{"cabin matches", models.Scope{CabinClass: ptr(models.CabinBusiness)}, true},
		{"wrong cabin", models.Scope{CabinClass: ptr(models.CabinEconomy)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.scope, target))
		})
	}
}

func TestSort_DeterministicTieBreak(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	type rule struct {
		name     string
		priority int
		created  time.Time
		id       uuid.UUID
	}
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	rules := []rule{
		{"low", 1, base, uuid.New()},
		{"high-newer", 10, base.Add(time.Hour), uuid.New()},
		{"high-older-b", 10, base, idHigh},
		{"high-older-a", 10, base, idLow},
	}

	Sort(rules, func(r rule) (int, time.Time, uuid.UUID) { return r.priority, r.created, r.id })

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	assert.Equal(t, []string{"high-older-a", "high-older-b", "high-newer", "low"}, names)
}
