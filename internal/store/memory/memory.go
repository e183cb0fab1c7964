// Package memory is an in-process store used for tests and single-node development.
// Every mutation runs under one mutex, which gives the same atomicity the postgres
// store gets from transactions.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

type tierKey struct {
	flightID uuid.UUID
	cabin    models.CabinClass
}

type holdKey struct {
	bookingID uuid.UUID
	tier      tierKey
}

// Store keeps all rows in maps guarded by mu
type Store struct {
	mu sync.RWMutex

	flights       map[uuid.UUID]*models.Flight
	tiers         map[tierKey]*models.CabinPriceTier
	holds         map[holdKey]int
	dynamicRules  []models.DynamicPricingRule
	seasons       []models.SeasonalPricing
	policies      []models.BookingPolicy
	overbooking   []models.OverbookingPolicy
	blackouts     []models.BlackoutDate
	cancellations map[uuid.UUID]*models.CancellationPolicy
	promotions    map[uuid.UUID]*models.Promotion
	usages        []models.PromotionUsage
	seats         map[uuid.UUID]*models.FlightSeat
	bookings      map[uuid.UUID]*models.Booking
	priorBookings map[uuid.UUID]int
	now           func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		flights:       make(map[uuid.UUID]*models.Flight),
		tiers:         make(map[tierKey]*models.CabinPriceTier),
		holds:         make(map[holdKey]int),
		cancellations: make(map[uuid.UUID]*models.CancellationPolicy),
		promotions:    make(map[uuid.UUID]*models.Promotion),
		seats:         make(map[uuid.UUID]*models.FlightSeat),
		bookings:      make(map[uuid.UUID]*models.Booking),
		priorBookings: make(map[uuid.UUID]int),
		now:           time.Now,
	}
}

func (s *Store) Close() {}

// SetClock replaces the time source used for audit timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- Seeding ---

func (s *Store) AddFlight(f models.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.ID] = &f
}

func (s *Store) AddCabinPriceTier(t models.CabinPriceTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[tierKey{t.FlightID, t.CabinClass}] = &t
}

func (s *Store) AddDynamicPricingRule(r models.DynamicPricingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicRules = append(s.dynamicRules, r)
}

func (s *Store) AddSeasonalPricing(p models.SeasonalPricing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = append(s.seasons, p)
}

func (s *Store) AddBookingPolicy(p models.BookingPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, p)
}

func (s *Store) AddOverbookingPolicy(p models.OverbookingPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overbooking = append(s.overbooking, p)
}

func (s *Store) AddBlackoutDate(b models.BlackoutDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blackouts = append(s.blackouts, b)
}

func (s *Store) AddCancellationPolicy(p models.CancellationPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellations[p.ID] = &p
}

func (s *Store) AddPromotion(p models.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Code = strings.ToUpper(p.Code)
	s.promotions[p.ID] = &p
}

func (s *Store) AddSeat(seat models.FlightSeat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seat.ID] = &seat
}

// AddPriorBookings records non-cancelled bookings a customer made outside this store
func (s *Store) AddPriorBookings(customerID uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorBookings[customerID] += n
}

// --- RuleReader ---

func (s *Store) GetFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) GetCabinPriceTier(ctx context.Context, flightID uuid.UUID, cabin models.CabinClass) (*models.CabinPriceTier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers[tierKey{flightID, cabin}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func airlineMatches(scope models.Scope, airlineID uuid.UUID) bool {
	return scope.AirlineID == nil || *scope.AirlineID == airlineID
}

func (s *Store) ListDynamicPricingRules(ctx context.Context, airlineID uuid.UUID) ([]models.DynamicPricingRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DynamicPricingRule
	for _, r := range s.dynamicRules {
		if r.IsActive && airlineMatches(r.Scope, airlineID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListSeasonalPricing(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.SeasonalPricing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SeasonalPricing
	for _, p := range s.seasons {
		if p.IsActive && airlineMatches(p.Scope, airlineID) && p.Contains(on) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListBookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.BookingPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BookingPolicy
	for _, p := range s.policies {
		if p.IsActive && airlineMatches(p.Scope, airlineID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListOverbookingPolicies(ctx context.Context, airlineID uuid.UUID) ([]models.OverbookingPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OverbookingPolicy
	for _, p := range s.overbooking {
		if p.IsActive && airlineMatches(p.Scope, airlineID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListBlackoutDates(ctx context.Context, airlineID uuid.UUID, on time.Time) ([]models.BlackoutDate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BlackoutDate
	for _, b := range s.blackouts {
		if b.IsActive && airlineMatches(b.Scope, airlineID) && b.Contains(on) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetCancellationPolicy(ctx context.Context, id uuid.UUID) (*models.CancellationPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cancellations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.Rules = append([]models.CancellationPolicyRule(nil), p.Rules...)
	return &cp, nil
}
