package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/google/uuid"
)

// --- PromotionStore ---

func copyPromotion(p *models.Promotion) *models.Promotion {
	cp := *p
	cp.ApplicableRoutes = append([]models.RouteFilter(nil), p.ApplicableRoutes...)
	cp.ApplicableAirlineIDs = append([]uuid.UUID(nil), p.ApplicableAirlineIDs...)
	return &cp
}

func (s *Store) GetPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPromotion(p), nil
}

func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.promotions {
		if p.Code == code {
			return copyPromotion(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) countUsageLocked(promotionID, customerID uuid.UUID) int {
	n := 0
	for _, u := range s.usages {
		if u.PromotionID == promotionID && u.CustomerID == customerID {
			n++
		}
	}
	return n
}

func (s *Store) CountPromotionUsage(ctx context.Context, promotionID, customerID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countUsageLocked(promotionID, customerID), nil
}

func (s *Store) CountCustomerBookings(ctx context.Context, customerID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.priorBookings[customerID]
	for _, b := range s.bookings {
		if b.CustomerID == customerID && b.Status != models.BookingStatusCancelled && b.Status != models.BookingStatusFailed {
			n++
		}
	}
	return n, nil
}

// UsageRecords returns a copy of the redemption audit trail
func (s *Store) UsageRecords() []models.PromotionUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PromotionUsage(nil), s.usages...)
}

func (s *Store) RedeemPromotion(ctx context.Context, usage models.PromotionUsage) (*models.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promotions[usage.PromotionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, u := range s.usages {
		if u.PromotionID == p.ID && u.BookingID == usage.BookingID {
			return copyPromotion(p), nil
		}
	}
	if p.Status != models.PromotionActive {
		return nil, store.ErrPromotionNotActive
	}
	if p.MaxTotalUses != nil && p.CurrentUsageCount >= *p.MaxTotalUses {
		return nil, store.ErrUsageLimitReached
	}
	if p.MaxUsesPerCustomer != nil && s.countUsageLocked(p.ID, usage.CustomerID) >= *p.MaxUsesPerCustomer {
		return nil, store.ErrCustomerLimitReached
	}

	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.UsedAt.IsZero() {
		usage.UsedAt = s.now()
	}
	s.usages = append(s.usages, usage)

	p.CurrentUsageCount++
	if p.MaxTotalUses != nil && p.CurrentUsageCount >= *p.MaxTotalUses {
		p.Status = models.PromotionExhausted
	}
	return copyPromotion(p), nil
}

// --- SeatStore ---

func copySeat(seat *models.FlightSeat) models.FlightSeat {
	cp := *seat
	if seat.LockedUntil != nil {
		t := *seat.LockedUntil
		cp.LockedUntil = &t
	}
	if seat.LockedByUserID != nil {
		id := *seat.LockedByUserID
		cp.LockedByUserID = &id
	}
	if seat.BookingID != nil {
		id := *seat.BookingID
		cp.BookingID = &id
	}
	return cp
}

func (s *Store) GetSeat(ctx context.Context, id uuid.UUID) (*models.FlightSeat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copySeat(seat)
	return &cp, nil
}

func (s *Store) listSeats(match func(*models.FlightSeat) bool) []models.FlightSeat {
	var out []models.FlightSeat
	for _, seat := range s.seats {
		if match(seat) {
			out = append(out, copySeat(seat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}

func (s *Store) ListFlightSeats(ctx context.Context, flightID uuid.UUID) ([]models.FlightSeat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSeats(func(seat *models.FlightSeat) bool { return seat.FlightID == flightID }), nil
}

func (s *Store) ListBookingSeats(ctx context.Context, bookingID uuid.UUID) ([]models.FlightSeat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSeats(func(seat *models.FlightSeat) bool {
		return seat.BookingID != nil && *seat.BookingID == bookingID
	}), nil
}

func (s *Store) SwapSeat(ctx context.Context, next models.FlightSeat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.seats[next.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != next.Version-1 {
		return store.ErrVersionConflict
	}
	cp := copySeat(&next)
	s.seats[next.ID] = &cp
	return nil
}

// --- InventoryStore ---

func (s *Store) ReserveCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass, n, maxBookable int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiers[tierKey{flightID, cabin}]
	if !ok {
		return store.ErrNotFound
	}
	key := holdKey{bookingID, tierKey{flightID, cabin}}
	if _, held := s.holds[key]; held {
		return nil
	}
	if t.BookedSeats()+n > maxBookable {
		return store.ErrCapacityExceeded
	}
	t.AvailableSeats -= n
	s.holds[key] = n
	return nil
}

func (s *Store) ReleaseCabinSeats(ctx context.Context, bookingID, flightID uuid.UUID, cabin models.CabinClass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiers[tierKey{flightID, cabin}]
	if !ok {
		return store.ErrNotFound
	}
	key := holdKey{bookingID, tierKey{flightID, cabin}}
	n, held := s.holds[key]
	if !held {
		return nil
	}
	delete(s.holds, key)
	t.AvailableSeats += n
	if t.AvailableSeats > t.TotalSeats {
		t.AvailableSeats = t.TotalSeats
	}
	return nil
}

// --- BookingStore ---

func copyBooking(b *models.Booking) *models.Booking {
	cp := *b
	cp.Segments = make([]models.BookingSegment, len(b.Segments))
	for i, seg := range b.Segments {
		seg.SeatIDs = append([]uuid.UUID(nil), seg.SeatIDs...)
		cp.Segments[i] = seg
	}
	return &cp
}

func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = copyBooking(b)
	return nil
}

// GetBooking fills each segment's departure from the current flight schedule
func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyBooking(b)
	for i := range cp.Segments {
		cp.Segments[i].Departure = nil
		if f, ok := s.flights[cp.Segments[i].FlightID]; ok {
			dep := f.DepartureTime
			cp.Segments[i].Departure = &dep
		}
	}
	return cp, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return store.ErrNotFound
	}
	b.UpdatedAt = s.now()
	s.bookings[b.ID] = copyBooking(b)
	return nil
}
