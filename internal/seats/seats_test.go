package seats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T, status models.SeatStatus) (*Inventory, *clock, uuid.UUID) {
	t.Helper()
	s := memory.New()
	seat := models.FlightSeat{
		ID:         uuid.New(),
		FlightID:   uuid.New(),
		SeatNumber: "12A",
		CabinClass: models.CabinEconomy,
		Status:     status,
	}
	s.AddSeat(seat)

	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	inv := NewInventory(s, zap.NewNop())
	inv.now = c.now
	return inv, c, seat.ID
}

func TestReserveThenRelease_ReturnsSeatToAvailable(t *testing.T) {
	inv, c, seatID := setup(t, models.SeatStatusAvailable)
	ctx := context.Background()
	user := uuid.New()

	held, err := inv.Reserve(ctx, seatID, user, 15)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusReserved, held.Status)
	require.NotNil(t, held.LockedUntil)
	assert.Equal(t, c.now().Add(15*time.Minute), *held.LockedUntil)
	assert.Equal(t, user, *held.LockedByUserID)

	released, err := inv.Release(ctx, seatID, user)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusAvailable, released.Status)
	assert.Nil(t, released.LockedUntil)
	assert.Nil(t, released.LockedByUserID)
	assert.Equal(t, int64(2), released.Version)
}

func TestReserve_ActiveHoldBlocksOthersUntilExpiry(t *testing.T) {
	inv, c, seatID := setup(t, models.SeatStatusAvailable)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := inv.Reserve(ctx, seatID, alice, 10)
	require.NoError(t, err)

	_, err = inv.Reserve(ctx, seatID, bob, 10)
	assert.True(t, errs.Is(err, errs.KindConflict))

	c.advance(10*time.Minute + time.Second)

	got, err := inv.Get(ctx, seatID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusAvailable, got.Status)
	assert.Nil(t, got.LockedByUserID)

	held, err := inv.Reserve(ctx, seatID, bob, 10)
	require.NoError(t, err)
	assert.Equal(t, bob, *held.LockedByUserID)
}

func TestReserve_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		status   models.SeatStatus
		minutes  int
		wantKind errs.Kind
	}{
		{"blocked", models.SeatStatusBlocked, 10, errs.KindConflict},
		{"unavailable", models.SeatStatusUnavailable, 10, errs.KindConflict},
		{"booked", models.SeatStatusBooked, 10, errs.KindConflict},
		{"zero duration", models.SeatStatusAvailable, 0, errs.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, _, seatID := setup(t, tt.status)
			_, err := inv.Reserve(context.Background(), seatID, uuid.New(), tt.minutes)
			assert.True(t, errs.Is(err, tt.wantKind), "got %v", err)
		})
	}

	inv, _, _ := setup(t, models.SeatStatusAvailable)
	_, err := inv.Reserve(context.Background(), uuid.New(), uuid.New(), 10)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestRelease_Rejections(t *testing.T) {
	inv, _, seatID := setup(t, models.SeatStatusAvailable)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := inv.Release(ctx, seatID, alice)
	assert.True(t, errs.Is(err, errs.KindConflict))

	_, err = inv.Reserve(ctx, seatID, alice, 10)
	require.NoError(t, err)

	_, err = inv.Release(ctx, seatID, bob)
	assert.True(t, errs.Is(err, errs.KindForbidden))

	got, err := inv.Get(ctx, seatID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusReserved, got.Status)
	assert.Equal(t, alice, *got.LockedByUserID)
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	bookingID := uuid.New()

	t.Run("available seat", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusAvailable)
		seat, err := inv.Book(ctx, seatID, bookingID, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, models.SeatStatusBooked, seat.Status)
		assert.Equal(t, bookingID, *seat.BookingID)
	})

	t.Run("own hold is promoted", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusAvailable)
		user := uuid.New()
		_, err := inv.Reserve(ctx, seatID, user, 10)
		require.NoError(t, err)

		seat, err := inv.Book(ctx, seatID, bookingID, user)
		require.NoError(t, err)
		assert.Equal(t, models.SeatStatusBooked, seat.Status)
		assert.Nil(t, seat.LockedUntil)
		assert.Nil(t, seat.LockedByUserID)
	})

	t.Run("another customer's hold", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusAvailable)
		_, err := inv.Reserve(ctx, seatID, uuid.New(), 10)
		require.NoError(t, err)

		_, err = inv.Book(ctx, seatID, bookingID, uuid.New())
		assert.True(t, errs.Is(err, errs.KindConflict))
	})

	t.Run("expired hold", func(t *testing.T) {
		inv, c, seatID := setup(t, models.SeatStatusAvailable)
		_, err := inv.Reserve(ctx, seatID, uuid.New(), 10)
		require.NoError(t, err)
		c.advance(time.Hour)

		seat, err := inv.Book(ctx, seatID, bookingID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, models.SeatStatusBooked, seat.Status)
	})

	t.Run("same booking twice is a no-op", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusAvailable)
		first, err := inv.Book(ctx, seatID, bookingID, uuid.Nil)
		require.NoError(t, err)
		second, err := inv.Book(ctx, seatID, bookingID, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, first.Version, second.Version)
	})

	t.Run("another booking's seat", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusAvailable)
		_, err := inv.Book(ctx, seatID, uuid.New(), uuid.Nil)
		require.NoError(t, err)
		_, err = inv.Book(ctx, seatID, bookingID, uuid.Nil)
		assert.True(t, errs.Is(err, errs.KindConflict))
	})

	t.Run("blocked seat", func(t *testing.T) {
		inv, _, seatID := setup(t, models.SeatStatusBlocked)
		_, err := inv.Book(ctx, seatID, bookingID, uuid.Nil)
		assert.True(t, errs.Is(err, errs.KindConflict))
	})
}

func TestUnbook(t *testing.T) {
	ctx := context.Background()
	inv, _, seatID := setup(t, models.SeatStatusAvailable)

	var changes []models.FlightSeat
	inv.OnChange(func(s models.FlightSeat) { changes = append(changes, s) })

	_, err := inv.Book(ctx, seatID, uuid.New(), uuid.Nil)
	require.NoError(t, err)

	seat, err := inv.Unbook(ctx, seatID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusAvailable, seat.Status)
	assert.Nil(t, seat.BookingID)

	again, err := inv.Unbook(ctx, seatID)
	require.NoError(t, err)
	assert.Equal(t, seat.Version, again.Version)

	require.Len(t, changes, 2)
	assert.Equal(t, models.SeatStatusBooked, changes[0].Status)
	assert.Equal(t, models.SeatStatusAvailable, changes[1].Status)

	blocked, _, blockedID := setup(t, models.SeatStatusBlocked)
	_, err = blocked.Unbook(ctx, blockedID)
	assert.True(t, errs.Is(err, errs.KindConflict))
}

func TestReserve_ConcurrentRequestsHaveOneWinner(t *testing.T) {
	inv, _, seatID := setup(t, models.SeatStatusAvailable)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.Reserve(ctx, seatID, uuid.New(), 10)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			assert.True(t, errs.Is(err, errs.KindConflict))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestList_ShowsExpiredHoldsAsAvailable(t *testing.T) {
	s := memory.New()
	flightID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	holder := uuid.New()
	s.AddSeat(models.FlightSeat{ID: uuid.New(), FlightID: flightID, SeatNumber: "1A", Status: models.SeatStatusReserved, LockedUntil: &past, LockedByUserID: &holder})
	s.AddSeat(models.FlightSeat{ID: uuid.New(), FlightID: flightID, SeatNumber: "1B", Status: models.SeatStatusReserved, LockedUntil: &future, LockedByUserID: &holder})
	s.AddSeat(models.FlightSeat{ID: uuid.New(), FlightID: flightID, SeatNumber: "1C", Status: models.SeatStatusBlocked})
	s.AddSeat(models.FlightSeat{ID: uuid.New(), FlightID: uuid.New(), SeatNumber: "1D", Status: models.SeatStatusAvailable})

	inv := NewInventory(s, zap.NewNop())
	inv.now = func() time.Time { return now }

	seats, err := inv.List(context.Background(), flightID)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, models.SeatStatusAvailable, seats[0].Status)
	assert.Nil(t, seats[0].LockedUntil)
	assert.Equal(t, models.SeatStatusReserved, seats[1].Status)
	assert.Equal(t, models.SeatStatusBlocked, seats[2].Status)
}

func TestReserve_HolderExtendsOwnHold(t *testing.T) {
	inv, c, seatID := setup(t, models.SeatStatusAvailable)
	ctx := context.Background()
	user := uuid.New()

	first, err := inv.Reserve(ctx, seatID, user, 10)
	require.NoError(t, err)

	c.advance(8 * time.Minute)
	renewed, err := inv.Reserve(ctx, seatID, user, 10)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusReserved, renewed.Status)
	assert.Equal(t, c.now().Add(10*time.Minute), *renewed.LockedUntil)
	assert.Equal(t, first.Version+1, renewed.Version)

	// still closed to everyone else past the original expiry
	c.advance(5 * time.Minute)
	_, err = inv.Reserve(ctx, seatID, uuid.New(), 10)
	assert.True(t, errs.Is(err, errs.KindConflict))
}
