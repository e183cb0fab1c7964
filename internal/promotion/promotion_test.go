package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/lock"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	now       = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	airlineID = uuid.New()
)

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store    *memory.Store
	engine   *Engine
	customer uuid.UUID
	jfkLhr   models.Flight
	jfkCdg   models.Flight
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	fx := &fixture{store: s, customer: uuid.New()}

	fx.jfkLhr = models.Flight{
		ID: uuid.New(), AirlineID: airlineID, FlightNumber: "XB1",
		DepartureAirport: "JFK", ArrivalAirport: "LHR",
		// Friday
		DepartureTime: time.Date(2026, 6, 5, 18, 0, 0, 0, time.UTC),
	}
	fx.jfkCdg = models.Flight{
		ID: uuid.New(), AirlineID: airlineID, FlightNumber: "XB2",
		DepartureAirport: "JFK", ArrivalAirport: "CDG",
		// Sunday
		DepartureTime: time.Date(2026, 6, 7, 18, 0, 0, 0, time.UTC),
	}
	s.AddFlight(fx.jfkLhr)
	s.AddFlight(fx.jfkCdg)

	fx.engine = NewEngine(s, lock.NewLocalLocker(), zap.NewNop())
	fx.engine.now = func() time.Time { return now }
	return fx
}

func basePromotion() models.Promotion {
	return models.Promotion{
		ID:            uuid.New(),
		Code:          "SUMMER10",
		Name:          "Summer sale",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: dec("10"),
		Status:        models.PromotionActive,
		IsActive:      true,
		ValidFrom:     now.AddDate(0, -1, 0),
		ValidTo:       now.AddDate(0, 1, 0),
	}
}

func (fx *fixture) request(code string, amount string, flights ...models.Flight) ValidateRequest {
	ids := make([]uuid.UUID, 0, len(flights))
	for _, f := range flights {
		ids = append(ids, f.ID)
	}
	return ValidateRequest{
		Code:           code,
		CustomerID:     fx.customer,
		BookingAmount:  dec(amount),
		PassengerCount: 2,
		FlightIDs:      ids,
	}
}

func TestValidate_Success(t *testing.T) {
	fx := setup(t)
	p := basePromotion()
	fx.store.AddPromotion(p)

	res, err := fx.engine.Validate(context.Background(), fx.request("  summer10 ", "500.00", fx.jfkLhr))
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	require.NotNil(t, res.PromotionID)
	assert.Equal(t, p.ID, *res.PromotionID)
	assert.Equal(t, "Summer sale", res.Name)
	require.NotNil(t, res.EstimatedDiscount)
	assert.True(t, dec("50").Equal(*res.EstimatedDiscount))

	stored, err := fx.store.GetPromotion(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentUsageCount)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *models.Promotion)
		prepare func(fx *fixture, p *models.Promotion)
		amount  string
		flights func(fx *fixture) []models.Flight
		reason  string
	}{
		{
			name:   "inactive flag",
			mutate: func(p *models.Promotion) { p.IsActive = false },
			reason: ReasonInvalidCode,
		},
		{
			name:   "paused",
			mutate: func(p *models.Promotion) { p.Status = models.PromotionPaused },
			reason: ReasonNotActive,
		},
		{
			name:   "draft checked before dates",
			mutate: func(p *models.Promotion) { p.Status = models.PromotionDraft; p.ValidTo = now.AddDate(0, 0, -1) },
			reason: ReasonNotActive,
		},
		{
			name:   "not yet valid",
			mutate: func(p *models.Promotion) { p.ValidFrom = now.Add(time.Hour) },
			reason: ReasonNotYetValid,
		},
		{
			name:   "expired",
			mutate: func(p *models.Promotion) { p.ValidTo = now.Add(-time.Hour) },
			reason: ReasonExpired,
		},
		{
			name:   "usage cap reached",
			mutate: func(p *models.Promotion) { p.MaxTotalUses = ptr(5); p.CurrentUsageCount = 5 },
			reason: ReasonUsageLimit,
		},
		{
			name:   "customer cap reached",
			mutate: func(p *models.Promotion) { p.MaxUsesPerCustomer = ptr(1) },
			prepare: func(fx *fixture, p *models.Promotion) {
				_, err := fx.store.RedeemPromotion(context.Background(), models.PromotionUsage{
					PromotionID: p.ID, CustomerID: fx.customer, BookingID: uuid.New(),
				})
				if err != nil {
					panic(err)
				}
			},
			reason: ReasonCustomerLimit,
		},
		{
			name:   "below minimum amount",
			mutate: func(p *models.Promotion) { p.MinBookingAmount = ptr(dec("600")) },
			reason: ReasonMinimumAmount,
		},
		{
			name:   "returning customer",
			mutate: func(p *models.Promotion) { p.FirstTimeCustomersOnly = true },
			prepare: func(fx *fixture, _ *models.Promotion) {
				fx.store.AddPriorBookings(fx.customer, 1)
			},
			reason: ReasonFirstTimeOnly,
		},
		{
			name:   "weekend only",
			mutate: func(p *models.Promotion) { p.ApplicableDays = models.WeekdaysOf(time.Saturday, time.Sunday) },
			flights: func(fx *fixture) []models.Flight {
				// the earliest flight leaves on Friday
				return []models.Flight{fx.jfkCdg, fx.jfkLhr}
			},
			reason: ReasonTravelDay,
		},
		{
			name: "route outside allow-list",
			mutate: func(p *models.Promotion) {
				p.ApplicableRoutes = []models.RouteFilter{{Departure: ptr("JFK"), Arrival: ptr("LHR")}}
			},
			flights: func(fx *fixture) []models.Flight { return []models.Flight{fx.jfkLhr, fx.jfkCdg} },
			reason:  ReasonRoute,
		},
		{
			name:   "airline outside allow-list",
			mutate: func(p *models.Promotion) { p.ApplicableAirlineIDs = []uuid.UUID{uuid.New()} },
			reason: ReasonAirline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t)
			p := basePromotion()
			tt.mutate(&p)
			fx.store.AddPromotion(p)
			if tt.prepare != nil {
				tt.prepare(fx, &p)
			}
			amount := tt.amount
			if amount == "" {
				amount = "500.00"
			}
			flights := []models.Flight{fx.jfkLhr}
			if tt.flights != nil {
				flights = tt.flights(fx)
			}

			res, err := fx.engine.Validate(context.Background(), fx.request(p.Code, amount, flights...))
			require.NoError(t, err)

			assert.False(t, res.IsValid)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Nil(t, res.EstimatedDiscount)
		})
	}
}

func TestValidate_UnknownCode(t *testing.T) {
	fx := setup(t)

	res, err := fx.engine.Validate(context.Background(), fx.request("NOPE", "100"))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, ReasonInvalidCode, res.Reason)

	res, err = fx.engine.Validate(context.Background(), fx.request("", "100"))
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidCode, res.Reason)
}

func TestValidate_RouteAllowListMatchesJFKToLHROnly(t *testing.T) {
	fx := setup(t)
	p := basePromotion()
	p.ApplicableRoutes = []models.RouteFilter{{Departure: ptr("JFK"), Arrival: ptr("LHR")}}
	fx.store.AddPromotion(p)

	ewrLhr := models.Flight{
		ID: uuid.New(), AirlineID: airlineID, DepartureAirport: "EWR", ArrivalAirport: "LHR",
		DepartureTime: fx.jfkLhr.DepartureTime,
	}
	fx.store.AddFlight(ewrLhr)

	ok, err := fx.engine.Validate(context.Background(), fx.request(p.Code, "500", fx.jfkLhr))
	require.NoError(t, err)
	assert.True(t, ok.IsValid)

	wrongArrival, err := fx.engine.Validate(context.Background(), fx.request(p.Code, "500", fx.jfkCdg))
	require.NoError(t, err)
	assert.False(t, wrongArrival.IsValid)

	wrongDeparture, err := fx.engine.Validate(context.Background(), fx.request(p.Code, "500", ewrLhr))
	require.NoError(t, err)
	assert.False(t, wrongDeparture.IsValid)
}

func TestValidate_WildcardRouteSide(t *testing.T) {
	fx := setup(t)
	p := basePromotion()
	p.ApplicableRoutes = []models.RouteFilter{{Departure: ptr("jfk")}}
	fx.store.AddPromotion(p)

	res, err := fx.engine.Validate(context.Background(), fx.request(p.Code, "500", fx.jfkLhr, fx.jfkCdg))
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestValidate_UnknownFlight(t *testing.T) {
	fx := setup(t)
	fx.store.AddPromotion(basePromotion())

	req := fx.request("SUMMER10", "500")
	req.FlightIDs = []uuid.UUID{uuid.New()}
	_, err := fx.engine.Validate(context.Background(), req)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name   string
		promo  models.Promotion
		amount string
		pax    int
		want   string
	}{
		{"percentage", models.Promotion{DiscountType: models.DiscountPercentage, DiscountValue: dec("15")}, "480.00", 2, "72"},
		{"percentage rounds", models.Promotion{DiscountType: models.DiscountPercentage, DiscountValue: dec("12.5")}, "99.99", 1, "12.50"},
		{"percentage capped", models.Promotion{DiscountType: models.DiscountPercentage, DiscountValue: dec("50"), MaxDiscountAmount: ptr(dec("100"))}, "480.00", 2, "100"},
		{"fixed", models.Promotion{DiscountType: models.DiscountFixedAmount, DiscountValue: dec("40")}, "480.00", 3, "40"},
		{"fixed above amount", models.Promotion{DiscountType: models.DiscountFixedAmount, DiscountValue: dec("40")}, "25.00", 1, "25"},
		{"per passenger", models.Promotion{DiscountType: models.DiscountPerPassenger, DiscountValue: dec("20")}, "480.00", 3, "60"},
		{"per passenger capped", models.Promotion{DiscountType: models.DiscountPerPassenger, DiscountValue: dec("20"), MaxDiscountAmount: ptr(dec("50"))}, "480.00", 3, "50"},
		{"unknown type", models.Promotion{DiscountType: "bogus", DiscountValue: dec("20")}, "480.00", 3, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Discount(&tt.promo, dec(tt.amount), tt.pax)
			assert.True(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	fx := setup(t)
	p := basePromotion()
	p.DiscountType = models.DiscountPerPassenger
	p.DiscountValue = dec("25")
	fx.store.AddPromotion(p)

	got, err := fx.engine.CalculateDiscount(context.Background(), p.ID, dec("1000"), 4)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got))

	_, err = fx.engine.CalculateDiscount(context.Background(), uuid.New(), dec("1000"), 4)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestRecordUsage_ExhaustsExactlyAtCap(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	p := basePromotion()
	p.MaxTotalUses = ptr(3)
	fx.store.AddPromotion(p)

	for i := 1; i <= 3; i++ {
		res, err := fx.engine.Validate(ctx, fx.request(p.Code, "500", fx.jfkLhr))
		require.NoError(t, err)
		require.True(t, res.IsValid, "validation %d", i)

		updated, err := fx.engine.RecordUsage(ctx, p.ID, uuid.New(), uuid.New(), dec("50"))
		require.NoError(t, err)
		assert.Equal(t, i, updated.CurrentUsageCount)
		if i < 3 {
			assert.Equal(t, models.PromotionActive, updated.Status)
		} else {
			assert.Equal(t, models.PromotionExhausted, updated.Status)
		}
	}

	res, err := fx.engine.Validate(ctx, fx.request(p.Code, "500", fx.jfkLhr))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, ReasonUsageLimit, res.Reason)

	_, err = fx.engine.RecordUsage(ctx, p.ID, uuid.New(), uuid.New(), dec("50"))
	assert.True(t, errs.Is(err, errs.KindConflict))
	assert.Len(t, fx.store.UsageRecords(), 3)
}

func TestRecordUsage_ConcurrentRedemptionsNeverOversell(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	p := basePromotion()
	p.MaxTotalUses = ptr(5)
	fx.store.AddPromotion(p)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicts := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.RecordUsage(ctx, p.ID, uuid.New(), uuid.New(), dec("10"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errs.Is(err, errs.KindConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 20, conflicts)

	stored, err := fx.store.GetPromotion(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.CurrentUsageCount)
	assert.Equal(t, models.PromotionExhausted, stored.Status)
	assert.Len(t, fx.store.UsageRecords(), 5)
}

func TestRecordUsage_PerCustomerLimit(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	p := basePromotion()
	p.MaxUsesPerCustomer = ptr(1)
	fx.store.AddPromotion(p)

	_, err := fx.engine.RecordUsage(ctx, p.ID, fx.customer, uuid.New(), dec("10"))
	require.NoError(t, err)

	_, err = fx.engine.RecordUsage(ctx, p.ID, fx.customer, uuid.New(), dec("10"))
	assert.True(t, errs.Is(err, errs.KindConflict))
	assert.Equal(t, ReasonCustomerLimit, errs.Message(err))

	_, err = fx.engine.RecordUsage(ctx, uuid.New(), fx.customer, uuid.New(), dec("10"))
	assert.True(t, errs.Is(err, errs.KindNotFound))
}
