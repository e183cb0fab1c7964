package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/booking"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/notify"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) Admit(ctx context.Context, bookingID uuid.UUID, req models.CreateBookingRequest) (*booking.Admission, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Admission), args.Error(1)
}

func (m *mockCoordinator) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockCoordinator) CreatePending(ctx context.Context, adm *booking.Admission) (*models.Booking, error) {
	args := m.Called(ctx, adm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockCoordinator) HoldInventory(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockCoordinator) ReleaseInventory(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockCoordinator) AssignSeats(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockCoordinator) UnassignSeats(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockCoordinator) RedeemPromotion(ctx context.Context, bookingID uuid.UUID) (*models.Promotion, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *mockCoordinator) Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockCoordinator) Fail(ctx context.Context, bookingID uuid.UUID, reason string) error {
	return m.Called(ctx, bookingID, reason).Error(0)
}

func (m *mockCoordinator) PrepareCancellation(ctx context.Context, bookingID uuid.UUID) (*booking.Cancellation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Cancellation), args.Error(1)
}

func (m *mockCoordinator) CompleteCancellation(ctx context.Context, bookingID uuid.UUID, res refund.Result) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, res)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BookingConfirmed(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockNotifier) BookingCancelled(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockNotifier) PromotionExhausted(ctx context.Context, p *models.Promotion) error {
	return m.Called(ctx, p).Error(0)
}

type ActivitiesTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env         *testsuite.TestActivityEnvironment
	coordinator *mockCoordinator
	notifier    *mockNotifier
	bookingID   uuid.UUID
}

func (s *ActivitiesTestSuite) SetupTest() {
	s.env = s.NewTestActivityEnvironment()
	s.coordinator = new(mockCoordinator)
	s.notifier = new(mockNotifier)
	s.bookingID = uuid.New()
	NewActivities(s.coordinator, s.notifier).Register(s.env)
}

func (s *ActivitiesTestSuite) AfterTest(suiteName, testName string) {
	s.coordinator.AssertExpectations(s.T())
	s.notifier.AssertExpectations(s.T())
}

func TestActivitiesTestSuite(t *testing.T) {
	suite.Run(t, new(ActivitiesTestSuite))
}

func (s *ActivitiesTestSuite) applicationError(err error) *temporal.ApplicationError {
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr), "expected an application error, got %v", err)
	return appErr
}

func (s *ActivitiesTestSuite) TestAdmit_Success() {
	req := models.CreateBookingRequest{CustomerID: uuid.New(), PassengerCount: 2}
	s.coordinator.On("Admit", mock.Anything, s.bookingID, req).Return(&booking.Admission{
		BookingID:   s.bookingID,
		TotalAmount: decimal.NewFromInt(900),
	}, nil)

	val, err := s.env.ExecuteActivity(ActivityAdmit, AdmitInput{BookingID: s.bookingID, Request: req})
	s.Require().NoError(err)

	var adm booking.Admission
	s.Require().NoError(val.Get(&adm))
	s.Equal(s.bookingID, adm.BookingID)
	s.True(decimal.NewFromInt(900).Equal(adm.TotalAmount))
}

func (s *ActivitiesTestSuite) TestAdmit_PolicyViolationIsNotRetried() {
	s.coordinator.On("Admit", mock.Anything, s.bookingID, mock.Anything).
		Return(nil, errs.PolicyViolation("Booking violates policy", "Too many passengers", "Route closed"))

	_, err := s.env.ExecuteActivity(ActivityAdmit, AdmitInput{BookingID: s.bookingID})

	appErr := s.applicationError(err)
	s.True(appErr.NonRetryable())
	s.Equal(string(errs.KindPolicyViolation), appErr.Type())
	s.Equal("Booking violates policy", appErr.Message())

	var violations []string
	s.Require().NoError(appErr.Details(&violations))
	s.Equal([]string{"Too many passengers", "Route closed"}, violations)
}

func (s *ActivitiesTestSuite) TestErrorKinds() {
	tests := []struct {
		name      string
		err       error
		kind      errs.Kind
		retryable bool
	}{
		{"conflict", errs.Conflict("Not enough seats left in economy"), errs.KindConflict, true},
		{"unavailable", errs.Unavailable(errors.New("pool exhausted"), "failed to hold inventory"), errs.KindUnavailable, true},
		{"unclassified", errors.New("connection reset"), errs.KindInternal, true},
		{"not found", errs.NotFound("Booking not found"), errs.KindNotFound, false},
		{"forbidden", errs.Forbidden("Seat is held by another customer"), errs.KindForbidden, false},
		{"invalid", errs.Invalid("Passenger count must be positive"), errs.KindInvalid, false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.env = s.NewTestActivityEnvironment()
			coordinator := new(mockCoordinator)
			NewActivities(coordinator, s.notifier).Register(s.env)
			coordinator.On("HoldInventory", mock.Anything, s.bookingID).Return(tt.err)

			_, err := s.env.ExecuteActivity(ActivityHoldInventory, BookingInput{BookingID: s.bookingID})

			appErr := s.applicationError(err)
			s.Equal(string(tt.kind), appErr.Type())
			s.Equal(!tt.retryable, appErr.NonRetryable())
		})
	}
}

func (s *ActivitiesTestSuite) TestRedeemPromotion_NoPromotion() {
	s.coordinator.On("RedeemPromotion", mock.Anything, s.bookingID).Return(nil, nil)

	val, err := s.env.ExecuteActivity(ActivityRedeemPromotion, BookingInput{BookingID: s.bookingID})
	s.Require().NoError(err)

	var out RedeemPromotionOutput
	s.Require().NoError(val.Get(&out))
	s.False(out.Redeemed)
}

func (s *ActivitiesTestSuite) TestRedeemPromotion_AnnouncesLastUse() {
	p := &models.Promotion{ID: uuid.New(), Code: "SUMMER", Status: models.PromotionExhausted, CurrentUsageCount: 100}
	s.coordinator.On("RedeemPromotion", mock.Anything, s.bookingID).Return(p, nil)
	s.notifier.On("PromotionExhausted", mock.Anything, p).Return(errors.New("broker down"))

	val, err := s.env.ExecuteActivity(ActivityRedeemPromotion, BookingInput{BookingID: s.bookingID})
	s.Require().NoError(err)

	var out RedeemPromotionOutput
	s.Require().NoError(val.Get(&out))
	s.True(out.Redeemed)
	s.True(out.Exhausted)
}

func (s *ActivitiesTestSuite) TestNotify() {
	b := &models.Booking{ID: s.bookingID, PNR: "K7M2QX", Status: models.BookingStatusConfirmed}
	s.coordinator.On("Get", mock.Anything, s.bookingID).Return(b, nil)
	s.notifier.On("BookingConfirmed", mock.Anything, b).Return(nil).Once()

	_, err := s.env.ExecuteActivity(ActivityNotify, NotifyInput{BookingID: s.bookingID, Topic: notify.TopicBookingConfirmed})
	s.NoError(err)

	_, err = s.env.ExecuteActivity(ActivityNotify, NotifyInput{BookingID: s.bookingID, Topic: "booking.unknown"})
	appErr := s.applicationError(err)
	s.True(appErr.NonRetryable())
	s.Equal(string(errs.KindInvalid), appErr.Type())
}

func (s *ActivitiesTestSuite) TestCompleteCancellation_PassesRefund() {
	res := refund.Result{IsRefundable: true, RefundAmount: decimal.NewFromInt(1570), CancellationFee: decimal.NewFromInt(230)}
	cancelled := &models.Booking{ID: s.bookingID, Status: models.BookingStatusCancelled}
	s.coordinator.On("CompleteCancellation", mock.Anything, s.bookingID, mock.MatchedBy(func(r refund.Result) bool {
		return r.IsRefundable && r.RefundAmount.Equal(res.RefundAmount) && r.CancellationFee.Equal(res.CancellationFee)
	})).Return(cancelled, nil)

	val, err := s.env.ExecuteActivity(ActivityCompleteCancellation, CompleteCancellationInput{BookingID: s.bookingID, Refund: res})
	s.Require().NoError(err)

	var b models.Booking
	s.Require().NoError(val.Get(&b))
	s.Equal(models.BookingStatusCancelled, b.Status)
}
