// Package notify publishes booking events for downstream consumers (email, analytics).
// Delivery is best effort: callers log publish failures and carry on.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopicBookingConfirmed   = "booking.confirmed"
	TopicBookingCancelled   = "booking.cancelled"
	TopicPromotionExhausted = "promotion.exhausted"
	TopicSeatChanged        = "seat.changed"
)

// BookingEvent is published when a booking is confirmed or cancelled
type BookingEvent struct {
	BookingID       uuid.UUID            `json:"bookingId"`
	PNR             string               `json:"pnr"`
	CustomerID      uuid.UUID            `json:"customerId"`
	CustomerEmail   string               `json:"customerEmail,omitempty"`
	Status          models.BookingStatus `json:"status"`
	Currency        string               `json:"currency"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	RefundAmount    *decimal.Decimal     `json:"refundAmount,omitempty"`
	CancellationFee *decimal.Decimal     `json:"cancellationFee,omitempty"`
	OccurredAt      time.Time            `json:"occurredAt"`
}

// PromotionEvent is published when a promotion's last use is redeemed
type PromotionEvent struct {
	PromotionID uuid.UUID `json:"promotionId"`
	Code        string    `json:"code"`
	UsageCount  int       `json:"usageCount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// SeatEvent is published after every committed seat transition
type SeatEvent struct {
	SeatID     uuid.UUID         `json:"seatId"`
	FlightID   uuid.UUID         `json:"flightId"`
	SeatNumber string            `json:"seatNumber"`
	Status     models.SeatStatus `json:"status"`
	Version    int64             `json:"version"`
}

// NewPublisher connects to the AMQP broker at uri, or returns an in-process channel when uri is empty
func NewPublisher(uri string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if uri == "" {
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}
	pub, err := amqp.NewPublisher(amqp.NewDurablePubSubConfig(uri, amqp.GenerateQueueNameTopicName), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
	}
	return pub, nil
}

// Notifier encodes events and hands them to a watermill publisher
type Notifier struct {
	pub message.Publisher
	log *zap.Logger
	now func() time.Time
}

func NewNotifier(pub message.Publisher, log *zap.Logger) *Notifier {
	return &Notifier{pub: pub, log: log, now: time.Now}
}

func (n *Notifier) BookingConfirmed(ctx context.Context, b *models.Booking) error {
	return n.publish(ctx, TopicBookingConfirmed, b.ID.String(), n.bookingEvent(b))
}

func (n *Notifier) BookingCancelled(ctx context.Context, b *models.Booking) error {
	return n.publish(ctx, TopicBookingCancelled, b.ID.String(), n.bookingEvent(b))
}

func (n *Notifier) PromotionExhausted(ctx context.Context, p *models.Promotion) error {
	return n.publish(ctx, TopicPromotionExhausted, p.ID.String(), PromotionEvent{
		PromotionID: p.ID,
		Code:        p.Code,
		UsageCount:  p.CurrentUsageCount,
		OccurredAt:  n.now(),
	})
}

// SeatChanged is a seats.Listener. Errors are logged only.
func (n *Notifier) SeatChanged(seat models.FlightSeat) {
	err := n.publish(context.Background(), TopicSeatChanged, seat.ID.String(), SeatEvent{
		SeatID:     seat.ID,
		FlightID:   seat.FlightID,
		SeatNumber: seat.SeatNumber,
		Status:     seat.Status,
		Version:    seat.Version,
	})
	if err != nil {
		n.log.Warn("seat event dropped", zap.String("seat_id", seat.ID.String()), zap.Error(err))
	}
}

func (n *Notifier) bookingEvent(b *models.Booking) BookingEvent {
	return BookingEvent{
		BookingID:       b.ID,
		PNR:             b.PNR,
		CustomerID:      b.CustomerID,
		CustomerEmail:   b.CustomerEmail,
		Status:          b.Status,
		Currency:        b.Currency,
		TotalAmount:     b.TotalAmount,
		RefundAmount:    b.RefundAmount,
		CancellationFee: b.CancellationFee,
		OccurredAt:      n.now(),
	}
}

func (n *Notifier) publish(ctx context.Context, topic, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event", topic)
	msg.Metadata.Set("key", key)
	msg.SetContext(ctx)

	if err := n.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	n.log.Debug("event published", zap.String("topic", topic), zap.String("key", key))
	return nil
}
