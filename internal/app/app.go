// Package app assembles the store, engines and messaging shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/activities"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/availability"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/booking"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/config"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/lock"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/logger"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/notify"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/pricing"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/promotion"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/refund"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/seats"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/service"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store/memory"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store/postgres"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/workflows"
	goredislib "github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

// Components is everything built from one Config
type Components struct {
	Store       store.Store
	Engines     service.Engines
	Coordinator *booking.Coordinator
	Notifier    *notify.Notifier

	publisher message.Publisher
	redis     *goredislib.Client
	log       *zap.Logger
}

// Build connects the store, lock and publisher and creates the engines over them
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Components, error) {
	c := &Components{log: log}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c.Store = st

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		c.redis = goredislib.NewClient(&goredislib.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		locker = lock.NewRedisLocker(c.redis, cfg.PromotionLockTTL)
		log.Info("Using redis promotion lock", zap.String("addr", cfg.Redis.Addr))
	}

	c.publisher, err = notify.NewPublisher(cfg.AMQP.URI, logger.NewWatermill(log))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Notifier = notify.NewNotifier(c.publisher, log)

	inventory := seats.NewInventory(st, log)
	inventory.OnChange(c.Notifier.SeatChanged)

	c.Engines = service.Engines{
		Pricing:      pricing.NewEngine(st, log),
		Availability: availability.NewEngine(st, log),
		Promotions:   promotion.NewEngine(st, locker, log),
		Seats:        inventory,
		Refunds:      refund.NewService(st, log),
	}
	c.Coordinator = booking.NewCoordinator(st,
		c.Engines.Pricing,
		c.Engines.Availability,
		c.Engines.Promotions,
		inventory,
		c.Engines.Refunds,
		log,
	)
	c.Engines.Bookings = c.Coordinator
	return c, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		st := memory.New()
		if cfg.SeedDemoData {
			st.SeedDemo(time.Now())
			log.Info("Seeded demo data",
				zap.String("flight_outbound", memory.DemoFlightTLVJFK.String()),
				zap.String("flight_return", memory.DemoFlightJFKTLV.String()),
			)
		}
		return st, nil
	}

	log.Info("Connecting to database...")
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database")
	return postgres.New(pool, log), nil
}

// Close releases connections in reverse order of Build
func (c *Components) Close() {
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.log.Warn("failed to close publisher", zap.Error(err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

// DialTemporal connects to the Temporal frontend with zap as the SDK logger
func DialTemporal(cfg *config.Config, log *zap.Logger) (client.Client, error) {
	log.Info("Connecting to Temporal...", zap.String("host", cfg.Temporal.Host))
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.NewTemporal(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	log.Info("Connected to Temporal")
	return c, nil
}

// NewWorker creates a worker on the configured task queue with both workflows and every activity
func NewWorker(c client.Client, cfg *config.Config, comps *Components) worker.Worker {
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	Register(w, comps.Coordinator, comps.Notifier)
	return w
}

// Register adds the workflows and activities to any worker-like registry
func Register(r worker.Registry, coordinator activities.Coordinator, notifier activities.Notifier) {
	r.RegisterWorkflow(workflows.BookingWorkflow)
	r.RegisterWorkflow(workflows.CancellationWorkflow)
	activities.NewActivities(coordinator, notifier).Register(r)
}
