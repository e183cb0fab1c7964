package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/app"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/config"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/handlers"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/logger"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/router"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/service"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	// Create Temporal client
	temporalClient, err := app.DialTemporal(cfg, log)
	if err != nil {
		log.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer temporalClient.Close()

	if cfg.EmbeddedWorker {
		w := app.NewWorker(temporalClient, cfg, comps)
		if err := w.Start(); err != nil {
			log.Fatal("Failed to start embedded worker", zap.Error(err))
		}
		defer w.Stop()
		log.Info("Embedded worker started", zap.String("task_queue", cfg.Temporal.TaskQueue))
	}

	// Seat updates for websocket subscribers
	hub := websocket.NewHub(log)
	comps.Engines.Seats.OnChange(hub.SeatChanged)
	go hub.Run(ctx)

	bookingService := service.NewBookingService(temporalClient, cfg.Temporal.TaskQueue, comps.Engines, cfg.SeatLockMinutes, log)
	h := handlers.NewHandler(bookingService, log)
	r := router.NewRouter(h, hub)

	// Bookings answer when the workflow finishes, so writes get more room than reads
	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("API Server starting", zap.String("port", cfg.APIPort), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
