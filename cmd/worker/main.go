package main

import (
	"context"
	"os"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/app"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/config"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/logger"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	comps, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	c, err := app.DialTemporal(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()

	w := app.NewWorker(c, cfg, comps)

	log.Info("Starting Temporal worker...", zap.String("task_queue", cfg.Temporal.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("Worker failed", zap.Error(err))
	}
}
