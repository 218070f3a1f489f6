package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"medj/internal/app"
	"medj/internal/config"
	"medj/internal/logging"
)

// The standalone worker drains the same documents table as the API's
// in-process worker; run it with WORKER_ENABLED=false on the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("❌ invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		logrus.Fatal("❌ DATABASE_URL is not set")
	}

	logrus.Info("🧠 OCR Worker starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ startup failed")
	}
	defer a.Close()

	if err := a.Indicators.StartRefresh(cfg.Indicators.Refresh); err != nil {
		logrus.WithError(err).Fatal("❌ invalid indicator refresh schedule")
	}
	go a.Indicators.Watch(ctx)

	logrus.WithField("interval", cfg.Worker.Interval.Std().String()).
		Info("✅ OCR Worker initialized and running. Press Ctrl+C to stop.")

	a.Documents.RunWorker(ctx, cfg.Worker.Interval.Std())
}
