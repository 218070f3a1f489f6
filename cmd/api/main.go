package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"medj/internal/app"
	"medj/internal/auth"
	"medj/internal/config"
	"medj/internal/documents"
	"medj/internal/indicators"
	"medj/internal/logging"
	"medj/internal/router"
)

func main() {

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("❌ invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("❌ invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── SERVICES ─────────────────────────
	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ startup failed")
	}
	defer a.Close()

	if err := a.Indicators.StartRefresh(cfg.Indicators.Refresh); err != nil {
		logrus.WithError(err).Fatal("❌ invalid indicator refresh schedule")
	}
	go a.Indicators.Watch(ctx)

	// ───────────────────────── WORKER ─────────────────────────
	if cfg.Worker.Enabled {
		go a.Documents.RunWorker(ctx, cfg.Worker.Interval.Std())
	}

	// ───────────────────────── HTTP ─────────────────────────
	r := router.New(router.Deps{
		Auth:       auth.NewHandler(auth.NewService(a.Users), a.Tokens),
		Tokens:     a.Tokens,
		Documents:  documents.NewHandler(a.Documents),
		Indicators: indicators.NewHandler(a.Indicators, a.IndicatorRepo),
		Origins:    cfg.Origins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("🚀 API running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("❌ server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("⚠️ graceful shutdown failed")
	}
}
