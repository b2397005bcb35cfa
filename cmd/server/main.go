package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/config"
	"github.com/mamadbah2/pumpschedule/internal/domain/flowrate"
	"github.com/mamadbah2/pumpschedule/internal/metrics"
	"github.com/mamadbah2/pumpschedule/internal/repository"
	"github.com/mamadbah2/pumpschedule/internal/repository/sheets"
	"github.com/mamadbah2/pumpschedule/internal/scheduler"
	"github.com/mamadbah2/pumpschedule/internal/server/handlers"
	"github.com/mamadbah2/pumpschedule/internal/server/router"
	exportsvc "github.com/mamadbah2/pumpschedule/internal/service/export"
	"github.com/mamadbah2/pumpschedule/internal/service/scheduling"
	whatsappsvc "github.com/mamadbah2/pumpschedule/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/pumpschedule/pkg/clients/whatsapp"
	"github.com/mamadbah2/pumpschedule/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Schedule.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rates, err := flowrate.NewSource(cfg.Schedule.FlowRatesFile, logger.Named(baseLogger, "flowrate"))
	if err != nil {
		baseLogger.Fatal("failed to load flow rate table", zap.Error(err))
	}
	if cfg.Schedule.FlowRatesWatch {
		go func() {
			if err := rates.Watch(ctx); err != nil {
				baseLogger.Error("flow rate watcher stopped", zap.Error(err))
			}
		}()
	}

	repo, err := repository.Open(ctx, *cfg, logger.Named(baseLogger, "repo"))
	if err != nil {
		baseLogger.Fatal("failed to init entry repository", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			baseLogger.Error("failed to close entry repository", zap.Error(err))
		}
	}()

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsHandler = m.Handler()
	}

	schedulingSvc := scheduling.NewService(repo, rates, scheduling.Options{
		Location:     loc,
		StoreTimeout: cfg.Store.Timeout,
		SuggestGap:   cfg.Schedule.SuggestGap,
		Metrics:      m,
	}, logger.Named(baseLogger, "svc.scheduling"))

	var publisher scheduler.Publisher
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		publisher = exportsvc.NewService(schedulingSvc, sheetsRepo, cfg.Sheets.ExportRange, logger.Named(baseLogger, "svc.export"))
		baseLogger.Info("sheets export enabled")
	} else {
		baseLogger.Warn("sheets credentials missing, scheduled export disabled")
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		notifier = whatsappsvc.NewDigestService(schedulingSvc, whatsClient, cfg.WhatsApp.DigestTo, logger.Named(baseLogger, "svc.whatsapp"))
		baseLogger.Info("whatsapp digest enabled")
	}

	sched := scheduler.NewScheduler(cfg.Export.CronSchedule, loc, publisher, notifier, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	entryHandler := handlers.NewEntryHandler(schedulingSvc, rates, logger.Named(baseLogger, "handlers.entries"))
	engine := router.New(entryHandler, metricsHandler, logger.Named(baseLogger, "router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
