package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/bootstrap"
	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/repository/gcs"
	"github.com/mamadbah2/hotelerp/internal/scheduler"
	"github.com/mamadbah2/hotelerp/internal/server/handlers"
	"github.com/mamadbah2/hotelerp/internal/server/router"
	authsvc "github.com/mamadbah2/hotelerp/internal/service/auth"
	catalogsvc "github.com/mamadbah2/hotelerp/internal/service/catalog"
	inventorysvc "github.com/mamadbah2/hotelerp/internal/service/inventory"
	notifysvc "github.com/mamadbah2/hotelerp/internal/service/notify"
	procurementsvc "github.com/mamadbah2/hotelerp/internal/service/procurement"
	reportingsvc "github.com/mamadbah2/hotelerp/internal/service/reporting"
	whatsappclient "github.com/mamadbah2/hotelerp/pkg/clients/whatsapp"
	"github.com/mamadbah2/hotelerp/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	store, err := bootstrap.OpenStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	sheetWriter, err := bootstrap.OpenSheets(context.Background(), cfg.Sheets, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}

	var billUploader procurementsvc.BillUploader
	if cfg.Bills.Enabled() {
		billStore, err := gcs.NewBillStore(context.Background(), cfg.Bills, baseLogger.Named("repo.gcs"))
		if err != nil {
			baseLogger.Fatal("failed to init bill storage", zap.Error(err))
		}
		defer billStore.Close()
		billUploader = billStore
	} else {
		baseLogger.Warn("GCS_BUCKET missing, bill uploads disabled; bill_url submissions still work")
	}

	var orderNotifier procurementsvc.Notifier
	var dailyNotifier scheduler.DailyNotifier
	if cfg.WhatsApp.Enabled() {
		notifier := notifysvc.NewService(cfg.WhatsApp, whatsappclient.NewClient(cfg.WhatsApp), store, baseLogger.Named("svc.notify"))
		defer notifier.Wait()
		orderNotifier = notifier
		dailyNotifier = notifier
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications disabled")
	}

	authSvc := authsvc.NewService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.auth"))
	catalogSvc := catalogsvc.NewService(store, baseLogger.Named("svc.catalog"))
	inventorySvc := inventorysvc.NewService(store, baseLogger.Named("svc.inventory"))
	procurementSvc := procurementsvc.NewService(store, inventorySvc, billUploader, orderNotifier, baseLogger.Named("svc.procurement"))
	reportingSvc := reportingsvc.NewService(store, sheetWriter, cfg.Sheets.LeakageRange, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Auth:    handlers.NewAuthHandler(authSvc, baseLogger.Named("handlers.auth")),
		Catalog: handlers.NewCatalogHandler(catalogSvc, baseLogger.Named("handlers.catalog")),
		Orders:  handlers.NewOrderHandler(procurementSvc, cfg.Bills.MaxUploadBytes, loc, baseLogger.Named("handlers.orders")),
		Stock:   handlers.NewStockHandler(inventorySvc, loc, baseLogger.Named("handlers.stock")),
		Reports: handlers.NewReportHandler(reportingSvc, loc, baseLogger.Named("handlers.reports")),
	}, authSvc, cfg.Server.AllowedOrigins, baseLogger.Named("router"))

	var jobLock scheduler.JobLock
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			baseLogger.Warn("redis not reachable, scheduler runs without a lock", zap.Error(err))
		} else {
			jobLock = scheduler.NewRedisJobLock(rdb, baseLogger.Named("scheduler.lock"))
		}
		cancel()
	}

	// Initialize Scheduler
	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, dailyNotifier, jobLock, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
