package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/rgi-trading/procure/internal/app"
	"github.com/rgi-trading/procure/internal/delivery"
	"github.com/rgi-trading/procure/internal/docnum"
	"github.com/rgi-trading/procure/internal/invoice"
	"github.com/rgi-trading/procure/internal/masterdata"
	"github.com/rgi-trading/procure/internal/notify"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/platform/cache"
	"github.com/rgi-trading/procure/internal/platform/db"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/rfq"
	"github.com/rgi-trading/procure/internal/shared"
	"github.com/rgi-trading/procure/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, lock serialization disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	var locker *shared.Locker
	if redisClient != nil {
		locker = shared.NewLocker(redisClient, cfg.LockTTL)
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	approvals := shared.NewApprovalRecorder(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)
	allocator := docnum.NewAllocator(pool)

	dispatcher := notify.NewDispatcher(notify.NewUserDirectory(pool), jobsClient, logger)

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool))

	rfqService := rfq.NewService(rfq.NewRepository(pool), auditLogger)
	quotationService := quotation.NewService(quotation.NewRepository(pool), rfqService, dispatcher, auditLogger)

	deliveryRepo := delivery.NewRepository(pool, allocator)
	orderService := order.NewService(order.NewRepository(pool), quotationService, deliveryRepo, dispatcher, approvals, auditLogger, locker)
	invoiceService := invoice.NewService(invoice.NewRepository(pool, allocator), orderService, masterdataService, dispatcher, auditLogger)
	orderService.SetInvoiceDeriver(invoiceService)

	rfqService.SetMetrics(metrics)
	quotationService.SetMetrics(metrics)
	orderService.SetMetrics(metrics)
	invoiceService.SetMetrics(metrics)

	deliveryService := delivery.NewService(deliveryRepo, orderService, idempotency, auditLogger, locker)
	deliveryService.SetMetrics(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		RFQHandler:        rfq.NewHandler(logger, rfqService),
		QuotationHandler:  quotation.NewHandler(logger, quotationService),
		OrderHandler:      order.NewHandler(logger, orderService),
		DeliveryHandler:   delivery.NewHandler(logger, deliveryService),
		InvoiceHandler:    invoice.NewHandler(logger, invoiceService),
		MasterDataHandler: masterdata.NewHandler(logger, masterdataService),
		JobsHandler:       jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger),
		Pool:              pool,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
