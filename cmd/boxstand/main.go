package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	availabilityapp "boxstand/internal/app/handlers/availability"
	bookingapp "boxstand/internal/app/handlers/booking"
	"boxstand/internal/app/policies"
	"boxstand/internal/app/uow"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	"boxstand/internal/domain/shared/money"
	"boxstand/internal/infra/broker/kafka"
	"boxstand/internal/infra/config"
	mongodb "boxstand/internal/infra/db/mongo"
	ginserver "boxstand/internal/infra/http/gin"
	"boxstand/internal/infra/notify"
	"boxstand/internal/infra/obs"
	paymentsinfra "boxstand/internal/infra/payments"
	"boxstand/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	obs.Register()

	uowFactory, ready, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	notifier := buildNotifier(cfg, logger)

	ledger := paymentsinfra.NewSelector(&paymentsinfra.Client{
		HTTP:    &http.Client{Timeout: cfg.ProcessorTimeout},
		BaseURL: cfg.ProcessorBaseURL,
		APIKey:  cfg.ProcessorAPIKey,
	})

	policy := domainbooking.RefundPolicy{
		TransactionFee: money.Must(cfg.TransactionFee, cfg.Currency),
	}

	createHandler := &bookingapp.CreateBookingHandler{UoWFactory: uowFactory, Notifier: notifier, Logger: logger}
	cancelHandler := &bookingapp.CancelBookingHandler{
		UoWFactory:    uowFactory,
		Ledger:        ledger,
		Notifier:      notifier,
		Policy:        policy,
		Logger:        logger,
		LedgerTimeout: cfg.ProcessorTimeout,
	}
	returnHandler := &bookingapp.ReturnBoxHandler{UoWFactory: uowFactory, Notifier: notifier, Logger: logger}
	previewHandler := &bookingapp.PreviewRefundHandler{UoWFactory: uowFactory, Policy: policy}
	syncHandler := &bookingapp.SyncStatusesHandler{UoWFactory: uowFactory, Logger: logger}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			CreateHandler:  createHandler,
			CancelHandler:  cancelHandler,
			ReturnHandler:  returnHandler,
			PreviewHandler: previewHandler,
		},
		Availability: ginserver.AvailabilityHandler{
			Queries: &availabilityapp.Handler{UoWFactory: uowFactory},
		},
		Maintenance: ginserver.MaintenanceHandler{Sync: syncHandler},
	})

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.StatusSyncSchedule, func() {
		result, err := syncHandler.Handle(ctx)
		if err != nil {
			logger.Error("scheduled status sync failed", "error", err)
			return
		}
		obs.AddStatusTransitions(float64(result.Applied))
	})
	if err != nil {
		logger.Error("invalid status sync schedule", "schedule", cfg.StatusSyncSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (uow.UoWFactory, func() error, error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		factory := memory.NewFactory()
		if err := loadBoxFixtures(ctx, factory, logger); err != nil {
			return nil, nil, err
		}
		return factory, func() error { return nil }, nil
	}
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	factory := mongodb.Factory{
		DB:          client.DB,
		BookingRepo: mongodb.NewBookingRepository(client.DB),
		PaymentRepo: mongodb.NewPaymentRepository(client.DB),
		BoxRepo:     mongodb.NewBoxRepository(client.DB),
	}
	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx)
	}
	return factory, ready, nil
}

func buildNotifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, notifications go to the log")
		return notify.LogNotifier{Logger: logger}
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Warn("kafka producer init failed, notifications go to the log", "error", err)
		return notify.LogNotifier{Logger: logger}
	}
	return notify.KafkaNotifier{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix, Source: "boxstand", Logger: logger}
}

type boxFixture struct {
	ID      string `json:"id"`
	StandID string `json:"stand_id"`
	Label   string `json:"label"`
	Active  *bool  `json:"active"`
}

// loadBoxFixtures seeds boxes for the in-memory dev mode.
func loadBoxFixtures(ctx context.Context, factory memory.Factory, logger *slog.Logger) error {
	path := os.Getenv("BOX_FIXTURES")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("box fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []boxFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		active := true
		if fx.Active != nil {
			active = *fx.Active
		}
		box := &domainboxes.Box{
			ID:      domainboxes.BoxID(fx.ID),
			StandID: fx.StandID,
			Label:   fx.Label,
			Active:  active,
		}
		if err := factory.BoxRepo.Save(ctx, box); err != nil {
			return err
		}
	}
	logger.Info("box fixtures loaded", "count", len(fixtures))
	return nil
}
