package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/server"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/service"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store/memory"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store/postgres"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/workflow"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/secrets"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/tracer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, demo)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo users into the memory store and log their tokens")
	return cmd
}

// loadConfig applies the secrets overlay before validation so values held
// in AWS satisfy the production checks.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := secrets.Overlay(ctx, cfg); err != nil {
		return nil, fmt.Errorf("applying secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer(ctx context.Context, demo bool) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	m := metrics.NewCollector(cfg.App.Name)

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("closing store", zap.Error(err))
		}
	}()

	repos := st.Repos()
	jwt := auth.NewJWTManager(cfg.JWT)

	if demo {
		if cfg.Store.Driver != store.DriverMemory {
			return fmt.Errorf("--demo requires STORE_DRIVER=memory")
		}
		if err := seedDemo(ctx, repos, jwt, log); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	auditSvc := service.NewAuditService(repos.Audit, log, m)

	publisher, err := newPublisher(cfg.Notification, log)
	if err != nil {
		return err
	}
	dispatcher := notification.NewDispatcher(repos.Users, publisher, notification.DispatcherConfig{
		BufferSize:  cfg.Notification.BufferSize,
		SendTimeout: cfg.Notification.SendTimeout,
	}, log, m)

	wf := workflow.New(st, dispatcher, auditSvc, m, log)

	users := service.NewUserService(repos, auditSvc, log)
	handler := v1.NewHandler(v1.Services{
		Users:         users,
		Appointments:  service.NewAppointmentService(repos, wf, auditSvc, m, log),
		Prescriptions: service.NewPrescriptionService(repos, wf, log),
		Stock:         service.NewStockService(repos, auditSvc, log),
		Pharmacies:    service.NewPharmacyService(repos, auditSvc, log),
	}, log, cfg.App.IsDevelopment())

	router := server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Handler: handler,
		Tokens:  jwt,
		Users:   users,
		Metrics: m,
		Health:  st,
		Log:     log,
	})

	srv := server.New(cfg.Server, router, log)
	runErr := srv.Run(ctx)

	// Drain buffered side effects after the listener stops accepting work.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Warn("notification dispatcher shutdown", zap.Error(err))
	}
	auditSvc.Shutdown(drainCtx)

	log.Info("server stopped")
	return runErr
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case store.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		return postgres.New(db), nil
	}
}

func newPublisher(cfg config.NotificationConfig, log *zap.Logger) (notification.Publisher, error) {
	switch cfg.Publisher {
	case "log":
		return notification.NewLogPublisher(log), nil
	case "kafka":
		kp := notification.NewKafkaPublisher(notification.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			WriteTimeout: cfg.SendTimeout,
		})
		return notification.NewBreakerPublisher(kp, notification.BreakerConfig{
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown notification publisher %q", cfg.Publisher)
	}
}
