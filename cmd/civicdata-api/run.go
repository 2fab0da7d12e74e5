package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	jitterbug "github.com/lthibault/jitterbug/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/openpolicy/civicdata/internal/api_server"
	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/events"
	"github.com/openpolicy/civicdata/internal/opa"
	"github.com/openpolicy/civicdata/internal/policy"
	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/service"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/tasks"
	"github.com/openpolicy/civicdata/pkg/log"
	"github.com/openpolicy/civicdata/pkg/migrations"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the civic data api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logger := log.InitLog(cfg.Service.LogLevel)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Service.MigrationFolder != "" {
			if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
				zap.S().Fatalw("running migrations", "error", err)
			}
		} else if err := s.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		engineURL := cfg.Service.Policy.EngineURL
		if cfg.Service.Policy.Embedded {
			manager := opa.NewManager(cfg.Service.Policy.PoliciesDir)
			if err := manager.Initialize(); err != nil {
				zap.S().Fatalw("starting embedded policy engine", "error", err)
			}
			defer manager.Shutdown()
			engineURL = manager.Address()
		}
		evaluator := policy.NewEvaluator(policy.NewEngineClient(engineURL, cfg.Service.Policy.DecisionPath, cfg.Service.Policy.EngineTimeout))

		eventProducer := events.NewEventProducer(&events.StdoutWriter{})
		defer eventProducer.Close()

		validator := quality.NewValidator(nil)
		scheduler := tasks.NewScheduler(cfg.Service.Scheduler, s, tasks.DefaultCollectors(s, validator), tasks.WithEventWriter(eventProducer))
		scheduler.Start(ctx)

		validationService := service.NewValidationService(s, validator)
		go func() {
			ticker := jitterbug.New(cfg.Service.Quality.BatchInterval, &jitterbug.Norm{Stdev: 30 * time.Second, Mean: 0})
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := validationService.RunBatchValidation(ctx); err != nil {
						zap.S().Named("validation").Errorw("batch validation failed", "error", err)
					}
				}
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, s, scheduler, evaluator, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		scheduler.Wait()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
