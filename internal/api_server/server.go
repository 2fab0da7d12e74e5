package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/auth"
	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/handlers"
	"github.com/openpolicy/civicdata/internal/policy"
	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/service"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/tasks"
	"github.com/openpolicy/civicdata/pkg/metrics"
	"github.com/openpolicy/civicdata/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg       *config.Config
	store     store.Store
	scheduler *tasks.Scheduler
	evaluator *policy.Evaluator
	listener  net.Listener
}

// New returns a new instance of the civic data API server.
func New(
	cfg *config.Config,
	store store.Store,
	scheduler *tasks.Scheduler,
	evaluator *policy.Evaluator,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		evaluator: evaluator,
		listener:  listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return err
	}

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		authenticator.Authenticator,
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	validator := quality.NewValidator(nil)
	handler := handlers.NewHandler(
		service.NewTaskService(s.scheduler),
		service.NewBillService(s.store),
		service.NewValidationService(s.store, validator),
		service.NewHealthService(s.store, s.evaluator),
	)

	// liveness probe stays outside the policy gate
	handler.RegisterHealth(router)

	router.Group(func(r chi.Router) {
		r.Use(policy.Gate(s.evaluator, auth.RoleFromRequest))
		handler.RegisterApi(r)
	})

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
