package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	invhttp "github.com/tair/plantops/internal/inventory/delivery/http"
	"github.com/tair/plantops/internal/organization/access"
	orghttp "github.com/tair/plantops/internal/organization/delivery/http"
	"github.com/tair/plantops/internal/organization/graph"
	prochttp "github.com/tair/plantops/internal/procurement/delivery/http"
	"github.com/tair/plantops/kafka"
	"github.com/tair/plantops/pkg/auth"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/httputil"
	"github.com/tair/plantops/pkg/logger"
)

// Server owns the HTTP surface of the service
type Server struct {
	cfg    config.Config
	infra  *Infrastructure
	tokens *auth.TokenService
	graphs *graph.Cache

	authenticator *orghttp.Authenticator
	organization  *orghttp.OrganizationHandler
	inventory     *invhttp.InventoryHandler
	procurement   *prochttp.ProcurementHandler
}

// NewServer creates a new server
func NewServer(
	infra *Infrastructure,
	tokens *auth.TokenService,
	graphs *graph.Cache,
	authenticator *orghttp.Authenticator,
	organization *orghttp.OrganizationHandler,
	inventory *invhttp.InventoryHandler,
	procurement *prochttp.ProcurementHandler,
) *Server {
	return &Server{
		cfg:           infra.Config,
		infra:         infra,
		tokens:        tokens,
		graphs:        graphs,
		authenticator: authenticator,
		organization:  organization,
		inventory:     inventory,
		procurement:   procurement,
	}
}

// Tokens returns the token service
func (s *Server) Tokens() *auth.TokenService {
	return s.tokens
}

// Router builds the route tree with every middleware applied
func (s *Server) Router() http.Handler {
	middlewares := httputil.DefaultMiddlewareConfig(s.cfg.RequestTimeout)
	middlewares.EnableTracing = s.cfg.TracingEnabled

	router := mux.NewRouter()
	httputil.RegisterMiddlewares(router, middlewares)

	router.HandleFunc("/health", s.health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.authenticator.Middleware)
	if s.infra.Redis != nil && s.cfg.Redis.RateLimit > 0 {
		limiter := httputil.NewRateLimiter(s.infra.Redis, s.cfg.Redis.RateLimit, s.cfg.Redis.RateWindow, employeeKey)
		api.Use(limiter.Middleware)
	}
	s.organization.RegisterRoutes(api)
	s.inventory.RegisterRoutes(api)
	s.procurement.RegisterRoutes(api)

	return httputil.CORS(middlewares)(router)
}

// StartConsumers subscribes to department tree changes of other instances
func (s *Server) StartConsumers(ctx context.Context) {
	if s.infra.Consumer == nil {
		return
	}
	s.infra.Consumer.RegisterHandler(kafka.EventTypeDepartmentTreeChanged, kafka.TreeChangedHandler(s.graphs))
	s.infra.Consumer.Start(ctx)
}

// Serve listens until ctx is cancelled and then shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.HTTPPort,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().
			Str("port", s.cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger", "/swagger/index.html").
			Msg("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func employeeKey(r *http.Request) string {
	if actor, ok := access.ActorFrom(r.Context()); ok {
		return fmt.Sprintf("employee:%d", actor.ID)
	}
	return ""
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.infra.Store.Ping(r.Context()); err != nil {
		logger.Warn(r.Context()).Err(err).Msg("Health check failed")
		httputil.RespondMessage(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	httputil.RespondOK(w, http.StatusOK, "plantops is healthy", nil)
}
