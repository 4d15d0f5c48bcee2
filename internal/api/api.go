package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chatting-demo-backend/internal/api/middleware"
	"chatting-demo-backend/internal/jwt"
	"chatting-demo-backend/internal/queue"
	"chatting-demo-backend/internal/service/conversation"
	"chatting-demo-backend/internal/service/directory"
	"chatting-demo-backend/internal/service/media"
	"chatting-demo-backend/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Services are the collaborators route registrars hand to endpoints.
type Services struct {
	Conversations *conversation.Service
	Directory     *directory.Service
	Media         *media.Resolver
	Sessions      *jwt.Issuer
	Streams       *websocket.Handler
}

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Registerer and Gatherer default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	services            Services
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
	logger              zerolog.Logger
	cors                middleware.CORSConfig
	limiter             *middleware.LimiterStore
}

func NewAPIServer(cfg Config, rqm *queue.RequestQueueManager, services Services, logger zerolog.Logger, registrars ...RouteRegistrar) *APIServer {
	reg, gatherer := cfg.Registerer, cfg.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &APIServer{
		listenAddr:          cfg.ListenAddr,
		requestQueueManager: rqm,
		services:            services,
		routeRegistrars:     registrars,
		metrics:             newMetrics(reg, gatherer, cfg.ListenAddr, rqm),
		logger:              logger.With().Str("component", "api").Logger(),
		cors: middleware.CORSConfig{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS", "DELETE"},
			AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization"},
			AllowCredentials: true,
		},
		limiter: middleware.NewLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Minute),
	}
}

// Handler builds the routed and instrumented handler.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *APIServer) Run(ctx context.Context) error {
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.listenAddr).Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *APIServer) Close() {
	s.limiter.Stop()
}

func (s *APIServer) Services() Services {
	return s.services
}

func (s *APIServer) Logger() zerolog.Logger {
	return s.logger
}

// RequireSession is the bearer-token middleware for authenticated routes.
func (s *APIServer) RequireSession() middleware.Middleware {
	return middleware.RequireSession(s.services.Sessions)
}
