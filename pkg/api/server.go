// Package api serves the ledger over HTTP.
//
// Every route under /api/v1 requires the X-API-Key header; /metrics is
// left open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// NewRouter wires every route of s.
func NewRouter(s *Server) http.Handler {
	metrics := s.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/accounts/{address}",
			metrics.InstrumentHandler("GET", "/api/v1/accounts/{address}", s.handleGetAccount))
		r.Get("/accounts/{address}/extensions/{tag}",
			metrics.InstrumentHandler("GET", "/api/v1/accounts/{address}/extensions/{tag}", s.handleGetExtension))
		r.Post("/accounts/{address}/airdrop",
			metrics.InstrumentHandler("POST", "/api/v1/accounts/{address}/airdrop", s.handleAirdrop))

		r.Post("/instructions", metrics.InstrumentHandler("POST", "/api/v1/instructions", s.handleInstruction))
		r.Post("/state", metrics.InstrumentHandler("POST", "/api/v1/state", s.handleInitializeState))
	})

	return r
}

// StartServer serves l until ctx is done, then shuts down gracefully.
func StartServer(ctx context.Context, l Ledger, config ServerConfig, logger zerolog.Logger) error {
	server := NewServer(l, config, NewMetrics(), logger)

	bind := config.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	addr := net.JoinHostPort(bind, fmt.Sprint(config.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
