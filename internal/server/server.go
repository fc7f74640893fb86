// Package server exposes the HTTP API: product observation CRUD, the cron
// refresh trigger, health, and Prometheus metrics.
package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"price-notifier/internal/config"
	"price-notifier/internal/product"
	"price-notifier/internal/refresh"
)

// Server wires the HTTP handlers over the product service and refresher.
type Server struct {
	cfg       config.ServerConfig
	products  *product.Service
	refresher *refresh.Refresher
	metrics   http.Handler
	health    func(ctx context.Context) error
	logger    zerolog.Logger
}

// New constructs the server. metricsHandler serves GET /metrics; healthCheck
// is probed by GET /healthz and may be nil.
func New(cfg config.ServerConfig, products *product.Service, refresher *refresh.Refresher, metricsHandler http.Handler, healthCheck func(ctx context.Context) error, logger zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		products:  products,
		refresher: refresher,
		metrics:   metricsHandler,
		health:    healthCheck,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// Handler builds the routing table with request-id and access logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics)

	mux.HandleFunc("POST /api/cron/update-prices", s.handleRefresh)

	mux.HandleFunc("POST /api/products/search", s.handleObserveByName)
	mux.HandleFunc("POST /api/products/url", s.handleObserveByURL)
	mux.HandleFunc("GET /api/products", s.handleList)
	mux.HandleFunc("GET /api/products/{id}", s.handleDetails)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleDelete)

	return requestID(accessLog(s.logger, mux))
}

// HTTPServer returns a configured *http.Server ready to listen.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}
