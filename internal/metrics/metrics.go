// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus collectors for streaming requests.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeBusy    = "busy"
	OutcomeEmpty   = "empty"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	FragmentsTotal prometheus.Counter
	BytesReceived  prometheus.Counter
	InFlight       prometheus.Gauge
	StreamDuration prometheus.Histogram
	StaleUpdates   prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petalmind",
			Name:      "requests_total",
			Help:      "Chat submissions by outcome.",
		}, []string{"outcome"}),
		FragmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petalmind",
			Name:      "fragments_total",
			Help:      "Decoded fragments folded into assistant messages.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petalmind",
			Name:      "received_bytes_total",
			Help:      "Response body bytes read from the chat endpoint.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "petalmind",
			Name:      "streams_in_flight",
			Help:      "1 while a response is streaming.",
		}),
		StreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "petalmind",
			Name:      "stream_duration_seconds",
			Help:      "Time from request to end of stream.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StaleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petalmind",
			Name:      "stale_updates_total",
			Help:      "Store updates that targeted a missing or sealed message.",
		}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.FragmentsTotal,
		m.BytesReceived,
		m.InFlight,
		m.StreamDuration,
		m.StaleUpdates,
	)
	return m
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics server on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
