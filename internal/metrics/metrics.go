/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package metrics provides Prometheus metrics for the Aviary server.

METRIC CATEGORIES:
==================
  - Requests: handled (by type and status), latency histogram
  - Connections: accepted total, currently being served
  - Queue: connections waiting for a worker
  - Table: number of birds
  - Snapshots: saves by result, save latency

PROMETHEUS ENDPOINT:
====================
Metrics are exposed at /metrics in Prometheus text format.

EXAMPLE METRICS:
================

	aviary_requests_total{type="ADD_BIRD",status="ok"} 12
	aviary_requests_total{type="REMOVE",status="not_found"} 1
	aviary_connections_active 3
	aviary_queue_depth 0
	aviary_birds 42

A nil *Metrics is valid and records nothing, so callers never need to
check whether metrics are enabled.
*/
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aviary/internal/config"
	"aviary/internal/logging"
)

const namespace = "aviary"

// Metrics holds the server's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	connsTotal      prometheus.Counter
	connsActive     prometheus.Gauge
	queueDepth      prometheus.Gauge
	snapshots       *prometheus.CounterVec
	snapshotTime    prometheus.Histogram
}

// New creates a registry with every Aviary collector plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by type and result status.",
		}, []string{"type", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from reading a request to writing its response.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"type"}),
		connsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted.",
		}),
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served by a worker.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Accepted connections waiting for a worker.",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot saves, by result.",
		}, []string{"result"}),
		snapshotTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time taken by a snapshot save.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.connsTotal,
		m.connsActive,
		m.queueDepth,
		m.snapshots,
		m.snapshotTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackBirds exposes the size of the table, read on every scrape.
func (m *Metrics) TrackBirds(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "birds",
		Help:      "Birds currently in the table.",
	}, func() float64 { return float64(count()) }))
}

// RecordRequest records one handled request.
func (m *Metrics) RecordRequest(msgType, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(msgType, status).Inc()
	m.requestDuration.WithLabelValues(msgType).Observe(latency.Seconds())
}

// ConnectionAccepted records a connection handed to the queue.
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connsTotal.Inc()
}

// ConnectionOpened records a worker picking up a connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connsActive.Inc()
}

// ConnectionClosed records a worker finishing a connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// SetQueueDepth records the number of waiting connections.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// RecordSnapshot records one snapshot save. Its signature matches the
// snapshot scheduler's observer.
func (m *Metrics) RecordSnapshot(err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshots.WithLabelValues(result).Inc()
	m.snapshotTime.Observe(took.Seconds())
}

// Server provides an HTTP server for Prometheus metrics.
type Server struct {
	config  *config.MetricsConfig
	metrics *Metrics
	server  *http.Server
	logger  *logging.Logger
}

// NewServer creates a new metrics server.
func NewServer(cfg *config.MetricsConfig, m *Metrics) *Server {
	return &Server{
		config:  cfg,
		metrics: m,
		logger:  logging.NewLogger("metrics"),
	}
}

// Handler returns the /metrics handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the metrics HTTP server.
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("Starting metrics server", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the metrics HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping metrics server")
	return s.server.Shutdown(ctx)
}
