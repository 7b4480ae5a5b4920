// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Package metrics exposes Prometheus metrics for admission decisions, the
// route table and policy reloads.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

// Metrics owns its registry so that tests can create as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	// AdmissionDecisions counts admission checks by origin, kind and result.
	AdmissionDecisions *prometheus.CounterVec

	// Routes is the number of routes in the table by kind.
	Routes *prometheus.GaugeVec

	// PolicyReloads counts policy reloads by result.
	PolicyReloads *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		AdmissionDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ros2bridge_admission_decisions_total",
				Help: "Total number of admission decisions by origin, kind and result",
			},
			[]string{"origin", "kind", "result"},
		),
		Routes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ros2bridge_routes",
				Help: "Number of bridged routes by kind",
			},
			[]string{"kind"},
		),
		PolicyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ros2bridge_policy_reloads_total",
				Help: "Total number of policy reloads by result",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(
		m.AdmissionDecisions,
		m.Routes,
		m.PolicyReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDecision(origin string, kind core.Kind, allowed bool) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.AdmissionDecisions.WithLabelValues(origin, kind.String(), result).Inc()
}

func (m *Metrics) SetRoutes(kind core.Kind, n int) {
	if m == nil {
		return
	}
	m.Routes.WithLabelValues(kind.String()).Set(float64(n))
}

func (m *Metrics) ObserveReload(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.PolicyReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on port until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server starting", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
