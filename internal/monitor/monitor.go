// Copyright 2021 The TecnicoFS Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package monitor counts served commands and optionally exposes them over
// HTTP in Prometheus format.
package monitor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tecnicofs/tecnicofs/internal/logger"
)

// Metrics holds the command counters. All methods are safe for concurrent
// use.
type Metrics struct {
	registry *prometheus.Registry

	commands *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics builds a metrics set on a fresh registry.
func NewMetrics() (m *Metrics) {
	m = &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tecnicofs_commands_total",
				Help: "Commands dispatched, by opcode.",
			},
			[]string{"op"}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tecnicofs_command_failures_total",
				Help: "Commands that returned a failure, by opcode.",
			},
			[]string{"op"}),
	}

	m.registry.MustRegister(m.commands, m.failures)
	return
}

// RecordCommand counts one dispatched command.
func (m *Metrics) RecordCommand(op string, failed bool) {
	m.commands.WithLabelValues(op).Inc()
	if failed {
		m.failures.WithLabelValues(op).Inc()
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on localhost at the supplied port. The
// returned server listens and serves in a background goroutine; a listen
// failure is logged, not returned. Shut it down with its Close method.
func StartServer(port int, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server: %v", err)
		}
	}()

	return srv
}
