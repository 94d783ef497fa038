// Copyright The NRI Plugins Authors. All Rights Reserved.
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

package instrumentation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/instrumentation"
	"github.com/containers/nri-plugins-metrics/pkg/healthz"
	"github.com/containers/nri-plugins-metrics/pkg/http"
	logger "github.com/containers/nri-plugins-metrics/pkg/log"
	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

const (
	// metricsPath is the HTTP path serving Prometheus metrics.
	metricsPath = "/metrics"
	// healthChecker is the name of our health checker.
	healthChecker = "instrumentation"
)

var (
	// Our logger instance.
	log = logger.NewLogger("instrumentation")
)

// Service exports the metrics of a registry over HTTP.
type Service struct {
	sync.RWMutex
	cfg      *cfgapi.Config
	registry *metrics.Registry
	srv      *http.Server
	gatherer atomic.Pointer[metrics.Gatherer]
}

// New creates instrumentation services for the registry. If cfg is nil,
// DefaultConfig() is used.
func New(registry *metrics.Registry, cfg *cfgapi.Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		cfg:      cfg,
		registry: registry,
		srv:      http.NewServer(),
	}
}

// HTTPServer returns our HTTP server.
func (s *Service) HTTPServer() *http.Server {
	return s.srv
}

// Gatherer returns the gatherer of the running service.
func (s *Service) Gatherer() *metrics.Gatherer {
	return s.gatherer.Load()
}

// Start our instrumentation services.
func (s *Service) Start() error {
	log.Info("starting instrumentation services...")

	s.Lock()
	defer s.Unlock()

	return s.start()
}

// Stop our instrumentation services.
func (s *Service) Stop() {
	s.Lock()
	defer s.Unlock()

	s.stop()
}

// Restart our instrumentation services.
func (s *Service) Restart() error {
	s.Lock()
	defer s.Unlock()

	s.stop()

	err := s.start()
	if err != nil {
		log.Error("failed to start instrumentation: %v", err)
	}

	return err
}

// Reconfigure our instrumentation services.
func (s *Service) Reconfigure(cfg *cfgapi.Config) error {
	s.Lock()
	s.cfg = cfg
	s.Unlock()

	return s.Restart()
}

func (s *Service) start() error {
	if err := s.srv.Start(s.cfg.HTTPEndpoint); err != nil {
		return instrumentationError("failed to start HTTP server: %w", err)
	}

	opts := []metrics.GathererOption{
		metrics.WithPollInterval(s.cfg.ReportPeriod.Duration),
	}
	if s.cfg.ReportPeriod.Duration == 0 {
		opts[0] = metrics.WithoutPolling()
	}
	if m := s.cfg.Metrics; m != nil {
		opts = append(opts, metrics.WithMetrics(m.Enabled, m.Polled))
	}

	g, err := s.registry.NewGatherer(opts...)
	if err != nil {
		s.srv.Stop()
		return instrumentationError("failed to set up metrics: %w", err)
	}
	s.gatherer.Store(g)

	mux := s.srv.GetMux()
	if s.cfg.PrometheusExport {
		handlerOpts := promhttp.HandlerOpts{
			ErrorLog:      log,
			ErrorHandling: promhttp.ContinueOnError,
		}
		mux.Handle(metricsPath, promhttp.HandlerFor(g, handlerOpts))
		log.Info("exporting Prometheus metrics at %s", metricsPath)
	} else {
		log.Info("Prometheus metrics export is disabled")
	}

	healthz.Setup(mux)
	healthz.RegisterHealthChecker(healthChecker, s.check)

	return nil
}

func (s *Service) stop() {
	g := s.gatherer.Swap(nil)
	if g == nil {
		return
	}

	healthz.UnregisterHealthChecker(healthChecker)
	s.srv.GetMux().Unregister(metricsPath)
	g.Stop()
	s.srv.Stop()
}

// check reports the service degraded if gathering metrics fails.
func (s *Service) check() (healthz.Status, error) {
	g := s.Gatherer()
	if g == nil {
		return healthz.NonFunctional, instrumentationError("not running")
	}
	if _, err := g.Gather(); err != nil {
		return healthz.Degraded, err
	}
	return healthz.Healthy, nil
}

func instrumentationError(format string, args ...interface{}) error {
	return fmt.Errorf("instrumentation: "+format, args...)
}
