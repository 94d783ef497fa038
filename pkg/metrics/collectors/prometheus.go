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

package collectors

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

// NewVersionInfoCollector returns a collector with a constant '1' gauge
// labeled by version and build info.
func NewVersionInfoCollector(v, b string) *metrics.FamilyBuilder {
	info := metrics.NewGaugeMetricFamily("version_info",
		"A metric with constant '1' value labeled by version and build info.",
		"version", "build")
	if err := info.AddMetric([]string{v, b}, 1); err != nil {
		log.Error("failed to set version info: %v", err)
	}
	return info
}

// PrometheusCollector adapts a prometheus.Collector into a metrics.Collector.
type PrometheusCollector struct {
	registry *prometheus.Registry
	limiter  *errorLimiter
}

// NewPrometheusCollector creates an adapter for the given prometheus.Collector.
func NewPrometheusCollector(c prometheus.Collector) (*PrometheusCollector, error) {
	r := prometheus.NewPedanticRegistry()
	if err := r.Register(c); err != nil {
		return nil, err
	}
	return &PrometheusCollector{
		registry: r,
		limiter:  newErrorLimiter(),
	}, nil
}

// Collect implements metrics.Collector.
func (c *PrometheusCollector) Collect() []*metrics.MetricFamilySamples {
	mfs, err := c.registry.Gather()
	if err != nil && c.limiter.Allow() {
		log.Error("failed to gather prometheus collector: %v", err)
	}

	families := make([]*metrics.MetricFamilySamples, 0, len(mfs))
	for _, mf := range mfs {
		families = append(families, metrics.FamilyFromModel(mf))
	}

	return families
}
