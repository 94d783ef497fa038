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
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/instrumentation"
	mcfg "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/metrics"
	"github.com/containers/nri-plugins-metrics/pkg/utils"
)

const (
	// defaultReportPeriod is the default polling period for polled collectors.
	defaultReportPeriod = "30s"
	// defaultGCWatchPeriod is the default period of checking for GC cycles.
	defaultGCWatchPeriod = "1s"
	// defaultHTTPEndpoint is the default HTTP endpoint serving Prometheus /metrics.
	defaultHTTPEndpoint = ""
	// defaultPrometheusExport is the default state for Prometheus exporting.
	defaultPrometheusExport = "true"
	// defaultNamespace is the default namespace of exported metrics.
	defaultNamespace = "go"
)

// parseEnv parses the environment for default values.
func parseEnv(name, defval string, parsefn func(string) error) {
	if envval := os.Getenv(name); envval != "" {
		err := parsefn(envval)
		if err == nil {
			return
		}
		log.Error("invalid environment %s=%q: %v, using default %q", name, envval, err, defval)
	}
	if err := parsefn(defval); err != nil {
		log.Error("invalid default %s=%q: %v", name, defval, err)
	}
}

// DefaultConfig returns a new configuration, initialized to defaults which
// can be overridden by the environment.
func DefaultConfig() *cfgapi.Config {
	cfg := &cfgapi.Config{
		Metrics: &mcfg.Config{
			Enabled: []string{"*"},
		},
	}

	type param struct {
		defval  string
		parsefn func(string) error
	}

	duration := func(d *metav1.Duration) func(string) error {
		return func(v string) error {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			d.Duration = parsed
			return nil
		}
	}

	params := map[string]param{
		"HTTP_ENDPOINT": {
			defaultHTTPEndpoint,
			func(v string) error { cfg.HTTPEndpoint = v; return nil },
		},
		"METRICS_NAMESPACE": {
			defaultNamespace,
			func(v string) error { cfg.Namespace = v; return nil },
		},
		"PROMETHEUS_EXPORT": {
			defaultPrometheusExport,
			func(v string) error {
				enabled, err := utils.ParseEnabled(v)
				if err != nil {
					return err
				}
				cfg.PrometheusExport = enabled
				return nil
			},
		},
		"REPORT_PERIOD": {
			defaultReportPeriod,
			duration(&cfg.ReportPeriod),
		},
		"GC_WATCH_PERIOD": {
			defaultGCWatchPeriod,
			duration(&cfg.GCWatchPeriod),
		},
	}

	for envvar, p := range params {
		parseEnv(envvar, p.defval, p.parsefn)
	}

	return cfg
}
