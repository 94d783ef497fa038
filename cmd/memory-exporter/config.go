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

package main

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1"
	"github.com/containers/nri-plugins-metrics/pkg/instrumentation"
)

// defaultConfig returns the configuration used without a config file.
func defaultConfig() *cfgapi.MemoryExporter {
	return &cfgapi.MemoryExporter{
		Spec: cfgapi.MemoryExporterSpec{
			Instrumentation: *instrumentation.DefaultConfig(),
		},
	}
}

// loadConfig reads the given YAML configuration file on top of defaults.
func loadConfig(path string) (*cfgapi.MemoryExporter, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %q", path)
	}

	return parseConfig(cfg, data)
}

func parseConfig(cfg *cfgapi.MemoryExporter, data []byte) (*cfgapi.MemoryExporter, error) {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration")
	}
	if cfg.Spec.Instrumentation.GCWatchPeriod.Duration < 0 {
		return nil, errors.Errorf("invalid GC watch period %s",
			cfg.Spec.Instrumentation.GCWatchPeriod.Duration)
	}
	if cfg.Spec.Instrumentation.ReportPeriod.Duration < 0 {
		return nil, errors.Errorf("invalid report period %s",
			cfg.Spec.Instrumentation.ReportPeriod.Duration)
	}
	return cfg, nil
}
