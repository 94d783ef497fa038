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
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	logger "github.com/containers/nri-plugins-metrics/pkg/log"
	"github.com/containers/nri-plugins-metrics/pkg/metrics"
	"github.com/containers/nri-plugins-metrics/pkg/version"
)

const (
	// StandardGroup is the group of the standard collectors.
	StandardGroup = "standard"
)

var (
	log = logger.Get("collectors")
)

// StandardOptions control which standard collectors are registered.
type StandardOptions struct {
	// Namespace prefixes the names of the memory metrics.
	Namespace string
	// Reader provides memory usage, RuntimeMemoryReader if nil.
	Reader MemoryReader
	// SystemMemory enables the host memory collector.
	SystemMemory bool
}

// RegisterStandard registers the standard set of collectors in group
// "standard" of the registry: build, Go runtime and process info from
// client_golang, version info, memory pools, and optionally host memory.
// Collectors which fail to register are skipped and reported in the
// returned error.
func RegisterStandard(r *metrics.Registry, opts StandardOptions) error {
	var errs *multierror.Error

	register := func(name string, c metrics.Collector) {
		err := r.Register(c,
			metrics.WithName(name),
			metrics.WithGroup(StandardGroup),
		)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for _, std := range []struct {
		name      string
		collector prometheus.Collector
	}{
		{"buildinfo", collectors.NewBuildInfoCollector()},
		{"golang", collectors.NewGoCollector()},
		{"process", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})},
	} {
		c, err := NewPrometheusCollector(std.collector)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		register(std.name, c)
	}

	register("versioninfo", NewVersionInfoCollector(version.Version, version.Build))

	reader := opts.Reader
	if reader == nil {
		reader = RuntimeMemoryReader{}
	}
	memory, err := NewMemoryPoolsExporter(opts.Namespace, reader)
	if err != nil {
		errs = multierror.Append(errs, err)
	} else {
		register("memory", memory)
	}

	if opts.SystemMemory {
		register("system", NewSystemMemoryCollector())
	}

	return errs.ErrorOrNil()
}

// errorLimiter limits how often repeated errors get logged.
type errorLimiter struct {
	*rate.Limiter
}

func newErrorLimiter() *errorLimiter {
	return &errorLimiter{rate.NewLimiter(rate.Every(time.Minute), 1)}
}
