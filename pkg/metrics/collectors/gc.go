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
	"context"
	"time"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

const (
	// RuntimeGC is the collector name of the Go runtime garbage collector.
	RuntimeGC = "go"
	// DefaultGCWatchPeriod is the default interval of checking for GC cycles.
	DefaultGCWatchPeriod = time.Second
)

// GCReader is a MemoryReader which also counts garbage collection cycles.
type GCReader interface {
	MemoryReader
	// GCCycles returns the number of completed GC cycles.
	GCCycles() uint32
}

// GCEvent describes the memory pools right after a garbage collection.
type GCEvent struct {
	// Collector is the name of the garbage collector.
	Collector string
	// Pools are the pools with their usage after the collection.
	Pools []MemoryPool
}

// GCWatcher tracks the used bytes of memory pools right after garbage
// collection cycles. It is updated only by events, not continuously.
type GCWatcher struct {
	reader GCReader
	gauge  *metrics.Gauge
	cycles uint32
}

// NewGCWatcher creates a GC watcher for the given reader, with its metric
// name prefixed by namespace.
func NewGCWatcher(namespace string, reader GCReader) (*GCWatcher, error) {
	gauge, err := metrics.NewGauge(metrics.Opts{
		Namespace:  namespace,
		Subsystem:  "memory_pool",
		Name:       "gc_bytes",
		Help:       "Used bytes in pool right after a GC. Only updated after GC, not continuously.",
		LabelNames: []string{"pool", "gc"},
	})
	if err != nil {
		return nil, err
	}

	return &GCWatcher{
		reader: reader,
		gauge:  gauge,
		cycles: reader.GCCycles(),
	}, nil
}

// Handle updates the watched gauge from a GC event.
func (w *GCWatcher) Handle(ev GCEvent) {
	for _, p := range ev.Pools {
		w.gauge.MustLabels(p.Name, ev.Collector).Set(float64(p.Usage.Used))
	}
}

// Run checks for completed GC cycles every period until ctx is done.
func (w *GCWatcher) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = DefaultGCWatchPeriod
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Info("watching GC cycles every %s", period)

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped watching GC cycles")
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *GCWatcher) check() {
	cycles := w.reader.GCCycles()
	if cycles == w.cycles {
		return
	}

	log.Debug("%d GC cycle(s) completed", cycles-w.cycles)
	w.cycles = cycles
	w.Handle(GCEvent{
		Collector: RuntimeGC,
		Pools:     w.reader.Pools(),
	})
}

// Collect implements metrics.Collector.
func (w *GCWatcher) Collect() []*metrics.MetricFamilySamples {
	return w.gauge.Collect()
}

// Describe implements metrics.Describer.
func (w *GCWatcher) Describe() []*metrics.MetricFamilySamples {
	return w.gauge.Describe()
}
