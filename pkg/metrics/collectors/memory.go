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
	"math"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

// MemoryUsage is the usage of a memory area or pool, in bytes. Max is
// negative if the area or pool has no defined limit.
type MemoryUsage struct {
	Used      int64
	Committed int64
	Max       int64
	Init      int64
}

// MemoryPool is the usage of a named memory pool.
type MemoryPool struct {
	Name  string
	Usage MemoryUsage
}

// MemoryReader provides the current usage of memory areas and pools.
type MemoryReader interface {
	// Areas returns the usage of memory areas, typically heap and nonheap.
	Areas() map[string]MemoryUsage
	// Pools returns the usage of memory pools.
	Pools() []MemoryPool
}

// RuntimeMemoryReader reads memory usage from the Go runtime.
type RuntimeMemoryReader struct{}

var _ GCReader = RuntimeMemoryReader{}

func (RuntimeMemoryReader) read() *runtime.MemStats {
	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	return ms
}

// memoryLimit returns the soft memory limit of the runtime, -1 if none is set.
func memoryLimit() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 {
		return -1
	}
	return limit
}

// Areas implements MemoryReader.
func (r RuntimeMemoryReader) Areas() map[string]MemoryUsage {
	ms := r.read()
	return map[string]MemoryUsage{
		"heap": {
			Used:      int64(ms.HeapAlloc),
			Committed: int64(ms.HeapSys - ms.HeapReleased),
			Max:       memoryLimit(),
		},
		"nonheap": {
			Used: int64(ms.StackInuse + ms.MSpanInuse + ms.MCacheInuse +
				ms.BuckHashSys + ms.GCSys + ms.OtherSys),
			Committed: int64(ms.StackSys + ms.MSpanSys + ms.MCacheSys +
				ms.BuckHashSys + ms.GCSys + ms.OtherSys),
			Max: -1,
		},
	}
}

// Pools implements MemoryReader.
func (r RuntimeMemoryReader) Pools() []MemoryPool {
	ms := r.read()
	pool := func(name string, used, committed uint64) MemoryPool {
		return MemoryPool{
			Name:  name,
			Usage: MemoryUsage{Used: int64(used), Committed: int64(committed), Max: -1},
		}
	}
	return []MemoryPool{
		pool("heap", ms.HeapAlloc, ms.HeapSys-ms.HeapReleased),
		pool("stack", ms.StackInuse, ms.StackSys),
		pool("mspan", ms.MSpanInuse, ms.MSpanSys),
		pool("mcache", ms.MCacheInuse, ms.MCacheSys),
		pool("buckhash", ms.BuckHashSys, ms.BuckHashSys),
		pool("gc", ms.GCSys, ms.GCSys),
		pool("other", ms.OtherSys, ms.OtherSys),
	}
}

// GCCycles implements GCReader.
func (r RuntimeMemoryReader) GCCycles() uint32 {
	return r.read().NumGC
}

// MemoryPoolsExporter exports the usage of memory areas and pools.
// The used bytes of areas are kept in a labeled gauge, all other values
// in family builders which are refreshed on each collection.
type MemoryPoolsExporter struct {
	sync.Mutex
	reader        MemoryReader
	used          *metrics.Gauge
	committed     *metrics.FamilyBuilder
	max           *metrics.FamilyBuilder
	init          *metrics.FamilyBuilder
	poolUsed      *metrics.FamilyBuilder
	poolCommitted *metrics.FamilyBuilder
	poolMax       *metrics.FamilyBuilder
	poolInit      *metrics.FamilyBuilder
}

// NewMemoryPoolsExporter creates an exporter for the memory areas and pools
// provided by reader, with metric names prefixed by namespace.
func NewMemoryPoolsExporter(namespace string, reader MemoryReader) (*MemoryPoolsExporter, error) {
	var (
		area = func(name string) string { return metrics.BuildFQName(namespace, "memory", name) }
		pool = func(name string) string { return metrics.BuildFQName(namespace, "memory_pool", name) }
	)

	used, err := metrics.NewGauge(metrics.Opts{
		Namespace:  namespace,
		Subsystem:  "memory",
		Name:       "bytes_used",
		Help:       "Used bytes of a given memory area.",
		LabelNames: []string{"area"},
	})
	if err != nil {
		return nil, err
	}

	return &MemoryPoolsExporter{
		reader:        reader,
		used:          used,
		committed:     metrics.NewGaugeMetricFamily(area("bytes_committed"), "Committed (bytes) of a given memory area.", "area"),
		max:           metrics.NewGaugeMetricFamily(area("bytes_max"), "Max (bytes) of a given memory area.", "area"),
		init:          metrics.NewGaugeMetricFamily(area("bytes_init"), "Initial bytes of a given memory area.", "area"),
		poolUsed:      metrics.NewGaugeMetricFamily(pool("bytes_used"), "Used bytes of a given memory pool.", "pool"),
		poolCommitted: metrics.NewGaugeMetricFamily(pool("bytes_committed"), "Committed bytes of a given memory pool.", "pool"),
		poolMax:       metrics.NewGaugeMetricFamily(pool("bytes_max"), "Max bytes of a given memory pool.", "pool"),
		poolInit:      metrics.NewGaugeMetricFamily(pool("bytes_init"), "Initial bytes of a given memory pool.", "pool"),
	}, nil
}

// Collect implements metrics.Collector.
func (e *MemoryPoolsExporter) Collect() []*metrics.MetricFamilySamples {
	e.Lock()
	defer e.Unlock()

	areas := e.reader.Areas()
	names := make([]string, 0, len(areas))
	for name := range areas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u := areas[name]
		e.used.MustLabels(name).Set(float64(u.Used))
		e.set(e.committed, name, u.Committed)
		e.set(e.max, name, u.Max)
		e.set(e.init, name, u.Init)
	}

	for _, p := range e.reader.Pools() {
		e.set(e.poolUsed, p.Name, p.Usage.Used)
		e.set(e.poolCommitted, p.Name, p.Usage.Committed)
		e.set(e.poolMax, p.Name, p.Usage.Max)
		e.set(e.poolInit, p.Name, p.Usage.Init)
	}

	families := e.used.Collect()
	for _, b := range e.builders() {
		families = append(families, b.Family())
	}

	return families
}

// Describe implements metrics.Describer.
func (e *MemoryPoolsExporter) Describe() []*metrics.MetricFamilySamples {
	families := e.used.Describe()
	for _, b := range e.builders() {
		families = append(families, b.Describe()...)
	}
	return families
}

func (e *MemoryPoolsExporter) builders() []*metrics.FamilyBuilder {
	return []*metrics.FamilyBuilder{
		e.committed, e.max, e.init,
		e.poolUsed, e.poolCommitted, e.poolMax, e.poolInit,
	}
}

func (e *MemoryPoolsExporter) set(b *metrics.FamilyBuilder, label string, value int64) {
	if err := b.SetMetric([]string{label}, float64(value)); err != nil {
		log.Error("failed to update %s{%s}: %v", b.Family().Name, label, err)
	}
}
