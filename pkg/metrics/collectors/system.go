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
	"sync"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

// SystemMemoryCollector exports host memory and swap usage.
type SystemMemoryCollector struct {
	sync.Mutex
	bytes *metrics.FamilyBuilder
}

// NewSystemMemoryCollector creates a host memory collector.
func NewSystemMemoryCollector() *SystemMemoryCollector {
	return &SystemMemoryCollector{
		bytes: metrics.NewGaugeMetricFamily("system_memory_bytes",
			"Host memory and swap usage in bytes, by kind.", "kind"),
	}
}

// Collect implements metrics.Collector.
func (c *SystemMemoryCollector) Collect() []*metrics.MetricFamilySamples {
	c.Lock()
	defer c.Unlock()

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn("failed to read system memory: %v", err)
	} else {
		c.set("total", vm.Total)
		c.set("used", vm.Used)
		c.set("free", vm.Free)
		c.set("available", vm.Available)
		c.set("cached", vm.Cached)
		c.set("buffers", vm.Buffers)
	}

	if sw, err := mem.SwapMemory(); err != nil {
		log.Warn("failed to read system swap: %v", err)
	} else {
		c.set("swap_total", sw.Total)
		c.set("swap_used", sw.Used)
		c.set("swap_free", sw.Free)
	}

	return c.bytes.Collect()
}

// Describe implements metrics.Describer.
func (c *SystemMemoryCollector) Describe() []*metrics.MetricFamilySamples {
	return c.bytes.Describe()
}

func (c *SystemMemoryCollector) set(kind string, value uint64) {
	if err := c.bytes.SetMetric([]string{kind}, float64(value)); err != nil {
		log.Error("failed to update system memory %s: %v", kind, err)
	}
}
