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

package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Gauge is a metric whose value can go up and down, optionally
// partitioned by labels.
type Gauge struct {
	*metric[*GaugeChild]
}

// GaugeChild is the gauge of a single label value tuple.
type GaugeChild struct {
	bits atomic.Uint64
}

// NewGauge creates a new gauge.
func NewGauge(opts Opts) (*Gauge, error) {
	m, err := newMetric(opts, GaugeType, func([]string) *GaugeChild { return &GaugeChild{} })
	if err != nil {
		return nil, err
	}
	return &Gauge{metric: m}, nil
}

// MustNewGauge creates a new gauge, panicking on error.
func MustNewGauge(opts Opts) *Gauge {
	g, err := NewGauge(opts)
	if err != nil {
		panic(err)
	}
	return g
}

// Labels returns the child gauge for the given label values, creating it
// if necessary.
func (g *Gauge) Labels(labelValues ...string) (*GaugeChild, error) {
	return g.children.get(labelValues...)
}

// MustLabels is like Labels but panics on error.
func (g *Gauge) MustLabels(labelValues ...string) *GaugeChild {
	c, err := g.Labels(labelValues...)
	if err != nil {
		panic(err)
	}
	return c
}

// Set sets the value of a gauge without labels.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Set(v float64) { g.unlabeled().Set(v) }

// Inc increments a gauge without labels by 1.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Inc() { g.unlabeled().Inc() }

// Dec decrements a gauge without labels by 1.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Dec() { g.unlabeled().Dec() }

// Add adds v to a gauge without labels.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Add(v float64) { g.unlabeled().Add(v) }

// Sub subtracts v from a gauge without labels.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Sub(v float64) { g.unlabeled().Sub(v) }

// SetToCurrentTime sets a gauge without labels to the current Unix time in seconds.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) SetToCurrentTime() { g.unlabeled().SetToCurrentTime() }

// Get returns the value of a gauge without labels.
// It panics with ErrLabelArity if the gauge has labels.
func (g *Gauge) Get() float64 { return g.unlabeled().Get() }

// Collect implements Collector.
func (g *Gauge) Collect() []*MetricFamilySamples {
	children := g.children.snapshot()
	samples := make([]*Sample, 0, len(children))
	for _, c := range children {
		samples = append(samples, newSample(g.name, g.labelNames, c.labelValues, c.cell.Get(), nil))
	}
	return g.family(samples)
}

// Set sets the gauge to v.
func (c *GaugeChild) Set(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Inc increments the gauge by 1.
func (c *GaugeChild) Inc() { c.Add(1) }

// Dec decrements the gauge by 1.
func (c *GaugeChild) Dec() { c.Add(-1) }

// Sub subtracts v from the gauge.
func (c *GaugeChild) Sub(v float64) { c.Add(-v) }

// Add adds v to the gauge.
func (c *GaugeChild) Add(v float64) {
	for {
		old := c.bits.Load()
		upd := math.Float64bits(math.Float64frombits(old) + v)
		if c.bits.CompareAndSwap(old, upd) {
			return
		}
	}
}

// SetToCurrentTime sets the gauge to the current Unix time in seconds.
func (c *GaugeChild) SetToCurrentTime() {
	c.Set(float64(time.Now().UnixNano()) / NanosecondsPerSecond)
}

// Get returns the current value of the gauge.
func (c *GaugeChild) Get() float64 {
	return math.Float64frombits(c.bits.Load())
}
