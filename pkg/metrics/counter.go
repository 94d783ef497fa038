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
)

// Counter is a monotonically increasing metric, optionally partitioned
// by labels.
type Counter struct {
	*metric[*CounterChild]
}

// CounterChild is the counter of a single label value tuple.
type CounterChild struct {
	bits atomic.Uint64
}

// NewCounter creates a new counter.
func NewCounter(opts Opts) (*Counter, error) {
	m, err := newMetric(opts, CounterType, func([]string) *CounterChild { return &CounterChild{} })
	if err != nil {
		return nil, err
	}
	return &Counter{metric: m}, nil
}

// MustNewCounter creates a new counter, panicking on error.
func MustNewCounter(opts Opts) *Counter {
	c, err := NewCounter(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Labels returns the child counter for the given label values, creating
// it if necessary.
func (c *Counter) Labels(labelValues ...string) (*CounterChild, error) {
	return c.children.get(labelValues...)
}

// MustLabels is like Labels but panics on error.
func (c *Counter) MustLabels(labelValues ...string) *CounterChild {
	child, err := c.Labels(labelValues...)
	if err != nil {
		panic(err)
	}
	return child
}

// Inc increments a counter without labels by 1.
// It panics with ErrLabelArity if the counter has labels.
func (c *Counter) Inc() { c.unlabeled().Inc() }

// Add increments a counter without labels by v.
// It panics with ErrLabelArity if the counter has labels.
func (c *Counter) Add(v float64) error { return c.unlabeled().Add(v) }

// Get returns the value of a counter without labels.
// It panics with ErrLabelArity if the counter has labels.
func (c *Counter) Get() float64 { return c.unlabeled().Get() }

// Collect implements Collector.
func (c *Counter) Collect() []*MetricFamilySamples {
	children := c.children.snapshot()
	samples := make([]*Sample, 0, len(children))
	for _, e := range children {
		samples = append(samples, newSample(c.name, c.labelNames, e.labelValues, e.cell.Get(), nil))
	}
	return c.family(samples)
}

// Inc increments the counter by 1.
func (c *CounterChild) Inc() {
	c.add(1)
}

// Add increments the counter by v, which must not be negative.
func (c *CounterChild) Add(v float64) error {
	if v < 0 {
		return ErrNegativeIncrement
	}
	c.add(v)
	return nil
}

func (c *CounterChild) add(v float64) {
	for {
		old := c.bits.Load()
		upd := math.Float64bits(math.Float64frombits(old) + v)
		if c.bits.CompareAndSwap(old, upd) {
			return
		}
	}
}

// Get returns the current value of the counter.
func (c *CounterChild) Get() float64 {
	return math.Float64frombits(c.bits.Load())
}
