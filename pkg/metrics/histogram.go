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
	"fmt"
	"math"
	"sort"
	"sync"
)

const (
	// bucketLabel is the reserved label of histogram buckets.
	bucketLabel = "le"
)

// DefBuckets are the default histogram buckets, tailored to measuring
// latencies in seconds.
var DefBuckets = []float64{.005, .01, .025, .05, .075, .1, .25, .5, .75, 1, 2.5, 5, 7.5, 10}

// LinearBuckets returns count buckets, width apart, starting at start.
// It panics if count is less than 1.
func LinearBuckets(start, width float64, count int) []float64 {
	if count < 1 {
		panic(fmt.Errorf("%w: LinearBuckets needs a positive count", ErrInvalidBuckets))
	}
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start
		start += width
	}
	return buckets
}

// ExponentialBuckets returns count buckets, the first one with upper bound
// start and each following one factor times the previous. It panics if
// count is less than 1, start is not positive, or factor is not above 1.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	switch {
	case count < 1:
		panic(fmt.Errorf("%w: ExponentialBuckets needs a positive count", ErrInvalidBuckets))
	case start <= 0:
		panic(fmt.Errorf("%w: ExponentialBuckets needs a positive start value", ErrInvalidBuckets))
	case factor <= 1:
		panic(fmt.Errorf("%w: ExponentialBuckets needs a factor greater than 1", ErrInvalidBuckets))
	}
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start
		start *= factor
	}
	return buckets
}

// HistogramOpts are the options for creating a Histogram.
type HistogramOpts struct {
	Opts
	// Buckets are the strictly increasing upper bounds of the buckets.
	// DefBuckets is used if empty. A +Inf bucket is always appended.
	Buckets []float64
}

// Histogram counts observations into configurable buckets, optionally
// partitioned by labels.
type Histogram struct {
	*metric[*HistogramChild]
	upperBounds []float64
	bucketNames []string
	bucketLabel []string
}

// HistogramChild is the histogram of a single label value tuple. The
// bucket counts, count, and sum are updated and read together.
type HistogramChild struct {
	sync.Mutex
	upperBounds []float64
	counts      []uint64
	count       uint64
	sum         float64
}

// HistogramSnapshot is the state of a HistogramChild at one instant.
type HistogramSnapshot struct {
	// UpperBounds are the bucket upper bounds, the last one is +Inf.
	UpperBounds []float64
	// Buckets are the cumulative counts of the buckets.
	Buckets []uint64
	Count   uint64
	Sum     float64
}

// NewHistogram creates a new histogram.
func NewHistogram(opts HistogramOpts) (*Histogram, error) {
	bounds, err := upperBounds(opts.Buckets)
	if err != nil {
		return nil, err
	}

	m, err := newMetric(opts.Opts, HistogramType,
		func([]string) *HistogramChild {
			return &HistogramChild{
				upperBounds: bounds,
				counts:      make([]uint64, len(bounds)),
			}
		},
		bucketLabel,
	)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(bounds))
	for i, b := range bounds {
		labels[i] = FormatFloat(b)
	}

	return &Histogram{
		metric:      m,
		upperBounds: bounds,
		bucketNames: append(append([]string(nil), m.labelNames...), bucketLabel),
		bucketLabel: labels,
	}, nil
}

// MustNewHistogram creates a new histogram, panicking on error.
func MustNewHistogram(opts HistogramOpts) *Histogram {
	h, err := NewHistogram(opts)
	if err != nil {
		panic(err)
	}
	return h
}

func upperBounds(buckets []float64) ([]float64, error) {
	if len(buckets) == 0 {
		buckets = DefBuckets
	}
	bounds := append([]float64(nil), buckets...)
	for i, b := range bounds {
		if math.IsNaN(b) {
			return nil, fmt.Errorf("%w: NaN bucket", ErrInvalidBuckets)
		}
		if i > 0 && b <= bounds[i-1] {
			return nil, fmt.Errorf("%w: buckets must be strictly increasing (%s <= %s)",
				ErrInvalidBuckets, FormatFloat(b), FormatFloat(bounds[i-1]))
		}
	}
	if !math.IsInf(bounds[len(bounds)-1], +1) {
		bounds = append(bounds, math.Inf(+1))
	}
	return bounds, nil
}

// Labels returns the child histogram for the given label values, creating
// it if necessary.
func (h *Histogram) Labels(labelValues ...string) (*HistogramChild, error) {
	return h.children.get(labelValues...)
}

// MustLabels is like Labels but panics on error.
func (h *Histogram) MustLabels(labelValues ...string) *HistogramChild {
	c, err := h.Labels(labelValues...)
	if err != nil {
		panic(err)
	}
	return c
}

// Observe adds an observation to a histogram without labels.
// It panics with ErrLabelArity if the histogram has labels.
func (h *Histogram) Observe(v float64) { h.unlabeled().Observe(v) }

// Snapshot returns the state of a histogram without labels.
// It panics with ErrLabelArity if the histogram has labels.
func (h *Histogram) Snapshot() HistogramSnapshot { return h.unlabeled().Snapshot() }

// Collect implements Collector.
func (h *Histogram) Collect() []*MetricFamilySamples {
	var (
		children = h.children.snapshot()
		samples  = make([]*Sample, 0, len(children)*(len(h.upperBounds)+2))
		bucket   = h.name + "_bucket"
		count    = h.name + "_count"
		sum      = h.name + "_sum"
	)

	for _, c := range children {
		s := c.cell.Snapshot()
		for i, n := range s.Buckets {
			values := append(append(make([]string, 0, len(h.bucketNames)), c.labelValues...), h.bucketLabel[i])
			samples = append(samples, newSample(bucket, h.bucketNames, values, float64(n), nil))
		}
		samples = append(samples,
			newSample(count, h.labelNames, c.labelValues, float64(s.Count), nil),
			newSample(sum, h.labelNames, c.labelValues, s.Sum, nil),
		)
	}

	return h.family(samples)
}

// Observe adds an observation to the histogram.
func (c *HistogramChild) Observe(v float64) {
	i := sort.SearchFloat64s(c.upperBounds, v)
	if i == len(c.upperBounds) {
		i--
	}

	c.Lock()
	c.counts[i]++
	c.count++
	c.sum += v
	c.Unlock()
}

// Snapshot returns the state of the histogram with cumulative bucket counts.
func (c *HistogramChild) Snapshot() HistogramSnapshot {
	s := HistogramSnapshot{
		UpperBounds: c.upperBounds,
		Buckets:     make([]uint64, len(c.counts)),
	}

	c.Lock()
	copy(s.Buckets, c.counts)
	s.Count = c.count
	s.Sum = c.sum
	c.Unlock()

	for i := 1; i < len(s.Buckets); i++ {
		s.Buckets[i] += s.Buckets[i-1]
	}

	return s
}
