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

	"github.com/beorn7/perks/quantile"
)

const (
	// quantileLabel is the reserved label of summary quantiles.
	quantileLabel = "quantile"
)

// SummaryOpts are the options for creating a Summary.
type SummaryOpts struct {
	Opts
	// Objectives maps the quantiles to track to their allowed absolute
	// error, for instance {0.5: 0.05, 0.99: 0.001}. Without objectives a
	// summary only tracks the count and sum of observations.
	Objectives map[float64]float64
}

// Summary tracks the count and sum of observations and optionally a set
// of quantiles, partitioned by labels.
type Summary struct {
	*metric[*SummaryChild]
	quantiles      []float64
	quantileNames  []string
	quantileLabels []string
}

// SummaryChild is the summary of a single label value tuple.
type SummaryChild struct {
	sync.Mutex
	quantiles []float64
	stream    *quantile.Stream
	count     uint64
	sum       float64
}

// SummarySnapshot is the state of a SummaryChild at one instant.
type SummarySnapshot struct {
	Quantiles []float64
	// Values are the estimated values for Quantiles, NaN without observations.
	Values []float64
	Count  uint64
	Sum    float64
}

// NewSummary creates a new summary.
func NewSummary(opts SummaryOpts) (*Summary, error) {
	quantiles := make([]float64, 0, len(opts.Objectives))
	for q, e := range opts.Objectives {
		if math.IsNaN(q) || q < 0 || q > 1 || math.IsNaN(e) || e < 0 || e > 1 {
			return nil, fmt.Errorf("%w: quantile %s with error %s", ErrInvalidObjectives,
				FormatFloat(q), FormatFloat(e))
		}
		quantiles = append(quantiles, q)
	}
	sort.Float64s(quantiles)

	objectives := make(map[float64]float64, len(opts.Objectives))
	for q, e := range opts.Objectives {
		objectives[q] = e
	}

	m, err := newMetric(opts.Opts, SummaryType,
		func([]string) *SummaryChild {
			c := &SummaryChild{quantiles: quantiles}
			if len(objectives) > 0 {
				c.stream = quantile.NewTargeted(objectives)
			}
			return c
		},
		quantileLabel,
	)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(quantiles))
	for i, q := range quantiles {
		labels[i] = FormatFloat(q)
	}

	return &Summary{
		metric:         m,
		quantiles:      quantiles,
		quantileNames:  append(append([]string(nil), m.labelNames...), quantileLabel),
		quantileLabels: labels,
	}, nil
}

// MustNewSummary creates a new summary, panicking on error.
func MustNewSummary(opts SummaryOpts) *Summary {
	s, err := NewSummary(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Labels returns the child summary for the given label values, creating
// it if necessary.
func (s *Summary) Labels(labelValues ...string) (*SummaryChild, error) {
	return s.children.get(labelValues...)
}

// MustLabels is like Labels but panics on error.
func (s *Summary) MustLabels(labelValues ...string) *SummaryChild {
	c, err := s.Labels(labelValues...)
	if err != nil {
		panic(err)
	}
	return c
}

// Observe adds an observation to a summary without labels.
// It panics with ErrLabelArity if the summary has labels.
func (s *Summary) Observe(v float64) { s.unlabeled().Observe(v) }

// Snapshot returns the state of a summary without labels.
// It panics with ErrLabelArity if the summary has labels.
func (s *Summary) Snapshot() SummarySnapshot { return s.unlabeled().Snapshot() }

// Collect implements Collector.
func (s *Summary) Collect() []*MetricFamilySamples {
	var (
		children = s.children.snapshot()
		samples  = make([]*Sample, 0, len(children)*(len(s.quantiles)+2))
		count    = s.name + "_count"
		sum      = s.name + "_sum"
	)

	for _, c := range children {
		snap := c.cell.Snapshot()
		for i, v := range snap.Values {
			values := append(append(make([]string, 0, len(s.quantileNames)), c.labelValues...), s.quantileLabels[i])
			samples = append(samples, newSample(s.name, s.quantileNames, values, v, nil))
		}
		samples = append(samples,
			newSample(count, s.labelNames, c.labelValues, float64(snap.Count), nil),
			newSample(sum, s.labelNames, c.labelValues, snap.Sum, nil),
		)
	}

	return s.family(samples)
}

// Observe adds an observation to the summary.
func (c *SummaryChild) Observe(v float64) {
	c.Lock()
	defer c.Unlock()

	c.count++
	c.sum += v
	if c.stream != nil {
		c.stream.Insert(v)
	}
}

// Snapshot returns the state of the summary.
func (c *SummaryChild) Snapshot() SummarySnapshot {
	c.Lock()
	defer c.Unlock()

	s := SummarySnapshot{
		Quantiles: c.quantiles,
		Values:    make([]float64, len(c.quantiles)),
		Count:     c.count,
		Sum:       c.sum,
	}
	for i, q := range c.quantiles {
		if c.count == 0 {
			s.Values[i] = math.NaN()
		} else {
			s.Values[i] = c.stream.Query(q)
		}
	}

	return s
}
