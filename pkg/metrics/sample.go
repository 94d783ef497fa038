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
	"strings"
	"sync/atomic"
)

// Type is the type of a metric family.
type Type int

const (
	// UntypedType is a metric family of unknown type.
	UntypedType Type = iota
	// CounterType is a metric family of monotonic counters.
	CounterType
	// GaugeType is a metric family of gauges.
	GaugeType
	// SummaryType is a metric family of summaries.
	SummaryType
	// HistogramType is a metric family of histograms.
	HistogramType
)

// String returns the exposition keyword for the type.
func (t Type) String() string {
	switch t {
	case CounterType:
		return "counter"
	case GaugeType:
		return "gauge"
	case SummaryType:
		return "summary"
	case HistogramType:
		return "histogram"
	}
	return "untyped"
}

// Sample is a single exposed time series point of a metric family.
type Sample struct {
	// Name is the sample name. It is the family name, possibly suffixed
	// (_bucket, _count, _sum) for histograms and summaries.
	Name string
	// LabelNames is shared by the samples of a family. Treat it as read-only.
	LabelNames []string
	// LabelValues must have the same length as LabelNames.
	LabelValues []string
	// TimestampMs is an optional epoch timestamp in milliseconds. If nil,
	// the sample is timestamped by the scraper.
	TimestampMs *int64

	escaped []string
	value   atomic.Uint64
}

// NewSample creates a sample without a timestamp.
func NewSample(name string, labelNames, labelValues []string, value float64) (*Sample, error) {
	return NewSampleWithTimestamp(name, labelNames, labelValues, value, nil)
}

// NewSampleWithTimestamp creates a sample with an optional timestamp.
func NewSampleWithTimestamp(name string, labelNames, labelValues []string, value float64, timestampMs *int64) (*Sample, error) {
	if len(labelNames) != len(labelValues) {
		return nil, arityError(name, len(labelNames), len(labelValues))
	}
	return newSample(name, labelNames, labelValues, value, timestampMs), nil
}

func newSample(name string, labelNames, labelValues []string, value float64, timestampMs *int64) *Sample {
	s := &Sample{
		Name:        name,
		LabelNames:  labelNames,
		LabelValues: labelValues,
		TimestampMs: timestampMs,
		escaped:     make([]string, len(labelValues)),
	}
	for i, v := range labelValues {
		s.escaped[i] = EscapeLabelValue(v)
	}
	s.value.Store(math.Float64bits(value))
	return s
}

// Value returns the current value of the sample.
func (s *Sample) Value() float64 {
	return math.Float64frombits(s.value.Load())
}

// Set updates the value of the sample in place.
func (s *Sample) Set(value float64) {
	s.value.Store(math.Float64bits(value))
}

// EscapedLabelValues returns the label values escaped for exposition.
func (s *Sample) EscapedLabelValues() []string {
	return s.escaped
}

// Label returns the value of the named label.
func (s *Sample) Label(name string) (string, bool) {
	for i, n := range s.LabelNames {
		if n == name {
			return s.LabelValues[i], true
		}
	}
	return "", false
}

// Equal returns true if the two samples are structurally identical.
func (s *Sample) Equal(o *Sample) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Name != o.Name || s.value.Load() != o.value.Load() {
		return false
	}
	if !equalStrings(s.LabelNames, o.LabelNames) || !equalStrings(s.LabelValues, o.LabelValues) {
		return false
	}
	switch {
	case s.TimestampMs == nil && o.TimestampMs == nil:
		return true
	case s.TimestampMs == nil || o.TimestampMs == nil:
		return false
	}
	return *s.TimestampMs == *o.TimestampMs
}

// String returns a human-readable representation of the sample.
func (s *Sample) String() string {
	pairs := make([]string, 0, len(s.LabelNames))
	for i, n := range s.LabelNames {
		pairs = append(pairs, n+"=\""+s.escaped[i]+"\"")
	}
	str := s.Name
	if len(pairs) > 0 {
		str += "{" + strings.Join(pairs, ",") + "}"
	}
	str += " " + FormatFloat(s.Value())
	if s.TimestampMs != nil {
		str += fmt.Sprintf(" %d", *s.TimestampMs)
	}
	return str
}

// matches returns true if the sample has exactly the given label values.
func (s *Sample) matches(labelValues []string) bool {
	return equalStrings(s.LabelValues, labelValues)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
