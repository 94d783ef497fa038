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
	"sync"
)

// FamilyBuilder assembles a single gauge, counter or untyped metric family
// sample by sample. A builder owns its family and keeps returning the same
// instance, so an exporter can create a builder once and refresh its values
// on every collection with SetMetric.
//
// Writers are serialized. Values are updated in place atomically and new
// samples are published by replacing the sample list of the family, so the
// family can be read concurrently at collection time without locking.
type FamilyBuilder struct {
	sync.Mutex
	family     *MetricFamilySamples
	labelNames []string
}

func newFamilyBuilder(name string, typ Type, help, escapedHelp string, labelNames []string) *FamilyBuilder {
	return &FamilyBuilder{
		family:     NewMetricFamilySamplesEscaped(name, typ, help, escapedHelp, []*Sample{}),
		labelNames: append([]string(nil), labelNames...),
	}
}

// NewGaugeMetricFamily creates a builder for a gauge family with the
// given label names.
func NewGaugeMetricFamily(name, help string, labelNames ...string) *FamilyBuilder {
	return newFamilyBuilder(name, GaugeType, help, EscapeHelp(help), labelNames)
}

// NewGaugeMetricFamilyValue creates a builder for a gauge family with a
// single unlabeled sample of the given value.
func NewGaugeMetricFamilyValue(name, help string, value float64) *FamilyBuilder {
	b := newFamilyBuilder(name, GaugeType, help, EscapeHelp(help), nil)
	b.family.appendSample(newSample(name, nil, nil, value, nil))
	return b
}

// NewGaugeMetricFamilyEscaped creates a builder for a gauge family with
// pre-escaped help text.
func NewGaugeMetricFamilyEscaped(name, help, escapedHelp string, labelNames ...string) *FamilyBuilder {
	return newFamilyBuilder(name, GaugeType, help, escapedHelp, labelNames)
}

// NewCounterMetricFamily creates a builder for a counter family.
func NewCounterMetricFamily(name, help string, labelNames ...string) *FamilyBuilder {
	return newFamilyBuilder(name, CounterType, help, EscapeHelp(help), labelNames)
}

// NewUntypedMetricFamily creates a builder for an untyped family.
func NewUntypedMetricFamily(name, help string, labelNames ...string) *FamilyBuilder {
	return newFamilyBuilder(name, UntypedType, help, EscapeHelp(help), labelNames)
}

// AddMetric appends a sample with the given label values. It does not check
// for an existing sample with the same label values.
func (b *FamilyBuilder) AddMetric(labelValues []string, value float64) error {
	if len(labelValues) != len(b.labelNames) {
		return arityError(b.family.Name, len(b.labelNames), len(labelValues))
	}

	b.Lock()
	defer b.Unlock()

	b.append(labelValues, value)
	return nil
}

// SetMetric updates the value of the sample with the given label values in
// place, or appends a new sample if there is none. The lookup is a linear
// scan over the samples of the family.
func (b *FamilyBuilder) SetMetric(labelValues []string, value float64) error {
	if len(labelValues) != len(b.labelNames) {
		return arityError(b.family.Name, len(b.labelNames), len(labelValues))
	}

	b.Lock()
	defer b.Unlock()

	for _, s := range b.family.Samples() {
		if s.matches(labelValues) {
			s.Set(value)
			return nil
		}
	}

	b.append(labelValues, value)
	return nil
}

func (b *FamilyBuilder) append(labelValues []string, value float64) {
	values := append([]string(nil), labelValues...)
	b.family.appendSample(newSample(b.family.Name, b.labelNames, values, value, nil))
}

// Family returns the family being built. It is the same instance for the
// lifetime of the builder.
func (b *FamilyBuilder) Family() *MetricFamilySamples {
	return b.family
}

// LabelNames returns the label names of the family.
func (b *FamilyBuilder) LabelNames() []string {
	return append([]string(nil), b.labelNames...)
}

// Collect implements Collector.
func (b *FamilyBuilder) Collect() []*MetricFamilySamples {
	return []*MetricFamilySamples{b.family}
}

// Describe implements Describer.
func (b *FamilyBuilder) Describe() []*MetricFamilySamples {
	return []*MetricFamilySamples{b.family.Describe()}
}
