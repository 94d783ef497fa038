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
	"strings"
)

// Opts are the options common to all metric types.
type Opts struct {
	// Namespace, Subsystem and Name are joined by underscores into the
	// fully-qualified metric name. Only Name is mandatory.
	Namespace string
	Subsystem string
	Name      string
	// Help is the mandatory help text of the metric.
	Help string
	// LabelNames are the names of the labels partitioning the metric.
	LabelNames []string
}

// BuildFQName joins the non-empty components of a metric name with '_'.
func BuildFQName(namespace, subsystem, name string) string {
	if name == "" {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{namespace, subsystem, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// metric is the common part of all metric types backed by children.
type metric[T any] struct {
	name       string
	help       string
	typ        Type
	labelNames []string
	children   *children[T]
}

func newMetric[T any](opts Opts, typ Type, newChild func([]string) T, reserved ...string) (*metric[T], error) {
	name := BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if err := CheckMetricName(name); err != nil {
		return nil, err
	}
	if opts.Help == "" {
		return nil, metricsError("missing help text for metric %s", name)
	}
	if err := checkLabelNames(opts.LabelNames, reserved...); err != nil {
		return nil, err
	}

	labelNames := append([]string(nil), opts.LabelNames...)

	return &metric[T]{
		name:       name,
		help:       opts.Help,
		typ:        typ,
		labelNames: labelNames,
		children:   newChildren(name, labelNames, newChild),
	}, nil
}

// Name returns the fully-qualified name of the metric.
func (m *metric[T]) Name() string {
	return m.name
}

// LabelNames returns the label names of the metric.
func (m *metric[T]) LabelNames() []string {
	return append([]string(nil), m.labelNames...)
}

// Describe implements Describer.
func (m *metric[T]) Describe() []*MetricFamilySamples {
	return []*MetricFamilySamples{NewMetricFamilySamples(m.name, m.typ, m.help, nil)}
}

// unlabeled returns the implicit child of a metric without labels. It
// panics with ErrLabelArity if the metric has label names.
func (m *metric[T]) unlabeled() T {
	c, err := m.children.get()
	if err != nil {
		panic(err)
	}
	return c
}

func (m *metric[T]) family(samples []*Sample) []*MetricFamilySamples {
	return []*MetricFamilySamples{NewMetricFamilySamples(m.name, m.typ, m.help, samples)}
}
