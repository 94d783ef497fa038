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

// Collector is anything that can produce metric families on demand.
// Collect must be safe for concurrent use and free of side effects
// other than updating the collector's own cached state.
type Collector interface {
	Collect() []*MetricFamilySamples
}

// Describer is an optional interface for Collectors. Describe returns the
// families, without samples, the collector is expected to produce. It is
// used by a Registry to detect name collisions at registration time. If a
// Collector is not a Describer, the Registry calls Collect instead unless
// auto-describe is disabled.
type Describer interface {
	Describe() []*MetricFamilySamples
}

// RegisterTo registers the collector with the given registry and returns
// the same collector, to allow for
//
//	g, err := metrics.RegisterTo(r, metrics.MustNewGauge(opts))
func RegisterTo[T Collector](r *Registry, c T, opts ...RegisterOption) (T, error) {
	if err := r.Register(c, opts...); err != nil {
		var zero T
		return zero, err
	}
	return c, nil
}

// MustRegisterTo is like RegisterTo but panics on error.
func MustRegisterTo[T Collector](r *Registry, c T, opts ...RegisterOption) T {
	c, err := RegisterTo(r, c, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register registers the collector with the default registry and returns
// the same collector.
func Register[T Collector](c T, opts ...RegisterOption) (T, error) {
	return RegisterTo(Default(), c, opts...)
}

// MustRegister is like Register but panics on error.
func MustRegister[T Collector](c T, opts ...RegisterOption) T {
	return MustRegisterTo(Default(), c, opts...)
}

// describe returns the families described by the collector, if it is a
// Describer, or collected from it if auto is true.
func describe(c Collector, auto bool) []*MetricFamilySamples {
	if d, ok := c.(Describer); ok {
		return d.Describe()
	}
	if auto {
		return c.Collect()
	}
	return nil
}
