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
	"path"
	"strings"
	"sync"
	"sync/atomic"

	logger "github.com/containers/nri-plugins-metrics/pkg/log"
)

var (
	log  = logger.Get("metrics")
	clog = logger.Get("collector")
)

type (
	// State represents the configuration of a registered collector or of
	// all collectors in a registry.
	State int32

	// CollectorOption is an option for a registered collector.
	CollectorOption func(*registered)
)

const (
	// Enabled marks a collector as enabled.
	Enabled State = (1 << iota)
	// Polled marks a collector as polled. Polled collectors return cached
	// families collected during the last polling cycle. This is useful for
	// computationally expensive metrics that should not be collected during
	// normal collection.
	Polled

	// DefaultName is the name of the default group. An alias for "".
	DefaultName = "default"
)

// WithPolled is an option to mark a collector polled.
func WithPolled() CollectorOption {
	return func(c *registered) {
		c.state.Store(int32(c.State() | Polled))
	}
}

// IsEnabled returns true if the collector is enabled.
func (s State) IsEnabled() bool {
	return s&Enabled != 0
}

// IsPolled returns true if the collector is polled.
func (s State) IsPolled() bool {
	return s&Polled != 0
}

// String returns a string representation of the collector state.
func (s State) String() string {
	str := "disabled"
	if s.IsEnabled() {
		str = "enabled"
	}
	if s.IsPolled() {
		str += ",polled"
	}
	return str
}

// registered is a Collector registered in a Registry.
type registered struct {
	Collector
	name     string
	group    string
	names    []string
	state    atomic.Int32
	lastpoll atomic.Pointer[[]*MetricFamilySamples]
}

// Name returns the qualified name of the collector.
func (c *registered) Name() string {
	return c.group + "/" + c.name
}

// State returns the current state of the collector.
func (c *registered) State() State {
	return State(c.state.Load())
}

// Matches returns true if the collector matches the given glob pattern.
func (c *registered) Matches(glob string) bool {
	if glob == c.group || glob == c.name || glob == c.Name() {
		return true
	}

	for _, name := range []string{c.group, c.name, c.Name()} {
		ok, err := path.Match(glob, name)
		if err != nil {
			log.Warn("invalid glob pattern %q (name %s): %v", glob, name, err)
			return false
		}
		if ok {
			return true
		}
	}

	return false
}

func (c *registered) collect() []*MetricFamilySamples {
	state := c.State()
	switch {
	case !state.IsEnabled():
		return nil

	case !state.IsPolled():
		clog.Debug("collecting %q", c.Name())
		return c.Collector.Collect()

	default:
		clog.Debug("collecting (polled) %q", c.Name())
		if polled := c.lastpoll.Load(); polled != nil {
			return *polled
		}
		return nil
	}
}

func (c *registered) poll() {
	state := c.State()
	if !state.IsEnabled() || !state.IsPolled() {
		return
	}

	clog.Debug("polling %q", c.Name())

	polled := c.Collector.Collect()
	c.lastpoll.Store(&polled)
}

func (c *registered) enable(state bool) {
	if state {
		c.state.Store(int32(c.State() | Enabled))
	} else {
		c.state.Store(int32(c.State() &^ Enabled))
	}
}

func (c *registered) setPolled(state bool) {
	if state {
		c.state.Store(int32(c.State() | Polled))
	} else {
		c.state.Store(int32(c.State() &^ Polled))
	}
}

type (
	// Registry is a collection of collectors with unique metric names.
	//
	// Collectors are used as map keys, so they must be of a comparable
	// type. Pointers to collectors are.
	Registry struct {
		sync.Mutex
		autoDescribe bool
		entries      []*registered
		collectors   map[Collector]*registered
		names        map[string]*registered
		snapshot     atomic.Pointer[[]*registered]
	}

	// RegistryOption is an option for a Registry.
	RegistryOption func(*Registry)

	// RegisterOptions are options for registering collectors.
	RegisterOptions struct {
		name  string
		group string
		copts []CollectorOption
	}

	// RegisterOption is an option for registering collectors.
	RegisterOption func(*RegisterOptions)
)

// WithoutAutoDescribe is an option to never collect a collector to learn
// its metric names. Collectors which are not Describers then claim no names.
func WithoutAutoDescribe() RegistryOption {
	return func(r *Registry) {
		r.autoDescribe = false
	}
}

// WithName is an option to register a collector with a name, used to match
// it in Configure. By default the name of the first family it provides is used.
func WithName(name string) RegisterOption {
	return func(o *RegisterOptions) {
		o.name = name
	}
}

// WithGroup is an option to register a collector in a specific group.
func WithGroup(name string) RegisterOption {
	return func(o *RegisterOptions) {
		if name == "" {
			name = DefaultName
		}
		o.group = name
	}
}

// WithCollectorOptions is an option to register a collector with options.
func WithCollectorOptions(opts ...CollectorOption) RegisterOption {
	return func(o *RegisterOptions) {
		o.copts = append(o.copts, opts...)
	}
}

// NewRegistry creates a new registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		autoDescribe: true,
		collectors:   make(map[Collector]*registered),
		names:        make(map[string]*registered),
	}

	for _, o := range opts {
		o(r)
	}

	r.snapshot.Store(&[]*registered{})

	return r
}

// Register registers a collector with the registry. It fails if the
// collector provides any metric name already provided by another collector.
func (r *Registry) Register(c Collector, opts ...RegisterOption) error {
	options := &RegisterOptions{group: DefaultName}
	for _, o := range opts {
		o(options)
	}

	families := describe(c, r.autoDescribe)
	names := make([]string, 0, len(families))
	for _, f := range families {
		if err := CheckMetricName(f.Name); err != nil {
			return err
		}
		names = append(names, f.names()...)
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.collectors[c]; ok {
		return ErrAlreadyRegistered
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := r.names[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s (provided twice by the collector)", ErrDuplicateMetric, name)
		}
		seen[name] = struct{}{}
	}

	e := &registered{
		Collector: c,
		name:      options.name,
		group:     options.group,
		names:     names,
	}
	if e.name == "" {
		if len(families) > 0 {
			e.name = families[0].Name
		} else {
			e.name = fmt.Sprintf("%T", c)
		}
	}
	e.state.Store(int32(Enabled))
	for _, o := range options.copts {
		o(e)
	}

	for _, name := range names {
		r.names[name] = e
	}
	r.collectors[c] = e
	r.entries = append(r.entries, e)
	r.publish()

	log.Info("registered collector %q (%s)", e.Name(), e.State())

	return nil
}

// MustRegister registers the collectors, panicking on the first error.
func (r *Registry) MustRegister(collectors ...Collector) {
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Unregister removes the collector from the registry, freeing the metric
// names it provides. It returns false if the collector was not registered.
func (r *Registry) Unregister(c Collector) bool {
	r.Lock()
	defer r.Unlock()

	e, ok := r.collectors[c]
	if !ok {
		return false
	}

	for _, name := range e.names {
		delete(r.names, name)
	}
	delete(r.collectors, c)

	entries := make([]*registered, 0, len(r.entries))
	for _, o := range r.entries {
		if o != e {
			entries = append(entries, o)
		}
	}
	r.entries = entries
	r.publish()

	log.Info("unregistered collector %q", e.Name())

	return true
}

// publish must be called with the lock held.
func (r *Registry) publish() {
	entries := append([]*registered(nil), r.entries...)
	r.snapshot.Store(&entries)
}

// Collect collects all enabled collectors, in the order they were
// registered, and returns the concatenation of their families. Polled
// collectors contribute the families of their last poll.
func (r *Registry) Collect() []*MetricFamilySamples {
	var families []*MetricFamilySamples
	for _, e := range *r.snapshot.Load() {
		families = append(families, e.collect()...)
	}
	return families
}

// GetSampleValue returns the value of the sample with the given name and
// labels, or false if there is no such sample.
func (r *Registry) GetSampleValue(name string, labelNames, labelValues []string) (float64, bool) {
	if len(labelNames) != len(labelValues) {
		return 0, false
	}

	want := make(map[string]string, len(labelNames))
	for i, n := range labelNames {
		want[n] = labelValues[i]
	}

	for _, f := range r.Collect() {
		for _, s := range f.Samples() {
			if s.Name != name || len(s.LabelNames) != len(want) {
				continue
			}
			match := true
			for i, n := range s.LabelNames {
				if v, ok := want[n]; !ok || v != s.LabelValues[i] {
					match = false
					break
				}
			}
			if match {
				return s.Value(), true
			}
		}
	}

	return 0, false
}

// Configure enables the collectors matching any of the given globs and
// disables all others. Any collector matching any glob in polled is forced
// to polled mode.
func (r *Registry) Configure(enabled []string, polled []string) (State, error) {
	log.Info("configuring registry with collectors enabled=[%s], polled=[%s]",
		strings.Join(enabled, ","), strings.Join(polled, ","))

	entries := *r.snapshot.Load()
	match := make(map[string]struct{})
	state := State(0)

	for _, c := range entries {
		c.enable(false)
		for _, glob := range enabled {
			if c.Matches(glob) {
				match[glob] = struct{}{}
				c.enable(true)
			}
		}
		for _, glob := range polled {
			if c.Matches(glob) {
				match[glob] = struct{}{}
				c.enable(true)
				c.setPolled(true)
			}
		}
		log.Info("collector %q now %s", c.Name(), c.State())
		state |= c.State()
	}

	unmatched := []string{}
	for _, glob := range append(append([]string(nil), enabled...), polled...) {
		if _, ok := match[glob]; !ok {
			unmatched = append(unmatched, glob)
		}
	}

	if len(unmatched) > 0 {
		return state, metricsError("no collectors match globs %s", strings.Join(unmatched, ", "))
	}

	return state, nil
}

// Poll all collectors which are enabled and in polled mode.
func (r *Registry) Poll() {
	wg := sync.WaitGroup{}
	for _, c := range *r.snapshot.Load() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.poll()
		}()
	}
	wg.Wait()
}

// State returns the collective state of all collectors in the registry.
func (r *Registry) State() State {
	var state State
	for _, c := range *r.snapshot.Load() {
		state |= c.State()
	}
	return state
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide default registry. It is meant for the
// outermost composition point of a program. Libraries should accept a
// Registry instead.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// RegisterDefault registers a collector with the default registry.
func RegisterDefault(c Collector, opts ...RegisterOption) error {
	return Default().Register(c, opts...)
}

// MustRegisterDefault registers a collector with the default registry,
// panicking on error.
func MustRegisterDefault(c Collector, opts ...RegisterOption) {
	if err := RegisterDefault(c, opts...); err != nil {
		panic(err)
	}
}

// UnregisterDefault removes a collector from the default registry.
func UnregisterDefault(c Collector) bool {
	return Default().Unregister(c)
}
