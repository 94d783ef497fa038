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
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	model "github.com/prometheus/client_model/go"
	"golang.org/x/time/rate"
)

type (
	// Gatherer is a prometheus gatherer for our registry.
	Gatherer struct {
		r            *Registry
		ticker       *time.Ticker
		pollInterval time.Duration
		stopCh       chan chan struct{}
		lock         sync.RWMutex
		enabled      []string
		polled       []string
		errLimit     *rate.Limiter
	}

	// GathererOption is an option for the gatherer.
	GathererOption func(*Gatherer)
)

const (
	// MinPollInterval is the most frequent allowed polling interval.
	MinPollInterval = 5 * time.Second
	// DefaultPollInterval is the default interval for polling collectors.
	DefaultPollInterval = 30 * time.Second
	// errorLogInterval is the minimum interval between logged gather errors.
	errorLogInterval = time.Minute
)

var _ prometheus.Gatherer = &Gatherer{}

// WithPollInterval defines the polling interval for the gatherer.
func WithPollInterval(interval time.Duration) GathererOption {
	return func(g *Gatherer) {
		if interval < MinPollInterval {
			g.pollInterval = MinPollInterval
		} else {
			g.pollInterval = interval
		}
	}
}

// WithoutPolling disables internally triggered polling for the gatherer.
func WithoutPolling() GathererOption {
	return func(g *Gatherer) {
		g.pollInterval = 0
	}
}

// WithMetrics defines which groups or collectors will be enabled, and
// polled if any. Without this option the registry configuration is left
// intact.
func WithMetrics(enabled, polled []string) GathererOption {
	return func(g *Gatherer) {
		g.enabled = enabled
		g.polled = polled
	}
}

// Gatherer returns a gatherer for the registry, configured with the given options.
func (r *Registry) Gatherer(opts ...GathererOption) (*Gatherer, error) {
	return r.NewGatherer(opts...)
}

// NewGatherer creates a new gatherer for the registry, with the given options.
func (r *Registry) NewGatherer(opts ...GathererOption) (*Gatherer, error) {
	g := &Gatherer{
		r:            r,
		pollInterval: DefaultPollInterval,
		errLimit:     rate.NewLimiter(rate.Every(errorLogInterval), 1),
	}

	for _, o := range opts {
		o(g)
	}

	if len(g.enabled) > 0 || len(g.polled) > 0 {
		if _, err := r.Configure(g.enabled, g.polled); err != nil {
			return nil, err
		}
	}

	g.start()

	return g, nil
}

// Gather implements the prometheus.Gatherer interface. Families which
// cannot be converted are left out and reported in the returned error.
// Concurrent calls run in parallel, polling waits for them to finish.
func (g *Gatherer) Gather() ([]*model.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	mfs, err := ToModel(g.r.Collect())
	if err != nil && g.errLimit.Allow() {
		log.Error("failed to gather some metrics: %v", err)
	}

	return mfs, err
}

// Block the gatherer from polling and gathering collectors.
func (g *Gatherer) Block() {
	g.lock.Lock()
}

// Unblock allows the gatherer to poll and gather collectors.
func (g *Gatherer) Unblock() {
	g.lock.Unlock()
}

// Poll all enabled collectors in poll mode in the registry.
func (g *Gatherer) Poll() {
	g.Block()
	g.r.Poll()
	g.Unblock()
}

func (g *Gatherer) start() {
	g.Block()
	defer g.Unblock()

	if !g.r.State().IsPolled() {
		log.Info("not polling, no polled collectors")
		return
	}

	if g.pollInterval == 0 {
		log.Info("not polling, periodic polling disabled")
		return
	}

	log.Info("polling every %s", g.pollInterval)

	g.stopCh = make(chan chan struct{})
	g.ticker = time.NewTicker(g.pollInterval)

	g.r.Poll()
	go g.poller(g.ticker, g.stopCh)
}

func (g *Gatherer) poller(ticker *time.Ticker, stopCh chan chan struct{}) {
	for {
		select {
		case doneCh := <-stopCh:
			ticker.Stop()
			close(doneCh)
			return
		case <-ticker.C:
			g.Poll()
		}
	}
}

// Stop periodic polling, if it is active.
func (g *Gatherer) Stop() {
	g.lock.Lock()
	stopCh := g.stopCh
	g.stopCh = nil
	g.ticker = nil
	g.lock.Unlock()

	if stopCh == nil {
		return
	}

	doneCh := make(chan struct{})
	stopCh <- doneCh
	<-doneCh
}

// ToModel converts families to their client_model representation, sorted
// by name. Families without samples are left out. Families which cannot
// be converted, or which duplicate the name of an earlier family, are left
// out and reported in the returned error.
func ToModel(families []*MetricFamilySamples) ([]*model.MetricFamily, error) {
	var (
		mfs  = make([]*model.MetricFamily, 0, len(families))
		seen = make(map[string]struct{}, len(families))
		errs *multierror.Error
	)

	for _, f := range families {
		if len(f.Samples()) == 0 {
			continue
		}
		if _, ok := seen[f.Name]; ok {
			errs = multierror.Append(errs, metricsError("duplicate metric family %s", f.Name))
			continue
		}
		mf, err := FamilyToModel(f)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		seen[f.Name] = struct{}{}
		mfs = append(mfs, mf)
	}

	sort.Slice(mfs, func(i, j int) bool {
		return mfs[i].GetName() < mfs[j].GetName()
	})

	return mfs, errs.ErrorOrNil()
}
