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

package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

// rendezvous blocks each Collect until the expected number of collections
// are in progress at the same time, or until released.
type rendezvous struct {
	arrived sync.WaitGroup
	release chan struct{}
}

func newRendezvous(n int) *rendezvous {
	r := &rendezvous{release: make(chan struct{})}
	r.arrived.Add(n)
	return r
}

func (r *rendezvous) Describe() []*metrics.MetricFamilySamples {
	return []*metrics.MetricFamilySamples{
		metrics.NewMetricFamilySamples("rendezvous", metrics.GaugeType, "Concurrent collections.", nil),
	}
}

func (r *rendezvous) Collect() []*metrics.MetricFamilySamples {
	r.arrived.Done()
	<-r.release
	return []*metrics.MetricFamilySamples{
		metrics.NewGaugeMetricFamilyValue("rendezvous", "Concurrent collections.", 1).Family(),
	}
}

func TestConcurrentGather(t *testing.T) {
	const scrapes = 4

	var (
		r  = metrics.NewRegistry()
		rv = newRendezvous(scrapes)
	)
	require.NoError(t, r.Register(rv))

	g, err := r.NewGatherer(metrics.WithoutPolling())
	require.NoError(t, err)
	defer g.Stop()

	var (
		wg      sync.WaitGroup
		results = make([]int, scrapes)
		errs    = make([]error, scrapes)
	)
	for i := 0; i < scrapes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mfs, err := g.Gather()
			results[i], errs[i] = len(mfs), err
		}(i)
	}

	overlapped := make(chan struct{})
	go func() {
		rv.arrived.Wait()
		close(overlapped)
	}()

	select {
	case <-overlapped:
	case <-time.After(5 * time.Second):
		t.Errorf("%d concurrent gathers did not run in parallel", scrapes)
	}

	close(rv.release)
	wg.Wait()
	for i := 0; i < scrapes; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 1, results[i])
	}
}

func TestPollWaitsForGather(t *testing.T) {
	r := metrics.NewRegistry()
	rv := newRendezvous(1)
	require.NoError(t, r.Register(rv))

	g, err := r.NewGatherer(metrics.WithoutPolling())
	require.NoError(t, err)
	defer g.Stop()

	gathered := make(chan struct{})
	go func() {
		_, _ = g.Gather()
		close(gathered)
	}()
	rv.arrived.Wait()

	polled := make(chan struct{})
	go func() {
		g.Poll()
		close(polled)
	}()

	select {
	case <-polled:
		t.Error("poll did not wait for an ongoing gather")
	case <-time.After(100 * time.Millisecond):
	}

	close(rv.release)
	<-gathered
	<-polled
}
