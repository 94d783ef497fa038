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
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	logger "github.com/containers/nri-plugins-metrics/pkg/log"
	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

func TestMetricsDescriptors(t *testing.T) {
	r := metrics.NewRegistry()
	require.NotNil(t, r, "non-nil registry")

	newTestGauge(t, r, "test1")
	newTestGauge(t, r, "test2")
	newTestGauge(t, r, "test3")
	newTestGauge(t, r, "test4")

	srv := newTestServer(t, r, nil, nil, 0)
	defer srv.stop()

	descriptors, _ := srv.collect(t)
	require.True(t, descriptors.HasEntry("test1", "gauge"))
	require.True(t, descriptors.HasEntry("test2", "gauge"))
	require.True(t, descriptors.HasEntry("test3", "gauge"))
	require.True(t, descriptors.HasEntry("test4", "gauge"))
}

func TestDefaultCollection(t *testing.T) {
	r := metrics.NewRegistry()
	require.NotNil(t, r, "non-nil registry")

	newTestGauge(t, r, "test1")
	newTestGauge(t, r, "test2")
	newTestGauge(t, r, "test3")
	newTestGauge(t, r, "test4")

	var (
		enabled = []string{"*"}
		none    []string
	)

	srv := newTestServer(t, r, enabled, none, 0)
	defer srv.stop()

	_, metrics := srv.collect(t)
	require.Equal(t, "0", metrics.GetValue("test1"))
	require.Equal(t, "0", metrics.GetValue("test2"))
	require.Equal(t, "0", metrics.GetValue("test3"))
	require.Equal(t, "0", metrics.GetValue("test4"))
}

func TestUpdatedMetricsCollection(t *testing.T) {
	r := metrics.NewRegistry()
	require.NotNil(t, r, "non-nil registry")

	g1 := newTestGauge(t, r, "test1")
	g2 := newTestGauge(t, r, "test2")
	g3 := newTestGauge(t, r, "test3")
	g4 := newTestGauge(t, r, "test4")

	var (
		enabled = []string{"*"}
		none    []string
	)

	srv := newTestServer(t, r, enabled, none, 0)
	defer srv.stop()

	_, metrics := srv.collect(t)
	require.Equal(t, "0", metrics.GetValue("test1"))
	require.Equal(t, "0", metrics.GetValue("test2"))
	require.Equal(t, "0", metrics.GetValue("test3"))
	require.Equal(t, "0", metrics.GetValue("test4"))

	g1.gauge.Inc()
	g2.gauge.Set(5)
	g3.gauge.Inc()
	g4.gauge.Set(3)

	_, metrics = srv.collect(t)
	require.Equal(t, "1", metrics.GetValue("test1"))
	require.Equal(t, "5", metrics.GetValue("test2"))
	require.Equal(t, "1", metrics.GetValue("test3"))
	require.Equal(t, "3", metrics.GetValue("test4"))

	g1.gauge.Set(4)
	g2.gauge.Inc()
	g3.gauge.Set(7)
	g4.gauge.Dec()

	_, metrics = srv.collect(t)
	require.Equal(t, "4", metrics.GetValue("test1"))
	require.Equal(t, "6", metrics.GetValue("test2"))
	require.Equal(t, "7", metrics.GetValue("test3"))
	require.Equal(t, "2", metrics.GetValue("test4"))
}

func TestLabeledMetricsCollection(t *testing.T) {
	r := metrics.NewRegistry()

	pools := metrics.MustRegisterTo(r, metrics.MustNewGauge(metrics.Opts{
		Namespace:  "jvm",
		Name:       "memory_pool_bytes_used",
		Help:       "Used bytes of a given JVM memory pool.",
		LabelNames: []string{"pool"},
	}))

	pools.MustLabels("PS Eden Space").Set(500000)
	pools.MustLabels("PS Old Gen").Set(10000)

	srv := newTestServer(t, r, nil, nil, 0)
	defer srv.stop()

	described, metrics := srv.collect(t)
	require.True(t, described.HasEntry("jvm_memory_pool_bytes_used", "gauge"))
	require.True(t, metrics.HasValue(`jvm_memory_pool_bytes_used{pool="PS Eden Space"}`, "500000"))
	require.True(t, metrics.HasValue(`jvm_memory_pool_bytes_used{pool="PS Old Gen"}`, "10000"))
}

func TestMetricsConfiguration(t *testing.T) {
	r := metrics.NewRegistry()
	require.NotNil(t, r)

	newTestGauge(t, r, "test1", metrics.WithGroup("group1"))
	newTestGauge(t, r, "test2", metrics.WithGroup("group1"))
	newTestGauge(t, r, "test3", metrics.WithGroup("group2"))
	newTestGauge(t, r, "test4", metrics.WithGroup("group2"))

	var (
		enabled = []string{"test1", "group2"}
		none    []string
	)

	srv := newTestServer(t, r, enabled, none, 0)
	defer srv.stop()

	described, metrics := srv.collect(t)
	require.True(t, described.HasEntry("test1", "gauge"))
	require.True(t, described.HasEntry("test3", "gauge"))
	require.True(t, described.HasEntry("test4", "gauge"))

	require.True(t, metrics.HasEntry("test1"), "test1 collected")
	require.False(t, metrics.HasEntry("test2"), "test2 not collected")
	require.True(t, metrics.HasEntry("test3"), "test3 collected")
	require.True(t, metrics.HasEntry("test4"), "test4 collected")
}

func TestUnmatchedConfiguration(t *testing.T) {
	r := metrics.NewRegistry()
	newTestGauge(t, r, "test1", metrics.WithGroup("group1"))

	_, err := r.NewGatherer(metrics.WithMetrics([]string{"group1", "group3"}, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "group3")
}

func TestMetricsPolling(t *testing.T) {
	r := metrics.NewRegistry()
	require.NotNil(t, r, "non-nil registry")

	g0 := newTestPolled(t, r, "test1")
	g1 := newTestPolled(t, r, "test2")
	g2 := newTestPolled(t, r, "test3")
	g3 := newTestPolled(t, r, "test4")

	var (
		enabled  []string
		polled   = []string{"*"}
		interval = metrics.MinPollInterval
	)

	srv := newTestServer(t, r, enabled, polled, interval)
	defer srv.stop()

	require.True(t, r.State().IsPolled())

	_, metrics := srv.collect(t)
	require.Equal(t, "0", metrics.GetValue("test1"))
	require.Equal(t, "0", metrics.GetValue("test2"))
	require.Equal(t, "0", metrics.GetValue("test3"))
	require.Equal(t, "0", metrics.GetValue("test4"))

	g0.Set(1)
	g1.Set(2)
	g2.Set(3)
	g3.Set(4)

	_, metrics = srv.collect(t)
	require.Equal(t, "0", metrics.GetValue("test1"))
	require.Equal(t, "0", metrics.GetValue("test2"))
	require.Equal(t, "0", metrics.GetValue("test3"))
	require.Equal(t, "0", metrics.GetValue("test4"))

	g0.Inc()
	g1.Inc()
	g2.Set(7)
	g3.Set(9)

	t.Logf("waiting for metrics poll interval (%s)", interval)
	time.Sleep(interval + time.Second)

	_, metrics = srv.collect(t)
	require.Equal(t, "2", metrics.GetValue("test1"))
	require.Equal(t, "3", metrics.GetValue("test2"))
	require.Equal(t, "7", metrics.GetValue("test3"))
	require.Equal(t, "9", metrics.GetValue("test4"))
}

func TestExplicitPolling(t *testing.T) {
	r := metrics.NewRegistry()
	p := newTestPolled(t, r, "test1", metrics.WithCollectorOptions(metrics.WithPolled()))

	g, err := r.NewGatherer(metrics.WithoutPolling())
	require.NoError(t, err)
	defer g.Stop()

	v, ok := r.GetSampleValue("test1", nil, nil)
	require.False(t, ok, "polled collector without a poll has no samples")
	require.Equal(t, 0.0, v)

	p.Set(3)
	g.Poll()

	v, ok = r.GetSampleValue("test1", nil, nil)
	require.True(t, ok)
	require.Equal(t, 3.0, v)
}

type testGauge struct {
	name  string
	gauge *metrics.Gauge
}

func newTestGauge(t *testing.T, r *metrics.Registry, name string, options ...metrics.RegisterOption) *testGauge {
	g := &testGauge{
		name: name,
	}
	g.gauge = metrics.MustNewGauge(
		metrics.Opts{
			Name: name,
			Help: "Test gauge " + name,
		},
	)

	require.NoError(t, r.Register(g.gauge, append(options, metrics.WithName(name))...))

	return g
}

type testPolled struct {
	name  string
	value atomic.Int64
}

func newTestPolled(t *testing.T, r *metrics.Registry, name string, options ...metrics.RegisterOption) *testPolled {
	p := &testPolled{
		name: name,
	}
	require.NoError(t, r.Register(p, append(options, metrics.WithName(name))...))
	return p
}

func (p *testPolled) Describe() []*metrics.MetricFamilySamples {
	return []*metrics.MetricFamilySamples{
		metrics.NewMetricFamilySamples(p.name, metrics.GaugeType, "Help for metric "+p.name, nil),
	}
}

func (p *testPolled) Collect() []*metrics.MetricFamilySamples {
	return []*metrics.MetricFamilySamples{
		metrics.NewGaugeMetricFamilyValue(p.name, "Help for metric "+p.name, float64(p.value.Load())).Family(),
	}
}

func (p *testPolled) Set(v int64) {
	p.value.Store(v)
}

func (p *testPolled) Inc() {
	p.value.Add(1)
}

type described []string

func (d described) HasEntry(name, kind string) bool {
	for _, e := range d {
		split := strings.Split(e, " ")
		if len(split) >= 2 && split[0] == name && split[1] == kind {
			return true
		}
	}

	return false
}

type collected []string

func (c collected) HasEntry(name string) bool {
	for _, e := range c {
		if !strings.HasPrefix(e, "#") {
			split := strings.SplitN(e, " ", 2)
			if len(split) > 0 && split[0] == name {
				return true
			}
		}
	}

	return false
}

func (c collected) HasValue(name, value string) bool {
	return c.GetValue(name) == value
}

func (c collected) GetValue(name string) string {
	for _, e := range c {
		if strings.HasPrefix(e, "#") {
			continue
		}
		idx := strings.LastIndex(e, " ")
		if idx > 0 && e[:idx] == name {
			return e[idx+1:]
		}
	}

	return ""
}

type testServer struct {
	srv *httptest.Server
	r   *metrics.Registry
	g   *metrics.Gatherer
}

func newTestServer(t *testing.T, r *metrics.Registry, enabled, polled []string, poll time.Duration) *testServer {
	opts := []metrics.GathererOption{
		metrics.WithMetrics(enabled, polled),
	}
	if poll > 0 {
		opts = append(opts, metrics.WithPollInterval(poll))
	} else {
		opts = append(opts, metrics.WithoutPolling())
	}

	g, err := r.NewGatherer(opts...)
	require.NoError(t, err)
	require.NotNil(t, g)

	handlerOpts := promhttp.HandlerOpts{
		ErrorLog:      logger.Get("metrics-test"),
		ErrorHandling: promhttp.PanicOnError,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, handlerOpts))

	return &testServer{
		srv: httptest.NewServer(mux),
		r:   r,
		g:   g,
	}
}

func (srv *testServer) stop() {
	if srv.srv != nil {
		srv.srv.Close()
	}
	if srv.g != nil {
		srv.g.Stop()
	}
}

func (srv *testServer) collect(t *testing.T) (described, collected) {
	resp, err := http.Get(srv.srv.URL + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	var (
		types   []string
		metrics []string
		scanner = bufio.NewScanner(resp.Body)
	)

	for scanner.Scan() {
		e := scanner.Text()

		switch {
		case strings.HasPrefix(e, "# HELP"):
		case strings.HasPrefix(e, "# TYPE "):
			types = append(types, strings.TrimPrefix(e, "# TYPE "))
		default:
			metrics = append(metrics, e)
		}
	}

	return described(types), collected(metrics)
}
