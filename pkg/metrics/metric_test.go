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
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

func TestNewMetricValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts metrics.Opts
		err  error
	}{
		{
			name: "invalid name",
			opts: metrics.Opts{Name: "bad-name", Help: "help"},
			err:  metrics.ErrInvalidMetricName,
		},
		{
			name: "invalid label name",
			opts: metrics.Opts{Name: "good", Help: "help", LabelNames: []string{"bad-label"}},
			err:  metrics.ErrInvalidLabelName,
		},
		{
			name: "reserved label name",
			opts: metrics.Opts{Name: "good", Help: "help", LabelNames: []string{"__reserved"}},
			err:  metrics.ErrReservedLabelName,
		},
		{
			name: "missing help",
			opts: metrics.Opts{Name: "good"},
		},
		{
			name: "duplicate label name",
			opts: metrics.Opts{Name: "good", Help: "help", LabelNames: []string{"a", "a"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := metrics.NewGauge(tc.opts)
			require.Error(t, err)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestFullyQualifiedName(t *testing.T) {
	require.Equal(t, "jvm_memory_bytes_used", metrics.BuildFQName("jvm", "memory", "bytes_used"))
	require.Equal(t, "jvm_bytes_used", metrics.BuildFQName("jvm", "", "bytes_used"))
	require.Equal(t, "bytes_used", metrics.BuildFQName("", "", "bytes_used"))
	require.Equal(t, "", metrics.BuildFQName("jvm", "memory", ""))

	g := metrics.MustNewGauge(metrics.Opts{
		Namespace: "jvm",
		Subsystem: "memory",
		Name:      "bytes_used",
		Help:      "Used bytes.",
	})
	require.Equal(t, "jvm_memory_bytes_used", g.Name())
}

func TestGaugeLabelArity(t *testing.T) {
	g := metrics.MustNewGauge(metrics.Opts{
		Name:       "jvm_memory_pool_bytes_used",
		Help:       "Used bytes of a given JVM memory pool.",
		LabelNames: []string{"pool"},
	})

	_, err := g.Labels()
	require.ErrorIs(t, err, metrics.ErrLabelArity)
	_, err = g.Labels("PS Eden Space", "extra")
	require.ErrorIs(t, err, metrics.ErrLabelArity)

	require.Panics(t, func() { g.Set(1) }, "unlabeled use of a labeled gauge")
	for name, fn := range map[string]func(){
		"gauge":   func() { g.Inc() },
		"counter": func() { metrics.MustNewCounter(metrics.Opts{Name: "c_total", Help: "c", LabelNames: []string{"l"}}).Inc() },
	} {
		func() {
			defer func() {
				err, ok := recover().(error)
				require.True(t, ok, "%s: panic with an error", name)
				require.ErrorIs(t, err, metrics.ErrLabelArity, name)
			}()
			fn()
		}()
	}
	require.Empty(t, g.Collect()[0].Samples())
}

func TestGaugeOperations(t *testing.T) {
	g := metrics.MustNewGauge(metrics.Opts{Name: "gauge", Help: "A gauge."})

	samples := g.Collect()[0].Samples()
	require.Len(t, samples, 1, "implicit child of a gauge without labels")
	require.Equal(t, 0.0, samples[0].Value())

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	g.Add(2.5)
	g.Sub(0.5)
	require.Equal(t, 11.0, g.Get())

	g.SetToCurrentTime()
	require.Greater(t, g.Get(), 1e9)
}

func TestChildIdentity(t *testing.T) {
	g := metrics.MustNewGauge(metrics.Opts{
		Name:       "jvm_memory_pool_bytes_used",
		Help:       "Used bytes of a given JVM memory pool.",
		LabelNames: []string{"pool"},
	})

	const workers = 16

	var (
		wg       sync.WaitGroup
		children = make([]*metrics.GaugeChild, workers)
		start    = make(chan struct{})
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			children[i] = g.MustLabels("PS Eden Space")
			children[i].Inc()
		}(i)
	}
	close(start)
	wg.Wait()

	for _, c := range children[1:] {
		require.Same(t, children[0], c)
	}
	require.Equal(t, float64(workers), children[0].Get())

	children[3].Set(42)
	require.Equal(t, 42.0, g.MustLabels("PS Eden Space").Get())

	samples := g.Collect()[0].Samples()
	require.Len(t, samples, 1)
	require.Equal(t, 42.0, samples[0].Value())
}

func TestConcurrentUpdates(t *testing.T) {
	c := metrics.MustNewCounter(metrics.Opts{
		Name:       "events_total",
		Help:       "Number of events.",
		LabelNames: []string{"kind"},
	})

	const (
		workers = 8
		rounds  = 1000
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := []string{"even", "odd"}[i%2]
			for j := 0; j < rounds; j++ {
				c.MustLabels(kind).Inc()
				if j%100 == 0 {
					c.Collect()
				}
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, float64(workers/2*rounds), c.MustLabels("even").Get())
	require.Equal(t, float64(workers/2*rounds), c.MustLabels("odd").Get())
}

func TestCollectOrder(t *testing.T) {
	g := metrics.MustNewGauge(metrics.Opts{
		Name:       "ordered",
		Help:       "Samples sorted by label values.",
		LabelNames: []string{"area", "pool"},
	})

	g.MustLabels("nonheap", "Metaspace").Set(1)
	g.MustLabels("heap", "PS Old Gen").Set(2)
	g.MustLabels("heap", "PS Eden Space").Set(3)

	var got [][]string
	for _, s := range g.Collect()[0].Samples() {
		got = append(got, s.LabelValues)
	}

	want := [][]string{
		{"heap", "PS Eden Space"},
		{"heap", "PS Old Gen"},
		{"nonheap", "Metaspace"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected sample order (-want +got):\n%s", diff)
	}
}

func TestCounter(t *testing.T) {
	c := metrics.MustNewCounter(metrics.Opts{Name: "requests_total", Help: "Requests."})

	c.Inc()
	require.NoError(t, c.Add(2.5))
	require.ErrorIs(t, c.Add(-1), metrics.ErrNegativeIncrement)
	require.Equal(t, 3.5, c.Get())

	f := c.Collect()[0]
	require.Equal(t, metrics.CounterType, f.Type)
	require.Equal(t, "requests_total", f.Samples()[0].Name)
	require.Equal(t, 3.5, f.Samples()[0].Value())
}

func TestHistogram(t *testing.T) {
	h := metrics.MustNewHistogram(metrics.HistogramOpts{
		Opts: metrics.Opts{
			Name:       "gc_pause_seconds",
			Help:       "GC pause durations.",
			LabelNames: []string{"gc"},
		},
		Buckets: []float64{0.1, 1, 10},
	})

	c := h.MustLabels("G1 Young Generation")
	for _, v := range []float64{0.05, 0.1, 0.5, 5, 50, math.NaN()} {
		c.Observe(v)
	}

	s := c.Snapshot()
	require.Equal(t, []float64{0.1, 1, 10, math.Inf(+1)}, s.UpperBounds)
	require.Equal(t, []uint64{2, 3, 4, 6}, s.Buckets)
	require.Equal(t, uint64(6), s.Count)

	f := h.Collect()[0]
	require.Equal(t, metrics.HistogramType, f.Type)
	require.Len(t, f.Samples(), 6)

	bucket := f.Samples()[1]
	require.Equal(t, "gc_pause_seconds_bucket", bucket.Name)
	require.Equal(t, []string{"gc", "le"}, bucket.LabelNames)
	require.Equal(t, []string{"G1 Young Generation", "1"}, bucket.LabelValues)
	require.Equal(t, 3.0, bucket.Value())

	inf := f.Samples()[3]
	require.Equal(t, []string{"G1 Young Generation", "+Inf"}, inf.LabelValues)
	require.Equal(t, "gc_pause_seconds_count", f.Samples()[4].Name)
	require.Equal(t, 6.0, f.Samples()[4].Value())
	require.Equal(t, "gc_pause_seconds_sum", f.Samples()[5].Name)
}

func TestHistogramBuckets(t *testing.T) {
	_, err := metrics.NewHistogram(metrics.HistogramOpts{
		Opts:    metrics.Opts{Name: "h", Help: "h"},
		Buckets: []float64{1, 1},
	})
	require.ErrorIs(t, err, metrics.ErrInvalidBuckets)

	_, err = metrics.NewHistogram(metrics.HistogramOpts{
		Opts: metrics.Opts{Name: "h", Help: "h", LabelNames: []string{"le"}},
	})
	require.ErrorIs(t, err, metrics.ErrReservedLabelName)

	h := metrics.MustNewHistogram(metrics.HistogramOpts{Opts: metrics.Opts{Name: "h", Help: "h"}})
	require.Len(t, h.Snapshot().UpperBounds, len(metrics.DefBuckets)+1)

	require.Equal(t, []float64{1, 3, 5}, metrics.LinearBuckets(1, 2, 3))
	require.Equal(t, []float64{1, 2, 4, 8}, metrics.ExponentialBuckets(1, 2, 4))
	require.Panics(t, func() { metrics.LinearBuckets(0, 1, 0) })
	require.Panics(t, func() { metrics.ExponentialBuckets(0, 2, 3) })
	require.Panics(t, func() { metrics.ExponentialBuckets(1, 1, 3) })
}

func TestSummary(t *testing.T) {
	s := metrics.MustNewSummary(metrics.SummaryOpts{
		Opts:       metrics.Opts{Name: "latency_seconds", Help: "Latencies."},
		Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.001},
	})

	snap := s.Snapshot()
	require.Equal(t, []float64{0.5, 0.99}, snap.Quantiles)
	require.True(t, math.IsNaN(snap.Values[0]), "no observations yet")

	for i := 1; i <= 100; i++ {
		s.Observe(float64(i))
	}

	snap = s.Snapshot()
	require.Equal(t, uint64(100), snap.Count)
	require.Equal(t, 5050.0, snap.Sum)
	require.InDelta(t, 50, snap.Values[0], 5)
	require.InDelta(t, 99, snap.Values[1], 1)

	f := s.Collect()[0]
	require.Equal(t, metrics.SummaryType, f.Type)
	require.Len(t, f.Samples(), 4)
	require.Equal(t, []string{"quantile"}, f.Samples()[0].LabelNames)
	require.Equal(t, []string{"0.5"}, f.Samples()[0].LabelValues)
	require.Equal(t, "latency_seconds_count", f.Samples()[2].Name)

	_, err := metrics.NewSummary(metrics.SummaryOpts{
		Opts:       metrics.Opts{Name: "bad", Help: "Bad."},
		Objectives: map[float64]float64{1.5: 0.1},
	})
	require.ErrorIs(t, err, metrics.ErrInvalidObjectives)
}
