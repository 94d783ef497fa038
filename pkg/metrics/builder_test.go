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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/containers/nri-plugins-metrics/pkg/metrics"
)

func TestSetMetricIdempotence(t *testing.T) {
	b := metrics.NewGaugeMetricFamily("jvm_memory_bytes_committed", "Committed bytes.", "area")

	require.NoError(t, b.SetMetric([]string{"heap"}, 5))
	first := b.Family().Samples()[0]
	require.NoError(t, b.SetMetric([]string{"heap"}, 5))
	require.NoError(t, b.SetMetric([]string{"heap"}, 7))

	f := b.Family()
	require.Len(t, f.Samples(), 1)
	require.Same(t, first, f.Samples()[0], "sample updated in place")
	require.Equal(t, 7.0, f.Samples()[0].Value())

	require.NoError(t, b.SetMetric([]string{"nonheap"}, 3))
	require.Len(t, f.Samples(), 2)
	require.Equal(t, []string{"nonheap"}, f.Samples()[1].LabelValues)
}

func TestAddMetricDuplicates(t *testing.T) {
	b := metrics.NewGaugeMetricFamily("jvm_memory_bytes_init", "Initial bytes.", "area")

	require.NoError(t, b.AddMetric([]string{"heap"}, 1))
	require.NoError(t, b.AddMetric([]string{"nonheap"}, 2))
	require.Len(t, b.Family().Samples(), 2)

	require.NoError(t, b.AddMetric([]string{"heap"}, 3))
	require.NoError(t, b.AddMetric([]string{"heap"}, 3))
	require.Len(t, b.Family().Samples(), 4, "duplicate label values are kept")
}

func TestBuilderArity(t *testing.T) {
	b := metrics.NewGaugeMetricFamily("pools", "Pools.", "area", "pool")

	require.ErrorIs(t, b.AddMetric([]string{"heap"}, 1), metrics.ErrLabelArity)
	require.ErrorIs(t, b.SetMetric([]string{"heap", "eden", "extra"}, 1), metrics.ErrLabelArity)
	require.Empty(t, b.Family().Samples())
}

func TestBuilderLabelValuesAreCopied(t *testing.T) {
	b := metrics.NewGaugeMetricFamily("pools", "Pools.", "pool")

	values := []string{"PS Eden Space"}
	require.NoError(t, b.SetMetric(values, 1))
	values[0] = "PS Old Gen"

	require.Equal(t, []string{"PS Eden Space"}, b.Family().Samples()[0].LabelValues)
}

func TestBuilderConstructors(t *testing.T) {
	f := metrics.NewGaugeMetricFamilyValue("up", "Whether we are up.", 1).Family()
	require.Equal(t, metrics.GaugeType, f.Type)
	require.Len(t, f.Samples(), 1)
	require.Equal(t, 1.0, f.Samples()[0].Value())
	require.Empty(t, f.Samples()[0].LabelNames)

	f = metrics.NewGaugeMetricFamilyEscaped("escaped", "a\nb", `a\nb`).Family()
	require.Equal(t, "a\nb", f.Help)
	require.Equal(t, `a\nb`, f.EscapedHelp)

	f = metrics.NewGaugeMetricFamily("escaped", "back\\slash").Family()
	require.Equal(t, `back\\slash`, f.EscapedHelp)

	require.Equal(t, metrics.CounterType, metrics.NewCounterMetricFamily("c", "c").Family().Type)
	require.Equal(t, metrics.UntypedType, metrics.NewUntypedMetricFamily("u", "u").Family().Type)
}

func TestBuilderFamilyIdentity(t *testing.T) {
	b := metrics.NewGaugeMetricFamily("jvm_memory_pool_bytes_used", "Used bytes.", "pool")
	require.NoError(t, b.SetMetric([]string{"PS Eden Space"}, 1))

	first := b.Collect()[0]
	require.NoError(t, b.SetMetric([]string{"PS Eden Space"}, 2))
	second := b.Collect()[0]

	require.Same(t, first, second)
	require.Same(t, b.Family(), first)
	require.Equal(t, 2.0, second.Samples()[0].Value())

	described := b.Describe()[0]
	require.Equal(t, first.Name, described.Name)
	require.Empty(t, described.Samples())
}

func TestBuilderConcurrentAppend(t *testing.T) {
	const (
		writers = 4
		updates = 100
	)

	b := metrics.NewGaugeMetricFamily("pool_bytes", "Pool size.", "pool")
	f := b.Family()

	var (
		wg   sync.WaitGroup
		stop = make(chan struct{})
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < updates; j++ {
				if err := b.SetMetric([]string{fmt.Sprintf("pool-%d-%d", i, j)}, float64(j)); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}

	readers := sync.WaitGroup{}
	for i := 0; i < writers; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				samples := f.Samples()
				for _, s := range samples {
					_ = s.Value()
				}
				_ = f.Hash()
			}
		}()
	}

	wg.Wait()
	close(stop)
	readers.Wait()

	require.Same(t, f, b.Family())
	require.Len(t, f.Samples(), writers*updates)
}
