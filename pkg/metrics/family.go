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
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// MetricFamilySamples is a metric family together with all of its samples.
// Collectors create a fresh one for each collection, except for families
// assembled by a FamilyBuilder, which are reused across collections.
//
// The sample list is replaced as a whole, never modified in place, so a
// slice returned by Samples stays valid while the family is being updated.
type MetricFamilySamples struct {
	Name        string
	Type        Type
	Help        string
	EscapedHelp string
	samples     atomic.Pointer[[]*Sample]
}

// NewMetricFamilySamples creates a metric family, escaping its help text.
func NewMetricFamilySamples(name string, typ Type, help string, samples []*Sample) *MetricFamilySamples {
	return NewMetricFamilySamplesEscaped(name, typ, help, EscapeHelp(help), samples)
}

// NewMetricFamilySamplesEscaped creates a metric family with pre-escaped help text.
func NewMetricFamilySamplesEscaped(name string, typ Type, help, escapedHelp string, samples []*Sample) *MetricFamilySamples {
	f := &MetricFamilySamples{
		Name:        name,
		Type:        typ,
		Help:        help,
		EscapedHelp: escapedHelp,
	}
	f.samples.Store(&samples)
	return f
}

// Samples returns the current samples of the family. The returned slice
// must not be modified.
func (f *MetricFamilySamples) Samples() []*Sample {
	if p := f.samples.Load(); p != nil {
		return *p
	}
	return nil
}

// appendSample publishes a new sample list with s appended. Callers
// serialize appends.
func (f *MetricFamilySamples) appendSample(s *Sample) {
	old := f.Samples()
	samples := make([]*Sample, len(old), len(old)+1)
	copy(samples, old)
	samples = append(samples, s)
	f.samples.Store(&samples)
}

// Describe returns a copy of the family without samples.
func (f *MetricFamilySamples) Describe() *MetricFamilySamples {
	return NewMetricFamilySamplesEscaped(f.Name, f.Type, f.Help, f.EscapedHelp, nil)
}

// Equal returns true if the families have identical names, types, help
// texts, and samples in identical order.
func (f *MetricFamilySamples) Equal(o *MetricFamilySamples) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Name != o.Name || f.Type != o.Type || f.Help != o.Help {
		return false
	}
	fs, ss := f.Samples(), o.Samples()
	if len(fs) != len(ss) {
		return false
	}
	for i, s := range fs {
		if !s.Equal(ss[i]) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash of the family, consistent with Equal.
func (f *MetricFamilySamples) Hash() uint64 {
	var (
		h   = xxhash.New()
		buf [8]byte
	)

	str := func(s string) {
		h.WriteString(s)
		h.Write([]byte{0xff})
	}
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	str(f.Name)
	u64(uint64(f.Type))
	str(f.Help)
	for _, s := range f.Samples() {
		str(s.Name)
		for i, n := range s.LabelNames {
			str(n)
			str(s.LabelValues[i])
		}
		u64(s.value.Load())
		if s.TimestampMs != nil {
			u64(uint64(*s.TimestampMs))
		}
	}

	return h.Sum64()
}

// String returns a human-readable representation of the family.
func (f *MetricFamilySamples) String() string {
	all := f.Samples()
	samples := make([]string, 0, len(all))
	for _, s := range all {
		samples = append(samples, s.String())
	}
	return fmt.Sprintf("Name: %s Type: %s Help: %s Samples: [%s]",
		f.Name, f.Type, f.Help, strings.Join(samples, ", "))
}

// names returns the sample names the family may expose.
func (f *MetricFamilySamples) names() []string {
	switch f.Type {
	case HistogramType:
		return []string{f.Name, f.Name + "_count", f.Name + "_sum", f.Name + "_bucket"}
	case SummaryType:
		return []string{f.Name, f.Name + "_count", f.Name + "_sum"}
	}
	return []string{f.Name}
}
