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
	"strconv"
	"strings"

	model "github.com/prometheus/client_model/go"
)

// FamilyToModel converts a family to its client_model representation.
// The suffixed samples of histograms and summaries are regrouped into one
// metric per label value tuple.
func FamilyToModel(f *MetricFamilySamples) (*model.MetricFamily, error) {
	mf := &model.MetricFamily{
		Name: strPtr(f.Name),
		Help: strPtr(f.Help),
		Type: modelType(f.Type).Enum(),
	}

	switch f.Type {
	case HistogramType:
		return histogramToModel(f, mf)
	case SummaryType:
		return summaryToModel(f, mf)
	}

	for _, s := range f.Samples() {
		if s.Name != f.Name {
			return nil, metricsError("sample %s in family %s", s.Name, f.Name)
		}
		m := &model.Metric{TimestampMs: s.TimestampMs}
		m.Label, _ = labelPairs(s, "")
		v := s.Value()
		switch f.Type {
		case CounterType:
			m.Counter = &model.Counter{Value: &v}
		case GaugeType:
			m.Gauge = &model.Gauge{Value: &v}
		default:
			m.Untyped = &model.Untyped{Value: &v}
		}
		mf.Metric = append(mf.Metric, m)
	}

	return mf, nil
}

// grouped collects the metrics of a histogram or summary family by the
// label value tuple they belong to, in order of appearance.
type grouped struct {
	metrics map[string]*model.Metric
	order   []*model.Metric
}

func (g *grouped) get(s *Sample, skip string) *model.Metric {
	pairs, key := labelPairs(s, skip)
	if m, ok := g.metrics[key]; ok {
		return m
	}
	m := &model.Metric{Label: pairs, TimestampMs: s.TimestampMs}
	g.metrics[key] = m
	g.order = append(g.order, m)
	return m
}

func histogramToModel(f *MetricFamilySamples, mf *model.MetricFamily) (*model.MetricFamily, error) {
	g := &grouped{metrics: make(map[string]*model.Metric)}

	for _, s := range f.Samples() {
		m := g.get(s, bucketLabel)
		if m.Histogram == nil {
			m.Histogram = &model.Histogram{}
		}
		h := m.Histogram

		switch s.Name {
		case f.Name + "_bucket":
			le, ok := s.Label(bucketLabel)
			if !ok {
				return nil, metricsError("histogram %s: bucket without %q label", f.Name, bucketLabel)
			}
			bound, err := strconv.ParseFloat(le, 64)
			if err != nil {
				return nil, metricsError("histogram %s: invalid bucket %q: %v", f.Name, le, err)
			}
			h.Bucket = append(h.Bucket, &model.Bucket{
				UpperBound:      &bound,
				CumulativeCount: u64Ptr(uint64(s.Value())),
			})
		case f.Name + "_count":
			h.SampleCount = u64Ptr(uint64(s.Value()))
		case f.Name + "_sum":
			h.SampleSum = f64Ptr(s.Value())
		default:
			return nil, metricsError("sample %s in histogram %s", s.Name, f.Name)
		}
	}

	mf.Metric = g.order
	return mf, nil
}

func summaryToModel(f *MetricFamilySamples, mf *model.MetricFamily) (*model.MetricFamily, error) {
	g := &grouped{metrics: make(map[string]*model.Metric)}

	for _, s := range f.Samples() {
		m := g.get(s, quantileLabel)
		if m.Summary == nil {
			m.Summary = &model.Summary{}
		}
		sum := m.Summary

		switch s.Name {
		case f.Name:
			q, ok := s.Label(quantileLabel)
			if !ok {
				return nil, metricsError("summary %s: sample without %q label", f.Name, quantileLabel)
			}
			quantile, err := strconv.ParseFloat(q, 64)
			if err != nil {
				return nil, metricsError("summary %s: invalid quantile %q: %v", f.Name, q, err)
			}
			sum.Quantile = append(sum.Quantile, &model.Quantile{
				Quantile: &quantile,
				Value:    f64Ptr(s.Value()),
			})
		case f.Name + "_count":
			sum.SampleCount = u64Ptr(uint64(s.Value()))
		case f.Name + "_sum":
			sum.SampleSum = f64Ptr(s.Value())
		default:
			return nil, metricsError("sample %s in summary %s", s.Name, f.Name)
		}
	}

	mf.Metric = g.order
	return mf, nil
}

// FamilyFromModel converts a client_model family into a family of samples.
// Histograms and summaries are expanded into their suffixed samples.
func FamilyFromModel(mf *model.MetricFamily) *MetricFamilySamples {
	var (
		name    = mf.GetName()
		typ     = familyType(mf.GetType())
		samples []*Sample
	)

	for _, m := range mf.GetMetric() {
		names := make([]string, 0, len(m.GetLabel())+1)
		values := make([]string, 0, len(m.GetLabel())+1)
		for _, l := range m.GetLabel() {
			names = append(names, l.GetName())
			values = append(values, l.GetValue())
		}
		ts := m.TimestampMs

		switch typ {
		case CounterType:
			samples = append(samples, newSample(name, names, values, m.GetCounter().GetValue(), ts))
		case GaugeType:
			samples = append(samples, newSample(name, names, values, m.GetGauge().GetValue(), ts))
		case HistogramType:
			h := m.GetHistogram()
			bnames := append(names[:len(names):len(names)], bucketLabel)
			for _, b := range h.GetBucket() {
				bvalues := append(values[:len(values):len(values)], FormatFloat(b.GetUpperBound()))
				samples = append(samples, newSample(name+"_bucket", bnames, bvalues, float64(b.GetCumulativeCount()), ts))
			}
			samples = append(samples,
				newSample(name+"_count", names, values, float64(h.GetSampleCount()), ts),
				newSample(name+"_sum", names, values, h.GetSampleSum(), ts),
			)
		case SummaryType:
			s := m.GetSummary()
			qnames := append(names[:len(names):len(names)], quantileLabel)
			for _, q := range s.GetQuantile() {
				qvalues := append(values[:len(values):len(values)], FormatFloat(q.GetQuantile()))
				samples = append(samples, newSample(name, qnames, qvalues, q.GetValue(), ts))
			}
			samples = append(samples,
				newSample(name+"_count", names, values, float64(s.GetSampleCount()), ts),
				newSample(name+"_sum", names, values, s.GetSampleSum(), ts),
			)
		default:
			samples = append(samples, newSample(name, names, values, m.GetUntyped().GetValue(), ts))
		}
	}

	return NewMetricFamilySamples(name, typ, mf.GetHelp(), samples)
}

// labelPairs returns the labels of the sample, except skip, sorted by name
// together with a key identifying the label values.
func labelPairs(s *Sample, skip string) ([]*model.LabelPair, string) {
	pairs := make([]*model.LabelPair, 0, len(s.LabelNames))
	for i, n := range s.LabelNames {
		if n == skip {
			continue
		}
		pairs = append(pairs, &model.LabelPair{
			Name:  strPtr(n),
			Value: strPtr(s.LabelValues[i]),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].GetName() < pairs[j].GetName()
	})

	key := strings.Builder{}
	for _, p := range pairs {
		key.WriteString(p.GetName())
		key.WriteByte(0xfe)
		key.WriteString(p.GetValue())
		key.WriteByte(0xff)
	}

	return pairs, key.String()
}

func modelType(t Type) model.MetricType {
	switch t {
	case CounterType:
		return model.MetricType_COUNTER
	case GaugeType:
		return model.MetricType_GAUGE
	case SummaryType:
		return model.MetricType_SUMMARY
	case HistogramType:
		return model.MetricType_HISTOGRAM
	}
	return model.MetricType_UNTYPED
}

func familyType(t model.MetricType) Type {
	switch t {
	case model.MetricType_COUNTER:
		return CounterType
	case model.MetricType_GAUGE:
		return GaugeType
	case model.MetricType_SUMMARY:
		return SummaryType
	case model.MetricType_HISTOGRAM:
		return HistogramType
	}
	return UntypedType
}

func strPtr(s string) *string { return &s }
func f64Ptr(v float64) *float64 { return &v }
func u64Ptr(v uint64) *uint64 { return &v }
