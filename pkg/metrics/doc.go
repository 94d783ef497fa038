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

// The metrics package provides a small framework for instrumenting code
// and exporting the collected metrics in the Prometheus text exposition
// format. Gauges, counters, histograms and summaries can be partitioned by
// labels. Exporters of externally sampled state can assemble whole metric
// families with a FamilyBuilder. A Registry guarantees that no two
// registered collectors provide the same metric name, allows collectors to
// be enabled or put into polled mode by glob patterns, and can be exported
// through a prometheus.Gatherer.
//
// Simple Usage
//
//package main
//
//import (
//    "log"
//    "net/http"
//
//    "github.com/containers/nri-plugins-metrics/pkg/metrics"
//    "github.com/prometheus/client_golang/prometheus/promhttp"
//)
//
//func main() {
//    r := metrics.NewRegistry()
//
//    requests := metrics.MustRegisterTo(r, metrics.MustNewCounter(metrics.Opts{
//        Name:       "http_requests_total",
//        Help:       "Number of HTTP requests.",
//        LabelNames: []string{"path"},
//    }))
//
//    g, err := r.NewGatherer()
//    if err != nil {
//        log.Fatal(err)
//    }
//
//    http.HandleFunc("/hello", func(w http.ResponseWriter, _ *http.Request) {
//        requests.MustLabels("/hello").Inc()
//        w.Write([]byte("hello\n"))
//    })
//    http.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
//    log.Fatal(http.ListenAndServe(":8891", nil))
//}
