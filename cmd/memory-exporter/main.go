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

package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	logger "github.com/containers/nri-plugins-metrics/pkg/log"
	"github.com/containers/nri-plugins-metrics/pkg/instrumentation"
	"github.com/containers/nri-plugins-metrics/pkg/metrics"
	"github.com/containers/nri-plugins-metrics/pkg/metrics/collectors"
	"github.com/containers/nri-plugins-metrics/pkg/version"
)

var (
	log = logger.Get("memory-exporter")
)

type options struct {
	config    string
	listen    string
	namespace string
}

func main() {
	opts := options{}

	flag.StringVar(&opts.config, "config", "", "YAML configuration file to use")
	flag.StringVar(&opts.listen, "listen", "", "HTTP endpoint to serve /metrics on, overrides configuration")
	flag.StringVar(&opts.namespace, "namespace", "", "namespace of exported memory metrics, overrides configuration")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		log.Fatal("%v", err)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}

	if opts.listen != "" {
		cfg.Spec.Instrumentation.HTTPEndpoint = opts.listen
	}
	if opts.namespace != "" {
		cfg.Spec.Instrumentation.Namespace = opts.namespace
	}

	if err := logger.Configure(&cfg.Spec.Log); err != nil {
		return errors.Wrap(err, "failed to configure logging")
	}
	logger.SetSlogLogger("slog")

	log.Info("memory exporter version %s (build %s) starting...", version.Version, version.Build)

	registry := metrics.Default()
	icfg := &cfg.Spec.Instrumentation

	err = collectors.RegisterStandard(registry, collectors.StandardOptions{
		Namespace:    icfg.Namespace,
		SystemMemory: cfg.Spec.SystemMemory,
	})
	if err != nil {
		log.Warn("some standard collectors failed to register: %v", err)
	}

	gcw, err := collectors.NewGCWatcher(icfg.Namespace, collectors.RuntimeMemoryReader{})
	if err != nil {
		return errors.Wrap(err, "failed to create GC watcher")
	}
	if err := registry.Register(gcw, metrics.WithName("gc"), metrics.WithGroup(collectors.StandardGroup)); err != nil {
		return errors.Wrap(err, "failed to register GC watcher")
	}
	if period := icfg.GCWatchPeriod.Duration; period > 0 {
		go gcw.Run(ctx, period)
	}

	svc := instrumentation.New(registry, icfg)
	if err := svc.Start(); err != nil {
		return errors.Wrap(err, "failed to start instrumentation")
	}
	defer svc.Stop()

	<-ctx.Done()
	log.Info("shutting down...")

	return nil
}

