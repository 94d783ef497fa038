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

package klogcontrol

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"k8s.io/klog/v2"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/log/klogcontrol"
)

const (
	// envPrefix prefixes the environment variables overriding klog flags.
	envPrefix = "LOGGER_"
)

// Control adjusts klog flags at runtime.
type Control struct {
	flags *flag.FlagSet
}

var ctl = newControl()

// Get returns the klog Control.
func Get() *Control {
	return ctl
}

func newControl() *Control {
	c := &Control{flags: flag.NewFlagSet("klog", flag.ContinueOnError)}
	c.flags.SetOutput(io.Discard)
	klog.InitFlags(c.flags)
	c.seedFromEnv()
	return c
}

// Configure sets every klog flag present in the configuration.
func (c *Control) Configure(cfg *cfgapi.Config) error {
	var errs *multierror.Error
	c.flags.VisitAll(func(f *flag.Flag) {
		if value, ok := cfg.GetByFlag(f.Name); ok {
			errs = multierror.Append(errs, c.Set(f.Name, value))
		}
	})
	return errs.ErrorOrNil()
}

// Set sets a single klog flag.
func (c *Control) Set(name, value string) error {
	if err := c.flags.Set(name, value); err != nil {
		return fmt.Errorf("klogcontrol: failed to set %s=%q: %w", name, value, err)
	}
	return nil
}

// Get returns the current value of a klog flag.
func (c *Control) Get(name string) (string, bool) {
	f := c.flags.Lookup(name)
	if f == nil {
		return "", false
	}
	return f.Value.String(), true
}

// seedFromEnv applies LOGGER_<FLAG> overrides. Headers are off by
// default when logging to journald.
func (c *Control) seedFromEnv() {
	c.flags.VisitAll(func(f *flag.Flag) {
		env := envName(f.Name)
		if value, ok := os.LookupEnv(env); ok {
			if err := c.Set(f.Name, value); err != nil {
				klog.Errorf("invalid environment %s: %v", env, err)
			}
			return
		}
		if f.Name == "skip_headers" && os.Getenv("JOURNAL_STREAM") != "" {
			_ = c.Set(f.Name, "true")
		}
	})
}

func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
