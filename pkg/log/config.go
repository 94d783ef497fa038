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

package log

import (
	"os"
	"sort"
	"strings"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/log"
	"github.com/containers/nri-plugins-metrics/pkg/log/klogcontrol"
	"github.com/containers/nri-plugins-metrics/pkg/utils"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// debugEnvVar seeds per-source debugging, for instance "metrics,off:http".
	debugEnvVar = "LOGGER_DEBUG"
	// logSourceEnvVar turns on source prefixes if set.
	logSourceEnvVar = "LOGGER_LOG_SOURCE"
)

// srcmap maps logger sources, or glob patterns of them, to debug state.
type srcmap map[string]bool

// parse adds comma-separated [state:]source entries to the map. A missing
// state repeats the previous one, "on" for the first entry. Source "all"
// is an alias for "*".
func (m srcmap) parse(value string) error {
	state := "on"
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		src := entry
		if s, rest, ok := strings.Cut(entry, ":"); ok {
			if strings.Contains(rest, ":") {
				return loggerError("invalid debug entry %q", entry)
			}
			state, src = strings.TrimSpace(s), strings.TrimSpace(rest)
		}

		enabled, err := utils.ParseEnabled(state)
		if err != nil {
			return loggerError("invalid debug state %q in %q", state, entry)
		}
		if src == "all" {
			src = "*"
		}
		m[src] = enabled
	}
	return nil
}

// String returns the map in the form parse accepts.
func (m srcmap) String() string {
	var on, off []string
	for src, enabled := range m {
		if enabled {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	var parts []string
	if len(on) > 0 {
		parts = append(parts, "on:"+strings.Join(on, ","))
	}
	if len(off) > 0 {
		parts = append(parts, "off:"+strings.Join(off, ","))
	}
	return strings.Join(parts, ",")
}

// Configure applies the given logging configuration.
func Configure(cfg *cfgapi.Config) error {
	dbg := srcmap{}
	for _, value := range cfg.Debug {
		if err := dbg.parse(value); err != nil {
			return err
		}
	}

	// Without klog headers the source is the only hint where a message came from.
	prefix := cfg.LogSource
	if isSet(cfg.Klog.Logtostderr) && isSet(cfg.Klog.Skip_headers) {
		prefix = true
	}

	log.Lock()
	log.setDbgMap(dbg)
	log.setPrefix(prefix)
	log.Unlock()

	deflog.Debug("logging configured, debug %q, source prefix %v", dbg.String(), prefix)

	return klogcontrol.Get().Configure(&cfg.Klog)
}

func isSet(b *bool) bool {
	return b != nil && *b
}

func init() {
	cfg := &cfgapi.Config{
		LogSource: os.Getenv(logSourceEnvVar) != "",
	}
	if value, ok := os.LookupEnv(debugEnvVar); ok {
		cfg.Debug = []string{value}
	}
	if err := Configure(cfg); err != nil {
		deflog.Error("invalid $%s: %v", debugEnvVar, err)
	}
}
