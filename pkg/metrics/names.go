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
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// NanosecondsPerSecond is the number of nanoseconds in a second.
	NanosecondsPerSecond = 1e9
	// MillisecondsPerSecond is the number of milliseconds in a second.
	MillisecondsPerSecond = 1e3
)

var (
	metricNameRE        = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	labelNameRE         = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	reservedLabelNameRE = regexp.MustCompile(`^__.*$`)
	sanitizePrefixRE    = regexp.MustCompile(`^[^a-zA-Z_:]`)
	sanitizeBodyRE      = regexp.MustCompile(`[^a-zA-Z0-9_:]`)

	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

// CheckMetricName returns an error if name is not a valid metric name.
func CheckMetricName(name string) error {
	if !metricNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricName, name)
	}
	return nil
}

// CheckLabelName returns an error if name is not a valid label name or
// if it is reserved for internal use.
func CheckLabelName(name string) error {
	if !labelNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidLabelName, name)
	}
	if reservedLabelNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrReservedLabelName, name)
	}
	return nil
}

// SanitizeMetricName turns name into a valid metric name by replacing an
// invalid first character, then all other invalid characters, with '_'.
func SanitizeMetricName(name string) string {
	if name == "" {
		return "_"
	}
	name = sanitizePrefixRE.ReplaceAllLiteralString(name, "_")
	return sanitizeBodyRE.ReplaceAllLiteralString(name, "_")
}

// EscapeHelp escapes backslashes and newlines in help text.
func EscapeHelp(help string) string {
	return helpEscaper.Replace(help)
}

// EscapeLabelValue escapes backslashes, newlines and double quotes in a
// label value.
func EscapeLabelValue(value string) string {
	return valueEscaper.Replace(value)
}

// FormatFloat renders v the way the text exposition format expects it.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, +1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// checkLabelNames validates a full set of label names, rejecting duplicates
// and any name in reserved.
func checkLabelNames(labelNames []string, reserved ...string) error {
	seen := make(map[string]struct{}, len(labelNames))
	for _, name := range labelNames {
		if err := CheckLabelName(name); err != nil {
			return err
		}
		for _, r := range reserved {
			if name == r {
				return fmt.Errorf("%w: %q", ErrReservedLabelName, name)
			}
		}
		if _, dup := seen[name]; dup {
			return metricsError("duplicate label name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
