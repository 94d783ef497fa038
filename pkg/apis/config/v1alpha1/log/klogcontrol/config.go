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
	"strconv"
)

// Config is the subset of klog flags we allow to be configured at runtime.
type Config struct {
	// If true, adds the file directory to the header of the log messages
	// +optional
	Add_dir_header *bool `json:"add_dir_header,omitempty"`
	// If true, log to standard error as well as files
	// +optional
	Alsologtostderr *bool `json:"alsologtostderr,omitempty"`
	// If non-empty, write log files in this directory
	// +optional
	Log_dir *string `json:"log_dir,omitempty"`
	// If non-empty, use this log file
	// +optional
	Log_file *string `json:"log_file,omitempty"`
	// Log to standard error instead of files
	// +optional
	Logtostderr *bool `json:"logtostderr,omitempty"`
	// If true, avoid header prefixes in the log messages
	// +optional
	Skip_headers *bool `json:"skip_headers,omitempty"`
	// Logs at or above this threshold go to stderr
	// +optional
	Stderrthreshold *string `json:"stderrthreshold,omitempty"`
	// Number for the log level verbosity
	// +optional
	V *int `json:"v,omitempty"`
	// Comma-separated list of pattern=N settings for file-filtered logging
	// +optional
	Vmodule *string `json:"vmodule,omitempty"`
}

// GetByFlag returns the configured value for the given klog flag, if any.
func (c *Config) GetByFlag(name string) (string, bool) {
	if c == nil {
		return "", false
	}

	switch name {
	case "add_dir_header":
		return boolValue(c.Add_dir_header)
	case "alsologtostderr":
		return boolValue(c.Alsologtostderr)
	case "log_dir":
		return stringValue(c.Log_dir)
	case "log_file":
		return stringValue(c.Log_file)
	case "logtostderr":
		return boolValue(c.Logtostderr)
	case "skip_headers":
		return boolValue(c.Skip_headers)
	case "stderrthreshold":
		return stringValue(c.Stderrthreshold)
	case "v":
		if c.V == nil {
			return "", false
		}
		return strconv.Itoa(*c.V), true
	case "vmodule":
		return stringValue(c.Vmodule)
	}

	return "", false
}

func boolValue(b *bool) (string, bool) {
	if b == nil {
		return "", false
	}
	return strconv.FormatBool(*b), true
}

func stringValue(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
