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
	"errors"
	"fmt"
)

var (
	ErrInvalidMetricName = errors.New("metrics: invalid metric name")
	ErrInvalidLabelName  = errors.New("metrics: invalid metric label name")
	ErrReservedLabelName = errors.New("metrics: metric label name reserved for internal use")
	ErrLabelArity        = errors.New("metrics: incorrect number of labels")
	ErrNegativeIncrement = errors.New("metrics: counters can only be incremented by non-negative amounts")
	ErrInvalidBuckets    = errors.New("metrics: invalid histogram buckets")
	ErrInvalidObjectives = errors.New("metrics: invalid summary objectives")
	ErrDuplicateMetric   = errors.New("metrics: collector already registered that provides name")
	ErrAlreadyRegistered = errors.New("metrics: collector already registered")
)

// metricsError returns a package-specific formatted error.
func metricsError(format string, args ...interface{}) error {
	return fmt.Errorf("metrics: "+format, args...)
}

// arityError returns an ErrLabelArity for the given expected and actual counts.
func arityError(name string, expected, got int) error {
	return fmt.Errorf("%w: %s has %d label names, got %d values", ErrLabelArity,
		name, expected, got)
}
