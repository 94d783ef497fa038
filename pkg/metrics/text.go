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
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/common/expfmt"
)

// WriteText renders the families in the text exposition format. Families
// which cannot be converted are skipped and reported in the returned error,
// along with any write error.
func WriteText(w io.Writer, families []*MetricFamilySamples) error {
	var errs *multierror.Error

	mfs, err := ToModel(families)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
