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
	"testing"

	"github.com/stretchr/testify/require"

	cfgapi "github.com/containers/nri-plugins-metrics/pkg/apis/config/v1alpha1/log/klogcontrol"
)

func TestConfigure(t *testing.T) {
	c := Get()

	prev, ok := c.Get("v")
	require.True(t, ok)
	defer func() { require.NoError(t, c.Set("v", prev)) }()

	v := 3
	require.NoError(t, c.Configure(&cfgapi.Config{V: &v}))
	value, _ := c.Get("v")
	require.Equal(t, "3", value)

	threshold := "bogus"
	require.Error(t, c.Configure(&cfgapi.Config{Stderrthreshold: &threshold}))

	require.NoError(t, c.Configure(nil))
}

func TestEnvName(t *testing.T) {
	require.Equal(t, "LOGGER_SKIP_HEADERS", envName("skip_headers"))
	require.Equal(t, "LOGGER_LOG_FILE", envName("log-file"))
}
