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

package http_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	xhttp "github.com/containers/nri-plugins-metrics/pkg/http"
)

func get(t *testing.T, url string) (int, string) {
	rpl, err := http.Get(url)
	require.NoError(t, err)
	defer rpl.Body.Close()

	body, err := io.ReadAll(rpl.Body)
	require.NoError(t, err)

	return rpl.StatusCode, string(body)
}

func TestServer(t *testing.T) {
	srv := xhttp.NewServer()
	require.Equal(t, "", srv.GetAddress())

	require.NoError(t, srv.Start(""), "disabled server")
	require.Equal(t, "", srv.GetAddress())

	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()
	require.Error(t, srv.Start("127.0.0.1:0"), "already running")

	base := "http://" + srv.GetAddress()

	srv.GetMux().HandleFunc("/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("hello"))
	})
	status, body := get(t, base+"/hello")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "hello", body)

	srv.GetMux().HandleFunc("/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("again"))
	})
	_, body = get(t, base+"/hello")
	require.Equal(t, "again", body, "handler replaced")

	srv.GetMux().Unregister("/hello")
	status, _ = get(t, base+"/hello")
	require.Equal(t, http.StatusNotFound, status)

	srv.Shutdown(false)
	require.Equal(t, "", srv.GetAddress())
}
