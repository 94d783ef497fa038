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

package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	logger "github.com/containers/nri-plugins-metrics/pkg/log"
)

const (
	// shutdownTimeout is the maximum time to wait for active connections.
	shutdownTimeout = 5 * time.Second
)

var (
	log = logger.NewLogger("http")
)

// ServeMux is an HTTP request multiplexer which allows handlers to be
// replaced and removed.
type ServeMux struct {
	sync.RWMutex
	handlers map[string]http.Handler
	mux      *http.ServeMux
}

// NewServeMux creates a new HTTP request multiplexer.
func NewServeMux() *ServeMux {
	return &ServeMux{
		handlers: make(map[string]http.Handler),
		mux:      http.NewServeMux(),
	}
}

// Handle registers the handler for the given pattern, replacing any
// existing one.
func (m *ServeMux) Handle(pattern string, handler http.Handler) {
	m.Lock()
	defer m.Unlock()

	m.handlers[pattern] = handler
	m.rebuild()
}

// HandleFunc registers the handler function for the given pattern.
func (m *ServeMux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.Handle(pattern, http.HandlerFunc(handler))
}

// Unregister removes the handler for the given pattern.
func (m *ServeMux) Unregister(pattern string) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.handlers[pattern]; ok {
		delete(m.handlers, pattern)
		m.rebuild()
	}
}

func (m *ServeMux) rebuild() {
	mux := http.NewServeMux()
	for pattern, handler := range m.handlers {
		mux.Handle(pattern, handler)
	}
	m.mux = mux
}

// ServeHTTP implements http.Handler.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.RLock()
	mux := m.mux
	m.RUnlock()

	mux.ServeHTTP(w, req)
}

// Server is our HTTP server, with a multiplexer that survives restarts.
type Server struct {
	sync.Mutex
	mux      *ServeMux
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a new, stopped HTTP server.
func NewServer() *Server {
	return &Server{
		mux: NewServeMux(),
	}
}

// GetMux returns the request multiplexer of the server.
func (s *Server) GetMux() *ServeMux {
	return s.mux
}

// GetAddress returns the address the server is listening on, or an empty
// string if it is not running.
func (s *Server) GetAddress() string {
	s.Lock()
	defer s.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start starts serving on the given address. An empty address disables
// the server.
func (s *Server) Start(address string) error {
	s.Lock()
	defer s.Unlock()

	if s.server != nil {
		return httpError("server already running on %s", s.listener.Addr())
	}

	if address == "" {
		log.Info("HTTP server is disabled")
		return nil
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return httpError("failed to listen on %s: %w", address, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, ln net.Listener, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed: %v", err)
		}
	}(s.server, ln, s.done)

	log.Info("HTTP server listening on %s", ln.Addr())

	return nil
}

// Stop stops the server, waiting for active connections to finish.
func (s *Server) Stop() {
	s.Shutdown(true)
}

// Shutdown stops the server. If wait is true it waits for active
// connections to finish, otherwise it closes them immediately.
func (s *Server) Shutdown(wait bool) {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return
	}

	if wait {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			log.Warn("HTTP server shutdown failed: %v", err)
			s.server.Close()
		}
	} else {
		s.server.Close()
	}
	<-s.done

	log.Info("HTTP server stopped")

	s.server = nil
	s.listener = nil
	s.done = nil
}

// Reconfigure restarts the server on the given address, if it changed.
func (s *Server) Reconfigure(address string) error {
	if current := s.GetAddress(); current != "" && current == address {
		return nil
	}
	s.Stop()
	return s.Start(address)
}

func httpError(format string, args ...interface{}) error {
	return fmt.Errorf("http: "+format, args...)
}
