// Zaparoo WX Panel
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo WX Panel.
//
// Zaparoo WX Panel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo WX Panel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo WX Panel.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the panel's current readings and a small control
// surface for the display over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/api/middleware"
	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	RequestTimeout  = 5 * time.Second
	shutdownTimeout = 2 * time.Second
	maxBodyBytes    = 4 << 10
)

// Readings is the read side of the beacon registry.
type Readings interface {
	Snapshot() []ruuvi.Reading
	Get(name string) (ruuvi.Reading, bool)
	Now() time.Time
}

// Display accepts frames for the panel and reports whether they were sent.
type Display interface {
	SendBytes(p []byte) bool
}

// ScanStatus reports the BLE scan supervisor's state.
type ScanStatus interface {
	State() ble.ScanState
	Dropped() uint64
}

// Settings is the live config the server reads per request.
type Settings interface {
	StaleAfter() time.Duration
	AllowedIPs() []string
}

type Server struct {
	readings Readings
	display  Display
	scan     ScanStatus
	settings Settings
	clock    clockwork.Clock
	limiter  *middleware.IPRateLimiter
	started  time.Time
}

func NewServer(
	settings Settings,
	readings Readings,
	display Display,
	scan ScanStatus,
	clock clockwork.Clock,
) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		readings: readings,
		display:  display,
		scan:     scan,
		settings: settings,
		clock:    clock,
		limiter:  middleware.NewIPRateLimiter(clock),
		started:  clock.Now(),
	}
}

// Handler builds the router. The IP allowlist is read once here, a change
// to allowed_ips takes effect on restart.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)
	r.Use(chimw.Timeout(RequestTimeout))
	r.Use(middleware.HTTPIPFilterMiddleware(middleware.NewIPFilter(s.settings.AllowedIPs())))
	r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/readings", s.handleReadings)
	r.Get("/readings/{name}", s.handleReading)
	r.Post("/display/command", s.handleDisplayCommand)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: RequestTimeout,
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.limiter.RunCleanup(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	log.Info().Msg("api server stopped")
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
