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

package ble

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultScanInterval = 10 * time.Second
	// DefaultResultLimit is how many queued results make Check stop a
	// running scan so the consumer can catch up.
	DefaultResultLimit = 10
	DefaultBufferSize  = 32

	stopRetryInterval = 100 * time.Millisecond
)

type SupervisorConfig struct {
	Clock clockwork.Clock
	// ServiceUUID, when set, drops advertisements that do not list it.
	ServiceUUID string
	Interval    time.Duration
	ResultLimit int
	BufferSize  int
}

// Supervisor keeps a BLE scan running in the background and hands matching
// advertisements to a single consumer through Results. Scans are started
// by Check and end when the adapter's Scan call returns.
type Supervisor struct {
	adapter  Adapter
	clock    clockwork.Clock
	state    *StateManager
	results  chan Advertisement
	cfg      SupervisorConfig
	wg       sync.WaitGroup
	dropped  atomic.Uint64
	// scanDone is closed when the most recently started scan ends
	scanDone chan struct{}
	stopped  bool
	mu       syncutil.Mutex // protects stopped, scanDone and wg.Add
}

func NewSupervisor(adapter Adapter, cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScanInterval
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultResultLimit
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	return &Supervisor{
		adapter: adapter,
		clock:   cfg.Clock,
		state:   NewStateManager(),
		results: make(chan Advertisement, cfg.BufferSize),
		cfg:     cfg,
	}
}

// Results is closed when Run returns.
func (s *Supervisor) Results() <-chan Advertisement {
	return s.results
}

func (s *Supervisor) State() ScanState {
	return s.state.GetState()
}

// Dropped returns how many matching advertisements were discarded because
// the results buffer was full.
func (s *Supervisor) Dropped() uint64 {
	return s.dropped.Load()
}

// Check starts a scan when idle, or stops the running one when the
// consumer has fallen behind. It never blocks on the radio.
func (s *Supervisor) Check() {
	switch s.state.GetState() {
	case StateIdle:
		s.startScan()
	case StateScanning:
		if queued := len(s.results); queued > s.cfg.ResultLimit {
			log.Debug().Int("queued", queued).Msg("scan results backing up, stopping scan")
			s.stopScan()
		}
	}
}

func (s *Supervisor) startScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if !s.state.Transition(StateIdle, StateScanning) {
		return false
	}

	done := make(chan struct{})
	s.scanDone = done
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		log.Debug().Msg("ble scan started")
		if err := s.adapter.Scan(s.onAdvertisement); err != nil {
			log.Warn().Err(err).Msg("ble scan ended with error")
		} else {
			log.Debug().Msg("ble scan ended")
		}
		s.state.Transition(StateScanning, StateIdle)
	}()

	return true
}

func (s *Supervisor) stopScan() {
	if err := s.adapter.StopScan(); err != nil {
		log.Warn().Err(err).Msg("failed to stop ble scan")
	}
}

func (s *Supervisor) onAdvertisement(adv Advertisement) {
	if s.cfg.ServiceUUID != "" && !adv.HasService(s.cfg.ServiceUUID) {
		return
	}

	select {
	case s.results <- adv:
	default:
		n := s.dropped.Add(1)
		log.Debug().
			Str("address", adv.Address).
			Uint64("dropped", n).
			Msg("scan result dropped, buffer full")
	}
}

// ScanFor runs a single scan for d and then stops it. It returns early
// when ctx is cancelled, and in both cases only after the scan has ended.
func (s *Supervisor) ScanFor(ctx context.Context, d time.Duration) error {
	s.startScan()

	s.mu.Lock()
	done := s.scanDone
	s.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-s.clock.After(d):
	}

	if done != nil {
		s.stopAndWait(done)
	}
	return ctx.Err()
}

// stopAndWait stops the scan until done is closed. A scan goroutine may not
// have reached the radio yet, so the stop is repeated.
func (s *Supervisor) stopAndWait(done <-chan struct{}) {
	for {
		if s.state.GetState() == StateScanning {
			s.stopScan()
		}
		timer := s.clock.NewTimer(stopRetryInterval)
		select {
		case <-done:
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// Run calls Check on every interval tick until ctx is done, then stops the
// scan, waits for it to end and closes Results. A Supervisor cannot be run
// again afterwards.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Check()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.Chan():
			s.Check()
		}
	}
}

func (s *Supervisor) shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	s.stopAndWait(done)
	close(s.results)

	if n := s.dropped.Load(); n > 0 {
		log.Info().Uint64("dropped", n).Msg("ble supervisor stopped")
	}
}
