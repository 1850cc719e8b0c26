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

package nextion

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Port is the subset of a serial port the link needs.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens a real serial port with go.bug.st/serial.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// LinkConfig describes the serial line and its timing.
type LinkConfig struct {
	Path     string
	BaudRate int
	// RXPin and TXPin are only meaningful on boards with a remappable UART.
	RXPin int
	TXPin int

	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	FlushTimeout time.Duration
	ReadWindow   time.Duration
	SettleDelay  time.Duration
	ResetDelay   time.Duration

	// PortFactory opens the port, nil means the serial library.
	PortFactory PortFactory
	// NoReset skips the reset command on Open, for one-off tools talking
	// to a panel that is already running.
	NoReset bool
}

// DefaultLinkConfig returns the stock timing for path.
func DefaultLinkConfig(path string) LinkConfig {
	return LinkConfig{
		Path:         path,
		BaudRate:     DefaultBaudRate,
		WriteTimeout: WriteTimeout,
		ReadTimeout:  ReadTimeout,
		FlushTimeout: FlushTimeout,
		ReadWindow:   ReadWindow,
		SettleDelay:  SettleDelay,
		ResetDelay:   ResetDelay,
	}
}

var errNotOpen = errors.New("serial link not open")

// Link is a framed serial transport shared by concurrent callers.
//
// Writers are serialised against each other by the write lock and readers by
// the read lock; a reader and a writer never block each other. Lock
// acquisition is bounded by the configured timeouts and a caller that loses
// the race gets a failure instead of waiting: commands are dropped, not
// queued.
type Link struct {
	port        Port
	portFactory PortFactory
	clock       clockwork.Clock
	writeMu     *syncutil.TimedMutex
	readMu      *syncutil.TimedMutex
	cfg         LinkConfig
	mu          syncutil.RWMutex // protects port
}

func NewLink(cfg LinkConfig) *Link {
	def := DefaultLinkConfig(cfg.Path)
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = def.BaudRate
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = def.FlushTimeout
	}
	if cfg.ReadWindow <= 0 {
		cfg.ReadWindow = def.ReadWindow
	}

	factory := cfg.PortFactory
	if factory == nil {
		factory = DefaultPortFactory
	}

	return &Link{
		cfg:         cfg,
		portFactory: factory,
		clock:       clockwork.NewRealClock(),
		writeMu:     syncutil.NewTimedMutex(),
		readMu:      syncutil.NewTimedMutex(),
	}
}

// Config returns the link configuration after defaults were applied.
func (l *Link) Config() LinkConfig {
	return l.cfg
}

// Open configures the UART, lets the line settle, discards pending input and
// resets the display. It does not check that the display answered, a
// successful Open says nothing about whether anything is listening.
func (l *Link) Open() error {
	port, err := l.portFactory(l.cfg.Path, &serial.Mode{
		BaudRate: l.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", l.cfg.Path, err)
	}

	if err := port.SetReadTimeout(pollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	l.mu.Lock()
	l.port = port
	l.mu.Unlock()

	log.Info().
		Str("path", l.cfg.Path).
		Int("baud", l.cfg.BaudRate).
		Int("rx_pin", l.cfg.RXPin).
		Int("tx_pin", l.cfg.TXPin).
		Msg("display serial link opened")

	l.clock.Sleep(l.cfg.SettleDelay)
	if !l.Flush() {
		log.Warn().Msg("display startup flush skipped, read lock busy")
	}

	if l.cfg.NoReset {
		return nil
	}

	l.clock.Sleep(l.cfg.ResetDelay)
	if !l.Write([]byte(CmdReset)) {
		log.Warn().Msg("failed to send display reset command")
	}

	return nil
}

// Close closes the underlying port. Later reads and writes fail.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (l *Link) currentPort() Port {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.port
}

// Write sends p followed by the three byte terminator as one frame. It
// returns false if the write lock could not be taken within the write
// timeout or the port rejected the bytes. Nothing is retried.
func (l *Link) Write(p []byte) bool {
	if !l.writeMu.LockTimeout(l.cfg.WriteTimeout) {
		log.Debug().Str("cmd", string(p)).Msg("display write dropped, write lock busy")
		return false
	}
	defer l.writeMu.Unlock()

	port := l.currentPort()
	if port == nil {
		log.Debug().Err(errNotOpen).Msg("display write failed")
		return false
	}

	frame := make([]byte, 0, len(p)+TerminatorCount)
	frame = append(frame, p...)
	frame = append(frame, Terminator, Terminator, Terminator)

	for len(frame) > 0 {
		n, err := port.Write(frame)
		if err != nil {
			log.Warn().Err(err).Msg("failed to write to display")
			return false
		}
		frame = frame[n:]
	}

	return true
}

// Flush discards pending input for at most the read window. It returns false
// if the read lock could not be taken within the flush timeout.
func (l *Link) Flush() bool {
	if !l.readMu.LockTimeout(l.cfg.FlushTimeout) {
		return false
	}
	defer l.readMu.Unlock()

	port := l.currentPort()
	if port == nil {
		return true
	}

	buf := make([]byte, 64)
	discarded := 0
	start := l.clock.Now()
	for l.clock.Since(start) < l.cfg.ReadWindow {
		n, err := port.Read(buf)
		if err != nil {
			log.Debug().Err(err).Msg("display flush read failed")
			break
		}
		if n == 0 {
			break
		}
		discarded += n
	}

	if discarded > 0 {
		log.Debug().Int("bytes", discarded).Msg("flushed display input")
	}
	return true
}

// Receive reads one frame into buf a byte at a time and returns how many
// bytes were stored. Reading stops when buf is full, when the third
// Terminator byte has been read, or when the read window has elapsed.
// Terminators are counted wherever they appear, they do not have to be
// consecutive.
//
// Zero is returned when the read lock could not be taken within the read
// timeout or no input was waiting. Results of NoiseLength bytes or fewer are
// line noise and the caller should Flush.
func (l *Link) Receive(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if !l.readMu.LockTimeout(l.cfg.ReadTimeout) {
		return 0
	}
	defer l.readMu.Unlock()

	port := l.currentPort()
	if port == nil {
		return 0
	}

	start := l.clock.Now()
	one := make([]byte, 1)

	n, err := port.Read(one)
	if err != nil {
		log.Debug().Err(err).Msg("display read failed")
		return 0
	}
	if n == 0 {
		return 0
	}

	count := 0
	terminators := 0
	for {
		if n > 0 {
			buf[count] = one[0]
			count++
			if one[0] == Terminator {
				terminators++
			}
		}

		if count >= len(buf) || terminators >= TerminatorCount ||
			l.clock.Since(start) >= l.cfg.ReadWindow {
			break
		}

		n, err = port.Read(one)
		if err != nil {
			log.Debug().Err(err).Msg("display read failed")
			break
		}
	}

	return count
}
