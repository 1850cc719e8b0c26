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

package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaudRate = 115200
	DefaultRXPin    = 19
	DefaultTXPin    = 21

	DefaultWriteTimeout      = 100 * time.Millisecond
	DefaultReadTimeout       = 100 * time.Millisecond
	DefaultReadWindow        = 400 * time.Millisecond
	DefaultClockSyncInterval = time.Hour
)

type Display struct {
	// Path is the serial device. Empty means auto-detect.
	Path         string `toml:"path"`
	WriteTimeout string `toml:"write_timeout,omitempty" validate:"duration"`
	ReadTimeout  string `toml:"read_timeout,omitempty" validate:"duration"`
	ReadWindow   string `toml:"read_window,omitempty" validate:"duration"`
	Timezone     string `toml:"timezone,omitempty" validate:"omitempty,timezone"`
	ClockSync    string `toml:"clock_sync,omitempty" validate:"duration"`
	BaudRate     int    `toml:"baud_rate" validate:"gte=0"`
	RXPin        int    `toml:"rx_pin"`
	TXPin        int    `toml:"tx_pin"`
}

func (c *Instance) DisplayPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.Path
}

func (c *Instance) SetDisplayPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Display.Path = path
}

func (c *Instance) DisplayBaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Display.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.vals.Display.BaudRate
}

// DisplayPins returns the UART RX and TX pin numbers.
func (c *Instance) DisplayPins() (rx, tx int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.RXPin, c.vals.Display.TXPin
}

func (c *Instance) DisplayWriteTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Display.WriteTimeout, DefaultWriteTimeout)
}

func (c *Instance) DisplayReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Display.ReadTimeout, DefaultReadTimeout)
}

func (c *Instance) DisplayReadWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Display.ReadWindow, DefaultReadWindow)
}

// DisplayLocation is the time zone used for the display clock, local
// time when unset.
func (c *Instance) DisplayLocation() *time.Location {
	c.mu.RLock()
	tz := c.vals.Display.Timezone
	c.mu.RUnlock()

	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn().Err(err).Str("timezone", tz).Msg("unknown timezone, using local time")
		return time.Local
	}
	return loc
}

func (c *Instance) ClockSyncInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Display.ClockSync, DefaultClockSyncInterval)
}
