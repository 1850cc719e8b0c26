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

import "time"

const (
	DefaultServiceUUID     = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	DefaultScanInterval    = 10 * time.Second
	DefaultScanResultLimit = 10
	DefaultStaleAfter      = 600 * time.Second
)

type Beacons struct {
	ServiceUUID     string        `toml:"service_uuid" validate:"omitempty,uuid"`
	ScanInterval    string        `toml:"scan_interval,omitempty" validate:"duration"`
	StaleAfter      string        `toml:"stale_after,omitempty" validate:"duration"`
	Known           []KnownBeacon `toml:"known,omitempty" validate:"dive"`
	ScanResultLimit int           `toml:"scan_result_limit,omitempty" validate:"gte=0"`
}

// KnownBeacon maps an advertised beacon name to the display objects that
// show it.
type KnownBeacon struct {
	Name        string `toml:"name" validate:"required"`
	Label       string `toml:"label,omitempty"`
	TempField   string `toml:"temp_field,omitempty" validate:"objpath"`
	ColourField string `toml:"colour_field,omitempty" validate:"objpath"`
}

func (c *Instance) BeaconServiceUUID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Beacons.ServiceUUID
}

func (c *Instance) ScanInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Beacons.ScanInterval, DefaultScanInterval)
}

func (c *Instance) ScanResultLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Beacons.ScanResultLimit <= 0 {
		return DefaultScanResultLimit
	}
	return c.vals.Beacons.ScanResultLimit
}

func (c *Instance) StaleAfter() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Beacons.StaleAfter, DefaultStaleAfter)
}

func (c *Instance) KnownBeacons() []KnownBeacon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]KnownBeacon(nil), c.vals.Beacons.Known...)
}

func (c *Instance) SetKnownBeacons(beacons []KnownBeacon) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Beacons.Known = append([]KnownBeacon(nil), beacons...)
}
