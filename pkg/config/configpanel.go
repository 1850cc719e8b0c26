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
	DefaultUpdateInterval = 30 * time.Second
	DefaultHeartbeatField = "heartbeat"
	// DefaultFreshColour is white in the display's RGB565 palette.
	DefaultFreshColour uint32 = 65535
	// DefaultStaleColour is the dimmed grey used for old readings.
	DefaultStaleColour uint32 = 19049
)

type Panel struct {
	UpdateInterval string `toml:"update_interval,omitempty" validate:"duration"`
	HeartbeatField string `toml:"heartbeat_field,omitempty" validate:"objpath"`
	FreshColour    uint32 `toml:"fresh_colour" validate:"lte=65535"`
	StaleColour    uint32 `toml:"stale_colour" validate:"lte=65535"`
}

func (c *Instance) PanelUpdateInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Panel.UpdateInterval, DefaultUpdateInterval)
}

// HeartbeatField is the display variable set on every panel refresh.
// Empty disables the heartbeat.
func (c *Instance) HeartbeatField() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Panel.HeartbeatField
}

// PanelColours returns the colours for fresh and stale readings.
func (c *Instance) PanelColours() (fresh, stale uint32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Panel.FreshColour, c.vals.Panel.StaleColour
}
