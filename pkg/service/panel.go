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

package service

import (
	"context"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/ZaparooProject/wxpanel/pkg/nextion"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// PanelSettings is the live config the panel loop reads on every refresh.
type PanelSettings interface {
	KnownBeacons() []config.KnownBeacon
	StaleAfter() time.Duration
	PanelUpdateInterval() time.Duration
	HeartbeatField() string
	PanelColours() (fresh, stale uint32)
	DisplayLocation() *time.Location
	ClockSyncInterval() time.Duration
}

// ReadingSource looks up the latest reading for a beacon.
type ReadingSource interface {
	Get(name string) (ruuvi.Reading, bool)
}

// Panel pushes beacon readings, a heartbeat and the wall clock to the
// display.
type Panel struct {
	display  *nextion.Display
	readings ReadingSource
	settings PanelSettings
	clock    clockwork.Clock
	stats    func() (helpers.ProcessStats, error)
}

func NewPanel(
	display *nextion.Display,
	readings ReadingSource,
	settings PanelSettings,
	clock clockwork.Clock,
) *Panel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Panel{
		display:  display,
		readings: readings,
		settings: settings,
		clock:    clock,
		stats:    helpers.GetProcessStats,
	}
}

// Refresh writes every configured beacon once and returns the number of
// writes the display link dropped. A fresh reading sets its temperature
// field in whole degrees Fahrenheit and the fresh colour. A stale or never
// seen beacon only has its colour dimmed, the last value stays on screen.
func (p *Panel) Refresh() int {
	now := p.clock.Now()
	maxAge := p.settings.StaleAfter()
	fresh, stale := p.settings.PanelColours()
	failed := 0

	write := func(path string, value uint32) {
		if path == "" {
			return
		}
		if !p.display.SetNumeric(path, value) {
			failed++
		}
	}

	for _, b := range p.settings.KnownBeacons() {
		reading, ok := p.readings.Get(b.Name)
		if !ok {
			log.Debug().Str("beacon", b.Name).Msg("beacon not tracked yet, skipping")
			continue
		}

		if reading.Stale(now, maxAge) {
			write(b.ColourField, stale)
			continue
		}

		if f, ok := reading.TemperatureF(); ok {
			write(b.TempField, nextion.SignedValue(f))
		}
		write(b.ColourField, fresh)
	}

	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("panel refresh incomplete, display busy")
	}
	return failed
}

// Heartbeat sets the heartbeat field so the display can show the host is
// alive, and logs process diagnostics.
func (p *Panel) Heartbeat() bool {
	field := p.settings.HeartbeatField()
	if field == "" {
		return true
	}

	ok := p.display.SetNumeric(field, 1)

	stats, err := p.stats()
	if err != nil {
		log.Debug().Err(err).Msg("failed to read process stats")
	}
	log.Debug().
		Bool("sent", ok).
		Uint64("rss", stats.RSS).
		Float64("cpu_percent", stats.CPUPercent).
		Int("goroutines", stats.Goroutines).
		Dur("uptime", stats.SystemUptime).
		Msg("panel heartbeat")
	return ok
}

// SyncClock sets the display clock to local time in the configured zone.
// Nothing is written while the host clock is unset.
func (p *Panel) SyncClock() bool {
	now := p.clock.Now()
	if !helpers.IsClockReliable(now) {
		log.Warn().Time("now", now).Msg("host clock not set, skipping display clock sync")
		return false
	}

	local := now.In(p.settings.DisplayLocation())
	if !p.display.SetClock(local) {
		log.Warn().Msg("display clock sync incomplete")
		return false
	}
	log.Debug().Time("time", local).Msg("display clock synced")
	return true
}

// Run refreshes and syncs the clock immediately, then on their intervals
// until ctx is done. Intervals are read once, a reload takes effect on the
// next start.
func (p *Panel) Run(ctx context.Context) error {
	p.SyncClock()
	p.Refresh()
	p.Heartbeat()

	update := p.clock.NewTicker(p.settings.PanelUpdateInterval())
	defer update.Stop()
	clockSync := p.clock.NewTicker(p.settings.ClockSyncInterval())
	defer clockSync.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-update.Chan():
			p.Refresh()
			p.Heartbeat()
		case <-clockSync.Chan():
			p.SyncClock()
		}
	}
}
