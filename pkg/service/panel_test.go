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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/ZaparooProject/wxpanel/pkg/nextion"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	frames []string
	failAt int
	calls  int
	mu     syncutil.Mutex
}

func (w *recordingWriter) Write(p []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failAt > 0 && w.calls >= w.failAt {
		return false
	}
	w.frames = append(w.frames, string(p))
	return true
}

func (w *recordingWriter) sent() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.frames...)
}

func (w *recordingWriter) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = nil
}

type panelSettings struct {
	location  *time.Location
	heartbeat string
	known     []config.KnownBeacon
}

func (s panelSettings) KnownBeacons() []config.KnownBeacon { return s.known }
func (panelSettings) StaleAfter() time.Duration            { return config.DefaultStaleAfter }
func (panelSettings) PanelUpdateInterval() time.Duration   { return config.DefaultUpdateInterval }
func (s panelSettings) HeartbeatField() string             { return s.heartbeat }
func (panelSettings) PanelColours() (fresh, stale uint32) {
	return config.DefaultFreshColour, config.DefaultStaleColour
}

func (s panelSettings) DisplayLocation() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}
func (panelSettings) ClockSyncInterval() time.Duration { return config.DefaultClockSyncInterval }

var outdoor = config.KnownBeacon{
	Name:        "Ruuvi 1A2B",
	Label:       "Outdoor",
	TempField:   "outdoorTemp.val",
	ColourField: "outdoorTemp.pco",
}

type panelEnv struct {
	clock    *clockwork.FakeClock
	registry *ruuvi.Registry
	writer   *recordingWriter
	panel    *Panel
}

func newPanelEnv(settings panelSettings) *panelEnv {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	beacons := make([]ruuvi.Beacon, 0, len(settings.known))
	for _, k := range settings.known {
		beacons = append(beacons, ruuvi.Beacon{Name: k.Name, Label: k.Label})
	}
	registry := ruuvi.NewRegistry(beacons, clock)
	writer := &recordingWriter{}
	panel := NewPanel(nextion.NewDisplay(writer), registry, settings, clock)
	panel.stats = func() (helpers.ProcessStats, error) {
		return helpers.ProcessStats{RSS: 1 << 20, Goroutines: 8}, nil
	}
	return &panelEnv{clock: clock, registry: registry, writer: writer, panel: panel}
}

func celsius(v float64) ruuvi.Measurement {
	return ruuvi.Measurement{TemperatureC: &v}
}

func TestPanelRefresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(env *panelEnv)
		name    string
		known   []config.KnownBeacon
		want    []string
		wantErr int
	}{
		{
			name:  "fresh reading",
			known: []config.KnownBeacon{outdoor},
			setup: func(env *panelEnv) {
				env.registry.Update(outdoor.Name, celsius(6.54))
			},
			want: []string{"outdoorTemp.val=44", "outdoorTemp.pco=65535"},
		},
		{
			name:  "below zero fahrenheit",
			known: []config.KnownBeacon{outdoor},
			setup: func(env *panelEnv) {
				env.registry.Update(outdoor.Name, celsius(-30))
			},
			want: []string{"outdoorTemp.val=4294967274", "outdoorTemp.pco=65535"},
		},
		{
			name:  "stale reading only dims",
			known: []config.KnownBeacon{outdoor},
			setup: func(env *panelEnv) {
				env.registry.Update(outdoor.Name, celsius(20))
				env.clock.Advance(config.DefaultStaleAfter)
			},
			want: []string{"outdoorTemp.pco=19049"},
		},
		{
			name:  "never seen",
			known: []config.KnownBeacon{outdoor},
			setup: func(*panelEnv) {},
			want:  []string{"outdoorTemp.pco=19049"},
		},
		{
			name:  "missing temperature keeps colour",
			known: []config.KnownBeacon{outdoor},
			setup: func(env *panelEnv) {
				h := 50.0
				env.registry.Update(outdoor.Name, ruuvi.Measurement{Humidity: &h})
			},
			want: []string{"outdoorTemp.pco=65535"},
		},
		{
			name:  "no fields configured",
			known: []config.KnownBeacon{{Name: "Ruuvi 3C4D"}},
			setup: func(env *panelEnv) {
				env.registry.Update("Ruuvi 3C4D", celsius(20))
			},
			want: nil,
		},
		{
			name:  "link busy",
			known: []config.KnownBeacon{outdoor},
			setup: func(env *panelEnv) {
				env.registry.Update(outdoor.Name, celsius(20))
				env.writer.failAt = 2
			},
			want:    []string{"outdoorTemp.val=68"},
			wantErr: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newPanelEnv(panelSettings{known: tt.known})
			tt.setup(env)

			assert.Equal(t, tt.wantErr, env.panel.Refresh())
			assert.Equal(t, tt.want, env.writer.sent())
		})
	}
}

func TestPanelRefresh_UntrackedBeacon(t *testing.T) {
	t.Parallel()

	env := newPanelEnv(panelSettings{known: []config.KnownBeacon{outdoor}})
	env.panel.settings = panelSettings{known: []config.KnownBeacon{outdoor, {Name: "New", TempField: "n9.val"}}}

	assert.Zero(t, env.panel.Refresh())
	assert.Equal(t, []string{"outdoorTemp.pco=19049"}, env.writer.sent())
}

func TestPanelHeartbeat(t *testing.T) {
	t.Parallel()

	env := newPanelEnv(panelSettings{heartbeat: "heartbeat"})
	assert.True(t, env.panel.Heartbeat())
	assert.Equal(t, []string{"heartbeat=1"}, env.writer.sent())

	env.panel.stats = func() (helpers.ProcessStats, error) {
		return helpers.ProcessStats{}, errors.New("no proc")
	}
	assert.True(t, env.panel.Heartbeat(), "stats errors are only logged")

	disabled := newPanelEnv(panelSettings{})
	assert.True(t, disabled.panel.Heartbeat())
	assert.Empty(t, disabled.writer.sent())
}

func TestPanelSyncClock(t *testing.T) {
	t.Parallel()

	env := newPanelEnv(panelSettings{location: time.FixedZone("CEST", 2*60*60)})
	require.True(t, env.panel.SyncClock())
	assert.Equal(t, []string{
		"rtc0=2026", "rtc1=3", "rtc2=4", "rtc3=7", "rtc4=6", "rtc5=7",
	}, env.writer.sent())
}

func TestPanelSyncClock_HostClockCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		now      time.Time
		name     string
		wantSent []string
		want     bool
	}{
		{
			name: "epoch after boot",
			now:  time.Unix(0, 0).UTC(),
		},
		{
			name: "last second of 2023",
			now:  time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "first second of 2024",
			now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want:     true,
			wantSent: []string{"rtc0=2024", "rtc1=1", "rtc2=1", "rtc3=0", "rtc4=0", "rtc5=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			writer := &recordingWriter{}
			clock := clockwork.NewFakeClockAt(tt.now)
			panel := NewPanel(nextion.NewDisplay(writer), ruuvi.NewRegistry(nil, clock), panelSettings{}, clock)

			assert.Equal(t, tt.want, panel.SyncClock())
			assert.Equal(t, tt.wantSent, writer.sent())
		})
	}
}

func TestPanelSyncClock_StopsOnFailure(t *testing.T) {
	t.Parallel()

	env := newPanelEnv(panelSettings{})
	env.writer.failAt = 3

	assert.False(t, env.panel.SyncClock())
	assert.Equal(t, []string{"rtc0=2026", "rtc1=3"}, env.writer.sent())
}

func TestPanelRun(t *testing.T) {
	t.Parallel()

	env := newPanelEnv(panelSettings{known: []config.KnownBeacon{outdoor}, heartbeat: "heartbeat"})
	env.registry.Update(outdoor.Name, celsius(6.54))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.panel.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, env.clock.BlockUntilContext(waitCtx, 2))

	initial := env.writer.sent()
	require.Len(t, initial, 9)
	assert.Equal(t, "rtc0=2026", initial[0])
	assert.Equal(t, []string{"outdoorTemp.val=44", "outdoorTemp.pco=65535", "heartbeat=1"}, initial[6:])

	env.writer.reset()
	env.clock.Advance(config.DefaultUpdateInterval)
	require.Eventually(t, func() bool {
		return len(env.writer.sent()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "outdoorTemp.val=44", env.writer.sent()[0])

	cancel()
	require.NoError(t, <-done)
}
