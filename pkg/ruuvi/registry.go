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

package ruuvi

import (
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
)

// Beacon is a configured beacon, matched by its exact advertised name.
type Beacon struct {
	Name  string
	Label string
}

// Reading is the latest known state of one beacon. Values are copies and
// safe to keep after the registry changes.
type Reading struct {
	LastUpdate   time.Time
	temperatureC *float64
	humidity     *float64
	pressurePa   *float64
	Beacon
}

// Seen reports whether any advertisement has been accepted for the beacon.
func (r Reading) Seen() bool {
	return !r.LastUpdate.IsZero()
}

// Celsius returns the unrounded temperature.
func (r Reading) Celsius() (float64, bool) {
	if r.temperatureC == nil {
		return 0, false
	}
	return *r.temperatureC, true
}

func (r Reading) TemperatureC() (int, bool) {
	c, ok := r.Celsius()
	if !ok {
		return 0, false
	}
	return RoundCelsius(c), true
}

func (r Reading) TemperatureF() (int, bool) {
	c, ok := r.Celsius()
	if !ok {
		return 0, false
	}
	return CelsiusToFahrenheit(c), true
}

func (r Reading) HumidityPercent() (float64, bool) {
	if r.humidity == nil {
		return 0, false
	}
	return *r.humidity, true
}

func (r Reading) PressurePa() (float64, bool) {
	if r.pressurePa == nil {
		return 0, false
	}
	return *r.pressurePa, true
}

func (r Reading) PressureMmHg() (int, bool) {
	pa, ok := r.PressurePa()
	if !ok {
		return 0, false
	}
	return PascalsToMmHg(pa), true
}

// Stale reports whether the reading is at least maxAge old at now. A
// beacon that was never seen is always stale.
func (r Reading) Stale(now time.Time, maxAge time.Duration) bool {
	if !r.Seen() {
		return true
	}
	return now.Sub(r.LastUpdate) >= maxAge
}

// Summary is the JSON shape of a reading shared by the API and MQTT.
type Summary struct {
	TemperatureC *int       `json:"temperature_c,omitempty"`
	TemperatureF *int       `json:"temperature_f,omitempty"`
	Humidity     *float64   `json:"humidity,omitempty"`
	PressurePa   *float64   `json:"pressure_pa,omitempty"`
	PressureMmHg *int       `json:"pressure_mmhg,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	Stale        bool       `json:"stale"`
}

func (r Reading) Summary(now time.Time, maxAge time.Duration) Summary {
	s := Summary{
		Name:  r.Name,
		Label: r.Label,
		Stale: r.Stale(now, maxAge),
	}
	if v, ok := r.TemperatureC(); ok {
		s.TemperatureC = &v
	}
	if v, ok := r.TemperatureF(); ok {
		s.TemperatureF = &v
	}
	if v, ok := r.HumidityPercent(); ok {
		h := RoundHumidity(v)
		s.Humidity = &h
	}
	if v, ok := r.PressurePa(); ok {
		s.PressurePa = &v
	}
	if v, ok := r.PressureMmHg(); ok {
		s.PressureMmHg = &v
	}
	if r.Seen() {
		t := r.LastUpdate
		s.LastUpdate = &t
	}
	return s
}

// Registry holds the latest reading of each configured beacon.
type Registry struct {
	clock    clockwork.Clock
	readings map[string]*Reading
	order    []string
	mu       syncutil.RWMutex
}

// NewRegistry creates a registry for the given beacons. Duplicate names
// keep the first entry. A nil clock uses the real clock.
func NewRegistry(beacons []Beacon, clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r := &Registry{
		clock:    clock,
		readings: make(map[string]*Reading, len(beacons)),
		order:    make([]string, 0, len(beacons)),
	}
	for _, b := range beacons {
		if _, exists := r.readings[b.Name]; exists {
			continue
		}
		r.readings[b.Name] = &Reading{Beacon: b}
		r.order = append(r.order, b.Name)
	}
	return r
}

// Known reports whether name is a configured beacon.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.readings[name]
	return ok
}

// Beacons returns the configured beacons in configuration order.
func (r *Registry) Beacons() []Beacon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Beacon, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.readings[name].Beacon)
	}
	return out
}

// Update applies a measurement to the named beacon. Unavailable fields
// keep their previous value; the update time is always refreshed. It
// returns false for unknown beacons.
func (r *Registry) Update(name string, m Measurement) bool {
	_, ok := r.apply(name, m)
	return ok
}

func (r *Registry) apply(name string, m Measurement) (Reading, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reading, ok := r.readings[name]
	if !ok {
		return Reading{}, false
	}

	// values are never mutated in place, so copies handed out earlier stay
	// consistent
	if m.TemperatureC != nil {
		v := *m.TemperatureC
		reading.temperatureC = &v
	}
	if m.Humidity != nil {
		v := *m.Humidity
		reading.humidity = &v
	}
	if m.PressurePa != nil {
		v := *m.PressurePa
		reading.pressurePa = &v
	}
	reading.LastUpdate = r.clock.Now()

	return *reading, true
}

func (r *Registry) Get(name string) (Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reading, ok := r.readings[name]
	if !ok {
		return Reading{}, false
	}
	return *reading, true
}

// Snapshot returns every reading in configuration order.
func (r *Registry) Snapshot() []Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reading, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.readings[name])
	}
	return out
}

// Now returns the registry clock's current time, for staleness checks
// against the same time source that stamps updates.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}
