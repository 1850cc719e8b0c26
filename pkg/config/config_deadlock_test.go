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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// APIListen must not call APIPort while holding the read lock. Run with
// -tags=deadlock to catch recursive locking.
func TestAPIListen_NoRecursiveLock(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}

	done := make(chan struct{})
	go func() {
		_ = cfg.APIListen()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("APIListen() deadlocked")
	}
}

func TestGetters_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	done := make(chan struct{})
	for i := range 10 {
		go func() {
			for range 100 {
				_ = cfg.APIListen()
				_ = cfg.KnownBeacons()
				_ = cfg.StaleAfter()
				if i%2 == 0 {
					cfg.SetKnownBeacons([]KnownBeacon{{Name: "Outdoor"}})
				}
			}
			done <- struct{}{}
		}()
	}

	for range 10 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}

func TestAPIListen_DefaultPort(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	assert.Equal(t, ":7498", cfg.APIListen())
}

func TestAPIListen_CustomPort(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	cfg.SetAPIPort(8080)
	assert.Equal(t, ":8080", cfg.APIListen())
	assert.Equal(t, 8080, cfg.APIPort())
}

func TestAPIListen_CustomListen(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	cfg.vals.Service.APIListen = "127.0.0.1:9000"
	assert.Equal(t, "127.0.0.1:9000", cfg.APIListen())
}
