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

package mocks

import (
	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
)

// MockBLEAdapter is a radio whose Scan blocks until StopScan is called.
// Advertisements are injected with Emit while a scan is running.
type MockBLEAdapter struct {
	EnableError error
	ScanError   error
	StopError   error
	callback    func(ble.Advertisement)
	stop        chan struct{}
	scans       int
	stops       int
	enabled     bool
	mu          syncutil.Mutex
}

func NewMockBLEAdapter() *MockBLEAdapter {
	return &MockBLEAdapter{}
}

func (m *MockBLEAdapter) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnableError != nil {
		return m.EnableError
	}
	m.enabled = true
	return nil
}

func (m *MockBLEAdapter) Scan(callback func(ble.Advertisement)) error {
	m.mu.Lock()
	m.scans++
	if m.ScanError != nil {
		err := m.ScanError
		m.mu.Unlock()
		return err
	}
	stop := make(chan struct{})
	m.stop = stop
	m.callback = callback
	m.mu.Unlock()

	<-stop

	m.mu.Lock()
	m.callback = nil
	m.mu.Unlock()
	return nil
}

func (m *MockBLEAdapter) StopScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	return m.StopError
}

// Emit delivers an advertisement to the running scan. It returns false
// when no scan is active.
func (m *MockBLEAdapter) Emit(adv ble.Advertisement) bool {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(adv)
	return true
}

// IsScanning returns true while a Scan call is blocked.
func (m *MockBLEAdapter) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callback != nil
}

func (m *MockBLEAdapter) Scans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

func (m *MockBLEAdapter) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *MockBLEAdapter) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}
