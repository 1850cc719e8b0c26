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

import "sync/atomic"

// ScanState is the scan supervisor's view of the radio.
type ScanState int32

const (
	// StateIdle means no scan is running and one may be started.
	StateIdle ScanState = iota
	// StateScanning means a scan goroutine owns the adapter.
	StateScanning
)

// String returns a human-readable representation of the scan state
func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	default:
		return "Unknown"
	}
}

// IsValidTransition checks if moving between two scan states is allowed.
func IsValidTransition(from, to ScanState) bool {
	switch from {
	case StateIdle:
		return to == StateScanning
	case StateScanning:
		return to == StateIdle
	default:
		return false
	}
}

// StateManager provides lock-free scan state tracking.
type StateManager struct {
	state atomic.Int32
}

// NewStateManager creates a state manager in StateIdle.
func NewStateManager() *StateManager {
	return &StateManager{}
}

func (sm *StateManager) GetState() ScanState {
	return ScanState(sm.state.Load())
}

// Transition moves from one state to another only if the current state is
// from. It returns false when another goroutine won the race or the move is
// not a valid transition.
func (sm *StateManager) Transition(from, to ScanState) bool {
	if !IsValidTransition(from, to) {
		return false
	}
	return sm.state.CompareAndSwap(int32(from), int32(to))
}

// ForceState sets the state without validation.
func (sm *StateManager) ForceState(s ScanState) {
	sm.state.Store(int32(s))
}
