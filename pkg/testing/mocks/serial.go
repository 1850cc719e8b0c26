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
	"errors"
	"runtime"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
)

// MockSerialPort is an in-memory serial port. Bytes queued with Feed are
// returned by Read, bytes passed to Write are recorded.
type MockSerialPort struct {
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	// WriteFunc, when set, is called before each write is recorded.
	WriteFunc func(p []byte)
	readData  []byte
	written   []byte
	writes    int
	// ByteWise records writes one byte at a time and yields in between, so
	// unsynchronised concurrent writers would interleave.
	ByteWise    bool
	Closed      bool
	ReadTimeout time.Duration
	mu          syncutil.Mutex
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

// Feed queues bytes to be returned by Read.
func (m *MockSerialPort) Feed(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readData = append(m.readData, p...)
}

// Pending returns the bytes queued but not read yet.
func (m *MockSerialPort) Pending() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.readData...)
}

// Written returns a copy of everything written so far.
func (m *MockSerialPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// Writes returns the number of Write calls that succeeded.
func (m *MockSerialPort) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.Closed {
		m.mu.Unlock()
		return 0, errors.New("port closed")
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.mu.Unlock()
		return 0, err
	}
	if len(m.readData) == 0 {
		m.mu.Unlock()
		// behave like a read timeout on an idle line
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, m.readData)
	m.readData = m.readData[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	closed := m.Closed
	writeErr := m.WriteError
	writeFunc := m.WriteFunc
	byteWise := m.ByteWise
	m.mu.Unlock()

	if closed {
		return 0, errors.New("port closed")
	}
	if writeErr != nil {
		return 0, writeErr
	}
	if writeFunc != nil {
		writeFunc(p)
	}

	if byteWise {
		for _, b := range p {
			m.mu.Lock()
			m.written = append(m.written, b)
			m.mu.Unlock()
			runtime.Gosched()
		}
	} else {
		m.mu.Lock()
		m.written = append(m.written, p...)
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadTimeout = t
	return m.TimeoutErr
}

// IsClosed returns true if the port has been closed.
func (m *MockSerialPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}
