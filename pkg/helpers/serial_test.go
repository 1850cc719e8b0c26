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

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUdevIDs(t *testing.T) {
	t.Parallel()

	out := `P: /devices/platform/scb/usb1/1-1/1-1.3/1-1.3:1.0/ttyUSB0/tty/ttyUSB0
N: ttyUSB0
E: ID_VENDOR_ID=1A86
E: ID_MODEL_ID=7523
E: ID_SERIAL=1a86_USB_Serial
`
	vid, pid := parseUdevIDs(out)
	assert.Equal(t, "1a86", vid)
	assert.Equal(t, "7523", pid)

	vid, pid = parseUdevIDs("N: ttyAMA0\n")
	assert.Empty(t, vid)
	assert.Empty(t, pid)
}

func TestIsBridgeDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vid  string
		pid  string
		want bool
	}{
		{name: "ch340", vid: "1a86", pid: "7523", want: true},
		{name: "cp2102", vid: "10c4", pid: "ea60", want: true},
		{name: "ft232", vid: "0403", pid: "6001", want: true},
		{name: "unknown", vid: "16c0", pid: "0f38", want: false},
		{name: "empty", vid: "", pid: "", want: false},
		{name: "vendor only", vid: "1a86", pid: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isBridgeDevice(tt.vid, tt.pid))
		})
	}
}

func TestFilterLinuxDevices(t *testing.T) {
	t.Parallel()

	names := []string{"tty0", "ttyUSB1", "null", "ttyACM0", "ttyAMA0", "serial0", "ttyUSB0", "ttyS0"}
	assert.Equal(t, []string{
		"/dev/serial0",
		"/dev/ttyACM0",
		"/dev/ttyAMA0",
		"/dev/ttyUSB0",
		"/dev/ttyUSB1",
	}, filterLinuxDevices(names))
}

func TestRankSerialDevices(t *testing.T) {
	t.Parallel()

	ids := map[string][2]string{
		"/dev/ttyUSB0": {"16c0", "0f38"},
		"/dev/ttyUSB1": {"1a86", "7523"},
		"/dev/ttyUSB2": {"10c4", "ea60"},
	}
	lookup := func(p string) (string, string) {
		v := ids[p]
		return v[0], v[1]
	}

	got := rankSerialDevices([]string{"/dev/ttyAMA0", "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2"}, lookup)
	assert.Equal(t, []string{"/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyAMA0", "/dev/ttyUSB0"}, got)
}

func TestFilterPrefixed(t *testing.T) {
	t.Parallel()

	ports := []string{"/dev/tty.Bluetooth-Incoming-Port", "/dev/tty.usbserial-1410", "/dev/tty.SLAB_USBtoUART"}
	assert.Equal(t,
		[]string{"/dev/tty.usbserial-1410", "/dev/tty.SLAB_USBtoUART"},
		filterPrefixed(ports, "/dev/tty.usbserial", "/dev/tty.SLAB"),
	)
	assert.Nil(t, filterPrefixed([]string{"LPT1"}, "COM"))
}
