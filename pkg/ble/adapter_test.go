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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvertisementHasService(t *testing.T) {
	t.Parallel()

	adv := Advertisement{ServiceUUIDs: []string{"6e400001-b5a3-f393-e0a9-e50e24dcca9e"}}

	assert.True(t, adv.HasService("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
	assert.True(t, adv.HasService("6E400001-B5A3-F393-E0A9-E50E24DCCA9E"))
	assert.False(t, adv.HasService("0000180f-0000-1000-8000-00805f9b34fb"))
	assert.False(t, Advertisement{}.HasService("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
}

func TestEncodeManufacturerData(t *testing.T) {
	t.Parallel()

	got := EncodeManufacturerData(0x0499, []byte{0x05, 0x05, 0x1C})
	assert.Equal(t, []byte{0x99, 0x04, 0x05, 0x05, 0x1C}, got)

	assert.Equal(t, []byte{0x34, 0x12}, EncodeManufacturerData(0x1234, nil))
}

func TestNewTinyGoAdapter_RejectsBadUUID(t *testing.T) {
	t.Parallel()

	_, err := NewTinyGoAdapter("not-a-uuid")
	assert.Error(t, err)
}
