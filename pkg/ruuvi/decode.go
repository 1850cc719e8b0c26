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

// Package ruuvi decodes RAWv2 environmental beacon advertisements and
// keeps the latest reading for each configured beacon.
package ruuvi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// DefaultServiceUUID is the Nordic UART service advertised by the beacons.
	DefaultServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	// CompanyID is the Bluetooth SIG identifier of the beacon vendor, sent
	// little-endian as the first two manufacturer data bytes.
	CompanyID uint16 = 0x0499
	// FormatVersion is the only payload format understood.
	FormatVersion byte = 5
	// MinPayloadLength covers the vendor id, version, temperature, humidity
	// and pressure fields.
	MinPayloadLength = 9

	tempSentinel     uint16 = 0x8000
	humiditySentinel uint16 = 0xFFFF
	pressureSentinel uint16 = 0xFFFF

	tempResolution  = 0.005
	humidityDivisor = 400.0
	pressureOffset  = 50000.0
)

var (
	ErrShortPayload       = errors.New("manufacturer data too short")
	ErrVendorMismatch     = errors.New("manufacturer id does not match")
	ErrUnsupportedFormat  = errors.New("unsupported payload format")
	errNoManufacturerData = errors.New("no manufacturer data")
)

// Measurement holds the decoded environmental fields. A nil field means
// the beacon reported that value as unavailable.
type Measurement struct {
	// TemperatureC is in degrees Celsius.
	TemperatureC *float64
	// Humidity is relative humidity in percent.
	Humidity *float64
	// PressurePa is in pascals.
	PressurePa *float64
}

// Empty reports whether every field was unavailable.
func (m Measurement) Empty() bool {
	return m.TemperatureC == nil && m.Humidity == nil && m.PressurePa == nil
}

// IsRuuvi reports whether mfg carries the beacon vendor id and a
// supported format version, without decoding the fields.
func IsRuuvi(mfg []byte) bool {
	return checkHeader(mfg) == nil
}

func checkHeader(mfg []byte) error {
	if len(mfg) == 0 {
		return errNoManufacturerData
	}
	if len(mfg) < 3 {
		return fmt.Errorf("%w: %d bytes", ErrShortPayload, len(mfg))
	}
	if binary.LittleEndian.Uint16(mfg[0:2]) != CompanyID {
		return fmt.Errorf("%w: 0x%02X%02X", ErrVendorMismatch, mfg[1], mfg[0])
	}
	if mfg[2] != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, mfg[2])
	}
	return nil
}

// Decode parses the manufacturer data of a RAWv2 advertisement. mfg
// starts with the company id bytes 0x99 0x04.
func Decode(mfg []byte) (Measurement, error) {
	if err := checkHeader(mfg); err != nil {
		return Measurement{}, err
	}
	if len(mfg) < MinPayloadLength {
		return Measurement{}, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(mfg))
	}

	var m Measurement

	if raw := binary.BigEndian.Uint16(mfg[3:5]); raw != tempSentinel {
		//nolint:gosec // temperature is a signed 16-bit field
		v := float64(int16(raw)) * tempResolution
		m.TemperatureC = &v
	}
	if raw := binary.BigEndian.Uint16(mfg[5:7]); raw != humiditySentinel {
		v := float64(raw) / humidityDivisor
		m.Humidity = &v
	}
	if raw := binary.BigEndian.Uint16(mfg[7:9]); raw != pressureSentinel {
		v := float64(raw) + pressureOffset
		m.PressurePa = &v
	}

	return m, nil
}
