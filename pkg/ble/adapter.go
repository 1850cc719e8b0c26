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
	"encoding/binary"
	"fmt"
	"strings"

	"tinygo.org/x/bluetooth"
)

// Advertisement is one received advertising report, detached from the
// radio stack so it can be queued and decoded elsewhere.
type Advertisement struct {
	Address string
	Name    string
	// ServiceUUIDs are lower-case canonical UUID strings.
	ServiceUUIDs []string
	// ManufacturerData is the raw manufacturer specific field, starting with
	// the little-endian company identifier.
	ManufacturerData []byte
	RSSI             int16
}

// HasService reports whether the advertisement lists the given service UUID.
func (a Advertisement) HasService(uuid string) bool {
	for _, u := range a.ServiceUUIDs {
		if strings.EqualFold(u, uuid) {
			return true
		}
	}
	return false
}

// Adapter is the part of a BLE radio the supervisor needs. Scan blocks
// until StopScan is called or the radio fails.
type Adapter interface {
	Enable() error
	Scan(callback func(Advertisement)) error
	StopScan() error
}

// TinyGoAdapter drives a host radio through tinygo.org/x/bluetooth.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter
	// watch lists the service UUIDs copied into Advertisement.ServiceUUIDs.
	watch []bluetooth.UUID
}

// NewTinyGoAdapter wraps the default adapter. Only the given service UUIDs
// are reported in received advertisements.
func NewTinyGoAdapter(serviceUUIDs ...string) (*TinyGoAdapter, error) {
	watch := make([]bluetooth.UUID, 0, len(serviceUUIDs))
	for _, s := range serviceUUIDs {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("invalid service uuid %q: %w", s, err)
		}
		watch = append(watch, u)
	}
	return &TinyGoAdapter{
		adapter: bluetooth.DefaultAdapter,
		watch:   watch,
	}, nil
}

func (a *TinyGoAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}
	return nil
}

func (a *TinyGoAdapter) Scan(callback func(Advertisement)) error {
	err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		callback(a.convert(result))
	})
	if err != nil {
		return fmt.Errorf("bluetooth scan failed: %w", err)
	}
	return nil
}

func (a *TinyGoAdapter) StopScan() error {
	if err := a.adapter.StopScan(); err != nil {
		return fmt.Errorf("failed to stop bluetooth scan: %w", err)
	}
	return nil
}

func (a *TinyGoAdapter) convert(result bluetooth.ScanResult) Advertisement {
	adv := Advertisement{
		Address: result.Address.String(),
		Name:    result.LocalName(),
		RSSI:    result.RSSI,
	}

	for _, u := range a.watch {
		if result.HasServiceUUID(u) {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, strings.ToLower(u.String()))
		}
	}

	if mfg := result.ManufacturerData(); len(mfg) > 0 {
		adv.ManufacturerData = EncodeManufacturerData(mfg[0].CompanyID, mfg[0].Data)
	}

	return adv
}

// EncodeManufacturerData rebuilds the on-air manufacturer field from a
// company identifier and its payload.
func EncodeManufacturerData(companyID uint16, data []byte) []byte {
	out := make([]byte, 2, 2+len(data))
	binary.LittleEndian.PutUint16(out, companyID)
	return append(out, data...)
}
