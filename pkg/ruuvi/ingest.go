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
	"context"
	"errors"

	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/rs/zerolog/log"
)

// Ingester decodes advertisements from a scan and applies them to a
// Registry. It is meant to be driven by a single goroutine.
type Ingester struct {
	registry *Registry
	// OnUpdate, when set, receives a copy of every reading that changed.
	OnUpdate    func(Reading)
	serviceUUID string
}

// NewIngester creates an ingester. An empty serviceUUID accepts any
// advertisement that decodes.
func NewIngester(registry *Registry, serviceUUID string) *Ingester {
	return &Ingester{
		registry:    registry,
		serviceUUID: serviceUUID,
	}
}

// Handle processes one advertisement and returns true if a reading was
// updated. Foreign or malformed advertisements are ignored.
func (i *Ingester) Handle(adv ble.Advertisement) bool {
	if i.serviceUUID != "" && !adv.HasService(i.serviceUUID) {
		return false
	}
	if !i.registry.Known(adv.Name) {
		log.Trace().Str("name", adv.Name).Str("address", adv.Address).Msg("ignoring unknown beacon")
		return false
	}

	m, err := Decode(adv.ManufacturerData)
	if err != nil {
		if !errors.Is(err, errNoManufacturerData) {
			log.Debug().Err(err).Str("name", adv.Name).Msg("ignoring beacon payload")
		}
		return false
	}

	reading, ok := i.registry.apply(adv.Name, m)
	if !ok {
		return false
	}

	ev := log.Debug().Str("name", adv.Name).Int16("rssi", adv.RSSI)
	if c, ok := reading.Celsius(); ok {
		ev = ev.Float64("temp_c", c)
	}
	ev.Msg("beacon reading updated")

	if i.OnUpdate != nil {
		i.OnUpdate(reading)
	}
	return true
}

// Run consumes advertisements until ctx is done or in is closed.
func (i *Ingester) Run(ctx context.Context, in <-chan ble.Advertisement) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case adv, ok := <-in:
			if !ok {
				return nil
			}
			i.Handle(adv)
		}
	}
}
