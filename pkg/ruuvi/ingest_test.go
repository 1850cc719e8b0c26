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
	"testing"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referencePayload = []byte{0x99, 0x04, 0x05, 0x05, 0x1C, 0x76, 0x5D, 0xC4, 0x98}

func advert(name string, mfg []byte) ble.Advertisement {
	return ble.Advertisement{
		Address:          "C1:2B:3D:4E:5F:60",
		Name:             name,
		ServiceUUIDs:     []string{DefaultServiceUUID},
		ManufacturerData: mfg,
		RSSI:             -60,
	}
}

func TestIngester_Handle(t *testing.T) {
	t.Parallel()

	foreignService := advert("Outdoor", referencePayload)
	foreignService.ServiceUUIDs = []string{"0000feaa-0000-1000-8000-00805f9b34fb"}

	tests := []struct {
		name string
		adv  ble.Advertisement
		want bool
	}{
		{name: "accepted", adv: advert("Outdoor", referencePayload), want: true},
		{name: "unknown name", adv: advert("Garage", referencePayload)},
		{name: "wrong service", adv: foreignService},
		{name: "wrong vendor", adv: advert("Outdoor", []byte{0x4C, 0x00, 0x05, 0x05, 0x1C, 0x76, 0x5D, 0xC4, 0x98})},
		{name: "old format", adv: advert("Outdoor", []byte{0x99, 0x04, 0x03, 0x05, 0x1C, 0x76, 0x5D, 0xC4, 0x98})},
		{name: "short", adv: advert("Outdoor", referencePayload[:6])},
		{name: "no manufacturer data", adv: advert("Outdoor", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry(testBeacons, clockwork.NewFakeClock())
			in := NewIngester(r, DefaultServiceUUID)

			assert.Equal(t, tt.want, in.Handle(tt.adv))

			reading, _ := r.Get("Outdoor")
			assert.Equal(t, tt.want, reading.Seen())
		})
	}
}

func TestIngester_SentinelKeepsPreviousValue(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	r := NewRegistry(testBeacons, clock)
	in := NewIngester(r, DefaultServiceUUID)

	require.True(t, in.Handle(advert("Outdoor", referencePayload)))
	clock.Advance(30 * time.Second)
	require.True(t, in.Handle(advert("Outdoor", []byte{0x99, 0x04, 0x05, 0x80, 0x00, 0x76, 0x5D, 0xC4, 0x98})))

	reading, _ := r.Get("Outdoor")
	c, ok := reading.Celsius()
	require.True(t, ok)
	assert.InDelta(t, 6.54, c, 1e-9)
	assert.Equal(t, clock.Now(), reading.LastUpdate)
}

func TestIngester_OnUpdate(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testBeacons, clockwork.NewFakeClock())
	in := NewIngester(r, "")

	var got []Reading
	in.OnUpdate = func(reading Reading) {
		got = append(got, reading)
	}

	noService := advert("Indoor", referencePayload)
	noService.ServiceUUIDs = nil
	require.True(t, in.Handle(noService), "empty service filter accepts anything that decodes")
	assert.False(t, in.Handle(advert("Garage", referencePayload)))

	require.Len(t, got, 1)
	assert.Equal(t, "Indoor", got[0].Name)
	tf, ok := got[0].TemperatureF()
	require.True(t, ok)
	assert.Equal(t, 44, tf)
}

func TestIngester_Run(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testBeacons, clockwork.NewFakeClock())
	in := NewIngester(r, DefaultServiceUUID)

	ch := make(chan ble.Advertisement, 4)
	ch <- advert("Outdoor", referencePayload)
	ch <- advert("Garage", referencePayload)
	ch <- advert("Indoor", referencePayload)
	close(ch)

	require.NoError(t, in.Run(context.Background(), ch))

	for _, reading := range r.Snapshot() {
		assert.True(t, reading.Seen(), reading.Name)
	}
}

func TestIngester_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	in := NewIngester(NewRegistry(testBeacons, nil), DefaultServiceUUID)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, in.Run(ctx, make(chan ble.Advertisement)))
}
