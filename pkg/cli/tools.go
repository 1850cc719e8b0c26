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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/ZaparooProject/wxpanel/pkg/nextion"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/ZaparooProject/wxpanel/pkg/service"
)

var errNotSent = errors.New("command not sent, display link busy or closed")

func listPorts(out io.Writer) error {
	ports, err := helpers.GetSerialDeviceList()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p)
	}
	return nil
}

// sendCommand opens the display without resetting it and writes one
// command.
func sendCommand(cfg *config.Instance, text string, factory nextion.PortFactory, out io.Writer) error {
	cmd, err := nextion.ParseCommand(text)
	if err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	linkCfg, err := service.DisplayLinkConfig(cfg)
	if err != nil {
		return err
	}
	linkCfg.PortFactory = factory
	linkCfg.NoReset = true

	link := nextion.NewLink(linkCfg)
	if err := link.Open(); err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer func() { _ = link.Close() }()

	if !nextion.NewDisplay(link).Send(cmd) {
		return errNotSent
	}
	_, _ = fmt.Fprintf(out, "sent %s to %s\n", cmd, linkCfg.Path)
	return nil
}

type sighting struct {
	address string
	name    string
	m       ruuvi.Measurement
	rssi    int16
}

// scanBeacons runs one scan and prints every Ruuvi beacon heard, known to
// the config or not.
func scanBeacons(
	ctx context.Context,
	cfg *config.Instance,
	d time.Duration,
	adapter ble.Adapter,
	out io.Writer,
) error {
	if adapter == nil {
		tg, err := ble.NewTinyGoAdapter(cfg.BeaconServiceUUID())
		if err != nil {
			return fmt.Errorf("bluetooth setup failed: %w", err)
		}
		adapter = tg
	}
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("bluetooth setup failed: %w", err)
	}

	sup := ble.NewSupervisor(adapter, ble.SupervisorConfig{
		ServiceUUID: cfg.BeaconServiceUUID(),
		BufferSize:  64,
	})

	seen := make(map[string]sighting)
	record := func(adv ble.Advertisement) {
		m, err := ruuvi.Decode(adv.ManufacturerData)
		if err != nil {
			return
		}
		seen[adv.Address] = sighting{
			address: adv.Address,
			name:    adv.Name,
			m:       m,
			rssi:    adv.RSSI,
		}
	}

	collectCtx, stop := context.WithCancel(ctx)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for {
			select {
			case <-collectCtx.Done():
				return
			case adv := <-sup.Results():
				record(adv)
			}
		}
	}()

	_, _ = fmt.Fprintf(out, "scanning for %s...\n", d)
	err := sup.ScanFor(ctx, d)
	stop()
	<-collected
	for drained := false; !drained; {
		select {
		case adv := <-sup.Results():
			record(adv)
		default:
			drained = true
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scan failed: %w", err)
	}

	printSightings(out, seen, cfg.KnownBeacons())
	return nil
}

func printSightings(out io.Writer, seen map[string]sighting, known []config.KnownBeacon) {
	if len(seen) == 0 {
		_, _ = fmt.Fprintln(out, "no beacons found")
		return
	}

	labels := make(map[string]string, len(known))
	for _, k := range known {
		labels[k.Name] = k.Label
	}

	list := make([]sighting, 0, len(seen))
	for _, s := range seen {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].name != list[j].name {
			return list[i].name < list[j].name
		}
		return list[i].address < list[j].address
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tTEMP C\tHUMIDITY %\tPRESSURE PA\tCONFIGURED")
	for _, s := range list {
		label, ok := labels[s.name]
		configured := "no"
		if ok {
			configured = "yes"
			if label != "" {
				configured = label
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			s.name, s.address, s.rssi,
			optional(s.m.TemperatureC, "%.2f"),
			optional(s.m.Humidity, "%.1f"),
			optional(s.m.PressurePa, "%.0f"),
			configured,
		)
	}
	_ = w.Flush()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
