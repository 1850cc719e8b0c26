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

// Package service wires the display link, the BLE scan, the beacon
// registry and the outer surfaces into one long running process.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/wxpanel/pkg/api"
	"github.com/ZaparooProject/wxpanel/pkg/ble"
	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/ZaparooProject/wxpanel/pkg/nextion"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/ZaparooProject/wxpanel/pkg/service/broker"
	"github.com/ZaparooProject/wxpanel/pkg/service/discovery"
	"github.com/ZaparooProject/wxpanel/pkg/service/publishers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const subscriberBuffer = 16

// Deps replaces hardware and time for tests. Zero values use the real
// serial port, the host Bluetooth adapter and the wall clock.
type Deps struct {
	Clock       clockwork.Clock
	Adapter     ble.Adapter
	PortFactory nextion.PortFactory
	// APIListen overrides the configured API address when set.
	APIListen string
	// DisableDiscovery skips mDNS advertising regardless of config.
	DisableDiscovery bool
}

// Run starts every component and blocks until ctx is cancelled or a
// component fails. The display link is closed on return.
func Run(ctx context.Context, cfg *config.Instance, deps Deps) error {
	log.Info().Msgf("version: %s", config.AppVersion)

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	link, err := openDisplay(cfg, deps.PortFactory)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := link.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing display link")
		}
	}()
	display := nextion.NewDisplay(link)

	adapter := deps.Adapter
	if adapter == nil {
		tg, adapterErr := ble.NewTinyGoAdapter(cfg.BeaconServiceUUID())
		if adapterErr != nil {
			return fmt.Errorf("bluetooth setup failed: %w", adapterErr)
		}
		adapter = tg
	}
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("bluetooth setup failed: %w", err)
	}

	registry := ruuvi.NewRegistry(beaconsFromConfig(cfg.KnownBeacons()), clock)
	supervisor := ble.NewSupervisor(adapter, ble.SupervisorConfig{
		Clock:       clock,
		ServiceUUID: cfg.BeaconServiceUUID(),
		Interval:    cfg.ScanInterval(),
		ResultLimit: cfg.ScanResultLimit(),
	})

	updates := make(chan ruuvi.Reading, subscriberBuffer)
	ingester := ruuvi.NewIngester(registry, cfg.BeaconServiceUUID())
	ingester.OnUpdate = func(r ruuvi.Reading) {
		select {
		case updates <- r:
		default:
			log.Warn().Str("beacon", r.Name).Msg("reading fan-out busy, update not published")
		}
	}
	readings := broker.New("readings", updates)

	activePublishers := startPublishers(cfg, readings)
	defer func() {
		for _, p := range activePublishers {
			p.Stop()
		}
	}()

	listener := nextion.NewListener(link)
	panel := NewPanel(display, registry, cfg, clock)
	server := api.NewServer(cfg, registry, display, supervisor, clock)

	listen := cfg.APIListen()
	if deps.APIListen != "" {
		listen = deps.APIListen
	}

	if !deps.DisableDiscovery {
		advertiser := discovery.New(cfg)
		if discoveryErr := advertiser.Start(); discoveryErr != nil {
			log.Error().Err(discoveryErr).Msg("mdns discovery failed to start, continuing without it")
		}
		defer advertiser.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		defer close(updates)
		return ingester.Run(gctx, supervisor.Results())
	})
	g.Go(func() error {
		return readings.Run(gctx)
	})
	g.Go(func() error {
		listener.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logDisplayEvents(listener.Frames())
		return nil
	})
	g.Go(func() error {
		return panel.Run(gctx)
	})
	g.Go(func() error {
		if serveErr := server.ListenAndServe(gctx, listen); serveErr != nil {
			log.Error().Err(serveErr).Msg("api server failed, continuing without it")
		}
		return nil
	})
	g.Go(func() error {
		watchErr := cfg.Watch(gctx, func(c *config.Instance) {
			warnRestartNeeded(registry, c.KnownBeacons())
		})
		if watchErr != nil && !errors.Is(watchErr, context.Canceled) {
			log.Warn().Err(watchErr).Msg("config watcher stopped")
		}
		return nil
	})

	log.Info().Msg("service started")
	err = g.Wait()
	log.Info().Msg("service stopped")
	if err != nil {
		return fmt.Errorf("service failed: %w", err)
	}
	return nil
}

// DisplayLinkConfig builds the serial link settings from the config. An
// empty display path picks the first likely USB serial adapter.
func DisplayLinkConfig(cfg *config.Instance) (nextion.LinkConfig, error) {
	path := cfg.DisplayPath()
	if path == "" {
		found, err := helpers.FindDisplayPort()
		if err != nil {
			return nextion.LinkConfig{}, fmt.Errorf(
				"no display path configured and auto-detect failed: %w", err)
		}
		path = found
	}

	rx, tx := cfg.DisplayPins()
	linkCfg := nextion.DefaultLinkConfig(path)
	linkCfg.BaudRate = cfg.DisplayBaudRate()
	linkCfg.RXPin = rx
	linkCfg.TXPin = tx
	linkCfg.WriteTimeout = cfg.DisplayWriteTimeout()
	linkCfg.ReadTimeout = cfg.DisplayReadTimeout()
	linkCfg.ReadWindow = cfg.DisplayReadWindow()
	return linkCfg, nil
}

func openDisplay(cfg *config.Instance, factory nextion.PortFactory) (*nextion.Link, error) {
	linkCfg, err := DisplayLinkConfig(cfg)
	if err != nil {
		return nil, err
	}
	linkCfg.PortFactory = factory

	link := nextion.NewLink(linkCfg)
	if err := link.Open(); err != nil {
		return nil, fmt.Errorf("display setup failed: %w", err)
	}
	return link, nil
}

func beaconsFromConfig(known []config.KnownBeacon) []ruuvi.Beacon {
	out := make([]ruuvi.Beacon, 0, len(known))
	for _, k := range known {
		out = append(out, ruuvi.Beacon{Name: k.Name, Label: k.Label})
	}
	return out
}

// warnRestartNeeded logs reloaded beacons the running registry does not
// track. Field and colour changes apply on the next refresh.
func warnRestartNeeded(registry *ruuvi.Registry, known []config.KnownBeacon) {
	for _, k := range known {
		if !registry.Known(k.Name) {
			log.Warn().Str("beacon", k.Name).Msg("new beacon in config, restart to start tracking it")
		}
	}
}

func startPublishers(cfg *config.Instance, readings *broker.Broker[ruuvi.Reading]) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		if !mqttCfg.IsEnabled() {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		ch, id := readings.Subscribe(subscriberBuffer)
		publisher := publishers.NewMQTTPublisher(mqttCfg, cfg.StaleAfter())
		if err := publisher.Start(ch); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			readings.Unsubscribe(id)
			continue
		}
		active = append(active, publisher)
	}

	if len(active) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(active))
	}
	return active
}

// logDisplayEvents drains the listener until it closes.
func logDisplayEvents(frames <-chan nextion.Frame) {
	for f := range frames {
		if name, ok := f.Event(); ok {
			log.Info().Str("event", name).Str("frame", f.Hex()).Msg("display event")
			continue
		}
		log.Debug().Str("frame", f.Hex()).Msg("unhandled display frame")
	}
}
