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

// Package discovery advertises the panel's HTTP API over mDNS so dashboards
// on the local network can find it without a fixed address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	ServiceType = "_wxpanel._tcp"
	domain      = "local."

	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var virtualPrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "cni", "flannel", "wg", "tun",
}

// Settings is the subset of the config the advertiser reads.
type Settings interface {
	DiscoveryEnabled() bool
	DiscoveryInstanceName() string
	DeviceID() string
	APIListen() string
}

type registerFunc func(instance string, port int, txt []string, ifaces []net.Interface) (func(), error)

func zeroconfRegister(instance string, port int, txt []string, ifaces []net.Interface) (func(), error) {
	server, err := zeroconf.Register(instance, ServiceType, domain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	return server.Shutdown, nil
}

// Advertiser owns the mDNS registration for the lifetime of the service.
type Advertiser struct {
	settings   Settings
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	hostname   func() (string, error)
	shutdown   func()
	cancel     context.CancelFunc
	instance   string
	mu         syncutil.Mutex
	stopped    bool
}

func New(settings Settings) *Advertiser {
	return &Advertiser{
		settings:   settings,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
		hostname:   os.Hostname,
	}
}

// Start registers the service. When no usable interface is up yet it keeps
// retrying in the background for a few minutes.
func (a *Advertiser) Start() error {
	if !a.settings.DiscoveryEnabled() {
		log.Info().Msg("mdns discovery disabled by configuration")
		return nil
	}

	port, err := listenPort(a.settings.APIListen())
	if err != nil {
		return err
	}
	a.instance = a.instanceName()

	if a.tryRegister(port) {
		return nil
	}

	log.Info().Dur("retry", retryInterval).Msg("mdns registration failed, retrying in background")

	ctx, cancel := context.WithTimeout(context.Background(), maxRetryDuration)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	go a.retry(ctx, port)
	return nil
}

func listenPort(listen string) (int, error) {
	_, p, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, fmt.Errorf("parse api listen address: %w", err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("parse api port %q: %w", p, err)
	}
	return port, nil
}

func (a *Advertiser) tryRegister(port int) bool {
	all, err := a.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return false
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		log.Debug().Msg("no interface suitable for mdns")
		return false
	}

	txt := []string{
		"id=" + a.settings.DeviceID(),
		"version=" + config.AppVersion,
	}

	shutdown, err := a.register(a.instance, port, txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mdns registration attempt failed")
		return false
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		shutdown()
		return false
	}
	a.shutdown = shutdown
	a.mu.Unlock()

	log.Info().
		Str("instance", a.instance).
		Int("port", port).
		Str("type", ServiceType).
		Msg("mdns advertising started")
	return true
}

func (a *Advertiser) retry(ctx context.Context, port int) {
	ticker := a.clock.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if a.tryRegister(port) {
				return
			}
		case <-ctx.Done():
			log.Warn().Msg("mdns registration gave up, discovery unavailable")
			return
		}
	}
}

// Stop withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.shutdown != nil {
		log.Debug().Msg("stopping mdns advertising")
		a.shutdown()
		a.shutdown = nil
	}
}

// InstanceName is empty until Start has run.
func (a *Advertiser) InstanceName() string {
	return a.instance
}

// instanceName prefers the configured name, then the hostname, then a name
// derived from the device id.
func (a *Advertiser) instanceName() string {
	if name := a.settings.DiscoveryInstanceName(); name != "" {
		return name
	}
	if host, err := a.hostname(); err == nil && host != "" {
		return host
	}
	if id := a.settings.DeviceID(); len(id) >= 8 {
		return helpers.AppName + "-" + id[:8]
	}
	return helpers.AppName
}

func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var out []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtual(iface.Name):
			continue
		}
		out = append(out, iface)
	}
	return out
}

func isVirtual(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
