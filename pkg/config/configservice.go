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

package config

import (
	"strconv"
	"time"
)

const (
	DefaultAPIPort            = 7498
	DefaultMQTTPublishMinimum = 10 * time.Second
)

type Service struct {
	APIPort    *int       `toml:"api_port,omitempty" validate:"omitempty,gt=0,lte=65535"`
	DeviceID   string     `toml:"device_id"`
	APIListen  string     `toml:"api_listen,omitempty" validate:"omitempty,hostname_port"`
	SentryDSN  string     `toml:"sentry_dsn,omitempty" validate:"omitempty,url"`
	Discovery  Discovery  `toml:"discovery,omitempty"`
	AllowedIPs []string   `toml:"allowed_ips,omitempty,multiline"`
	Publishers Publishers `toml:"publishers,omitempty"`
}

// Discovery controls mDNS advertising of the HTTP API.
type Discovery struct {
	Enabled      *bool  `toml:"enabled,omitempty"`
	InstanceName string `toml:"instance_name,omitempty" validate:"omitempty,max=63"`
}

type Publishers struct {
	MQTT []MQTTPublisher `toml:"mqtt,omitempty" validate:"dive"`
}

type MQTTPublisher struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Broker  string `toml:"broker" validate:"required"`
	Topic   string `toml:"topic" validate:"required"`
	// MinInterval limits how often each beacon's reading is published.
	MinInterval string   `toml:"min_interval,omitempty" validate:"duration"`
	Username    string   `toml:"username,omitempty"`
	Password    string   `toml:"password,omitempty"`
	Filter      []string `toml:"filter,omitempty,multiline"`
}

// IsEnabled treats a missing enabled key as true.
func (p *MQTTPublisher) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// PublishInterval returns the per-beacon minimum publish interval.
func (p *MQTTPublisher) PublishInterval() time.Duration {
	return parseDuration(p.MinInterval, DefaultMQTTPublishMinimum)
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.Service.APIPort == nil {
		return DefaultAPIPort
	}
	return *c.vals.Service.APIPort
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Service.APIPort = &port
}

func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.APIListen == "" {
		return ":" + strconv.Itoa(c.apiPortLocked())
	}
	return c.vals.Service.APIListen
}

func (c *Instance) GetMQTTPublishers() []MQTTPublisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]MQTTPublisher(nil), c.vals.Service.Publishers.MQTT...)
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.DeviceID
}

func (c *Instance) SentryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.SentryDSN
}

func (c *Instance) AllowedIPs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Service.AllowedIPs...)
}

// DiscoveryEnabled defaults to true when unset.
func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Discovery.Enabled == nil || *c.vals.Service.Discovery.Enabled
}

func (c *Instance) DiscoveryInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Discovery.InstanceName
}
