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

package publishers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	connectWait = 5 * time.Second
	publishWait = 2 * time.Second
)

// MQTTPublisher publishes beacon readings to an MQTT broker, one retained
// message per beacon under the configured topic.
type MQTTPublisher struct {
	client     mqtt.Client
	newClient  func(*mqtt.ClientOptions) mqtt.Client
	clock      clockwork.Clock
	limiters   map[string]*rate.Limiter
	stopCh     chan struct{}
	done       chan struct{}
	broker     string
	topic      string
	username   string
	password   string
	filter     []string
	interval   time.Duration
	staleAfter time.Duration
	mu         syncutil.Mutex
}

// NewMQTTPublisher creates a publisher from its config entry. Each
// beacon is published at most once per the entry's minimum interval.
//
//nolint:gocritic // config entry copied on purpose
func NewMQTTPublisher(cfg config.MQTTPublisher, staleAfter time.Duration) *MQTTPublisher {
	return &MQTTPublisher{
		broker:     cfg.Broker,
		topic:      strings.TrimSuffix(cfg.Topic, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		filter:     cfg.Filter,
		interval:   cfg.PublishInterval(),
		staleAfter: staleAfter,
		newClient:  mqtt.NewClient,
		clock:      clockwork.NewRealClock(),
		limiters:   make(map[string]*rate.Limiter),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the MQTT broker and begins publishing readings.
func (p *MQTTPublisher) Start(readings <-chan ruuvi.Reading) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("wxpanel-publisher-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if p.username != "" {
		opts.SetUsername(p.username)
		opts.SetPassword(p.password)
	}

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	client := p.newClient(opts)

	// with connect retry enabled the token only completes once connected
	token := client.Connect()
	if !token.WaitTimeout(connectWait) {
		log.Warn().Msgf("mqtt publisher: %s not reachable yet, retrying in background", p.broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	p.client = client

	go p.publishReadings(readings)

	return nil
}

// Stop disconnects from the MQTT broker and waits for the publishing
// goroutine to exit. It is safe to call when Start failed.
func (p *MQTTPublisher) Stop() {
	close(p.stopCh)
	if p.client == nil {
		return
	}
	<-p.done

	if p.client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(250)
	}
}

func (p *MQTTPublisher) publishReadings(readings <-chan ruuvi.Reading) {
	defer close(p.done)
	log.Debug().Msg("mqtt publisher: starting reading publisher goroutine")

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping reading publisher")
			return
		case reading, ok := <-readings:
			if !ok {
				log.Debug().Msg("mqtt publisher: reading channel closed")
				return
			}
			p.publish(reading)
		}
	}
}

// publish sends one reading unless it is filtered out or rate limited.
// It returns true if a message was handed to the broker.
func (p *MQTTPublisher) publish(reading ruuvi.Reading) bool {
	if !p.matchesFilter(reading.Name) {
		return false
	}

	now := p.clock.Now()
	if !p.allow(reading.Name, now) {
		return false
	}

	payload, err := json.Marshal(reading.Summary(now, p.staleAfter))
	if err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to marshal reading")
		return false
	}

	topic := p.topicFor(reading.Name)
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishWait) {
		log.Warn().Msgf("mqtt publisher: publish to %s timed out", topic)
		return false
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to publish message")
		return false
	}

	log.Debug().Msgf("mqtt publisher: published reading to %s", topic)
	return true
}

func (p *MQTTPublisher) allow(name string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[name] = limiter
	}
	return limiter.AllowN(now, 1)
}

// topicFor appends the beacon name as a single topic level.
func (p *MQTTPublisher) topicFor(name string) string {
	level := strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return -1
		case ' ':
			return '_'
		default:
			return r
		}
	}, strings.ToLower(name))
	if level == "" {
		level = "unnamed"
	}
	return p.topic + "/" + level
}

// matchesFilter checks if a beacon name matches the configured filter.
// If filter is empty, all beacons pass.
func (p *MQTTPublisher) matchesFilter(name string) bool {
	if len(p.filter) == 0 {
		return true
	}

	for _, f := range p.filter {
		if f == name {
			return true
		}
	}

	return false
}
