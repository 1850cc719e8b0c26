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
	"testing"
	"time"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 {
	return &v
}

func testReading(t *testing.T, clock clockwork.Clock, name string) ruuvi.Reading {
	t.Helper()
	reg := ruuvi.NewRegistry([]ruuvi.Beacon{{Name: name, Label: "Outside"}}, clock)
	require.True(t, reg.Update(name, ruuvi.Measurement{
		TemperatureC: float(6.54),
		Humidity:     float(75.7525),
		PressurePa:   float(100328),
	}))
	reading, ok := reg.Get(name)
	require.True(t, ok)
	return reading
}

func newTestPublisher(cfg config.MQTTPublisher, clock clockwork.Clock) (*MQTTPublisher, *mockMQTTClient) {
	mockClient := newMockMQTTClient()
	publisher := NewMQTTPublisher(cfg, 10*time.Minute)
	publisher.clock = clock
	publisher.newClient = func(*mqtt.ClientOptions) mqtt.Client {
		return mockClient
	}
	return publisher, mockClient
}

func TestNewMQTTPublisher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          config.MQTTPublisher
		wantTopic    string
		wantInterval time.Duration
		filter       []string
	}{
		{
			name: "with filter",
			cfg: config.MQTTPublisher{
				Broker: "localhost:1883",
				Topic:  "wxpanel/readings",
				Filter: []string{"Ruuvi 1A2B"},
			},
			wantTopic:    "wxpanel/readings",
			wantInterval: config.DefaultMQTTPublishMinimum,
			filter:       []string{"Ruuvi 1A2B"},
		},
		{
			name: "trailing slash trimmed",
			cfg: config.MQTTPublisher{
				Broker:      "broker.example.com:8883",
				Topic:       "weather/",
				MinInterval: "1m",
			},
			wantTopic:    "weather",
			wantInterval: time.Minute,
		},
		{
			name: "invalid interval falls back",
			cfg: config.MQTTPublisher{
				Broker:      "test:1883",
				Topic:       "test/topic",
				MinInterval: "soon",
			},
			wantTopic:    "test/topic",
			wantInterval: config.DefaultMQTTPublishMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			publisher := NewMQTTPublisher(tt.cfg, time.Minute)

			assert.NotNil(t, publisher)
			assert.Equal(t, tt.cfg.Broker, publisher.broker)
			assert.Equal(t, tt.wantTopic, publisher.topic)
			assert.Equal(t, tt.wantInterval, publisher.interval)
			assert.Equal(t, tt.filter, publisher.filter)
			assert.NotNil(t, publisher.stopCh)
		})
	}
}

func TestBrokerURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tcp://localhost:1883", brokerURL("localhost:1883"))
	assert.Equal(t, "ssl://broker:8883", brokerURL("ssl://broker:8883"))
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		beacon string
		filter []string
		want   bool
	}{
		{name: "empty filter matches all", filter: []string{}, beacon: "Ruuvi 1A2B", want: true},
		{name: "nil filter matches all", filter: nil, beacon: "Ruuvi 1A2B", want: true},
		{name: "name in filter", filter: []string{"Ruuvi 1A2B", "Ruuvi 3C4D"}, beacon: "Ruuvi 3C4D", want: true},
		{name: "name not in filter", filter: []string{"Ruuvi 1A2B"}, beacon: "Ruuvi 3C4D", want: false},
		{name: "case sensitive", filter: []string{"Ruuvi 1A2B"}, beacon: "ruuvi 1a2b", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			publisher := &MQTTPublisher{filter: tt.filter}
			assert.Equal(t, tt.want, publisher.matchesFilter(tt.beacon))
		})
	}
}

func TestTopicFor(t *testing.T) {
	t.Parallel()

	publisher := &MQTTPublisher{topic: "wx"}

	assert.Equal(t, "wx/ruuvi_1a2b", publisher.topicFor("Ruuvi 1A2B"))
	assert.Equal(t, "wx/ab", publisher.topicFor("a/+#b"))
	assert.Equal(t, "wx/unnamed", publisher.topicFor("#"))
}

func TestStop(t *testing.T) {
	t.Parallel()

	publisher := NewMQTTPublisher(config.MQTTPublisher{Broker: "localhost:1883", Topic: "test"}, time.Minute)

	publisher.Stop()

	_, ok := <-publisher.stopCh
	assert.False(t, ok, "stopCh should be closed after Stop()")
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	publisher, mockClient := newTestPublisher(
		config.MQTTPublisher{Broker: "localhost:1883", Topic: "wx"},
		clockwork.NewFakeClock(),
	)
	mockClient.connectError = assert.AnError

	err := publisher.Start(make(chan ruuvi.Reading))
	require.ErrorIs(t, err, assert.AnError)
}

func TestStart_PublishesReading(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	publisher, mockClient := newTestPublisher(
		config.MQTTPublisher{Broker: "localhost:1883", Topic: "wx"},
		clock,
	)

	readings := make(chan ruuvi.Reading, 1)
	require.NoError(t, publisher.Start(readings))

	readings <- testReading(t, clock, "Ruuvi 1A2B")

	require.Eventually(t, func() bool {
		return mockClient.getPublishedCount() == 1
	}, time.Second, 5*time.Millisecond)

	publisher.Stop()
	assert.Equal(t, 1, mockClient.disconnectCall)

	msg := mockClient.getPublished()[0]
	assert.Equal(t, "wx/ruuvi_1a2b", msg.topic)
	assert.True(t, msg.retained)

	payload, ok := msg.payload.([]byte)
	require.True(t, ok)

	var summary ruuvi.Summary
	require.NoError(t, json.Unmarshal(payload, &summary))
	assert.Equal(t, "Ruuvi 1A2B", summary.Name)
	assert.Equal(t, "Outside", summary.Label)
	require.NotNil(t, summary.TemperatureC)
	assert.Equal(t, 7, *summary.TemperatureC)
	assert.False(t, summary.Stale)
}

func TestPublish_Filtered(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	publisher, mockClient := newTestPublisher(config.MQTTPublisher{
		Broker: "localhost:1883",
		Topic:  "wx",
		Filter: []string{"Ruuvi 3C4D"},
	}, clock)
	publisher.client = mockClient

	assert.False(t, publisher.publish(testReading(t, clock, "Ruuvi 1A2B")))
	assert.True(t, publisher.publish(testReading(t, clock, "Ruuvi 3C4D")))
	assert.Equal(t, 1, mockClient.getPublishedCount())
}

func TestPublish_RateLimitedPerBeacon(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	publisher, mockClient := newTestPublisher(config.MQTTPublisher{
		Broker:      "localhost:1883",
		Topic:       "wx",
		MinInterval: "10s",
	}, clock)
	publisher.client = mockClient

	first := testReading(t, clock, "Ruuvi 1A2B")
	other := testReading(t, clock, "Ruuvi 3C4D")

	assert.True(t, publisher.publish(first))
	assert.False(t, publisher.publish(first), "second publish inside the interval")
	assert.True(t, publisher.publish(other), "limits are per beacon")

	clock.Advance(5 * time.Second)
	assert.False(t, publisher.publish(first))

	clock.Advance(5 * time.Second)
	assert.True(t, publisher.publish(first))

	assert.Equal(t, 3, mockClient.getPublishedCount())
}

func TestPublish_PublishError(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	publisher, mockClient := newTestPublisher(
		config.MQTTPublisher{Broker: "localhost:1883", Topic: "wx"},
		clock,
	)
	mockClient.publishError = assert.AnError
	publisher.client = mockClient

	assert.False(t, publisher.publish(testReading(t, clock, "Ruuvi 1A2B")))
}

func TestPublishReadings_ChannelClosed(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	publisher, mockClient := newTestPublisher(
		config.MQTTPublisher{Broker: "localhost:1883", Topic: "wx"},
		clock,
	)

	readings := make(chan ruuvi.Reading)
	require.NoError(t, publisher.Start(readings))
	close(readings)

	select {
	case <-publisher.done:
	case <-time.After(time.Second):
		t.Fatal("publisher goroutine did not exit after channel close")
	}

	publisher.Stop()
	assert.False(t, mockClient.IsConnected())
}
