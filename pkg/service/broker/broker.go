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

// Package broker fans values from one channel out to many subscribers
// without letting a slow subscriber block the source.
package broker

import (
	"context"

	"github.com/ZaparooProject/wxpanel/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker broadcasts every value received on its source to all current
// subscribers. Sends are non-blocking: a full subscriber misses the value.
type Broker[T any] struct {
	source      <-chan T
	subscribers map[int]chan T
	name        string
	nextID      int
	dropped     uint64
	mu          syncutil.RWMutex
	closed      bool
}

// New creates a broker reading from source. name only appears in logs.
func New[T any](name string, source <-chan T) *Broker[T] {
	return &Broker[T]{
		name:        name,
		source:      source,
		subscribers: make(map[int]chan T),
	}
}

// Run broadcasts until the source closes or ctx is cancelled, then closes
// every subscriber channel.
func (b *Broker[T]) Run(ctx context.Context) error {
	defer b.Stop()

	for {
		select {
		case v, ok := <-b.source:
			if !ok {
				log.Debug().Str("broker", b.name).Msg("source channel closed")
				return nil
			}
			b.broadcast(v)
		case <-ctx.Done():
			log.Debug().Str("broker", b.name).Msg("context cancelled, shutting down")
			return nil
		}
	}
}

func (b *Broker[T]) broadcast(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- v:
		default:
			b.dropped++
			log.Warn().
				Str("broker", b.name).
				Int("subscriber_id", id).
				Msg("subscriber channel full, dropping value")
		}
	}
}

// Subscribe registers a subscriber with a buffer of bufferSize values. After
// the broker has stopped the returned channel is already closed.
func (b *Broker[T]) Subscribe(bufferSize int) (ch <-chan T, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := make(chan T, bufferSize)
	id = b.nextID
	b.nextID++

	if b.closed {
		close(c)
		return c, id
	}
	b.subscribers[id] = c

	log.Debug().
		Str("broker", b.name).
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Msg("new subscriber registered")
	return c, id
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored.
func (b *Broker[T]) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Dropped counts values a full subscriber missed.
func (b *Broker[T]) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Stop closes all subscriber channels. Safe to call more than once.
func (b *Broker[T]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
}
