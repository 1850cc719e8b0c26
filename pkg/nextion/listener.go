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

package nextion

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Frame is one event received from the display, terminator bytes included.
type Frame []byte

// Code returns the event code, the first byte of the frame.
func (f Frame) Code() byte {
	if len(f) == 0 {
		return 0
	}
	return f[0]
}

// Event names the frame's code and reports whether it is one the panel
// handles.
func (f Frame) Event() (string, bool) {
	name, ok := eventNames[f.Code()]
	return name, ok
}

// Hex renders the frame as space separated upper case hex pairs.
func (f Frame) Hex() string {
	return strings.ToUpper(strings.Join(hexPairs(f), " "))
}

func hexPairs(b []byte) []string {
	out := make([]string, len(b))
	for i := range b {
		out[i] = hex.EncodeToString(b[i : i+1])
	}
	return out
}

// Receiver is the read side of a Link.
type Receiver interface {
	Receive(buf []byte) int
	Flush() bool
}

// Listener polls the display for events and publishes whole frames.
type Listener struct {
	rx       Receiver
	clock    clockwork.Clock
	frames   chan Frame
	interval time.Duration
	bufSize  int
}

const listenInterval = 100 * time.Millisecond

func NewListener(rx Receiver) *Listener {
	return &Listener{
		rx:       rx,
		clock:    clockwork.NewRealClock(),
		frames:   make(chan Frame, 16),
		interval: listenInterval,
		bufSize:  EventBufferSize,
	}
}

// Frames returns the channel events are published on. It is closed when Run
// returns.
func (l *Listener) Frames() <-chan Frame {
	return l.frames
}

// Poll performs one receive. Noise is flushed and reported as nil.
func (l *Listener) Poll() Frame {
	buf := make([]byte, l.bufSize)
	n := l.rx.Receive(buf)
	if n == 0 {
		return nil
	}
	if n <= NoiseLength {
		log.Debug().Int("bytes", n).Msg("display line noise, flushing")
		l.rx.Flush()
		return nil
	}
	return Frame(buf[:n])
}

// Run polls until ctx is cancelled. Frames are dropped when nobody is
// reading the channel fast enough.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.frames)

	for {
		if f := l.Poll(); f != nil {
			log.Debug().Str("frame", f.Hex()).Msg("display event received")
			select {
			case l.frames <- f:
			default:
				log.Warn().Str("frame", f.Hex()).Msg("display event dropped, consumer busy")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(l.interval):
		}
	}
}
