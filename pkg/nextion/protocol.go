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

// Package nextion drives a Nextion-style HMI display over a serial line.
//
// Every command is ASCII text followed by three 0xFF terminator bytes. The
// display answers with events framed the same way.
package nextion

import "time"

// Terminator is the byte repeated three times at the end of every frame.
const Terminator byte = 0xFF

// TerminatorCount is the number of Terminator bytes that close a frame.
const TerminatorCount = 3

// Display commands
const (
	// CmdReset reboots the display firmware.
	CmdReset = "rest"

	// RTC objects, written in this order when setting the clock.
	RTCYear   = "rtc0"
	RTCMonth  = "rtc1"
	RTCDay    = "rtc2"
	RTCHour   = "rtc3"
	RTCMinute = "rtc4"
	RTCSecond = "rtc5"
)

// Communication settings
const (
	DefaultBaudRate = 115200

	// WriteTimeout bounds how long a writer waits for the write lock.
	WriteTimeout = 100 * time.Millisecond
	// ReadTimeout bounds how long a reader waits for the read lock.
	ReadTimeout = 100 * time.Millisecond
	// FlushTimeout bounds how long Flush waits for the read lock.
	FlushTimeout = 400 * time.Millisecond
	// ReadWindow bounds how long a single receive or flush keeps reading.
	ReadWindow = 400 * time.Millisecond

	// SettleDelay is the pause after opening the port before the first flush.
	SettleDelay = 400 * time.Millisecond
	// ResetDelay is the pause between the startup flush and the reset command.
	ResetDelay = 100 * time.Millisecond

	// pollTimeout is the port read timeout. A read that returns no bytes
	// within it means no input is available.
	pollTimeout = 10 * time.Millisecond
)

// NoiseLength is the largest receive result treated as line noise. Anything
// this short should be flushed rather than interpreted.
const NoiseLength = 3

// EventBufferSize is the receive buffer used by the event listener.
const EventBufferSize = 48

// Event codes the display sends unprompted. EventCustom is what the panel's
// own printh scripts use.
const (
	EventTouch      byte = 0x65
	EventPageID     byte = 0x66
	EventTouchXY    byte = 0x67
	EventSleepTouch byte = 0x68
	EventString     byte = 0x70
	EventNumeric    byte = 0x71
	EventAutoSleep  byte = 0x86
	EventAutoWake   byte = 0x87
	EventCustom     byte = 0xAA
)

var eventNames = map[byte]string{
	EventTouch:      "touch",
	EventPageID:     "page",
	EventTouchXY:    "touch_xy",
	EventSleepTouch: "sleep_touch",
	EventString:     "string",
	EventNumeric:    "numeric",
	EventAutoSleep:  "sleep",
	EventAutoWake:   "wake",
	EventCustom:     "custom",
}
