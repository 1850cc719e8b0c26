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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommandKind identifies how a command is rendered on the wire.
type CommandKind int

const (
	// KindRaw is sent as-is.
	KindRaw CommandKind = iota
	// KindNumeric assigns an unsigned number: path=value
	KindNumeric
	// KindString assigns quoted text: path="text"
	KindString
)

func (k CommandKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Command is one display instruction, built per call and discarded once sent.
type Command struct {
	Path  string
	Text  string
	Kind  CommandKind
	Value uint32
}

func NumericCommand(path string, value uint32) Command {
	return Command{Kind: KindNumeric, Path: path, Value: value}
}

func StringCommand(path, text string) Command {
	return Command{Kind: KindString, Path: path, Text: text}
}

func RawCommand(text string) Command {
	return Command{Kind: KindRaw, Text: text}
}

// Encode renders the command text without the frame terminator.
func (c Command) Encode() string {
	switch c.Kind {
	case KindNumeric:
		return c.Path + "=" + strconv.FormatUint(uint64(c.Value), 10)
	case KindString:
		return c.Path + "=\"" + c.Text + "\""
	default:
		return c.Text
	}
}

var ErrEmptyCommand = errors.New("empty command")

// ParseCommand turns encoded command text back into a Command. Text of the
// form path="..." is a string assignment, path=<uint32> is a numeric
// assignment and anything else is raw.
func ParseCommand(s string) (Command, error) {
	if s == "" {
		return Command{}, ErrEmptyCommand
	}

	path, rhs, ok := strings.Cut(s, "=")
	if !ok || path == "" {
		return RawCommand(s), nil
	}

	if len(rhs) >= 2 && rhs[0] == '"' && rhs[len(rhs)-1] == '"' {
		return StringCommand(path, rhs[1:len(rhs)-1]), nil
	}

	v, err := strconv.ParseUint(rhs, 10, 32)
	if err != nil {
		return RawCommand(s), nil
	}
	return NumericCommand(path, uint32(v)), nil
}

// Writer sends one frame and reports whether it went out.
type Writer interface {
	Write(p []byte) bool
}

// Display builds protocol-correct commands on top of a Writer.
type Display struct {
	w Writer
}

func NewDisplay(w Writer) *Display {
	return &Display{w: w}
}

// Send encodes and writes c.
func (d *Display) Send(c Command) bool {
	return d.w.Write([]byte(c.Encode()))
}

// SetNumeric writes path=value.
func (d *Display) SetNumeric(path string, value uint32) bool {
	return d.Send(NumericCommand(path, value))
}

// SetString writes path="text". Quotes inside text are sent unescaped, the
// protocol has no escape sequence, so text containing a double quote will
// be rejected or misread by the display.
func (d *Display) SetString(path, text string) bool {
	return d.Send(StringCommand(path, text))
}

// SendRaw writes text unchanged.
func (d *Display) SendRaw(text string) bool {
	return d.Send(RawCommand(text))
}

// SendBytes writes p as one frame without encoding it.
func (d *Display) SendBytes(p []byte) bool {
	return d.w.Write(p)
}

// SetClock writes the display RTC: year, month, day, hour, minute and second,
// in that order. It stops at the first failed write and returns false. Values
// already written stay written, so a failure can leave the display clock
// half updated.
func (d *Display) SetClock(t time.Time) bool {
	fields := []struct {
		path  string
		value int
	}{
		{RTCYear, t.Year()},
		{RTCMonth, int(t.Month())},
		{RTCDay, t.Day()},
		{RTCHour, t.Hour()},
		{RTCMinute, t.Minute()},
		{RTCSecond, t.Second()},
	}

	for _, f := range fields {
		//nolint:gosec // calendar fields are small and non-negative
		if !d.SetNumeric(f.path, uint32(f.value)) {
			return false
		}
	}
	return true
}

// SignedValue converts a signed number to the unsigned wire form. The
// display stores numbers as signed 32-bit integers, so the two's complement
// bit pattern reads back as the original negative value.
func SignedValue(v int) uint32 {
	//nolint:gosec // intentional two's complement conversion
	return uint32(int32(v))
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.Encode())
}
