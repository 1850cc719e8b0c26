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

package api

import (
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/nextion"
	"github.com/ZaparooProject/wxpanel/pkg/ruuvi"
	"github.com/ZaparooProject/wxpanel/pkg/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ScanState     string `json:"scan_state"`
	Dropped       uint64 `json:"dropped_advertisements"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Beacons       int    `json:"beacons"`
	Stale         int    `json:"stale_beacons"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	maxAge := s.settings.StaleAfter()

	resp := HealthResponse{
		Status:        "ok",
		Version:       config.AppVersion,
		ScanState:     s.scan.State().String(),
		Dropped:       s.scan.Dropped(),
		UptimeSeconds: int64(now.Sub(s.started).Seconds()),
	}
	for _, r := range s.readings.Snapshot() {
		resp.Beacons++
		if r.Stale(s.readings.Now(), maxAge) {
			resp.Stale++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReadings(w http.ResponseWriter, _ *http.Request) {
	now := s.readings.Now()
	maxAge := s.settings.StaleAfter()

	snapshot := s.readings.Snapshot()
	out := make([]ruuvi.Summary, 0, len(snapshot))
	for _, r := range snapshot {
		out = append(out, r.Summary(now, maxAge))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reading, ok := s.readings.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown beacon: "+name)
		return
	}
	writeJSON(w, http.StatusOK, reading.Summary(s.readings.Now(), s.settings.StaleAfter()))
}

// DisplayCommandParams selects one of three forms: an assignment to path
// with either value or text, a raw command string, or raw hex bytes.
type DisplayCommandParams struct {
	Value *int64  `json:"value,omitempty" validate:"omitempty,gte=-2147483648,lte=4294967295"`
	Text  *string `json:"text,omitempty" validate:"omitempty,command"`
	Path  string  `json:"path,omitempty" validate:"omitempty,objpath"`
	Raw   string  `json:"raw,omitempty" validate:"omitempty,command"`
	Hex   string  `json:"hex,omitempty" validate:"omitempty,hexdata"`
}

var (
	errOneForm       = errors.New("exactly one of path, raw or hex is required")
	errOneValue      = errors.New("path requires exactly one of value or text")
	errTerminatorHex = errors.New("hex must not contain the ff terminator byte")
	errQuotedText    = errors.New("text must not contain a double quote")
)

// Command converts validated params into the bytes to send.
func (p *DisplayCommandParams) Command() ([]byte, string, error) {
	forms := 0
	for _, set := range []bool{p.Path != "", p.Raw != "", p.Hex != ""} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, "", errOneForm
	}

	switch {
	case p.Raw != "":
		cmd := nextion.RawCommand(p.Raw)
		return []byte(cmd.Encode()), cmd.String(), nil
	case p.Hex != "":
		b, err := hex.DecodeString(strings.ReplaceAll(p.Hex, " ", ""))
		if err != nil {
			return nil, "", err
		}
		for _, c := range b {
			if c == nextion.Terminator {
				return nil, "", errTerminatorHex
			}
		}
		return b, "hex(" + hex.EncodeToString(b) + ")", nil
	}

	if (p.Value == nil) == (p.Text == nil) {
		return nil, "", errOneValue
	}
	var cmd nextion.Command
	if p.Value != nil {
		cmd = nextion.NumericCommand(p.Path, nextion.SignedValue(int(*p.Value)))
	} else {
		if strings.ContainsRune(*p.Text, '"') {
			return nil, "", errQuotedText
		}
		cmd = nextion.StringCommand(p.Path, *p.Text)
	}
	return []byte(cmd.Encode()), cmd.String(), nil
}

type DisplayCommandResponse struct {
	Command string `json:"command"`
	Sent    bool   `json:"sent"`
}

func (s *Server) handleDisplayCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var params DisplayCommandParams
	if err := validation.ValidateAndUnmarshal(body, &params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, desc, err := params.Command()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sent := s.display.SendBytes(frame)
	log.Info().Str("command", desc).Bool("sent", sent).Msg("display command from api")

	status := http.StatusOK
	if !sent {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, DisplayCommandResponse{Command: desc, Sent: sent})
}
