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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		remote string
		want   string
		ok     bool
	}{
		{name: "ipv4 with port", remote: "192.168.1.10:5000", want: "192.168.1.10", ok: true},
		{name: "ipv6 with port", remote: "[::1]:5000", want: "::1", ok: true},
		{name: "bare ipv4", remote: "10.0.0.1", want: "10.0.0.1", ok: true},
		{name: "mapped ipv4", remote: "[::ffff:10.0.0.1]:80", want: "10.0.0.1", ok: true},
		{name: "garbage", remote: "not-an-ip", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			addr, ok := ParseRemoteIP(tt.remote)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, addr.String())
			}
		})
	}
}

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		allowed []string
		want    bool
	}{
		{name: "empty list allows all", allowed: nil, remote: "203.0.113.9:1", want: true},
		{name: "exact address", allowed: []string{"192.168.1.10"}, remote: "192.168.1.10:1", want: true},
		{name: "address with port in list", allowed: []string{"192.168.1.10:7498"}, remote: "192.168.1.10:1", want: true},
		{name: "other address", allowed: []string{"192.168.1.10"}, remote: "192.168.1.11:1", want: false},
		{name: "inside cidr", allowed: []string{"10.0.0.0/8"}, remote: "10.20.30.40:1", want: true},
		{name: "outside cidr", allowed: []string{"10.0.0.0/8"}, remote: "11.0.0.1:1", want: false},
		{name: "unmasked cidr", allowed: []string{"10.1.2.3/16"}, remote: "10.1.9.9:1", want: true},
		{name: "ipv6 loopback", allowed: []string{"::1"}, remote: "[::1]:1", want: true},
		{name: "invalid entries skipped", allowed: []string{"bogus"}, remote: "10.0.0.1:1", want: false},
		{name: "unparseable remote", allowed: []string{"10.0.0.0/8"}, remote: "pipe", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, NewIPFilter(tt.allowed).IsAllowed(tt.remote))
		})
	}
}

func TestHTTPIPFilterMiddleware(t *testing.T) {
	t.Parallel()

	handler := HTTPIPFilterMiddleware(NewIPFilter([]string{"127.0.0.1"}))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/readings", http.NoBody)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readings", http.NoBody)
	req.RemoteAddr = "192.168.1.2:40000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
