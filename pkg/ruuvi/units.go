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

package ruuvi

import "math"

const pascalsPerMmHg = 133.3223684

// CelsiusToFahrenheit converts and rounds half away from zero.
func CelsiusToFahrenheit(c float64) int {
	return int(math.Round(c*9/5 + 32))
}

func RoundCelsius(c float64) int {
	return int(math.Round(c))
}

// RoundHumidity rounds to one decimal place.
func RoundHumidity(h float64) float64 {
	return math.Round(h*10) / 10
}

// PascalsToMmHg truncates toward zero.
func PascalsToMmHg(pa float64) int {
	return int(pa / pascalsPerMmHg)
}
