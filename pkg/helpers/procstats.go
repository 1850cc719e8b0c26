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

package helpers

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/mackerelio/go-osstat/uptime"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is a small health snapshot logged with the panel heartbeat.
type ProcessStats struct {
	RSS uint64
	// CPUPercent is the average since the process started.
	CPUPercent   float64
	Goroutines   int
	SystemUptime time.Duration
}

// GetProcessStats reads memory and CPU use of the current process and
// host uptime. Fields that cannot be read are left zero and reported in the
// error.
func GetProcessStats() (ProcessStats, error) {
	stats := ProcessStats{Goroutines: runtime.NumGoroutine()}

	//nolint:gosec // pids fit in int32
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats, fmt.Errorf("failed to open own process: %w", err)
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return stats, fmt.Errorf("failed to read memory info: %w", err)
	}
	stats.RSS = mem.RSS

	cpu, err := proc.CPUPercent()
	if err != nil {
		return stats, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	stats.CPUPercent = cpu

	up, err := uptime.Get()
	if err != nil {
		return stats, fmt.Errorf("failed to read system uptime: %w", err)
	}
	stats.SystemUptime = up

	return stats, nil
}
