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
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

var ErrNoSerialDevice = errors.New("no serial devices found")

type serialDevice struct {
	Vid string
	Pid string
}

// bridgeDevices are USB serial adapters commonly used to wire up an HMI
// display. Ports behind them are tried first.
var bridgeDevices = []serialDevice{
	// WCH CH340/CH341
	{Vid: "1a86", Pid: "7523"},
	{Vid: "1a86", Pid: "5523"},
	// Silicon Labs CP210x
	{Vid: "10c4", Pid: "ea60"},
	// FTDI FT232R, FT231X
	{Vid: "0403", Pid: "6001"},
	{Vid: "0403", Pid: "6015"},
	// Prolific PL2303
	{Vid: "067b", Pid: "2303"},
}

// linuxPrefixes are /dev entries considered serial ports. ttyAMA and
// serial0 cover on-board UARTs on single board computers.
var linuxPrefixes = []string{"ttyUSB", "ttyACM", "ttyAMA", "serial"}

// usbIDs asks udev for the vendor and product id of a device.
var usbIDs = func(path string) (vid, pid string) {
	if _, err := os.Stat("/usr/bin/udevadm"); err != nil {
		return "", ""
	}

	// Validate device path to prevent command injection
	if !strings.HasPrefix(path, "/dev/") {
		log.Error().Str("path", path).Msg("invalid device path")
		return "", ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:gosec // Safe: path validated to start with /dev/, udevadm uses absolute path
	cmd := exec.CommandContext(ctx, "/usr/bin/udevadm", "info", "--name="+path)
	out, err := cmd.Output()
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("udevadm failed")
		return "", ""
	}

	return parseUdevIDs(string(out))
}

func parseUdevIDs(out string) (vid, pid string) {
	for line := range strings.SplitSeq(out, "\n") {
		if v, ok := strings.CutPrefix(line, "E: ID_VENDOR_ID="); ok {
			vid = strings.ToLower(strings.TrimSpace(v))
		} else if p, ok := strings.CutPrefix(line, "E: ID_MODEL_ID="); ok {
			pid = strings.ToLower(strings.TrimSpace(p))
		}
	}
	return vid, pid
}

func isBridgeDevice(vid, pid string) bool {
	if vid == "" || pid == "" {
		return false
	}
	for _, d := range bridgeDevices {
		if vid == d.Vid && pid == d.Pid {
			return true
		}
	}
	return false
}

// rankSerialDevices moves known USB bridges to the front, keeping the
// order of everything else.
func rankSerialDevices(paths []string, ids func(string) (string, string)) []string {
	ranked := make([]string, 0, len(paths))
	var rest []string
	for _, p := range paths {
		if isBridgeDevice(ids(p)) {
			ranked = append(ranked, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(ranked, rest...)
}

func filterLinuxDevices(names []string) []string {
	devices := make([]string, 0, len(names))
	for _, name := range names {
		for _, prefix := range linuxPrefixes {
			if strings.HasPrefix(name, prefix) {
				devices = append(devices, filepath.Join("/dev", name))
				break
			}
		}
	}
	slices.Sort(devices)
	return devices
}

func getLinuxList() ([]string, error) {
	path := "/dev"

	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read /dev directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}

	return rankSerialDevices(filterLinuxDevices(names), usbIDs), nil
}

// GetSerialDeviceList returns candidate serial ports for the display,
// most likely first.
func GetSerialDeviceList() ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		return getLinuxList()
	case "darwin":
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list on darwin: %w", err)
		}
		return filterPrefixed(ports, "/dev/tty.usbserial", "/dev/tty.wchusbserial", "/dev/tty.SLAB"), nil
	case "windows":
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list on windows: %w", err)
		}
		return filterPrefixed(ports, "COM"), nil
	default:
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", err)
		}
		return ports, nil
	}
}

func filterPrefixed(ports []string, prefixes ...string) []string {
	var devices []string
	for _, p := range ports {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				devices = append(devices, p)
				break
			}
		}
	}
	return devices
}

// FindDisplayPort returns the first candidate serial port.
func FindDisplayPort() (string, error) {
	devices, err := GetSerialDeviceList()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", ErrNoSerialDevice
	}
	log.Info().Strs("candidates", devices).Msg("auto-detected display serial port")
	return devices[0], nil
}
