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

// Package cli holds the flags and startup shared by the wxpanel commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/wxpanel/internal/telemetry"
	"github.com/ZaparooProject/wxpanel/pkg/config"
	"github.com/ZaparooProject/wxpanel/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Flags struct {
	Version   *bool
	Debug     *bool
	Daemon    *bool
	ListPorts *bool
	Send      *string
	Scan      *time.Duration
	ConfigDir *string
}

// SetupFlags defines the common flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging for this run",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"log to stderr as well as the log file",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"print candidate display serial ports and exit",
		),
		Send: fs.String(
			"send",
			"",
			"send one command to the display and exit",
		),
		Scan: fs.Duration(
			"scan",
			0,
			"scan for beacons for the given duration, print them and exit",
		),
		ConfigDir: fs.String(
			"config-dir",
			"",
			"directory holding "+config.CfgFile,
		),
	}
}

// Pre parses args and handles flags that need no config. It returns true
// when the program should exit.
func (f *Flags) Pre(fs *flag.FlagSet, args []string, out io.Writer) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "wxpanel v%s\n", config.AppVersion)
		return true, nil
	}

	if *f.ListPorts {
		return true, listPorts(out)
	}

	return false, nil
}

// Setup creates directories, starts logging, loads the config and starts
// opt-in error reporting.
//
//nolint:gocritic // defaults copied so callers can tweak their own copy
func Setup(f *Flags, defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	configDir := *f.ConfigDir
	if configDir == "" {
		configDir = helpers.ConfigDir()
	}
	logDir := helpers.LogDir()

	if err := helpers.EnsureDirectories(configDir, logDir); err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	if err := helpers.InitLogging(logDir, writers...); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), configDir, defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if *f.Debug {
		cfg.ForceDebugLogging()
	}
	config.ApplyLogLevel(cfg.DebugLogging())

	if err := telemetry.Init(
		cfg.ErrorReporting(),
		cfg.SentryDSN(),
		cfg.DeviceID(),
		config.AppVersion,
	); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// Post handles the one-shot flags that need the config. It returns true
// when one of them ran and the program should exit.
func (f *Flags) Post(ctx context.Context, cfg *config.Instance, out io.Writer) (bool, error) {
	switch {
	case *f.Send != "":
		return true, sendCommand(cfg, *f.Send, nil, out)
	case *f.Scan > 0:
		return true, scanBeacons(ctx, cfg, *f.Scan, nil, out)
	default:
		return false, nil
	}
}
