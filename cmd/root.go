// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/config"
	"github.com/kocinski15/son1config/pkg/trafficlog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Serial connection flags
	portName   string
	baudRate   int
	parityName string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Tool flags
	configPath  string
	catalogPath string
	pacingMs    int
	logFile     string
)

// cfg is the effective configuration, set before any subcommand runs
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "son1config",
	Short: "Addressed serial bus command tool",
	Long: `son1config - send catalog commands to devices on a shared serial bus.

Commands are loaded from a catalog file (JSON, YAML or CBOR). Addressable
commands carry a 4-bit device address (0x0-0xF) and are sent once per
selected address, in ascending order, 100 ms apart. Replies are shown as a
hex dump or as text depending on the command.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600] [--parity even]
  WebSocket: --url ws://host/path [--username user]

Settings are read from son1config.yaml (or --config), then SON1_* environment
variables, then flags. For WebSocket authentication the password is read from
the SON1_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVar(&parityName, "parity", "even", "Parity: none, even, odd, mark, space (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Tool flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default son1config.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "commands.json", "Command catalog file (.json, .yaml, .cbor)")
	rootCmd.PersistentFlags().IntVar(&pacingMs, "pacing", 100, "Delay between addressed frames in milliseconds")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write TX/RX traffic to this file (rotated)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(loaded, cmd.Flags())
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg = loaded
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(c *config.Config, flags *pflag.FlagSet) {
	if flags.Changed("port") {
		c.Serial.Port = portName
	}
	if flags.Changed("baud") {
		c.Serial.Baud = baudRate
	}
	if flags.Changed("parity") {
		c.Serial.Parity = parityName
	}
	if flags.Changed("url") {
		c.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		c.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("catalog") {
		c.Catalog = catalogPath
	}
	if flags.Changed("pacing") {
		c.PacingMs = pacingMs
	}
	if flags.Changed("log-file") {
		c.Log.File = logFile
	}
}

// loadCatalog reads the configured command catalog
func loadCatalog() (*busproto.Catalog, error) {
	cat, err := busproto.LoadFile(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("catalog %s has no commands", cfg.Catalog)
	}
	return cat, nil
}

// newSession loads the catalog and wires the scheduler to the traffic log
func newSession(tlog *trafficlog.Logger) (*busproto.Session, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	sched := busproto.NewScheduler(
		busproto.WithPacing(cfg.Pacing()),
		busproto.WithFrameCallback(tlog.Frame),
	)
	return busproto.NewSession(cat, sched, busproto.NewHistory(busproto.DefaultHistorySize)), nil
}

func formatTime(t time.Time) string {
	return t.Format("15:04:05.000")
}
