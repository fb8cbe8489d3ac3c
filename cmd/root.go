// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/rs485"
)

var (
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// TCP adaptor flags
	tcpAddr string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Logging flags
	logLevel string
	logJSON  bool

	listPorts bool
)

var rootCmd = &cobra.Command{
	Use:   "prtbus",
	Short: "Heatmiser PRT-N RS485 line tool",
	Long: `prtbus - read, configure and monitor Heatmiser PRT-N thermostats on an RS485 line.

Every transaction holds the line until it succeeds or fails for good. Failed
attempts are retried up to the configured limit and counted per thermostat.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 4800]
  TCP:       --tcp 192.168.1.50:1024   (IP to RS485 adaptor)
  WebSocket: --url ws://host/path [--username user]

Settings can also come from a YAML file (--config). Connection flags override
the file's line section.

For WebSocket authentication, the password is read from the PRTBUS_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listPorts {
			return printSerialPorts(cmd.OutOrStdout(), rs485.ListSerialPorts)
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only, default 4800)")

	// TCP adaptor flags
	rootCmd.PersistentFlags().StringVar(&tcpAddr, "tcp", "", "IP to RS485 adaptor address (host:port)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of console output")

	rootCmd.Flags().BoolVar(&listPorts, "list-ports", false, "List serial ports and exit")
}

// printSerialPorts writes one serial device per line
func printSerialPorts(w io.Writer, list func() ([]string, error)) error {
	ports, err := list()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
