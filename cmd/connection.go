// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Thermoquad/prtbus/internal/config"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/Thermoquad/prtbus/pkg/rs485"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("PRTBUS_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// loadConfig reads the config file and applies the connection flags.
// A connection flag replaces the file's medium entirely.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	l := &cfg.Line
	if portName != "" || tcpAddr != "" || wsURL != "" {
		l.Serial, l.TCP, l.URL = portName, tcpAddr, wsURL
	}
	if baudRate != 0 {
		l.Baud = baudRate
	}
	if wsUsername != "" {
		l.Username = wsUsername
	}
	if wsNoSSLVerify {
		l.NoSSLVerify = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logJSON {
		cfg.Log.JSON = true
	}
}

// openLine opens the configured medium and wraps it in a transaction engine
func openLine(cfg *config.Config, logger zerolog.Logger) (*rs485.Line, string, error) {
	password := ""
	if cfg.Line.URL != "" && cfg.Line.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, "", err
		}
	}

	port, err := rs485.Open(cfg.Transport(password), logger)
	if err != nil {
		return nil, "", err
	}

	line, err := rs485.NewLine(port, cfg.Engine(), rs485.WithLogger(logger))
	if err != nil {
		port.Close()
		return nil, "", err
	}
	return line, port.String(), nil
}

// connect loads the configuration, makes sure addr is on the line when
// given, and opens the line
func connect(addrs ...uint8) (*config.Config, *rs485.Line, string, zerolog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, "", zerolog.Nop(), err
	}
	for _, addr := range addrs {
		cfg.EnsureDevice(addr)
	}
	config.Normalize(cfg)

	logger := newLogger(cfg.Log.Level, cfg.Log.JSON)
	line, connInfo, err := openLine(cfg, logger)
	if err != nil {
		return nil, nil, "", logger, err
	}
	return cfg, line, connInfo, logger, nil
}

// parseAddress parses a thermostat address argument
func parseAddress(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || !heatmiser.ValidAddress(uint8(n)) {
		return 0, fmt.Errorf("invalid thermostat address %q (valid %d-%d)", s, heatmiser.MinAddress, heatmiser.MaxAddress)
	}
	return uint8(n), nil
}
