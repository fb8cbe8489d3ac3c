// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package config

import (
	"time"

	"github.com/Thermoquad/prtbus/pkg/rs485"
)

// Transport returns the medium settings. password is supplied by the
// caller so it never has to live in the file.
func (c *Config) Transport(password string) rs485.TransportConfig {
	return rs485.TransportConfig{
		Device:     c.Line.Serial,
		Baud:       c.Line.Baud,
		TCPAddr:    c.Line.TCP,
		URL:        c.Line.URL,
		Username:   c.Line.Username,
		Password:   password,
		SkipVerify: c.Line.NoSSLVerify,
	}
}

// Engine returns the transaction engine settings for the configured devices.
// Call after Normalize.
func (c *Config) Engine() rs485.Config {
	cfg := rs485.Config{
		Timeout:      time.Duration(c.Line.TimeoutMs) * time.Millisecond,
		MaxAttempts:  c.Line.MaxAttempts,
		RetryDelay:   rs485.DefaultRetryDelay,
		SummaryEvery: c.Line.SummaryEvery,
		Devices:      c.DeviceIDs(),
	}
	if c.Line.RetryDelayMs != nil {
		cfg.RetryDelay = time.Duration(*c.Line.RetryDelayMs) * time.Millisecond
	}
	return cfg
}

// DeviceIDs lists the configured addresses in file order
func (c *Config) DeviceIDs() []uint8 {
	ids := make([]uint8, 0, len(c.Devices))
	for _, d := range c.Devices {
		ids = append(ids, d.ID)
	}
	return ids
}

// DeviceName returns the configured name of id, or "" if unknown
func (c *Config) DeviceName(id uint8) string {
	for _, d := range c.Devices {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}

// EnsureDevice adds id to the device list if it is not configured yet.
// Single-shot commands use it to address a stat given on the command line.
func (c *Config) EnsureDevice(id uint8) {
	for _, d := range c.Devices {
		if d.ID == id {
			return
		}
	}
	c.Devices = append(c.Devices, DeviceConfig{ID: id})
}

// PollInterval returns the poll period
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalS) * time.Second
}
