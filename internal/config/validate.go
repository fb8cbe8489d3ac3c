// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net/url"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Engine limits accepted from configuration
const (
	MinTimeoutMs   = 100
	MaxTimeoutMs   = 5000
	MaxAttemptsCap = 10
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := ValidateLine(cfg.Line); err != nil {
		return err
	}
	if err := ValidateDevices(cfg.Devices); err != nil {
		return err
	}

	if cfg.Poll.IntervalS < 0 {
		return fmt.Errorf("poll.interval_s must not be negative (got %d)", cfg.Poll.IntervalS)
	}

	if cfg.MQTT.Enabled() {
		u, err := url.Parse(cfg.MQTT.Broker)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("mqtt.broker %q must be a URL like tcp://host:1883", cfg.MQTT.Broker)
		}
	}

	return nil
}

// ValidateLine checks the medium selection and engine timings
func ValidateLine(l LineConfig) error {
	// ------------------------------------------------------------
	// MEDIUM: exactly one of serial, tcp, url
	// ------------------------------------------------------------

	media := 0
	for _, m := range []string{l.Serial, l.TCP, l.URL} {
		if m != "" {
			media++
		}
	}
	if media != 1 {
		return fmt.Errorf("line: exactly one of serial, tcp or url must be set (got %d)", media)
	}

	if l.URL != "" {
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("line.url %q must use ws:// or wss://", l.URL)
		}
	}
	if l.Baud < 0 {
		return fmt.Errorf("line.baud must not be negative (got %d)", l.Baud)
	}

	// ------------------------------------------------------------
	// ENGINE TIMINGS (0 = default)
	// ------------------------------------------------------------

	if l.TimeoutMs != 0 && (l.TimeoutMs < MinTimeoutMs || l.TimeoutMs > MaxTimeoutMs) {
		return fmt.Errorf("line.timeout_ms %d out of range %d-%d", l.TimeoutMs, MinTimeoutMs, MaxTimeoutMs)
	}
	if l.MaxAttempts < 0 || l.MaxAttempts > MaxAttemptsCap {
		return fmt.Errorf("line.max_attempts %d out of range 1-%d", l.MaxAttempts, MaxAttemptsCap)
	}
	if l.RetryDelayMs != nil && *l.RetryDelayMs < 0 {
		return fmt.Errorf("line.retry_delay_ms must not be negative (got %d)", *l.RetryDelayMs)
	}

	return nil
}

// ValidateDevices checks addresses and names for collisions
func ValidateDevices(devices []DeviceConfig) error {
	ids := make(map[uint8]bool, len(devices))
	names := make(map[string]uint8, len(devices))

	for _, d := range devices {
		if !heatmiser.ValidAddress(d.ID) {
			return fmt.Errorf("device %d: id out of range %d-%d", d.ID, heatmiser.MinAddress, heatmiser.MaxAddress)
		}
		if ids[d.ID] {
			return fmt.Errorf("device %d: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if d.Name == "" {
			continue
		}
		if prev, exists := names[d.Name]; exists {
			return fmt.Errorf("device name %q used by devices %d and %d", d.Name, prev, d.ID)
		}
		names[d.Name] = d.ID
	}

	return nil
}
