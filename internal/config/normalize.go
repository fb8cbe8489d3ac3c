// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/prtbus/pkg/rs485"
)

// Defaults applied by Normalize
const (
	DefaultPollIntervalS = 60
	DefaultMQTTTopic     = "heatmiser"
	DefaultMQTTClientID  = "prtbus"
	DefaultLogLevel      = "info"
)

// Normalize applies defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	l := &cfg.Line
	if l.Serial != "" && l.Baud == 0 {
		l.Baud = rs485.DefaultBaudRate
	}
	if l.TimeoutMs == 0 {
		l.TimeoutMs = int(rs485.DefaultTimeout.Milliseconds())
	}
	if l.MaxAttempts == 0 {
		l.MaxAttempts = rs485.DefaultMaxAttempts
	}
	if l.RetryDelayMs == nil {
		ms := int(rs485.DefaultRetryDelay.Milliseconds())
		l.RetryDelayMs = &ms
	}
	if l.SummaryEvery == 0 {
		l.SummaryEvery = rs485.DefaultSummaryEvery
	}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if d.Name == "" {
			d.Name = fmt.Sprintf("Stat %d", d.ID)
		}
	}

	if cfg.Poll.IntervalS == 0 {
		cfg.Poll.IntervalS = DefaultPollIntervalS
	}

	if cfg.MQTT.Enabled() {
		cfg.MQTT.Topic = strings.TrimSuffix(cfg.MQTT.Topic, "/")
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = DefaultMQTTTopic
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = DefaultMQTTClientID
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
