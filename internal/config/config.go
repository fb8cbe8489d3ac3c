// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package config loads the YAML description of a thermostat line.
package config

type Config struct {
	Line    LineConfig     `yaml:"line"`
	Devices []DeviceConfig `yaml:"devices"`
	Poll    PollConfig     `yaml:"poll"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Log     LogConfig      `yaml:"log"`
}

// ---- LINE ----

// LineConfig selects the medium and tunes the transaction engine.
// Zero timings mean "use the default".
type LineConfig struct {
	Serial      string `yaml:"serial"`
	Baud        int    `yaml:"baud"`
	TCP         string `yaml:"tcp"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`

	TimeoutMs    int    `yaml:"timeout_ms"`
	MaxAttempts  int    `yaml:"max_attempts"`
	RetryDelayMs *int   `yaml:"retry_delay_ms"` // nil => default, 0 => no pause
	SummaryEvery uint64 `yaml:"summary_every"`
}

// ---- DEVICES ----

type DeviceConfig struct {
	ID   uint8  `yaml:"id"`
	Name string `yaml:"name"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalS int `yaml:"interval_s"`
}

// ---- MQTT (optional) ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
}

// Enabled reports whether a broker is configured
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// ---- METRICS (optional) ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}
