// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/prtbus/pkg/rs485"
)

const sampleYAML = `
line:
  tcp: 192.168.1.50:4001
  timeout_ms: 1000
  retry_delay_ms: 0
devices:
  - id: 1
    name: Kitchen
  - id: 4
  - id: 7
    name: Bathroom
poll:
  interval_s: 30
mqtt:
  broker: tcp://localhost:1883
  topic: home/heating/
metrics:
  listen: ":9485"
`

// helper to build a valid config quickly
func validConfig() *Config {
	return &Config{
		Line:    LineConfig{Serial: "/dev/ttyUSB0"},
		Devices: []DeviceConfig{{ID: 1, Name: "Hall"}, {ID: 2}},
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	Normalize(cfg)

	if cfg.Line.TCP != "192.168.1.50:4001" || len(cfg.Devices) != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Devices[1].Name != "Stat 4" {
		t.Errorf("default name = %q", cfg.Devices[1].Name)
	}
	if cfg.MQTT.Topic != "home/heating" || cfg.MQTT.ClientID != DefaultMQTTClientID {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}

	eng := cfg.Engine()
	if eng.Timeout != time.Second || eng.MaxAttempts != rs485.DefaultMaxAttempts || eng.RetryDelay != 0 {
		t.Errorf("engine = %+v", eng)
	}
	if eng.SummaryEvery != rs485.DefaultSummaryEvery {
		t.Errorf("SummaryEvery = %d", eng.SummaryEvery)
	}
	if got := cfg.DeviceIDs(); len(got) != 3 || got[2] != 7 {
		t.Errorf("DeviceIDs() = %v", got)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Errorf("PollInterval() = %v", cfg.PollInterval())
	}
	if cfg.DeviceName(7) != "Bathroom" || cfg.DeviceName(9) != "" {
		t.Error("DeviceName lookup wrong")
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("line:\n  serail: /dev/ttyUSB0\n"))
	if err == nil {
		t.Fatal("misspelt key should be rejected")
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil || cfg == nil {
		t.Fatalf("Parse(nil) = %v, %v", cfg, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prtbus.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Metrics.Listen != ":9485" {
		t.Errorf("metrics.listen = %q", cfg.Metrics.Listen)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if cfg, err := Load(""); err != nil || cfg == nil {
		t.Errorf("Load(\"\") = %v, %v", cfg, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no medium", func(c *Config) { c.Line.Serial = "" }, "exactly one"},
		{"two media", func(c *Config) { c.Line.TCP = "host:1" }, "exactly one"},
		{"bad url scheme", func(c *Config) { c.Line.Serial = ""; c.Line.URL = "http://bridge" }, "ws://"},
		{"timeout too small", func(c *Config) { c.Line.TimeoutMs = 50 }, "timeout_ms"},
		{"timeout too large", func(c *Config) { c.Line.TimeoutMs = 6000 }, "timeout_ms"},
		{"attempts", func(c *Config) { c.Line.MaxAttempts = 11 }, "max_attempts"},
		{"negative delay", func(c *Config) { d := -1; c.Line.RetryDelayMs = &d }, "retry_delay_ms"},
		{"device zero", func(c *Config) { c.Devices[0].ID = 0 }, "out of range"},
		{"device 33", func(c *Config) { c.Devices[0].ID = 33 }, "out of range"},
		{"duplicate id", func(c *Config) { c.Devices[1].ID = 1 }, "duplicate"},
		{"duplicate name", func(c *Config) { c.Devices[1].Name = "Hall" }, "used by devices"},
		{"bad broker", func(c *Config) { c.MQTT.Broker = "localhost" }, "mqtt.broker"},
		{"negative poll", func(c *Config) { c.Poll.IntervalS = -5 }, "interval_s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := validConfig()
	_ = Validate(cfg)
	if cfg.Line.Baud != 0 || cfg.Devices[1].Name != "" {
		t.Error("Validate mutated the config")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := validConfig()
	Normalize(cfg)

	if cfg.Line.Baud != rs485.DefaultBaudRate {
		t.Errorf("baud = %d", cfg.Line.Baud)
	}
	if cfg.Line.TimeoutMs != 800 || cfg.Line.MaxAttempts != 5 || *cfg.Line.RetryDelayMs != 100 {
		t.Errorf("line = %+v", cfg.Line)
	}
	if cfg.Poll.IntervalS != DefaultPollIntervalS || cfg.Log.Level != DefaultLogLevel {
		t.Errorf("poll/log = %+v %+v", cfg.Poll, cfg.Log)
	}
	if cfg.MQTT.Topic != "" {
		t.Error("MQTT defaults should only apply when a broker is set")
	}

	Normalize(nil)
}

func TestEnsureDevice(t *testing.T) {
	cfg := validConfig()
	cfg.EnsureDevice(2)
	cfg.EnsureDevice(9)
	if got := cfg.DeviceIDs(); len(got) != 3 || got[2] != 9 {
		t.Errorf("DeviceIDs() = %v", got)
	}
}

func TestTransport(t *testing.T) {
	cfg := validConfig()
	cfg.Line.Username = "admin"
	tc := cfg.Transport("pw")
	if tc.Device != "/dev/ttyUSB0" || tc.Username != "admin" || tc.Password != "pw" {
		t.Errorf("Transport() = %+v", tc)
	}
}
