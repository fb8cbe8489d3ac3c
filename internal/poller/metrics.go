// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package poller

import (
	"strconv"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/prometheus/client_golang/prometheus"
)

// GaugeSink exports the latest thermostat readings as Prometheus gauges
type GaugeSink struct {
	gauges map[string]*prometheus.GaugeVec
}

var gaugeHelp = map[string]string{
	"temperature_celsius":        "Temperature at the selected sensor.",
	"target_temperature_celsius": "Set point.",
	"frost_temperature_celsius":  "Frost protect set point.",
	"floor_temperature_celsius":  "Floor probe temperature.",
	"heating":                    "1 while the output relay is on.",
	"frost_protect":              "1 while the stat is in frost protect (mode off).",
	"up":                         "1 if the last read succeeded.",
	"last_success_timestamp":     "Unix time of the last successful read.",
}

// NewGaugeSink creates the gauges and registers them with reg
func NewGaugeSink(reg prometheus.Registerer) *GaugeSink {
	g := &GaugeSink{gauges: make(map[string]*prometheus.GaugeVec, len(gaugeHelp))}
	for name, help := range gaugeHelp {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "prtbus",
			Subsystem: "stat",
			Name:      name,
			Help:      help,
		}, []string{"device", "name"})
		reg.MustRegister(gv)
		g.gauges[name] = gv
	}
	return g
}

// Publish implements Sink
func (g *GaugeSink) Publish(s Snapshot) {
	labels := prometheus.Labels{"device": strconv.Itoa(int(s.ID)), "name": s.Name}

	g.set("up", labels, boolGauge(s.Online()))
	if s.Params == nil {
		return
	}
	if !s.UpdatedAt.IsZero() {
		g.set("last_success_timestamp", labels, float64(s.UpdatedAt.Unix()))
	}

	p := s.Params
	g.set("temperature_celsius", labels, celsius(p, p.CurrentTemperature()))
	g.set("target_temperature_celsius", labels, celsius(p, float64(p.TargetTemp)))
	g.set("frost_temperature_celsius", labels, celsius(p, float64(p.FrostTemp)))
	if p.FloorRaw != heatmiser.SensorNotConnected {
		g.set("floor_temperature_celsius", labels, celsius(p, p.FloorTemp))
	}
	g.set("heating", labels, boolGauge(p.Heating()))
	g.set("frost_protect", labels, boolGauge(p.Mode() == heatmiser.ModeOff))
}

func (g *GaugeSink) set(name string, labels prometheus.Labels, v float64) {
	g.gauges[name].With(labels).Set(v)
}

// celsius converts a reading from the stat's display unit
func celsius(p *heatmiser.ParameterSet, v float64) float64 {
	if p.TempFormat == heatmiser.Fahrenheit {
		return (v - 32) * 5 / 9
	}
	return v
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
