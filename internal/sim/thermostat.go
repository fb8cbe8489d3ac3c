// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package sim provides virtual PRT-N thermostats on an in-memory bus.
package sim

import (
	"sync"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Thermostat is one virtual stat holding a DCB image
type Thermostat struct {
	mu   sync.Mutex
	addr uint8
	dcb  []byte
}

// NewThermostat creates a stat at addr with factory-like settings and the
// clock set from now
func NewThermostat(addr uint8, sevenDay bool, now time.Time) *Thermostat {
	p := &heatmiser.ParameterSet{
		Version:         15,
		Model:           3,
		TempFormat:      heatmiser.Celsius,
		SwitchDiff:      1,
		FrostEnable:     1,
		Address:         addr,
		SensorSelection: heatmiser.SensorBuiltIn,
		RateOfChange:    20,
		ProgramMode:     heatmiser.ProgramFiveTwo,
		FrostTemp:       12,
		TargetTemp:      20,
		FloorLimit:      28,
		OnOff:           1,
		RemoteAirRaw:    heatmiser.SensorNotConnected,
		FloorRaw:        heatmiser.SensorNotConnected,
		BuiltInRaw:      180 + uint16(addr),
		Weekday: heatmiser.Schedule{
			{Hour: 7, Minute: 0, Temperature: 21},
			{Hour: 9, Minute: 0, Temperature: 16},
			{Hour: 17, Minute: 0, Temperature: 21},
			{Hour: 22, Minute: 30, Temperature: 16},
		},
		Weekend: heatmiser.Schedule{
			{Hour: 8, Minute: 0, Temperature: 21},
			{Hour: 23, Minute: 0, Temperature: 16},
			{Hour: 24},
			{Hour: 24},
		},
	}
	if sevenDay {
		p.ProgramMode = heatmiser.ProgramSevenDay
		p.HasSevenDay = true
		for day := range p.SevenDay {
			p.SevenDay[day] = p.Weekday
		}
	}

	t := &Thermostat{addr: addr, dcb: heatmiser.EncodeDCB(p)}
	w := heatmiser.EncodeClock(now)
	heatmiser.ApplyWrite(t.dcb, w.Start, w.Payload)
	t.updateHeatState()
	return t
}

// Address returns the bus address
func (t *Thermostat) Address() uint8 {
	return t.addr
}

// Parameters decodes the current DCB image
func (t *Thermostat) Parameters() *heatmiser.ParameterSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, _ := heatmiser.DecodeDCB(t.dcb)
	return p
}

// SetTemperature sets the built-in sensor reading in degrees
func (t *Thermostat) SetTemperature(deg float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, _ := heatmiser.DecodeDCB(t.dcb)
	p.BuiltInRaw = uint16(deg*10 + 0.5)
	t.reencode(p)
}

// SetErrorCode sets the reported error code, 0 clears it
func (t *Thermostat) SetErrorCode(code uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, _ := heatmiser.DecodeDCB(t.dcb)
	p.ErrorCode = code
	t.reencode(p)
}

func (t *Thermostat) reencode(p *heatmiser.ParameterSet) {
	t.dcb = heatmiser.EncodeDCB(p)
	t.updateHeatState()
}

// read returns a copy of the DCB
func (t *Thermostat) read() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, len(t.dcb))
	copy(out, t.dcb)
	return out
}

// write applies a write request and recomputes the relay
func (t *Thermostat) write(start uint16, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	heatmiser.ApplyWrite(t.dcb, start, payload)
	t.updateHeatState()
}

// updateHeatState drives the relay from target and air temperature.
// Caller holds mu.
func (t *Thermostat) updateHeatState() {
	p, err := heatmiser.DecodeDCB(t.dcb)
	if err != nil {
		return
	}
	var heat uint8
	if p.OnOff == 1 && p.RunModeBit == 0 && p.BuiltInTemp < float64(p.TargetTemp) {
		heat = 1
	}
	if heat != p.HeatState {
		p.HeatState = heat
		t.dcb = heatmiser.EncodeDCB(p)
	}
}
