// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package publish

import (
	"time"

	"github.com/Thermoquad/prtbus/internal/poller"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// State is the retained JSON document published per thermostat
type State struct {
	ID          uint8    `json:"id"`
	Name        string   `json:"name"`
	Online      bool     `json:"online"`
	Stale       bool     `json:"stale,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Target      *uint8   `json:"target_temp,omitempty"`
	Frost       *uint8   `json:"frost_temp,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Heating     *bool    `json:"heating,omitempty"`
	KeyLock     *bool    `json:"key_lock,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Clock       string   `json:"clock,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	ReadStats   string   `json:"read_stats"`
	WriteStats  string   `json:"write_stats"`
	Error       string   `json:"error,omitempty"`
}

// StateFromSnapshot flattens a snapshot for publishing.
// Parameter fields are omitted until the first successful read.
func StateFromSnapshot(s poller.Snapshot) State {
	st := State{
		ID:         s.ID,
		Name:       s.Name,
		Online:     s.Online(),
		Stale:      s.Stale(),
		ReadStats:  s.ReadStats,
		WriteStats: s.WriteStats,
	}
	if s.Err != nil {
		st.Error = s.Err.Error()
	}
	if s.Params == nil {
		return st
	}

	p := s.Params
	temp := p.CurrentTemperature()
	heating := p.Heating()
	keyLock := p.KeyLock == 1
	target, frost := p.TargetTemp, p.FrostTemp
	st.Temperature = &temp
	st.Target = &target
	st.Frost = &frost
	st.Mode = p.Mode().String()
	st.Heating = &heating
	st.KeyLock = &keyLock
	st.Unit = p.Unit()
	st.Clock = heatmiser.FormatClock(p.Clock)
	st.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	return st
}
