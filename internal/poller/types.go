// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package poller

import (
	"context"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Reader abstracts the line operations needed by the poller.
type Reader interface {
	ReadDevice(ctx context.Context, addr uint8) (*heatmiser.ParameterSet, error)
	StatsFor(addr uint8) (read, write string)
}

// Device is one thermostat to poll
type Device struct {
	ID   uint8
	Name string
}

// Snapshot is the last-known state of one thermostat.
// Params survive failed reads; Err describes the most recent read.
type Snapshot struct {
	ID   uint8
	Name string

	Params    *heatmiser.ParameterSet // nil until the first successful read
	UpdatedAt time.Time               // last successful read
	PolledAt  time.Time               // last read attempt
	Err       error                   // nil if the last read succeeded

	ReadStats  string
	WriteStats string
}

// Online reports whether the last read succeeded
func (s Snapshot) Online() bool {
	return s.Err == nil && s.Params != nil
}

// Stale reports whether Params predates the last read attempt
func (s Snapshot) Stale() bool {
	return s.Params != nil && s.Err != nil
}

// Sink receives every snapshot produced by a poll
type Sink interface {
	Publish(s Snapshot)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Snapshot)

func (f SinkFunc) Publish(s Snapshot) { f(s) }
