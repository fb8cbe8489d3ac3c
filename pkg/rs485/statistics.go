// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/rs/zerolog"
)

// Counters tracks one operation type of one device
type Counters struct {
	Attempted  uint64
	Soft       uint64
	Hard       uint64
	SoftByKind [heatmiser.NumErrorKinds]uint64
	HardByKind [heatmiser.NumErrorKinds]uint64
}

// SoftPercent is soft errors as a percentage of transactions attempted
func (c Counters) SoftPercent() float64 {
	if c.Attempted == 0 {
		return 0
	}
	return float64(c.Soft) * 100.0 / float64(c.Attempted)
}

// DeviceCounters holds the read and write counters of one thermostat
type DeviceCounters struct {
	Read  Counters
	Write Counters
}

// LineSummary aggregates every transaction on the line
type LineSummary struct {
	Operations uint64
	ByKind     [heatmiser.NumErrorKinds]uint64 // soft and hard, by counted kind
	Soft       uint64
	Hard       uint64
}

// MarshalZerologObject writes the summary as structured log fields
func (l LineSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("total", l.Operations)
	for _, k := range heatmiser.ErrorKinds {
		e.Uint64(strings.ToLower(k.Short()), l.ByKind[k])
	}
	e.Uint64("soft", l.Soft).Uint64("hard", l.Hard)
}

func (l LineSummary) String() string {
	parts := []string{fmt.Sprintf("total=%d", l.Operations)}
	for _, k := range heatmiser.ErrorKinds {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(k.Short()), l.ByKind[k]))
	}
	parts = append(parts, fmt.Sprintf("soft=%d", l.Soft), fmt.Sprintf("hard=%d", l.Hard))
	return strings.Join(parts, " ")
}

// Statistics tracks transaction outcomes per device and for the whole line
type Statistics struct {
	mu        sync.Mutex
	startTime time.Time
	devices   map[uint8]*DeviceCounters
	line      LineSummary
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
		devices:   make(map[uint8]*DeviceCounters),
	}
}

// Record counts one finished transaction and returns the line summary
// including it. Each transaction adds at most one error, by the kind stored
// in the outcome.
func (s *Statistics) Record(addr uint8, op Operation, o Outcome) LineSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, ok := s.devices[addr]
	if !ok {
		dev = &DeviceCounters{}
		s.devices[addr] = dev
	}
	c := &dev.Read
	if op == OpWrite {
		c = &dev.Write
	}

	c.Attempted++
	s.line.Operations++

	switch o.Status {
	case SoftFailure:
		c.Soft++
		c.SoftByKind[o.Kind]++
		s.line.Soft++
		s.line.ByKind[o.Kind]++
	case HardFailure:
		c.Hard++
		c.HardByKind[o.Kind]++
		s.line.Hard++
		s.line.ByKind[o.Kind]++
	}

	return s.line
}

// SummaryFor returns the read stats ("soft% hard") and write stats
// ("count soft hard") of a device
func (s *Statistics) SummaryFor(addr uint8) (read, write string) {
	dev := s.Device(addr)
	read = fmt.Sprintf("%.3f%% %d", dev.Read.SoftPercent(), dev.Read.Hard)
	write = fmt.Sprintf("%d %d %d", dev.Write.Attempted, dev.Write.Soft, dev.Write.Hard)
	return read, write
}

// LineSummary returns a snapshot of the line-wide counters
func (s *Statistics) LineSummary() LineSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line
}

// Device returns a snapshot of one device's counters
func (s *Statistics) Device(addr uint8) DeviceCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dev, ok := s.devices[addr]; ok {
		return *dev
	}
	return DeviceCounters{}
}

// Devices returns the addresses seen so far in ascending order
func (s *Statistics) Devices() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]uint8, 0, len(s.devices))
	for addr := range s.devices {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Snapshot copies every device's counters
func (s *Statistics) Snapshot() map[uint8]DeviceCounters {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint8]DeviceCounters, len(s.devices))
	for addr, dev := range s.devices {
		out[addr] = *dev
	}
	return out
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	line := s.LineSummary()
	elapsed := time.Since(s.startTime)

	result := fmt.Sprintf("=== Line Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Operations:      %8d\n", line.Operations)
	result += fmt.Sprintf("Soft Errors:     %8d\n", line.Soft)
	result += fmt.Sprintf("Hard Errors:     %8d\n", line.Hard)
	for _, k := range heatmiser.ErrorKinds {
		if line.ByKind[k] > 0 {
			result += fmt.Sprintf("  %s:             %5d\n", k.Short(), line.ByKind[k])
		}
	}

	for _, addr := range s.Devices() {
		read, write := s.SummaryFor(addr)
		result += fmt.Sprintf("Stat %2d: read %s  write %s\n", addr, read, write)
	}
	result += "================================\n"

	return result
}
