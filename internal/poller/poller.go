// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package poller reads every configured thermostat on a clock and keeps the
// last-known state of each.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Devices  []Device
}

// Poller is a clock-driven reader.
type Poller struct {
	cfg    Config
	reader Reader
	logger zerolog.Logger

	mu        sync.RWMutex
	snapshots map[uint8]Snapshot
	sinks     []Sink
}

// New creates a poller with immutable config.
func New(cfg Config, reader Reader, logger zerolog.Logger, sinks ...Sink) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Devices) == 0 {
		return nil, errors.New("poller: at least one device required")
	}

	p := &Poller{
		cfg:       cfg,
		reader:    reader,
		logger:    logger.With().Str("component", "poller").Logger(),
		snapshots: make(map[uint8]Snapshot, len(cfg.Devices)),
		sinks:     sinks,
	}
	for _, d := range cfg.Devices {
		p.snapshots[d.ID] = Snapshot{ID: d.ID, Name: d.Name}
	}
	return p, nil
}

// AddSink registers another snapshot consumer
func (p *Poller) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// PollOnce reads every device once, in configuration order.
// A failed device keeps its previous parameters and does not stop the cycle.
func (p *Poller) PollOnce(ctx context.Context) []Snapshot {
	out := make([]Snapshot, 0, len(p.cfg.Devices))
	for _, d := range p.cfg.Devices {
		if ctx.Err() != nil {
			break
		}
		out = append(out, p.PollDevice(ctx, d.ID))
	}
	return out
}

// PollDevice reads one device and publishes its snapshot
func (p *Poller) PollDevice(ctx context.Context, id uint8) Snapshot {
	params, err := p.reader.ReadDevice(ctx, id)
	now := time.Now()
	read, write := p.reader.StatsFor(id)

	p.mu.Lock()
	snap := p.snapshots[id]
	snap.ID = id
	snap.PolledAt = now
	snap.Err = err
	snap.ReadStats, snap.WriteStats = read, write
	if err == nil {
		snap.Params = params
		snap.UpdatedAt = now
	}
	p.snapshots[id] = snap
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn().Err(err).Uint8("device", id).Bool("stale", snap.Stale()).Msg("Poll failed")
	} else {
		p.logger.Debug().Uint8("device", id).Float64("temp", params.CurrentTemperature()).
			Str("mode", params.Mode().String()).Str("read_stats", read).Msg("Polled")
	}

	for _, s := range sinks {
		s.Publish(snap)
	}
	return snap
}

// Snapshot returns the last-known state of a device
func (p *Poller) Snapshot(id uint8) (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.snapshots[id]
	return s, ok
}

// Snapshots returns every device state in configuration order
func (p *Poller) Snapshots() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Snapshot, 0, len(p.cfg.Devices))
	for _, d := range p.cfg.Devices {
		out = append(out, p.snapshots[d.ID])
	}
	return out
}

// Run polls immediately and then on every tick until ctx is done.
// Cycles never overlap; a slow cycle delays the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}
