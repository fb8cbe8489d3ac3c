// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package poller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

// fakeReader returns scripted results per device
type fakeReader struct {
	mu    sync.Mutex
	fail  map[uint8]bool
	calls []uint8
}

func (f *fakeReader) ReadDevice(_ context.Context, addr uint8) (*heatmiser.ParameterSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addr)
	if f.fail[addr] {
		return nil, errors.New("no data")
	}
	return &heatmiser.ParameterSet{
		Address:     addr,
		TargetTemp:  20 + addr,
		FrostTemp:   12,
		BuiltInTemp: 19.5,
		HeatState:   1,
		FloorRaw:    heatmiser.SensorNotConnected,
	}, nil
}

func (f *fakeReader) StatsFor(addr uint8) (string, string) {
	return "0.000% 0", "0 0 0"
}

func newTestPoller(t *testing.T, r Reader, sinks ...Sink) *Poller {
	t.Helper()
	p, err := New(Config{
		Interval: time.Hour,
		Devices:  []Device{{ID: 3, Name: "Lounge"}, {ID: 1, Name: "Hall"}},
	}, r, zerolog.Nop(), sinks...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Devices: []Device{{ID: 1}}}, &fakeReader{}, zerolog.Nop()); err == nil {
		t.Error("zero interval should fail")
	}
	if _, err := New(Config{Interval: time.Second}, &fakeReader{}, zerolog.Nop()); err == nil {
		t.Error("no devices should fail")
	}
}

func TestPollOnce_OrderAndSinks(t *testing.T) {
	r := &fakeReader{}
	var got []uint8
	p := newTestPoller(t, r, SinkFunc(func(s Snapshot) { got = append(got, s.ID) }))

	snaps := p.PollOnce(context.Background())

	if len(r.calls) != 2 || r.calls[0] != 3 || r.calls[1] != 1 {
		t.Errorf("read order = %v, want [3 1]", r.calls)
	}
	if len(got) != 2 || len(snaps) != 2 {
		t.Errorf("sink saw %v, returned %d", got, len(snaps))
	}
	for _, s := range snaps {
		if !s.Online() || s.Params == nil || s.ReadStats != "0.000% 0" {
			t.Errorf("snapshot %d = %+v", s.ID, s)
		}
	}
}

func TestPollOnce_KeepsLastKnownOnFailure(t *testing.T) {
	r := &fakeReader{fail: map[uint8]bool{}}
	p := newTestPoller(t, r)

	p.PollOnce(context.Background())
	first, _ := p.Snapshot(3)

	r.fail[3] = true
	p.PollOnce(context.Background())

	s, ok := p.Snapshot(3)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if s.Params == nil || s.Params.TargetTemp != 23 {
		t.Error("last-known parameters were dropped")
	}
	if !s.Stale() || s.Online() {
		t.Error("failed read should mark the snapshot stale")
	}
	if !s.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("UpdatedAt should only move on success")
	}

	// The other device is unaffected
	if h, _ := p.Snapshot(1); !h.Online() {
		t.Error("device 1 should still be online")
	}
}

func TestPollOnce_NeverReadDevice(t *testing.T) {
	r := &fakeReader{fail: map[uint8]bool{1: true}}
	p := newTestPoller(t, r)
	p.PollOnce(context.Background())

	s, _ := p.Snapshot(1)
	if s.Params != nil || s.Stale() || s.Online() {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Name != "Hall" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestPollOnce_StopsOnCancel(t *testing.T) {
	r := &fakeReader{}
	p := newTestPoller(t, r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if snaps := p.PollOnce(ctx); len(snaps) != 0 || len(r.calls) != 0 {
		t.Errorf("cancelled poll read %v", r.calls)
	}
}

func TestRun_PollsImmediately(t *testing.T) {
	r := &fakeReader{}
	done := make(chan struct{})
	var once sync.Once
	p := newTestPoller(t, r, SinkFunc(func(s Snapshot) {
		if s.ID == 1 {
			once.Do(func() { close(done) })
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not poll before the first tick")
	}
}

func TestSnapshots_ConfigOrder(t *testing.T) {
	p := newTestPoller(t, &fakeReader{})
	snaps := p.Snapshots()
	if len(snaps) != 2 || snaps[0].ID != 3 || snaps[1].ID != 1 {
		t.Errorf("Snapshots() = %+v", snaps)
	}
}

func TestGaugeSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := NewGaugeSink(reg)
	p := newTestPoller(t, &fakeReader{fail: map[uint8]bool{1: true}}, g)
	p.PollOnce(context.Background())

	expected := `
# HELP prtbus_stat_up 1 if the last read succeeded.
# TYPE prtbus_stat_up gauge
prtbus_stat_up{device="1",name="Hall"} 0
prtbus_stat_up{device="3",name="Lounge"} 1
# HELP prtbus_stat_target_temperature_celsius Set point.
# TYPE prtbus_stat_target_temperature_celsius gauge
prtbus_stat_target_temperature_celsius{device="3",name="Lounge"} 23
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"prtbus_stat_up", "prtbus_stat_target_temperature_celsius"); err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(reg, "prtbus_stat_floor_temperature_celsius")
	if err != nil || n != 0 {
		t.Errorf("floor gauge set for a missing probe (%d series, %v)", n, err)
	}
}

func TestGaugeSink_Fahrenheit(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := NewGaugeSink(reg)
	g.Publish(Snapshot{
		ID:        2,
		Name:      "Study",
		UpdatedAt: time.Unix(1700000000, 0),
		Params: &heatmiser.ParameterSet{
			Address:    2,
			TempFormat: heatmiser.Fahrenheit,
			TargetTemp: 68,
			FrostTemp:  50,
			FloorRaw:   heatmiser.SensorNotConnected,
		},
	})

	expected := `
# HELP prtbus_stat_target_temperature_celsius Set point.
# TYPE prtbus_stat_target_temperature_celsius gauge
prtbus_stat_target_temperature_celsius{device="2",name="Study"} 20
# HELP prtbus_stat_frost_temperature_celsius Frost protect set point.
# TYPE prtbus_stat_frost_temperature_celsius gauge
prtbus_stat_frost_temperature_celsius{device="2",name="Study"} 10
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"prtbus_stat_target_temperature_celsius", "prtbus_stat_frost_temperature_celsius"); err != nil {
		t.Error(err)
	}
}
