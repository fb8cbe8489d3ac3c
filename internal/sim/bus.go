// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package sim

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Faults are per-request probabilities in [0, 1]
type Faults struct {
	Drop         float64 // no reply at all
	Corrupt      float64 // one bit flipped in the reply
	WrongAddress float64 // reply claims to come from another stat
}

// Validate checks the probabilities
func (f Faults) Validate() error {
	for name, p := range map[string]float64{"drop": f.Drop, "corrupt": f.Corrupt, "wrong address": f.WrongAddress} {
		if p < 0 || p > 1 {
			return fmt.Errorf("sim: %s probability %.2f outside [0, 1]", name, p)
		}
	}
	return nil
}

// Option configures a Bus
type Option func(*Bus)

// WithFaults enables fault injection
func WithFaults(f Faults) Option {
	return func(b *Bus) { b.faults = f }
}

// WithSeed makes fault injection reproducible
func WithSeed(seed int64) Option {
	return func(b *Bus) { b.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// Bus is a set of virtual thermostats sharing one line. It implements
// rs485.Transport so a Line can drive it without hardware.
type Bus struct {
	mu      sync.Mutex
	stats   map[uint8]*Thermostat
	faults  Faults
	rng     *rand.Rand
	logger  zerolog.Logger
	pending []byte
	closed  bool
}

// NewBus creates an empty bus
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		stats:  make(map[uint8]*Thermostat),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add attaches thermostats, replacing any at the same address
func (b *Bus) Add(stats ...*Thermostat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range stats {
		b.stats[t.Address()] = t
	}
}

// Thermostat returns the stat at addr
func (b *Bus) Thermostat(addr uint8) (*Thermostat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.stats[addr]
	return t, ok
}

// Addresses lists attached stats in ascending order
func (b *Bus) Addresses() []uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint8, 0, len(b.stats))
	for addr := range b.stats {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Handle processes one request frame and returns the reply bytes, or nil
// when nothing on the bus would answer
func (b *Bus) Handle(request []byte) []byte {
	req, err := heatmiser.DecodeRequest(request)
	if err != nil {
		b.logger.Debug().Err(err).Str("frame", heatmiser.FormatHex(request)).Msg("Ignoring bad request")
		return nil
	}

	b.mu.Lock()
	t, ok := b.stats[req.Dest]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	reply := heatmiser.Frame{
		Dest:     req.Source,
		Source:   req.Dest,
		Function: req.Function,
		Start:    req.Start,
	}
	switch req.Function {
	case heatmiser.FuncWrite:
		t.write(req.Start, req.Payload)
	case heatmiser.FuncRead:
		reply.Payload = t.read()
		reply.Count = uint16(len(reply.Payload))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.roll(b.faults.Drop) {
		b.logger.Debug().Uint8("addr", req.Dest).Msg("Dropping reply")
		return nil
	}
	if b.roll(b.faults.WrongAddress) {
		reply.Source = req.Dest%heatmiser.MaxAddress + 1
		b.logger.Debug().Uint8("addr", req.Dest).Uint8("as", reply.Source).Msg("Replying from wrong address")
	}

	out, err := heatmiser.EncodeResponse(reply)
	if err != nil {
		b.logger.Error().Err(err).Msg("Encode reply failed")
		return nil
	}

	if b.roll(b.faults.Corrupt) {
		bit := b.rng.Intn(len(out) * 8)
		out[bit/8] ^= 1 << (bit % 8)
		b.logger.Debug().Uint8("addr", req.Dest).Int("bit", bit).Msg("Corrupting reply")
	}
	return out
}

// roll must be called with mu held
func (b *Bus) roll(p float64) bool {
	return p > 0 && b.rng.Float64() < p
}

// WriteFrame hands a request to the bus
func (b *Bus) WriteFrame(frame []byte) error {
	reply := b.Handle(frame)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("sim: bus closed")
	}
	b.pending = reply
	return nil
}

// ReadResponse returns the reply to the last request. Silence returns an
// empty buffer at once rather than waiting out the timeout.
func (b *Bus) ReadResponse(time.Duration) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out, nil
}

// Close detaches the bus from its line
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
