// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/rs/zerolog"
)

// Line defaults
const (
	DefaultTimeout      = 800 * time.Millisecond
	DefaultMaxAttempts  = 5
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultSummaryEvery = 10000
)

var (
	// ErrUnknownDevice is returned for addresses not configured on the line
	ErrUnknownDevice = errors.New("rs485: device not configured on this line")
	// ErrInvalidConfig is returned by NewLine for unusable settings
	ErrInvalidConfig = errors.New("rs485: invalid line configuration")
)

// Config controls the transaction engine
type Config struct {
	Timeout      time.Duration // per attempt
	MaxAttempts  int           // total attempts, first send included
	RetryDelay   time.Duration
	SummaryEvery uint64 // log the line summary every N transactions, 0 disables
	Devices      []uint8
}

// DefaultConfig returns the timings that suit a PRT-N line at 4800 baud
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxAttempts:  DefaultMaxAttempts,
		RetryDelay:   DefaultRetryDelay,
		SummaryEvery: DefaultSummaryEvery,
	}
}

// Valid fills zero timings with defaults and checks the device list
func (c *Config) Valid() error {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Timeout < 0 || c.MaxAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: negative timing", ErrInvalidConfig)
	}

	seen := make(map[uint8]bool, len(c.Devices))
	for _, addr := range c.Devices {
		if !heatmiser.ValidAddress(addr) {
			return fmt.Errorf("%w: device address %d (valid %d-%d)", ErrInvalidConfig, addr, heatmiser.MinAddress, heatmiser.MaxAddress)
		}
		if seen[addr] {
			return fmt.Errorf("%w: duplicate device address %d", ErrInvalidConfig, addr)
		}
		seen[addr] = true
	}
	return nil
}

// Option configures a Line
type Option func(*Line)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Line) { l.logger = logger }
}

// WithStatistics shares an existing statistics tracker
func WithStatistics(stats *Statistics) Option {
	return func(l *Line) { l.stats = stats }
}

// WithSleep replaces the retry pause (tests use a no-op)
func WithSleep(sleep func(time.Duration)) Option {
	return func(l *Line) { l.sleep = sleep }
}

// Line serializes every transaction on one RS485 line.
// A transaction holds the line from its first send until its outcome is
// known, retries included.
type Line struct {
	transport Transport
	cfg       Config
	sem       chan struct{}
	devices   map[uint8]bool
	stats     *Statistics
	logger    zerolog.Logger
	sleep     func(time.Duration)
}

// NewLine wraps t. The Line owns t and closes it on Close.
func NewLine(t Transport, cfg Config, opts ...Option) (*Line, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	l := &Line{
		transport: t,
		cfg:       cfg,
		sem:       make(chan struct{}, 1),
		devices:   make(map[uint8]bool, len(cfg.Devices)),
		logger:    zerolog.Nop(),
		sleep:     time.Sleep,
	}
	for _, addr := range cfg.Devices {
		l.devices[addr] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.stats == nil {
		l.stats = NewStatistics()
	}
	return l, nil
}

// Devices returns the configured addresses in configuration order
func (l *Line) Devices() []uint8 {
	return append([]uint8(nil), l.cfg.Devices...)
}

// Config returns the effective engine settings
func (l *Line) Config() Config {
	return l.cfg
}

// Statistics returns the line's tracker
func (l *Line) Statistics() *Statistics {
	return l.stats
}

// StatsFor returns the read and write stats strings of a device
func (l *Line) StatsFor(addr uint8) (read, write string) {
	return l.stats.SummaryFor(addr)
}

// ReadDevice reads the full parameter set of a thermostat
func (l *Line) ReadDevice(ctx context.Context, addr uint8) (*heatmiser.ParameterSet, error) {
	if !l.devices[addr] {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDevice, addr)
	}

	out, err := l.execute(ctx, addr, OpRead, heatmiser.NewReadAll(addr))
	if err != nil {
		return nil, err
	}

	params, err := heatmiser.DecodeDCB(out.Payload())
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", addr, err)
	}
	if len(params.Anomalies) > 0 {
		l.logger.Debug().Uint8("device", addr).Int("anomalies", len(params.Anomalies)).
			Str("first", params.Anomalies[0].Message).Msg("Parameter set out of range")
	}
	return params, nil
}

// WriteParameter range-checks value and writes it to a thermostat.
// An out of range value fails with heatmiser.ErrInvalidParameter before
// anything is sent.
func (l *Line) WriteParameter(ctx context.Context, addr uint8, param heatmiser.ParamID, value int) error {
	w, err := heatmiser.EncodeWrite(param, value)
	if err != nil {
		return err
	}
	return l.write(ctx, addr, w)
}

// SetMode writes the run mode. Auto and heat are the same on the wire.
func (l *Line) SetMode(ctx context.Context, addr uint8, mode heatmiser.RunMode) error {
	w, err := heatmiser.EncodeMode(mode)
	if err != nil {
		return err
	}
	return l.write(ctx, addr, w)
}

// SetClock writes day of week and time of day.
// PRT-N stats acknowledge this write but have been seen to keep their old
// clock, so callers should read the device back to confirm.
func (l *Line) SetClock(ctx context.Context, addr uint8, t time.Time) error {
	l.logger.Warn().Uint8("device", addr).Time("time", t).
		Msg("Clock write is acknowledged but not verified to take effect on hardware")
	return l.write(ctx, addr, heatmiser.EncodeClock(t))
}

func (l *Line) write(ctx context.Context, addr uint8, w heatmiser.Write) error {
	if !l.devices[addr] {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, addr)
	}
	_, err := l.execute(ctx, addr, OpWrite, w.Frame(addr))
	return err
}

// execute runs a counted transaction and turns a hard failure into an error
func (l *Line) execute(ctx context.Context, addr uint8, op Operation, req heatmiser.Frame) (Outcome, error) {
	data, err := heatmiser.EncodeRequest(req)
	if err != nil {
		return Outcome{}, err
	}

	if err := l.acquire(ctx); err != nil {
		return Outcome{}, err
	}
	out := l.run(req, data, l.cfg.MaxAttempts)
	summary := l.stats.Record(addr, op, out)
	l.release()

	log := l.logger.With().Uint8("device", addr).Str("op", op.String()).Logger()
	switch out.Status {
	case SoftFailure:
		log.Debug().Str("kind", out.Kind.String()).Int("attempts", out.Attempts).Msg("Recovered after retry")
	case HardFailure:
		log.Error().Err(out.Err).Str("kind", out.Kind.String()).Int("attempts", out.Attempts).Msg("Transaction failed")
	}

	if l.cfg.SummaryEvery > 0 && summary.Operations%l.cfg.SummaryEvery == 0 {
		l.logger.Info().EmbedObject(summary).Msg("Line summary")
	}

	if out.Status == HardFailure {
		return out, &HardFailureError{Addr: addr, Op: op, Kind: out.Kind, Attempts: out.Attempts, Err: out.Err}
	}
	return out, nil
}

// Transact performs one uncounted single attempt exchange with any address,
// configured or not. Scanning uses it to probe the bus.
func (l *Line) Transact(ctx context.Context, req heatmiser.Frame) Outcome {
	data, err := heatmiser.EncodeRequest(req)
	if err != nil {
		return Outcome{Status: HardFailure, Kind: heatmiser.Other, Err: err}
	}
	if err := l.acquire(ctx); err != nil {
		return Outcome{Status: HardFailure, Kind: heatmiser.Other, Err: err}
	}
	defer l.release()
	return l.run(req, data, 1)
}

func (l *Line) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Line) release() {
	<-l.sem
}

// run is the retry loop. The caller holds the line.
func (l *Line) run(req heatmiser.Frame, data []byte, maxAttempts int) Outcome {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			l.sleep(l.cfg.RetryDelay)
		}

		resp, err := l.attempt(req, data)
		if err == nil {
			if lastErr == nil {
				return Outcome{Status: Success, Response: resp, Attempts: attempt}
			}
			return Outcome{Status: SoftFailure, Response: resp, Kind: heatmiser.KindOf(lastErr), Attempts: attempt, Err: lastErr}
		}

		lastErr = err
		l.logger.Trace().Err(err).Uint8("device", req.Dest).Int("attempt", attempt).
			Str("kind", heatmiser.KindOf(err).String()).Msg("Attempt failed")

		var lf *LineFaultError
		if errors.As(err, &lf) && !lf.Reconnected {
			return Outcome{Status: HardFailure, Kind: heatmiser.LineFault, Attempts: attempt, Err: err}
		}
	}

	return Outcome{Status: HardFailure, Kind: heatmiser.KindOf(lastErr), Attempts: maxAttempts, Err: lastErr}
}

// attempt sends the request once and validates the reply against it
func (l *Line) attempt(req heatmiser.Frame, data []byte) (*heatmiser.Frame, error) {
	if err := l.transport.WriteFrame(data); err != nil {
		return nil, err
	}

	raw, err := l.transport.ReadResponse(l.cfg.Timeout)
	if err != nil {
		return nil, err
	}

	resp, err := heatmiser.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	if resp.Source != req.Dest {
		return nil, &heatmiser.FrameError{Kind: heatmiser.Other,
			Msg: fmt.Sprintf("reply from device %d to request for %d", resp.Source, req.Dest)}
	}
	if resp.Function != req.Function {
		return nil, &heatmiser.FrameError{Kind: heatmiser.Other,
			Msg: fmt.Sprintf("%s reply to %s request", resp.Function, req.Function)}
	}
	if req.Function == heatmiser.FuncRead && len(resp.Payload) < heatmiser.MinDCBLength {
		return nil, &heatmiser.FrameError{Kind: heatmiser.Other,
			Msg: fmt.Sprintf("DCB too short: %d bytes", len(resp.Payload))}
	}

	return resp, nil
}

// Close closes the transport
func (l *Line) Close() error {
	return l.transport.Close()
}
