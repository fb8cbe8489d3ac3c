// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package rs485 drives a Heatmiser RS485 line: it owns the transport,
// serializes transactions across all thermostats, retries failed exchanges
// and keeps per-device error statistics.
package rs485

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/rs/zerolog"
)

// Transport moves raw frames on and off the line
type Transport interface {
	// WriteFrame discards stale input and sends frame
	WriteFrame(frame []byte) error
	// ReadResponse returns the bytes received before the reply is complete
	// or timeout elapses. A timeout is not an error.
	ReadResponse(timeout time.Duration) ([]byte, error)
	Close() error
}

// Conn is a byte stream whose reads give up after a timeout.
// A timed out Read returns (0, nil).
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadTimeout(d time.Duration) error
	ResetInput() error
}

// Dialer opens a fresh Conn
type Dialer func() (Conn, error)

// ErrPortClosed is returned by a Port after Close
var ErrPortClosed = errors.New("rs485: port closed")

// LineFaultError reports a transport failure. Reconnected tells whether the
// one reconnect attempt that followed the fault succeeded.
type LineFaultError struct {
	Op          string
	Err         error
	Reconnected bool
}

func (e *LineFaultError) Error() string {
	state := "reconnect failed"
	if e.Reconnected {
		state = "reconnected"
	}
	return fmt.Sprintf("line fault during %s: %v (%s)", e.Op, e.Err, state)
}

func (e *LineFaultError) Unwrap() error { return e.Err }

// ErrorKind classifies line faults for the retry engine
func (e *LineFaultError) ErrorKind() heatmiser.ErrorKind { return heatmiser.LineFault }

// Port is a Transport over any Conn, with one reconnect per fault
type Port struct {
	mu     sync.Mutex
	dial   Dialer
	conn   Conn
	desc   string
	closed bool
	logger zerolog.Logger
}

// NewPort dials once and returns a Port. A dial failure is a *LineFaultError.
func NewPort(dial Dialer, desc string, logger zerolog.Logger) (*Port, error) {
	conn, err := dial()
	if err != nil {
		return nil, &LineFaultError{Op: "open", Err: err}
	}
	return &Port{
		dial:   dial,
		conn:   conn,
		desc:   desc,
		logger: logger.With().Str("port", desc).Logger(),
	}, nil
}

// String describes the medium, e.g. "Serial: /dev/ttyUSB0 @ 4800 baud"
func (p *Port) String() string {
	return p.desc
}

func (p *Port) WriteFrame(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &LineFaultError{Op: "write", Err: ErrPortClosed}
	}
	if err := p.conn.ResetInput(); err != nil {
		return p.fault("flush", err)
	}
	if _, err := p.conn.Write(frame); err != nil {
		return p.fault("write", err)
	}
	return nil
}

func (p *Port) ReadResponse(timeout time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, &LineFaultError{Op: "read", Err: ErrPortClosed}
	}

	buf := make([]byte, 0, heatmiser.MaxResponseSize)
	chunk := make([]byte, heatmiser.MaxResponseSize)
	deadline := time.Now().Add(timeout)

	for !heatmiser.ResponseComplete(buf) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := p.conn.SetReadTimeout(remaining); err != nil {
			return nil, p.fault("read", err)
		}
		n, err := p.conn.Read(chunk[:heatmiser.MaxResponseSize-len(buf)])
		buf = append(buf, chunk[:n]...)
		if err != nil {
			return nil, p.fault("read", err)
		}
	}

	return buf, nil
}

// fault closes the broken connection and redials once
func (p *Port) fault(op string, err error) error {
	p.logger.Warn().Err(err).Str("op", op).Msg("Transport error, attempting reconnect")
	_ = p.conn.Close()

	conn, dialErr := p.dial()
	if dialErr != nil {
		p.logger.Error().Err(dialErr).Msg("Failed to reconnect")
		p.conn = closedConn{}
		return &LineFaultError{Op: op, Err: err}
	}

	p.conn = conn
	p.logger.Info().Msg("Reconnected")
	return &LineFaultError{Op: op, Err: err, Reconnected: true}
}

// Close releases the connection. Calling it again is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

// closedConn stands in after a failed reconnect so the next fault redials
type closedConn struct{}

func (closedConn) Read([]byte) (int, error)           { return 0, ErrPortClosed }
func (closedConn) Write([]byte) (int, error)          { return 0, ErrPortClosed }
func (closedConn) Close() error                       { return nil }
func (closedConn) SetReadTimeout(time.Duration) error { return nil }
func (closedConn) ResetInput() error                  { return ErrPortClosed }

// TransportConfig selects and parameterizes the line medium.
// URL takes precedence over TCPAddr, which takes precedence over Device.
type TransportConfig struct {
	Device      string // serial device path
	Baud        int
	TCPAddr     string // host:port of an IP to serial adaptor
	URL         string // ws:// or wss:// bridge
	Username    string
	Password    string
	SkipVerify  bool
	DialTimeout time.Duration
}

// Open dials the configured medium
func Open(cfg TransportConfig, logger zerolog.Logger) (*Port, error) {
	dial, desc, err := cfg.Dialer()
	if err != nil {
		return nil, err
	}
	return NewPort(dial, desc, logger)
}

// Dialer returns the dial function and a description for cfg
func (cfg TransportConfig) Dialer() (Dialer, string, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	switch {
	case cfg.URL != "":
		return WebSocketDialer(cfg.URL, cfg.Username, cfg.Password, cfg.SkipVerify, timeout),
			fmt.Sprintf("WebSocket: %s", cfg.URL), nil
	case cfg.TCPAddr != "":
		return TCPDialer(cfg.TCPAddr, timeout), fmt.Sprintf("TCP: %s", cfg.TCPAddr), nil
	case cfg.Device != "":
		baud := cfg.Baud
		if baud == 0 {
			baud = DefaultBaudRate
		}
		return SerialDialer(cfg.Device, baud), fmt.Sprintf("Serial: %s @ %d baud", cfg.Device, baud), nil
	}
	return nil, "", errors.New("rs485: one of serial device, TCP address or URL must be set")
}

// Transport defaults
const (
	DefaultBaudRate    = 4800
	DefaultDialTimeout = 10 * time.Second
)
