// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// drainTimeout bounds how long ResetInput waits for stale bytes
const drainTimeout = 5 * time.Millisecond

// tcpConn talks to an IP to serial adaptor
type tcpConn struct {
	conn    net.Conn
	timeout time.Duration
}

func (t *tcpConn) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (t *tcpConn) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpConn) Close() error {
	return t.conn.Close()
}

func (t *tcpConn) SetReadTimeout(d time.Duration) error {
	t.timeout = d
	return nil
}

// ResetInput discards whatever the adaptor has already forwarded
func (t *tcpConn) ResetInput() error {
	saved := t.timeout
	defer func() { t.timeout = saved }()

	t.timeout = drainTimeout
	buf := make([]byte, 256)
	for {
		n, err := t.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// TCPDialer connects to addr (host:port)
func TCPDialer(addr string, timeout time.Duration) Dialer {
	return func() (Conn, error) {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return &tcpConn{conn: conn, timeout: time.Second}, nil
	}
}
