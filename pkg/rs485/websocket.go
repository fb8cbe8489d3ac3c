// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

type wsMessage struct {
	data []byte
	err  error
}

// wsConn adapts a message oriented WebSocket bridge to a byte stream.
// A gorilla connection cannot be read again after a read deadline fires,
// so one goroutine reads messages and Read waits on its channel instead.
type wsConn struct {
	conn    *websocket.Conn
	msgs    chan wsMessage
	done    chan struct{}
	buf     []byte
	err     error
	timeout time.Duration
}

func newWSConn(conn *websocket.Conn) *wsConn {
	w := &wsConn{
		conn:    conn,
		msgs:    make(chan wsMessage, 16),
		done:    make(chan struct{}),
		timeout: time.Second,
	}
	go w.readLoop()
	return w
}

func (w *wsConn) readLoop() {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case w.msgs <- wsMessage{err: err}:
			case <-w.done:
			}
			return
		}

		// Only binary messages carry line bytes
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.msgs <- wsMessage{data: data}:
		case <-w.done:
			return
		}
	}
}

func (w *wsConn) Read(p []byte) (int, error) {
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		return n, nil
	}
	if w.err != nil {
		return 0, w.err
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case msg := <-w.msgs:
		if msg.err != nil {
			w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, msg.err)
			return 0, w.err
		}
		n := copy(p, msg.data)
		w.buf = msg.data[n:]
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-w.done:
		return 0, ErrConnectionClosed
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.conn.Close()
}

func (w *wsConn) SetReadTimeout(d time.Duration) error {
	w.timeout = d
	return nil
}

// ResetInput drops buffered and queued bytes, keeping any pending error
func (w *wsConn) ResetInput() error {
	w.buf = nil
	for {
		select {
		case msg := <-w.msgs:
			if msg.err != nil {
				w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, msg.err)
				return w.err
			}
		default:
			return w.err
		}
	}
}

// WebSocketDialer connects to a ws:// or wss:// bridge with HTTP Basic auth
func WebSocketDialer(wsURL, username, password string, skipSSLVerify bool, timeout time.Duration) Dialer {
	return func() (Conn, error) {
		u, err := url.Parse(wsURL)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}

		switch u.Scheme {
		case "ws", "wss":
		default:
			return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
		}

		dialer := websocket.Dialer{
			HandshakeTimeout: timeout,
		}
		if u.Scheme == "wss" {
			dialer.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: skipSSLVerify,
			}
		}

		headers := http.Header{}
		if username != "" && password != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
			headers.Set("Authorization", "Basic "+credentials)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
		defer cancel()

		conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
			}
			return nil, fmt.Errorf("WebSocket connection failed: %w", err)
		}

		return newWSConn(conn), nil
	}
}
