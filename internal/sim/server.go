// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package sim

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// A partial request older than this is discarded, like a stat resetting
// its receiver after a silent gap on the line
const interFrameGap = 200 * time.Millisecond

// Server exposes a Bus as a raw TCP byte stream, the way an IP-to-serial
// adaptor exposes a real line
type Server struct {
	bus    *Bus
	logger zerolog.Logger

	wg sync.WaitGroup
}

// NewServer creates a server for bus
func NewServer(bus *Bus, logger zerolog.Logger) *Server {
	return &Server{bus: bus, logger: logger.With().Str("component", "sim").Logger()}
}

// ListenAndServe listens on addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. It closes ln
// and waits for open connections before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Ints("stats", addrInts(s.bus.Addresses())).Msg("Simulator listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var conns sync.Map
	defer func() {
		conns.Range(func(k, _ any) bool {
			k.(net.Conn).Close()
			return true
		})
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		conns.Store(conn, struct{}{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conns.Delete(conn)
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	log := s.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("Client connected")
	defer log.Info().Msg("Client disconnected")

	buf := make([]byte, 0, heatmiser.MaxRequestSize)
	chunk := make([]byte, heatmiser.MaxRequestSize)
	for {
		conn.SetReadDeadline(time.Now().Add(interFrameGap))
		n, err := conn.Read(chunk)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if len(buf) > 0 {
					log.Debug().Str("data", heatmiser.FormatHex(buf)).Msg("Discarding partial request")
					buf = buf[:0]
				}
				continue
			}
			return
		}
		buf = append(buf, chunk[:n]...)

		for {
			frame, rest, ok := nextRequest(buf)
			buf = append(buf[:0], rest...)
			if !ok {
				break
			}
			if reply := s.bus.Handle(frame); reply != nil {
				if _, err := conn.Write(reply); err != nil {
					return
				}
			}
		}
	}
}

// nextRequest splits one request off the front of buf using its length byte.
// Bytes that cannot start a request are skipped.
func nextRequest(buf []byte) (frame, rest []byte, ok bool) {
	for len(buf) >= 2 && int(buf[1]) < heatmiser.RequestOverhead {
		buf = buf[1:]
	}
	if len(buf) < 2 || len(buf) < int(buf[1]) {
		return nil, buf, false
	}
	n := int(buf[1])
	frame = make([]byte, n)
	copy(frame, buf[:n])
	return frame, buf[n:], true
}

func addrInts(addrs []uint8) []int {
	out := make([]int, len(addrs))
	for i, a := range addrs {
		out[i] = int(a)
	}
	return out
}
