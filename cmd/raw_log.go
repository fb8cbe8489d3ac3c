// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Silence on the line that ends a frame
const rawLogGap = 50 * time.Millisecond

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display every frame seen on the line",
	Long: `Listen without sending and decode every request and reply on the line.

Useful next to another master (a Heatmiser network controller or a second
prtbus) to see its traffic, retries and corrupt replies. Frames are split by
their length header, or by a silent gap when the header is garbled.

Supports serial, TCP and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	password := ""
	if cfg.Line.URL != "" && cfg.Line.Username != "" {
		if password, err = GetPassword(); err != nil {
			return err
		}
	}

	dial, connInfo, err := cfg.Transport(password).Dialer()
	if err != nil {
		return err
	}
	conn, err := dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.SetReadTimeout(rawLogGap); err != nil {
		return err
	}

	fmt.Printf("prtbus - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	buf := make([]byte, 0, 2*heatmiser.MaxResponseSize)
	chunk := make([]byte, heatmiser.MaxResponseSize)

	for cmd.Context().Err() == nil {
		n, err := conn.Read(chunk)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			// Gap: whatever is buffered is one (probably broken) frame
			if len(buf) > 0 {
				fmt.Println(describeFrame(time.Now(), buf))
				buf = buf[:0]
			}
			continue
		}

		buf = append(buf, chunk[:n]...)
		for {
			frame, rest, ok := nextFrame(buf)
			if !ok {
				break
			}
			fmt.Println(describeFrame(time.Now(), frame))
			buf = append(buf[:0], rest...)
		}
	}
	return nil
}

// nextFrame splits one frame off the front of buf using its length header.
// Requests carry a one byte length, replies to the master a two byte one.
func nextFrame(buf []byte) (frame, rest []byte, ok bool) {
	if len(buf) < heatmiser.MinResponseSize {
		return nil, buf, false
	}

	var n int
	switch {
	case buf[0] == heatmiser.MasterAddress || buf[0] == heatmiser.AltMasterAddress:
		n = int(buf[1]) | int(buf[2])<<8
		if n < heatmiser.WriteAckSize || n > heatmiser.MaxResponseSize {
			return nil, buf, false
		}
	case heatmiser.ValidAddress(buf[0]):
		n = int(buf[1])
		if n < heatmiser.RequestOverhead {
			return nil, buf, false
		}
	default:
		return nil, buf, false
	}

	if len(buf) < n {
		return nil, buf, false
	}
	frame = make([]byte, n)
	copy(frame, buf[:n])
	return frame, buf[n:], true
}

// describeFrame decodes a frame as a request or reply by its first byte
func describeFrame(ts time.Time, data []byte) string {
	stamp := ts.Format("15:04:05.000")

	var (
		f   *heatmiser.Frame
		err error
		dir = "->"
	)
	if len(data) > 0 && (data[0] == heatmiser.MasterAddress || data[0] == heatmiser.AltMasterAddress) {
		dir = "<-"
		f, err = heatmiser.DecodeResponse(data)
	} else {
		f, err = heatmiser.DecodeRequest(data)
	}

	if err != nil {
		return fmt.Sprintf("[%s] %s [ERROR] %s: %v\n  %s", stamp, dir, heatmiser.KindOf(err).Short(), err, heatmiser.FormatHex(data))
	}
	return fmt.Sprintf("[%s] %s %s", stamp, dir, heatmiser.FormatFrame(f))
}
