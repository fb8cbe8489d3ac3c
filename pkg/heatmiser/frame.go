// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import "fmt"

// Frame is one request or response on the bus
type Frame struct {
	Dest     uint8
	Source   uint8
	Function Function
	Start    uint16 // DCB offset of the first byte read or written
	Count    uint16 // Number of DCB bytes
	Payload  []byte
}

// NewReadAll creates the standard read-everything request for a stat
func NewReadAll(addr uint8) Frame {
	return Frame{
		Dest:     addr,
		Source:   MasterAddress,
		Function: FuncRead,
		Start:    ReadAllStart,
		Count:    ReadAllCount,
	}
}

// NewWrite creates a request writing payload at DCB offset start
func NewWrite(addr uint8, start uint16, payload []byte) Frame {
	return Frame{
		Dest:     addr,
		Source:   MasterAddress,
		Function: FuncWrite,
		Start:    start,
		Count:    uint16(len(payload)),
		Payload:  payload,
	}
}

// IsAck reports whether the frame is a write acknowledgement
func (f *Frame) IsAck() bool {
	return f.Function == FuncWrite && len(f.Payload) == 0
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s dest=%d src=%d start=%d count=%d len=%d",
		f.Function, f.Dest, f.Source, f.Start, f.Count, len(f.Payload))
}
