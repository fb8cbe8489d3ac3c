// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package heatmiser implements the Heatmiser V3 RS485 frame codec and the
// PRT-N data control block (DCB) parameter model.
//
// Frames carry no start marker or byte stuffing. A request is
//
//	dest, len, source, func, startLo, startHi, countLo, countHi, payload..., crcLo, crcHi
//
// and a response echoes the addresses with a 16-bit length field:
//
//	dest, lenLo, lenHi, source, func, startLo, startHi, countLo, countHi, dcb..., crcLo, crcHi
//
// A write is acknowledged with a bare 7-byte frame (dest, 7, 0, source, 1, crc).
package heatmiser

// Bus addresses
const (
	MinAddress = 1  // First thermostat address
	MaxAddress = 32 // Last thermostat address

	MasterAddress    = 129 // Address the master sends from
	AltMasterAddress = 160 // Some stats reply to this instead of 129
)

// Function codes
const (
	FuncRead  Function = 0
	FuncWrite Function = 1
)

// Frame geometry
const (
	RequestHeaderSize  = 8
	ResponseHeaderSize = 9
	CRCSize            = 2

	RequestOverhead  = RequestHeaderSize + CRCSize  // 10
	ResponseOverhead = ResponseHeaderSize + CRCSize // 11

	// The request length field is one byte.
	MaxRequestSize    = 255
	MaxRequestPayload = MaxRequestSize - RequestOverhead

	// Largest reply: full DCB of a stat in 7-day mode.
	MaxResponseSize = 159
	MaxDCBLength    = MaxResponseSize - ResponseOverhead

	// Write acknowledgement frame length.
	WriteAckSize = 7

	// Shortest buffer that can carry a CRC and something to check it against.
	MinResponseSize = 3
)

// Read-all request geometry
const (
	ReadAllStart = 0x0000
	ReadAllCount = 0xFFFF
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Function is the frame function code
type Function uint8

func (f Function) String() string {
	switch f {
	case FuncRead:
		return "read"
	case FuncWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ValidAddress reports whether addr can name a thermostat on the bus
func ValidAddress(addr uint8) bool {
	return addr >= MinAddress && addr <= MaxAddress
}

func isMasterAddress(addr uint8) bool {
	return addr == MasterAddress || addr == AltMasterAddress
}
