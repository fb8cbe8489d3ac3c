// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import "fmt"

// EncodeRequest creates a complete wire-formatted request frame.
// Returns the bytes ready for transmission, CRC included.
func EncodeRequest(f Frame) ([]byte, error) {
	if !ValidAddress(f.Dest) {
		return nil, fmt.Errorf("%w: dest %d (valid %d-%d)", ErrInvalidAddress, f.Dest, MinAddress, MaxAddress)
	}
	if f.Function != FuncRead && f.Function != FuncWrite {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFunction, f.Function)
	}
	if len(f.Payload) > MaxRequestPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(f.Payload), MaxRequestPayload)
	}

	data := make([]byte, 0, RequestOverhead+len(f.Payload))
	data = append(data,
		f.Dest,
		byte(RequestOverhead+len(f.Payload)),
		f.Source,
		byte(f.Function),
		byte(f.Start&0xFF), byte(f.Start>>8),
		byte(f.Count&0xFF), byte(f.Count>>8),
	)
	data = append(data, f.Payload...)

	return appendCRC(data), nil
}

// MustEncodeRequest encodes a request frame.
// Panics on encoding error (use EncodeRequest for error handling).
func MustEncodeRequest(f Frame) []byte {
	data, err := EncodeRequest(f)
	if err != nil {
		panic(fmt.Sprintf("heatmiser: encode error: %v", err))
	}
	return data
}

// EncodeResponse creates the reply a thermostat sends for a request.
// Write replies are the short acknowledgement; the payload is ignored.
func EncodeResponse(f Frame) ([]byte, error) {
	if !ValidAddress(f.Source) {
		return nil, fmt.Errorf("%w: source %d (valid %d-%d)", ErrInvalidAddress, f.Source, MinAddress, MaxAddress)
	}

	switch f.Function {
	case FuncWrite:
		data := []byte{f.Dest, WriteAckSize, 0, f.Source, byte(FuncWrite)}
		return appendCRC(data), nil

	case FuncRead:
		if len(f.Payload) > MaxDCBLength {
			return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(f.Payload), MaxDCBLength)
		}
		length := ResponseOverhead + len(f.Payload)
		data := make([]byte, 0, length)
		data = append(data,
			f.Dest,
			byte(length&0xFF), byte(length>>8),
			f.Source,
			byte(FuncRead),
			byte(f.Start&0xFF), byte(f.Start>>8),
			byte(f.Count&0xFF), byte(f.Count>>8),
		)
		data = append(data, f.Payload...)
		return appendCRC(data), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidFunction, f.Function)
	}
}
