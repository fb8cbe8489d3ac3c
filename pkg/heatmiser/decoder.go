// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

// DecodeResponse validates a reply read from the line and returns its frame.
//
// Checks run most frequent fault first: a short buffer is NoDataReceived,
// a bad trailer is ChecksumMismatch and any structural inconsistency after
// that is Other. The input is never modified and the returned payload is a
// copy.
func DecodeResponse(data []byte) (*Frame, error) {
	n := len(data)
	if n < MinResponseSize {
		return nil, frameErr(NoDataReceived, "no data read (%d bytes)", n)
	}

	if received, calculated, ok := checkCRC(data); !ok {
		return nil, frameErr(ChecksumMismatch, "CRC mismatch: expected 0x%04X, got 0x%04X (%d bytes)", calculated, received, n)
	}

	dest := data[0]
	if !isMasterAddress(dest) {
		return nil, frameErr(Other, "bad dest address %d", dest)
	}

	if n < WriteAckSize {
		return nil, frameErr(Other, "frame too short: %d bytes", n)
	}

	fn := Function(data[4])
	if fn != FuncRead && fn != FuncWrite {
		return nil, frameErr(Other, "bad function code %d", fn)
	}

	frameLen := int(data[1]) | int(data[2])<<8
	if fn == FuncWrite && frameLen != WriteAckSize {
		return nil, frameErr(Other, "write reply length %d (expected %d)", frameLen, WriteAckSize)
	}
	if frameLen != n {
		return nil, frameErr(Other, "reply length %d does not match header %d", n, frameLen)
	}

	f := &Frame{
		Dest:     dest,
		Source:   data[3],
		Function: fn,
	}

	if fn == FuncWrite {
		return f, nil
	}

	if n < ResponseOverhead {
		return nil, frameErr(Other, "read reply too short: %d bytes", n)
	}

	f.Start = uint16(data[5]) | uint16(data[6])<<8
	f.Count = uint16(data[7]) | uint16(data[8])<<8
	f.Payload = make([]byte, n-ResponseOverhead)
	copy(f.Payload, data[ResponseHeaderSize:n-CRCSize])

	return f, nil
}

// DecodeRequest validates a request frame as a thermostat would see it
func DecodeRequest(data []byte) (*Frame, error) {
	n := len(data)
	if n < MinResponseSize {
		return nil, frameErr(NoDataReceived, "no data read (%d bytes)", n)
	}

	if received, calculated, ok := checkCRC(data); !ok {
		return nil, frameErr(ChecksumMismatch, "CRC mismatch: expected 0x%04X, got 0x%04X (%d bytes)", calculated, received, n)
	}

	if n < RequestOverhead {
		return nil, frameErr(Other, "request too short: %d bytes", n)
	}
	if int(data[1]) != n {
		return nil, frameErr(Other, "request length %d does not match header %d", n, data[1])
	}

	fn := Function(data[3])
	if fn != FuncRead && fn != FuncWrite {
		return nil, frameErr(Other, "bad function code %d", fn)
	}

	f := &Frame{
		Dest:     data[0],
		Source:   data[2],
		Function: fn,
		Start:    uint16(data[4]) | uint16(data[5])<<8,
		Count:    uint16(data[6]) | uint16(data[7])<<8,
	}
	if n > RequestOverhead {
		f.Payload = make([]byte, n-RequestOverhead)
		copy(f.Payload, data[RequestHeaderSize:n-CRCSize])
	}

	return f, nil
}

// ResponseComplete reports whether buf holds a whole reply according to
// its length header. Transports use it to stop reading early.
func ResponseComplete(buf []byte) bool {
	if len(buf) >= MaxResponseSize {
		return true
	}
	if len(buf) < MinResponseSize {
		return false
	}
	frameLen := int(buf[1]) | int(buf[2])<<8
	if frameLen < WriteAckSize || frameLen > MaxResponseSize {
		// Garbled header: wait for the timeout or the size cap
		return false
	}
	return len(buf) >= frameLen
}
