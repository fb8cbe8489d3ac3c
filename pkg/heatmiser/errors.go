// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed exchange on the line
type ErrorKind int

const (
	KindNone ErrorKind = iota
	ChecksumMismatch
	NoDataReceived
	Other
	LineFault
)

// ErrorKinds lists every fault kind in counter order
var ErrorKinds = []ErrorKind{ChecksumMismatch, NoDataReceived, Other, LineFault}

// NumErrorKinds sizes per-kind counter arrays (index by ErrorKind)
const NumErrorKinds = int(LineFault) + 1

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case ChecksumMismatch:
		return "checksum_mismatch"
	case NoDataReceived:
		return "no_data_received"
	case Other:
		return "other"
	case LineFault:
		return "line_fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Short returns the three letter tag used in line statistics
func (k ErrorKind) Short() string {
	switch k {
	case ChecksumMismatch:
		return "CRC"
	case NoDataReceived:
		return "NDR"
	case Other:
		return "OTH"
	case LineFault:
		return "LNF"
	default:
		return "---"
	}
}

// FrameError reports why a buffer was rejected by the decoder
type FrameError struct {
	Kind ErrorKind
	Msg  string
}

func (e *FrameError) Error() string {
	return e.Msg
}

func frameErr(kind ErrorKind, format string, args ...interface{}) *FrameError {
	return &FrameError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind carried by err.
// Errors that are not frame errors classify as Other.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var k interface{ ErrorKind() ErrorKind }
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return Other
}

// ErrorKind implements the classifier used by KindOf
func (e *FrameError) ErrorKind() ErrorKind {
	return e.Kind
}

// Encoder errors
var (
	ErrInvalidAddress  = errors.New("heatmiser: address out of range")
	ErrInvalidFunction = errors.New("heatmiser: invalid function code")
	ErrPayloadTooLarge = errors.New("heatmiser: payload too large")
)
