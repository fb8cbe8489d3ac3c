// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"fmt"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Status is the terminal state of one transaction
type Status int

const (
	Success Status = iota
	SoftFailure
	HardFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Operation is the kind of transaction counted in the statistics
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

func (o Operation) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Outcome is the result of one transaction.
//
// Success and SoftFailure carry the response; SoftFailure and HardFailure
// carry the kind of the last failed attempt.
type Outcome struct {
	Status   Status
	Response *heatmiser.Frame
	Kind     heatmiser.ErrorKind
	Attempts int
	Err      error // last attempt error, nil on Success
}

// OK reports whether a response was obtained
func (o Outcome) OK() bool {
	return o.Status != HardFailure
}

// RetriesUsed is the number of resends after the first attempt
func (o Outcome) RetriesUsed() int {
	if o.Attempts == 0 {
		return 0
	}
	return o.Attempts - 1
}

// Payload returns the response DCB bytes, nil for acks and failures
func (o Outcome) Payload() []byte {
	if o.Response == nil {
		return nil
	}
	return o.Response.Payload
}

// HardFailureError is returned once a transaction has exhausted its attempts
type HardFailureError struct {
	Addr     uint8
	Op       Operation
	Kind     heatmiser.ErrorKind
	Attempts int
	Err      error
}

func (e *HardFailureError) Error() string {
	return fmt.Sprintf("%s of device %d failed after %d attempts (%s): %v", e.Op, e.Addr, e.Attempts, e.Kind, e.Err)
}

func (e *HardFailureError) Unwrap() error { return e.Err }

// ErrorKind implements the heatmiser.KindOf classifier
func (e *HardFailureError) ErrorKind() heatmiser.ErrorKind { return e.Kind }
