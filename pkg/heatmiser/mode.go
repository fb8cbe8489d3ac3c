// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"fmt"
	"strings"
	"time"
)

// RunMode is the canonical operating mode exposed to callers
type RunMode int

const (
	ModeAuto RunMode = iota
	ModeHeat
	ModeOff
)

func (m RunMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeHeat:
		return "heat"
	case ModeOff:
		return "off"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts auto, heat and off
func ParseMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return ModeAuto, nil
	case "heat":
		return ModeHeat, nil
	case "off":
		return ModeOff, nil
	}
	return 0, fmt.Errorf("%w: mode %q (valid: auto, heat, off)", ErrInvalidParameter, s)
}

const (
	runModeNormal = 0
	runModeFrost  = 1
)

// DecodeMode maps the run mode register and heat state to a RunMode.
// Frost protect reads as off; otherwise an idle relay reads as auto.
func DecodeMode(runMode, heatState uint8) RunMode {
	if runMode == runModeFrost {
		return ModeOff
	}
	if heatState == 0 {
		return ModeAuto
	}
	return ModeHeat
}

// EncodeMode returns the run mode write for m. The stat has no forced heat
// state, so auto and heat both select normal operation.
func EncodeMode(m RunMode) (Write, error) {
	switch m {
	case ModeAuto, ModeHeat:
		return EncodeWrite(ParamRunMode, runModeNormal)
	case ModeOff:
		return EncodeWrite(ParamRunMode, runModeFrost)
	default:
		return Write{}, &ParameterError{Param: ParamRunMode, Value: int(m), Min: int(ModeAuto), Max: int(ModeOff)}
	}
}

// TurnOn leaves frost protect
func TurnOn() Write {
	w, _ := EncodeMode(ModeAuto)
	return w
}

// TurnOff enters frost protect
func TurnOff() Write {
	w, _ := EncodeMode(ModeOff)
	return w
}

// EncodeClock returns the 4-byte day/hour/minute/second write for t
func EncodeClock(t time.Time) Write {
	day := int(t.Weekday())
	if day == 0 {
		day = 7
	}
	return Write{
		Param:   ParamDay,
		Start:   dcbDayOfWeek,
		Payload: []byte{byte(day), byte(t.Hour()), byte(t.Minute()), byte(t.Second())},
	}
}
