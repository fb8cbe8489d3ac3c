// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ParamID identifies a writable DCB parameter
type ParamID int

const (
	ParamFrostTemp ParamID = iota
	ParamTargetTemp
	ParamFloorLimit
	ParamOnOff
	ParamKeyLock
	ParamRunMode
	ParamDay
	ParamHour
	ParamMinute
	ParamSecond
)

type paramSpec struct {
	name   string
	offset uint16
	min    int
	max    int
}

var paramSpecs = map[ParamID]paramSpec{
	ParamFrostTemp:  {"frost_temp", dcbFrostTemp, 7, 17},
	ParamTargetTemp: {"target_temp", dcbTargetTemp, 5, 35},
	ParamFloorLimit: {"floor_limit", dcbFloorLimit, 20, 45},
	ParamOnOff:      {"on_off", dcbOnOff, 0, 1},
	ParamKeyLock:    {"key_lock", dcbKeyLock, 0, 1},
	ParamRunMode:    {"run_mode", dcbRunMode, 0, 1},
	ParamDay:        {"day", dcbDayOfWeek, 1, 7},
	ParamHour:       {"hour", dcbHour, 0, 23},
	ParamMinute:     {"minute", dcbMinute, 0, 59},
	ParamSecond:     {"second", dcbSecond, 0, 59},
}

func (p ParamID) String() string {
	if s, ok := paramSpecs[p]; ok {
		return s.name
	}
	return fmt.Sprintf("param(%d)", int(p))
}

// Offset returns the DCB offset the parameter is written to
func (p ParamID) Offset() uint16 {
	return paramSpecs[p].offset
}

// Range returns the inclusive bounds accepted by EncodeWrite
func (p ParamID) Range() (min, max int) {
	s := paramSpecs[p]
	return s.min, s.max
}

// ErrInvalidParameter is matched by every *ParameterError
var ErrInvalidParameter = errors.New("heatmiser: invalid parameter")

// ParameterError reports a rejected write before anything is sent
type ParameterError struct {
	Param ParamID
	Value int
	Min   int
	Max   int
	Name  string // set when the parameter name itself was not recognised
}

func (e *ParameterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown parameter %q (valid: %s)", e.Name, strings.Join(ParamNames(), ", "))
	}
	return fmt.Sprintf("%s value %d out of range %d-%d", e.Param, e.Value, e.Min, e.Max)
}

func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Write is a single-register write ready to be framed
type Write struct {
	Param   ParamID
	Start   uint16
	Payload []byte
}

// Frame builds the request frame for addr
func (w Write) Frame(addr uint8) Frame {
	return NewWrite(addr, w.Start, w.Payload)
}

// EncodeWrite range-checks value and returns the write for param
func EncodeWrite(param ParamID, value int) (Write, error) {
	s, ok := paramSpecs[param]
	if !ok {
		return Write{}, &ParameterError{Param: param, Value: value, Name: param.String()}
	}
	if value < s.min || value > s.max {
		return Write{}, &ParameterError{Param: param, Value: value, Min: s.min, Max: s.max}
	}
	return Write{Param: param, Start: s.offset, Payload: []byte{byte(value)}}, nil
}

// Short names accepted on the command line and in MQTT topics
var paramAliases = map[string]ParamID{
	"frost":      ParamFrostTemp,
	"target":     ParamTargetTemp,
	"floorlimit": ParamFloorLimit,
	"onoff":      ParamOnOff,
	"keylock":    ParamKeyLock,
	"runmode":    ParamRunMode,
}

// ParseParam resolves a parameter by name or alias. Dashes and case are ignored.
func ParseParam(name string) (ParamID, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for id, s := range paramSpecs {
		if s.name == norm {
			return id, nil
		}
	}
	if id, ok := paramAliases[strings.ReplaceAll(norm, "_", "")]; ok {
		return id, nil
	}
	return 0, &ParameterError{Name: name}
}

// ParamNames lists the writable parameter names in sorted order
func ParamNames() []string {
	names := make([]string, 0, len(paramSpecs))
	for _, s := range paramSpecs {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}
