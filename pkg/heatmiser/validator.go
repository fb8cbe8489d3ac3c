// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import "fmt"

// AnomalyType represents different types of DCB anomalies
type AnomalyType int

const (
	AnomalyOutOfRange AnomalyType = iota
	AnomalyLengthMismatch
	AnomalyAddressMismatch
	AnomalySensorFault
	AnomalyDeviceError
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyOutOfRange:
		return "out_of_range"
	case AnomalyLengthMismatch:
		return "length_mismatch"
	case AnomalyAddressMismatch:
		return "address_mismatch"
	case AnomalySensorFault:
		return "sensor_fault"
	case AnomalyDeviceError:
		return "device_error"
	default:
		return fmt.Sprintf("anomaly(%d)", int(a))
	}
}

// ValidationError represents a DCB field outside its documented range
type ValidationError struct {
	Type    AnomalyType
	Field   string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateParameters checks a decoded parameter set and returns anomalies
// (empty if every field is plausible)
func ValidateParameters(p *ParameterSet) []ValidationError {
	errors := []ValidationError{}

	ranges := []struct {
		field    string
		value    uint8
		min, max uint8
	}{
		{"temp_format", p.TempFormat, Celsius, Fahrenheit},
		{"program_mode", p.ProgramMode, ProgramFiveTwo, ProgramSevenDay},
		{"sensor_selection", p.SensorSelection, SensorBuiltIn, sensorSelectionMaxValue},
		{"frost_temp", p.FrostTemp, 7, 17},
		{"target_temp", p.TargetTemp, 5, 35},
		{"floor_limit", p.FloorLimit, 20, 45},
		{"on_off", p.OnOff, 0, 1},
		{"key_lock", p.KeyLock, 0, 1},
		{"run_mode", p.RunModeBit, 0, 1},
		{"day", p.Clock.DayOfWeek, 1, 7},
		{"hour", p.Clock.Hour, 0, 23},
		{"minute", p.Clock.Minute, 0, 59},
		{"second", p.Clock.Second, 0, 59},
	}
	for _, r := range ranges {
		if r.value < r.min || r.value > r.max {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Field:   r.field,
				Message: fmt.Sprintf("Invalid %s=%d (range %d-%d)", r.field, r.value, r.min, r.max),
				Details: map[string]interface{}{"value": r.value, "min": r.min, "max": r.max},
			})
		}
	}

	if p.Address != 0 && !ValidAddress(p.Address) {
		errors = append(errors, ValidationError{
			Type:    AnomalyAddressMismatch,
			Field:   "address",
			Message: fmt.Sprintf("Invalid address=%d (range %d-%d)", p.Address, MinAddress, MaxAddress),
			Details: map[string]interface{}{"address": p.Address},
		})
	}

	// Only the probe the stat is using can be reported as faulty
	var sensorRaw uint16
	var sensorName string
	switch p.SensorSelection {
	case SensorBuiltIn, SensorBuiltInAndFloor:
		sensorRaw, sensorName = p.BuiltInRaw, "built_in_temp"
	case SensorRemote, SensorRemoteAndFloor:
		sensorRaw, sensorName = p.RemoteAirRaw, "remote_air_temp"
	default:
		sensorRaw, sensorName = p.FloorRaw, "floor_temp"
	}
	if sensorRaw == SensorNotConnected {
		errors = append(errors, ValidationError{
			Type:    AnomalySensorFault,
			Field:   sensorName,
			Message: fmt.Sprintf("Selected sensor %s not connected", sensorName),
			Details: map[string]interface{}{"raw": sensorRaw},
		})
	}

	if p.ErrorCode != 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyDeviceError,
			Field:   "error_code",
			Message: fmt.Sprintf("Thermostat reports error code 0x%02X", p.ErrorCode),
			Details: map[string]interface{}{"error_code": p.ErrorCode},
		})
	}

	for i, level := range p.Weekday {
		errors = append(errors, validateComfortLevel("weekday", i, level)...)
	}
	for i, level := range p.Weekend {
		errors = append(errors, validateComfortLevel("weekend", i, level)...)
	}

	return errors
}

// validateLength compares the DCB's own length field and program mode with
// the number of bytes received
func validateLength(p *ParameterSet, received int) []ValidationError {
	var errors []ValidationError
	if int(p.Length) != received {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Field:   "length",
			Message: fmt.Sprintf("DCB length field %d, received %d bytes", p.Length, received),
			Details: map[string]interface{}{"length": p.Length, "received": received},
		})
	}
	if p.ProgramMode == ProgramSevenDay && received < SevenDayDCBLength {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Field:   "seven_day",
			Message: fmt.Sprintf("7-day program mode but only %d bytes (need %d)", received, SevenDayDCBLength),
			Details: map[string]interface{}{"received": received, "need": SevenDayDCBLength},
		})
	}
	return errors
}

// Unused comfort levels are programmed as hour 24
func validateComfortLevel(schedule string, index int, level ComfortLevel) []ValidationError {
	if level.Hour <= 24 && level.Minute <= 59 {
		return nil
	}
	field := fmt.Sprintf("%s[%d]", schedule, index)
	return []ValidationError{{
		Type:    AnomalyOutOfRange,
		Field:   field,
		Message: fmt.Sprintf("Invalid %s time %02d:%02d", field, level.Hour, level.Minute),
		Details: map[string]interface{}{"hour": level.Hour, "minute": level.Minute},
	}}
}
