// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"errors"
	"fmt"
)

// DCB offsets
const (
	dcbLengthHi         = 0
	dcbLengthLo         = 1
	dcbVendorID         = 2
	dcbVersion          = 3 // bit 7 is the floor limit state
	dcbModel            = 4
	dcbTempFormat       = 5
	dcbSwitchDiff       = 6
	dcbFrostEnable      = 7
	dcbCalOffset        = 8 // 2 bytes
	dcbOutputDelay      = 10
	dcbAddress          = 11
	dcbUpDownLimit      = 12
	dcbSensorSelect     = 13
	dcbOptimumStart     = 14
	dcbRateOfChange     = 15
	dcbProgramMode      = 16
	dcbFrostTemp        = 17
	dcbTargetTemp       = 18
	dcbFloorLimit       = 19
	dcbFloorLimitEnable = 20
	dcbOnOff            = 21
	dcbKeyLock          = 22
	dcbRunMode          = 23
	dcbHolidayHours     = 24 // 2 bytes
	dcbTempHold         = 26 // 2 bytes
	dcbRemoteAirTemp    = 28 // 2 bytes, tenths
	dcbFloorTemp        = 30 // 2 bytes, tenths
	dcbBuiltInTemp      = 32 // 2 bytes, tenths
	dcbErrorCode        = 34
	dcbHeatState        = 35
	dcbDayOfWeek        = 36
	dcbHour             = 37
	dcbMinute           = 38
	dcbSecond           = 39
	dcbWeekday          = 40 // 4 comfort levels
	dcbWeekend          = 52 // 4 comfort levels
	dcbSevenDay         = 64 // Monday..Sunday, 4 comfort levels each

	comfortLevelSize = 3
	comfortLevels    = 4
	scheduleSize     = comfortLevelSize * comfortLevels
)

// DCB sizes
const (
	MinDCBLength      = dcbSevenDay                  // 5/2 mode stats stop after the weekend block
	SevenDayDCBLength = dcbSevenDay + 7*scheduleSize // 148
)

// Program modes
const (
	ProgramFiveTwo  = 0
	ProgramSevenDay = 1
)

// Sensor selections
const (
	SensorBuiltIn           = 0
	SensorRemote            = 1
	SensorFloor             = 2
	SensorBuiltInAndFloor   = 3
	SensorRemoteAndFloor    = 4
	sensorSelectionMaxValue = SensorRemoteAndFloor
)

// Temperature formats
const (
	Celsius    = 0
	Fahrenheit = 1
)

// Sensor reading used when a probe is not fitted
const SensorNotConnected = 0xFFFF

// ErrShortDCB is returned when a payload cannot hold the fixed DCB fields
var ErrShortDCB = errors.New("heatmiser: DCB too short")

// ComfortLevel is one schedule slot: from hh:mm hold temperature
type ComfortLevel struct {
	Hour        uint8
	Minute      uint8
	Temperature uint8
}

// Schedule is the four comfort levels of one day type
type Schedule [comfortLevels]ComfortLevel

// Clock is the thermostat's day of week and time of day
type Clock struct {
	DayOfWeek uint8 // 1 = Monday .. 7 = Sunday
	Hour      uint8
	Minute    uint8
	Second    uint8
}

// ParameterSet holds every decoded DCB field of one thermostat
type ParameterSet struct {
	Length           uint16
	VendorID         uint8
	Version          uint8
	FloorLimitState  bool
	Model            uint8
	TempFormat       uint8
	SwitchDiff       uint8
	FrostEnable      uint8
	CalOffset        uint16
	OutputDelay      uint8
	Address          uint8
	UpDownLimit      uint8
	SensorSelection  uint8
	OptimumStart     uint8
	RateOfChange     uint8
	ProgramMode      uint8
	FrostTemp        uint8
	TargetTemp       uint8
	FloorLimit       uint8
	FloorLimitEnable uint8
	OnOff            uint8
	KeyLock          uint8
	RunModeBit       uint8 // 0 = normal (heating), 1 = frost protect
	HolidayHours     uint16
	TempHold         uint16
	RemoteAirTemp    float64
	FloorTemp        float64
	BuiltInTemp      float64
	RemoteAirRaw     uint16
	FloorRaw         uint16
	BuiltInRaw       uint16
	ErrorCode        uint8
	HeatState        uint8
	Clock            Clock
	Weekday          Schedule
	Weekend          Schedule
	SevenDay         [7]Schedule // Monday..Sunday, zero in 5/2 mode
	HasSevenDay      bool

	// Anomalies lists fields outside their documented range. They are
	// decoded as-is; the caller decides whether to trust them.
	Anomalies []ValidationError
}

// DecodeDCB decodes a DCB payload as returned by a read-all request
func DecodeDCB(dcb []byte) (*ParameterSet, error) {
	if len(dcb) < MinDCBLength {
		return nil, fmt.Errorf("%w: %d bytes (need %d)", ErrShortDCB, len(dcb), MinDCBLength)
	}

	p := &ParameterSet{
		Length:           be16(dcb, dcbLengthHi),
		VendorID:         dcb[dcbVendorID],
		Version:          dcb[dcbVersion] & 0x7F,
		FloorLimitState:  dcb[dcbVersion]&0x80 != 0,
		Model:            dcb[dcbModel],
		TempFormat:       dcb[dcbTempFormat],
		SwitchDiff:       dcb[dcbSwitchDiff],
		FrostEnable:      dcb[dcbFrostEnable],
		CalOffset:        be16(dcb, dcbCalOffset),
		OutputDelay:      dcb[dcbOutputDelay],
		Address:          dcb[dcbAddress],
		UpDownLimit:      dcb[dcbUpDownLimit],
		SensorSelection:  dcb[dcbSensorSelect],
		OptimumStart:     dcb[dcbOptimumStart],
		RateOfChange:     dcb[dcbRateOfChange],
		ProgramMode:      dcb[dcbProgramMode],
		FrostTemp:        dcb[dcbFrostTemp],
		TargetTemp:       dcb[dcbTargetTemp],
		FloorLimit:       dcb[dcbFloorLimit],
		FloorLimitEnable: dcb[dcbFloorLimitEnable],
		OnOff:            dcb[dcbOnOff],
		KeyLock:          dcb[dcbKeyLock],
		RunModeBit:       dcb[dcbRunMode],
		HolidayHours:     be16(dcb, dcbHolidayHours),
		TempHold:         be16(dcb, dcbTempHold),
		RemoteAirRaw:     be16(dcb, dcbRemoteAirTemp),
		FloorRaw:         be16(dcb, dcbFloorTemp),
		BuiltInRaw:       be16(dcb, dcbBuiltInTemp),
		ErrorCode:        dcb[dcbErrorCode],
		HeatState:        dcb[dcbHeatState],
		Clock: Clock{
			DayOfWeek: dcb[dcbDayOfWeek],
			Hour:      dcb[dcbHour],
			Minute:    dcb[dcbMinute],
			Second:    dcb[dcbSecond],
		},
		Weekday: decodeSchedule(dcb, dcbWeekday),
		Weekend: decodeSchedule(dcb, dcbWeekend),
	}
	p.RemoteAirTemp = tenths(p.RemoteAirRaw)
	p.FloorTemp = tenths(p.FloorRaw)
	p.BuiltInTemp = tenths(p.BuiltInRaw)

	if p.ProgramMode == ProgramSevenDay && len(dcb) >= SevenDayDCBLength {
		p.HasSevenDay = true
		for day := 0; day < 7; day++ {
			p.SevenDay[day] = decodeSchedule(dcb, dcbSevenDay+day*scheduleSize)
		}
	}

	p.Anomalies = append(ValidateParameters(p), validateLength(p, len(dcb))...)
	return p, nil
}

// CurrentTemperature returns the air sensor in use (built-in or remote),
// falling back to the floor probe when no air sensor is selected.
func (p *ParameterSet) CurrentTemperature() float64 {
	switch p.SensorSelection {
	case SensorBuiltIn, SensorBuiltInAndFloor:
		return p.BuiltInTemp
	case SensorRemote, SensorRemoteAndFloor:
		return p.RemoteAirTemp
	default:
		return p.FloorTemp
	}
}

// Mode returns the canonical run mode derived from the hardware state
func (p *ParameterSet) Mode() RunMode {
	return DecodeMode(p.RunModeBit, p.HeatState)
}

// Heating reports whether the output relay is on
func (p *ParameterSet) Heating() bool {
	return p.HeatState != 0
}

// Unit returns the temperature unit symbol
func (p *ParameterSet) Unit() string {
	if p.TempFormat == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// DaySchedule returns the schedule in force for day (1 = Monday .. 7 = Sunday).
// In 5/2 mode the per-day schedules are not present and zero levels are returned.
func (p *ParameterSet) DaySchedule(day int) Schedule {
	if !p.HasSevenDay || day < 1 || day > 7 {
		return Schedule{}
	}
	return p.SevenDay[day-1]
}

func decodeSchedule(dcb []byte, offset int) Schedule {
	var s Schedule
	for i := 0; i < comfortLevels; i++ {
		base := offset + i*comfortLevelSize
		s[i] = ComfortLevel{
			Hour:        dcb[base],
			Minute:      dcb[base+1],
			Temperature: dcb[base+2],
		}
	}
	return s
}

func be16(b []byte, offset int) uint16 {
	return uint16(b[offset])<<8 | uint16(b[offset+1])
}

func tenths(raw uint16) float64 {
	return float64(raw) / 10
}

// EncodeDCB lays a parameter set back out as a DCB payload. Temperatures
// are taken from the raw sensor fields. The result is 148 bytes when the
// set carries 7-day schedules and 64 bytes otherwise.
func EncodeDCB(p *ParameterSet) []byte {
	size := MinDCBLength
	if p.HasSevenDay {
		size = SevenDayDCBLength
	}
	dcb := make([]byte, size)

	putBE16(dcb, dcbLengthHi, uint16(size))
	dcb[dcbVendorID] = p.VendorID
	dcb[dcbVersion] = p.Version & 0x7F
	if p.FloorLimitState {
		dcb[dcbVersion] |= 0x80
	}
	dcb[dcbModel] = p.Model
	dcb[dcbTempFormat] = p.TempFormat
	dcb[dcbSwitchDiff] = p.SwitchDiff
	dcb[dcbFrostEnable] = p.FrostEnable
	putBE16(dcb, dcbCalOffset, p.CalOffset)
	dcb[dcbOutputDelay] = p.OutputDelay
	dcb[dcbAddress] = p.Address
	dcb[dcbUpDownLimit] = p.UpDownLimit
	dcb[dcbSensorSelect] = p.SensorSelection
	dcb[dcbOptimumStart] = p.OptimumStart
	dcb[dcbRateOfChange] = p.RateOfChange
	dcb[dcbProgramMode] = p.ProgramMode
	dcb[dcbFrostTemp] = p.FrostTemp
	dcb[dcbTargetTemp] = p.TargetTemp
	dcb[dcbFloorLimit] = p.FloorLimit
	dcb[dcbFloorLimitEnable] = p.FloorLimitEnable
	dcb[dcbOnOff] = p.OnOff
	dcb[dcbKeyLock] = p.KeyLock
	dcb[dcbRunMode] = p.RunModeBit
	putBE16(dcb, dcbHolidayHours, p.HolidayHours)
	putBE16(dcb, dcbTempHold, p.TempHold)
	putBE16(dcb, dcbRemoteAirTemp, p.RemoteAirRaw)
	putBE16(dcb, dcbFloorTemp, p.FloorRaw)
	putBE16(dcb, dcbBuiltInTemp, p.BuiltInRaw)
	dcb[dcbErrorCode] = p.ErrorCode
	dcb[dcbHeatState] = p.HeatState
	dcb[dcbDayOfWeek] = p.Clock.DayOfWeek
	dcb[dcbHour] = p.Clock.Hour
	dcb[dcbMinute] = p.Clock.Minute
	dcb[dcbSecond] = p.Clock.Second
	encodeSchedule(dcb, dcbWeekday, p.Weekday)
	encodeSchedule(dcb, dcbWeekend, p.Weekend)
	if p.HasSevenDay {
		for day := 0; day < 7; day++ {
			encodeSchedule(dcb, dcbSevenDay+day*scheduleSize, p.SevenDay[day])
		}
	}
	return dcb
}

// ApplyWrite stores a write into a DCB buffer the way a stat would.
// Bytes past the end of dcb are dropped.
func ApplyWrite(dcb []byte, start uint16, payload []byte) {
	for i, b := range payload {
		off := int(start) + i
		if off >= len(dcb) {
			return
		}
		dcb[off] = b
	}
}

func encodeSchedule(dcb []byte, offset int, s Schedule) {
	for i, level := range s {
		base := offset + i*comfortLevelSize
		dcb[base] = level.Hour
		dcb[base+1] = level.Minute
		dcb[base+2] = level.Temperature
	}
}

func putBE16(b []byte, offset int, v uint16) {
	b[offset] = byte(v >> 8)
	b[offset+1] = byte(v)
}
