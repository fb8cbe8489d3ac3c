// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"errors"
	"strings"
	"testing"
)

// sampleParameters returns a plausible PRT-N state at address 4
func sampleParameters(programMode uint8) *ParameterSet {
	p := &ParameterSet{
		VendorID:         0,
		Version:          15,
		Model:            3,
		TempFormat:       Celsius,
		SwitchDiff:       1,
		FrostEnable:      1,
		OutputDelay:      0,
		Address:          4,
		UpDownLimit:      0,
		SensorSelection:  SensorBuiltIn,
		OptimumStart:     0,
		RateOfChange:     20,
		ProgramMode:      programMode,
		FrostTemp:        12,
		TargetTemp:       21,
		FloorLimit:       28,
		FloorLimitEnable: 0,
		OnOff:            1,
		KeyLock:          0,
		RunModeBit:       0,
		RemoteAirRaw:     SensorNotConnected,
		FloorRaw:         SensorNotConnected,
		BuiltInRaw:       195,
		HeatState:        1,
		Clock:            Clock{DayOfWeek: 3, Hour: 14, Minute: 5, Second: 9},
		Weekday: Schedule{
			{Hour: 7, Minute: 0, Temperature: 21},
			{Hour: 9, Minute: 0, Temperature: 16},
			{Hour: 17, Minute: 30, Temperature: 21},
			{Hour: 22, Minute: 0, Temperature: 16},
		},
		Weekend: Schedule{
			{Hour: 8, Minute: 0, Temperature: 21},
			{Hour: 23, Minute: 0, Temperature: 16},
			{Hour: 24, Minute: 0, Temperature: 16},
			{Hour: 24, Minute: 0, Temperature: 16},
		},
	}
	if programMode == ProgramSevenDay {
		p.HasSevenDay = true
		for day := range p.SevenDay {
			p.SevenDay[day] = p.Weekday
			p.SevenDay[day][0].Hour = uint8(5 + day)
		}
	}
	return p
}

func sampleDCB(programMode uint8) []byte {
	return EncodeDCB(sampleParameters(programMode))
}

func TestDecodeDCB_FiveTwo(t *testing.T) {
	dcb := sampleDCB(ProgramFiveTwo)
	if len(dcb) != MinDCBLength {
		t.Fatalf("5/2 DCB length = %d, want %d", len(dcb), MinDCBLength)
	}

	p, err := DecodeDCB(dcb)
	if err != nil {
		t.Fatalf("DecodeDCB() error = %v", err)
	}

	if p.Address != 4 || p.TargetTemp != 21 || p.FrostTemp != 12 {
		t.Errorf("address/target/frost = %d/%d/%d", p.Address, p.TargetTemp, p.FrostTemp)
	}
	if p.BuiltInTemp != 19.5 {
		t.Errorf("BuiltInTemp = %v, want 19.5", p.BuiltInTemp)
	}
	if p.Clock != (Clock{DayOfWeek: 3, Hour: 14, Minute: 5, Second: 9}) {
		t.Errorf("Clock = %+v", p.Clock)
	}
	if p.Weekday[2] != (ComfortLevel{Hour: 17, Minute: 30, Temperature: 21}) {
		t.Errorf("Weekday[2] = %+v", p.Weekday[2])
	}
	if p.HasSevenDay {
		t.Error("5/2 DCB should not carry 7-day schedules")
	}
	if len(p.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", p.Anomalies)
	}
	if p.Length != MinDCBLength {
		t.Errorf("Length = %d", p.Length)
	}
}

func TestDecodeDCB_SevenDay(t *testing.T) {
	p, err := DecodeDCB(sampleDCB(ProgramSevenDay))
	if err != nil {
		t.Fatalf("DecodeDCB() error = %v", err)
	}
	if !p.HasSevenDay {
		t.Fatal("7-day schedules missing")
	}
	for day := 1; day <= 7; day++ {
		if got := p.DaySchedule(day)[0].Hour; got != uint8(4+day) {
			t.Errorf("day %d first level hour = %d, want %d", day, got, 4+day)
		}
	}
	if p.DaySchedule(0) != (Schedule{}) || p.DaySchedule(8) != (Schedule{}) {
		t.Error("out of range day should yield an empty schedule")
	}
}

func TestDecodeDCB_SevenDayModeTruncated(t *testing.T) {
	dcb := sampleDCB(ProgramSevenDay)[:100]
	p, err := DecodeDCB(dcb)
	if err != nil {
		t.Fatalf("DecodeDCB() error = %v", err)
	}
	if p.HasSevenDay {
		t.Error("truncated 7-day DCB should not report schedules")
	}

	fields := map[string]bool{}
	for _, a := range p.Anomalies {
		if a.Type == AnomalyLengthMismatch {
			fields[a.Field] = true
		}
	}
	if !fields["length"] || !fields["seven_day"] {
		t.Errorf("anomalies = %v, want length and seven_day mismatches", p.Anomalies)
	}
}

func TestDecodeDCB_FloorLimitOutOfRange(t *testing.T) {
	dcb := sampleDCB(ProgramFiveTwo)
	dcb[dcbFloorLimit] = 50

	p, err := DecodeDCB(dcb)
	if err != nil {
		t.Fatalf("DecodeDCB() error = %v", err)
	}
	if p.FloorLimit != 50 {
		t.Errorf("FloorLimit = %d, want raw 50", p.FloorLimit)
	}
	if len(p.Anomalies) != 1 || p.Anomalies[0].Field != "floor_limit" || p.Anomalies[0].Type != AnomalyOutOfRange {
		t.Errorf("anomalies = %v, want one floor_limit out of range", p.Anomalies)
	}
}

func TestDecodeDCB_Short(t *testing.T) {
	_, err := DecodeDCB(make([]byte, MinDCBLength-1))
	if !errors.Is(err, ErrShortDCB) {
		t.Errorf("error = %v, want ErrShortDCB", err)
	}
}

func TestDecodeDCB_VersionAndFloorLimitBit(t *testing.T) {
	dcb := sampleDCB(ProgramFiveTwo)
	dcb[dcbVersion] = 0x80 | 0x13
	p, _ := DecodeDCB(dcb)
	if p.Version != 0x13 || !p.FloorLimitState {
		t.Errorf("version = %d, floor limit = %v", p.Version, p.FloorLimitState)
	}
}

func TestDecodeDCB_OutOfRangeFlaggedNotClamped(t *testing.T) {
	dcb := sampleDCB(ProgramFiveTwo)
	dcb[dcbFrostTemp] = 30
	dcb[dcbDayOfWeek] = 0

	p, err := DecodeDCB(dcb)
	if err != nil {
		t.Fatalf("DecodeDCB() error = %v", err)
	}
	if p.FrostTemp != 30 {
		t.Errorf("FrostTemp = %d, want raw 30", p.FrostTemp)
	}

	fields := map[string]bool{}
	for _, a := range p.Anomalies {
		fields[a.Field] = true
		if a.Type != AnomalyOutOfRange {
			t.Errorf("anomaly %s type = %s", a.Field, a.Type)
		}
	}
	if !fields["frost_temp"] || !fields["day"] {
		t.Errorf("anomalies = %v, want frost_temp and day", p.Anomalies)
	}
}

func TestValidateParameters_SensorAndErrorCode(t *testing.T) {
	p := sampleParameters(ProgramFiveTwo)
	p.SensorSelection = SensorRemote
	p.ErrorCode = 0xE1

	types := map[AnomalyType]bool{}
	for _, a := range ValidateParameters(p) {
		types[a.Type] = true
	}
	if !types[AnomalySensorFault] {
		t.Error("missing sensor fault for disconnected remote probe")
	}
	if !types[AnomalyDeviceError] {
		t.Error("missing device error anomaly")
	}
}

func TestCurrentTemperature(t *testing.T) {
	p := &ParameterSet{BuiltInTemp: 20.5, RemoteAirTemp: 18.0, FloorTemp: 25.5}
	tests := []struct {
		sel  uint8
		want float64
	}{
		{SensorBuiltIn, 20.5},
		{SensorRemote, 18.0},
		{SensorFloor, 25.5},
		{SensorBuiltInAndFloor, 20.5},
		{SensorRemoteAndFloor, 18.0},
		{9, 25.5},
	}
	for _, tt := range tests {
		p.SensorSelection = tt.sel
		if got := p.CurrentTemperature(); got != tt.want {
			t.Errorf("sensor %d: CurrentTemperature() = %v, want %v", tt.sel, got, tt.want)
		}
	}
}

func TestUnit(t *testing.T) {
	p := &ParameterSet{TempFormat: Fahrenheit}
	if p.Unit() != "°F" {
		t.Errorf("Unit() = %q", p.Unit())
	}
}

func TestApplyWrite(t *testing.T) {
	dcb := sampleDCB(ProgramFiveTwo)
	w, _ := EncodeWrite(ParamTargetTemp, 25)
	ApplyWrite(dcb, w.Start, w.Payload)
	ApplyWrite(dcb, uint16(len(dcb)-1), []byte{1, 2, 3})

	p, _ := DecodeDCB(dcb)
	if p.TargetTemp != 25 {
		t.Errorf("TargetTemp = %d, want 25", p.TargetTemp)
	}
}

func TestFormatParameterSet(t *testing.T) {
	p, _ := DecodeDCB(sampleDCB(ProgramFiveTwo))
	out := FormatParameterSet(p)
	for _, want := range []string{"Mode:          heat", "19.5°C", "Wed 14:05:09", "17:30 21", "23:00 16"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "24:00") {
		t.Error("unused comfort levels should be skipped")
	}
}
