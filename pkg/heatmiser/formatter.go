// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

import (
	"fmt"
	"strings"
)

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DayName returns the short name for day (1 = Monday .. 7 = Sunday)
func DayName(day uint8) string {
	if day < 1 || day > 7 {
		return fmt.Sprintf("day%d", day)
	}
	return dayNames[day-1]
}

// FormatClock renders the stat clock as "Mon 07:30:00"
func FormatClock(c Clock) string {
	return fmt.Sprintf("%s %02d:%02d:%02d", DayName(c.DayOfWeek), c.Hour, c.Minute, c.Second)
}

// FormatSchedule renders comfort levels, skipping unused (hour 24) slots
func FormatSchedule(s Schedule) string {
	parts := make([]string, 0, len(s))
	for _, level := range s {
		if level.Hour >= 24 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%02d:%02d %d", level.Hour, level.Minute, level.Temperature))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// FormatHex renders raw bytes the way the monitor prints them
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatFrame formats a decoded frame into a one-line summary
func FormatFrame(f *Frame) string {
	if f.Function == FuncWrite && f.IsAck() {
		return fmt.Sprintf("WRITE_ACK stat=%d master=%d", f.Source, f.Dest)
	}
	stat, master := f.Source, f.Dest
	if !isMasterAddress(f.Dest) {
		stat, master = f.Dest, f.Source
	}
	return fmt.Sprintf("%s stat=%d master=%d start=%d count=%d dcb=%d bytes",
		strings.ToUpper(f.Function.String()), stat, master, f.Start, f.Count, len(f.Payload))
}

// FormatParameterSet formats a parameter set into a human-readable block
func FormatParameterSet(p *ParameterSet) string {
	var sb strings.Builder
	unit := p.Unit()

	fmt.Fprintf(&sb, "Address:       %d (model %d, vendor %d, v%d)\n", p.Address, p.Model, p.VendorID, p.Version)
	fmt.Fprintf(&sb, "Mode:          %s\n", p.Mode())
	fmt.Fprintf(&sb, "Temperature:   %.1f%s\n", p.CurrentTemperature(), unit)
	fmt.Fprintf(&sb, "Target:        %d%s\n", p.TargetTemp, unit)
	fmt.Fprintf(&sb, "Frost:         %d%s\n", p.FrostTemp, unit)
	fmt.Fprintf(&sb, "Heating:       %v\n", p.Heating())
	fmt.Fprintf(&sb, "On:            %v\n", p.OnOff == 1)
	fmt.Fprintf(&sb, "Key lock:      %v\n", p.KeyLock == 1)
	fmt.Fprintf(&sb, "Sensors:       air=%.1f remote=%.1f floor=%.1f (select %d)\n",
		p.BuiltInTemp, p.RemoteAirTemp, p.FloorTemp, p.SensorSelection)
	fmt.Fprintf(&sb, "Floor limit:   %d%s (enabled %d, reached %v)\n", p.FloorLimit, unit, p.FloorLimitEnable, p.FloorLimitState)
	fmt.Fprintf(&sb, "Holiday:       %dh  Hold: %dm\n", p.HolidayHours, p.TempHold)
	fmt.Fprintf(&sb, "Clock:         %s\n", FormatClock(p.Clock))

	if p.HasSevenDay {
		for day := 1; day <= 7; day++ {
			fmt.Fprintf(&sb, "%-15s%s\n", DayName(uint8(day))+":", FormatSchedule(p.DaySchedule(day)))
		}
	} else {
		fmt.Fprintf(&sb, "Weekday:       %s\n", FormatSchedule(p.Weekday))
		fmt.Fprintf(&sb, "Weekend:       %s\n", FormatSchedule(p.Weekend))
	}

	if p.ErrorCode != 0 {
		fmt.Fprintf(&sb, "Error code:    0x%02X\n", p.ErrorCode)
	}
	for _, a := range p.Anomalies {
		fmt.Fprintf(&sb, "  ⚠ %s\n", a.Message)
	}

	return sb.String()
}
