// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// serialConn wraps a serial port
type serialConn struct {
	port serial.Port
}

func (s *serialConn) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *serialConn) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialConn) Close() error {
	return s.port.Close()
}

func (s *serialConn) SetReadTimeout(d time.Duration) error {
	return s.port.SetReadTimeout(d)
}

func (s *serialConn) ResetInput() error {
	return s.port.ResetInputBuffer()
}

// SerialDialer opens portName at baudRate, 8N1
func SerialDialer(portName string, baudRate int) Dialer {
	return func() (Conn, error) {
		mode := &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}

		port, err := serial.Open(portName, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
		}

		return &serialConn{port: port}, nil
	}
}

// ListSerialPorts returns the serial ports present on this machine
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
