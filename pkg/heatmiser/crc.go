// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package heatmiser

// CalculateCRC computes CRC-16-CCITT checksum for the given data
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// appendCRC appends the checksum of data, low byte first
func appendCRC(data []byte) []byte {
	crc := CalculateCRC(data)
	return append(data, byte(crc&0xFF), byte(crc>>8))
}

// checkCRC verifies the trailing two bytes of frame against the rest
func checkCRC(frame []byte) (received, calculated uint16, ok bool) {
	n := len(frame)
	received = uint16(frame[n-2]) | uint16(frame[n-1])<<8
	calculated = CalculateCRC(frame[:n-2])
	return received, calculated, received == calculated
}
