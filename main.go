// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad
//
// prtbus - Heatmiser PRT-N RS485 line tool
//
// A CLI tool for reading, configuring and monitoring Heatmiser thermostats
// sharing one RS485 line.

package main

import (
	"os"

	"github.com/Thermoquad/prtbus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
