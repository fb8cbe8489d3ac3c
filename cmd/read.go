// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

var readRaw bool

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Read the full parameter set of a thermostat",
	Long: `Read every DCB field of one thermostat and print it.

The read is retried on CRC errors, missing replies and malformed frames.
Read and write statistics for the thermostat are printed after the data.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Also print the DCB as hex")
}

func runRead(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	cfg, line, connInfo, _, err := connect(addr)
	if err != nil {
		return err
	}
	defer line.Close()

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Thermostat: %d (%s)\n\n", addr, cfg.DeviceName(addr))

	p, err := line.ReadDevice(cmd.Context(), addr)
	if err != nil {
		return err
	}

	fmt.Print(heatmiser.FormatParameterSet(p))
	if readRaw {
		fmt.Printf("\nDCB: %s\n", heatmiser.FormatHex(heatmiser.EncodeDCB(p)))
	}

	read, write := line.StatsFor(addr)
	fmt.Printf("\nRead stats:  %s\nWrite stats: %s\n", read, write)
	return nil
}
