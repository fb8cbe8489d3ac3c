// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

var modeCmd = &cobra.Command{
	Use:   "mode <id> auto|heat|off|on",
	Short: "Set the run mode of a thermostat",
	Long: `Set the run mode of a thermostat.

  auto, heat, on  normal operation (the stat decides when to heat)
  off             frost protection only

To power a stat down use "write <id> onoff 0".`,
	Args: cobra.ExactArgs(2),
	RunE: runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

// parseModeArg accepts the run modes plus "on" for leaving frost protect
func parseModeArg(s string) (heatmiser.RunMode, error) {
	if strings.EqualFold(strings.TrimSpace(s), "on") {
		return heatmiser.ModeAuto, nil
	}
	return heatmiser.ParseMode(s)
}

func runMode(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	mode, err := parseModeArg(args[1])
	if err != nil {
		return err
	}

	_, line, connInfo, _, err := connect(addr)
	if err != nil {
		return err
	}
	defer line.Close()

	fmt.Printf("Connection: %s\n", connInfo)
	if err := line.SetMode(cmd.Context(), addr, mode); err != nil {
		return err
	}
	fmt.Printf("Thermostat %d: mode %s OK\n", addr, mode)
	return nil
}
