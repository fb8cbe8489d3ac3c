// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

var writeCmd = &cobra.Command{
	Use:   "write <id> <param> <value>",
	Short: "Write one parameter to a thermostat",
	Long: `Write one writable DCB parameter.

Parameters: ` + strings.Join(heatmiser.ParamNames(), ", ") + `
Aliases: frost, target, floorlimit, onoff, keylock, runmode

Values are range checked before anything is sent.`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	param, err := heatmiser.ParseParam(args[1])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("value %q is not an integer", args[2])
	}
	// Fail before opening the line
	if _, err := heatmiser.EncodeWrite(param, value); err != nil {
		return err
	}

	_, line, connInfo, _, err := connect(addr)
	if err != nil {
		return err
	}
	defer line.Close()

	fmt.Printf("Connection: %s\n", connInfo)
	if err := line.WriteParameter(cmd.Context(), addr, param, value); err != nil {
		return err
	}

	_, write := line.StatsFor(addr)
	fmt.Printf("Thermostat %d: %s = %d OK (write stats %s)\n", addr, param, value, write)
	return nil
}
