// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/Thermoquad/prtbus/pkg/rs485"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping <id>",
	Short: "Repeatedly read a thermostat and report latency and retries",
	Long: `Read a thermostat several times and report each outcome.

This is useful for verifying:
  - The line medium is connected
  - The thermostat answers at its address
  - How often reads need a retry on this line

Each read goes through the full retry engine, so a ping that needed retries
is reported with the kind of fault that caused them.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", time.Second, "Pause between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	_, line, connInfo, _, err := connect(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer line.Close()

	fmt.Printf("prtbus - Thermostat Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Thermostat: %d\n", addr)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	failCount := 0
	lineDown := false

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		before := line.Statistics().Device(addr).Read
		p, err := line.ReadDevice(cmd.Context(), addr)
		rtt := time.Since(startTime).Round(time.Millisecond)

		var hard *rs485.HardFailureError
		switch {
		case err == nil:
			after := line.Statistics().Device(addr).Read
			retry := ""
			if after.Soft > before.Soft {
				retry = " (retried)"
			}
			fmt.Printf("REPLY %.1f%s, mode=%s, rtt=%v%s\n", p.CurrentTemperature(), p.Unit(), p.Mode(), rtt, retry)
			successCount++

		case errors.As(err, &hard):
			fmt.Printf("FAILED after %d attempts: %s (%v)\n", hard.Attempts, hard.Kind, hard.Err)
			failCount++
			lineDown = hard.Kind == heatmiser.LineFault

		default:
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		}

		if lineDown || cmd.Context().Err() != nil {
			break
		}
		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	read, _ := line.StatsFor(addr)
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		successCount+failCount, successCount, float64(failCount)/float64(successCount+failCount)*100)
	fmt.Printf("Read stats: %s\n", read)

	if lineDown {
		os.Exit(2)
	}
	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
