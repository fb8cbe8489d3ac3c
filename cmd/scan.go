// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/Thermoquad/prtbus/pkg/rs485"
)

var (
	scanFrom uint8
	scanTo   uint8
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find thermostats on the line",
	Long: `Probe an address range with one read-all request per address.

Each address gets a single attempt with no retry, so a noisy line can hide
a stat. Probes are not counted in the statistics.

Exit codes:
  0 - At least one thermostat answered
  1 - No thermostat answered
  2 - Connection error`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Uint8Var(&scanFrom, "from", heatmiser.MinAddress, "First address to probe")
	scanCmd.Flags().Uint8Var(&scanTo, "to", heatmiser.MaxAddress, "Last address to probe")
}

// scanResult is one probed address
type scanResult struct {
	addr    uint8
	params  *heatmiser.ParameterSet
	outcome rs485.Outcome
	rtt     time.Duration
}

func runScan(cmd *cobra.Command, args []string) error {
	if !heatmiser.ValidAddress(scanFrom) || !heatmiser.ValidAddress(scanTo) || scanFrom > scanTo {
		return fmt.Errorf("invalid range %d-%d (valid %d-%d)", scanFrom, scanTo, heatmiser.MinAddress, heatmiser.MaxAddress)
	}

	_, line, connInfo, _, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer line.Close()

	fmt.Printf("prtbus - Line Scan\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Range: %d-%d\n\n", scanFrom, scanTo)

	found := 0
	for addr := int(scanFrom); addr <= int(scanTo); addr++ {
		if cmd.Context().Err() != nil {
			break
		}
		r := probe(cmd, line, uint8(addr))
		fmt.Println(formatScanResult(r))
		if r.params != nil {
			found++
		}
	}

	fmt.Printf("\n--- Scan complete ---\n")
	fmt.Printf("%d thermostat(s) found\n", found)

	if found == 0 {
		os.Exit(1)
	}
	return nil
}

func probe(cmd *cobra.Command, line *rs485.Line, addr uint8) scanResult {
	start := time.Now()
	out := line.Transact(cmd.Context(), heatmiser.NewReadAll(addr))
	r := scanResult{addr: addr, outcome: out, rtt: time.Since(start)}
	if out.OK() {
		if p, err := heatmiser.DecodeDCB(out.Payload()); err == nil {
			r.params = p
		}
	}
	return r
}

func formatScanResult(r scanResult) string {
	switch {
	case r.params != nil:
		p := r.params
		return fmt.Sprintf("%3d: PRT model %d v%d, %.1f%s target %d%s, mode %s, clock %s (rtt %v)",
			r.addr, p.Model, p.Version, p.CurrentTemperature(), p.Unit(), p.TargetTemp, p.Unit(),
			p.Mode(), heatmiser.FormatClock(p.Clock), r.rtt.Round(time.Millisecond))
	case r.outcome.Kind == heatmiser.NoDataReceived:
		return fmt.Sprintf("%3d: -", r.addr)
	default:
		return fmt.Sprintf("%3d: %s (%v)", r.addr, r.outcome.Kind.Short(), r.outcome.Err)
	}
}
