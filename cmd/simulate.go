// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/internal/config"
	"github.com/Thermoquad/prtbus/internal/sim"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

var (
	simListen   string
	simStats    []int
	simSevenDay bool
	simFaults   sim.Faults
	simSeed     int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a virtual thermostat line over TCP",
	Long: `Serve virtual PRT-N thermostats on a TCP port, behaving like an IP to
RS485 adaptor with stats attached. Point another prtbus at it with --tcp.

Thermostats come from --stats, or from the devices section of --config.
Reads return each stat's DCB and writes change it. Faults can be injected
per reply:
  --drop           no reply (NDR on the client)
  --corrupt        one flipped bit (CRC on the client)
  --wrong-address  reply from another stat (OTH on the client)

Example:
  prtbus simulate --listen :1024 --stats 1,2,3 --drop 0.05
  prtbus --tcp localhost:1024 read 2`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simListen, "listen", ":1024", "TCP listen address")
	simulateCmd.Flags().IntSliceVar(&simStats, "stats", nil, "Thermostat addresses (default 1,2,3)")
	simulateCmd.Flags().BoolVar(&simSevenDay, "seven-day", false, "Simulate stats in 7-day program mode")
	simulateCmd.Flags().Float64Var(&simFaults.Drop, "drop", 0, "Probability of dropping a reply")
	simulateCmd.Flags().Float64Var(&simFaults.Corrupt, "corrupt", 0, "Probability of corrupting a reply")
	simulateCmd.Flags().Float64Var(&simFaults.WrongAddress, "wrong-address", 0, "Probability of replying from the wrong address")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Fault injection seed (0 = random)")
}

// simAddresses resolves the simulated addresses from flags, then config,
// then the default
func simAddresses(stats []int, cfg *config.Config) ([]uint8, error) {
	if len(stats) == 0 && cfg != nil {
		return cfg.DeviceIDs(), nil
	}
	if len(stats) == 0 {
		return []uint8{1, 2, 3}, nil
	}

	out := make([]uint8, 0, len(stats))
	seen := make(map[int]bool, len(stats))
	for _, s := range stats {
		if s < heatmiser.MinAddress || s > heatmiser.MaxAddress {
			return nil, fmt.Errorf("stat address %d out of range %d-%d", s, heatmiser.MinAddress, heatmiser.MaxAddress)
		}
		if seen[s] {
			return nil, fmt.Errorf("stat address %d given twice", s)
		}
		seen[s] = true
		out = append(out, uint8(s))
	}
	return out, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := simFaults.Validate(); err != nil {
		return err
	}

	var cfg *config.Config
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := config.ValidateDevices(c.Devices); err != nil {
			return err
		}
		if len(c.Devices) > 0 {
			cfg = c
		}
	}
	addrs, err := simAddresses(simStats, cfg)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.Log.Level
	}
	logger := newLogger(level, logJSON)

	opts := []sim.Option{sim.WithFaults(simFaults), sim.WithLogger(logger)}
	if simSeed != 0 {
		opts = append(opts, sim.WithSeed(simSeed))
	}
	bus := sim.NewBus(opts...)
	now := time.Now()
	for _, addr := range addrs {
		bus.Add(sim.NewThermostat(addr, simSevenDay, now))
	}

	logger.Info().Float64("drop", simFaults.Drop).Float64("corrupt", simFaults.Corrupt).
		Float64("wrong_address", simFaults.WrongAddress).Msg("Fault injection")

	return sim.NewServer(bus, logger).ListenAndServe(cmd.Context(), simListen)
}
