// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/internal/poller"
)

var (
	monitorInterval time.Duration
	useTUI          bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch every configured thermostat live",
	Long: `Poll the configured thermostats and show their state, per-device read and
write statistics and the line-wide error summary.

In the terminal UI the highlighted thermostat can be changed:
  t  set target temperature
  f  set frost temperature
  m  toggle between auto and off (frost protect)
  r  read it again now

With --tui=false every poll is printed as a line of text instead.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 10*time.Second, "Poll interval")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if useTUI {
		// Logs would tear the alt screen; the event log shows failures instead
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}

	cfg, line, connInfo, logger, err := connect()
	if err != nil {
		return err
	}
	defer line.Close()

	if len(cfg.Devices) == 0 {
		return errors.New("no devices configured (add a devices section to the config file)")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !useTUI {
		fmt.Printf("prtbus - Monitor\n")
		fmt.Printf("Connection: %s\n", connInfo)
		fmt.Printf("Interval: %v\n", monitorInterval)
		fmt.Printf("Press Ctrl+C to exit\n\n")

		p, err := poller.New(poller.Config{Interval: monitorInterval, Devices: pollerDevices(cfg)}, line, logger,
			poller.SinkFunc(printSnapshot))
		if err != nil {
			return err
		}
		p.Run(ctx)
		fmt.Printf("\n%s\n", line.Statistics())
		return nil
	}

	p, err := poller.New(poller.Config{Interval: monitorInterval, Devices: pollerDevices(cfg)}, line, logger)
	if err != nil {
		return err
	}

	m := initialMonitorModel(ctx, line, func(ctx context.Context, id uint8) { p.PollDevice(ctx, id) }, connInfo, pollerDevices(cfg))
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	p.AddSink(poller.SinkFunc(func(s poller.Snapshot) { program.Send(snapshotMsg(s)) }))

	go p.Run(ctx)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
