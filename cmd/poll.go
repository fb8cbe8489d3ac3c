// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtbus/internal/config"
	"github.com/Thermoquad/prtbus/internal/poller"
	"github.com/Thermoquad/prtbus/internal/publish"
	"github.com/Thermoquad/prtbus/pkg/rs485"
)

var (
	pollInterval time.Duration
	pollMetrics  string
	pollOnce     bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll every configured thermostat and export the readings",
	Long: `Read every thermostat in the configuration on a fixed interval.

Readings and line statistics are exported as Prometheus metrics when
metrics.listen (or --metrics) is set. With an mqtt.broker configured each
thermostat's state is published retained to <topic>/<id>/state, and
<topic>/<id>/set/<param> messages are written to the thermostat.

A line summary (transactions and errors by kind) is logged every
line.summary_every transactions.`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Poll interval (overrides poll.interval_s)")
	pollCmd.Flags().StringVar(&pollMetrics, "metrics", "", "Metrics listen address, e.g. :9485 (overrides metrics.listen)")
	pollCmd.Flags().BoolVar(&pollOnce, "once", false, "Poll once, print the states and exit")
}

func pollerDevices(cfg *config.Config) []poller.Device {
	out := make([]poller.Device, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		out = append(out, poller.Device{ID: d.ID, Name: d.Name})
	}
	return out
}

// logSink reports each snapshot on the operational log
func logSink(logger zerolog.Logger) poller.Sink {
	return poller.SinkFunc(func(s poller.Snapshot) {
		if s.Err != nil {
			logger.Warn().Err(s.Err).Uint8("device", s.ID).Str("name", s.Name).Bool("stale", s.Stale()).Msg("Poll failed")
			return
		}
		logger.Info().Uint8("device", s.ID).Str("name", s.Name).
			Float64("temp", s.Params.CurrentTemperature()).Uint8("target", s.Params.TargetTemp).
			Str("mode", s.Params.Mode().String()).Bool("heating", s.Params.Heating()).
			Str("read_stats", s.ReadStats).Str("write_stats", s.WriteStats).Msg("Polled")
	})
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, line, connInfo, logger, err := connect()
	if err != nil {
		return err
	}
	defer line.Close()

	if len(cfg.Devices) == 0 {
		return errors.New("no devices configured (add a devices section to the config file)")
	}
	interval := cfg.PollInterval()
	if pollInterval > 0 {
		interval = pollInterval
	}
	if pollMetrics != "" {
		cfg.Metrics.Listen = pollMetrics
	}

	logger.Info().Str("connection", connInfo).Int("devices", len(cfg.Devices)).Dur("interval", interval).Msg("Polling")

	p, err := poller.New(poller.Config{Interval: interval, Devices: pollerDevices(cfg)}, line, logger, logSink(logger))
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if pollOnce {
		for _, s := range p.PollOnce(ctx) {
			printSnapshot(s)
		}
		return nil
	}

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(rs485.NewCollector(line.Statistics()))
		p.AddSink(poller.NewGaugeSink(reg))
		go serveMetrics(ctx, cfg.Metrics.Listen, reg, logger)
	}

	if cfg.MQTT.Enabled() {
		pub, err := startPublisher(ctx, cfg, line, p, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		p.AddSink(pub)
	}

	p.Run(ctx)

	logger.Info().EmbedObject(line.Statistics().LineSummary()).Msg("Line summary")
	return nil
}

func startPublisher(ctx context.Context, cfg *config.Config, line *rs485.Line, p *poller.Poller, logger zerolog.Logger) (*publish.Publisher, error) {
	pub := publish.New(ctx, publish.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: os.Getenv("PRTBUS_MQTT_PASSWORD"),
		Topic:    cfg.MQTT.Topic,
	}, line, logger)
	pub.OnWrite(func(ctx context.Context, id uint8) { p.PollDevice(ctx, id) })

	if err := pub.Connect(); err != nil {
		return nil, err
	}
	return pub, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Metrics server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}

func printSnapshot(s poller.Snapshot) {
	if s.Params == nil {
		fmt.Printf("%3d %-16s offline: %v\n", s.ID, s.Name, s.Err)
		return
	}
	p := s.Params
	fmt.Printf("%3d %-16s %5.1f%s target %2d%s %-4s heating=%-5v read %s write %s\n",
		s.ID, s.Name, p.CurrentTemperature(), p.Unit(), p.TargetTemp, p.Unit(),
		p.Mode(), p.Heating(), s.ReadStats, s.WriteStats)
}
