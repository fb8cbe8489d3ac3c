// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package rs485

import (
	"strconv"

	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "prtbus"

// Collector exports a Statistics tracker to Prometheus
type Collector struct {
	stats *Statistics

	transactions *prometheus.Desc
	softErrors   *prometheus.Desc
	hardErrors   *prometheus.Desc
	lineOps      *prometheus.Desc
	lineErrors   *prometheus.Desc
}

// NewCollector creates a collector reading stats at scrape time
func NewCollector(stats *Statistics) *Collector {
	return &Collector{
		stats: stats,
		transactions: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "device", "transactions_total"),
			"Transactions attempted per thermostat and operation.",
			[]string{"device", "op"}, nil),
		softErrors: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "device", "soft_errors_total"),
			"Transactions that succeeded after a retry, by last failing kind.",
			[]string{"device", "op", "kind"}, nil),
		hardErrors: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "device", "hard_errors_total"),
			"Transactions that exhausted their attempts, by final kind.",
			[]string{"device", "op", "kind"}, nil),
		lineOps: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "line", "operations_total"),
			"Transactions on the line.",
			nil, nil),
		lineErrors: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "line", "errors_total"),
			"Soft and hard errors on the line by kind.",
			[]string{"kind"}, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transactions
	ch <- c.softErrors
	ch <- c.hardErrors
	ch <- c.lineOps
	ch <- c.lineErrors
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for addr, dev := range c.stats.Snapshot() {
		device := strconv.Itoa(int(addr))
		c.collectCounters(ch, device, OpRead, dev.Read)
		c.collectCounters(ch, device, OpWrite, dev.Write)
	}

	line := c.stats.LineSummary()
	ch <- prometheus.MustNewConstMetric(c.lineOps, prometheus.CounterValue, float64(line.Operations))
	for _, k := range heatmiser.ErrorKinds {
		ch <- prometheus.MustNewConstMetric(c.lineErrors, prometheus.CounterValue, float64(line.ByKind[k]), k.String())
	}
}

func (c *Collector) collectCounters(ch chan<- prometheus.Metric, device string, op Operation, cnt Counters) {
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue, float64(cnt.Attempted), device, op.String())
	for _, k := range heatmiser.ErrorKinds {
		ch <- prometheus.MustNewConstMetric(c.softErrors, prometheus.CounterValue, float64(cnt.SoftByKind[k]), device, op.String(), k.String())
		ch <- prometheus.MustNewConstMetric(c.hardErrors, prometheus.CounterValue, float64(cnt.HardByKind[k]), device, op.String(), k.String())
	}
}
