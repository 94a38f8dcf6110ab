// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsExporter republishes a domain's WaitForStatistics result as
// Prometheus gauges, labeled by domain and shard. It holds no history: each
// call to Observe overwrites the previous reading, matching the
// poll-and-report cadence of wait_for_statistics itself.
type StatsExporter struct {
	domainProcessTime  *prometheus.GaugeVec
	domainProcessCount *prometheus.GaugeVec
	domainTotalTime    *prometheus.GaugeVec
	nodeProcessTime    *prometheus.GaugeVec
	nodeProcessCount   *prometheus.GaugeVec
	nodeMemorySize     *prometheus.GaugeVec
}

// NewStatsExporter registers a fresh set of gauges with reg.
func NewStatsExporter(reg prometheus.Registerer) (*StatsExporter, error) {
	e := &StatsExporter{
		domainProcessTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "domain",
			Name:      "process_time_ns",
			Help:      "Cumulative processing time reported by a domain shard.",
		}, []string{"domain", "shard"}),
		domainProcessCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "domain",
			Name:      "process_count",
			Help:      "Cumulative packets processed, reported by a domain shard.",
		}, []string{"domain", "shard"}),
		domainTotalTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "domain",
			Name:      "total_time_ns",
			Help:      "Cumulative wall time reported by a domain shard.",
		}, []string{"domain", "shard"}),
		nodeProcessTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "node",
			Name:      "process_time_ns",
			Help:      "Cumulative processing time reported by one node of a domain shard.",
		}, []string{"domain", "shard", "node"}),
		nodeProcessCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "node",
			Name:      "process_count",
			Help:      "Cumulative packets processed, reported by one node of a domain shard.",
		}, []string{"domain", "shard", "node"}),
		nodeMemorySize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arbor",
			Subsystem: "node",
			Name:      "memory_size_bytes",
			Help:      "State size reported by one node of a domain shard.",
		}, []string{"domain", "shard", "node"}),
	}

	for _, c := range []prometheus.Collector{
		e.domainProcessTime, e.domainProcessCount, e.domainTotalTime,
		e.nodeProcessTime, e.nodeProcessCount, e.nodeMemorySize,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Observe publishes one domain's per-shard statistics.
func (e *StatsExporter) Observe(domain string, shards []ShardStats) {
	for shard, s := range shards {
		shardLabel := strconv.Itoa(shard)
		e.domainProcessTime.WithLabelValues(domain, shardLabel).Set(float64(s.Domain.ProcessTime))
		e.domainProcessCount.WithLabelValues(domain, shardLabel).Set(float64(s.Domain.ProcessCount))
		e.domainTotalTime.WithLabelValues(domain, shardLabel).Set(float64(s.Domain.TotalTime))

		for node, ns := range s.Nodes {
			nodeLabel := strconv.FormatInt(node, 10)
			e.nodeProcessTime.WithLabelValues(domain, shardLabel, nodeLabel).Set(float64(ns.ProcessTime))
			e.nodeProcessCount.WithLabelValues(domain, shardLabel, nodeLabel).Set(float64(ns.ProcessCount))
			e.nodeMemorySize.WithLabelValues(domain, shardLabel, nodeLabel).Set(float64(ns.MemorySize))
		}
	}
}
