//  Copyright 2026 Google LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package exporter exposes the process catalog as prometheus metrics.
package exporter

import (
	"net/http"
	"strconv"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
	"github.com/GoogleCloudPlatform/procname/ps"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "procname"

// Collector takes a new process snapshot on every scrape.
type Collector struct {
	client ps.ProcessInterface
	names  []string

	infoDesc  *prometheus.Desc
	countDesc *prometheus.Desc
}

// New returns a collector reading from client. If names is not empty only
// processes with one of those names are exported, and every name gets a count
// series even when nothing by that name is running.
func New(client ps.ProcessInterface, names []string) *Collector {
	return &Collector{
		client: client,
		names:  names,
		infoDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "process_info"),
			"Running process with its resolved program name, always 1.",
			[]string{"pid", "name"}, nil,
		),
		countDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "processes"),
			"Number of running processes per resolved program name.",
			[]string{"name"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.infoDesc
	ch <- c.countDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var procs []ps.Process
	counts := make(map[string]int)

	if len(c.names) > 0 {
		procs = c.client.Find(c.names)
		for _, name := range c.names {
			counts[name] = 0
		}
	} else {
		procs = c.client.All()
	}

	for _, p := range procs {
		counts[p.Name]++
		ch <- prometheus.MustNewConstMetric(c.infoDesc, prometheus.GaugeValue, 1, strconv.Itoa(p.Pid), p.Name)
	}

	for name, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.countDesc, prometheus.GaugeValue, float64(n), name)
	}

	logger.Debugf("Collected %d processes with %d distinct names", len(procs), len(counts))
}

// Handler returns an http.Handler serving the collector's metrics from its own
// registry.
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOptions{})
}
