// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extnproc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/scion-extn/pkg/metrics"
	"github.com/scionproto/scion-extn/pkg/private/prom"
)

// Lookup results.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
)

// Metrics are the metrics exported by the Processor. A nil *Metrics disables
// the metrics.
type Metrics struct {
	// Packets counts the processed packets by result.
	Packets *prometheus.CounterVec
	// ChainLength observes the total length of accepted chains.
	ChainLength prometheus.Histogram
	// Lookups counts the extension lookups by extension and result.
	Lookups *prometheus.CounterVec
	// Inflight is the number of packets that are currently processed by
	// ProcessAll.
	Inflight prometheus.Gauge
}

// NewMetrics creates the processor metrics and registers them according to
// opts.
func NewMetrics(opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	return &Metrics{
		Packets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extn_packets_total",
				Help: "Total number of packets whose extension chain was processed.",
			},
			[]string{prom.LabelResult},
		),
		ChainLength: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extn_chain_length_bytes",
				Help:    "Length of the extension chains of accepted packets.",
				Buckets: prom.DefaultSizeBuckets,
			},
		),
		Lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extn_lookups_total",
				Help: "Total number of extension lookups.",
			},
			[]string{prom.LabelExtn, prom.LabelResult},
		),
		Inflight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "extn_packets_inflight",
				Help: "Number of packets currently being processed.",
			},
		),
	}
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	m.Packets.WithLabelValues(r.Label).Inc()
	if r.Dropped {
		return
	}
	m.ChainLength.Observe(float64(r.Total))
	for _, l := range r.Lookups {
		res := LookupNotFound
		if l.Found {
			res = LookupFound
		}
		m.Lookups.WithLabelValues(l.Query.String(), res).Inc()
	}
}

func (m *Metrics) inflight(delta float64) {
	if m == nil {
		return
	}
	m.Inflight.Add(delta)
}
