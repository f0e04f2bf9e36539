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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-extn/pkg/metrics"
)

func TestFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	var customized []string
	f := metrics.ApplyOptions(
		metrics.WithRegistry(reg),
		metrics.WithCollectorCustomizer(
			func(name string, c prometheus.Collector) prometheus.Collector {
				customized = append(customized, name)
				return c
			},
		),
	).Auto()

	packets := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Name:      "packets_total",
		Help:      "Packets.",
	}, []string{"result"})
	packets.WithLabelValues("ok_success").Add(2)
	inflight := f.NewGauge(prometheus.GaugeOpts{Name: "inflight", Help: "Inflight."})
	inflight.Set(3)
	size := f.NewHistogram(prometheus.HistogramOpts{
		Name:    "size_bytes",
		Help:    "Size.",
		Buckets: []float64{8, 16},
	})
	size.Observe(8)
	f.NewCounter(prometheus.CounterOpts{Name: "errors_total", Help: "Errors."}).Inc()

	assert.Equal(t, []string{"test_packets_total", "inflight", "size_bytes", "errors_total"},
		customized)
	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Constructing the same collector again yields the registered one.
	again := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Name:      "packets_total",
		Help:      "Packets.",
	}, []string{"result"})
	assert.Same(t, packets, again)
	assert.Equal(t, float64(2), testutil.ToFloat64(again.WithLabelValues("ok_success")))
}

func TestFactoryDefaultRegistry(t *testing.T) {
	f := metrics.ApplyOptions().Auto()
	c := f.NewCounter(prometheus.CounterOpts{
		Name: "metrics_test_default_registry_total",
		Help: "Test.",
	})
	defer prometheus.DefaultRegisterer.Unregister(c)
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "metrics_test_default_registry_total" {
			found = true
		}
	}
	assert.True(t, found)
}
