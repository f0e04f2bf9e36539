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

// Package metrics provides a factory for prometheus collectors that registers
// them with a configurable registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/scion-extn/pkg/private/prom"
)

type Option func(*Options)

// Options configures the metrics Factory, construct it using the ApplyOptions
// function.
type Options struct {
	registry            prometheus.Registerer
	collectorCustomizer func(string, prometheus.Collector) prometheus.Collector
}

func (o Options) registerer() prometheus.Registerer {
	if o.registry != nil {
		return o.registry
	}
	return prometheus.DefaultRegisterer
}

// WithCollectorCustomizer sets a customizer function that is called for each
// collector before it is registered. The function receives the fully qualified
// name of the collector and the collector itself, and must return the collector
// to be registered.
func WithCollectorCustomizer(
	customizer func(string, prometheus.Collector) prometheus.Collector,
) Option {
	return func(o *Options) {
		o.collectorCustomizer = customizer
	}
}

// WithRegistry sets the registry the collectors are registered with.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.registry = registry
	}
}

func ApplyOptions(options ...Option) Options {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// Auto creates a Factory that uses the provided Options as registry. If no
// explicit registry is set the default registry is used.
func (o Options) Auto() Factory {
	return Factory{opts: o}
}

// Factory is a metrics Factory that registers metrics using the provided
// Options. Construct it using the Options.Auto function.
//
// Registering a collector whose descriptor is already registered returns the
// existing collector, so that constructing the same metrics twice against one
// registry is safe.
type Factory struct {
	opts Options
}

func (f Factory) register(fqName string, c prometheus.Collector) prometheus.Collector {
	if f.opts.collectorCustomizer != nil {
		c = f.opts.collectorCustomizer(fqName, c)
	}
	return prom.SafeRegister(f.opts.registerer(), c)
}

func (f Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	fqName := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if r, ok := f.register(fqName, c).(prometheus.Counter); ok {
		return r
	}
	return c
}

func (f Factory) NewCounterVec(
	opts prometheus.CounterOpts,
	labelNames []string,
) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labelNames)
	fqName := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if r, ok := f.register(fqName, c).(*prometheus.CounterVec); ok {
		return r
	}
	return c
}

func (f Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	fqName := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if r, ok := f.register(fqName, g).(prometheus.Gauge); ok {
		return r
	}
	return g
}

func (f Factory) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	fqName := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if r, ok := f.register(fqName, h).(prometheus.Histogram); ok {
		return r
	}
	return h
}
