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

// Package extnproc processes the extension chains of received packets. A
// packet with a broken chain is dropped, counted and logged; processing
// continues with the next packet.
package extnproc

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/scionproto/scion-extn/pkg/log"
	"github.com/scionproto/scion-extn/pkg/private/prom"
	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/pkg/slayers/extn"
)

// Drop results.
const (
	ResultMalformedLength = "err_malformed_length"
	ResultBufferOverrun   = "err_buffer_overrun"
	ResultBadOrder        = "err_bad_order"
	ResultTooManyHBH      = "err_too_many_hbh"
)

// Packet is a received packet positioned on its extension chain.
type Packet struct {
	// ID identifies the packet in logs and results.
	ID string
	// Chain is the packet starting at the first extension record, i.e., right
	// after the common and address headers. It may contain the L4 data.
	Chain []byte
	// FirstClass is the next header field of the common header.
	FirstClass extn.Class
}

// Lookup is the outcome of a single extension query.
type Lookup struct {
	Query  extn.ExtnType
	Found  bool
	Offset int
	Len    int
}

// Result is the outcome of processing a single packet.
type Result struct {
	ID string
	// Label classifies the result, it is prom.Success or one of the Result
	// constants.
	Label string
	// Dropped is set if the packet has to be dropped. Err contains the reason.
	Dropped bool
	Err     error
	// Total is the length of the extension chain in bytes.
	Total int
	// NextHdr is the L4 protocol following the chain.
	NextHdr    extn.Class
	Extensions []extn.Extension
	Lookups    []Lookup
}

// Processor processes extension chains.
type Processor struct {
	// Queries are looked up in every accepted chain.
	Queries []extn.ExtnType
	// Validate enables the order validation of the chain.
	Validate bool
	// Metrics is optional.
	Metrics *Metrics
}

// Process parses the extension chain of pkt. It never fails; errors are
// reported in the result and the packet is marked as dropped.
func (p *Processor) Process(ctx context.Context, pkt Packet) Result {
	r := p.process(pkt)
	if r.Dropped {
		log.FromCtx(ctx).Debug("Dropping packet", "id", pkt.ID, "result", r.Label,
			"err", r.Err)
	}
	p.Metrics.observe(r)
	return r
}

func (p *Processor) process(pkt Packet) Result {
	r := Result{ID: pkt.ID, NextHdr: pkt.FirstClass}
	if pkt.FirstClass.IsExtension() {
		total, err := extn.TotalLen(pkt.Chain)
		if err != nil {
			return drop(r, err)
		}
		r.Total = total
	}
	exts, next, err := extn.Decode(pkt.Chain, pkt.FirstClass, nil)
	if err != nil {
		return drop(r, err)
	}
	r.Extensions, r.NextHdr = exts, next
	if p.Validate {
		if err := extn.Validate(exts); err != nil {
			return drop(r, err)
		}
	}
	if len(p.Queries) > 0 {
		r.Lookups = make([]Lookup, 0, len(p.Queries))
	}
	for _, q := range p.Queries {
		e, found, err := extn.Find(pkt.Chain, pkt.FirstClass, q)
		if err != nil {
			return drop(r, err)
		}
		l := Lookup{Query: q, Found: found}
		if found {
			l.Offset, l.Len = e.Offset, e.Len()
		}
		r.Lookups = append(r.Lookups, l)
	}
	r.Label = prom.Success
	return r
}

func drop(r Result, err error) Result {
	r.Dropped = true
	r.Err = err
	r.Label = Classify(err)
	r.Extensions, r.Lookups = nil, nil
	return r
}

// Classify maps a processing error to its result label.
func Classify(err error) string {
	switch {
	case err == nil:
		return prom.Success
	case errors.Is(err, extn.ErrMalformedLength):
		return ResultMalformedLength
	case errors.Is(err, extn.ErrBufferOverrun):
		return ResultBufferOverrun
	case errors.Is(err, extn.ErrBadOrder):
		return ResultBadOrder
	case errors.Is(err, extn.ErrTooManyHBH):
		return ResultTooManyHBH
	default:
		return prom.ErrNotClassified
	}
}

// ProcessAll processes pkts with at most workers concurrent goroutines. The
// results are in the order of pkts. If ctx is done, processing stops and an
// error wrapping ctx.Err() is returned instead of the results.
func (p *Processor) ProcessAll(ctx context.Context, pkts []Packet,
	workers int) ([]Result, error) {

	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(pkts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pkt := range pkts {
		if gctx.Err() != nil {
			break
		}
		i, pkt := i, pkt
		g.Go(func() error {
			defer log.HandlePanic()
			if err := gctx.Err(); err != nil {
				return err
			}
			p.Metrics.inflight(1)
			defer p.Metrics.inflight(-1)
			results[i] = p.Process(gctx, pkt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, serrors.Wrap("processing packets", err, "packets", len(pkts))
	}
	// The group context is canceled once Wait returns, only the parent tells
	// whether processing was interrupted.
	if err := ctx.Err(); err != nil {
		return nil, serrors.Wrap("processing packets", err, "packets", len(pkts))
	}
	return results, nil
}

// Summary aggregates results.
type Summary struct {
	Packets  int
	Dropped  int
	ByResult map[string]int
}

// Summarize aggregates the results.
func Summarize(results []Result) Summary {
	s := Summary{Packets: len(results), ByResult: make(map[string]int)}
	for _, r := range results {
		s.ByResult[r.Label]++
		if r.Dropped {
			s.Dropped++
		}
	}
	return s
}
