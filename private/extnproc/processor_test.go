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

package extnproc_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/scionproto/scion-extn/pkg/log"
	"github.com/scionproto/scion-extn/pkg/log/testlog"
	"github.com/scionproto/scion-extn/pkg/metrics"
	"github.com/scionproto/scion-extn/pkg/private/prom"
	"github.com/scionproto/scion-extn/pkg/private/xtest"
	"github.com/scionproto/scion-extn/pkg/slayers/extn"
	"github.com/scionproto/scion-extn/private/extnproc"
)

var (
	// hbh traceroute, e2e path transport, then UDP.
	validChain = xtest.MustParseHexString("de0100000000000011010000000000000102030405060708")
	// e2e record followed by a hbh record.
	badOrderChain = xtest.MustParseHexString("00010000000000001101000000000000")
	// four hbh records.
	tooManyHBHChain = xtest.MustParseHexString(
		"0001000000000000000101000000000000010000000000001101010000000000")
	malformedChain = xtest.MustParseHexString("ff00000000000000")
	truncatedChain = xtest.MustParseHexString("ff02010000000000")
)

func TestProcess(t *testing.T) {
	queries := []extn.ExtnType{extn.ExtnTraceroute, extn.ExtnPathTrans, extn.ExtnPathProbe}
	testCases := map[string]struct {
		Packet          extnproc.Packet
		Validate        bool
		ExpectedLabel   string
		ExpectedErr     error
		ExpectedTotal   int
		ExpectedNextHdr extn.Class
		ExpectedLookups []extnproc.Lookup
	}{
		"valid chain": {
			Packet:          extnproc.Packet{ID: "p1", Chain: validChain},
			ExpectedLabel:   prom.Success,
			ExpectedTotal:   16,
			ExpectedNextHdr: extn.L4UDP,
			ExpectedLookups: []extnproc.Lookup{
				{Query: extn.ExtnTraceroute, Found: true, Offset: 0, Len: 8},
				{Query: extn.ExtnPathTrans, Found: true, Offset: 8, Len: 8},
				{Query: extn.ExtnPathProbe},
			},
		},
		"no extensions": {
			Packet: extnproc.Packet{
				ID:         "p2",
				Chain:      []byte{1, 2, 3},
				FirstClass: extn.L4UDP,
			},
			ExpectedLabel:   prom.Success,
			ExpectedNextHdr: extn.L4UDP,
			ExpectedLookups: []extnproc.Lookup{
				{Query: extn.ExtnTraceroute},
				{Query: extn.ExtnPathTrans},
				{Query: extn.ExtnPathProbe},
			},
		},
		"malformed length": {
			Packet:        extnproc.Packet{ID: "p3", Chain: malformedChain},
			ExpectedLabel: extnproc.ResultMalformedLength,
			ExpectedErr:   extn.ErrMalformedLength,
		},
		"buffer overrun": {
			Packet:        extnproc.Packet{ID: "p4", Chain: truncatedChain},
			ExpectedLabel: extnproc.ResultBufferOverrun,
			ExpectedErr:   extn.ErrBufferOverrun,
		},
		"bad order not validated": {
			Packet: extnproc.Packet{
				ID:         "p5",
				Chain:      badOrderChain,
				FirstClass: extn.End2EndClass,
			},
			ExpectedLabel:   prom.Success,
			ExpectedTotal:   16,
			ExpectedNextHdr: extn.L4UDP,
			ExpectedLookups: []extnproc.Lookup{
				{Query: extn.ExtnTraceroute, Found: true, Offset: 8, Len: 8},
				{Query: extn.ExtnPathTrans, Found: true, Offset: 0, Len: 8},
				{Query: extn.ExtnPathProbe},
			},
		},
		"bad order": {
			Packet: extnproc.Packet{
				ID:         "p6",
				Chain:      badOrderChain,
				FirstClass: extn.End2EndClass,
			},
			Validate:      true,
			ExpectedLabel: extnproc.ResultBadOrder,
			ExpectedErr:   extn.ErrBadOrder,
		},
		"too many hbh": {
			Packet:        extnproc.Packet{ID: "p7", Chain: tooManyHBHChain},
			Validate:      true,
			ExpectedLabel: extnproc.ResultTooManyHBH,
			ExpectedErr:   extn.ErrTooManyHBH,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := extnproc.NewMetrics(metrics.WithRegistry(reg))
			logger, logs := testlog.NewObserved(t, log.DebugLevel)
			ctx := log.CtxWith(context.Background(), logger)
			p := extnproc.Processor{Queries: queries, Validate: tc.Validate, Metrics: m}

			r := p.Process(ctx, tc.Packet)
			assert.Equal(t, tc.Packet.ID, r.ID)
			assert.Equal(t, tc.ExpectedLabel, r.Label)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.Packets.WithLabelValues(r.Label)))
			if tc.ExpectedErr != nil {
				assert.True(t, r.Dropped)
				assert.ErrorIs(t, r.Err, tc.ExpectedErr)
				assert.Nil(t, r.Lookups)
				assert.Nil(t, r.Extensions)
				require.Equal(t, 1, logs.FilterMessage("Dropping packet").Len())
				fields := logs.All()[0].ContextMap()
				assert.Equal(t, tc.Packet.ID, fields["id"])
				assert.Equal(t, tc.ExpectedLabel, fields["result"])
				return
			}
			require.NoError(t, r.Err)
			assert.False(t, r.Dropped)
			assert.Equal(t, tc.ExpectedTotal, r.Total)
			assert.Equal(t, tc.ExpectedNextHdr, r.NextHdr)
			assert.Equal(t, tc.ExpectedLookups, r.Lookups)
			assert.Zero(t, logs.Len())
			for _, l := range tc.ExpectedLookups {
				res := extnproc.LookupNotFound
				if l.Found {
					res = extnproc.LookupFound
				}
				assert.Equal(t, float64(1), testutil.ToFloat64(
					m.Lookups.WithLabelValues(l.Query.String(), res)), l.Query.String())
			}
		})
	}
}

func TestProcessNilMetrics(t *testing.T) {
	p := extnproc.Processor{Queries: []extn.ExtnType{extn.ExtnSIBRA}}
	r := p.Process(context.Background(), extnproc.Packet{Chain: malformedChain})
	assert.True(t, r.Dropped)
	r = p.Process(context.Background(), extnproc.Packet{Chain: validChain})
	assert.False(t, r.Dropped)
	assert.Equal(t, []extnproc.Lookup{{Query: extn.ExtnSIBRA}}, r.Lookups)
}

func TestProcessAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := prometheus.NewRegistry()
	p := extnproc.Processor{
		Queries: []extn.ExtnType{extn.ExtnPathTrans},
		Metrics: extnproc.NewMetrics(metrics.WithRegistry(reg)),
	}
	var pkts []extnproc.Packet
	for i := 0; i < 50; i++ {
		chain := validChain
		if i%5 == 0 {
			chain = truncatedChain
		}
		pkts = append(pkts, extnproc.Packet{ID: fmt.Sprintf("p%d", i), Chain: chain})
	}
	ctx := log.CtxWith(context.Background(), testlog.NewLogger(t))
	results, err := p.ProcessAll(ctx, pkts, 4)
	require.NoError(t, err)
	require.Len(t, results, len(pkts))
	for i, r := range results {
		assert.Equal(t, pkts[i].ID, r.ID)
		assert.Equal(t, i%5 == 0, r.Dropped, r.ID)
	}
	assert.Equal(t, float64(40),
		testutil.ToFloat64(p.Metrics.Packets.WithLabelValues(prom.Success)))
	assert.Equal(t, float64(10),
		testutil.ToFloat64(p.Metrics.Packets.WithLabelValues(extnproc.ResultBufferOverrun)))
	assert.Equal(t, float64(0), testutil.ToFloat64(p.Metrics.Inflight))

	s := extnproc.Summarize(results)
	assert.Equal(t, extnproc.Summary{
		Packets: 50,
		Dropped: 10,
		ByResult: map[string]int{
			prom.Success:                 40,
			extnproc.ResultBufferOverrun: 10,
		},
	}, s)
}

func TestProcessAllCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := extnproc.Processor{}
	pkts := []extnproc.Packet{{Chain: validChain}, {Chain: validChain}}
	results, err := p.ProcessAll(ctx, pkts, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, prom.Success, extnproc.Classify(nil))
	assert.Equal(t, prom.ErrNotClassified, extnproc.Classify(context.DeadlineExceeded))
	_, err := extn.TotalLen(malformedChain)
	assert.Equal(t, extnproc.ResultMalformedLength, extnproc.Classify(err))
}
