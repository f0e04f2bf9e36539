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

package extn_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-extn/pkg/slayers/extn"
)

func TestChainDecodingLayerParser(t *testing.T) {
	l4 := []byte{0xca, 0xfe, 0xbe, 0xef}
	raw := append(chain(
		rec(extn.End2EndClass, 1, extn.TracerouteType),
		rec(extn.L4UDP, 2, extn.PathProbeType),
	), l4...)

	chn := extn.Chain{FirstClass: extn.HopByHopClass}
	var pld gopacket.Payload
	parser := gopacket.NewDecodingLayerParser(extn.LayerTypeSCIONExtnChain, &chn, &pld)
	decoded := []gopacket.LayerType{}
	require.NoError(t, parser.DecodeLayers(raw, &decoded))

	assert.Equal(t, []gopacket.LayerType{extn.LayerTypeSCIONExtnChain, gopacket.LayerTypePayload},
		decoded)
	assert.Equal(t, 24, chn.Len())
	assert.Equal(t, raw[:24], chn.LayerContents())
	assert.Equal(t, l4, chn.LayerPayload())
	assert.Equal(t, extn.L4UDP, chn.NextHdr)
	assert.Equal(t, l4, []byte(pld))

	expected := []extn.Extension{
		{Class: extn.HopByHopClass, Type: extn.TracerouteType, Offset: 0, Raw: raw[0:8]},
		{Class: extn.End2EndClass, Type: extn.PathProbeType, Offset: 8, Raw: raw[8:24]},
	}
	if diff := cmp.Diff(expected, chn.Extensions); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}

	e, found := chn.Find(extn.ExtnPathProbe)
	assert.True(t, found)
	assert.Equal(t, 8, e.Offset)
	_, found = chn.Find(extn.ExtnSIBRA)
	assert.False(t, found)

	// The layer is reused for the next packet.
	require.NoError(t, parser.DecodeLayers(singleTraceroute, &decoded))
	assert.Len(t, chn.Extensions, 1)
	assert.Equal(t, 8, chn.Len())
	assert.Empty(t, chn.LayerPayload())
}

func TestChainDecodeErrors(t *testing.T) {
	testCases := map[string]struct {
		Raw               []byte
		ExpectedErr       error
		ExpectedTruncated bool
	}{
		"zero length": {
			Raw:         []byte{0xff, 0x00, 0x00, 0, 0, 0, 0, 0},
			ExpectedErr: extn.ErrMalformedLength,
		},
		"truncated": {
			Raw:               []byte{0xff, 0x02, 0x00, 0, 0, 0, 0, 0},
			ExpectedErr:       extn.ErrBufferOverrun,
			ExpectedTruncated: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var chn extn.Chain
			df := &feedback{}
			err := chn.DecodeFromBytes(tc.Raw, df)
			assert.ErrorIs(t, err, tc.ExpectedErr)
			assert.Equal(t, tc.ExpectedTruncated, df.truncated)
			assert.Empty(t, chn.LayerContents())
			assert.Empty(t, chn.LayerPayload())
		})
	}
}

func TestChainNewPacket(t *testing.T) {
	pkt := gopacket.NewPacket(hbhThenE2E, extn.LayerTypeSCIONExtnChain, gopacket.Default)
	require.Nil(t, pkt.ErrorLayer())
	l := pkt.Layer(extn.LayerTypeSCIONExtnChain)
	require.NotNil(t, l)
	chn := l.(*extn.Chain)
	assert.Len(t, chn.Extensions, 2)
	assert.Equal(t, extn.Class(0xff), chn.NextHdr)

	t.Run("custom first class", func(t *testing.T) {
		pkt := gopacket.NewPacket(threeRecords[16:], extn.NewDecoder(extn.End2EndClass),
			gopacket.Default)
		require.Nil(t, pkt.ErrorLayer())
		chn := pkt.Layer(extn.LayerTypeSCIONExtnChain).(*extn.Chain)
		e, found := chn.Find(extn.ExtnPathProbe)
		assert.True(t, found)
		assert.Equal(t, 0, e.Offset)
	})

	t.Run("truncated", func(t *testing.T) {
		pkt := gopacket.NewPacket(threeRecords[:12], extn.LayerTypeSCIONExtnChain,
			gopacket.Default)
		require.NotNil(t, pkt.ErrorLayer())
		assert.ErrorIs(t, pkt.ErrorLayer().Error(), extn.ErrBufferOverrun)
		assert.True(t, pkt.Metadata().Truncated)
	})
}

type feedback struct {
	truncated bool
}

func (f *feedback) SetTruncated() {
	f.truncated = true
}
