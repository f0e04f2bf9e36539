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

package extn

import (
	"errors"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

var (
	// LayerTypeSCIONExtnChain is the layer type of a complete extension chain.
	// Packets decoded through the registered decoder are assumed to start with
	// a hop-by-hop record, use NewDecoder for other first classes.
	LayerTypeSCIONExtnChain = gopacket.RegisterLayerType(
		1100,
		gopacket.LayerTypeMetadata{
			Name:    "SCIONExtnChain",
			Decoder: NewDecoder(HopByHopClass),
		},
	)
	LayerClassSCIONExtnChain gopacket.LayerClass = LayerTypeSCIONExtnChain
)

// Chain is the gopacket layer of a SCION extension chain. It can be used with a
// gopacket.DecodingLayerParser; FirstClass has to be set before decoding and
// Extensions is reused between calls.
type Chain struct {
	layers.BaseLayer
	// FirstClass is the class of the first record, i.e., the next header field
	// of the common header.
	FirstClass Class
	// Extensions are the decoded records. They alias the decoded data.
	Extensions []Extension
	// NextHdr is the L4 protocol following the chain.
	NextHdr Class
}

func (c *Chain) LayerType() gopacket.LayerType {
	return LayerTypeSCIONExtnChain
}

func (c *Chain) CanDecode() gopacket.LayerClass {
	return LayerClassSCIONExtnChain
}

func (c *Chain) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// DecodeFromBytes implements the gopacket.DecodingLayer.DecodeFromBytes method.
func (c *Chain) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	exts, next, err := Decode(data, c.FirstClass, c.Extensions[:0])
	c.Extensions = exts
	if err != nil {
		c.BaseLayer = layers.BaseLayer{}
		if errors.Is(err, ErrBufferOverrun) {
			df.SetTruncated()
		}
		return err
	}
	n := c.Len()
	c.NextHdr = next
	c.BaseLayer = layers.BaseLayer{Contents: data[:n], Payload: data[n:]}
	return nil
}

// Len returns the length of the decoded chain in bytes.
func (c *Chain) Len() int {
	if len(c.Extensions) == 0 {
		return 0
	}
	last := c.Extensions[len(c.Extensions)-1]
	return last.Offset + last.Len()
}

// Find returns the first decoded record that matches t.
func (c *Chain) Find(t ExtnType) (Extension, bool) {
	for _, e := range c.Extensions {
		if e.ExtnType() == t {
			return e, true
		}
	}
	return Extension{}, false
}

// NewDecoder returns a gopacket.Decoder for extension chains whose first record
// has class first.
func NewDecoder(first Class) gopacket.Decoder {
	return gopacket.DecodeFunc(func(data []byte, p gopacket.PacketBuilder) error {
		c := &Chain{FirstClass: first}
		err := c.DecodeFromBytes(data, p)
		p.AddLayer(c)
		if err != nil {
			return err
		}
		return p.NextDecoder(c.NextLayerType())
	})
}
