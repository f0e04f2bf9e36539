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

package extndump

import (
	"io"
	"strings"

	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/pkg/slayers/extn"
	"github.com/scionproto/scion-extn/private/config"
)

const (
	// DefaultWorkers is the default number of packets processed concurrently.
	DefaultWorkers = 4
	// DefaultFormat is the default output format.
	DefaultFormat = "human"
	// DefaultFirstClass is the default class of the first extension record.
	DefaultFirstClass = "hbh"
)

var _ config.Config = (*InspectConfig)(nil)

// InspectConfig configures how packets are inspected.
type InspectConfig struct {
	// FirstClass is the next header field of the common header, i.e., the
	// class of the first record of every chain.
	FirstClass string `toml:"first_class,omitempty"`
	// Find lists the extensions that are looked up in every chain, in the
	// form class:type, e.g., hbh:traceroute or e2e:2.
	Find []string `toml:"find,omitempty"`
	// ValidateOrder enables the order validation of the chains.
	ValidateOrder bool `toml:"validate,omitempty"`
	// Workers is the number of packets processed concurrently.
	Workers int `toml:"workers,omitempty"`
	// Format is the output format (human|json|yaml).
	Format string `toml:"format,omitempty"`
	// PcapOffset is the offset of the extension chain in every packet of a
	// pcap input.
	PcapOffset int `toml:"pcap_offset,omitempty"`
}

// InitDefaults populates unset fields with their default values.
func (c *InspectConfig) InitDefaults() {
	if c.FirstClass == "" {
		c.FirstClass = DefaultFirstClass
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
}

// Validate checks that all fields can be parsed.
func (c *InspectConfig) Validate() error {
	if _, err := c.First(); err != nil {
		return err
	}
	if _, err := c.Queries(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return serrors.New("workers must not be negative", "workers", c.Workers)
	}
	if c.PcapOffset < 0 {
		return serrors.New("pcap_offset must not be negative", "pcap_offset", c.PcapOffset)
	}
	switch strings.ToLower(c.Format) {
	case "", "human", "json", "yaml":
		return nil
	default:
		return serrors.New("unsupported format", "format", c.Format)
	}
}

// First returns the parsed first class. An empty value is the default class.
func (c *InspectConfig) First() (extn.Class, error) {
	s := c.FirstClass
	if s == "" {
		s = DefaultFirstClass
	}
	class, err := extn.ParseClass(s)
	if err != nil {
		return 0, serrors.Wrap("invalid first_class", err)
	}
	return class, nil
}

// Queries returns the parsed lookups.
func (c *InspectConfig) Queries() ([]extn.ExtnType, error) {
	queries := make([]extn.ExtnType, 0, len(c.Find))
	for _, s := range c.Find {
		q, err := extn.ParseExtnType(s)
		if err != nil {
			return nil, serrors.Wrap("invalid find entry", err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func (c *InspectConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, inspectSample)
}

func (c *InspectConfig) ConfigName() string {
	return "inspect"
}

const inspectSample = `
# Class of the first extension record, i.e., the next header field of the
# common header (hbh|e2e|<0-255>). (default hbh)
first_class = "hbh"

# Extensions to look up in every chain, given as class:type. The type is
# either a number or a known name (traceroute, sibra, path_transport,
# path_probe). (default [])
find = ["hbh:traceroute", "e2e:path_probe"]

# Reject chains with hop-by-hop extensions after end-to-end extensions or more
# than 3 hop-by-hop extensions. (default false)
validate = false

# Number of packets processed concurrently. (default 4)
workers = 4

# Output format (human|json|yaml). (default human)
format = "human"

# Offset of the extension chain in the packets of a pcap input. (default 0)
pcap_offset = 0
`
