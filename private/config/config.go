// Copyright 2019 Anapaya Systems
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

// Package config defines how the configuration blocks of the tools are
// initialized, validated and documented.
//
// Every block implements Config. InitDefaults fills the fields that are not
// set, Validate checks the result and Sample writes a commented TOML sample of
// the block. The samples are tested to decode into the defaults, so the
// documentation cannot drift from the implementation. Sample is allowed to
// panic if it cannot write.
//
// Blocks nest: a block calls the methods of its sub-blocks, and WriteSample
// turns every TableSampler into a TOML table named after its ConfigName.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/scionproto/scion-extn/pkg/private/serrors"
)

// Config is implemented by every configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator checks a configuration block and all its sub-blocks.
type Validator interface {
	Validate() error
}

// Defaulter sets the default value of all fields that are not set, including
// the ones of sub-blocks.
type Defaulter interface {
	InitDefaults()
}

// Sampler writes a commented sample of the block to dst. The path is the name
// of the enclosing table, ctx can carry values to fill into the sample.
type Sampler interface {
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler of a block that is written as its own table.
type TableSampler interface {
	Sampler
	// ConfigName is the key of the table.
	ConfigName() string
}

// Path is the dotted name of a table, e.g. {"log", "console"}.
type Path []string

// Extend returns a copy of p with s appended.
func (p Path) Extend(s string) Path {
	return append(append(make(Path, 0, len(p)+1), p...), s)
}

// NoDefaulter can be embedded by blocks without default values.
type NoDefaulter struct{}

// InitDefaults does nothing.
func (NoDefaulter) InitDefaults() {}

// ValidateAll validates the blocks in order and returns the first error.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("validating config", err, "type", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// InitAll initializes the defaults of all blocks.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode decodes raw TOML into cfg. Keys that do not map to a field of cfg are
// an error.
func Decode(raw []byte, cfg any) error {
	return toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg)
}

// LoadFile decodes the TOML file into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading config file", err, "file", file)
	}
	if err := Decode(raw, cfg); err != nil {
		return serrors.Wrap("decoding config file", err, "file", file)
	}
	return nil
}
