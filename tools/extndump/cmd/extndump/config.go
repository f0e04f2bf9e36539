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

package main

import (
	"io"

	"github.com/scionproto/scion-extn/pkg/log"
	"github.com/scionproto/scion-extn/private/config"
	"github.com/scionproto/scion-extn/private/env"
	"github.com/scionproto/scion-extn/tools/extndump"
)

var _ config.Config = (*Config)(nil)

// Config is the configuration file of extndump.
type Config struct {
	Logging log.Config             `toml:"log,omitempty"`
	Metrics env.Metrics            `toml:"metrics,omitempty"`
	Inspect extndump.InspectConfig `toml:"inspect,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Inspect,
	)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Inspect,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, nil,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Inspect,
	)
}
