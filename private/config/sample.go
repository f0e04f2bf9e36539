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

package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// sampleIndent is prepended to every non-empty line of a nested table.
const sampleIndent = "    "

// CtxMap contains the context for sample generation.
type CtxMap map[string]string

// WriteSample writes the samples in order to dst. A TableSampler is written as
// a table named after its path, with its body indented. WriteSample panics if
// dst cannot be written.
func WriteSample(dst io.Writer, path Path, ctx CtxMap, samplers ...Sampler) {
	for _, sampler := range samplers {
		ts, ok := sampler.(TableSampler)
		if !ok {
			sampler.Sample(dst, path, ctx)
			continue
		}
		p := path.Extend(ts.ConfigName())
		var body bytes.Buffer
		ts.Sample(&body, p, ctx)
		WriteString(dst, fmt.Sprintf("\n[%s]", strings.Join(p, ".")))
		WriteString(dst, indent(body.String()))
	}
}

// WriteString writes s to dst. It panics if dst cannot be written.
func WriteString(dst io.Writer, s string) {
	if _, err := io.WriteString(dst, s); err != nil {
		panic(fmt.Sprintf("writing sample: %s", err))
	}
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if strings.HasSuffix(l, "\n") {
				b.WriteString("\n")
			}
			continue
		}
		b.WriteString(sampleIndent)
		b.WriteString(l)
	}
	out := b.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
