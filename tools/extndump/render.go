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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"

	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/private/extnproc"
)

// Report is the printable outcome of an inspection.
type Report struct {
	Packets []PacketReport `json:"packets" yaml:"packets"`
	Summary SummaryReport  `json:"summary" yaml:"summary"`
}

// PacketReport describes a single packet.
type PacketReport struct {
	ID         string            `json:"id" yaml:"id"`
	Result     string            `json:"result" yaml:"result"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	Length     int               `json:"length" yaml:"length"`
	NextHdr    string            `json:"next_hdr" yaml:"next_hdr"`
	Extensions []ExtensionReport `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Lookups    []LookupReport    `json:"lookups,omitempty" yaml:"lookups,omitempty"`
}

// ExtensionReport describes a single extension record.
type ExtensionReport struct {
	Offset  int    `json:"offset" yaml:"offset"`
	Extn    string `json:"extn" yaml:"extn"`
	Lines   int    `json:"lines" yaml:"lines"`
	Length  int    `json:"length" yaml:"length"`
	Payload string `json:"payload" yaml:"payload"`
}

// LookupReport describes the outcome of a lookup.
type LookupReport struct {
	Query  string `json:"query" yaml:"query"`
	Found  bool   `json:"found" yaml:"found"`
	Offset int    `json:"offset,omitempty" yaml:"offset,omitempty"`
	Length int    `json:"length,omitempty" yaml:"length,omitempty"`
}

// SummaryReport aggregates all packets.
type SummaryReport struct {
	Packets  int            `json:"packets" yaml:"packets"`
	Accepted int            `json:"accepted" yaml:"accepted"`
	Dropped  int            `json:"dropped" yaml:"dropped"`
	Results  map[string]int `json:"results" yaml:"results"`
}

// NewReport creates the report for the results.
func NewReport(results []extnproc.Result) Report {
	s := extnproc.Summarize(results)
	r := Report{
		Packets: make([]PacketReport, 0, len(results)),
		Summary: SummaryReport{
			Packets:  s.Packets,
			Accepted: s.Packets - s.Dropped,
			Dropped:  s.Dropped,
			Results:  s.ByResult,
		},
	}
	for _, res := range results {
		p := PacketReport{
			ID:      res.ID,
			Result:  res.Label,
			Length:  res.Total,
			NextHdr: res.NextHdr.String(),
		}
		if res.Err != nil {
			p.Error = res.Err.Error()
		}
		for _, e := range res.Extensions {
			p.Extensions = append(p.Extensions, ExtensionReport{
				Offset:  e.Offset,
				Extn:    e.ExtnType().String(),
				Lines:   e.Lines(),
				Length:  e.Len(),
				Payload: hex.EncodeToString(e.Payload()),
			})
		}
		for _, l := range res.Lookups {
			p.Lookups = append(p.Lookups, LookupReport{
				Query:  l.Query.String(),
				Found:  l.Found,
				Offset: l.Offset,
				Length: l.Len,
			})
		}
		r.Packets = append(r.Packets, p)
	}
	return r
}

// Render writes the report in the given format (human|json|yaml).
func (r Report) Render(w io.Writer, format string, colored bool) error {
	switch strings.ToLower(format) {
	case "human", "":
		r.Human(w, colored)
		return nil
	case "json":
		return r.JSON(w)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(r); err != nil {
			return serrors.Wrap("encoding yaml", err)
		}
		return enc.Close()
	default:
		return serrors.New("output format not supported", "format", format)
	}
}

// JSON writes the report as a json object to the writer.
func (r Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// Human writes human readable output to the writer.
func (r Report) Human(w io.Writer, colored bool) {
	noColor := color.New()
	noColor.DisableColor()
	keys := noColor
	header := noColor
	statusGood := noColor
	statusBad := noColor
	if colored {
		keys = color.New(color.FgHiCyan)
		header = color.New(color.FgHiBlack)
		statusGood = color.New(color.FgGreen)
		statusBad = color.New(color.FgRed)
	}

	for _, p := range r.Packets {
		status := statusGood
		if p.Error != "" {
			status = statusBad
		}
		fmt.Fprintf(w, "%s %s %s: %d %s: %s\n",
			header.Sprintf("[%s]", p.ID), status.Sprint(p.Result),
			keys.Sprint("Length"), p.Length, keys.Sprint("NextHdr"), p.NextHdr)
		if p.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", keys.Sprint("Error"), p.Error)
			continue
		}
		if len(p.Extensions) > 0 {
			rows := make([][]string, 0, len(p.Extensions))
			for _, e := range p.Extensions {
				rows = append(rows, []string{
					"",
					strconv.Itoa(e.Offset),
					e.Extn,
					strconv.Itoa(e.Lines),
					strconv.Itoa(e.Length),
					e.Payload,
				})
			}
			table := tablewriter.NewWriter(w)
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			table.SetHeaderLine(false)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"", "OFFSET", "EXTENSION", "LINES", "LENGTH", "PAYLOAD"})
			table.AppendBulk(rows)
			table.Render()
		}
		for _, l := range p.Lookups {
			found := statusBad.Sprint("not found")
			if l.Found {
				found = statusGood.Sprintf("found at %d (%d bytes)", l.Offset, l.Length)
			}
			fmt.Fprintf(w, "  %s %s: %s\n", keys.Sprint("Find"), l.Query, found)
		}
	}

	labels := make([]string, 0, len(r.Summary.Results))
	for label := range r.Summary.Results {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	counts := make([]string, 0, len(labels))
	for _, label := range labels {
		counts = append(counts, fmt.Sprintf("%s=%d", label, r.Summary.Results[label]))
	}
	header.Fprintf(w, "%d packets, %d accepted, %d dropped",
		r.Summary.Packets, r.Summary.Accepted, r.Summary.Dropped)
	if len(counts) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(counts, " "))
	}
	fmt.Fprintln(w)
}

// ColorTerm reports whether stdout is a terminal.
func ColorTerm() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
