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

// extndump parses the extension chains of packets given as hex dumps or in a
// pcap file and reports the records, lookups and drop reasons.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scionproto/scion-extn/pkg/log"
	"github.com/scionproto/scion-extn/pkg/metrics"
	"github.com/scionproto/scion-extn/pkg/private/processmetrics"
	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/pkg/slayers/extn"
	"github.com/scionproto/scion-extn/private/app"
	"github.com/scionproto/scion-extn/private/app/launcher"
	"github.com/scionproto/scion-extn/private/extnproc"
	"github.com/scionproto/scion-extn/tools/extndump"
)

// Flag names. They double as viper keys and, with the EXTNDUMP_ prefix, as
// environment variables.
const (
	flagFirst     = "first"
	flagFind      = "find"
	flagValidate  = "validate"
	flagWorkers   = "workers"
	flagFormat    = "format"
	flagNoColor   = "no-color"
	flagPcap      = "pcap"
	flagOffset    = "offset"
	flagInput     = "input"
	flagWritePcap = "write-pcap"
)

func main() {
	newApplication(os.Stdin, nil, prometheus.NewRegistry()).Run()
}

// newApplication creates the extndump application. Output goes to stdout if
// out is nil.
func newApplication(in io.Reader, out io.Writer,
	reg *prometheus.Registry) *launcher.Application {

	var cfg Config
	cmd := &cobra.Command{
		Use:   "inspect [flags] [hex-chain...]",
		Short: "Parse extension chains and report their records",
		Example: fmt.Sprintf(`  %[1]s inspect de010000000000001101000000000000
  %[1]s inspect --first e2e --find e2e:path_probe 1101010000000000
  %[1]s inspect --input chains.txt --validate --format json
  %[1]s inspect --pcap capture.pcap --offset 62 --find hbh:traceroute`, "extndump"),
		Long: `Parse extension chains and report their records.

The chains are read from the hex arguments, from a file with one hex chain per
line (--input, - for stdin) or from a pcap file (--pcap). For pcap input the
chain starts --offset bytes into every captured packet.

A chain that cannot be parsed drops the packet. The exit code is 1 if at least
one packet was dropped and 2 on usage and input errors.`,
		Args: cobra.ArbitraryArgs,
	}
	flags := cmd.Flags()
	flags.String(flagFirst, "", "Class of the first extension (hbh|e2e|<0-255>)")
	flags.StringSlice(flagFind, nil, "Extension to look up as class:type (repeatable)")
	flags.Bool(flagValidate, false, "Reject chains with invalid extension order")
	flags.Int(flagWorkers, 0, "Number of packets processed concurrently")
	flags.String(flagFormat, "", "Output format (human|json|yaml)")
	flags.Bool(flagNoColor, false, "Disable colored output")
	flags.String(flagPcap, "", "Read packets from a pcap file")
	flags.Int(flagOffset, 0, "Offset of the extension chain in the pcap packets")
	flags.String(flagInput, "", "Read hex chains from a file, one per line (- for stdin)")
	flags.String(flagWritePcap, "", "Store the loaded chains as raw packets in a pcap file")

	return &launcher.Application{
		TOMLConfig: &cfg,
		ShortName:  "extndump",
		EnvPrefix:  "EXTNDUMP",
		Command:    cmd,
		Output:     out,
		Registerer: reg,
		Main: func(ctx context.Context, v *viper.Viper, args []string) error {
			w := out
			if w == nil {
				w = os.Stdout
			}
			return run(ctx, v, args, &cfg, in, w, reg)
		},
	}
}

func run(ctx context.Context, v *viper.Viper, args []string, cfg *Config,
	in io.Reader, out io.Writer, reg *prometheus.Registry) error {

	applyOverrides(v, &cfg.Inspect)
	if err := cfg.Inspect.Validate(); err != nil {
		return app.WithExitCode(serrors.Wrap("invalid arguments", err), 2)
	}
	first, err := cfg.Inspect.First()
	if err != nil {
		return app.WithExitCode(err, 2)
	}
	queries, err := cfg.Inspect.Queries()
	if err != nil {
		return app.WithExitCode(err, 2)
	}
	pkts, err := loadPackets(v, args, in, first, cfg.Inspect.PcapOffset)
	if err != nil {
		return app.WithExitCode(err, 2)
	}
	if file := v.GetString(flagWritePcap); file != "" {
		if err := extndump.StorePcap(file, pkts); err != nil {
			return app.WithExitCode(err, 2)
		}
		log.Info("Stored packets", "file", file, "packets", len(pkts))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Metrics.Prometheus != "" {
		if err := processmetrics.Register(reg); err != nil {
			log.Info("Process metrics not available", "err", err)
		}
	}
	go func() {
		defer log.HandlePanic()
		if err := cfg.Metrics.ServePrometheus(ctx, reg); err != nil {
			log.Error("Serving metrics failed", "err", err)
		}
	}()

	p := extnproc.Processor{
		Queries:  queries,
		Validate: cfg.Inspect.ValidateOrder,
		Metrics:  extnproc.NewMetrics(metrics.WithRegistry(reg)),
	}
	results, err := p.ProcessAll(ctx, pkts, cfg.Inspect.Workers)
	if err != nil {
		return err
	}
	report := extndump.NewReport(results)
	log.Debug("Processed packets", "packets", report.Summary.Packets,
		"dropped", report.Summary.Dropped)

	colored := !v.GetBool(flagNoColor) && out == os.Stdout && extndump.ColorTerm()
	if err := report.Render(out, cfg.Inspect.Format, colored); err != nil {
		return app.WithExitCode(serrors.Wrap("rendering report", err), 2)
	}
	if report.Summary.Dropped > 0 {
		return app.WithExitCode(serrors.New("packets dropped",
			"dropped", report.Summary.Dropped, "packets", report.Summary.Packets), 1)
	}
	return nil
}

// applyOverrides applies the flags and environment variables that are set on
// top of the configuration file.
func applyOverrides(v *viper.Viper, cfg *extndump.InspectConfig) {
	if v.IsSet(flagFirst) {
		cfg.FirstClass = v.GetString(flagFirst)
	}
	if v.IsSet(flagFind) {
		cfg.Find = v.GetStringSlice(flagFind)
	}
	if v.IsSet(flagValidate) {
		cfg.ValidateOrder = v.GetBool(flagValidate)
	}
	if v.IsSet(flagWorkers) {
		cfg.Workers = v.GetInt(flagWorkers)
	}
	if v.IsSet(flagFormat) {
		cfg.Format = v.GetString(flagFormat)
	}
	if v.IsSet(flagOffset) {
		cfg.PcapOffset = v.GetInt(flagOffset)
	}
}

func loadPackets(v *viper.Viper, args []string, in io.Reader, first extn.Class,
	offset int) ([]extnproc.Packet, error) {

	input, pcap := v.GetString(flagInput), v.GetString(flagPcap)
	sources := 0
	for _, set := range []bool{len(args) > 0, input != "", pcap != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return nil, serrors.New("no input, specify hex chains, --input or --pcap")
	case sources > 1:
		return nil, serrors.New("hex chains, --input and --pcap are mutually exclusive")
	case pcap != "":
		return extndump.ReadPcapFile(pcap, offset, first)
	case input == "-":
		return extndump.ReadHex(in, first)
	case input != "":
		f, err := os.Open(input)
		if err != nil {
			return nil, serrors.Wrap("opening input", err, "file", input)
		}
		defer f.Close()
		return extndump.ReadHex(f, first)
	}
	pkts := make([]extnproc.Packet, 0, len(args))
	for i, arg := range args {
		pkt, err := extndump.ParseHex(fmt.Sprintf("arg:%d", i), arg, first)
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, pkt)
	}
	return pkts, nil
}
