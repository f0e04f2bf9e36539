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

// Package extndump reads packets from hex dumps or pcap files, parses their
// extension chains and renders the results.
package extndump

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/pkg/slayers/extn"
	"github.com/scionproto/scion-extn/private/extnproc"
)

// ParseHex decodes a hex encoded extension chain. Whitespace, colons and a
// leading 0x are ignored.
func ParseHex(id, s string, first extn.Class) (extnproc.Packet, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':':
			return -1
		}
		return r
	}, strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return extnproc.Packet{}, serrors.Wrap("decoding hex", err, "id", id)
	}
	return extnproc.Packet{ID: id, Chain: raw, FirstClass: first}, nil
}

// ReadHex reads one hex encoded chain per line. Empty lines and lines
// starting with # are skipped. A line can be labeled with "<id>=" in front of
// the hex data, otherwise the line number is used as ID.
func ReadHex(r io.Reader, first extn.Class) ([]extnproc.Packet, error) {
	var pkts []extnproc.Packet
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id := fmt.Sprintf("line:%d", line)
		if label, data, ok := strings.Cut(text, "="); ok {
			id, text = strings.TrimSpace(label), data
		}
		pkt, err := ParseHex(id, text, first)
		if err != nil {
			return nil, serrors.Wrap("parsing line", err, "line", line)
		}
		pkts = append(pkts, pkt)
	}
	if err := scanner.Err(); err != nil {
		return nil, serrors.Wrap("reading input", err)
	}
	return pkts, nil
}

// ReadPcap reads all packets of a pcap stream. The extension chain of every
// packet starts offset bytes into the captured data. Packets that are shorter
// than offset get an empty chain.
func ReadPcap(r io.Reader, offset int, first extn.Class) ([]extnproc.Packet, error) {
	if offset < 0 {
		return nil, serrors.New("negative offset", "offset", offset)
	}
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, serrors.Wrap("reading pcap header", err)
	}
	var pkts []extnproc.Packet
	for i := 0; ; i++ {
		data, _, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, serrors.Wrap("reading packet", err, "index", i)
		}
		var chain []byte
		if len(data) >= offset {
			chain = data[offset:]
		}
		pkts = append(pkts, extnproc.Packet{
			ID:         fmt.Sprintf("pkt:%d", i),
			Chain:      chain,
			FirstClass: first,
		})
	}
	return pkts, nil
}

// ReadPcapFile is ReadPcap on the named file.
func ReadPcapFile(file string, offset int, first extn.Class) ([]extnproc.Packet, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, serrors.Wrap("opening pcap", err, "file", file)
	}
	defer f.Close()
	pkts, err := ReadPcap(f, offset, first)
	if err != nil {
		return nil, serrors.Wrap("reading pcap", err, "file", file)
	}
	return pkts, nil
}

// StorePcap stores the chains of pkts as raw packets in a pcap file.
func StorePcap(file string, pkts []extnproc.Packet) error {
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return serrors.Wrap("creating file", err, "file", file)
	}
	defer f.Close()
	if err := WritePcap(f, pkts); err != nil {
		return serrors.Wrap("writing pcap", err, "file", file)
	}
	return f.Close()
}

// WritePcap writes the chains of pkts as raw packets to w.
func WritePcap(w io.Writer, pkts []extnproc.Packet) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65535, layers.LinkTypeRaw); err != nil {
		return serrors.Wrap("writing header", err)
	}
	for _, pkt := range pkts {
		c := gopacket.CaptureInfo{
			Length:        len(pkt.Chain),
			CaptureLength: len(pkt.Chain),
		}
		if err := pw.WritePacket(c, pkt.Chain); err != nil {
			return serrors.Wrap("writing packet", err, "id", pkt.ID)
		}
	}
	return nil
}
