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

// Package extn implements parsing of the SCION extension header chain that
// sits between the SCION common header and the L4 header.
//
// Every extension record starts with a 3 byte sub-header:
//
//	 0                   1                   2
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   NextClass   |     Lines     |     Type      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// NextClass is the class of the following record, or any other value (the L4
// protocol) if the record is the last one of the chain. Lines is the size of the
// record in units of LineLen, including the sub-header. Type discriminates the
// extension within its class. The class of a record is therefore never stored in
// the record itself: it is the NextClass of the preceding record, or the next
// header field of the common header for the first record.
//
// All functions in this package operate on caller owned buffers. They do not
// modify the buffer, do not allocate on success and the returned Extension
// values alias the buffer.
package extn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/scionproto/scion-extn/pkg/private/serrors"
)

const (
	// LineLen is the number of bytes that all SCION extension records are
	// padded to a multiple of.
	LineLen = 8
	// SubHdrLen is the length of the sub-header at the start of every
	// extension record.
	SubHdrLen = 3
	// TracerouteHopLen is the length of a single hop entry of the traceroute
	// extension.
	TracerouteHopLen = 8
	// MaxHBH is the maximum number of hop-by-hop extensions in a chain.
	MaxHBH = 3
)

var (
	// ErrMalformedLength indicates an extension record with a zero length
	// field. The packet cannot be processed any further.
	ErrMalformedLength = errors.New("malformed extension length")
	// ErrBufferOverrun indicates that an extension record extends past the end
	// of the buffer.
	ErrBufferOverrun = errors.New("extension chain exceeds buffer")
	// ErrBadOrder indicates a hop-by-hop extension after an end-to-end one.
	ErrBadOrder = errors.New("hop-by-hop extension after end-to-end extension")
	// ErrTooManyHBH indicates more than MaxHBH hop-by-hop extensions.
	ErrTooManyHBH = errors.New("too many hop-by-hop extensions")
)

// Class is the value of a next header field that precedes an extension record.
// It shares its number space with the L4 protocol numbers: any value that is not
// HopByHopClass or End2EndClass terminates the chain and identifies the L4
// protocol.
type Class uint8

const (
	HopByHopClass Class = 0
	End2EndClass  Class = 222
)

// L4 protocols that commonly terminate an extension chain.
const (
	L4SCMP Class = 1
	L4TCP  Class = 6
	L4UDP  Class = 17
	L4SSP  Class = 152
)

// Kind discriminates the three cases a Class value can take.
type Kind uint8

const (
	// KindTerminator marks the end of the chain. The Class value is the L4
	// protocol number.
	KindTerminator Kind = iota
	// KindHopByHop marks a hop-by-hop extension record.
	KindHopByHop
	// KindEnd2End marks an end-to-end extension record.
	KindEnd2End
)

// Kind returns the variant of c.
func (c Class) Kind() Kind {
	switch c {
	case HopByHopClass:
		return KindHopByHop
	case End2EndClass:
		return KindEnd2End
	default:
		return KindTerminator
	}
}

// IsExtension returns whether another extension record follows a next header
// field with value c.
func (c Class) IsExtension() bool {
	return c.Kind() != KindTerminator
}

func (c Class) String() string {
	switch c {
	case HopByHopClass:
		return "HBH"
	case End2EndClass:
		return "E2E"
	case L4SCMP:
		return "SCMP"
	case L4TCP:
		return "TCP"
	case L4UDP:
		return "UDP"
	case L4SSP:
		return "SSP"
	}
	return fmt.Sprintf("L4(%d)", uint8(c))
}

// ParseClass parses a class given as "hbh", "e2e", their long forms
// "hop_by_hop" and "end_to_end", or as a decimal number in [0, 255].
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(s) {
	case "hbh", "hop_by_hop", "hopbyhop":
		return HopByHopClass, nil
	case "e2e", "end_to_end", "end2end":
		return End2EndClass, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, serrors.New("invalid extension class", "input", s)
	}
	return Class(v), nil
}

// Type is the class local type of an extension.
type Type uint8

// Hop-by-hop types.
const (
	TracerouteType Type = 0
	SIBRAType      Type = 1
)

// End-to-end types.
const (
	PathTransType Type = 0
	PathProbeType Type = 1
)

// ExtnType identifies an extension by its class and type.
type ExtnType struct {
	Class Class
	Type  Type
}

var (
	ExtnTraceroute = ExtnType{HopByHopClass, TracerouteType}
	ExtnSIBRA      = ExtnType{HopByHopClass, SIBRAType}
	ExtnPathTrans  = ExtnType{End2EndClass, PathTransType}
	ExtnPathProbe  = ExtnType{End2EndClass, PathProbeType}
)

var extnNames = map[ExtnType]string{
	ExtnTraceroute: "traceroute",
	ExtnSIBRA:      "sibra",
	ExtnPathTrans:  "path_transport",
	ExtnPathProbe:  "path_probe",
}

// Name returns the name of a known extension, or the empty string.
func (e ExtnType) Name() string {
	return extnNames[e]
}

// String formats e as "<class>:<type>", using the type name for known
// extensions, e.g. "hbh:traceroute" or "e2e:7".
func (e ExtnType) String() string {
	t := e.Name()
	if t == "" {
		t = strconv.Itoa(int(e.Type))
	}
	c := strings.ToLower(e.Class.String())
	if !e.Class.IsExtension() {
		c = strconv.Itoa(int(e.Class))
	}
	return c + ":" + t
}

// MarshalText implements encoding.TextMarshaler.
func (e ExtnType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *ExtnType) UnmarshalText(b []byte) error {
	v, err := ParseExtnType(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseExtnType parses the "<class>:<type>" notation produced by
// ExtnType.String. The type is either the name of a known extension of the
// class or a decimal number.
func ParseExtnType(s string) (ExtnType, error) {
	cls, typ, ok := strings.Cut(s, ":")
	if !ok {
		return ExtnType{}, serrors.New("invalid extension, expected <class>:<type>", "input", s)
	}
	c, err := ParseClass(cls)
	if err != nil {
		return ExtnType{}, err
	}
	for known, name := range extnNames {
		if known.Class == c && strings.EqualFold(name, typ) {
			return known, nil
		}
	}
	v, err := strconv.ParseUint(typ, 10, 8)
	if err != nil {
		return ExtnType{}, serrors.New("invalid extension type", "type", typ, "class", c)
	}
	return ExtnType{Class: c, Type: Type(v)}, nil
}
