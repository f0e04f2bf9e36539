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
	"github.com/scionproto/scion-extn/pkg/private/serrors"
)

// Extension is a view of a single extension record inside a chain buffer.
type Extension struct {
	// Class is the class of the record, taken from the preceding next header
	// field.
	Class Class
	// Type is the class local type of the record.
	Type Type
	// Offset is the position of the record relative to the start of the
	// chain.
	Offset int
	// Raw is the complete record including the sub-header. It aliases the
	// buffer the record was parsed from.
	Raw []byte
}

// ExtnType returns the class and type of the record.
func (e Extension) ExtnType() ExtnType {
	return ExtnType{Class: e.Class, Type: e.Type}
}

// NextClass returns the next header field of the record.
func (e Extension) NextClass() Class {
	return Class(e.Raw[0])
}

// Lines returns the length field of the record.
func (e Extension) Lines() int {
	return int(e.Raw[1])
}

// Len returns the length of the record in bytes, including the sub-header.
func (e Extension) Len() int {
	return len(e.Raw)
}

// Payload returns the record without the sub-header. Padding is not removed.
func (e Extension) Payload() []byte {
	return e.Raw[SubHdrLen:]
}

// decodeExtension decodes the record at offset off of b. The class is supplied
// by the caller since it is not part of the record.
func decodeExtension(b []byte, off int, class Class) (Extension, error) {
	if len(b)-off < SubHdrLen {
		return Extension{}, serrors.JoinNoStack(ErrBufferOverrun, nil,
			"offset", off, "need", SubHdrLen, "have", len(b)-off)
	}
	lines := b[off+1]
	if lines == 0 {
		return Extension{}, serrors.JoinNoStack(ErrMalformedLength, nil,
			"offset", off, "class", class, "type", b[off+2])
	}
	l := int(lines) * LineLen
	if len(b)-off < l {
		return Extension{}, serrors.JoinNoStack(ErrBufferOverrun, nil,
			"offset", off, "need", l, "have", len(b)-off)
	}
	return Extension{
		Class:  class,
		Type:   Type(b[off+2]),
		Offset: off,
		Raw:    b[off : off+l : off+l],
	}, nil
}

// Iterator walks an extension chain record by record. The zero value is an
// exhausted iterator.
//
//	it := extn.NewIterator(raw, cmnHdrNextHdr)
//	for it.Next() {
//		e := it.Extension()
//		...
//	}
//	if err := it.Err(); err != nil {
//		// drop the packet
//	}
type Iterator struct {
	raw    []byte
	class  Class
	offset int
	cur    Extension
	err    error
}

// NewIterator returns an iterator over the chain starting at b[0]. The first
// record has class first, which is the next header field of the common header.
// If first is not an extension class the chain is empty.
func NewIterator(b []byte, first Class) Iterator {
	return Iterator{raw: b, class: first}
}

// Next advances to the next record. It returns false at the end of the chain
// or if a framing error occurred, in which case Err returns it.
func (it *Iterator) Next() bool {
	if it.err != nil || !it.class.IsExtension() {
		return false
	}
	e, err := decodeExtension(it.raw, it.offset, it.class)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = e
	it.offset += e.Len()
	it.class = e.NextClass()
	return true
}

// Extension returns the record the iterator is positioned on.
func (it *Iterator) Extension() Extension {
	return it.cur
}

// Err returns the framing error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Offset returns the number of bytes consumed so far. After the iteration
// completed without error it is the total length of the chain.
func (it *Iterator) Offset() int {
	return it.offset
}

// NextHdr returns the next header field of the last consumed record (or the
// initial class if nothing was consumed). After the iteration completed
// without error it identifies the L4 protocol.
func (it *Iterator) NextHdr() Class {
	return it.class
}

// TotalLen returns the number of bytes occupied by the extension chain starting
// at b[0]. b must start with an extension record; whether it does is signalled
// by the preceding header. The result is a multiple of LineLen.
//
// An error wrapping ErrMalformedLength is returned if a record has a zero length
// field, and an error wrapping ErrBufferOverrun if a record extends past
// len(b).
func TotalLen(b []byte) (int, error) {
	// The class of the first record is irrelevant for the length, it only
	// has to be an extension class.
	it := NewIterator(b, HopByHopClass)
	for it.Next() {
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return it.Offset(), nil
}

// Find returns the first record of the chain starting at b[0] that matches the
// class and type of t. first is the class of the first record. The boolean
// result is false if no record matches.
//
// Records are visited in order, so framing errors after the first match are
// not detected. Framing errors before the match are returned as in TotalLen.
func Find(b []byte, first Class, t ExtnType) (Extension, bool, error) {
	it := NewIterator(b, first)
	for it.Next() {
		if e := it.Extension(); e.Class == t.Class && e.Type == t.Type {
			return e, true, nil
		}
	}
	if err := it.Err(); err != nil {
		return Extension{}, false, err
	}
	return Extension{}, false, nil
}

// Decode appends all records of the chain starting at b[0] to dst and returns
// the extended slice together with the next header field that terminated the
// chain. first is the class of the first record.
//
// On error, dst is returned with the records that were decoded before the
// framing error.
func Decode(b []byte, first Class, dst []Extension) ([]Extension, Class, error) {
	it := NewIterator(b, first)
	for it.Next() {
		dst = append(dst, it.Extension())
	}
	if err := it.Err(); err != nil {
		return dst, 0, err
	}
	return dst, it.NextHdr(), nil
}

// Validate checks the order and number of the decoded records: hop-by-hop
// records must precede end-to-end records and at most MaxHBH hop-by-hop
// records are allowed.
func Validate(exts []Extension) error {
	hbh := 0
	seenE2E := false
	for i, e := range exts {
		switch e.Class.Kind() {
		case KindHopByHop:
			if seenE2E {
				return serrors.JoinNoStack(ErrBadOrder, nil, "index", i, "extn", e.ExtnType())
			}
			hbh++
			if hbh > MaxHBH {
				return serrors.JoinNoStack(ErrTooManyHBH, nil, "max", MaxHBH, "actual", hbh)
			}
		case KindEnd2End:
			seenE2E = true
		case KindTerminator:
			return serrors.New("bad class number, must be E2E or HBH",
				"index", i, "class", e.Class)
		}
	}
	return nil
}
