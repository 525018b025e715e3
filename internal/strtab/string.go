// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package strtab

import (
	"unicode/utf16"
	"unicode/utf8"
)

// OneByte is a borrowed one-byte-per-unit string handle: a slice of bytes,
// presented as potentially-ill-formed UTF-8.
type OneByte struct {
	b []byte
}

// NewOneByte wraps a borrowed byte slice. The caller retains ownership; the
// handle must not outlive the buffer b points into.
func NewOneByte(b []byte) OneByte { return OneByte{b: b} }

// Bytes returns the underlying borrowed bytes.
func (s OneByte) Bytes() []byte { return s.b }

// Equal reports byte-content equality.
func (s OneByte) Equal(o OneByte) bool { return string(s.b) == string(o.b) }

// Display renders s as UTF-8, replacing any ill-formed byte sequences with
// the Unicode replacement character, the same substitution utf8.DecodeRune
// (and ranging over a Go string) makes for invalid UTF-8.
func (s OneByte) Display() string {
	if utf8.Valid(s.b) {
		return string(s.b)
	}
	var out []rune
	b := s.b
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}

// TwoByte is a borrowed two-byte-per-unit string handle: a slice of 16-bit
// code units stored as raw little-endian bytes, presented as
// potentially-ill-formed UTF-16.
type TwoByte struct {
	// raw holds the borrowed little-endian bytes as decoded off the wire
	// (length already verified even). Units are decoded on demand rather
	// than eagerly, so that a back-referenced string shared by many nodes
	// costs one allocation only when something actually reads it.
	raw []byte
}

// NewTwoByte wraps raw little-endian bytes (length must be even, enforced
// by the decoder before construction) as a TwoByte handle.
func NewTwoByte(raw []byte) TwoByte { return TwoByte{raw: raw} }

// Units decodes and returns the underlying UTF-16 code units.
func (s TwoByte) Units() []uint16 {
	units := make([]uint16, len(s.raw)/2)
	for i := range units {
		units[i] = uint16(s.raw[2*i]) | uint16(s.raw[2*i+1])<<8
	}
	return units
}

// Equal reports byte-content equality.
func (s TwoByte) Equal(o TwoByte) bool { return string(s.raw) == string(o.raw) }

// Display decodes s as UTF-16, replacing unpaired surrogates with the
// Unicode replacement character (utf16.Decode already does this).
func (s TwoByte) Display() string {
	return string(utf16.Decode(s.Units()))
}
