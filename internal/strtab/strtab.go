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

// Package strtab implements the two back-reference string-interning tables
// (one-byte and two-byte) that a snapshot's node messages dereference.
//
// A table is append-only and never deduplicates by content: the snapshot
// writer alone decides whether a string occurrence is "new" (raw bytes) or a
// repeat (a back-reference index), so the reader's job is simply to remember
// strings in declaration order and answer lookups by index. This mirrors
// ion.Symtab's interned/toindex split, minus the forward string->index map,
// which a reader never needs (see ion/symtab.go Intern/Lookup).
package strtab

import "github.com/dchest/siphash"

// Table is one of a snapshot's two string-interning tables. The zero value
// is an empty table ready to use.
type Table struct {
	entries [][]byte

	// seen is a SipHash-keyed index from content hash to the entries
	// holding that content, used only to detect (and, under -v, log)
	// snapshots that redundantly re-intern identical string content
	// instead of back-referencing it. It is a diagnostic aid, not part
	// of lookup: Intern never consults it to dedupe, since doing so
	// would violate declaration-order interning (invariant ii).
	seen map[uint64][]int
}

// sipKey is fixed and arbitrary: the hash is used only to bucket diagnostic
// duplicate-content checks, never as a security boundary.
var sipKey0, sipKey1 uint64 = 0x6c6f6e6773686f74, 0x6865617073686f74

// Intern appends a newly-introduced string's bytes to the table and returns
// its index. Intern never deduplicates by content (see Table doc).
func (t *Table) Intern(b []byte) int {
	idx := len(t.entries)
	t.entries = append(t.entries, b)
	if t.seen == nil {
		t.seen = make(map[uint64][]int)
	}
	h := siphash.Hash(sipKey0, sipKey1, b)
	t.seen[h] = append(t.seen[h], idx)
	return idx
}

// DuplicateOf reports the index of a previously-interned entry with
// byte-identical content to b, if one was interned before idx. Used only to
// produce a -v diagnostic; never consulted by Intern or At.
func (t *Table) DuplicateOf(idx int, b []byte) (int, bool) {
	h := siphash.Hash(sipKey0, sipKey1, b)
	for _, i := range t.seen[h] {
		if i == idx {
			continue
		}
		if i < idx && string(t.entries[i]) == string(b) {
			return i, true
		}
	}
	return 0, false
}

// At returns the bytes interned at index i, or (nil, false) if i is out of
// range. The returned slice is the one that was interned: a borrowed slice
// into the snapshot's backing buffer for strings that carried raw bytes.
func (t *Table) At(i int) ([]byte, bool) {
	if i < 0 || i >= len(t.entries) {
		return nil, false
	}
	return t.entries[i], true
}

// Len returns the number of strings interned so far.
func (t *Table) Len() int {
	return len(t.entries)
}
