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

package dump

import (
	"errors"
	"testing"
)

// wireBuilder hand-assembles the length-prefixed, tag/value wire format
// described in §4.1/§6, for building test fixtures without any encoder of
// its own to test against (there is none: the format is write-once, this
// repository only ever reads it).
type wireBuilder struct{ buf []byte }

func (b *wireBuilder) varint(v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.buf = append(b.buf, c)
		if v == 0 {
			return
		}
	}
}

func (b *wireBuilder) tag(field uint32, wt byte) { b.varint(uint64(field)<<3 | uint64(wt)) }

func (b *wireBuilder) varintField(field uint32, v uint64) {
	b.tag(field, byte(wireVarint))
	b.varint(v)
}

func (b *wireBuilder) bytesField(field uint32, data []byte) {
	b.tag(field, byte(wireBytes))
	b.varint(uint64(len(data)))
	b.buf = append(b.buf, data...)
}

func message(body []byte) []byte {
	var b wireBuilder
	b.varint(uint64(len(body)))
	return append(b.buf, body...)
}

// utf16le encodes an ASCII string as little-endian UTF-16 code units, the
// wire representation of a two-byte dedup field (§4.2).
func utf16le(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

// edgeMessage builds a node-edge sub-message: referent then an inline
// (not back-referenced) two-byte name.
func edgeMessage(referent uint64, name string) []byte {
	var e wireBuilder
	e.varintField(fieldEdgeReferent, referent)
	e.bytesField(fieldEdgeName, utf16le(name))
	return e.buf
}

// buildScenarioS assembles the snapshot used throughout this file's tests:
// root 0x10, with edges to 0x20 ("a") and 0x30 ("b"); 0x20 has an edge to
// 0x30 ("c"); 0x30 carries typeName "Array".
func buildScenarioS() []byte {
	meta := message(nil)

	var root wireBuilder
	root.varintField(fieldRootID, 0x10)
	rootMsg := message(root.buf)

	var n10 wireBuilder
	n10.varintField(fieldNodeID, 0x10)
	n10.bytesField(fieldNodeEdges, edgeMessage(0x20, "a"))
	n10.bytesField(fieldNodeEdges, edgeMessage(0x30, "b"))
	n10Msg := message(n10.buf)

	var n20 wireBuilder
	n20.varintField(fieldNodeID, 0x20)
	n20.bytesField(fieldNodeEdges, edgeMessage(0x30, "c"))
	n20Msg := message(n20.buf)

	var n30 wireBuilder
	n30.varintField(fieldNodeID, 0x30)
	n30.bytesField(fieldNodeTypeName, utf16le("Array"))
	n30Msg := message(n30.buf)

	var all []byte
	all = append(all, meta...)
	all = append(all, rootMsg...)
	all = append(all, n10Msg...)
	all = append(all, n20Msg...)
	all = append(all, n30Msg...)
	return all
}

func TestFromBytesScenarioS(t *testing.T) {
	snap, err := FromBytes("scenario-s", buildScenarioS(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if snap.RootID() != 0x10 {
		t.Fatalf("RootID() = %#x, want 0x10", snap.RootID())
	}
	root := snap.Root()
	if root.ID != 0x10 {
		t.Fatalf("Root().ID = %#x, want 0x10", root.ID)
	}
	if len(root.Edges) != 2 {
		t.Fatalf("len(Root().Edges) = %d, want 2", len(root.Edges))
	}
	if *root.Edges[0].Referent != 0x20 || root.Edges[0].Name.Display() != "a" {
		t.Fatalf("Root().Edges[0] = %#x %q", *root.Edges[0].Referent, root.Edges[0].Name.Display())
	}
	if *root.Edges[1].Referent != 0x30 || root.Edges[1].Name.Display() != "b" {
		t.Fatalf("Root().Edges[1] = %#x %q", *root.Edges[1].Referent, root.Edges[1].Name.Display())
	}

	n20, ok := snap.GetNode(0x20)
	if !ok {
		t.Fatal("node 0x20 not found")
	}
	if len(n20.Edges) != 1 || *n20.Edges[0].Referent != 0x30 || n20.Edges[0].Name.Display() != "c" {
		t.Fatalf("node 0x20 edges = %+v", n20.Edges)
	}

	n30, ok := snap.GetNode(0x30)
	if !ok {
		t.Fatal("node 0x30 not found")
	}
	if n30.TypeName == nil || n30.TypeName.Display() != "Array" {
		t.Fatalf("node 0x30 TypeName = %v", n30.TypeName)
	}
	if n30.Size != nil {
		t.Fatalf("node 0x30 Size = %v, want nil", n30.Size)
	}

	if snap.HasNode(0x99) {
		t.Fatal("HasNode(0x99) = true, want false")
	}

	ids := snap.NodeIDs()
	want := []uint64{0x10, 0x20, 0x30}
	if len(ids) != len(want) {
		t.Fatalf("NodeIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("NodeIDs() = %v, want %v", ids, want)
		}
	}
}

func TestFromBytesMissingRoot(t *testing.T) {
	meta := message(nil)
	var root wireBuilder
	root.varintField(fieldRootID, 0x99) // never defined as a node
	rootMsg := message(root.buf)

	var n wireBuilder
	n.varintField(fieldNodeID, 0x10)
	nMsg := message(n.buf)

	var all []byte
	all = append(all, meta...)
	all = append(all, rootMsg...)
	all = append(all, nMsg...)

	_, err := FromBytes("missing-root", all, nil)
	if err == nil {
		t.Fatal("expected an error for a root id with no matching node")
	}
}

func TestFromBytesTruncatedMessage(t *testing.T) {
	// A length prefix claiming more bytes than actually follow.
	var b wireBuilder
	b.varint(100)
	b.buf = append(b.buf, 1, 2, 3)

	_, err := FromBytes("truncated", b.buf, nil)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("got %v, want a *DecodeError", err)
	}
}

func TestFromBytesDuplicateIDOverwrites(t *testing.T) {
	meta := message(nil)
	var root wireBuilder
	root.varintField(fieldRootID, 0x10)
	rootMsg := message(root.buf)

	var n1 wireBuilder
	n1.varintField(fieldNodeID, 0x10)
	n1Msg := message(n1.buf)

	var n2 wireBuilder
	n2.varintField(fieldNodeID, 0x10)
	size := uint64(42)
	n2.varintField(fieldNodeSize, size)
	n2Msg := message(n2.buf)

	var all []byte
	all = append(all, meta...)
	all = append(all, rootMsg...)
	all = append(all, n1Msg...)
	all = append(all, n2Msg...)

	snap, err := FromBytes("dup-id", all, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.NodeIDs()) != 1 {
		t.Fatalf("NodeIDs() = %v, want exactly one entry (invariant iii)", snap.NodeIDs())
	}
	n := snap.Root()
	if n.Size == nil || *n.Size != 42 {
		t.Fatalf("Root().Size = %v, want the later duplicate's value 42", n.Size)
	}
}
