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

package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/internal/stream"
)

// The constants and helpers below hand-assemble the same wire format
// dump/snapshot_test.go exercises directly; field numbers are duplicated
// here rather than exported from package dump, which has no reason to
// expose wire-level details outside its own tests.
const (
	bfsFieldRootID   = 1
	bfsFieldNodeID   = 1
	bfsFieldNodeEdges = 3
	bfsFieldNodeTypeName = 5

	bfsFieldEdgeReferent = 1
	bfsFieldEdgeName     = 2

	bfsWireVarint = 0
	bfsWireBytes  = 2
)

type bfsWireBuilder struct{ buf []byte }

func (b *bfsWireBuilder) varint(v uint64) {
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

func (b *bfsWireBuilder) tag(field uint32, wt byte) { b.varint(uint64(field)<<3 | uint64(wt)) }

func (b *bfsWireBuilder) varintField(field uint32, v uint64) {
	b.tag(field, bfsWireVarint)
	b.varint(v)
}

func (b *bfsWireBuilder) bytesField(field uint32, data []byte) {
	b.tag(field, bfsWireBytes)
	b.varint(uint64(len(data)))
	b.buf = append(b.buf, data...)
}

func bfsMessage(body []byte) []byte {
	var b bfsWireBuilder
	b.varint(uint64(len(body)))
	return append(b.buf, body...)
}

func bfsUTF16LE(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func bfsEdgeMessage(referent uint64, name string) []byte {
	var e bfsWireBuilder
	e.varintField(bfsFieldEdgeReferent, referent)
	e.bytesField(bfsFieldEdgeName, bfsUTF16LE(name))
	return e.buf
}

// buildScenarioSBytes assembles root 0x10 --a--> 0x20 --c--> 0x30,
// root --b--> 0x30; 0x30 carries typeName "Array".
func buildScenarioSBytes() []byte {
	meta := bfsMessage(nil)

	var root bfsWireBuilder
	root.varintField(bfsFieldRootID, 0x10)
	rootMsg := bfsMessage(root.buf)

	var n10 bfsWireBuilder
	n10.varintField(bfsFieldNodeID, 0x10)
	n10.bytesField(bfsFieldNodeEdges, bfsEdgeMessage(0x20, "a"))
	n10.bytesField(bfsFieldNodeEdges, bfsEdgeMessage(0x30, "b"))
	n10Msg := bfsMessage(n10.buf)

	var n20 bfsWireBuilder
	n20.varintField(bfsFieldNodeID, 0x20)
	n20.bytesField(bfsFieldNodeEdges, bfsEdgeMessage(0x30, "c"))
	n20Msg := bfsMessage(n20.buf)

	var n30 bfsWireBuilder
	n30.varintField(bfsFieldNodeID, 0x30)
	n30.bytesField(bfsFieldNodeTypeName, bfsUTF16LE("Array"))
	n30Msg := bfsMessage(n30.buf)

	var all []byte
	all = append(all, meta...)
	all = append(all, rootMsg...)
	all = append(all, n10Msg...)
	all = append(all, n20Msg...)
	all = append(all, n30Msg...)
	return all
}

// buildTestSnapshot constructs scenario S: root 0x10 --a--> 0x20 --c--> 0x30,
// root --b--> 0x30; 0x30 carries typeName "Array".
func buildTestSnapshot(t *testing.T) *dump.Snapshot {
	t.Helper()
	snap, err := dump.FromBytes("bfs-fixture", buildScenarioSBytes(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestPathsFromSingleNode(t *testing.T) {
	snap := buildTestSnapshot(t)
	root := snap.Root()

	v, err := pathsOf(NodeVal(root), &Context{Snapshot: snap})
	if err != nil {
		t.Fatal(err)
	}
	s, err := v.AsStream()
	if err != nil {
		t.Fatal(err)
	}
	paths, err := stream.Collect(s)
	if err != nil {
		t.Fatal(err)
	}
	// Reachable nodes from root in BFS order: root itself, 0x20, 0x30 (the
	// first path to reach 0x30 is root->0x30 directly, at distance 1, not
	// the longer root->0x20->0x30 route).
	if len(paths) != 3 {
		t.Fatalf("got %d paths, want 3", len(paths))
	}

	first, err := stream.Collect(mustStream(t, paths[0]))
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("path 0 = %v, want just the root", first)
	}

	third, err := stream.Collect(mustStream(t, paths[2]))
	if err != nil {
		t.Fatal(err)
	}
	// root, edge, node: the shortest path to whichever node was discovered
	// third, alternating node/edge/node.
	wantKinds := []Kind{KindNode, KindEdge, KindNode}
	gotKinds := make([]Kind, len(third))
	for i, v := range third {
		gotKinds[i] = v.Kind()
	}
	if diff := cmp.Diff(wantKinds, gotKinds); diff != "" {
		t.Fatalf("path 2 kinds mismatch (-want +got):\n%s", diff)
	}
}

func mustStream(t *testing.T, v Value) Stream {
	t.Helper()
	s, err := v.AsStream()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPathsFromMultipleStartNodes(t *testing.T) {
	snap := buildTestSnapshot(t)
	n20, _ := snap.GetNode(0x20)
	n30, _ := snap.GetNode(0x30)

	starts := StreamVal(stream.FromSlice([]Value{NodeVal(n20), NodeVal(n30)}))
	v, err := pathsOf(starts, &Context{Snapshot: snap})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := v.AsStream()
	paths, err := stream.Collect(s)
	if err != nil {
		t.Fatal(err)
	}
	// 0x20 and 0x30 are each their own start (distance 0), and 0x20 reaches
	// 0x30 again at distance 1 — but 0x30 was already visited as a start
	// node, so it is never rediscovered.
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
}

func TestPathsRejectsNonNodeValue(t *testing.T) {
	snap := buildTestSnapshot(t)
	_, err := pathsOf(Num(1), &Context{Snapshot: snap})
	if err == nil {
		t.Fatal("expected a TypeError for a non-node, non-stream start value")
	}
}
