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
	"bytes"
	"testing"

	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/internal/stream"
)

func TestPrintScalarNumber(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, Num(42)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "42" {
		t.Fatalf("got %q, want %q", buf.String(), "42")
	}
}

func TestPrintScalarString(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, Str("hi\nthere")); err != nil {
		t.Fatal(err)
	}
	want := `"hi\nthere"`
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintNode(t *testing.T) {
	n := &dump.Node{ID: 0x30, Type: dump.Object}
	var buf bytes.Buffer
	if err := Print(&buf, NodeVal(n)); err != nil {
		t.Fatal(err)
	}
	want := "node 0x30 type=object"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintEdgeNoReferent(t *testing.T) {
	e := &dump.Edge{}
	var buf bytes.Buffer
	if err := Print(&buf, EdgeVal(e)); err != nil {
		t.Fatal(err)
	}
	want := "edge ->?"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintTopLevelStreamVertical(t *testing.T) {
	s := stream.FromSlice([]Value{Num(1), Num(2)})
	var buf bytes.Buffer
	if err := Print(&buf, StreamVal(s)); err != nil {
		t.Fatal(err)
	}
	want := "[\n    1\n    2\n]"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintNestedStreamFlipsOrientation(t *testing.T) {
	// A stream of streams: the outer prints vertically (top-level), so each
	// inner stream prints horizontally (§4.10's alternation).
	inner1 := StreamVal(stream.FromSlice([]Value{Num(1), Num(2)}))
	inner2 := StreamVal(stream.FromSlice([]Value{Num(3)}))
	outer := stream.FromSlice([]Value{inner1, inner2})

	var buf bytes.Buffer
	if err := Print(&buf, StreamVal(outer)); err != nil {
		t.Fatal(err)
	}
	want := "[\n    [ 1 2 ]\n    [ 3 ]\n]"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
