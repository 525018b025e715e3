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
	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/internal/stream"
)

// Kind discriminates the variants of Value (§4.3).
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindEdge
	KindNode
	KindStream
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEdge:
		return "edge"
	case KindNode:
		return "node"
	case KindStream:
		return "stream"
	case KindFunc:
		return "function"
	default:
		return "invalid"
	}
}

// Stream is a lazy, cloneable, fallible sequence of Values, instantiating
// the generic kernel in internal/stream.
type Stream = stream.Stream[Value]

// Value is a run-time value produced by evaluating an expression. Values
// are cheap to clone: a Value is a small struct of scalars plus, for the
// composite kinds, a value that is itself cheap to copy (a Go string header,
// a borrowed pointer, or a Stream/Func that carries its own sharing).
type Value struct {
	kind Kind

	num    uint64
	str    string
	edge   *dump.Edge
	node   *dump.Node
	stream Stream
	fn     Func
}

func Num(n uint64) Value         { return Value{kind: KindNumber, num: n} }
func Str(s string) Value         { return Value{kind: KindString, str: s} }
func EdgeVal(e *dump.Edge) Value { return Value{kind: KindEdge, edge: e} }
func NodeVal(n *dump.Node) Value { return Value{kind: KindNode, node: n} }
func StreamVal(s Stream) Value   { return Value{kind: KindStream, stream: s} }
func FuncVal(f Func) Value       { return Value{kind: KindFunc, fn: f} }

// Kind reports v's variant.
func (v Value) Kind() Kind { return v.kind }

// TypeName names v's variant the way error messages want it (§4.3).
func (v Value) TypeName() string { return v.kind.String() }

func (v Value) AsNumber() (uint64, error) {
	if v.kind != KindNumber {
		return 0, &TypeError{Expected: KindNumber.String(), Actual: v.kind.String()}
	}
	return v.num, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &TypeError{Expected: KindString.String(), Actual: v.kind.String()}
	}
	return v.str, nil
}

func (v Value) AsEdge() (*dump.Edge, error) {
	if v.kind != KindEdge {
		return nil, &TypeError{Expected: KindEdge.String(), Actual: v.kind.String()}
	}
	return v.edge, nil
}

func (v Value) AsNode() (*dump.Node, error) {
	if v.kind != KindNode {
		return nil, &TypeError{Expected: KindNode.String(), Actual: v.kind.String()}
	}
	return v.node, nil
}

func (v Value) AsStream() (Stream, error) {
	if v.kind != KindStream {
		return Stream{}, &TypeError{Expected: KindStream.String(), Actual: v.kind.String()}
	}
	return v.stream, nil
}

func (v Value) AsFunc() (Func, error) {
	if v.kind != KindFunc {
		return nil, &TypeError{Expected: KindFunc.String(), Actual: v.kind.String()}
	}
	return v.fn, nil
}
