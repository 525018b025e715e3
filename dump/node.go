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

import "github.com/jimblandy/fxsnapshot/internal/strtab"

// CoarseType is a node's broad kind, drawn from the five-valued enumeration
// in §3. The numeric order matches the wire discriminator (0..=4).
type CoarseType uint32

const (
	Other CoarseType = iota
	Object
	Script
	String
	DOMNode
)

func (t CoarseType) String() string {
	switch t {
	case Other:
		return "other"
	case Object:
		return "object"
	case Script:
		return "script"
	case String:
		return "string"
	case DOMNode:
		return "dom-node"
	default:
		return "invalid"
	}
}

// Edge is a directed relationship from a node to another node id, carrying
// an optional name. Referent may point to a node id not present in the
// snapshot (invariant iv): that is not an error, it just means later
// lookups of that id come back absent.
type Edge struct {
	Referent *uint64
	Name     *strtab.TwoByte
}

// Node is one decoded, owned node record. Any borrowed string attribute
// (TypeName, ClassName, ScriptFilename, DescriptiveTypeName) points either into
// the snapshot's backing buffer (literal bytes case) or into one of the
// snapshot's interning tables (back-reference case); both are valid for the
// snapshot's entire lifetime, never the node's alone.
type Node struct {
	ID   uint64
	Size *uint64
	Edges []Edge
	Type  CoarseType

	TypeName            *strtab.TwoByte
	ClassName           *strtab.OneByte
	ScriptFilename      *strtab.OneByte
	DescriptiveTypeName *strtab.TwoByte
}
