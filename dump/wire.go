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

// This file decodes the field tags within one message body (the schema
// layer §6 describes). Each field is tagged the way ion tags typed values
// (ion/reader.go TypeOf/SizeOf read a descriptor byte before the payload),
// except here a field tag packs a field number and a wire type, not a value
// type: wireVarint for scalar integers, wireBytes for length-delimited byte
// payloads (strings, sub-messages, and repeated-edge/alloc-stack entries
// are all "bytes" at this level; their own field tags are nested one level
// in). A single field number legitimately appears with either wire type for
// the four deduplicable string fields: wireBytes means "here are the raw
// bytes of a newly-introduced string", wireVarint means "this is a
// back-reference index into the interning table for strings of this kind"
// — the one-of discriminator the format description in §6 calls for.
type wireType byte

const (
	wireVarint wireType = 0
	wireBytes  wireType = 2
)

// cursor walks the field tags of a single message body.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) done() bool { return c.pos >= len(c.buf) }

func (c *cursor) readTag() (field uint32, wt wireType, err error) {
	v, err := readVarintAt(c.buf, &c.pos)
	if err != nil {
		return 0, 0, err
	}
	return uint32(v >> 3), wireType(v & 0x7), nil
}

func (c *cursor) readVarintValue() (uint64, error) {
	return readVarintAt(c.buf, &c.pos)
}

func (c *cursor) readBytesValue() ([]byte, error) {
	start := c.pos
	n, err := readVarintAt(c.buf, &c.pos)
	if err != nil {
		return nil, err
	}
	remaining := uint64(len(c.buf) - c.pos)
	if n > remaining {
		return nil, decodeErrf(start, "field length %d exceeds remaining message (%d bytes)", n, remaining)
	}
	b := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}

func (c *cursor) skip(wt wireType) error {
	switch wt {
	case wireVarint:
		_, err := c.readVarintValue()
		return err
	case wireBytes:
		_, err := c.readBytesValue()
		return err
	default:
		return decodeErrf(c.pos, "unknown wire type %d", wt)
	}
}

// dedupField is the decoded form of a deduplicable string field: either
// absent, a newly-introduced literal (isRef==false), or a back-reference
// index into the field's interning table (isRef==true). See §4.2's
// scan-then-materialize contract: Scan consumes only the literal case,
// Materialize resolves both.
type dedupField struct {
	present bool
	isRef   bool
	ref     int
	bytes   []byte
}

func readDedupField(c *cursor, wt wireType) (dedupField, error) {
	switch wt {
	case wireBytes:
		b, err := c.readBytesValue()
		if err != nil {
			return dedupField{}, err
		}
		return dedupField{present: true, bytes: b}, nil
	case wireVarint:
		v, err := c.readVarintValue()
		if err != nil {
			return dedupField{}, err
		}
		return dedupField{present: true, isRef: true, ref: int(v)}, nil
	default:
		return dedupField{}, decodeErrf(c.pos, "deduplicable string field has unexpected wire type %d", wt)
	}
}

// Field numbers for the metadata message.
const fieldMetaTimestamp = 1

func decodeMetadata(body []byte) (timestamp *uint64, err error) {
	c := &cursor{buf: body}
	for !c.done() {
		field, wt, err := c.readTag()
		if err != nil {
			return nil, err
		}
		switch field {
		case fieldMetaTimestamp:
			if wt != wireVarint {
				return nil, decodeErrf(c.pos, "metadata timestamp: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return nil, err
			}
			timestamp = &v
		default:
			if err := c.skip(wt); err != nil {
				return nil, err
			}
		}
	}
	return timestamp, nil
}

// Field numbers for the root-node message.
const fieldRootID = 1

func decodeRoot(body []byte) (uint64, error) {
	c := &cursor{buf: body}
	var id *uint64
	for !c.done() {
		field, wt, err := c.readTag()
		if err != nil {
			return 0, err
		}
		switch field {
		case fieldRootID:
			if wt != wireVarint {
				return 0, decodeErrf(c.pos, "root id: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return 0, err
			}
			id = &v
		default:
			if err := c.skip(wt); err != nil {
				return 0, err
			}
		}
	}
	if id == nil {
		return 0, decodeErrf(0, "root message is missing its id field")
	}
	return *id, nil
}

// Field numbers within an edge sub-message.
const (
	fieldEdgeReferent = 1
	fieldEdgeName     = 2
)

type wireEdge struct {
	referent *uint64
	name     dedupField
}

func decodeEdge(body []byte) (wireEdge, error) {
	var e wireEdge
	c := &cursor{buf: body}
	for !c.done() {
		field, wt, err := c.readTag()
		if err != nil {
			return e, err
		}
		switch field {
		case fieldEdgeReferent:
			if wt != wireVarint {
				return e, decodeErrf(c.pos, "edge referent: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return e, err
			}
			e.referent = &v
		case fieldEdgeName:
			e.name, err = readDedupField(c, wt)
			if err != nil {
				return e, err
			}
		default:
			if err := c.skip(wt); err != nil {
				return e, err
			}
		}
	}
	return e, nil
}

// Field numbers within an allocation-stack frame sub-message.
const (
	fieldAllocSource   = 1
	fieldAllocFuncName = 2
	fieldAllocNext     = 3
)

type wireAllocFrame struct {
	source   dedupField
	funcName dedupField
	next     *wireAllocFrame
}

func decodeAllocFrame(body []byte) (*wireAllocFrame, error) {
	f := &wireAllocFrame{}
	c := &cursor{buf: body}
	for !c.done() {
		field, wt, err := c.readTag()
		if err != nil {
			return nil, err
		}
		switch field {
		case fieldAllocSource:
			f.source, err = readDedupField(c, wt)
			if err != nil {
				return nil, err
			}
		case fieldAllocFuncName:
			f.funcName, err = readDedupField(c, wt)
			if err != nil {
				return nil, err
			}
		case fieldAllocNext:
			if wt != wireBytes {
				return nil, decodeErrf(c.pos, "alloc-stack next: expected bytes, got wire type %d", wt)
			}
			raw, err := c.readBytesValue()
			if err != nil {
				return nil, err
			}
			next, err := decodeAllocFrame(raw)
			if err != nil {
				return nil, err
			}
			f.next = next
		default:
			if err := c.skip(wt); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// Field numbers within a node message.
const (
	fieldNodeID                  = 1
	fieldNodeSize                = 2
	fieldNodeEdges               = 3
	fieldNodeAllocStack          = 4
	fieldNodeTypeName            = 5
	fieldNodeClassName           = 6
	fieldNodeScriptFilename      = 7
	fieldNodeDescriptiveTypeName = 8
	fieldNodeCoarseType          = 9
)

type wireNode struct {
	id                  *uint64
	size                *uint64
	edges               []wireEdge
	allocStack          *wireAllocFrame
	typeName            dedupField
	className           dedupField
	scriptFilename      dedupField
	descriptiveTypeName dedupField
	coarseType          *uint32
}

func decodeNode(body []byte) (wireNode, error) {
	var n wireNode
	c := &cursor{buf: body}
	for !c.done() {
		field, wt, err := c.readTag()
		if err != nil {
			return n, err
		}
		switch field {
		case fieldNodeID:
			if wt != wireVarint {
				return n, decodeErrf(c.pos, "node id: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return n, err
			}
			n.id = &v
		case fieldNodeSize:
			if wt != wireVarint {
				return n, decodeErrf(c.pos, "node size: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return n, err
			}
			n.size = &v
		case fieldNodeEdges:
			if wt != wireBytes {
				return n, decodeErrf(c.pos, "node edge: expected bytes, got wire type %d", wt)
			}
			raw, err := c.readBytesValue()
			if err != nil {
				return n, err
			}
			e, err := decodeEdge(raw)
			if err != nil {
				return n, err
			}
			n.edges = append(n.edges, e)
		case fieldNodeAllocStack:
			if wt != wireBytes {
				return n, decodeErrf(c.pos, "node alloc-stack: expected bytes, got wire type %d", wt)
			}
			raw, err := c.readBytesValue()
			if err != nil {
				return n, err
			}
			n.allocStack, err = decodeAllocFrame(raw)
			if err != nil {
				return n, err
			}
		case fieldNodeTypeName:
			n.typeName, err = readDedupField(c, wt)
			if err != nil {
				return n, err
			}
		case fieldNodeClassName:
			n.className, err = readDedupField(c, wt)
			if err != nil {
				return n, err
			}
		case fieldNodeScriptFilename:
			n.scriptFilename, err = readDedupField(c, wt)
			if err != nil {
				return n, err
			}
		case fieldNodeDescriptiveTypeName:
			n.descriptiveTypeName, err = readDedupField(c, wt)
			if err != nil {
				return n, err
			}
		case fieldNodeCoarseType:
			if wt != wireVarint {
				return n, decodeErrf(c.pos, "node coarse type: expected varint, got wire type %d", wt)
			}
			v, err := c.readVarintValue()
			if err != nil {
				return n, err
			}
			if v > 4 {
				return n, decodeErrf(c.pos, "node coarse type %d out of range 0..=4", v)
			}
			v32 := uint32(v)
			n.coarseType = &v32
		default:
			if err := c.skip(wt); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}
