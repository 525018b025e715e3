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

// Package dump decodes a length-prefixed snapshot byte stream into an
// in-memory, read-only graph of nodes and edges (§4.2), resolving the
// format's back-reference string-interning scheme as it goes.
package dump

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jimblandy/fxsnapshot/internal/strtab"
)

// Snapshot owns the decoded graph for the duration of query evaluation. It
// never mutates after FromBytes returns.
type Snapshot struct {
	path      string
	buf       []byte
	timestamp *uint64
	rootID    uint64

	nodes   map[uint64]*Node
	order   []uint64 // declaration order, for deterministic iteration
	strtab1 strtab.Table
	strtab2 strtab.Table

	// sessionID correlates repeated -v runs against the same file in shell
	// history; it has no bearing on decoding or query evaluation.
	sessionID uuid.UUID
}

// Timestamp returns the snapshot's optional capture timestamp.
func (s *Snapshot) Timestamp() (uint64, bool) {
	if s.timestamp == nil {
		return 0, false
	}
	return *s.timestamp, true
}

// SessionID is a diagnostic identifier assigned per FromBytes call, logged
// under -v to correlate separate invocations against the same snapshot.
func (s *Snapshot) SessionID() uuid.UUID { return s.sessionID }

// GetNode looks up a node by id in O(1) average time.
func (s *Snapshot) GetNode(id uint64) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// HasNode reports whether id resolves to a node record.
func (s *Snapshot) HasNode(id uint64) bool {
	_, ok := s.nodes[id]
	return ok
}

// Root returns the designated root node. FromBytes guarantees this always
// succeeds (invariant i).
func (s *Snapshot) Root() *Node {
	n, ok := s.nodes[s.rootID]
	if !ok {
		// FromBytes enforces invariant (i) before returning, so this
		// would indicate a bug in construction, not a malformed input.
		panic("fxsnapshot: snapshot root id does not resolve to a node")
	}
	return n
}

// RootID returns the designated root node's id.
func (s *Snapshot) RootID() uint64 { return s.rootID }

// NodeIDs returns every node id, in declaration (stream) order; an id that
// appeared more than once sits at the position of its last occurrence. The
// query planner's `nodes` primitive iterates in this order. Snapshot has no
// separate unordered node iterator.
func (s *Snapshot) NodeIDs() []uint64 {
	return s.order
}

// FromBytes decodes a snapshot from a borrowed byte slice. buf must outlive
// the returned Snapshot and every Node/Edge/string it hands out.
//
// Construction reads a leading metadata message, then a root-node message,
// then node messages until EOF, performing the scan-then-materialize
// procedure from §4.2 on each node message in turn.
func FromBytes(path string, buf []byte, verbose *log.Logger) (*Snapshot, error) {
	r := NewReader(buf)

	s := &Snapshot{
		path:      path,
		buf:       buf,
		nodes:     make(map[uint64]*Node),
		sessionID: uuid.New(),
	}
	if verbose != nil {
		verbose.Printf("fxsnapshot: session %s opening %s (%d bytes)", s.sessionID, path, len(buf))
	}

	metaBody, err := r.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: reading metadata message: %w", path, err)
	}
	s.timestamp, err = decodeMetadata(metaBody)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}

	rootBody, err := r.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: reading root message: %w", path, err)
	}
	s.rootID, err = decodeRoot(rootBody)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}

	for !r.IsEOF() {
		offset := r.Offset()
		body, err := r.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("open snapshot %s at offset %d: reading node message: %w", path, offset, err)
		}
		wn, err := decodeNode(body)
		if err != nil {
			return nil, fmt.Errorf("open snapshot %s at offset %d: %w", path, offset, err)
		}
		node, err := s.scanAndMaterialize(wn, offset, verbose)
		if err != nil {
			return nil, fmt.Errorf("open snapshot %s at offset %d: %w", path, offset, err)
		}
		if _, dup := s.nodes[node.ID]; dup {
			// invariant (iii): duplicates overwrite silently, but we still
			// need to not grow `order` with a stale second entry.
			for i, id := range s.order {
				if id == node.ID {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		s.nodes[node.ID] = node
		s.order = append(s.order, node.ID)
	}

	if !s.HasNode(s.rootID) {
		return nil, fmt.Errorf("open snapshot %s: root id %#x does not resolve to any node (invariant i)", path, s.rootID)
	}
	return s, nil
}

// scanAndMaterialize implements the per-node half of §4.2: Scan interns any
// literal string bytes this node message carries (including its allocation
// stack chain) before Materialize resolves every dedup field — literal,
// back-reference, or absent — into the node's owned attributes. Scanning
// first guarantees any back-reference this node's own fields make to a
// string introduced by this same message has already been interned by the
// time Materialize reads it.
func (s *Snapshot) scanAndMaterialize(wn wireNode, offset int, verbose *log.Logger) (*Node, error) {
	s.scanDedup(&wn.typeName, &s.strtab2, verbose)
	s.scanDedup(&wn.className, &s.strtab1, verbose)
	s.scanDedup(&wn.scriptFilename, &s.strtab1, verbose)
	s.scanDedup(&wn.descriptiveTypeName, &s.strtab2, verbose)
	for i := range wn.edges {
		s.scanDedup(&wn.edges[i].name, &s.strtab2, verbose)
	}
	s.scanAllocFrame(wn.allocStack, verbose)

	n := &Node{
		Size: wn.size,
		Type: Other,
	}
	if wn.id != nil {
		n.ID = *wn.id
	} else {
		return nil, decodeErrf(offset, "node message is missing its id field")
	}
	if wn.coarseType != nil {
		n.Type = CoarseType(*wn.coarseType)
	}

	var err error
	n.TypeName, err = materializeTwoByte(&wn.typeName, &s.strtab2)
	if err != nil {
		return nil, fmt.Errorf("node %#x: typeName: %w", n.ID, err)
	}
	n.ClassName, err = materializeOneByte(&wn.className, &s.strtab1)
	if err != nil {
		return nil, fmt.Errorf("node %#x: className: %w", n.ID, err)
	}
	n.ScriptFilename, err = materializeOneByte(&wn.scriptFilename, &s.strtab1)
	if err != nil {
		return nil, fmt.Errorf("node %#x: scriptFilename: %w", n.ID, err)
	}
	n.DescriptiveTypeName, err = materializeTwoByte(&wn.descriptiveTypeName, &s.strtab2)
	if err != nil {
		return nil, fmt.Errorf("node %#x: descriptiveTypeName: %w", n.ID, err)
	}

	n.Edges = make([]Edge, len(wn.edges))
	for i, we := range wn.edges {
		name, err := materializeTwoByte(&we.name, &s.strtab2)
		if err != nil {
			return nil, fmt.Errorf("node %#x: edge[%d].name: %w", n.ID, i, err)
		}
		n.Edges[i] = Edge{Referent: we.referent, Name: name}
	}
	return n, nil
}

func (s *Snapshot) scanDedup(f *dedupField, table *strtab.Table, verbose *log.Logger) {
	if !f.present || f.isRef {
		return
	}
	idx := table.Intern(f.bytes)
	if verbose != nil {
		if dup, ok := table.DuplicateOf(idx, f.bytes); ok {
			verbose.Printf("fxsnapshot: string %q re-interned at index %d (first seen at %d); a back-reference would have been smaller", f.bytes, idx, dup)
		}
	}
}

func (s *Snapshot) scanAllocFrame(f *wireAllocFrame, verbose *log.Logger) {
	for f != nil {
		s.scanDedup(&f.source, &s.strtab1, verbose)
		s.scanDedup(&f.funcName, &s.strtab2, verbose)
		f = f.next
	}
}

func materializeOneByte(f *dedupField, table *strtab.Table) (*strtab.OneByte, error) {
	if !f.present {
		return nil, nil
	}
	if !f.isRef {
		s := strtab.NewOneByte(f.bytes)
		return &s, nil
	}
	b, ok := table.At(f.ref)
	if !ok {
		return nil, fmt.Errorf("back-reference index %d exceeds %d strings interned so far (invariant ii)", f.ref, table.Len())
	}
	s := strtab.NewOneByte(b)
	return &s, nil
}

func materializeTwoByte(f *dedupField, table *strtab.Table) (*strtab.TwoByte, error) {
	if !f.present {
		return nil, nil
	}
	if !f.isRef {
		if len(f.bytes)%2 != 0 {
			return nil, fmt.Errorf("two-byte string has odd length %d", len(f.bytes))
		}
		s := strtab.NewTwoByte(f.bytes)
		return &s, nil
	}
	b, ok := table.At(f.ref)
	if !ok {
		return nil, fmt.Errorf("back-reference index %d exceeds %d strings interned so far (invariant ii)", f.ref, table.Len())
	}
	s := strtab.NewTwoByte(b)
	return &s, nil
}
