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
	"fmt"

	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/internal/stream"
)

// bfsStep records how a node was first discovered: nil means it was one of
// the start nodes, otherwise it was reached by following edge from origin
// (§4.9).
type bfsStep struct {
	origin uint64
	edge   *dump.Edge
}

// breadthFirst enumerates nodes reachable from a start set in non-decreasing
// shortest-path order, ported from the breadth-first traversal the original
// implementation used to back `paths` (query/breadth_first.rs): a discovery
// map doubling as the visited set and the predecessor store, plus a FIFO of
// the discovery front.
type breadthFirst struct {
	snap    *dump.Snapshot
	visited map[uint64]*bfsStep
	front   []uint64
	head    int
}

func newBreadthFirst(snap *dump.Snapshot) *breadthFirst {
	return &breadthFirst{snap: snap, visited: make(map[uint64]*bfsStep)}
}

// addStartNode enqueues id as a start node. It reports false if id does not
// resolve in the snapshot.
func (b *breadthFirst) addStartNode(id uint64) bool {
	if _, ok := b.snap.GetNode(id); !ok {
		return false
	}
	if _, seen := b.visited[id]; seen {
		return true
	}
	b.visited[id] = nil
	b.front = append(b.front, id)
	return true
}

// next dequeues the next discovered node, discovering its unvisited
// out-neighbors in the process, and reports its id. It reports ok=false
// once the front is exhausted.
func (b *breadthFirst) next() (id uint64, ok bool) {
	if b.head >= len(b.front) {
		return 0, false
	}
	id = b.front[b.head]
	b.head++
	n, _ := b.snap.GetNode(id)
	for i := range n.Edges {
		e := n.Edges[i]
		if e.Referent == nil {
			continue
		}
		ref := *e.Referent
		if _, seen := b.visited[ref]; seen {
			continue
		}
		b.visited[ref] = &bfsStep{origin: id, edge: &e}
		b.front = append(b.front, ref)
	}
	return id, true
}

// pathFromStart reconstructs the path from whichever start node discovered
// id to id itself, as an alternating node/edge/node/.../edge/node sequence
// (§4.9's closing sentence), by walking predecessors and reversing.
func (b *breadthFirst) pathFromStart(id uint64) ([]Value, error) {
	type hop struct {
		edge *dump.Edge
		node uint64
	}
	var hops []hop
	cur := id
	for {
		step, ok := b.visited[cur]
		if !ok {
			return nil, fmt.Errorf("fxsnapshot: path reconstruction for undiscovered node %#x", cur)
		}
		if step == nil {
			break
		}
		hops = append(hops, hop{edge: step.edge, node: cur})
		cur = step.origin
	}
	startNode, ok := b.snap.GetNode(cur)
	if !ok {
		return nil, fmt.Errorf("fxsnapshot: start node %#x vanished from snapshot", cur)
	}
	items := make([]Value, 0, 1+2*len(hops))
	items = append(items, NodeVal(startNode))
	for i := len(hops) - 1; i >= 0; i-- {
		h := hops[i]
		items = append(items, EdgeVal(h.edge))
		n, ok := b.snap.GetNode(h.node)
		if !ok {
			return nil, fmt.Errorf("fxsnapshot: node %#x vanished from snapshot", h.node)
		}
		items = append(items, NodeVal(n))
	}
	return items, nil
}

// bfsCore adapts breadthFirst into a stream.Core[Value] whose elements are
// themselves streams: one per reachable node, holding that node's path from
// its start node (§4.9's closing sentence).
type bfsCore struct{ bf *breadthFirst }

func (c *bfsCore) Next() (Value, bool, error) {
	id, ok := c.bf.next()
	if !ok {
		return Value{}, false, nil
	}
	items, err := c.bf.pathFromStart(id)
	if err != nil {
		return Value{}, false, err
	}
	return StreamVal(stream.FromSlice(items)), true, nil
}

func (c *bfsCore) Clone() stream.Core[Value] {
	nb := &breadthFirst{
		snap:    c.bf.snap,
		visited: make(map[uint64]*bfsStep, len(c.bf.visited)),
		front:   append([]uint64(nil), c.bf.front...),
		head:    c.bf.head,
	}
	for k, v := range c.bf.visited {
		nb.visited[k] = v
	}
	return &bfsCore{bf: nb}
}

// pathsOf implements the `paths` primitive (§4.8, §4.9): v names one or
// more start nodes (a single node, or a stream of nodes), and the result is
// a stream of paths, each itself a stream of alternating node/edge values
// starting with its source node.
func pathsOf(v Value, ctx *Context) (Value, error) {
	bf := newBreadthFirst(ctx.Snapshot)
	switch v.Kind() {
	case KindNode:
		n, err := v.AsNode()
		if err != nil {
			return Value{}, err
		}
		bf.addStartNode(n.ID)
	case KindStream:
		s, err := v.AsStream()
		if err != nil {
			return Value{}, err
		}
		starts, err := stream.Collect(s)
		if err != nil {
			return Value{}, err
		}
		for _, sv := range starts {
			n, err := sv.AsNode()
			if err != nil {
				return Value{}, err
			}
			bf.addStartNode(n.ID)
		}
	default:
		return Value{}, &TypeError{Expected: "node or stream of nodes", Actual: v.TypeName()}
	}
	return StreamVal(stream.New[Value](&bfsCore{bf: bf})), nil
}
