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
	"log"

	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/internal/stream"
)

// Context is read-only for the duration of evaluation: the snapshot being
// queried and whatever global configuration exists (§4.8).
type Context struct {
	Snapshot *dump.Snapshot
	Log      *log.Logger
}

// Activation is the runtime frame of one in-flight call: the captured
// vector of the currently executing closure (immutable during the call)
// and the actual arguments passed to it (§4.8). A Location's Captured flag
// selects which of the two slices to index into.
type Activation struct {
	Captured []Value
	Actuals  []Value
}

func (a *Activation) load(loc Location) Value {
	if loc.Captured {
		return a.Captured[loc.Index]
	}
	return a.Actuals[loc.Index]
}

// Plan is an executable node of the plan tree (§3, §4.8).
type Plan interface {
	Execute(act *Activation, ctx *Context) (Value, error)
}

// PredicatePlan is an executable predicate node (§4.7, §4.8).
type PredicatePlan interface {
	Test(v Value, act *Activation, ctx *Context) (bool, error)
}

// --- literals and loads -----------------------------------------------

type numberPlan uint64

func (p numberPlan) Execute(*Activation, *Context) (Value, error) { return Num(uint64(p)), nil }

type stringPlan string

func (p stringPlan) Execute(*Activation, *Context) (Value, error) { return Str(string(p)), nil }

type streamLiteralPlan struct{ elems []Plan }

func (p *streamLiteralPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	// Element plans are re-evaluated lazily as the stream is stepped (§4.6),
	// in the same activation the stream literal itself was built in.
	return StreamVal(stream.New[Value](&streamLiteralCore{
		elems: p.elems, act: act, ctx: ctx,
	})), nil
}

type streamLiteralCore struct {
	elems []Plan
	act   *Activation
	ctx   *Context
	pos   int
}

func (c *streamLiteralCore) Next() (Value, bool, error) {
	if c.pos >= len(c.elems) {
		return Value{}, false, nil
	}
	v, err := c.elems[c.pos].Execute(c.act, c.ctx)
	c.pos++
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func (c *streamLiteralCore) Clone() stream.Core[Value] {
	cp := *c
	return &cp
}

type loadPlan struct{ loc Location }

func (p *loadPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	return act.load(p.loc), nil
}

// --- primitives ---------------------------------------------------------

type rootPlan struct{}

func (rootPlan) Execute(_ *Activation, ctx *Context) (Value, error) {
	return NodeVal(ctx.Snapshot.Root()), nil
}

type nodesPlan struct{}

func (nodesPlan) Execute(_ *Activation, ctx *Context) (Value, error) {
	return StreamVal(stream.New[Value](&genCoreNodes{s: ctx.Snapshot, ids: ctx.Snapshot.NodeIDs()})), nil
}

// genCoreNodes walks a snapshot's node-id order, skipping ids removed by a
// later duplicate-id overwrite (dump.FromBytes prunes stale order
// entries, but defend here too since NodeIDs is a public contract).
type genCoreNodes struct {
	s   *dump.Snapshot
	ids []uint64
	pos int
}

func (c *genCoreNodes) Next() (Value, bool, error) {
	for c.pos < len(c.ids) {
		id := c.ids[c.pos]
		c.pos++
		if n, ok := c.s.GetNode(id); ok {
			return NodeVal(n), true, nil
		}
	}
	return Value{}, false, nil
}

func (c *genCoreNodes) Clone() stream.Core[Value] {
	cp := *c
	return &cp
}

// nodesByIDPlan looks up a single node by id, planned via id-hoist (§4.6,
// §4.8) instead of a linear scan over nodesPlan. id was extracted out of the
// predicate-op's own predicate, so its free variables resolve against the
// predicate-op's layout, not the ambient activation it is executed under;
// captureList rebuilds that layout's captured vector from the ambient
// activation, the same way filterPlan does for the rest of the predicate.
type nodesByIDPlan struct {
	id          Plan
	captureList []Location
}

func (p *nodesByIDPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	captured := make([]Value, len(p.captureList))
	for i, loc := range p.captureList {
		captured[i] = act.load(loc)
	}
	idVal, err := p.id.Execute(&Activation{Captured: captured}, ctx)
	if err != nil {
		return Value{}, err
	}
	id, err := idVal.AsNumber()
	if err != nil {
		return Value{}, err
	}
	var items []Value
	if n, ok := ctx.Snapshot.GetNode(id); ok {
		items = append(items, NodeVal(n))
	}
	return StreamVal(stream.FromSlice(items)), nil
}

// edgesPrimPlan and firstPrimPlan implement the specialized direct
// applications `edges(node-plan)` / `first(stream-plan)` called for by
// §4.6 ("If the function position is a reserved name edges|first|paths,
// emit the corresponding specialized primitive applied to the planned
// argument"), avoiding a trip through the generic call/closure machinery
// when the planner can see the primitive is being invoked directly.
type edgesPrimPlan struct{ node Plan }

func (p *edgesPrimPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	v, err := p.node.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	return edgesOf(v)
}

func edgesOf(v Value) (Value, error) {
	n, err := v.AsNode()
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, len(n.Edges))
	for i := range n.Edges {
		e := n.Edges[i]
		items[i] = EdgeVal(&e)
	}
	return StreamVal(stream.FromSlice(items)), nil
}

type firstPrimPlan struct{ src Plan }

func (p *firstPrimPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	v, err := p.src.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	s, err := v.AsStream()
	if err != nil {
		return Value{}, err
	}
	return First(s)
}

// First steps s once, failing with an empty-stream error if it produces
// nothing (§4.8, §7 kind 6).
func First(s Stream) (Value, error) {
	v, ok, err := s.Next()
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, &EmptyStreamError{Op: "first"}
	}
	return v, nil
}

type pathsPrimPlan struct{ src Plan }

func (p *pathsPrimPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	v, err := p.src.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	return pathsOf(v, ctx)
}

// --- reserved-name functions used as values ---------------------------

// constFuncPlan plans a bare reference to edges/first/paths/map that is not
// the function position of a direct application (§4.6: these three "plan
// as first-class functions" when not specialized).
type constFuncPlan struct{ fn Func }

func (p *constFuncPlan) Execute(*Activation, *Context) (Value, error) {
	return FuncVal(p.fn), nil
}

// --- map ------------------------------------------------------------

// mapPrim is the reserved `map` primitive: a function of two arguments,
// (stream, function), returning a stream that lazily applies the function
// to each element (§4.8).
var mapPrim Func = &nativeFunc{arity: 2, name: "map", call: func(args []Value, ctx *Context) (Value, error) {
	s, err := args[0].AsStream()
	if err != nil {
		return Value{}, err
	}
	fn, err := args[1].AsFunc()
	if err != nil {
		return Value{}, err
	}
	mapped := stream.Map(s, func(v Value) (Value, error) {
		return applyFull(fn, []Value{v}, ctx)
	})
	return StreamVal(mapped), nil
}}

var edgesPrim Func = &nativeFunc{arity: 1, name: "edges", call: func(args []Value, ctx *Context) (Value, error) {
	return edgesOf(args[0])
}}

var firstPrim Func = &nativeFunc{arity: 1, name: "first", call: func(args []Value, ctx *Context) (Value, error) {
	s, err := args[0].AsStream()
	if err != nil {
		return Value{}, err
	}
	return First(s)
}}

var pathsPrim Func = &nativeFunc{arity: 1, name: "paths", call: func(args []Value, ctx *Context) (Value, error) {
	return pathsOf(args[0], ctx)
}}

// --- closures -------------------------------------------------------

// closurePlan evaluates a Lambda's plan: gather the values at each location
// in captureList from the enclosing activation, package them as a captured
// vector, and produce a Func whose invocation evaluates body in a fresh
// activation built from that vector and the actuals (§4.8 "Closure
// creation").
type closurePlan struct {
	arity       int
	captureList []Location
	body        Plan
}

func (p *closurePlan) Execute(act *Activation, ctx *Context) (Value, error) {
	captured := make([]Value, len(p.captureList))
	for i, loc := range p.captureList {
		captured[i] = act.load(loc)
	}
	return FuncVal(&closure{arity: p.arity, captured: captured, body: p.body}), nil
}

type closure struct {
	arity    int
	captured []Value
	body     Plan
}

func (c *closure) Arity() int { return c.arity }

func (c *closure) Call(args []Value, ctx *Context) (Value, error) {
	inner := &Activation{Captured: c.captured, Actuals: args}
	return c.body.Execute(inner, ctx)
}

// --- generic call -----------------------------------------------------

// callPlan is a generic application: evaluate the argument, then the
// function, then apply (§4.8 "Generic call"). Evaluating the argument
// first matches §5's ordering guarantee ("a call evaluates argument before
// function").
type callPlan struct {
	arg  Plan
	fn   Plan
}

func (p *callPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	argVal, err := p.arg.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	fnVal, err := p.fn.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	return ApplyArg(fnVal, argVal, ctx)
}

// --- filter -----------------------------------------------------------

// filterPlan wraps a stream plan with a predicate plan (§4.6, §4.8
// "Filter execution"). The predicate's captured vector is snapshotted once,
// from the activation in force when the filter plan is executed, not
// recomputed per element: a predicate-op is a zero-arity lambda whose
// closure is created exactly once, at the point the PredicateOp itself is
// evaluated.
type filterPlan struct {
	src         Plan
	captureList []Location
	pred        PredicatePlan
}

func (p *filterPlan) Execute(act *Activation, ctx *Context) (Value, error) {
	v, err := p.src.Execute(act, ctx)
	if err != nil {
		return Value{}, err
	}
	captured := make([]Value, len(p.captureList))
	for i, loc := range p.captureList {
		captured[i] = act.load(loc)
	}

	s, err := v.AsStream()
	if err != nil {
		// The stream sub-expression evaluated to a single node or edge,
		// not a stream (§8 negative scenario "root { name: "x" }"): test
		// the predicate once against v itself. A non-matching result
		// folds to the empty stream so a filtered single value still
		// composes with stream operators downstream.
		predAct := &Activation{Captured: captured}
		ok, testErr := p.pred.Test(v, predAct, ctx)
		if testErr != nil {
			return Value{}, testErr
		}
		if ok {
			return v, nil
		}
		return StreamVal(stream.FromSlice(nil)), nil
	}

	filtered := stream.Filter(s, func(elem Value) (bool, error) {
		predAct := &Activation{Captured: captured}
		return p.pred.Test(elem, predAct, ctx)
	})
	return StreamVal(filtered), nil
}
