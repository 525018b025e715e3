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

import "fmt"

// Func is a callable value: a closure produced by a Lambda plan, a
// reserved-name primitive (edges/first/paths/map), or a partial
// application of either. Arity-zero functions are disallowed (§9); Call is
// only ever invoked with exactly Arity() arguments (see callPlan in
// exec.go, which folds a call site's single argument against Arity() via
// applyFull).
type Func interface {
	Arity() int
	Call(args []Value, ctx *Context) (Value, error)
}

// partial is a function awaiting more arguments: it was invoked with fewer
// than its arity, so it captured what it was given and waits for the rest
// (§4.8 "Generic call", §9 "Partial application").
type partial struct {
	inner Func
	given []Value
}

func (p *partial) Arity() int { return p.inner.Arity() - len(p.given) }

func (p *partial) Call(args []Value, ctx *Context) (Value, error) {
	all := make([]Value, 0, len(p.given)+len(args))
	all = append(all, p.given...)
	all = append(all, args...)
	return applyFull(p.inner, all, ctx)
}

// applyFull invokes fn with exactly the arguments it needs, left-currying
// any extra ones onto the result (§4.8's "greater" case): if len(args) >
// fn.Arity(), the function is invoked with the n *rightmost* arguments,
// then the result is called with the remaining (leftmost) ones. This models
// application as right-associating when oversaturated, matching how `App`
// nests (the outermost App's argument is the last one supplied).
func applyFull(fn Func, args []Value, ctx *Context) (Value, error) {
	n := fn.Arity()
	if n == 0 {
		return Value{}, fmt.Errorf("fxsnapshot: arity-zero function invoked (unsupported, §9)")
	}
	switch {
	case len(args) < n:
		return FuncVal(&partial{inner: fn, given: args}), nil
	case len(args) == n:
		return fn.Call(args, ctx)
	default:
		rightmost := args[len(args)-n:]
		rest := args[:len(args)-n]
		v, err := fn.Call(rightmost, ctx)
		if err != nil {
			return Value{}, err
		}
		f2, err := v.AsFunc()
		if err != nil {
			return Value{}, &NotAFunctionError{Actual: v.TypeName()}
		}
		return applyFull(f2, rest, ctx)
	}
}

// ApplyArg is the entry point for a single-argument call site (every
// App node supplies exactly one argument): it folds partial application
// and left-curried oversaturation through applyFull.
func ApplyArg(fnVal Value, arg Value, ctx *Context) (Value, error) {
	fn, err := fnVal.AsFunc()
	if err != nil {
		return Value{}, &NotAFunctionError{Actual: fnVal.TypeName()}
	}
	return applyFull(fn, []Value{arg}, ctx)
}

// nativeFunc adapts a Go closure of known arity into a Func, used for the
// reserved-name primitives edges/first/paths/map (§4.8) that are not
// produced by planning a Lambda.
type nativeFunc struct {
	arity int
	name  string
	call  func(args []Value, ctx *Context) (Value, error)
}

func (n *nativeFunc) Arity() int { return n.arity }
func (n *nativeFunc) Call(args []Value, ctx *Context) (Value, error) {
	return n.call(args, ctx)
}
