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
	"regexp"

	"github.com/jimblandy/fxsnapshot/internal/stream"
)

// predResult is the outcome of planning a predicate (§4.7): either it
// folded away to a constant (trivial, with the constant in value), or it
// produced an executable plan.
type predResult struct {
	trivial bool
	value   bool
	plan    PredicatePlan
}

func trivialResult(v bool) predResult { return predResult{trivial: true, value: v} }
func planResult(p PredicatePlan) predResult { return predResult{plan: p} }

// toPlan forces a predResult into a PredicatePlan, materializing a trivial
// result as a constant plan when the caller cannot itself fold triviality
// away (Ends' sub-predicate position).
func toPlan(r predResult) PredicatePlan {
	if r.trivial {
		return trivialPredPlan(r.value)
	}
	return r.plan
}

func (p *planner) planPredicate(pred Predicate) (predResult, error) {
	switch pr := pred.(type) {
	case *PredExpr:
		ePlan, err := p.build(pr.E)
		if err != nil {
			return predResult{}, err
		}
		return planResult(&exprPredPlan{expect: ePlan}), nil

	case *PredField:
		sub, err := p.planPredicate(pr.Sub)
		if err != nil {
			return predResult{}, err
		}
		if sub.trivial {
			// Propagates outward (§4.7): the field is never even read.
			return sub, nil
		}
		return planResult(&fieldPredPlan{name: pr.Name, sub: sub.plan}), nil

	case *PredEnds:
		sub, err := p.planPredicate(pr.Sub)
		if err != nil {
			return predResult{}, err
		}
		return planResult(&endsPredPlan{sub: toPlan(sub)}), nil

	case *PredAny:
		sub, err := p.planPredicate(pr.Sub)
		if err != nil {
			return predResult{}, err
		}
		switch {
		case sub.trivial && !sub.value:
			return trivialResult(false), nil
		case sub.trivial && sub.value:
			return planResult(nonEmptyPredPlan{}), nil
		default:
			return planResult(&anyPredPlan{sub: sub.plan}), nil
		}

	case *PredAll:
		sub, err := p.planPredicate(pr.Sub)
		if err != nil {
			return predResult{}, err
		}
		switch {
		case sub.trivial && sub.value:
			return trivialResult(true), nil
		case sub.trivial && !sub.value:
			return planResult(emptyPredPlan{}), nil
		default:
			return planResult(&allPredPlan{sub: sub.plan}), nil
		}

	case *PredRegex:
		re, err := regexp.Compile(pr.Source)
		if err != nil {
			return predResult{}, fmt.Errorf("fxsnapshot: invalid regex %q: %w", pr.Source, err)
		}
		return planResult(&regexPredPlan{re: re}), nil

	case *PredAnd:
		return p.planJunction(pr.Subs, true)

	case *PredOr:
		return p.planJunction(pr.Subs, false)

	case *PredNot:
		sub, err := p.planPredicate(pr.Sub)
		if err != nil {
			return predResult{}, err
		}
		if sub.trivial {
			return trivialResult(!sub.value), nil
		}
		return planResult(&notPredPlan{sub: sub.plan}), nil

	default:
		return predResult{}, fmt.Errorf("fxsnapshot: unplannable predicate %T", pred)
	}
}

// planJunction implements §4.7's junction folding. consonant is the
// identity value of the junction (true for And, false for Or): a trivial
// subterm equal to consonant is dropped, a trivial subterm equal to its
// opposite (the dissonant value) short-circuits the whole junction to that
// dissonant value, and a junction with no surviving subterms is trivially
// consonant.
func (p *planner) planJunction(subs []Predicate, consonant bool) (predResult, error) {
	var plans []PredicatePlan
	for _, s := range subs {
		r, err := p.planPredicate(s)
		if err != nil {
			return predResult{}, err
		}
		if r.trivial {
			if r.value == consonant {
				continue
			}
			return trivialResult(!consonant), nil
		}
		plans = append(plans, r.plan)
	}
	if len(plans) == 0 {
		return trivialResult(consonant), nil
	}
	return planResult(&junctionPredPlan{isAnd: consonant, subs: plans}), nil
}

// --- predicate plan nodes -----------------------------------------------

// trivialPredPlan is a predicate that folded to a constant but still needs
// to present as a PredicatePlan (nested under Ends, which always executes
// its sub-predicate rather than folding it away).
type trivialPredPlan bool

func (t trivialPredPlan) Test(Value, *Activation, *Context) (bool, error) { return bool(t), nil }

// exprPredPlan implements Expr(e): equality against the planned value.
type exprPredPlan struct{ expect Plan }

func (p *exprPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	want, err := p.expect.Execute(act, ctx)
	if err != nil {
		return false, err
	}
	return valuesEqual(v, want)
}

// valuesEqual compares two values for the purposes of Expr(e): only
// numbers and strings are comparable this way. Values of different kinds
// are simply unequal; two values of the same other kind are a type error
// (§7 kind 5).
func valuesEqual(a, b Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, nil
	}
	switch a.Kind() {
	case KindNumber:
		av, _ := a.AsNumber()
		bv, _ := b.AsNumber()
		return av == bv, nil
	case KindString:
		as, _ := a.AsString()
		bs, _ := b.AsString()
		return as == bs, nil
	default:
		return false, &TypeError{Expected: "number or string", Actual: a.TypeName()}
	}
}

// fieldPredPlan implements Field(name, sub).
type fieldPredPlan struct {
	name string
	sub  PredicatePlan
}

func (p *fieldPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	fv, absent, err := fieldOf(v, p.name)
	if err != nil {
		return false, err
	}
	if absent {
		return false, nil
	}
	return p.sub.Test(fv, act, ctx)
}

// endsPredPlan implements Ends(sub): the last element of a stream.
type endsPredPlan struct{ sub PredicatePlan }

func (p *endsPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	s, err := v.AsStream()
	if err != nil {
		return false, err
	}
	last, ok, err := stream.Last(s)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, &EmptyStreamError{Op: "ends"}
	}
	return p.sub.Test(last, act, ctx)
}

// anyPredPlan implements the non-trivial case of Any(sub).
type anyPredPlan struct{ sub PredicatePlan }

func (p *anyPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	s, err := v.AsStream()
	if err != nil {
		return false, err
	}
	return stream.Any(s, func(elem Value) (bool, error) {
		return p.sub.Test(elem, act, ctx)
	})
}

// nonEmptyPredPlan implements Any(sub) when sub is trivially true: the
// predicate reduces to "the stream is non-empty".
type nonEmptyPredPlan struct{}

func (nonEmptyPredPlan) Test(v Value, _ *Activation, _ *Context) (bool, error) {
	s, err := v.AsStream()
	if err != nil {
		return false, err
	}
	return stream.Any(s, func(Value) (bool, error) { return true, nil })
}

// allPredPlan implements the non-trivial case of All(sub).
type allPredPlan struct{ sub PredicatePlan }

func (p *allPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	s, err := v.AsStream()
	if err != nil {
		return false, err
	}
	return stream.All(s, func(elem Value) (bool, error) {
		return p.sub.Test(elem, act, ctx)
	})
}

// emptyPredPlan implements All(sub) when sub is trivially false: the
// predicate reduces to "the stream is empty".
type emptyPredPlan struct{}

func (emptyPredPlan) Test(v Value, _ *Activation, _ *Context) (bool, error) {
	s, err := v.AsStream()
	if err != nil {
		return false, err
	}
	any, err := stream.Any(s, func(Value) (bool, error) { return true, nil })
	return !any, err
}

// regexPredPlan implements Regex(re): unanchored substring match against a
// string value.
type regexPredPlan struct{ re *regexp.Regexp }

func (p *regexPredPlan) Test(v Value, _ *Activation, _ *Context) (bool, error) {
	s, err := v.AsString()
	if err != nil {
		return false, err
	}
	return p.re.MatchString(s), nil
}

// junctionPredPlan implements the non-trivial remainder of And/Or after
// folding: isAnd selects short-circuit-on-false (And) vs
// short-circuit-on-true (Or).
type junctionPredPlan struct {
	isAnd bool
	subs  []PredicatePlan
}

func (p *junctionPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	for _, sub := range p.subs {
		ok, err := sub.Test(v, act, ctx)
		if err != nil {
			return false, err
		}
		if p.isAnd && !ok {
			return false, nil
		}
		if !p.isAnd && ok {
			return true, nil
		}
	}
	return p.isAnd, nil
}

// notPredPlan implements Not(sub).
type notPredPlan struct{ sub PredicatePlan }

func (p *notPredPlan) Test(v Value, act *Activation, ctx *Context) (bool, error) {
	ok, err := p.sub.Test(v, act, ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
