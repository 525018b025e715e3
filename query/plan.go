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

// BuildPlan runs the full analysis-to-plan pipeline over e (§4.5, §4.6) and
// returns the root of the executable plan tree.
func BuildPlan(e Expr) (Plan, error) {
	labels := AssignLabels(e)
	cm, err := Analyze(e)
	if err != nil {
		return nil, err
	}
	layouts := ComputeLayouts(labels, cm)
	p := &planner{labels: labels, cm: cm, layouts: layouts}
	return p.build(e)
}

type planner struct {
	labels  *Labels
	cm      *CaptureMap
	layouts Layouts
}

func (p *planner) build(e Expr) (Plan, error) {
	switch e := e.(type) {
	case Number:
		return numberPlan(e), nil
	case String:
		return stringPlan(e), nil
	case *StreamLiteral:
		elems := make([]Plan, len(e.Elems))
		for i, sub := range e.Elems {
			ep, err := p.build(sub)
			if err != nil {
				return nil, err
			}
			elems[i] = ep
		}
		return &streamLiteralPlan{elems: elems}, nil
	case *Var:
		return p.buildVar(e)
	case *Lambda:
		layout := p.layouts[e.ID]
		body, err := p.build(e.Body)
		if err != nil {
			return nil, err
		}
		return &closurePlan{arity: layout.Arity, captureList: layout.CaptureList, body: body}, nil
	case *App:
		return p.buildApp(e)
	case *PredicateOp:
		return p.buildPredicateOp(e)
	default:
		return nil, fmt.Errorf("fxsnapshot: unplannable expression %T", e)
	}
}

func (p *planner) buildVar(v *Var) (Plan, error) {
	switch v.Kind {
	case VarRoot:
		return rootPlan{}, nil
	case VarNodes:
		return nodesPlan{}, nil
	case VarEdges:
		return &constFuncPlan{fn: edgesPrim}, nil
	case VarFirst:
		return &constFuncPlan{fn: firstPrim}, nil
	case VarPaths:
		return &constFuncPlan{fn: pathsPrim}, nil
	case VarMap:
		return &constFuncPlan{fn: mapPrim}, nil
	case VarLexical:
		loc, ok := ResolveUse(p.labels, p.cm, p.layouts, v.Use)
		if !ok {
			return nil, fmt.Errorf("fxsnapshot: unresolved lexical reference %q", v.Name)
		}
		return &loadPlan{loc: loc}, nil
	default:
		return nil, fmt.Errorf("fxsnapshot: unknown variable kind %d", v.Kind)
	}
}

// buildApp implements §4.6's Application rule: edges/first/paths applied
// directly specialize to their dedicated plan node; everything else,
// including a bare `map`, goes through the generic call plan.
func (p *planner) buildApp(a *App) (Plan, error) {
	if fv, ok := a.Func.(*Var); ok {
		switch fv.Kind {
		case VarEdges:
			arg, err := p.build(a.Arg)
			if err != nil {
				return nil, err
			}
			return &edgesPrimPlan{node: arg}, nil
		case VarFirst:
			arg, err := p.build(a.Arg)
			if err != nil {
				return nil, err
			}
			return &firstPrimPlan{src: arg}, nil
		case VarPaths:
			arg, err := p.build(a.Arg)
			if err != nil {
				return nil, err
			}
			return &pathsPrimPlan{src: arg}, nil
		}
	}
	argPlan, err := p.build(a.Arg)
	if err != nil {
		return nil, err
	}
	fnPlan, err := p.build(a.Func)
	if err != nil {
		return nil, err
	}
	return &callPlan{arg: argPlan, fn: fnPlan}, nil
}

// buildPredicateOp implements §4.6's predicate-op rule: id-hoist when the
// stream sub-expression is the bare `nodes` primitive and the predicate
// admits a required node id, otherwise a plain filter (or the stream plan
// unchanged / an empty-stream literal when the predicate folds to trivial).
func (p *planner) buildPredicateOp(po *PredicateOp) (Plan, error) {
	if po.Op != OpFilter {
		return nil, fmt.Errorf("fxsnapshot: predicate-op %q is not implemented", po.Op)
	}
	layout := p.layouts[po.ID]

	if v, ok := po.Stream.(*Var); ok && v.Kind == VarNodes {
		if idExpr, rest, ok := requiredID(po.Pred); ok {
			idPlan, err := p.build(idExpr)
			if err != nil {
				return nil, err
			}
			src := &nodesByIDPlan{id: idPlan, captureList: layout.CaptureList}
			return p.wrapFilter(src, layout, rest)
		}
	}

	srcPlan, err := p.build(po.Stream)
	if err != nil {
		return nil, err
	}
	return p.wrapFilter(srcPlan, layout, po.Pred)
}

func (p *planner) wrapFilter(src Plan, layout *LambdaLayout, pred Predicate) (Plan, error) {
	res, err := p.planPredicate(pred)
	if err != nil {
		return nil, err
	}
	if res.trivial {
		if res.value {
			return src, nil
		}
		return &streamLiteralPlan{}, nil
	}
	return &filterPlan{src: src, captureList: layout.CaptureList, pred: res.plan}, nil
}
