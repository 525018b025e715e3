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

// VarAddr identifies a specific formal parameter: the lambda that binds it,
// and its position among that lambda's formals.
type VarAddr struct {
	Lambda LambdaID
	Index  int
}

// CaptureMap is the result of the second analysis pass (§4.5 item 1): for
// every lambda, the set of variable-addresses it captures (its transitive
// free variables), and for every lexical use, the address it resolves to.
//
// Ported directly from the original source's src/query/env.rs CaptureMap: a
// recursive walk carrying a stack of (lambda-id, formals) scopes, resolving
// each lexical name innermost-to-outermost and threading a per-lambda
// "currently accumulating captured set" that gets unioned into the
// enclosing lambda's set once the lambda's own formals are subtracted back
// out.
type CaptureMap struct {
	Lambdas map[LambdaID]map[VarAddr]struct{}
	Uses    map[UseID]VarAddr
}

// UnboundVar reports a lexical reference to a name with nothing in scope to
// bind it — the only static error this language defines (§7 kind 4).
type UnboundVar struct{ Name string }

func (e *UnboundVar) Error() string { return "unbound variable: " + e.Name }

type scopeEntry struct {
	lambda  LambdaID
	formals []string
}

type captureWalk struct {
	scopes   []scopeEntry
	lambdas  map[LambdaID]map[VarAddr]struct{}
	uses     map[UseID]VarAddr
	captured map[VarAddr]struct{}
}

// Analyze computes the CaptureMap for an already-labeled expression tree
// (see AssignLabels). It returns an *UnboundVar error at the first lexical
// reference with nothing in scope to bind it.
func Analyze(e Expr) (*CaptureMap, error) {
	w := &captureWalk{
		lambdas:  make(map[LambdaID]map[VarAddr]struct{}),
		uses:     make(map[UseID]VarAddr),
		captured: make(map[VarAddr]struct{}),
	}
	if err := w.visitExpr(e); err != nil {
		return nil, err
	}
	return &CaptureMap{Lambdas: w.lambdas, Uses: w.uses}, nil
}

func (w *captureWalk) findVar(name string) (VarAddr, bool) {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		formals := w.scopes[i].formals
		for idx, f := range formals {
			if f == name {
				return VarAddr{Lambda: w.scopes[i].lambda, Index: idx}, true
			}
		}
	}
	return VarAddr{}, false
}

func (w *captureWalk) visitExpr(e Expr) error {
	switch n := e.(type) {
	case Number, String:
		return nil
	case *StreamLiteral:
		for _, el := range n.Elems {
			if err := w.visitExpr(el); err != nil {
				return err
			}
		}
		return nil
	case *Var:
		if n.Kind != VarLexical {
			return nil
		}
		addr, ok := w.findVar(n.Name)
		if !ok {
			return &UnboundVar{Name: n.Name}
		}
		w.uses[n.Use] = addr
		w.captured[addr] = struct{}{}
		return nil
	case *Lambda:
		return w.visitScope(n.ID, n.Formals, func() error { return w.visitExpr(n.Body) })
	case *App:
		if err := w.visitExpr(n.Arg); err != nil {
			return err
		}
		return w.visitExpr(n.Func)
	case *PredicateOp:
		if err := w.visitExpr(n.Stream); err != nil {
			return err
		}
		return w.visitScope(n.ID, nil, func() error {
			return w.visitPredicate(n.Pred)
		})
	}
	return nil
}

// visitScope implements the push/visit/pop/subtract/union dance from
// env.rs's Lambda arm, shared by both Lambda and PredicateOp since a
// predicate-op is a zero-arity lambda for this purpose (§9).
func (w *captureWalk) visitScope(id LambdaID, formals []string, visitBody func() error) error {
	parentCaptured := w.captured
	w.captured = make(map[VarAddr]struct{})

	w.scopes = append(w.scopes, scopeEntry{lambda: id, formals: formals})
	if err := visitBody(); err != nil {
		return err
	}
	w.scopes = w.scopes[:len(w.scopes)-1]

	// References to this lambda's own formals are bound here, not free:
	// drop them before recording the capture set.
	for addr := range w.captured {
		if addr.Lambda == id {
			delete(w.captured, addr)
		}
	}

	captured := w.captured
	w.captured = parentCaptured
	for addr := range captured {
		w.captured[addr] = struct{}{}
	}
	w.lambdas[id] = captured
	return nil
}

func (w *captureWalk) visitPredicate(p Predicate) error {
	switch pr := p.(type) {
	case *PredExpr:
		return w.visitExpr(pr.E)
	case *PredField:
		return w.visitPredicate(pr.Sub)
	case *PredEnds:
		return w.visitPredicate(pr.Sub)
	case *PredAny:
		return w.visitPredicate(pr.Sub)
	case *PredAll:
		return w.visitPredicate(pr.Sub)
	case *PredRegex:
		return nil
	case *PredAnd:
		for _, s := range pr.Subs {
			if err := w.visitPredicate(s); err != nil {
				return err
			}
		}
		return nil
	case *PredOr:
		for _, s := range pr.Subs {
			if err := w.visitPredicate(s); err != nil {
				return err
			}
		}
		return nil
	case *PredNot:
		return w.visitPredicate(pr.Sub)
	}
	return nil
}
