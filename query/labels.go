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

// Labels is the result of the first analysis pass (§4.4): a dense id
// assigned to every lambda/predicate-op and every lexical variable use, in
// pre-order, such that a parent lambda's id strictly precedes any nested
// lambda's id.
//
// It also records the structural bookkeeping the closure-layout pass
// (layout.go) needs and that a parser producing only placeholder ids cannot
// supply on its own: each lambda's enclosing parent (if any), its formal
// names, and — for every lexical use — which lambda's activation it reads
// from at runtime (the innermost lambda containing the use, which may
// differ from the lambda that defines the variable once it is captured
// transitively).
type Labels struct {
	// Order lists lambda/predicate-op ids in assignment order, which is
	// also ascending numeric order (parents precede children).
	Order []LambdaID

	// ParentOf maps a lambda id to its lexically enclosing lambda id, if
	// any. Top-level lambdas are absent from this map.
	ParentOf map[LambdaID]LambdaID

	// Formals maps a lambda id to its formal parameter names. A
	// predicate-op is present with an empty slice (arity zero, per §9).
	Formals map[LambdaID][]string

	// Enclosing maps a use-id to the innermost lambda id containing that
	// use. Every use nested in some lambda or predicate-op has an entry,
	// including references analysis.go later reports as unbound. A use at
	// the top level, outside every lambda, gets a use-id but no entry here;
	// nothing can bind it, so it always becomes an UnboundVar error.
	Enclosing map[UseID]LambdaID

	NumLambdas int
	NumUses    int
}

// AssignLabels walks e in pre-order, assigning a fresh LambdaID to every
// Lambda and PredicateOp and a fresh UseID to every lexical Var, and returns
// the structural bookkeeping described on Labels. It mutates e in place.
func AssignLabels(e Expr) *Labels {
	l := &Labels{
		ParentOf:  make(map[LambdaID]LambdaID),
		Formals:   make(map[LambdaID][]string),
		Enclosing: make(map[UseID]LambdaID),
	}
	w := &labelWalk{labels: l, scope: []LambdaID{}}
	w.walkExpr(e)
	l.NumLambdas = w.nextLambda
	l.NumUses = w.nextUse
	return l
}

type labelWalk struct {
	labels     *Labels
	nextLambda int
	nextUse    int
	scope      []LambdaID // innermost-last stack of enclosing lambda/predicate-op ids
}

func (w *labelWalk) enterLambda(id LambdaID, formals []string) {
	w.labels.Order = append(w.labels.Order, id)
	w.labels.Formals[id] = formals
	if len(w.scope) > 0 {
		w.labels.ParentOf[id] = w.scope[len(w.scope)-1]
	}
	w.scope = append(w.scope, id)
}

func (w *labelWalk) leaveLambda() {
	w.scope = w.scope[:len(w.scope)-1]
}

func (w *labelWalk) walkExpr(e Expr) {
	switch n := e.(type) {
	case Number, String:
		// leaves
	case *StreamLiteral:
		for _, el := range n.Elems {
			w.walkExpr(el)
		}
	case *Var:
		if n.Kind == VarLexical {
			n.Use = UseID(w.nextUse)
			if len(w.scope) > 0 {
				w.labels.Enclosing[n.Use] = w.scope[len(w.scope)-1]
			}
			w.nextUse++
		}
	case *Lambda:
		n.ID = LambdaID(w.nextLambda)
		w.nextLambda++
		w.enterLambda(n.ID, n.Formals)
		w.walkExpr(n.Body)
		w.leaveLambda()
	case *App:
		w.walkExpr(n.Arg)
		w.walkExpr(n.Func)
	case *PredicateOp:
		w.walkExpr(n.Stream)
		n.ID = LambdaID(w.nextLambda)
		w.nextLambda++
		w.enterLambda(n.ID, nil)
		w.walkPredicate(n.Pred)
		w.leaveLambda()
	}
}

func (w *labelWalk) walkPredicate(p Predicate) {
	switch pr := p.(type) {
	case *PredExpr:
		w.walkExpr(pr.E)
	case *PredField:
		w.walkPredicate(pr.Sub)
	case *PredEnds:
		w.walkPredicate(pr.Sub)
	case *PredAny:
		w.walkPredicate(pr.Sub)
	case *PredAll:
		w.walkPredicate(pr.Sub)
	case *PredRegex:
		// leaf
	case *PredAnd:
		for _, s := range pr.Subs {
			w.walkPredicate(s)
		}
	case *PredOr:
		for _, s := range pr.Subs {
			w.walkPredicate(s)
		}
	case *PredNot:
		w.walkPredicate(pr.Sub)
	}
}
