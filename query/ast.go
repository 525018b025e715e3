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

// Package query implements the expression language: its abstract syntax
// (this file), static analysis, planner, tree-walking executor, the
// breadth-first path search behind `paths`, and the value printer.
//
// Grounded on the original source's src/query/ast.rs (Expr/NullaryOp/
// PrefixOp/StreamBinaryOp/Predicate) and on §3 of the specification, which
// folds PrefixOp/NullaryOp into a single reserved-name Var plus generic
// App, the way sneller's expr package represents builtins as ordinary
// identifiers resolved by expr.Builtin rather than distinct node kinds
// (see expr/builtin.go).
package query

// LambdaID labels a lambda or predicate-op. Predicate-ops bind no formals
// but introduce a capture frame exactly like a zero-arity lambda (§9), so
// they share this id space rather than having their own.
type LambdaID int

// UseID labels one lexical variable-reference site.
type UseID int

// Expr is any node of the expression tree (§3).
type Expr interface{ exprNode() }

// Number is a 64-bit unsigned literal.
type Number uint64

// String is a string literal.
type String string

// StreamLiteral is a literal sequence of sub-expressions.
type StreamLiteral struct {
	Elems []Expr
}

// VarKind distinguishes the reserved built-in names from a lexical
// reference to a lambda formal.
type VarKind int

const (
	VarRoot VarKind = iota
	VarNodes
	VarEdges
	VarFirst
	VarPaths
	VarMap
	VarLexical
)

// ReservedVar maps a reserved name to its VarKind, or (0, false) if name is
// not reserved.
func ReservedVar(name string) (VarKind, bool) {
	switch name {
	case "root":
		return VarRoot, true
	case "nodes":
		return VarNodes, true
	case "edges":
		return VarEdges, true
	case "first":
		return VarFirst, true
	case "paths":
		return VarPaths, true
	case "map":
		return VarMap, true
	default:
		return 0, false
	}
}

// Var is either a reserved built-in name or a lexical variable reference.
// Lexical references carry a use-site id (assigned during labeling) and the
// source name used to resolve it.
type Var struct {
	Kind VarKind
	Name string
	Use  UseID // valid only when Kind == VarLexical
}

// Lambda is `|formals| body`. ID is assigned during labeling.
type Lambda struct {
	ID      LambdaID
	Formals []string
	Body    Expr
}

// App is function application: Func applied to Arg. Evaluation order
// (argument before function) is a runtime concern (§5), not a structural
// one; see exec.go.
type App struct {
	Arg  Expr
	Func Expr
}

// PredOp selects which predicate-stream operator a PredicateOp applies.
// Only Filter is required by the base spec; the parser only ever produces
// Filter, and the planner rejects Find and Until (§4.6, §9 Open Questions).
type PredOp int

const (
	OpFind PredOp = iota
	OpFilter
	OpUntil
)

func (o PredOp) String() string {
	switch o {
	case OpFind:
		return "find"
	case OpFilter:
		return "filter"
	case OpUntil:
		return "until"
	default:
		return "?"
	}
}

// PredicateOp applies Pred to every element of Stream via Op. ID is
// assigned during labeling, from the same space as Lambda ids.
type PredicateOp struct {
	ID     LambdaID
	Stream Expr
	Op     PredOp
	Pred   Predicate
}

func (Number) exprNode()         {}
func (String) exprNode()         {}
func (*StreamLiteral) exprNode() {}
func (*Var) exprNode()           {}
func (*Lambda) exprNode()        {}
func (*App) exprNode()           {}
func (*PredicateOp) exprNode()   {}

// Predicate is the sub-language tested against each stream element by a
// PredicateOp (§3).
type Predicate interface{ predicateNode() }

// PredExpr tests the element for equality against E.
type PredExpr struct{ E Expr }

// PredField selects a named field off the element and tests Sub against it.
type PredField struct {
	Name string
	Sub  Predicate
}

// PredEnds takes the last element of a (sub-)stream and tests it with Sub.
type PredEnds struct{ Sub Predicate }

// PredAny is satisfied if any element of a (sub-)stream satisfies Sub.
type PredAny struct{ Sub Predicate }

// PredAll is satisfied if every element of a (sub-)stream satisfies Sub.
type PredAll struct{ Sub Predicate }

// PredRegex tests a string value with an unanchored substring match.
type PredRegex struct{ Source string }

// PredAnd is a conjunction; the empty conjunction is trivially true (§8).
type PredAnd struct{ Subs []Predicate }

// PredOr is a disjunction; the empty disjunction is trivially false (§8).
type PredOr struct{ Subs []Predicate }

// PredNot negates Sub.
type PredNot struct{ Sub Predicate }

func (*PredExpr) predicateNode()  {}
func (*PredField) predicateNode() {}
func (*PredEnds) predicateNode()  {}
func (*PredAny) predicateNode()   {}
func (*PredAll) predicateNode()   {}
func (*PredRegex) predicateNode() {}
func (*PredAnd) predicateNode()   {}
func (*PredOr) predicateNode()    {}
func (*PredNot) predicateNode()   {}
