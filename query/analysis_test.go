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

import "testing"

func lexVar(name string) *Var { return &Var{Kind: VarLexical, Name: name} }

// The three tests below escalate lambda nesting depth by one each time,
// the clearest available way to pin down the scope-stack capture algorithm
// (§4.5 item 1): a variable captured transitively shows up in every
// intermediate lambda's capture set, not just the innermost one.

func TestCaptureSingleLambda(t *testing.T) {
	// |x| x — x is bound by its own lambda; nothing is captured.
	e := &Lambda{Formals: []string{"x"}, Body: lexVar("x")}
	AssignLabels(e)
	cm, err := Analyze(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(cm.Lambdas[0]) != 0 {
		t.Fatalf("lambda 0 captures = %v, want empty", cm.Lambdas[0])
	}
}

func TestCaptureTwoLambdas(t *testing.T) {
	// |x| |y| x — the inner lambda captures x from the outer.
	inner := &Lambda{Formals: []string{"y"}, Body: lexVar("x")}
	outer := &Lambda{Formals: []string{"x"}, Body: inner}
	AssignLabels(outer)
	cm, err := Analyze(outer)
	if err != nil {
		t.Fatal(err)
	}
	outerAddr := VarAddr{Lambda: outer.ID, Index: 0}
	if _, ok := cm.Lambdas[inner.ID][outerAddr]; !ok {
		t.Fatalf("inner lambda captures = %v, want %v", cm.Lambdas[inner.ID], outerAddr)
	}
	if len(cm.Lambdas[outer.ID]) != 0 {
		t.Fatalf("outer lambda captures = %v, want empty (x is bound there, not free)", cm.Lambdas[outer.ID])
	}
}

func TestCaptureThreeLambdas(t *testing.T) {
	// |x| |y| |z| x — x threads through the middle lambda's capture set too,
	// even though |y| never itself reads x.
	innermost := &Lambda{Formals: []string{"z"}, Body: lexVar("x")}
	middle := &Lambda{Formals: []string{"y"}, Body: innermost}
	outer := &Lambda{Formals: []string{"x"}, Body: middle}
	AssignLabels(outer)
	cm, err := Analyze(outer)
	if err != nil {
		t.Fatal(err)
	}
	outerAddr := VarAddr{Lambda: outer.ID, Index: 0}
	if _, ok := cm.Lambdas[innermost.ID][outerAddr]; !ok {
		t.Fatalf("innermost captures = %v, want %v", cm.Lambdas[innermost.ID], outerAddr)
	}
	if _, ok := cm.Lambdas[middle.ID][outerAddr]; !ok {
		t.Fatalf("middle captures = %v, want %v (transitively propagated)", cm.Lambdas[middle.ID], outerAddr)
	}
	if len(cm.Lambdas[outer.ID]) != 0 {
		t.Fatalf("outer lambda captures = %v, want empty", cm.Lambdas[outer.ID])
	}
}

func TestUnboundVariable(t *testing.T) {
	e := lexVar("nope")
	AssignLabels(e)
	_, err := Analyze(e)
	if err == nil {
		t.Fatal("expected an UnboundVar error")
	}
	if ub, ok := err.(*UnboundVar); !ok || ub.Name != "nope" {
		t.Fatalf("got %v (%T), want *UnboundVar{Name: %q}", err, err, "nope")
	}
}

func TestComputeLayoutsAssignsCaptureOrder(t *testing.T) {
	// |x, y| |z| [y, x] — both formals are captured by the inner lambda; the
	// capture list must be in deterministic (sorted) order regardless of
	// use order in the body.
	inner := &Lambda{Formals: []string{"z"}, Body: &StreamLiteral{Elems: []Expr{lexVar("y"), lexVar("x")}}}
	outer := &Lambda{Formals: []string{"x", "y"}, Body: inner}
	labels := AssignLabels(outer)
	cm, err := Analyze(outer)
	if err != nil {
		t.Fatal(err)
	}
	layouts := ComputeLayouts(labels, cm)
	inLayout := layouts[inner.ID]
	if len(inLayout.CaptureList) != 2 {
		t.Fatalf("CaptureList = %v, want 2 entries", inLayout.CaptureList)
	}
	if inLayout.CaptureList[0].Index != 0 || inLayout.CaptureList[1].Index != 1 {
		t.Fatalf("CaptureList = %v, want formal 0 then formal 1", inLayout.CaptureList)
	}
}
