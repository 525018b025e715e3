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

import "golang.org/x/exp/slices"

// Location is where a plan should read a variable's value from at runtime:
// the i-th actual argument of the current activation, or the i-th entry of
// the current closure's captured vector (§4.5 item 2).
type Location struct {
	Captured bool
	Index    int
}

// LambdaLayout is the closure layout for one lambda or predicate-op: its
// arity, the recipe for building its captured vector from its parent's
// activation (CaptureList), and the resolved Location of every
// variable-address visible inside it (its own formals, plus whatever it
// captures).
type LambdaLayout struct {
	Arity int

	// CaptureList has one entry per captured variable, in the same order
	// as the closure's captured vector; each entry names where in the
	// *parent's* activation to read that value when building the closure.
	CaptureList []Location

	// AddrLoc resolves every VarAddr visible within this lambda (its own
	// formals map to Location{Captured:false}, everything in its capture
	// set maps to Location{Captured:true}) to where this lambda itself
	// should read it from.
	AddrLoc map[VarAddr]Location
}

// Layouts maps every lambda/predicate-op id to its computed layout.
type Layouts map[LambdaID]*LambdaLayout

// ComputeLayouts implements §4.5 item 2. It walks lambdas in id order
// (Labels.Order, which AssignLabels guarantees lists parents before
// children), so a lambda's parent's layout is always already computed by
// the time it computes its own capture list.
//
// It panics if a top-level lambda has a non-empty capture set: that would
// mean a free variable exists with no enclosing binder, which Analyze
// should already have rejected as an UnboundVar before ComputeLayouts ever
// runs.
func ComputeLayouts(labels *Labels, cm *CaptureMap) Layouts {
	layouts := make(Layouts, len(labels.Order))
	for _, id := range labels.Order {
		formals := labels.Formals[id]
		ll := &LambdaLayout{
			Arity:   len(formals),
			AddrLoc: make(map[VarAddr]Location, len(formals)),
		}
		for i := range formals {
			ll.AddrLoc[VarAddr{Lambda: id, Index: i}] = Location{Captured: false, Index: i}
		}

		captured := sortedCaptureSet(cm.Lambdas[id])
		parentID, hasParent := labels.ParentOf[id]
		if len(captured) > 0 && !hasParent {
			panic("fxsnapshot: top-level lambda has a non-empty capture set")
		}
		for k, addr := range captured {
			ll.AddrLoc[addr] = Location{Captured: true, Index: k}
			if hasParent {
				parentLayout := layouts[parentID]
				loc, ok := parentLayout.AddrLoc[addr]
				if !ok {
					panic("fxsnapshot: captured variable not resolvable in parent's layout")
				}
				ll.CaptureList = append(ll.CaptureList, loc)
			}
		}
		layouts[id] = ll
	}
	return layouts
}

// sortedCaptureSet returns the members of a capture set in a deterministic
// order, so that two runs of the planner over the same expression always
// assign the same captured-k positions (§4.5 item 2: "sort the captured set
// deterministically").
func sortedCaptureSet(set map[VarAddr]struct{}) []VarAddr {
	addrs := make([]VarAddr, 0, len(set))
	for a := range set {
		addrs = append(addrs, a)
	}
	slices.SortFunc(addrs, func(a, b VarAddr) bool {
		if a.Lambda != b.Lambda {
			return a.Lambda < b.Lambda
		}
		return a.Index < b.Index
	})
	return addrs
}

// ResolveUse returns the Location a use-id should read from: the location
// its enclosing lambda assigns to the variable-address it resolves to
// (§4.5 item 3).
func ResolveUse(labels *Labels, cm *CaptureMap, layouts Layouts, use UseID) (Location, bool) {
	addr, ok := cm.Uses[use]
	if !ok {
		return Location{}, false
	}
	enclosing, ok := labels.Enclosing[use]
	if !ok {
		return Location{}, false
	}
	loc, ok := layouts[enclosing].AddrLoc[addr]
	return loc, ok
}
