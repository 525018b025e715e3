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

// requiredID implements §4.7's required-id detection: a bare
// Field("id", Expr(e)) contributes (e, empty-conjunction); a conjunction
// contributes (e, rest) if any subterm contributes, splicing that
// subterm's own rest in its place; every other predicate form contributes
// nothing. The planner uses this to rewrite `nodes { ... }` into a direct
// `nodes-by-id` lookup instead of a linear scan (§4.6).
func requiredID(pred Predicate) (idExpr Expr, rest Predicate, ok bool) {
	switch p := pred.(type) {
	case *PredField:
		if p.Name != "id" {
			return nil, nil, false
		}
		e, ok := p.Sub.(*PredExpr)
		if !ok {
			return nil, nil, false
		}
		return e.E, &PredAnd{}, true

	case *PredAnd:
		for i, sub := range p.Subs {
			e, childRest, ok := requiredID(sub)
			if !ok {
				continue
			}
			newSubs := make([]Predicate, 0, len(p.Subs))
			newSubs = append(newSubs, p.Subs[:i]...)
			if cr, isAnd := childRest.(*PredAnd); isAnd {
				newSubs = append(newSubs, cr.Subs...)
			} else {
				newSubs = append(newSubs, childRest)
			}
			newSubs = append(newSubs, p.Subs[i+1:]...)
			return e, &PredAnd{Subs: newSubs}, true
		}
		return nil, nil, false

	default:
		return nil, nil, false
	}
}
