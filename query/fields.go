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

// fieldOf selects the named field off a node or edge value (§4.7's
// Field(name, sub)). A name the value's kind does not expose at all is a
// no-such-field error (§7 kind 7: "field predicate names a field the value
// does not expose"). A name the kind does expose, but whose backing
// attribute this particular instance lacks, instead reports absent=true:
// there is no null value to stand in for it, so the field predicate simply
// does not match (see fieldPredPlan.Test in planpredicate.go) rather than
// erroring — the base spec's own end-to-end scenario filters `nodes` by
// `typeName`, a field most nodes in that fixture do not carry.
func fieldOf(v Value, name string) (fv Value, absent bool, err error) {
	switch v.Kind() {
	case KindNode:
		n, _ := v.AsNode()
		switch name {
		case "id":
			return Num(n.ID), false, nil
		case "size":
			if n.Size == nil {
				return Value{}, true, nil
			}
			return Num(*n.Size), false, nil
		case "type":
			return Str(n.Type.String()), false, nil
		case "typeName":
			if n.TypeName == nil {
				return Value{}, true, nil
			}
			return Str(n.TypeName.Display()), false, nil
		case "className":
			if n.ClassName == nil {
				return Value{}, true, nil
			}
			return Str(n.ClassName.Display()), false, nil
		case "scriptFilename":
			if n.ScriptFilename == nil {
				return Value{}, true, nil
			}
			return Str(n.ScriptFilename.Display()), false, nil
		case "descriptiveTypeName":
			if n.DescriptiveTypeName == nil {
				return Value{}, true, nil
			}
			return Str(n.DescriptiveTypeName.Display()), false, nil
		case "edges":
			ev, err := edgesOf(v)
			return ev, false, err
		}
	case KindEdge:
		e, _ := v.AsEdge()
		switch name {
		case "name":
			if e.Name == nil {
				return Value{}, true, nil
			}
			return Str(e.Name.Display()), false, nil
		case "referent":
			if e.Referent == nil {
				return Value{}, true, nil
			}
			return Num(*e.Referent), false, nil
		}
	}
	return Value{}, false, &NoSuchFieldError{ValueType: v.TypeName(), Field: name}
}
