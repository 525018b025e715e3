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
	"io"
	"strconv"

	"github.com/jimblandy/fxsnapshot/dump"
)

// orientation selects how a stream's elements lay out (§4.10): vertical is
// one element per line, horizontal is all elements on one line between
// brackets. Orientation alternates by nesting depth, not by kind.
type orientation int

const (
	vertical orientation = iota
	horizontal
)

func (o orientation) flipped() orientation {
	if o == vertical {
		return horizontal
	}
	return vertical
}

// Print writes v to w in the top-level vertical orientation (§4.10).
func Print(w io.Writer, v Value) error {
	return printValue(w, v, vertical, 0)
}

func printValue(w io.Writer, v Value, orient orientation, indent int) error {
	if v.Kind() == KindStream {
		return printStream(w, v, orient, indent)
	}
	return printScalar(w, v)
}

func printStream(w io.Writer, v Value, orient orientation, indent int) error {
	s, err := v.AsStream()
	if err != nil {
		return err
	}
	if orient == vertical {
		if _, err := io.WriteString(w, "[\n"); err != nil {
			return err
		}
		for {
			elem, ok, err := s.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if _, err := fmt.Fprintf(w, "%*s", indent+4, ""); err != nil {
				return err
			}
			if err := printValue(w, elem, orient.flipped(), indent+4); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%*s]", indent, "")
		return err
	}

	if _, err := io.WriteString(w, "[ "); err != nil {
		return err
	}
	first := true
	for {
		elem, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		first = false
		if err := printValue(w, elem, orient.flipped(), indent); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, " ]")
	return err
}

func printScalar(w io.Writer, v Value) error {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		_, err := fmt.Fprintf(w, "%d", n)
		return err
	case KindString:
		s, _ := v.AsString()
		_, err := io.WriteString(w, strconv.Quote(s))
		return err
	case KindNode:
		n, _ := v.AsNode()
		return printNode(w, n)
	case KindEdge:
		e, _ := v.AsEdge()
		return printEdge(w, e)
	case KindFunc:
		_, err := io.WriteString(w, "<function>")
		return err
	default:
		return fmt.Errorf("fxsnapshot: unprintable value kind %v", v.Kind())
	}
}

// printNode renders a node in compact field form, showing only the
// attributes present on this particular node (§4.10).
func printNode(w io.Writer, n *dump.Node) error {
	if _, err := fmt.Fprintf(w, "node 0x%x", n.ID); err != nil {
		return err
	}
	if n.Size != nil {
		if _, err := fmt.Fprintf(w, " size=%d", *n.Size); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, " type=%s", n.Type); err != nil {
		return err
	}
	if n.TypeName != nil {
		if _, err := fmt.Fprintf(w, " typeName=%s", strconv.Quote(n.TypeName.Display())); err != nil {
			return err
		}
	}
	if n.ClassName != nil {
		if _, err := fmt.Fprintf(w, " className=%s", strconv.Quote(n.ClassName.Display())); err != nil {
			return err
		}
	}
	if n.ScriptFilename != nil {
		if _, err := fmt.Fprintf(w, " scriptFilename=%s", strconv.Quote(n.ScriptFilename.Display())); err != nil {
			return err
		}
	}
	if n.DescriptiveTypeName != nil {
		if _, err := fmt.Fprintf(w, " descriptiveTypeName=%s", strconv.Quote(n.DescriptiveTypeName.Display())); err != nil {
			return err
		}
	}
	return nil
}

// printEdge renders an edge in compact field form (§4.10). A nil referent
// (the edge carries no referent id) is not an error; it prints as "->?".
func printEdge(w io.Writer, e *dump.Edge) error {
	if _, err := io.WriteString(w, "edge"); err != nil {
		return err
	}
	if e.Referent != nil {
		if _, err := fmt.Fprintf(w, " ->0x%x", *e.Referent); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, " ->?"); err != nil {
			return err
		}
	}
	if e.Name != nil {
		if _, err := fmt.Fprintf(w, " name=%s", strconv.Quote(e.Name.Display())); err != nil {
			return err
		}
	}
	return nil
}
