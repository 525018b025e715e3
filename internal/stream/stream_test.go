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

package stream

import (
	"errors"
	"testing"
)

func TestFromSliceCollect(t *testing.T) {
	s := FromSlice([]int{1, 2, 3})
	got, err := Collect(s)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCloneIndependence(t *testing.T) {
	s := FromSlice([]int{1, 2, 3})
	clone := s.Clone()

	v, ok, err := s.Next()
	if err != nil || !ok || v != 1 {
		t.Fatalf("s.Next() = %v, %v, %v", v, ok, err)
	}
	v, ok, err = s.Next()
	if err != nil || !ok || v != 2 {
		t.Fatalf("s.Next() = %v, %v, %v", v, ok, err)
	}

	// clone must still start from the beginning, unaffected by s's advance.
	v, ok, err = clone.Next()
	if err != nil || !ok || v != 1 {
		t.Fatalf("clone.Next() = %v, %v, %v", v, ok, err)
	}
}

func TestFilter(t *testing.T) {
	s := FromSlice([]int{1, 2, 3, 4, 5, 6})
	even := Filter(s, func(v int) (bool, error) { return v%2 == 0, nil })
	got, err := Collect(even)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFilterPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := FromSlice([]int{1, 2, 3})
	f := Filter(s, func(v int) (bool, error) {
		if v == 2 {
			return false, boom
		}
		return true, nil
	})
	_, err := Collect(f)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestMap(t *testing.T) {
	s := FromSlice([]int{1, 2, 3})
	doubled := Map(s, func(v int) (int, error) { return v * 2, nil })
	got, err := Collect(doubled)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAnyAll(t *testing.T) {
	s := FromSlice([]int{2, 4, 6})
	any, err := Any(s, func(v int) (bool, error) { return v == 4, nil })
	if err != nil || !any {
		t.Fatalf("Any = %v, %v", any, err)
	}
	all, err := All(s, func(v int) (bool, error) { return v%2 == 0, nil })
	if err != nil || !all {
		t.Fatalf("All = %v, %v", all, err)
	}

	// Any/All must not disturb the original stream's position (they clone).
	v, ok, err := s.Next()
	if err != nil || !ok || v != 2 {
		t.Fatalf("s.Next() after Any/All = %v, %v, %v", v, ok, err)
	}
}

func TestLast(t *testing.T) {
	s := FromSlice([]int{1, 2, 3})
	last, ok, err := Last(s)
	if err != nil || !ok || last != 3 {
		t.Fatalf("Last = %v, %v, %v", last, ok, err)
	}

	empty := FromSlice([]int{})
	_, ok, err = Last(empty)
	if err != nil || ok {
		t.Fatalf("Last(empty) = _, %v, %v", ok, err)
	}
}

func TestFromFunc(t *testing.T) {
	i := 0
	next := func() (int, bool, error) {
		if i >= 3 {
			return 0, false, nil
		}
		i++
		return i, true, nil
	}
	clone := func() Core[int] {
		j := i
		var c *genCore[int]
		c = &genCore[int]{next: func() (int, bool, error) {
			if j >= 3 {
				return 0, false, nil
			}
			j++
			return j, true, nil
		}, clone: func() Core[int] { return c }}
		return c
	}
	s := FromFunc(next, clone)
	got, err := Collect(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
}
