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

// sliceCore is the simplest Core: a fixed, pre-computed slice walked by
// index. Clone shares the (read-only) slice and copies only the index.
type sliceCore[T any] struct {
	items []T
	pos   int
}

// FromSlice builds a Stream over a fixed, already-materialized slice.
func FromSlice[T any](items []T) Stream[T] {
	return New[T](&sliceCore[T]{items: items})
}

func (c *sliceCore[T]) Next() (T, bool, error) {
	var zero T
	if c.pos >= len(c.items) {
		return zero, false, nil
	}
	v := c.items[c.pos]
	c.pos++
	return v, true, nil
}

func (c *sliceCore[T]) Clone() Core[T] {
	cp := *c
	return &cp
}

// genCore adapts a plain stepping closure (e.g. over a lazily-computed
// sequence such as map iteration) into a Core. next must itself be safe to
// clone/replace via the supplied clone function.
type genCore[T any] struct {
	next  func() (T, bool, error)
	clone func() Core[T]
}

// FromFunc builds a Stream from a stepping function together with a way to
// clone the state that function closes over.
func FromFunc[T any](next func() (T, bool, error), clone func() Core[T]) Stream[T] {
	return New[T](&genCore[T]{next: next, clone: clone})
}

func (c *genCore[T]) Next() (T, bool, error) { return c.next() }
func (c *genCore[T]) Clone() Core[T]         { return c.clone() }

// filterCore wraps an inner Stream, yielding only elements for which keep
// returns true. Cloning a filterCore clones the inner Stream (bumping its
// share count, per Stream.Clone) and shares the keep predicate, which must
// itself be side-effect free across clones (query predicate plans only read
// from an immutable activation, so this holds).
type filterCore[T any] struct {
	inner Stream[T]
	keep  func(T) (bool, error)
}

// Filter returns a Stream yielding exactly the elements of s for which keep
// returns true, preserving order.
func Filter[T any](s Stream[T], keep func(T) (bool, error)) Stream[T] {
	return New[T](&filterCore[T]{inner: s, keep: keep})
}

func (c *filterCore[T]) Next() (T, bool, error) {
	for {
		v, ok, err := c.inner.Next()
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		keep, err := c.keep(v)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if keep {
			return v, true, nil
		}
	}
}

func (c *filterCore[T]) Clone() Core[T] {
	return &filterCore[T]{inner: c.inner.Clone(), keep: c.keep}
}

// mapCore wraps an inner Stream of T, applying fn to each element to
// produce a U. Errors from fn (e.g. the mapped function is not callable)
// propagate as stream errors.
type mapCore[T, U any] struct {
	inner Stream[T]
	fn    func(T) (U, error)
}

// Map returns a Stream of fn applied lazily to each element of s.
func Map[T, U any](s Stream[T], fn func(T) (U, error)) Stream[U] {
	return New[U](&mapCore[T, U]{inner: s, fn: fn})
}

func (c *mapCore[T, U]) Next() (U, bool, error) {
	v, ok, err := c.inner.Next()
	if err != nil || !ok {
		var zero U
		return zero, false, err
	}
	out, err := c.fn(v)
	if err != nil {
		var zero U
		return zero, false, err
	}
	return out, true, nil
}

func (c *mapCore[T, U]) Clone() Core[U] {
	return &mapCore[T, U]{inner: c.inner.Clone(), fn: c.fn}
}

// Any reports whether any element of s satisfies pred, consuming a cloned
// copy of s so the caller's own stream is left undisturbed.
func Any[T any](s Stream[T], pred func(T) (bool, error)) (bool, error) {
	s = s.Clone()
	for {
		v, ok, err := s.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		match, err := pred(v)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
}

// All reports whether every element of s satisfies pred.
func All[T any](s Stream[T], pred func(T) (bool, error)) (bool, error) {
	s = s.Clone()
	for {
		v, ok, err := s.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		match, err := pred(v)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
}

// Last drains a clone of s and returns its final element, or ok=false if s
// produced no elements.
func Last[T any](s Stream[T]) (last T, ok bool, err error) {
	s = s.Clone()
	for {
		v, more, err := s.Next()
		if err != nil {
			var zero T
			return zero, false, err
		}
		if !more {
			return last, ok, nil
		}
		last, ok = v, true
	}
}
