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

// Package stream implements the lazy, cloneable, fallible sequence
// abstraction every collection-producing query operator is built on.
//
// The original source (jimblandy/fxsnapshot, src/query/stream.rs) wraps a
// `Rc<dyn CloneableStream>` and forks it with `Rc::get_mut`/`Rc::strong_count`
// just before a mutating step, so that cloning a Stream is cheap (it shares
// the underlying iterator) while advancing one clone never disturbs another.
// Go has no Rc and no Drop, so this package reproduces the same discipline
// explicitly: Clone increments a plain reference count, and Next forks a
// private copy of the mutable core (decrementing the old count) whenever
// that count is above one. Because evaluation here is single-threaded and
// synchronous (the base spec's concurrency model, §5), the counters are
// plain ints, not atomics.
package stream

// Core is the mutable, steppable, cloneable state behind a Stream. Clone
// must return a core whose subsequent advancement is entirely independent
// of the receiver: sharing of read-only backing data (e.g. a snapshot
// pointer, an immutable slice) is fine, but any field that Next mutates must
// be deep-copied.
type Core[T any] interface {
	Next() (T, bool, error)
	Clone() Core[T]
}

type shared[T any] struct {
	count int
	core  Core[T]
}

// Stream is a lazy, cloneable, fallible sequence of T. The zero value is not
// usable; construct one with New.
type Stream[T any] struct {
	sh *shared[T]
}

// New wraps a Core as a Stream with a single owner.
func New[T any](c Core[T]) Stream[T] {
	return Stream[T]{sh: &shared[T]{count: 1, core: c}}
}

// Clone returns an independent stream positioned wherever the receiver
// currently is. Subsequent advancement of either the receiver or the clone
// does not affect the other.
func (s Stream[T]) Clone() Stream[T] {
	s.sh.count++
	return Stream[T]{sh: s.sh}
}

// Next advances the stream and returns its next element, or (_, false, nil)
// at end of stream, or (_, false, err) on failure.
//
// If this stream's core is currently shared with any clone (count > 1), Next
// first forks a private copy of the core before stepping it, so the clone's
// own subsequent iteration is unaffected.
func (s *Stream[T]) Next() (T, bool, error) {
	if s.sh.count > 1 {
		s.sh.count--
		s.sh = &shared[T]{count: 1, core: s.sh.core.Clone()}
	}
	return s.sh.core.Next()
}

// ForEach drains the stream, calling f for each element, stopping (and
// returning the error) at the first error.
func ForEach[T any](s Stream[T], f func(T) error) error {
	for {
		v, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := f(v); err != nil {
			return err
		}
	}
}

// Collect drains the stream into a slice.
func Collect[T any](s Stream[T]) ([]T, error) {
	var out []T
	err := ForEach(s, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}
