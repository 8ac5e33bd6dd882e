// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vec

import (
	"iter"

	"github.com/bufbuild/smallbuf/internal/repr"
)

// Drain is a draining iterator: it borrows a [Vec] and hands out each element
// the Vec held when draining began.
//
// The Drain takes the Vec's storage with it, so the Vec is empty from the
// moment the Drain is created. The Vec may be used while the Drain is open:
// it starts out with fresh storage, and nothing done to it affects the
// elements the Drain holds.
//
// Elements the Drain has not yielded by the time it is closed are dropped by
// [Drain.Close]. If the Vec is still empty and inline at that point, its old
// storage is handed back to it, so draining does not lose capacity; otherwise
// the storage is released.
type Drain[T any] struct {
	vec        *Vec[T]
	repr       repr.Repr[T] // The storage taken from vec. Its length is unchanged.
	start, end int          // Elements not yet yielded are repr.Slice()[start:end].
}

// Drain begins draining v.
func (v *Vec[T]) Drain() *Drain[T] {
	d := &Drain[T]{vec: v, repr: v.repr, end: v.Len()}
	v.repr = repr.Repr[T]{}
	return d
}

// Len returns the number of elements not yet yielded.
func (d *Drain[T]) Len() int {
	return d.end - d.start
}

// Next yields the first element not yet yielded.
func (d *Drain[T]) Next() (T, bool) {
	var z T
	if d.start == d.end {
		return z, false
	}

	s := d.repr.Slice()
	x := s[d.start]
	s[d.start] = z
	d.start++
	return x, true
}

// NextBack yields the last element not yet yielded.
func (d *Drain[T]) NextBack() (T, bool) {
	var z T
	if d.start == d.end {
		return z, false
	}

	s := d.repr.Slice()
	d.end--
	x := s[d.end]
	s[d.end] = z
	return x, true
}

// Close drops every element not yet yielded and gives up the storage. Calling
// Close more than once does nothing.
func (d *Drain[T]) Close() {
	if d.vec == nil {
		return
	}

	dropRange(d.repr.Slice()[d.start:d.end])
	d.start, d.end = 0, 0
	d.repr.SetLen(0)

	if v := d.vec; v.IsInline() && v.Len() == 0 {
		// v holds nothing and owns no allocation, so it can take its old
		// storage back.
		v.repr = d.repr
	} else {
		d.repr.Release()
	}
	d.repr = repr.Repr[T]{}
	d.vec = nil
}

// Seq returns an iterator over the remaining elements, front to back. The
// Drain is closed when the loop exits.
func (d *Drain[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer d.Close()
		for {
			x, ok := d.Next()
			if !ok || !yield(x) {
				return
			}
		}
	}
}

// Backward is like [Drain.Seq], but yields back to front.
func (d *Drain[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer d.Close()
		for {
			x, ok := d.NextBack()
			if !ok || !yield(x) {
				return
			}
		}
	}
}
