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

import "iter"

// All returns an iterator over the indices and elements of v, like
// [slices.All].
//
// v must not be grown while the iterator is running.
func (v *Vec[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, x := range v.Slice() {
			if !yield(i, x) {
				return
			}
		}
	}
}

// Values returns an iterator over the elements of v, like [slices.Values].
func (v *Vec[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.Slice() {
			if !yield(x) {
				return
			}
		}
	}
}

// Backward returns an iterator over the indices and elements of v in reverse,
// like [slices.Backward].
func (v *Vec[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		s := v.Slice()
		for i := len(s) - 1; i >= 0; i-- {
			if !yield(i, s[i]) {
				return
			}
		}
	}
}

// IntoIter is a consuming iterator: it owns what used to be a [Vec], and
// hands out each of its elements exactly once.
//
// It must be closed with [IntoIter.Close], which drops whatever was not
// yielded and frees the storage. [IntoIter.Seq] and [IntoIter.Backward] close
// it automatically.
type IntoIter[T any] struct {
	vec        Vec[T]
	start, end int // Elements not yet yielded are vec.Slice()[start:end].
}

// IntoIter moves the contents of v into a consuming iterator. Afterwards, v is
// empty and may be reused.
func (v *Vec[T]) IntoIter() *IntoIter[T] {
	it := &IntoIter[T]{vec: *v, end: v.Len()}
	*v = Vec[T]{}
	return it
}

// Len returns the number of elements not yet yielded.
func (it *IntoIter[T]) Len() int {
	return it.end - it.start
}

// Next yields the next element from the front.
func (it *IntoIter[T]) Next() (T, bool) {
	var z T
	if it.start == it.end {
		return z, false
	}

	s := it.vec.Slice()
	x := s[it.start]
	s[it.start] = z
	it.start++
	return x, true
}

// NextBack yields the next element from the back.
func (it *IntoIter[T]) NextBack() (T, bool) {
	var z T
	if it.start == it.end {
		return z, false
	}

	s := it.vec.Slice()
	it.end--
	x := s[it.end]
	s[it.end] = z
	return x, true
}

// Close drops every element that has not been yielded and frees the
// iterator's storage. Calling Close more than once does nothing.
func (it *IntoIter[T]) Close() {
	s := it.vec.Slice()
	dropRange(s[it.start:it.end])
	it.start, it.end = 0, 0

	// Everything is either yielded or dropped; only memory is left.
	it.vec.repr.SetLen(0)
	it.vec.repr.Release()
}

// Seq returns an iterator over the remaining elements, front to back. The
// IntoIter is closed when the loop ends, whether or not it ran to completion.
func (it *IntoIter[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Close()
		for {
			x, ok := it.Next()
			if !ok || !yield(x) {
				return
			}
		}
	}
}

// Backward is like [IntoIter.Seq], but yields back to front.
func (it *IntoIter[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Close()
		for {
			x, ok := it.NextBack()
			if !ok || !yield(x) {
				return
			}
		}
	}
}

// dropRange drops every element of s and zeroes it.
func dropRange[T any](s []T) {
	var z T
	for i := range s {
		drop(s[i])
		s[i] = z
	}
}
