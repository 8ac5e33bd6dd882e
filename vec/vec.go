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

// Package vec provides [Vec], a growable array that stores small contents
// inside itself instead of allocating.
package vec

import (
	"fmt"
	"iter"
	"slices"
	"unsafe"

	"github.com/bufbuild/smallbuf/internal/repr"
)

const (
	// InlineSize is the number of bytes of elements a [Vec] can hold without
	// allocating, if its element type contains no pointers.
	InlineSize = repr.InlineSize

	// Unbounded is the capacity of a [Vec] of zero-sized elements.
	Unbounded = repr.Unbounded
)

// Dropper is implemented by element types that need to release something
// when a [Vec] discards them. If T only implements Dropper through a pointer
// receiver, Drop is called on a pointer to the discarded element.
//
// A Vec calls Drop exactly once on every element it discards: elements still
// present when [Vec.Free] is called, and elements a [Drain] or [IntoIter] is
// closed over without yielding them. Elements handed back to the caller (by
// Pop, Remove, or an iterator) are the caller's to drop.
type Dropper interface {
	Drop()
}

// Cloner is implemented by element types that need a deep copy when a [Vec]
// is cloned.
type Cloner[T any] interface {
	Clone() T
}

// Vec is a growable array of T.
//
// A Vec is three words wide. Elements are stored inline, without allocating,
// while they fit in [InlineSize] bytes and T contains no pointers;
// beyond that they are moved to a separate buffer, and stay there for the
// rest of the Vec's life.
//
// A Vec that has allocated must be torn down with [Vec.Free]. A Vec must not
// be copied by value once it is in use: use [Vec.Clone] to copy it, or move it
// with [Vec.IntoIter].
//
// The zero value is empty and ready to use.
type Vec[T any] struct {
	repr repr.Repr[T]
}

// Vec must be the same size as its representation.
var _ [unsafe.Sizeof(repr.Repr[byte]{})]byte = [unsafe.Sizeof(Vec[byte]{})]byte{}

// New returns an empty, inline Vec.
func New[T any]() Vec[T] {
	return Vec[T]{repr: repr.NewInline[T](nil)}
}

// NewHeap returns an empty Vec that stores its elements on the heap. Nothing
// is allocated until the first push.
func NewHeap[T any]() Vec[T] {
	return Vec[T]{repr: repr.NewHeap[T]()}
}

// FromHeap returns a heap Vec holding a copy of data, allocated to exactly
// len(data) elements.
func FromHeap[T any](data []T) Vec[T] {
	return Vec[T]{repr: repr.FromHeap(data)}
}

// Of returns a Vec holding the given values.
func Of[T any](values ...T) Vec[T] {
	return FromSlice(values)
}

// FromSlice returns a Vec holding a copy of data. It is inline if data fits.
func FromSlice[T any](data []T) Vec[T] {
	var v Vec[T]
	v.Extend(data...)
	return v
}

// Adopt returns a Vec that takes over s's backing array without copying it.
//
// The caller must not use s after calling Adopt.
func Adopt[T any](s []T) Vec[T] {
	return Vec[T]{repr: repr.Adopt(s)}
}

// Collect returns a Vec holding every value in seq.
func Collect[T any](seq iter.Seq[T]) Vec[T] {
	var v Vec[T]
	v.AppendSeq(seq)
	return v
}

// Len returns the number of elements.
func (v *Vec[T]) Len() int {
	return v.repr.Len()
}

// Cap returns the number of elements v can hold without growing.
//
// If T is zero-sized, this is [Unbounded].
func (v *Vec[T]) Cap() int {
	return v.repr.Cap()
}

// IsInline returns whether v is storing its elements inline.
func (v *Vec[T]) IsInline() bool {
	return v.repr.IsInline()
}

// Get returns the element at idx, or false if idx is out of range.
func (v *Vec[T]) Get(idx int) (T, bool) {
	return v.repr.Get(idx)
}

// GetPointer returns a pointer to the element at idx, or nil if idx is out of
// range.
//
// The pointer is invalidated by any operation that may grow v.
func (v *Vec[T]) GetPointer(idx int) *T {
	return v.repr.GetPointer(idx)
}

// At returns the element at idx.
//
// Panics if idx is out of range.
func (v *Vec[T]) At(idx int) T {
	return v.Slice()[idx]
}

// SetAt sets the element at idx.
//
// Panics if idx is out of range.
func (v *Vec[T]) SetAt(idx int, value T) {
	v.Slice()[idx] = value
}

// Push appends value.
func (v *Vec[T]) Push(value T) {
	v.repr.Push(value)
}

// Pop removes and returns the last element, or returns false if v is empty.
func (v *Vec[T]) Pop() (T, bool) {
	return v.repr.Pop()
}

// Insert inserts value at idx, shifting later elements to the right.
//
// Panics if idx is not in [0, v.Len()].
func (v *Vec[T]) Insert(idx int, value T) {
	v.repr.Insert(idx, value)
}

// Remove removes and returns the element at idx, shifting later elements to
// the left.
//
// Panics if idx is not in [0, v.Len()).
func (v *Vec[T]) Remove(idx int) T {
	return v.repr.Remove(idx)
}

// Extend appends values, growing at most once.
func (v *Vec[T]) Extend(values ...T) {
	v.repr.Extend(values)
}

// AppendSeq appends every value in seq.
func (v *Vec[T]) AppendSeq(seq iter.Seq[T]) {
	for x := range seq {
		v.repr.Push(x)
	}
}

// Reserve ensures that v can hold at least additional more elements without
// growing.
func (v *Vec[T]) Reserve(additional int) {
	v.repr.Reserve(additional)
}

// Slice returns the elements of v as a slice that aliases v's storage.
//
// The slice is invalidated by any operation that may grow v. If v is inline,
// the slice points into v itself.
func (v *Vec[T]) Slice() []T {
	return v.repr.Slice()
}

// ToSlice returns a copy of the elements of v.
func (v *Vec[T]) ToSlice() []T {
	return slices.Clone(v.Slice())
}

// Bytes returns the raw bytes of v's elements, aliasing v's storage.
//
// Panics if T contains pointers.
func (v *Vec[T]) Bytes() []byte {
	return v.repr.Bytes()
}

// Clone returns an independent copy of v.
//
// If T implements [Cloner], each element is copied with its Clone method;
// otherwise elements are copied by assignment.
func (v *Vec[T]) Clone() Vec[T] {
	var clone func(T) T
	var z T
	if _, ok := any(z).(Cloner[T]); ok {
		clone = func(x T) T { return any(x).(Cloner[T]).Clone() } //nolint:errcheck // Checked above.
	}
	return Vec[T]{repr: v.repr.CloneFunc(clone)}
}

// Free drops every element of v, then releases v's storage. Afterwards, v is
// empty and may be reused.
func (v *Vec[T]) Free() {
	// Elements must all be dropped before the memory they live in is
	// released.
	for {
		x, ok := v.repr.Pop()
		if !ok {
			break
		}
		drop(x)
	}
	v.repr.Release()
}

// Format implements [fmt.Formatter].
func (v Vec[T]) Format(state fmt.State, verb rune) {
	fmt.Fprintf(state, fmt.FormatString(state, verb), v.Slice())
}

// Equal returns whether a and b hold equal elements in the same order.
func Equal[T comparable](a, b *Vec[T]) bool {
	return slices.Equal(a.Slice(), b.Slice())
}

// EqualFunc is like [Equal], but uses eq to compare elements.
func EqualFunc[T, U any](a *Vec[T], b *Vec[U], eq func(T, U) bool) bool {
	return slices.EqualFunc(a.Slice(), b.Slice(), eq)
}

// drop calls x's Drop method, if it has one. A Drop method with a pointer
// receiver is called on a pointer to x.
func drop[T any](x T) {
	switch d := any(x).(type) {
	case Dropper:
		d.Drop()
	default:
		if d, ok := any(&x).(Dropper); ok {
			d.Drop()
		}
	}
}
