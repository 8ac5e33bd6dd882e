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

// Package repr provides [Repr], the small-buffer-optimized storage shared by
// package vec and package str.
//
// # Layout
//
// A Repr is exactly three machine words, and is one of two variants,
// selected by its last byte, the tag:
//
//   - Inline: bytes [0, InlineSize) hold the elements themselves. The tag's
//     high bit is clear, and its low seven bits are the length.
//   - Heap: word 0 is an [alloc.Handle], word 1 is the length, and word 2 is
//     the capacity with its high bit set. Words are encoded little-endian on
//     every platform, so the tag byte is always the top byte of the capacity.
//
// The zero value is the empty inline variant.
//
// Only element types that contain no pointers are ever stored inline, since
// the GC does not trace pointers stored in raw bytes. For all other types the
// inline budget is zero and the first push moves to the heap. Zero-sized
// element types never allocate: they move to the heap variant with capacity
// [Unbounded] without asking the allocator for anything.
package repr

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/bufbuild/smallbuf/internal/alloc"
	"github.com/bufbuild/smallbuf/internal/ext/bitsx"
	"github.com/bufbuild/smallbuf/internal/ext/unsafex"
)

// Set to true to check the representation's invariants after every mutation.
const debugRepr = false

const (
	wordSize = bits.UintSize / 8

	// InlineSize is the number of bytes of elements a [Repr] can hold before
	// it needs to allocate: 23 on 64-bit targets, 11 on 32-bit targets.
	InlineSize = 3*wordSize - 1

	// Unbounded is the capacity of a [Repr] whose element type is zero-sized.
	Unbounded = math.MaxInt

	// maxInlineLen is the largest length the tag's length field can hold.
	maxInlineLen = 1<<7 - 1

	tagHeap = 0x80
)

// Repr is the tagged inline/heap storage for a growable sequence of T.
//
// A Repr that has moved to the heap owns an allocator buffer. [Repr.Release]
// must be called exactly once to give it back. Release never touches the
// elements themselves: running any per-element cleanup first is the caller's
// job.
//
// Copying a heap Repr by value aliases its buffer; only one copy may be used
// afterwards.
type Repr[T any] struct {
	_   [0]chan int // Make the type incomparable and word-aligned.
	raw [3 * wordSize]byte
}

// Repr must be exactly three words wide.
var _ [3 * wordSize]byte = [unsafe.Sizeof(Repr[byte]{})]byte{}

// NewInline returns an inline Repr holding a copy of data.
//
// Panics if data does not fit in the inline budget for T.
func NewInline[T any](data []T) Repr[T] {
	var r Repr[T]
	if isZST[T]() {
		r = NewHeap[T]()
		r.SetLen(len(data))
		return r
	}

	if len(data) > inlineCap[T]() {
		var v T
		panic(fmt.Sprintf(
			"repr: data too large to be stored inline: %d values of %T (%d bytes, budget %d)",
			len(data), v, len(data)*unsafex.Size[T](), InlineSize,
		))
	}
	copy(r.inline(), data)
	r.raw[InlineSize] = byte(len(data))
	return r
}

// NewHeap returns an empty heap Repr. Nothing is allocated until the first
// push.
func NewHeap[T any]() Repr[T] {
	var r Repr[T]
	if isZST[T]() {
		r.setHeap(0, 0, Unbounded)
	} else {
		r.setHeap(0, 0, 0)
	}
	return r
}

// FromHeap returns a heap Repr holding a copy of data, allocated to exactly
// len(data) values.
func FromHeap[T any](data []T) Repr[T] {
	r := NewHeap[T]()
	r.Extend(data)
	return r
}

// Adopt returns a heap Repr that takes over s's backing array without
// copying it. Its capacity is cap(s).
//
// The caller must not use s after calling Adopt.
func Adopt[T any](s []T) Repr[T] {
	if isZST[T]() {
		r := NewHeap[T]()
		r.SetLen(len(s))
		return r
	}

	var r Repr[T]
	r.setHeap(alloc.Adopt(s), len(s), cap(s))
	return r
}

// IsInline returns whether this Repr is storing its elements inline.
func (r *Repr[T]) IsInline() bool {
	return r.raw[InlineSize]&tagHeap == 0
}

// Len returns the number of elements.
func (r *Repr[T]) Len() int {
	if r.IsInline() {
		return int(r.raw[InlineSize])
	}
	return int(r.word(1))
}

// Cap returns the number of elements this Repr can hold without growing.
//
// For zero-sized T, this is always [Unbounded].
func (r *Repr[T]) Cap() int {
	if isZST[T]() {
		return Unbounded
	}
	return r.room()
}

// SetLen sets the length.
//
// Panics if n is negative or larger than the current storage can hold. Any
// elements exposed by growing the length are whatever the storage last held.
func (r *Repr[T]) SetLen(n int) {
	if n < 0 || n > r.room() {
		panic(fmt.Sprintf("repr: length %d out of range for capacity %d", n, r.room()))
	}

	if r.IsInline() {
		r.raw[InlineSize] = byte(n)
	} else {
		r.setWord(1, uint(n))
	}
}

// Get returns the element at idx, or false if idx is out of range.
func (r *Repr[T]) Get(idx int) (T, bool) {
	if p := r.GetPointer(idx); p != nil {
		return *p, true
	}
	var z T
	return z, false
}

// GetPointer returns a pointer to the element at idx, or nil if idx is out of
// range.
//
// The pointer is invalidated by any operation that may grow r.
func (r *Repr[T]) GetPointer(idx int) *T {
	if idx < 0 || idx >= r.Len() {
		return nil
	}
	return &r.data()[idx]
}

// Slice returns the live elements as a single slice, which aliases r's
// storage.
//
// The slice is invalidated by any operation that may grow r; for an inline
// Repr, it also points into r itself, so r must not be copied or moved while
// it is in use.
func (r *Repr[T]) Slice() []T {
	return r.data()[:r.Len()]
}

// Bytes returns the raw bytes of the live elements.
//
// Panics if T contains pointers.
func (r *Repr[T]) Bytes() []byte {
	return unsafex.Bytes(r.Slice())
}

// Push appends v.
func (r *Repr[T]) Push(v T) {
	n := r.Len()
	if n == r.room() {
		if n == Unbounded {
			panic("repr: length overflow")
		}
		r.grow(n + 1)
	}

	r.data()[n] = v
	r.SetLen(n + 1)

	if debugRepr {
		r.check()
	}
}

// Pop removes and returns the last element, or returns false if r is empty.
//
// Capacity is not reduced.
func (r *Repr[T]) Pop() (T, bool) {
	var z T
	n := r.Len()
	if n == 0 {
		return z, false
	}

	data := r.data()
	v := data[n-1]
	data[n-1] = z
	r.SetLen(n - 1)

	if debugRepr {
		r.check()
	}
	return v, true
}

// Insert inserts v at idx, shifting every later element one to the right.
//
// Panics if idx is not in [0, r.Len()].
func (r *Repr[T]) Insert(idx int, v T) {
	n := r.Len()
	if idx < 0 || idx > n {
		panic(fmt.Sprintf("repr: insertion index (is %d) should be <= len (is %d)", idx, n))
	}
	if n == r.room() {
		if n == Unbounded {
			panic("repr: length overflow")
		}
		r.grow(n + 1)
	}

	data := r.data()
	moveOverlapping(data, idx+1, idx, n-idx)
	data[idx] = v
	r.SetLen(n + 1)

	if debugRepr {
		r.check()
	}
}

// Remove removes and returns the element at idx, shifting every later
// element one to the left.
//
// Panics if idx is not in [0, r.Len()).
func (r *Repr[T]) Remove(idx int) T {
	n := r.Len()
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("repr: removal index (is %d) should be < len (is %d)", idx, n))
	}

	var z T
	data := r.data()
	v := data[idx]
	moveOverlapping(data, idx, idx+1, n-idx-1)
	data[n-1] = z
	r.SetLen(n - 1)

	if debugRepr {
		r.check()
	}
	return v
}

// Extend appends all of data, growing at most once.
//
// data may alias r's own storage.
func (r *Repr[T]) Extend(data []T) {
	if len(data) == 0 {
		return
	}

	n := r.Len()
	if len(data) > Unbounded-n {
		panic("repr: length overflow")
	}
	need := n + len(data)

	if need > r.room() {
		if overlaps(r.data(), data) {
			// Growing may overwrite or free the storage data points into.
			data = slices.Clone(data)
		}
		r.grow(need)
	}

	copyDisjoint(r.data()[n:need], data)
	r.SetLen(need)

	if debugRepr {
		r.check()
	}
}

// Reserve ensures that r can hold at least additional more elements without
// growing.
func (r *Repr[T]) Reserve(additional int) {
	n := r.Len()
	if additional < 0 || additional > Unbounded-n {
		panic(fmt.Sprintf("repr: cannot reserve %d more elements", additional))
	}
	if n+additional > r.room() {
		r.grow(n + additional)
	}
}

// CloneFunc returns an independent copy of r, using clone to copy each
// element. The copy uses the same variant as r.
func (r *Repr[T]) CloneFunc(clone func(T) T) Repr[T] {
	var out Repr[T]
	if r.IsInline() {
		out = *r
	} else {
		out = NewHeap[T]()
		out.Extend(r.Slice())
	}

	if clone != nil {
		for i, v := range out.Slice() {
			out.Slice()[i] = clone(v)
		}
	}
	return out
}

// Release gives r's heap buffer, if any, back to the allocator and resets r
// to the zero value.
//
// Release does not do anything to the elements still in r.
func (r *Repr[T]) Release() {
	if !r.IsInline() {
		alloc.Free(r.handle())
	}
	*r = Repr[T]{}
}

// room returns the number of elements the current storage can hold.
func (r *Repr[T]) room() int {
	if r.IsInline() {
		return r.inlineRoom()
	}
	return int(r.word(2) &^ bitsx.HighBit())
}

// data returns the current storage, from index zero up to r.room().
func (r *Repr[T]) data() []T {
	switch {
	case r.IsInline():
		return r.inline()
	case isZST[T]():
		// There is nothing to store, so any non-nil pointer will do.
		return unsafe.Slice(unsafex.Bitcast[*T](&r.raw), Unbounded)
	case r.handle().Nil():
		return nil
	default:
		return alloc.Slice[T](r.handle())
	}
}

// inline returns the inline storage as a slice of T. It is empty if T cannot
// be stored inline.
func (r *Repr[T]) inline() []T {
	n := r.inlineRoom()
	if n == 0 {
		return nil
	}
	return unsafe.Slice(unsafex.Bitcast[*T](&r.raw), n)
}

func (r *Repr[T]) handle() alloc.Handle {
	return alloc.Handle(r.word(0))
}

func (r *Repr[T]) setHeap(h alloc.Handle, n, capacity int) {
	r.setWord(0, uint(h))
	r.setWord(1, uint(n))
	r.setWord(2, uint(capacity)|bitsx.HighBit())
}

func (r *Repr[T]) word(i int) uint {
	b := r.raw[i*wordSize : (i+1)*wordSize]
	if wordSize == 8 {
		return uint(binary.LittleEndian.Uint64(b))
	}
	return uint(binary.LittleEndian.Uint32(b))
}

func (r *Repr[T]) setWord(i int, v uint) {
	b := r.raw[i*wordSize : (i+1)*wordSize]
	if wordSize == 8 {
		binary.LittleEndian.PutUint64(b, uint64(v))
	} else {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

// check panics if r's invariants do not hold.
func (r *Repr[T]) check() {
	n, room := r.Len(), r.room()
	if n > room {
		panic(fmt.Sprintf("repr: length %d exceeds capacity %d", n, room))
	}
	if r.IsInline() {
		return
	}
	if isZST[T]() {
		if room != Unbounded || !r.handle().Nil() {
			panic("repr: zero-sized heap representation has storage")
		}
		return
	}
	if (room == 0) != r.handle().Nil() {
		panic(fmt.Sprintf("repr: capacity %d does not match %v", room, r.handle()))
	}
}

// inlineRoom is inlineCap[T](), for an inline r.
//
// Only types that may be stored inline ever are, so a non-empty inline r
// already answers the layout question and the reflective check is skipped.
func (r *Repr[T]) inlineRoom() int {
	if r.raw[InlineSize] != 0 {
		return inlineSlots[T]()
	}
	return inlineCap[T]()
}

// inlineCap returns how many values of T fit inline.
func inlineCap[T any]() int {
	var v T
	size, align := unsafe.Sizeof(v), unsafe.Alignof(v)
	if size == 0 || size > InlineSize || align > wordSize || !unsafex.PointerFree[T]() {
		return 0
	}
	return inlineSlots[T]()
}

// inlineSlots is how many values of T fit in the inline bytes, ignoring
// whether T may be stored there.
func inlineSlots[T any]() int {
	return min(InlineSize/unsafex.Size[T](), maxInlineLen)
}

func isZST[T any]() bool {
	return unsafex.Size[T]() == 0
}
