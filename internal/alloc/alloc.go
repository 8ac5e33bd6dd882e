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

// Package alloc is a process-wide allocator for typed buffers.
//
// Buffers are named by a [Handle], which is a small integer rather than a
// pointer. This lets a type that refers to a buffer stay entirely
// pointer-free (and therefore be stored in, or overlaid with, raw bytes),
// while the buffer itself remains an ordinary []T that the GC can see into.
//
// Buffers are never collected on their own: every [Alloc] or [Adopt] must be
// paired with exactly one [Free]. [Live] and [ReportLeaks] exist to check
// that this holds.
//
// All functions in this package may be called by multiple goroutines
// concurrently.
package alloc

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/petermattis/goid"
	"github.com/tidwall/btree"

	"github.com/bufbuild/smallbuf/internal/ext/bitsx"
	"github.com/bufbuild/smallbuf/internal/ext/unsafex"
)

// MaxBytes is the largest buffer, in bytes, that this package will allocate.
const MaxBytes = math.MaxInt

// Handle names a buffer allocated by this package.
//
// The zero value is the nil handle, which names no buffer.
type Handle uint

// Nil returns whether this is the nil handle.
func (h Handle) Nil() bool {
	return h == 0
}

// String implements [fmt.Stringer].
func (h Handle) String() string {
	if h.Nil() {
		return "alloc.Handle(nil)"
	}
	return fmt.Sprintf("alloc.Handle(%d)", uint(h))
}

type slot struct {
	buf   any // A []T with len == cap.
	bytes int
	owner int64 // ID of the goroutine that allocated this buffer.
}

// table is the global handle table.
type table struct {
	mu    sync.RWMutex
	slots []slot // slots[h-1] is the buffer for h; buf is nil for free slots.
	free  btree.Map[Handle, struct{}]
	live  int
}

var global table

// Alloc allocates a buffer of n zeroed values of type T.
//
// Panics if n is not positive, if T is zero-sized, or if the buffer would be
// larger than [MaxBytes].
func Alloc[T any](n int) Handle {
	return global.insert(makeBuffer[T](n), n*unsafex.Size[T]())
}

// Adopt takes ownership of s's backing array, without copying it. The
// returned handle names s[:cap(s)].
//
// The caller must not use s after calling Adopt. Returns the nil handle if s
// has zero capacity.
func Adopt[T any](s []T) Handle {
	if cap(s) == 0 {
		return 0
	}
	checkSize[T](cap(s))
	return global.insert(s[:cap(s)], cap(s)*unsafex.Size[T]())
}

// Slice returns the full buffer named by h: its length is the buffer's
// capacity.
//
// The returned slice is invalidated by [Realloc] and [Free].
//
// Panics if h is nil, has been freed, or names a buffer of a different type.
func Slice[T any](h Handle) []T {
	raw := global.get(h)
	buf, ok := raw.([]T)
	if !ok {
		var want []T
		panic(fmt.Sprintf("alloc: %v holds %T, not %T", h, raw, want))
	}
	return buf
}

// Realloc grows the buffer named by h to hold at least n values, preserving
// the first keep values. If h is nil, this is equivalent to [Alloc].
//
// The handle is stable: the returned handle is always h (unless h was nil),
// although the buffer it names may have moved.
func Realloc[T any](h Handle, keep, n int) Handle {
	if h.Nil() {
		return Alloc[T](n)
	}

	old := Slice[T](h)
	if n <= len(old) {
		// Already big enough.
		return h
	}
	if keep > len(old) {
		panic(fmt.Sprintf("alloc: cannot preserve %d values of a %d-value buffer", keep, len(old)))
	}

	buf := makeBuffer[T](n)
	copy(buf, old[:keep])

	global.mu.Lock()
	defer global.mu.Unlock()
	s := global.lookup(h)
	s.buf = buf
	s.bytes = n * unsafex.Size[T]()
	return h
}

// Free releases the buffer named by h. Freeing the nil handle does nothing.
//
// Panics if h has already been freed.
func Free(h Handle) {
	if h.Nil() {
		return
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	s := global.lookup(h)
	*s = slot{}
	global.free.Set(h, struct{}{})
	global.live--
}

// Live returns the number of buffers that have been allocated or adopted but
// not yet freed.
func Live() int {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.live
}

// ReportLeaks logs every live buffer to logger at warning level, and returns
// how many there were.
//
// This is intended for tests and debugging; it holds the allocator's lock
// for the duration of the report.
func ReportLeaks(logger *slog.Logger) int {
	global.mu.RLock()
	defer global.mu.RUnlock()

	var n int
	for i, s := range global.slots {
		if s.buf == nil {
			continue
		}
		n++
		logger.Warn("alloc: live buffer",
			slog.Any("handle", Handle(i+1)),
			slog.String("type", fmt.Sprintf("%T", s.buf)),
			slog.Int("bytes", s.bytes),
			slog.Int64("goroutine", s.owner),
		)
	}
	return n
}

func makeBuffer[T any](n int) []T {
	if n <= 0 {
		panic(fmt.Sprintf("alloc: invalid buffer length %d", n))
	}
	if unsafex.Size[T]() == 0 {
		var v T
		panic(fmt.Sprintf("alloc: cannot allocate zero-sized %T", v))
	}
	checkSize[T](n)
	return make([]T, n)
}

// checkSize panics if n values of T would exceed [MaxBytes].
func checkSize[T any](n int) {
	bytes, ok := bitsx.MulChecked(uint(n), uint(unsafex.Size[T]()))
	if !ok || bytes > MaxBytes {
		var v T
		panic(fmt.Sprintf("alloc: allocation too large: %d values of %T", n, v))
	}
}

// insert stores buf in a fresh slot, reusing the lowest free handle.
func (t *table) insert(buf any, bytes int) Handle {
	owner := goid.Get()

	t.mu.Lock()
	defer t.mu.Unlock()

	var h Handle
	t.free.Scan(func(k Handle, _ struct{}) bool {
		h = k
		return false
	})
	if h.Nil() {
		t.slots = append(t.slots, slot{})
		h = Handle(len(t.slots))
	} else {
		t.free.Delete(h)
	}

	t.slots[h-1] = slot{buf: buf, bytes: bytes, owner: owner}
	t.live++
	return h
}

// get returns the buffer named by h.
func (t *table) get(h Handle) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookup(h).buf
}

// lookup returns the slot for h. Must be called with t.mu held.
func (t *table) lookup(h Handle) *slot {
	if h.Nil() || int(h) > len(t.slots) {
		panic(fmt.Sprintf("alloc: invalid handle %v", h))
	}
	s := &t.slots[h-1]
	if s.buf == nil {
		panic(fmt.Sprintf("alloc: use of freed %v", h))
	}
	return s
}
