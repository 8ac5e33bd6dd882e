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

package repr

import (
	"github.com/bufbuild/smallbuf/internal/alloc"
)

// NextCap returns the capacity to grow to from capacity cur, such that the
// result can hold at least minimum elements.
//
// An empty buffer grows to exactly what is needed (but at least one element);
// otherwise capacity at least doubles, saturating at [Unbounded].
func NextCap(cur, minimum int) int {
	if cur == 0 {
		return max(minimum, 1)
	}

	doubled := Unbounded
	if cur <= Unbounded/2 {
		doubled = 2 * cur
	}
	return max(minimum, doubled)
}

// grow makes room for at least minimum elements.
//
// If r is inline, this moves it to the heap; this is the only way a Repr
// changes variant, and it never goes back.
func (r *Repr[T]) grow(minimum int) {
	n := r.Len()

	if isZST[T]() {
		// Nothing to allocate. An inline Repr of zero-sized values still has to
		// move to the heap variant, since the tag cannot count past 127.
		if r.IsInline() {
			r.setHeap(0, n, Unbounded)
		}
		return
	}

	newCap := NextCap(r.room(), minimum)
	if !r.IsInline() {
		h := alloc.Realloc[T](r.handle(), n, newCap)
		r.setHeap(h, n, newCap)
		return
	}

	h := alloc.Alloc[T](newCap)
	copyDisjoint(alloc.Slice[T](h)[:n], r.inline()[:n])

	// The inline bytes were never a separate allocation, so they are simply
	// overwritten by the heap fields.
	clear(r.raw[:])
	r.setHeap(h, n, newCap)
}
