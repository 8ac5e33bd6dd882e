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
	"fmt"
	"unsafe"

	"github.com/bufbuild/smallbuf/internal/ext/unsafex"
)

// moveOverlapping moves the n elements starting at s[src] so that they start
// at s[dst]. The source and destination ranges may overlap.
func moveOverlapping[T any](s []T, dst, src, n int) {
	if n == 0 {
		return
	}
	// The copy builtin has memmove semantics.
	copy(s[dst:dst+n], s[src:src+n])
}

// copyDisjoint copies src into dst, which must be the same length and must not
// overlap.
func copyDisjoint[T any](dst, src []T) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("repr: copy of %d elements into %d slots", len(src), len(dst)))
	}
	if overlaps(dst, src) {
		panic("repr: overlapping copy")
	}
	copy(dst, src)
}

// overlaps returns whether a and b share any memory.
func overlaps[T any](a, b []T) bool {
	if len(a) == 0 || len(b) == 0 || unsafex.Size[T]() == 0 {
		return false
	}

	a0, b0 := unsafe.SliceData(a), unsafe.SliceData(b)
	aN, bN := unsafex.Add(a0, len(a)-1), unsafex.Add(b0, len(b)-1)
	return addr(a0) <= addr(bN) && addr(b0) <= addr(aN)
}

func addr[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}
