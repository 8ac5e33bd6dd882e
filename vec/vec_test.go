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

package vec_test

import (
	"fmt"
	"iter"
	"maps"
	"math/bits"
	"slices"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/smallbuf/internal/alloc"
	"github.com/bufbuild/smallbuf/vec"
)

func TestSize(t *testing.T) {
	t.Parallel()

	words := uintptr(bits.UintSize / 8)
	assert.Equal(t, 3*words, unsafe.Sizeof(vec.Vec[byte]{}))
	assert.Equal(t, 3*words, unsafe.Sizeof(vec.Vec[string]{}))
	assert.Equal(t, 3*words, unsafe.Sizeof(vec.Vec[[100]int]{}))
}

func TestGet(t *testing.T) {
	t.Parallel()

	v := vec.New[uint32]()
	_, ok := v.Get(0)
	assert.False(t, ok)
	assert.Nil(t, v.GetPointer(0))

	v.Push(1)
	x, ok := v.Get(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), x)
	assert.True(t, v.IsInline())

	*v.GetPointer(0) = 0
	assert.Equal(t, uint32(0), v.At(0))

	h := vec.NewHeap[uint32]()
	_, ok = h.Get(0)
	assert.False(t, ok)
	assert.False(t, h.IsInline())

	h.Push(1)
	x, ok = h.Get(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), x)
	h.SetAt(0, 2)
	assert.Equal(t, uint32(2), h.At(0))
	assert.Panics(t, func() { h.At(1) })
	h.Free()
}

func TestPushPop(t *testing.T) {
	t.Parallel()

	v := vec.New[uint32]()
	v.Push(4)
	assert.True(t, v.IsInline())
	assert.Equal(t, 1, v.Len())

	x, ok := v.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(4), x)
	assert.Equal(t, 0, v.Len())

	_, ok = v.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, v.Len())
}

func TestGrow(t *testing.T) {
	t.Parallel()

	var v vec.Vec[byte]
	for i := range vec.InlineSize {
		v.Push(byte(i))
	}
	assert.True(t, v.IsInline())
	assert.Equal(t, vec.InlineSize, v.Len())
	assert.Equal(t, vec.InlineSize, v.Cap())

	v.Push(vec.InlineSize)
	assert.False(t, v.IsInline())
	assert.Equal(t, vec.InlineSize+1, v.Len())
	for i, x := range v.All() {
		assert.Equal(t, byte(i), x)
	}
	v.Free()
}

func TestExtend(t *testing.T) {
	t.Parallel()

	type big struct{ inner [8]float32 }

	v := vec.New[uint16]()
	v.Extend(0, 1, 2, 3)
	assert.Equal(t, []uint16{0, 1, 2, 3}, v.Slice())

	h := vec.NewHeap[uint16]()
	h.Extend(0, 1, 2, 3, 4)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4}, h.Slice())
	h.Free()

	e := vec.New[uint16]()
	e.Extend()
	assert.Empty(t, e.Slice())

	b := vec.New[big]()
	b.Extend(big{})
	assert.Equal(t, []big{{}}, b.Slice())
	assert.False(t, b.IsInline())
	b.Free()

	s := vec.Adopt([]string{"x"})
	other := vec.Of("y")
	s.AppendSeq(other.IntoIter().Seq())
	assert.Equal(t, []string{"x", "y"}, s.Slice())
	s.Free()
}

func TestInsert(t *testing.T) {
	t.Parallel()

	v := vec.Of[int8](0, 1, 3)
	v.Insert(2, 2)
	assert.Equal(t, []int8{0, 1, 2, 3}, v.Slice())

	v = vec.Of[int8](0, 1, 3)
	v.Insert(3, 2)
	assert.Equal(t, []int8{0, 1, 3, 2}, v.Slice())
	assert.Panics(t, func() { v.Insert(5, 9) })

	v = vec.New[int8]()
	v.Insert(0, 2)
	assert.Equal(t, int8(2), v.At(0))

	h := vec.NewHeap[int8]()
	h.Extend(0, 1, 3)
	h.Insert(3, 2)
	assert.Equal(t, []int8{0, 1, 3, 2}, h.Slice())
	h.Free()
}

func TestRemove(t *testing.T) {
	t.Parallel()

	v := vec.Of[int16](0, 1, 2, 3)
	assert.Equal(t, int16(0), v.Remove(0))
	assert.Equal(t, []int16{1, 2, 3}, v.Slice())
	assert.Equal(t, int16(3), v.Remove(2))
	assert.Equal(t, []int16{1, 2}, v.Slice())
	assert.Panics(t, func() { v.Remove(2) })
}

func TestFromSlice(t *testing.T) {
	t.Parallel()

	v := vec.FromSlice([]int8{0, 1})
	assert.Equal(t, []int8{0, 1}, v.Slice())
	assert.True(t, v.IsInline())

	h := vec.FromHeap([]int8{0, 1, 2, 3})
	assert.Equal(t, []int8{0, 1, 2, 3}, h.Slice())
	assert.Equal(t, 4, h.Cap())
	assert.False(t, h.IsInline())
	h.Free()
}

func TestAdopt(t *testing.T) {
	t.Parallel()

	s := make([]int, 4, 8)
	copy(s, []int{0, 1, 2, 3})
	v := vec.Adopt(s)
	assert.Equal(t, []int{0, 1, 2, 3}, v.Slice())
	assert.Equal(t, 8, v.Cap())
	assert.Same(t, &s[0], v.GetPointer(0))
	v.Free()
}

func TestCollect(t *testing.T) {
	t.Parallel()

	v := vec.Collect(slices.Values([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "b", "c"}, v.ToSlice())
	v.Free()

	keys := vec.Collect(maps.Keys(map[int]bool{7: true}))
	assert.Equal(t, []int{7}, keys.ToSlice())
	keys.Free()
}

func TestClone(t *testing.T) {
	t.Parallel()

	v := vec.Of[int32](0, 1, 2, 3)
	c := v.Clone()
	assert.Equal(t, []int32{0, 1, 2, 3}, c.Slice())

	v.SetAt(0, 9)
	assert.Equal(t, []int32{0, 1, 2, 3}, c.Slice())
	assert.Equal(t, []int32{9, 1, 2, 3}, v.Slice())
	v.Free()
	c.Free()

	d := vec.Of(deep{[]int{1}}, deep{[]int{2}})
	dc := d.Clone()
	d.GetPointer(0).p[0] = 9
	assert.Equal(t, 1, dc.At(0).p[0])
	d.Free()
	dc.Free()
}

type deep struct{ p []int }

func (d deep) Clone() deep { return deep{slices.Clone(d.p)} }

func (d deep) String() string { return fmt.Sprint(d.p) }

type adt struct{ s string }

func TestEqual(t *testing.T) {
	t.Parallel()

	v1 := vec.Of(1, 2, 3, 4)
	v2 := vec.Of(0, 2, 3, 4)
	assert.True(t, vec.Equal(&v1, &v1))
	assert.False(t, vec.Equal(&v1, &v2))

	a := vec.Of(adt{"some text"}, adt{"another text"}, adt{"other text"})
	b := vec.Of(adt{"other text"}, adt{"another text"}, adt{"other text"})
	assert.True(t, vec.Equal(&a, &a))
	assert.False(t, vec.Equal(&a, &b))

	f := vec.Of(1.0, 2.0)
	g := vec.Of(1, 2)
	assert.True(t, vec.EqualFunc(&f, &g, func(x float64, y int) bool { return x == float64(y) }))

	for _, v := range []*vec.Vec[int]{&v1, &v2, &g} {
		v.Free()
	}
	a.Free()
	b.Free()
	f.Free()
}

func TestFormat(t *testing.T) {
	t.Parallel()

	v := vec.Of("x", "y")
	assert.Equal(t, "[x y]", fmt.Sprint(v))
	assert.Equal(t, `["x" "y"]`, fmt.Sprintf("%q", v))
	assert.Equal(t, "[x y]", fmt.Sprint(&v))
	v.Free()

	d := vec.Of(deep{[]int{1}})
	assert.Equal(t, "[[1]]", fmt.Sprint(d))
	d.Free()
}

func TestBytes(t *testing.T) {
	t.Parallel()

	v := vec.Of[uint8](1, 2, 3)
	v.Bytes()[1] = 7
	assert.Equal(t, []uint8{1, 7, 3}, v.Slice())

	s := vec.Of("x")
	assert.Panics(t, func() { s.Bytes() })
	s.Free()
}

func TestBorrowingIteration(t *testing.T) {
	t.Parallel()

	v := vec.Of[uint64](0, 1, 2, 3, 4, 5)
	for range 2 { // Restartable.
		var n int
		for i, x := range v.All() {
			assert.Equal(t, uint64(i), x)
			n++
		}
		assert.Equal(t, 6, n)
	}

	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, slices.Collect(v.Values()))

	var back []int
	for i, x := range v.Backward() {
		assert.Equal(t, uint64(i), x)
		back = append(back, i)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1, 0}, back)

	assert.Equal(t, []uint64{0, 1}, slices.Collect(take(v.Values(), 2)))
	v.Free()
}

func TestZeroSized(t *testing.T) { //nolint:paralleltest // Counts live allocations.
	before := alloc.Live()

	v := vec.New[struct{}]()
	for range 500 {
		v.Push(struct{}{})
		require.Equal(t, vec.Unbounded, v.Cap())
	}
	for range 200 {
		v.Pop()
	}
	assert.Equal(t, 300, v.Len())
	assert.Equal(t, vec.Unbounded, v.Cap())
	assert.Equal(t, before, alloc.Live())

	var n int
	for range v.Drain().Seq() {
		n++
	}
	assert.Equal(t, 300, n)
	v.Free()
	assert.Equal(t, before, alloc.Live())
}

func TestFree(t *testing.T) { //nolint:paralleltest // Counts live allocations.
	before := alloc.Live()

	v := vec.Of("a", "b", "c")
	c := v.Clone()
	assert.Equal(t, before+2, alloc.Live())
	v.Free()
	c.Free()
	assert.Equal(t, before, alloc.Live())

	// A freed Vec is empty and reusable.
	assert.Equal(t, 0, v.Len())
	v.Push("d")
	assert.Equal(t, []string{"d"}, v.Slice())
	v.Free()
	assert.Equal(t, before, alloc.Live())
}

func take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n == 0 {
			return
		}
		i := 0
		for x := range seq {
			if !yield(x) {
				return
			}
			i++
			if i == n {
				return
			}
		}
	}
}
