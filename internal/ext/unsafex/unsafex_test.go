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

package unsafex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/smallbuf/internal/ext/unsafex"
)

func TestPointerFree(t *testing.T) {
	t.Parallel()

	type flat struct {
		a int32
		b [4]float64
		c struct{ d bool }
	}
	type nested struct {
		a int
		b [2]struct{ s string }
	}

	assert.True(t, unsafex.PointerFree[byte]())
	assert.True(t, unsafex.PointerFree[complex128]())
	assert.True(t, unsafex.PointerFree[flat]())
	assert.True(t, unsafex.PointerFree[struct{}]())
	assert.True(t, unsafex.PointerFree[[0]*int]())

	assert.False(t, unsafex.PointerFree[string]())
	assert.False(t, unsafex.PointerFree[*int]())
	assert.False(t, unsafex.PointerFree[[]int]())
	assert.False(t, unsafex.PointerFree[any]())
	assert.False(t, unsafex.PointerFree[nested]())

	// Cached answers agree with fresh ones.
	assert.True(t, unsafex.PointerFree[flat]())
	assert.False(t, unsafex.PointerFree[nested]())
}

func TestSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, unsafex.Size[uint32]())
	assert.Equal(t, 0, unsafex.Size[struct{}]())
}

func TestAdd(t *testing.T) {
	t.Parallel()

	x := []int16{1, 2, 3, 4}
	assert.Equal(t, int16(3), *unsafex.Add(&x[0], 2))
	assert.Same(t, &x[3], unsafex.Add(&x[1], 2))
}

func TestBytes(t *testing.T) {
	t.Parallel()

	x := []uint16{0x0101, 0x0202}
	assert.Equal(t, []byte{1, 1, 2, 2}, unsafex.Bytes(x))
	assert.Equal(t, []byte{}, unsafex.Bytes([]uint16(nil)))
	assert.Panics(t, func() { unsafex.Bytes([]string{"x"}) })
}

func TestStringAlias(t *testing.T) {
	t.Parallel()

	b := []byte("hello")
	assert.Equal(t, "hello", unsafex.StringAlias(b))
}
