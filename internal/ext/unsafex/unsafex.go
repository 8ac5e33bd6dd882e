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

// package unsafex contains extensions to Go's package unsafe.
//
// Importing this package should be treated as equivalent to importing unsafe.
package unsafex

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"golang.org/x/exp/constraints" //nolint:exptostd // Tries to replace w/ cmp.
)

// Int is any integer type, usable as an index.
type Int constraints.Integer

// Size returns the size of T. This is free after inlining.
func Size[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// pointerFree caches the result of [PointerFree] per type, since computing
// it requires walking the type with reflection.
var pointerFree sync.Map // map[reflect.Type]bool

// PointerFree returns whether T contains no pointers, i.e., whether its bytes
// may be stored in memory the GC does not scan.
//
// Go does not expose this as an intrinsic, so it is computed with reflection
// and cached.
func PointerFree[T any]() bool {
	ty := reflect.TypeFor[T]()
	if v, ok := pointerFree.Load(ty); ok {
		return v.(bool) //nolint:errcheck // Only bools are stored.
	}
	v := !hasPointers(ty)
	pointerFree.Store(ty, v)
	return v
}

func hasPointers(ty reflect.Type) bool {
	switch ty.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return ty.Len() > 0 && hasPointers(ty.Elem())
	case reflect.Struct:
		for i := range ty.NumField() {
			if hasPointers(ty.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointers, unsafe.Pointer, strings, slices, maps, channels, funcs and
		// interfaces all carry pointers.
		return true
	}
}

// Add is like [unsafe.Add], but it operates on a typed pointer and scales the
// offset by that type's size, similar to pointer arithmetic in Rust or C.
//
// This function has the same safety caveats as [unsafe.Add].
//
//go:nosplit
func Add[P ~*E, E any, I Int](p P, idx I) P {
	raw := unsafe.Pointer(p)
	raw = unsafe.Add(raw, int(idx)*Size[E]())
	return P(raw)
}

// Bitcast bit-casts a value of type From to a value of type To.
//
// This operation is very dangerous, because it can be used to break package
// export barriers, read uninitialized memory, and forge pointers in violation
// of [unsafe.Pointer]'s contract, resulting in memory errors in the GC.
//
// Panics if To and From have different sizes.
//
//go:nosplit
func Bitcast[To, From any](v From) To {
	if Size[To]() != Size[From]() {
		// This check will always be inlined away, because Bitcast is
		// manifestly inline-able.
		panic(badBitcast[To, From]{})
	}

	// To avoid an unaligned load below, we copy From into
	// a struct aligned to To.
	//
	// For cases where the alignment change is redundant, this gets SROA'd out
	// of existence.
	aligned := struct {
		_ [0]To
		v From
	}{v: v}

	return *(*To)(unsafe.Pointer(&aligned))
}

type badBitcast[To, From any] struct{}

func (badBitcast[To, From]) Error() string {
	var to To
	var from From
	return fmt.Sprintf(
		"unsafex: %T and %T are of unequal size (%d != %d)",
		to, from,
		Size[To](), Size[From](),
	)
}

// SliceData is like [unsafe.SliceData], but it avoids a bug in Go 1.21 where
// calling the SliceData intrinsic (which is *not* a generic function) with
// a generic type with a slice constraint would be incorrectly diagnosed.
func SliceData[S ~[]E, E any](data S) *E {
	return unsafe.SliceData([]E(data))
}

// Bytes reinterprets a slice of pointer-free values as its underlying bytes.
//
// Panics if E contains pointers, since writing through the result could
// forge pointers behind the GC's back.
func Bytes[S ~[]E, E any](data S) []byte {
	if !PointerFree[E]() {
		var e E
		panic(fmt.Sprintf("unsafex: cannot view %T as bytes: it contains pointers", e))
	}
	if len(data) == 0 || Size[E]() == 0 {
		return []byte{}
	}
	return unsafe.Slice(Bitcast[*byte](SliceData(data)), len(data)*Size[E]())
}

// StringAlias returns a string that aliases a slice. This is useful for
// situations where we have a slice that will never be written to and we want
// to interpret as a string without a copy.
//
// data must not be written to: for the lifetime of the returned string (that
// is, until its final use in the program upon which a finalizer set on it could
// run), it must be treated as if goroutines are concurrently reading from it:
// data must not be mutated in any way.
//
//go:nosplit
func StringAlias[S ~[]E, E any](data S) string {
	return unsafe.String(
		Bitcast[*byte](SliceData(data)),
		len(data)*Size[E](),
	)
}
