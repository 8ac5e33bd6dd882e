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

// Package bitsx contains extensions to Go's package math/bits.
package bitsx

import "math/bits"

// MulChecked returns a * b, and whether the multiplication did not overflow
// a uint.
func MulChecked(a, b uint) (uint, bool) {
	hi, lo := bits.Mul(a, b)
	return lo, hi == 0
}

// HighBit returns a word with only its most significant bit set.
func HighBit() uint {
	return 1 << (bits.UintSize - 1)
}
