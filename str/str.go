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

// Package str provides [Str], a growable UTF-8 string that stores up to
// [repr.InlineSize] bytes without allocating.
package str

import (
	"bytes"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"
	"unsafe"

	"github.com/rivo/uniseg"

	"github.com/bufbuild/smallbuf/internal/ext/unsafex"
	"github.com/bufbuild/smallbuf/internal/repr"
)

// InlineSize is the number of bytes a [Str] can hold without allocating.
const InlineSize = repr.InlineSize

// Str is a growable, mutable UTF-8 string.
//
// The zero value is an empty Str, ready to use. A Str that has grown past
// [InlineSize] bytes owns an allocation, which [Str.Free] gives back.
//
// Copying a Str by value is only safe while it is inline; use [Str.Clone]
// to make an independent copy.
type Str struct {
	repr repr.Repr[byte]
}

// Str must be exactly three words wide.
var _ [3 * unsafe.Sizeof(uintptr(0))]byte = [unsafe.Sizeof(Str{})]byte{}

// New returns an empty Str.
func New() Str {
	return Str{}
}

// From returns a Str holding a copy of s. It is inline if s fits.
func From(s string) Str {
	if len(s) <= InlineSize {
		return Str{repr.NewInline(bytesOf(s))}
	}
	return Str{repr.FromHeap(bytesOf(s))}
}

// FromBytes returns a Str holding a copy of b, or an [*InvalidUTF8Error] if b
// is not valid UTF-8.
func FromBytes(b []byte) (Str, error) {
	if err := validate(b); err != nil {
		return Str{}, err
	}
	return From(unsafex.StringAlias(b)), nil
}

// InvalidUTF8Error is returned when bytes that are not valid UTF-8 are
// converted into a [Str].
type InvalidUTF8Error struct {
	// Offset is the index of the first byte that does not begin a valid
	// UTF-8 sequence.
	Offset int
}

// Error implements [error].
func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("str: invalid UTF-8 at byte offset %d", e.Offset)
}

// Len returns the length of s in bytes.
func (s *Str) Len() int {
	return s.repr.Len()
}

// Cap returns the number of bytes s can hold without growing.
func (s *Str) Cap() int {
	return s.repr.Cap()
}

// IsInline returns whether s is stored without an allocation.
func (s *Str) IsInline() bool {
	return s.repr.IsInline()
}

// Reserve ensures s can hold at least n more bytes without growing.
func (s *Str) Reserve(n int) {
	s.repr.Reserve(n)
}

// Push appends the UTF-8 encoding of r. Invalid runes are encoded as
// [utf8.RuneError].
func (s *Str) Push(r rune) {
	var buf [utf8.UTFMax]byte
	s.repr.Extend(utf8.AppendRune(buf[:0], r))
}

// PushStr appends text.
func (s *Str) PushStr(text string) {
	s.repr.Extend(bytesOf(text))
}

// PushText appends the contents of other. other may be s itself.
func (s *Str) PushText(other *Str) {
	s.repr.Extend(other.repr.Slice())
}

// Pop removes the last byte of s and returns it as a rune.
//
// This is only correct when that byte is ASCII; use [Str.PopRune] to remove a
// whole code point.
func (s *Str) Pop() (rune, bool) {
	b, ok := s.repr.Pop()
	return rune(b), ok
}

// PopRune removes the last code point of s and returns it.
func (s *Str) PopRune() (rune, bool) {
	data := s.repr.Slice()
	r, n := utf8.DecodeLastRune(data)
	if n == 0 {
		return 0, false
	}
	s.truncate(len(data) - n)
	return r, true
}

// PopGrapheme removes the last extended grapheme cluster of s and returns a
// copy of it.
func (s *Str) PopGrapheme() (string, bool) {
	text := s.View()
	if text == "" {
		return "", false
	}

	var last int
	for start := range graphemes(text) {
		last = start
	}
	g := strings.Clone(text[last:])
	s.truncate(last)
	return g, true
}

// Graphemes returns an iterator over the extended grapheme clusters of s.
//
// The yielded strings alias s, and s must not be mutated during iteration.
func (s *Str) Graphemes() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, g := range graphemes(s.View()) {
			if !yield(g) {
				return
			}
		}
	}
}

// Width returns the approximate width of s in terminal columns.
func (s *Str) Width() int {
	return uniseg.StringWidth(s.View())
}

// Clear removes every byte from s. Its capacity is unchanged.
func (s *Str) Clear() {
	s.truncate(0)
}

// Equal returns whether s and other hold the same text.
func (s *Str) Equal(other *Str) bool {
	return bytes.Equal(s.repr.Slice(), other.repr.Slice())
}

// EqualString returns whether s holds text.
func (s *Str) EqualString(text string) bool {
	return s.View() == text
}

// Compare compares s and other bytewise, like [strings.Compare].
func (s *Str) Compare(other *Str) int {
	return bytes.Compare(s.repr.Slice(), other.repr.Slice())
}

// String returns a copy of the contents of s.
func (s Str) String() string {
	return string(s.repr.Slice())
}

// Format implements [fmt.Formatter].
func (s Str) Format(state fmt.State, verb rune) {
	fmt.Fprintf(state, fmt.FormatString(state, verb), s.View())
}

// View returns the contents of s without copying them.
//
// The result is only valid until s is next mutated, moved, or freed.
func (s *Str) View() string {
	return unsafex.StringAlias(s.repr.Slice())
}

// Bytes returns a copy of the contents of s.
func (s *Str) Bytes() []byte {
	return bytes.Clone(s.repr.Slice())
}

// UnsafeBytes returns the contents of s as a mutable slice, aliasing its
// storage.
//
// Writing bytes that leave s as invalid UTF-8 is allowed, but every other
// method then treats those bytes as-is.
func (s *Str) UnsafeBytes() []byte {
	return s.repr.Slice()
}

// Clone returns an independent copy of s, stored the same way s is.
func (s *Str) Clone() Str {
	return Str{s.repr.CloneFunc(nil)}
}

// Free releases the allocation held by s, if any, and resets it to empty.
func (s *Str) Free() {
	s.repr.Release()
}

func (s *Str) truncate(n int) {
	clear(s.repr.Slice()[n:])
	s.repr.SetLen(n)
}

// bytesOf returns s as a read-only byte slice.
func bytesOf(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// graphemes iterates over the grapheme clusters of text, along with their
// byte offsets.
func graphemes(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		state := -1
		var offset int
		for text != "" {
			var g string
			g, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
			if !yield(offset, g) {
				return
			}
			offset += len(g)
		}
	}
}

func validate(b []byte) error {
	for i := 0; i < len(b); {
		r, n := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && n == 1 {
			return &InvalidUTF8Error{Offset: i}
		}
		i += n
	}
	return nil
}
