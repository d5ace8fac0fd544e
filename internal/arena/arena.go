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

// Package arena defines an Arena type with compressed pointers.
//
// The parser allocates its transient stack frames here: a frame refers to
// the one below it by a 32-bit pointer, and the whole arena is dropped, or
// reset, once a parse completes.
package arena

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	// The log2 of the size of the smallest slice in an arena.
	minLenShift = 4
	minLen      = 1 << minLenShift
)

// Pointer is a compressed arena pointer. It cannot be dereferenced directly;
// see [Pointer.In].
//
// The value of a pointer is one plus the number of values allocated before
// it. The zero value is nil.
type Pointer[T any] uint32

// Nil returns whether this pointer is nil.
func (p Pointer[T]) Nil() bool {
	return p == 0
}

// In looks up this pointer in the given arena.
//
// arena must be the arena that allocated this pointer, and must not have
// been reset since. If p is nil, this panics.
func (p Pointer[T]) In(arena *Arena[T]) *T {
	return arena.At(p)
}

// String implements [fmt.Stringer].
func (p Pointer[T]) String() string {
	if p.Nil() {
		return "nil"
	}
	return fmt.Sprintf("#%d", uint32(p))
}

// Arena is a slice of T that guarantees the Ts will never be moved.
//
// It maintains a table of logarithmically-growing slices that mimic the
// resizing behavior of an ordinary slice. Lookup is O(1), at the cost of two
// pointer loads instead of one.
//
// A zero Arena[T] is empty and ready to use.
type Arena[T any] struct {
	// Invariants:
	// 1. cap(table[0]) == minLen.
	// 2. cap(table[n]) == 2*cap(table[n-1]).
	// 3. cap(table[n]) == len(table[n]) for n < used-1.
	table [][]T
	// The number of slices of table in use. Slices past it are retained by
	// Reset for reuse.
	used int
}

// New allocates a new value on the arena.
func (a *Arena[T]) New(value T) Pointer[T] {
	if a.used == 0 || len(a.table[a.used-1]) == cap(a.table[a.used-1]) {
		if a.used == len(a.table) {
			a.table = append(a.table, make([]T, 0, minLen<<a.used))
		}
		a.used++
	}
	last := &a.table[a.used-1]
	*last = append(*last, value)
	return Pointer[T](a.Len())
}

// At dereferences an arena pointer, as if by [Pointer.In].
func (a *Arena[T]) At(ptr Pointer[T]) *T {
	if ptr.Nil() {
		panic("arena: nil pointer dereference")
	}
	slice, idx := a.coordinates(int(ptr) - 1)
	return &a.table[slice][idx]
}

// Len returns the number of values allocated.
func (a *Arena[T]) Len() int {
	if a.used == 0 {
		return 0
	}
	// Only the last slice will be not-fully-filled.
	return a.lenOfFirstNSlices(a.used-1) + len(a.table[a.used-1])
}

// Reset discards every value in the arena, invalidating all pointers into it.
// The memory is kept and reused by later allocations.
func (a *Arena[T]) Reset() {
	var zero T
	for i := range a.table[:a.used] {
		slice := a.table[i]
		for j := range slice {
			slice[j] = zero
		}
		a.table[i] = slice[:0]
	}
	a.used = 0
}

// String implements [fmt.Stringer].
func (a *Arena[T]) String() string {
	var b strings.Builder
	b.WriteRune('[')
	// Show off the boundaries of the slices.
	for i, slice := range a.table[:a.used] {
		if i != 0 {
			b.WriteRune('|')
		}
		for j, v := range slice {
			if j != 0 {
				b.WriteRune(' ')
			}
			fmt.Fprint(&b, v)
		}
	}
	b.WriteRune(']')
	return b.String()
}

// lenOfFirstNSlices returns the length of the first n slices.
func (*Arena[T]) lenOfFirstNSlices(n int) int {
	// 2^m + 2^(m+1) + ... + 2^(n-1) = 2^n - 2^m.
	return max(0, minLen<<n-minLen)
}

// coordinates calculates the coordinates of the given index in table. It
// also performs a bounds check.
func (a *Arena[T]) coordinates(idx int) (int, int) {
	if idx >= a.Len() || idx < 0 {
		panic(fmt.Sprintf("arena: pointer out of range: %#x", idx))
	}

	// With minLenShift == n, the cumulative starting index of each slice is
	// 0b0 << n, 0b1 << n, 0b11 << n, and so on. Adding 0b1 << n maps this to
	// 0b1 << n, 0b10 << n, 0b100 << n, whose one-indexed high bit, less n+1,
	// is the slice index.
	slice := bits.UintSize - bits.LeadingZeros(uint(idx)+minLen)
	slice -= minLenShift + 1
	return slice, idx - a.lenOfFirstNSlices(slice)
}
