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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/polytope/internal/arena"
)

func TestPointers(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[int]

	p1 := a.New(5)
	p2 := p1.In(&a)
	assert.Equal(5, *p2)

	for i := range 16 {
		a.New(i + 5)
	}
	assert.Equal(19, *a.At(16))
	assert.Equal(20, *a.At(17))
	assert.Same(p1.In(&a), p2)

	for i := range 32 {
		a.New(i + 21)
	}
	assert.Equal(51, *a.At(48))
	assert.Equal(52, *a.At(49))
	assert.Same(p1.In(&a), p2)
	assert.Equal(49, a.Len())

	assert.Equal("[5 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19|20 21 22 23 24 25 26 27 28 29 30 31 32 33 34 35 36 37 38 39 40 41 42 43 44 45 46 47 48 49 50 51|52]", a.String())

	assert.Panics(func() { a.At(50) })
	assert.Panics(func() { a.At(0) })
}

func TestReset(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[string]
	for range 40 {
		a.New("x")
	}
	first := a.At(1)

	a.Reset()
	assert.Zero(a.Len())
	assert.Equal("[]", a.String())

	p := a.New("y")
	assert.Equal(arena.Pointer[string](1), p)
	assert.Same(first, p.In(&a))
	assert.Equal("y", *first)
	assert.Equal("#1", p.String())
}
