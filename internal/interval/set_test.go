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

package interval_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/polytope/internal/interval"
)

func TestInsert(t *testing.T) {
	t.Parallel()
	type r = interval.Interval[int]

	tests := []struct {
		name   string
		ranges []r
		want   []r
	}{
		{
			name:   "single",
			ranges: []r{{0, 9}},
			want:   []r{{0, 9}},
		},
		{
			name:   "disjoint",
			ranges: []r{{30, 39}, {0, 9}},
			want:   []r{{0, 9}, {30, 39}},
		},
		{
			name:   "touching",
			ranges: []r{{0, 9}, {9, 12}},
			want:   []r{{0, 12}},
		},
		{
			name:   "subset",
			ranges: []r{{0, 9}, {3, 4}},
			want:   []r{{0, 9}},
		},
		{
			name:   "superset",
			ranges: []r{{3, 4}, {6, 8}, {20, 21}, {0, 9}},
			want:   []r{{0, 9}, {20, 21}},
		},
		{
			name:   "bridge",
			ranges: []r{{0, 5}, {10, 15}, {4, 11}},
			want:   []r{{0, 15}},
		},
		{
			name:   "empty",
			ranges: []r{{5, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var set interval.Set[int]
			for _, r := range tt.ranges {
				set.Insert(r.Start, r.End)
			}
			assert.Equal(t, tt.want, slices.Collect(set.All()))
			assert.Equal(t, len(tt.want), set.Len())
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	var set interval.Set[int]
	set.Insert(2, 4)
	set.Insert(8, 10)

	for x, want := range []bool{false, false, true, true, false, false, false, false, true, true, false} {
		assert.Equal(t, want, set.Contains(x), "%d", x)
	}
	assert.Equal(t, "{[2, 4), [8, 10)}", fmt.Sprint(&set))
}
