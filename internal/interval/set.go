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

// Package interval provides a set of half-open integer ranges.
package interval

import (
	"cmp"
	"fmt"
	"iter"

	"github.com/tidwall/btree"
)

// Set is a set of disjoint half-open intervals [start, end). Overlapping or
// touching intervals are merged on insertion.
//
// A zero value is ready to use.
type Set[K cmp.Ordered] struct {
	// Keys in this tree are the ends of intervals; values are their starts.
	tree btree.Map[K, K]
}

// Interval is an interval in a [Set].
type Interval[K cmp.Ordered] struct {
	Start, End K
}

// Len returns the number of disjoint intervals in the set.
func (s *Set[K]) Len() int {
	return s.tree.Len()
}

// Contains returns whether key lies within some interval.
func (s *Set[K]) Contains(key K) bool {
	iter := s.tree.Iter()
	// The least interval ending after key is the only candidate.
	if !iter.Seek(key) {
		return false
	}
	if iter.Key() == key && !iter.Next() {
		return false
	}
	return iter.Value() <= key
}

// Insert adds [start, end) to the set. Empty intervals are ignored.
func (s *Set[K]) Insert(start, end K) {
	if start > end {
		panic(fmt.Sprintf("interval: start (%#v) > end (%#v)", start, end))
	}
	if start == end {
		return
	}

	// Every interval [c, d) with start <= d and c <= end touches the new one.
	// These are consecutive in the tree, starting from the least d >= start.
	var merged []K
	iter := s.tree.Iter()
	for more := iter.Seek(start); more && iter.Value() <= end; more = iter.Next() {
		start = min(start, iter.Value())
		end = max(end, iter.Key())
		merged = append(merged, iter.Key())
	}
	for _, key := range merged {
		s.tree.Delete(key)
	}
	s.tree.Set(end, start)
}

// All returns an iterator over the intervals in ascending order.
func (s *Set[K]) All() iter.Seq[Interval[K]] {
	return func(yield func(Interval[K]) bool) {
		iter := s.tree.Iter()
		for more := iter.First(); more; more = iter.Next() {
			if !yield(Interval[K]{Start: iter.Value(), End: iter.Key()}) {
				return
			}
		}
	}
}

// Format implements [fmt.Formatter].
func (s *Set[K]) Format(state fmt.State, _ rune) {
	fmt.Fprint(state, "{")
	first := true
	s.tree.Scan(func(end, start K) bool {
		if !first {
			fmt.Fprint(state, ", ")
		}
		first = false
		fmt.Fprintf(state, "[%v, %v)", start, end)
		return true
	})
	fmt.Fprint(state, "}")
}
