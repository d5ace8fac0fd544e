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

// Package syntax contains the concrete syntax trees produced by the parser.
//
// A [Tree] is built from [Subtree] values, which are immutable and shared
// between versions of a tree: editing a tree with [Tree.Edit] copies only the
// path from the root to the edited text, and reparsing reuses whatever the
// edit did not invalidate. Subtrees record sizes rather than offsets, so a
// subtree after an edit can be reused in place without being rewritten.
//
// A [Node] is a subtree together with its position in a tree, and is the
// usual way of navigating one. Nodes hide the invisible parts of the tree,
// such as whitespace and the auxiliary rules introduced for repetition.
// [Tree.Dump] shows everything.
package syntax
