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

// Package parser implements an incremental, table-driven GLR parser.
//
// A [Parser] is created for a [grammar.Language] and turns source text into
// a [syntax.Tree]. Parsing never fails on malformed input: syntax errors are
// recovered from and show up in the tree as ERROR and MISSING nodes. Errors
// are only returned for misuse and for exceeding the configured [Limits].
//
// # Incremental parsing
//
// Given an old tree that has been edited with [syntax.Tree.Edit], the parser
// reuses every subtree of the old tree that the edit did not touch and that
// would be rebuilt identically. The result is indistinguishable from parsing
// the new text from scratch, except that it shares structure with the old
// tree.
//
// # Ambiguity
//
// Where the grammar has conflicts, the parser forks its stack and pursues
// each alternative in lockstep, up to [Limits.MaxStacks] at once. Versions
// that reach the same state are merged, keeping the one that was preferred
// by the conflicting table cell.
package parser
