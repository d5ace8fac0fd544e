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

// Package grammar defines the compiled, read-only tables that drive the
// lexer and the parser.
//
// A [Tables] value is plain data: a symbol inventory, the rules, the LR action
// and goto tables, and a byte-level lexer automaton. [New] validates a
// [Tables] and produces a [Language], which is the opaque handle everything
// else in this module consumes. A [Language] is immutable and may be shared
// freely between goroutines.
//
// Tables can be serialized with [Language.Encode] and loaded with [Decode].
// The encoding uses the protobuf wire format, so bundles can be inspected with
// ordinary protobuf tooling.
package grammar
