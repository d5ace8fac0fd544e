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

package polytope

import (
	. "github.com/bufbuild/polytope/grammar/builder" //nolint:revive // DSL.
)

// Keywords are the reserved words of the language. Each one is lexed as an
// identifier wherever the keyword itself cannot appear.
var Keywords = []string{
	"input",
	"output",
	"solution",
	"satisfies",
	"if",
	"else",
	"for",
	"print",
	"var",
	"int",
	"string",
}

func blocked(e Expr) Expr { return Seq(Str("{"), e, Str("}")) }

// define returns the grammar. Rules are listed top down; the first is the
// start symbol.
func define() *Builder {
	b := New(Name).
		Token("id", Pat(`[a-zA-Z_][a-zA-Z0-9_]*`)).
		Token("int_literal", Pat(`\d+`)).
		Extra(`\s+`).
		Sync(";", "}")

	b.Rule("source_file", Seq(
		Field("input", Sym("input")),
		Field("output", Sym("output")),
		Field("solution", Sym("solution")),
	))

	// Sections.
	b.Rule("input", Seq(
		Str("input"),
		blocked(Field("body", Repeat(Sym("input_line")))),
		Str("satisfies"),
		blocked(Field("restriction", Sep(Sym("_restriction"), Str(";")))),
	))
	b.Rule("_restriction", Sym("expr_stmt"))
	b.Rule("output", Seq(Str("output"), blocked(Field("body", Repeat(Sym("output_line"))))))
	b.Rule("solution", Seq(Str("solution"), blocked(Field("body", Repeat(Sym("_stmt"))))))

	b.Rule("io_target", Seq(Field("id", Sym("id")), Str(":"), Field("type", Sym("_type"))))
	b.Rule("input_line", Seq(Field("targets", Sep1(Sym("io_target"), Str(","))), Str(";")))
	b.Rule("output_line", Seq(Field("targets", Sep1(Sym("io_target"), Str(","))), Str(";")))

	// Statements.
	b.Rule("_stmt", Choice(
		Sym("assign_stmt"),
		Sym("if_stmt"),
		Sym("for_stmt"),
		Sym("print_stmt"),
		Sym("decl_stmt"),
		Sym("expr_stmt"),
	))
	b.Rule("assign_stmt", Seq(Sym("id"), Str("="), Sym("_expr"), Str(";")))
	b.Rule("if_stmt", Seq(
		Str("if"), Str("("), Field("cond", Sym("_expr")), Str(")"),
		blocked(Field("then", Repeat(Sym("_stmt")))),
		Optional(Seq(Str("else"), blocked(Field("else", Repeat(Sym("_stmt")))))),
	))
	b.Rule("for_stmt", PrecLeft(10, Seq(
		Str("for"), Str("("),
		Field("lb", Sym("_expr")), Str("<="),
		Field("id", Sym("id")), Str("<="),
		Field("ub", Sym("_expr")), Str(")"),
		blocked(Field("body", Repeat(Sym("_stmt")))),
	)))
	b.Rule("print_stmt", Seq(Str("print"), Str("("), Field("expr", Sym("_expr")), Str(")"), Str(";")))
	b.Rule("decl_stmt", Seq(Sym("_decl"), Str(";")))
	b.Rule("expr_stmt", Seq(Sym("_expr"), Str(";")))

	// Declarations.
	b.Rule("_decl", Sym("var_decl"))
	b.Rule("var_decl", Seq(Str("var"), Sep1(Sym("single_var_decl"), Str(","))))
	b.Rule("single_var_decl", Seq(
		Field("id", Sym("id")), Str(":"), Sym("_type"),
		Field("value", Optional(Seq(Str("="), Sym("_expr")))),
	))

	// Expressions.
	b.Rule("_expr", Choice(
		Sym("refer_expr"),
		Sym("call_expr"),
		Sym("int_literal"),
		Sym("string_literal"),
		Sym("_op"),
	))
	b.Rule("refer_expr", Sym("id"))
	b.Rule("call_expr", Seq(
		Field("callee", Sym("id")),
		Str("("), Field("argument", Sep(Sym("_expr"), Str(","))), Str(")"),
	))
	b.Rule("string_literal", Seq(Str(`"`), Repeat(Pat(`[^"]|\\["\\]`)), Str(`"`)))

	b.Rule("_op", Choice(Sym("binary_op"), Sym("unary_op")))
	b.Rule("unary_op", PrecRight(2, Seq(
		Choice(Str("+"), Str("-"), Str("!"), Str("~")),
		Sym("_expr"),
	)))
	b.Rule("binary_op", Choice(
		Sym("multiplication_op"),
		Sym("addition_op"),
		Sym("comparison_op"),
		Sym("logical_op"),
	))
	b.Rule("multiplication_op", PrecLeft(4, Seq(
		Sym("_expr"), Choice(Str("*"), Str("/"), Str("%")), Sym("_expr"),
	)))
	b.Rule("addition_op", PrecLeft(3, Seq(
		Sym("_expr"), Choice(Str("+"), Str("-")), Sym("_expr"),
	)))
	b.Rule("comparison_op", PrecLeft(2, Seq(
		Sym("_expr"),
		Choice(Str("=="), Str("!="), Str("<"), Str("<="), Str(">"), Str(">=")),
		Sym("_expr"),
	)))
	b.Rule("logical_op", PrecLeft(1, Seq(
		Sym("_expr"), Choice(Str("&&"), Str("||")), Sym("_expr"),
	)))

	b.Rule("_type", Choice(Str("int"), Str("string")))
	return b
}
