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

package builder

import "github.com/bufbuild/polytope/grammar"

// Expr is a grammar expression: the right-hand side of a rule.
type Expr interface {
	isExpr()
}

type (
	symExpr    struct{ name string }
	strExpr    struct{ value string }
	patExpr    struct{ pattern string }
	blankExpr  struct{}
	seqExpr    struct{ items []Expr }
	choiceExpr struct{ alts []Expr }
	repeatExpr struct {
		body Expr
		min1 bool
	}
	fieldExpr struct {
		name string
		body Expr
	}
	precExpr struct {
		level int
		assoc grammar.Assoc
		body  Expr
	}
)

func (symExpr) isExpr()    {}
func (strExpr) isExpr()    {}
func (patExpr) isExpr()    {}
func (blankExpr) isExpr()  {}
func (seqExpr) isExpr()    {}
func (choiceExpr) isExpr() {}
func (repeatExpr) isExpr() {}
func (fieldExpr) isExpr()  {}
func (precExpr) isExpr()   {}

// Sym refers to a rule or named token.
func Sym(name string) Expr { return symExpr{name} }

// Str is an anonymous literal token.
func Str(value string) Expr { return strExpr{value} }

// Pat is a token matching a regular expression, in RE2 syntax.
//
// Used inside a rule, it becomes a hidden anonymous token.
func Pat(pattern string) Expr { return patExpr{pattern} }

// Blank matches nothing.
func Blank() Expr { return blankExpr{} }

// Seq matches each of items in order.
func Seq(items ...Expr) Expr { return seqExpr{items} }

// Choice matches any one of alts.
func Choice(alts ...Expr) Expr { return choiceExpr{alts} }

// Optional matches e or nothing.
func Optional(e Expr) Expr { return choiceExpr{[]Expr{e, blankExpr{}}} }

// Repeat matches zero or more e.
func Repeat(e Expr) Expr { return repeatExpr{body: e} }

// Repeat1 matches one or more e.
func Repeat1(e Expr) Expr { return repeatExpr{body: e, min1: true} }

// Field names the nodes matched by e within their parent.
func Field(name string, e Expr) Expr { return fieldExpr{name, e} }

// Prec assigns a precedence level to the productions of e.
func Prec(level int, e Expr) Expr { return precExpr{level, grammar.AssocNone, e} }

// PrecLeft assigns a precedence level and left associativity.
func PrecLeft(level int, e Expr) Expr { return precExpr{level, grammar.AssocLeft, e} }

// PrecRight assigns a precedence level and right associativity.
func PrecRight(level int, e Expr) Expr { return precExpr{level, grammar.AssocRight, e} }

// Sep matches zero or more e separated by sep.
func Sep(e, sep Expr) Expr { return Optional(Sep1(e, sep)) }

// Sep1 matches one or more e separated by sep.
func Sep1(e, sep Expr) Expr { return Seq(e, Repeat(Seq(sep, e))) }
