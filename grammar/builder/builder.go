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

// Package builder compiles grammars written in a small combinator language
// into [grammar.Tables].
//
// The combinators mirror the ones used by tree-sitter grammars: [Seq],
// [Choice], [Repeat], [Field], [Prec] and friends. The first rule passed to
// [Builder.Rule] is the start rule; rules whose name begins with an
// underscore are hidden from the syntax tree.
//
// Tables are LALR(1). Conflicts are resolved using precedence and
// associativity; any that remain are kept in the table, and the parser
// explores them in parallel.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bufbuild/polytope/grammar"
)

// maxProductions bounds how many productions a single rule may expand into.
const maxProductions = 1 << 12

// Builder accumulates a grammar definition.
//
// A zero Builder is not usable; use [New].
type Builder struct {
	name      string
	tokens    []definition
	rules     []definition
	extras    []string
	sync      []string
	externals []string

	conflicts []Conflict
}

type definition struct {
	name string
	expr Expr
}

// New returns a builder for a grammar with the given name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Token defines a named terminal. e must be a [Str] or a [Pat].
func (b *Builder) Token(name string, e Expr) *Builder {
	b.tokens = append(b.tokens, definition{name, e})
	return b
}

// External defines a named terminal recognized by a
// [grammar.ExternalScanner].
func (b *Builder) External(name string) *Builder {
	b.externals = append(b.externals, name)
	return b
}

// Rule defines a non-terminal.
func (b *Builder) Rule(name string, e Expr) *Builder {
	b.rules = append(b.rules, definition{name, e})
	return b
}

// Extra defines a hidden token, matched by pattern, that may appear between
// any two tokens. This is typically used for whitespace.
func (b *Builder) Extra(pattern string) *Builder {
	b.extras = append(b.extras, pattern)
	return b
}

// Sync marks literal tokens as synchronization points for error recovery.
func (b *Builder) Sync(literals ...string) *Builder {
	b.sync = append(b.sync, literals...)
	return b
}

// Conflicts returns the conflicts left in the tables by the most recent call
// to [Builder.Build].
func (b *Builder) Conflicts() []Conflict {
	return b.conflicts
}

// Language builds the grammar and validates the result.
func (b *Builder) Language(opts ...grammar.Option) (*grammar.Language, error) {
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	return grammar.New(t, opts...)
}

// Build compiles the grammar.
func (b *Builder) Build() (*grammar.Tables, error) {
	c := &compiler{
		b:        b,
		literals: make(map[string]grammar.Symbol),
		patterns: make(map[string]grammar.Symbol),
		names:    make(map[string]grammar.Symbol),
		fieldIDs: make(map[string]grammar.FieldID),
		aux:      make(map[string]int),
	}
	t, err := c.compile()
	if err != nil {
		return nil, fmt.Errorf("builder: %s: %w", b.name, err)
	}
	b.conflicts = c.conflicts
	return t, nil
}

// production is one alternative of an expanded rule.
type production struct {
	syms    []grammar.Symbol
	fields  []grammar.FieldID
	prec    int
	assoc   grammar.Assoc
	hasPrec bool
}

func (p production) concat(q production) production {
	out := production{
		syms:   append(append([]grammar.Symbol(nil), p.syms...), q.syms...),
		fields: append(append([]grammar.FieldID(nil), p.fields...), q.fields...),
	}
	switch {
	case p.hasPrec:
		out.prec, out.assoc, out.hasPrec = p.prec, p.assoc, true
	case q.hasPrec:
		out.prec, out.assoc, out.hasPrec = q.prec, q.assoc, true
	}
	return out
}

type compiler struct {
	b *Builder

	symbols  []grammar.SymbolInfo
	lexDefs  []lexDef
	literals map[string]grammar.Symbol
	patterns map[string]grammar.Symbol
	names    map[string]grammar.Symbol

	fields   []string
	fieldIDs map[string]grammar.FieldID

	rules     []grammar.Rule
	aux       map[string]int
	conflicts []Conflict
	errs      []error
}

func (c *compiler) errorf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *compiler) symbol(info grammar.SymbolInfo) grammar.Symbol {
	c.symbols = append(c.symbols, info)
	return grammar.Symbol(len(c.symbols) - 1)
}

func (c *compiler) compile() (*grammar.Tables, error) {
	b := c.b
	if len(b.rules) == 0 {
		return nil, errors.New("no rules")
	}
	c.symbol(grammar.SymbolInfo{Name: "end", Kind: grammar.Terminal})
	c.fields = []string{""}

	// Terminals, in lexical priority order: literals, named tokens, inline
	// patterns, extras. Externals are not lexed by the automaton.
	for _, def := range b.rules {
		walk(def.expr, func(e Expr) {
			if s, ok := e.(strExpr); ok {
				c.literal(s.value)
			}
		})
	}
	for _, def := range b.tokens {
		if _, dup := c.names[def.name]; dup {
			c.errorf("duplicate definition of %s", def.name)
			continue
		}
		info := grammar.SymbolInfo{
			Name:    def.name,
			Kind:    grammar.Terminal,
			Named:   true,
			Visible: !strings.HasPrefix(def.name, "_"),
		}
		var lex lexDef
		switch e := def.expr.(type) {
		case strExpr:
			lex = lexDef{name: def.name, pattern: e.value, literal: true}
		case patExpr:
			lex = lexDef{name: def.name, pattern: e.pattern}
		default:
			c.errorf("token %s must be a string or a pattern", def.name)
			continue
		}
		lex.sym = c.symbol(info)
		c.names[def.name] = lex.sym
		c.lexDefs = append(c.lexDefs, lex)
	}
	for _, def := range b.rules {
		n := 0
		walk(def.expr, func(e Expr) {
			p, ok := e.(patExpr)
			if !ok {
				return
			}
			if _, ok := c.patterns[p.pattern]; ok {
				return
			}
			n++
			name := fmt.Sprintf("%s_token%d", strings.TrimPrefix(def.name, "_"), n)
			sym := c.symbol(grammar.SymbolInfo{Name: "_" + name, Kind: grammar.Terminal})
			c.patterns[p.pattern] = sym
			c.lexDefs = append(c.lexDefs, lexDef{sym: sym, name: name, pattern: p.pattern})
		})
	}
	for i, pattern := range b.extras {
		name := fmt.Sprintf("_extra%d", i+1)
		sym := c.symbol(grammar.SymbolInfo{Name: name, Kind: grammar.Terminal, Extra: true})
		c.lexDefs = append(c.lexDefs, lexDef{sym: sym, name: name, pattern: pattern})
	}
	for _, name := range b.externals {
		if _, dup := c.names[name]; dup {
			c.errorf("duplicate definition of %s", name)
			continue
		}
		c.names[name] = c.symbol(grammar.SymbolInfo{
			Name:     name,
			Kind:     grammar.Terminal,
			Named:    true,
			Visible:  !strings.HasPrefix(name, "_"),
			External: true,
		})
	}
	for _, lit := range b.sync {
		sym, ok := c.literals[lit]
		if !ok {
			c.errorf("sync token %q is not used by any rule", lit)
			continue
		}
		c.symbols[sym].Sync = true
	}
	tokens := len(c.symbols)

	// Non-terminals. Auxiliary rules are appended as they are discovered.
	for _, def := range b.rules {
		if _, dup := c.names[def.name]; dup {
			c.errorf("duplicate definition of %s", def.name)
			continue
		}
		c.names[def.name] = c.symbol(grammar.SymbolInfo{
			Name:    def.name,
			Kind:    grammar.NonTerminal,
			Named:   true,
			Visible: !strings.HasPrefix(def.name, "_"),
		})
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	for _, def := range b.rules {
		lhs := c.names[def.name]
		for _, p := range c.expand(def.name, def.expr, 0) {
			c.addRule(lhs, p)
		}
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	t := &grammar.Tables{
		Version:    grammar.Version,
		Name:       b.name,
		TokenCount: tokens,
		FieldNames: c.fields,
		Rules:      c.rules,
		Start:      c.names[b.rules[0].name],
	}

	g := newLALR(tokens, len(c.symbols), c.rules, t.Start)
	if err := g.build(); err != nil {
		return nil, err
	}
	c.conflicts = g.tables(t)

	lex, err := buildLex(c.lexDefs)
	if err != nil {
		return nil, err
	}
	t.Lex = lex
	t.Symbols = c.symbols
	return t, nil
}

func (c *compiler) literal(value string) grammar.Symbol {
	if sym, ok := c.literals[value]; ok {
		return sym
	}
	if value == "" {
		c.errorf("empty string literal")
	}
	sym := c.symbol(grammar.SymbolInfo{Name: value, Kind: grammar.Terminal, Visible: true})
	c.literals[value] = sym
	c.lexDefs = append(c.lexDefs, lexDef{sym: sym, name: fmt.Sprintf("%q", value), pattern: value, literal: true})
	return sym
}

func (c *compiler) field(name string) grammar.FieldID {
	if id, ok := c.fieldIDs[name]; ok {
		return id
	}
	id := grammar.FieldID(len(c.fields))
	c.fields = append(c.fields, name)
	c.fieldIDs[name] = id
	return id
}

func (c *compiler) addRule(lhs grammar.Symbol, p production) {
	rule := grammar.Rule{
		LHS:        lhs,
		RHS:        p.syms,
		Precedence: p.prec,
		Assoc:      p.assoc,
	}
	for _, f := range p.fields {
		if f != 0 {
			rule.Fields = p.fields
			break
		}
	}
	c.rules = append(c.rules, rule)
}

func (c *compiler) expand(rule string, e Expr, field grammar.FieldID) []production {
	one := func(sym grammar.Symbol) []production {
		return []production{{syms: []grammar.Symbol{sym}, fields: []grammar.FieldID{field}}}
	}

	switch e := e.(type) {
	case symExpr:
		sym, ok := c.names[e.name]
		if !ok {
			c.errorf("rule %s: undefined symbol %s", rule, e.name)
			return nil
		}
		return one(sym)
	case strExpr:
		return one(c.literals[e.value])
	case patExpr:
		return one(c.patterns[e.pattern])
	case blankExpr:
		return []production{{}}

	case seqExpr:
		acc := []production{{}}
		for _, item := range e.items {
			parts := c.expand(rule, item, field)
			next := make([]production, 0, len(acc)*len(parts))
			for _, a := range acc {
				for _, p := range parts {
					next = append(next, a.concat(p))
				}
			}
			if len(next) > maxProductions {
				c.errorf("rule %s: expands into too many productions", rule)
				return nil
			}
			acc = next
		}
		return acc

	case choiceExpr:
		var out []production
		for _, alt := range e.alts {
			out = append(out, c.expand(rule, alt, field)...)
		}
		return out

	case repeatExpr:
		base := strings.TrimPrefix(rule, "_")
		c.aux[base]++
		aux := c.symbol(grammar.SymbolInfo{
			Name: fmt.Sprintf("_%s_repeat%d", base, c.aux[base]),
			Kind: grammar.Auxiliary,
		})
		self := production{syms: []grammar.Symbol{aux}, fields: []grammar.FieldID{0}}
		for _, p := range c.expand(rule, e.body, 0) {
			c.addRule(aux, self.concat(p))
			c.addRule(aux, p)
		}
		out := one(aux)
		if !e.min1 {
			out = append(out, production{})
		}
		return out

	case fieldExpr:
		return c.expand(rule, e.body, c.field(e.name))

	case precExpr:
		parts := c.expand(rule, e.body, field)
		for i := range parts {
			if !parts[i].hasPrec {
				parts[i].prec, parts[i].assoc, parts[i].hasPrec = e.level, e.assoc, true
			}
		}
		return parts

	default:
		c.errorf("rule %s: unknown expression %T", rule, e)
		return nil
	}
}

func walk(e Expr, yield func(Expr)) {
	yield(e)
	switch e := e.(type) {
	case seqExpr:
		for _, item := range e.items {
			walk(item, yield)
		}
	case choiceExpr:
		for _, alt := range e.alts {
			walk(alt, yield)
		}
	case repeatExpr:
		walk(e.body, yield)
	case fieldExpr:
		walk(e.body, yield)
	case precExpr:
		walk(e.body, yield)
	}
}
