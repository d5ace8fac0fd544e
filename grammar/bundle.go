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

package grammar

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the bundle encoding. The bundle is a protobuf message with
// the following shape:
//
//	message Tables {
//	  uint32 version = 1;
//	  string name = 2;
//	  repeated Symbol symbols = 3;
//	  uint32 token_count = 4;
//	  repeated string field_names = 5;
//	  repeated Rule rules = 6;
//	  uint32 start = 7;
//	  uint32 state_count = 8;
//	  uint32 initial_state = 9;
//	  repeated uint32 action_index = 10;
//	  repeated ActionSet action_sets = 11; // packed (arg << 2 | kind)
//	  repeated uint32 gotos = 12;          // state + 1, 0 for none
//	  Lex lex = 13;
//	}
//
//	message Symbol { string name = 1; uint32 kind = 2; uint32 flags = 3; }
//	message Rule {
//	  uint32 lhs = 1; repeated uint32 rhs = 2; repeated uint32 fields = 3;
//	  sint32 precedence = 4; uint32 assoc = 5;
//	}
//	message Lex {
//	  bytes classes = 1; uint32 class_count = 2;
//	  repeated uint32 next = 3;     // state + 1, 0 for none
//	  repeated AcceptSet accept = 4;
//	}
const (
	fVersion protowire.Number = iota + 1
	fName
	fSymbols
	fTokenCount
	fFieldNames
	fRules
	fStart
	fStateCount
	fInitialState
	fActionIndex
	fActionSets
	fGotos
	fLex
)

const (
	flagNamed = 1 << iota
	flagVisible
	flagExtra
	flagSync
	flagExternal
)

// Encode serializes l's tables into a bundle understood by [Decode].
func (l *Language) Encode() []byte {
	return encodeTables(&l.tables)
}

// Decode loads a bundle produced by [Language.Encode] and validates it, as if
// by [New].
func Decode(data []byte, opts ...Option) (*Language, error) {
	t, err := decodeTables(data)
	if err != nil {
		return nil, err
	}
	return New(t, opts...)
}

func encodeTables(t *Tables) []byte {
	var b []byte
	b = appendVarint(b, fVersion, uint64(t.Version))
	b = appendString(b, fName, t.Name)
	for _, sym := range t.Symbols {
		var m []byte
		m = appendString(m, 1, sym.Name)
		m = appendVarint(m, 2, uint64(sym.Kind))
		m = appendVarint(m, 3, symbolFlags(sym))
		b = appendBytes(b, fSymbols, m)
	}
	b = appendVarint(b, fTokenCount, uint64(t.TokenCount))
	for _, name := range t.FieldNames {
		b = appendBytes(b, fFieldNames, []byte(name))
	}
	for _, rule := range t.Rules {
		var m []byte
		m = appendVarint(m, 1, uint64(rule.LHS))
		m = appendPacked(m, 2, rule.RHS, func(s Symbol) uint64 { return uint64(s) })
		m = appendPacked(m, 3, rule.Fields, func(f FieldID) uint64 { return uint64(f) })
		m = appendVarint(m, 4, protowire.EncodeZigZag(int64(rule.Precedence)))
		m = appendVarint(m, 5, uint64(rule.Assoc))
		b = appendBytes(b, fRules, m)
	}
	b = appendVarint(b, fStart, uint64(t.Start))
	b = appendVarint(b, fStateCount, uint64(t.StateCount))
	b = appendVarint(b, fInitialState, uint64(t.InitialState))
	b = appendPacked(b, fActionIndex, t.ActionIndex, func(i uint32) uint64 { return uint64(i) })
	for _, set := range t.ActionSets {
		body := []byte{}
		for _, act := range set {
			arg := uint64(act.State)
			if act.Kind == Reduce {
				arg = uint64(act.Rule)
			}
			body = protowire.AppendVarint(body, arg<<2|uint64(act.Kind))
		}
		b = appendBytes(b, fActionSets, body)
	}
	b = appendPacked(b, fGotos, t.Gotos, func(s StateID) uint64 { return uint64(s+1) & math.MaxUint16 })

	var lex []byte
	lex = appendBytes(lex, 1, t.Lex.Classes[:])
	lex = appendVarint(lex, 2, uint64(t.Lex.ClassCount))
	lex = appendPacked(lex, 3, t.Lex.Next, func(n int32) uint64 { return uint64(n + 1) })
	for _, accept := range t.Lex.Accept {
		body := []byte{}
		for _, sym := range accept {
			body = protowire.AppendVarint(body, uint64(sym))
		}
		lex = appendBytes(lex, 4, body)
	}
	b = appendBytes(b, fLex, lex)
	return b
}

func symbolFlags(sym SymbolInfo) uint64 {
	var flags uint64
	for bit, set := range []bool{sym.Named, sym.Visible, sym.Extra, sym.Sync, sym.External} {
		if set {
			flags |= 1 << bit
		}
	}
	return flags
}

func decodeTables(data []byte) (*Tables, error) {
	// The version is checked before anything else, since the meaning of the
	// remaining fields depends on it.
	d := decoder{buf: data}
	version := uint64(0)
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		if num == fVersion && typ == protowire.VarintType {
			version = d.varint()
			continue
		}
		d.skip(num, typ)
	}
	if d.err != nil {
		return nil, d.err
	}
	if version < uint64(MinVersion) || version > uint64(Version) {
		return nil, incompatible("", "bundle version %d, want %d through %d", version, MinVersion, Version)
	}

	t := &Tables{Version: uint32(version)}
	d = decoder{buf: data}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch {
		case num == fVersion && typ == protowire.VarintType:
			d.varint()
		case num == fName && typ == protowire.BytesType:
			t.Name = string(d.bytes())
		case num == fSymbols && typ == protowire.BytesType:
			t.Symbols = append(t.Symbols, decodeSymbol(&d, d.bytes()))
		case num == fTokenCount && typ == protowire.VarintType:
			t.TokenCount = d.count()
		case num == fFieldNames && typ == protowire.BytesType:
			t.FieldNames = append(t.FieldNames, string(d.bytes()))
		case num == fRules && typ == protowire.BytesType:
			t.Rules = append(t.Rules, decodeRule(&d, d.bytes()))
		case num == fStart && typ == protowire.VarintType:
			t.Start = Symbol(d.u16())
		case num == fStateCount && typ == protowire.VarintType:
			t.StateCount = d.count()
		case num == fInitialState && typ == protowire.VarintType:
			t.InitialState = StateID(d.u16())
		case num == fActionIndex && typ == protowire.BytesType:
			d.packed(d.bytes(), func(v uint64) {
				t.ActionIndex = append(t.ActionIndex, uint32(min(v, math.MaxUint32)))
			})
		case num == fActionSets && typ == protowire.BytesType:
			var set []Action
			d.packed(d.bytes(), func(v uint64) {
				act := Action{Kind: ActionKind(v & 3)}
				arg := min(v>>2, math.MaxUint16)
				if act.Kind == Reduce {
					act.Rule = RuleID(arg)
				} else {
					act.State = StateID(arg)
				}
				set = append(set, act)
			})
			t.ActionSets = append(t.ActionSets, set)
		case num == fGotos && typ == protowire.BytesType:
			d.packed(d.bytes(), func(v uint64) {
				t.Gotos = append(t.Gotos, StateID(min(v, math.MaxUint16))-1)
			})
		case num == fLex && typ == protowire.BytesType:
			decodeLex(&d, d.bytes(), &t.Lex)
		default:
			d.skip(num, typ)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}

func decodeSymbol(outer *decoder, data []byte) SymbolInfo {
	var sym SymbolInfo
	d := decoder{buf: data}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch {
		case num == 1 && typ == protowire.BytesType:
			sym.Name = string(d.bytes())
		case num == 2 && typ == protowire.VarintType:
			sym.Kind = SymbolKind(min(d.varint(), math.MaxUint8))
		case num == 3 && typ == protowire.VarintType:
			flags := d.varint()
			sym.Named = flags&flagNamed != 0
			sym.Visible = flags&flagVisible != 0
			sym.Extra = flags&flagExtra != 0
			sym.Sync = flags&flagSync != 0
			sym.External = flags&flagExternal != 0
		default:
			d.skip(num, typ)
		}
	}
	outer.merge(&d)
	return sym
}

func decodeRule(outer *decoder, data []byte) Rule {
	var rule Rule
	d := decoder{buf: data}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch {
		case num == 1 && typ == protowire.VarintType:
			rule.LHS = Symbol(d.u16())
		case num == 2 && typ == protowire.BytesType:
			d.packed(d.bytes(), func(v uint64) { rule.RHS = append(rule.RHS, Symbol(min(v, math.MaxUint16))) })
		case num == 3 && typ == protowire.BytesType:
			d.packed(d.bytes(), func(v uint64) { rule.Fields = append(rule.Fields, FieldID(min(v, math.MaxUint16))) })
		case num == 4 && typ == protowire.VarintType:
			rule.Precedence = int(protowire.DecodeZigZag(d.varint()))
		case num == 5 && typ == protowire.VarintType:
			rule.Assoc = Assoc(min(d.varint(), math.MaxUint8))
		default:
			d.skip(num, typ)
		}
	}
	outer.merge(&d)
	return rule
}

func decodeLex(outer *decoder, data []byte, lex *Lex) {
	d := decoder{buf: data}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch {
		case num == 1 && typ == protowire.BytesType:
			classes := d.bytes()
			if len(classes) != len(lex.Classes) {
				d.err = corrupt("", "lexer class map has %d entries", len(classes))
				continue
			}
			copy(lex.Classes[:], classes)
		case num == 2 && typ == protowire.VarintType:
			lex.ClassCount = d.count()
		case num == 3 && typ == protowire.BytesType:
			d.packed(d.bytes(), func(v uint64) { lex.Next = append(lex.Next, int32(min(v, math.MaxInt32))-1) })
		case num == 4 && typ == protowire.BytesType:
			var accept []Symbol
			d.packed(d.bytes(), func(v uint64) { accept = append(accept, Symbol(min(v, math.MaxUint16))) })
			lex.Accept = append(lex.Accept, accept)
		default:
			d.skip(num, typ)
		}
	}
	outer.merge(&d)
}

// decoder is a cursor over protobuf wire data that latches the first error.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(n int) {
	if d.err == nil {
		d.err = corrupt("", "malformed bundle: %v", protowire.ParseError(n))
	}
	d.buf = nil
}

func (d *decoder) merge(inner *decoder) {
	if d.err == nil && inner.err != nil {
		d.err = inner.err
		d.buf = nil
	}
}

func (d *decoder) next() (protowire.Number, protowire.Type, bool) {
	if d.err != nil || len(d.buf) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		d.fail(n)
		return 0, 0, false
	}
	d.buf = d.buf[n:]
	return num, typ, true
}

func (d *decoder) varint() uint64 {
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.fail(n)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) count() int {
	return int(min(d.varint(), math.MaxInt32))
}

func (d *decoder) u16() uint16 {
	v := d.varint()
	if v > math.MaxUint16 {
		d.err = corrupt("", "value %d out of range", v)
	}
	return uint16(v)
}

func (d *decoder) bytes() []byte {
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.fail(n)
		return nil
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) packed(data []byte, yield func(uint64)) {
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			d.fail(n)
			return
		}
		yield(v)
		data = data[n:]
	}
}

func (d *decoder) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, d.buf)
	if n < 0 {
		d.fail(n)
		return
	}
	d.buf = d.buf[n:]
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendPacked[T any](b []byte, num protowire.Number, values []T, conv func(T) uint64) []byte {
	if len(values) == 0 {
		return b
	}
	var body []byte
	for _, v := range values {
		body = protowire.AppendVarint(body, conv(v))
	}
	return appendBytes(b, num, body)
}
