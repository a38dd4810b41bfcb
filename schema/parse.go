package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Schema string parser. The accepted format is the one the original system
// uses for declaring table function output shapes, example as:
//
//   "a: int, b: int"
//   "x: struct<a:int,b:int>"
//   "xs: array<int>, m: map<int,string>"
//   "a: int not null"
//
// A bare type without a field name ("int", "map<string,int>") is a valid
// *type* but not a valid *schema*; ParseSchema rejects it so the caller can
// surface a return-type error instead of a syntax error.

type typeParser struct {
	source string
	cursor int
}

func (self *typeParser) err(msg string) error {
	return fmt.Errorf("schema %q around offset %d: %s", self.source, self.cursor, msg)
}

func (self *typeParser) skipWS() {
	for self.cursor < len(self.source) {
		r, sz := utf8.DecodeRuneInString(self.source[self.cursor:])
		switch r {
		case ' ', '\r', '\t', '\n', '\b', '\v':
			self.cursor += sz
		default:
			return
		}
	}
}

func (self *typeParser) peek() rune {
	if self.cursor >= len(self.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(self.source[self.cursor:])
	return r
}

func (self *typeParser) eat(r rune) bool {
	self.skipWS()
	if self.peek() == r {
		self.cursor += utf8.RuneLen(r)
		return true
	}
	return false
}

func (self *typeParser) ident() string {
	self.skipWS()
	start := self.cursor
	for self.cursor < len(self.source) {
		r, sz := utf8.DecodeRuneInString(self.source[self.cursor:])
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			self.cursor += sz
		} else {
			break
		}
	}
	return strings.ToLower(self.source[start:self.cursor])
}

func scalarKind(name string) (int, bool) {
	switch name {
	case "boolean", "bool":
		return KindBool, true
	case "int", "integer":
		return KindInt, true
	case "bigint", "long":
		return KindBigint, true
	case "float":
		return KindFloat, true
	case "double":
		return KindDouble, true
	case "decimal":
		return KindDecimal, true
	case "string", "varchar", "text":
		return KindString, true
	case "date":
		return KindDate, true
	case "timestamp":
		return KindTimestamp, true
	default:
		return 0, false
	}
}

func (self *typeParser) parseType() (*Type, error) {
	name := self.ident()
	if name == "" {
		return nil, self.err("expect a type name")
	}

	switch name {
	case "array":
		if !self.eat('<') {
			return nil, self.err("expect '<' after array")
		}
		elem, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if !self.eat('>') {
			return nil, self.err("array type is not closed by '>'")
		}
		return &Type{Kind: KindArray, Elem: elem}, nil

	case "map":
		if !self.eat('<') {
			return nil, self.err("expect '<' after map")
		}
		key, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if !self.eat(',') {
			return nil, self.err("expect ',' between map key and value types")
		}
		val, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if !self.eat('>') {
			return nil, self.err("map type is not closed by '>'")
		}
		return &Type{Kind: KindMap, Key: key, Elem: val}, nil

	case "struct":
		if !self.eat('<') {
			return nil, self.err("expect '<' after struct")
		}
		fields, err := self.parseFieldList('>')
		if err != nil {
			return nil, err
		}
		if !self.eat('>') {
			return nil, self.err("struct type is not closed by '>'")
		}
		return &Type{Kind: KindStruct, Fields: fields}, nil

	default:
		if k, ok := scalarKind(name); ok {
			// decimal may carry a (precision, scale) suffix; accepted, not kept
			if k == KindDecimal && self.eat('(') {
				for self.cursor < len(self.source) && self.peek() != ')' {
					self.cursor++
				}
				if !self.eat(')') {
					return nil, self.err("decimal precision is not closed by ')'")
				}
			}
			return Scalar(k), nil
		}
		return nil, self.err(fmt.Sprintf("unknown type name: %s", name))
	}
}

func (self *typeParser) parseField() (Field, error) {
	name := self.ident()
	if name == "" {
		return Field{}, self.err("expect a field name")
	}
	if !self.eat(':') {
		return Field{}, self.err(fmt.Sprintf("expect ':' after field name %q", name))
	}
	ty, err := self.parseType()
	if err != nil {
		return Field{}, err
	}

	nullable := true
	save := self.cursor
	if self.ident() == "not" {
		if self.ident() == "null" {
			nullable = false
		} else {
			return Field{}, self.err("expect 'null' after 'not'")
		}
	} else {
		self.cursor = save
	}

	return Field{
		Name:     name,
		Type:     ty,
		Nullable: nullable,
	}, nil
}

func (self *typeParser) parseFieldList(stop rune) ([]Field, error) {
	out := []Field{}
	for {
		f, err := self.parseField()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		if !self.eat(',') {
			break
		}
	}
	self.skipWS()
	if stop != 0 && self.peek() != stop {
		return nil, self.err("dangling input after field list")
	}
	return out, nil
}

// looksLikeBareType reports whether the input is a plain type with no field
// name, ie the whole string parses as a type with nothing left over.
func looksLikeBareType(source string) (*Type, bool) {
	p := &typeParser{source: source}
	ty, err := p.parseType()
	if err != nil {
		return nil, false
	}
	p.skipWS()
	if p.cursor != len(p.source) {
		return nil, false
	}
	return ty, true
}

// ParseType parses a single type string, example "array<int>".
func ParseType(source string) (*Type, error) {
	p := &typeParser{source: source}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.cursor != len(p.source) {
		return nil, p.err("dangling input after type")
	}
	return ty, nil
}

// ParseSchema parses a field list into a row schema. A bare type is
// reported through ErrNotRowSchema so registration can tell "you gave me
// *int* where a row shape is required" apart from a syntax error.
func ParseSchema(source string) (*Schema, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("schema string is empty")
	}
	if ty, ok := looksLikeBareType(source); ok {
		if ty.Kind == KindStruct {
			return &Schema{Fields: ty.Fields}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotRowSchema, ty.String())
	}

	p := &typeParser{source: source}
	fields, err := p.parseFieldList(0)
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.cursor != len(p.source) {
		return nil, p.err("dangling input after schema")
	}
	return &Schema{Fields: fields}, nil
}
