package schema

import (
	"fmt"
	"strings"
)

const (
	KindBool = iota
	KindInt
	KindBigint
	KindFloat
	KindDouble
	KindDecimal
	KindString
	KindDate
	KindTimestamp
	KindArray
	KindMap
	KindStruct
)

// Type of a single column. Array/Map/Struct are the only composite kinds,
// everything else is a scalar leaf.
type Type struct {
	Kind   int
	Elem   *Type   // array element type, or map value type
	Key    *Type   // map key type
	Fields []Field // struct member list
}

type Field struct {
	Name     string
	Type     *Type
	Nullable bool
}

// Schema is the row shape of a table source or a table function output. It
// is always struct like, ie a named field list.
type Schema struct {
	Fields []Field
}

func kindName(k int) string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt:
		return "int"
	case KindBigint:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

func (self *Type) IsNumeric() bool {
	switch self.Kind {
	case KindInt, KindBigint, KindFloat, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

func (self *Type) IsFractional() bool {
	switch self.Kind {
	case KindFloat, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

func (self *Type) String() string {
	switch self.Kind {
	case KindArray:
		return fmt.Sprintf("array<%s>", self.Elem.String())

	case KindMap:
		return fmt.Sprintf("map<%s,%s>", self.Key.String(), self.Elem.String())

	case KindStruct:
		buf := strings.Builder{}
		buf.WriteString("struct<")
		for idx, f := range self.Fields {
			if idx > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(f.Name)
			buf.WriteString(":")
			buf.WriteString(f.Type.String())
		}
		buf.WriteString(">")
		return buf.String()

	default:
		return kindName(self.Kind)
	}
}

// Equal compares two types structurally. When ignoreNullable is set the
// nullability flag of nested struct fields is not considered.
func (self *Type) Equal(other *Type, ignoreNullable bool) bool {
	if self.Kind != other.Kind {
		return false
	}
	switch self.Kind {
	case KindArray:
		return self.Elem.Equal(other.Elem, ignoreNullable)

	case KindMap:
		return self.Key.Equal(other.Key, ignoreNullable) &&
			self.Elem.Equal(other.Elem, ignoreNullable)

	case KindStruct:
		if len(self.Fields) != len(other.Fields) {
			return false
		}
		for idx, f := range self.Fields {
			if !f.Equal(&other.Fields[idx], ignoreNullable) {
				return false
			}
		}
		return true

	default:
		return true
	}
}

func (self *Field) Equal(other *Field, ignoreNullable bool) bool {
	if self.Name != other.Name {
		return false
	}
	if !ignoreNullable && self.Nullable != other.Nullable {
		return false
	}
	return self.Type.Equal(other.Type, ignoreNullable)
}

func (self *Schema) Size() int { return len(self.Fields) }

// Index returns the position of the named field, or -1.
func (self *Schema) Index(name string) int {
	for idx, f := range self.Fields {
		if f.Name == name {
			return idx
		}
	}
	return -1
}

func (self *Schema) String() string {
	buf := strings.Builder{}
	for idx, f := range self.Fields {
		if idx > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Type.String())
		if !f.Nullable {
			buf.WriteString(" not null")
		}
	}
	return buf.String()
}

func (self *Schema) Equal(other *Schema, ignoreNullable bool) bool {
	if len(self.Fields) != len(other.Fields) {
		return false
	}
	for idx, f := range self.Fields {
		if !f.Equal(&other.Fields[idx], ignoreNullable) {
			return false
		}
	}
	return true
}

// AsStruct views the schema as a struct type, used when a whole row is
// passed around as a single value, ie TABLE(...) arguments.
func (self *Schema) AsStruct() *Type {
	return &Type{
		Kind:   KindStruct,
		Fields: self.Fields,
	}
}

// Names returns the field name list, mostly for rendering.
func (self *Schema) Names() []string {
	out := make([]string, 0, len(self.Fields))
	for _, f := range self.Fields {
		out = append(out, f.Name)
	}
	return out
}

func Scalar(kind int) *Type { return &Type{Kind: kind} }
