package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSchema(t *testing.T) {
	assert := assert.New(t)

	{
		s, err := ParseSchema("a: int, b: string")
		assert.NoError(err)
		assert.Equal(2, s.Size())
		assert.Equal("a", s.Fields[0].Name)
		assert.Equal(KindInt, s.Fields[0].Type.Kind)
		assert.Equal(KindString, s.Fields[1].Type.Kind)
		assert.True(s.Fields[0].Nullable)
	}

	{
		s, err := ParseSchema("a: bigint not null, b: double")
		assert.NoError(err)
		assert.False(s.Fields[0].Nullable)
		assert.True(s.Fields[1].Nullable)
	}

	{
		s, err := ParseSchema("x: struct<a: int, b: string>")
		assert.NoError(err)
		assert.Equal(KindStruct, s.Fields[0].Type.Kind)
		assert.Equal(2, len(s.Fields[0].Type.Fields))
		assert.Equal("b", s.Fields[0].Type.Fields[1].Name)
	}

	{
		s, err := ParseSchema("xs: array<int>, m: map<string, double>")
		assert.NoError(err)
		assert.Equal(KindArray, s.Fields[0].Type.Kind)
		assert.Equal(KindInt, s.Fields[0].Type.Elem.Kind)
		assert.Equal(KindMap, s.Fields[1].Type.Kind)
		assert.Equal(KindString, s.Fields[1].Type.Key.Kind)
		assert.Equal(KindDouble, s.Fields[1].Type.Elem.Kind)
	}

	{
		// nesting composes
		s, err := ParseSchema("x: array<struct<a: int, b: array<string>>>")
		assert.NoError(err)
		elem := s.Fields[0].Type.Elem
		assert.Equal(KindStruct, elem.Kind)
		assert.Equal(KindArray, elem.Fields[1].Type.Kind)
	}

	{
		s, err := ParseSchema("d: decimal(10, 2)")
		assert.NoError(err)
		assert.Equal(KindDecimal, s.Fields[0].Type.Kind)
	}

	{
		// a bare struct type is still a row shape
		s, err := ParseSchema("struct<a: int>")
		assert.NoError(err)
		assert.Equal(1, s.Size())
		assert.Equal("a", s.Fields[0].Name)
	}

	{
		// a bare scalar type is not
		_, err := ParseSchema("bigint")
		assert.True(errors.Is(err, ErrNotRowSchema))
	}

	{
		_, err := ParseSchema("map<string, int>")
		assert.True(errors.Is(err, ErrNotRowSchema))
	}

	{
		_, err := ParseSchema("")
		assert.Error(err)
	}

	{
		_, err := ParseSchema("a: wat")
		assert.Error(err)
	}

	{
		_, err := ParseSchema("a int")
		assert.Error(err)
	}

	{
		_, err := ParseSchema("a: array<int")
		assert.Error(err)
	}

	{
		_, err := ParseSchema("a: int not void")
		assert.Error(err)
	}
}

func TestParseType(t *testing.T) {
	assert := assert.New(t)

	{
		ty, err := ParseType("array<bigint>")
		assert.NoError(err)
		assert.Equal(KindArray, ty.Kind)
		assert.Equal(KindBigint, ty.Elem.Kind)
	}

	{
		// aliases fold onto the same kind
		for _, src := range []string{"long", "bigint"} {
			ty, err := ParseType(src)
			assert.NoError(err)
			assert.Equal(KindBigint, ty.Kind)
		}
		for _, src := range []string{"string", "varchar", "text"} {
			ty, err := ParseType(src)
			assert.NoError(err)
			assert.Equal(KindString, ty.Kind)
		}
	}

	{
		_, err := ParseType("int, string")
		assert.Error(err)
	}
}

func TestSchemaEqual(t *testing.T) {
	assert := assert.New(t)

	mk := func(src string) *Schema {
		s, err := ParseSchema(src)
		assert.NoError(err)
		return s
	}

	{
		a := mk("a: int, b: string")
		b := mk("a: int, b: string")
		assert.True(a.Equal(b, false))
	}

	{
		a := mk("a: int")
		b := mk("a: int not null")
		assert.False(a.Equal(b, false))
		assert.True(a.Equal(b, true))
	}

	{
		a := mk("a: int")
		b := mk("b: int")
		assert.False(a.Equal(b, true))
	}

	{
		a := mk("x: struct<a: int, b: string>")
		b := mk("x: struct<a: int, b: double>")
		assert.False(a.Equal(b, true))
	}

	{
		a := mk("a: int, b: int")
		b := mk("a: int")
		assert.False(a.Equal(b, true))
	}
}
