package schema

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoerceScalar(t *testing.T) {
	assert := assert.New(t)

	{
		v, err := Coerce(3, Scalar(KindBigint))
		assert.NoError(err)
		assert.Equal(int64(3), v)
	}

	{
		// every integer width lands on int64
		for _, in := range []interface{}{int8(3), int16(3), int32(3), uint(3), uint64(3)} {
			v, err := Coerce(in, Scalar(KindInt))
			assert.NoError(err)
			assert.Equal(int64(3), v)
		}
	}

	{
		// integers widen into doubles
		v, err := Coerce(3, Scalar(KindDouble))
		assert.NoError(err)
		assert.Equal(3.0, v)
	}

	{
		v, err := Coerce(float32(1.5), Scalar(KindFloat))
		assert.NoError(err)
		assert.Equal(1.5, v)
	}

	{
		// nil is accepted everywhere
		v, err := Coerce(nil, Scalar(KindString))
		assert.NoError(err)
		assert.Nil(v)
	}

	{
		_, err := Coerce("abc", Scalar(KindBigint))
		assert.Error(err)
	}

	{
		v, err := Coerce("2024-01-02", Scalar(KindDate))
		assert.NoError(err)
		assert.Equal(2024, v.(time.Time).Year())
	}

	{
		_, err := Coerce("not a date", Scalar(KindDate))
		assert.Error(err)
	}
}

func TestCoerceComposite(t *testing.T) {
	assert := assert.New(t)

	{
		ty, err := ParseType("array<bigint>")
		assert.NoError(err)
		v, err := Coerce([]int{1, 2, 3}, ty)
		assert.NoError(err)
		assert.Equal([]Value{int64(1), int64(2), int64(3)}, v)
	}

	{
		ty, err := ParseType("map<string, bigint>")
		assert.NoError(err)
		v, err := Coerce(map[string]int{"b": 2, "a": 1}, ty)
		assert.NoError(err)
		m := v.(*Map)
		assert.Equal(2, m.Len())
		// keys come out sorted so the rendering is deterministic
		assert.Equal("a", m.Keys[0])
		got, ok := m.Get("b")
		assert.True(ok)
		assert.Equal(int64(2), got)
	}

	{
		ty, err := ParseType("struct<a: bigint, b: string>")
		assert.NoError(err)

		v, err := Coerce([]interface{}{1, "x"}, ty)
		assert.NoError(err)
		assert.Equal(Row{int64(1), "x"}, v)

		// named form, a missing field becomes NULL
		v, err = Coerce(map[string]interface{}{"b": "y"}, ty)
		assert.NoError(err)
		assert.Equal(Row{nil, "y"}, v)

		_, err = Coerce([]interface{}{1}, ty)
		assert.True(errors.Is(err, ErrRowWidth))
	}
}

func TestCoerceRow(t *testing.T) {
	assert := assert.New(t)

	s, err := ParseSchema("id: bigint, score: double, name: string")
	assert.NoError(err)

	{
		row, err := s.CoerceRow([]interface{}{1, 2, "amy"})
		assert.NoError(err)
		assert.Equal(Row{int64(1), 2.0, "amy"}, row)
	}

	{
		_, err := s.CoerceRow([]interface{}{1, 2.0})
		assert.True(errors.Is(err, ErrRowWidth))
	}

	{
		_, err := s.CoerceRow([]interface{}{"one", 2.0, "amy"})
		assert.Error(err)
	}
}

func TestFormatValue(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("NULL", FormatValue(nil))
	assert.Equal("true", FormatValue(true))
	assert.Equal("42", FormatValue(int64(42)))
	assert.Equal("1.5", FormatValue(1.5))
	assert.Equal("'abc'", FormatValue("abc"))
	assert.Equal("NaN", FormatValue(math.NaN()))
	assert.Equal("Infinity", FormatValue(math.Inf(1)))
	assert.Equal("[1, 'x']", FormatValue([]Value{int64(1), "x"}))
	assert.Equal("(1, NULL)", FormatValue(Row{int64(1), nil}))

	m := &Map{}
	m.Put("k", int64(1))
	assert.Equal("{'k': 1}", FormatValue(m))
}

func TestFormatRow(t *testing.T) {
	assert := assert.New(t)

	s, err := ParseSchema("id: bigint, name: string")
	assert.NoError(err)
	assert.Equal(
		"Row(id=1, name='amy')",
		s.FormatRow(Row{int64(1), "amy"}),
	)
}

func TestSortKey(t *testing.T) {
	assert := assert.New(t)

	a := SortKey(Row{int64(1), "x"})
	b := SortKey(Row{int64(1), "y"})
	assert.True(a < b)
	assert.NotEqual(SortKey(Row{int64(1)}), SortKey(Row{"1"}))
}
