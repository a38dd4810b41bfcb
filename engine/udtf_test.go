package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tabsql/tabsql/schema"
)

// square(n) emits (i, i*i) for i in [0, n)
type squareHandler struct{}

func (self *squareHandler) Eval(out Collector, args ...schema.Value) error {
	n := args[0].(int64)
	for i := int64(0); i < n; i++ {
		if err := out.Emit(i, i*i); err != nil {
			return err
		}
	}
	return nil
}

// rowCount counts the rows of its TABLE argument and emits the total from
// terminate, the canonical accumulate-then-flush shape
type rowCount struct {
	cnt int64
}

func (self *rowCount) Eval(out Collector, args ...schema.Value) error {
	self.cnt++
	return nil
}

func (self *rowCount) Terminate(out Collector) error {
	return out.Emit(self.cnt)
}

func newTestSession(t *testing.T) *Session {
	s := NewSession()
	if err := s.Register(&TableFunc{
		Name:   "square",
		Args:   1,
		Schema: "i: bigint, squared: bigint",
		New:    func() Handler { return &squareHandler{} },
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(&TableFunc{
		Name:   "row_count",
		Args:   1,
		Schema: "cnt: bigint",
		New:    func() Handler { return &rowCount{} },
	}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)
	s := NewSession()

	{
		err := s.Register(&TableFunc{
			Name:   "ok",
			Schema: "a: bigint",
			New:    func() Handler { return &squareHandler{} },
		})
		assert.NoError(err)
	}

	{
		// re-registration replaces
		err := s.Register(&TableFunc{
			Name:   "ok",
			Schema: "b: string",
			New:    func() Handler { return &squareHandler{} },
		})
		assert.NoError(err)
		def, err := s.LookupFunction("ok")
		assert.NoError(err)
		assert.Equal("b", def.Schema.Fields[0].Name)
	}

	{
		err := s.Register(&TableFunc{
			Name:   "nohandler",
			Schema: "a: bigint",
		})
		assert.True(IsCode(err, CodeInvalidHandler))
	}

	{
		err := s.Register(&TableFunc{
			Schema: "a: bigint",
			New:    func() Handler { return &squareHandler{} },
		})
		assert.True(IsCode(err, CodeInvalidHandler))
	}

	{
		// a bare scalar type is not a row schema
		err := s.Register(&TableFunc{
			Name:   "scalar",
			Schema: "bigint",
			New:    func() Handler { return &squareHandler{} },
		})
		assert.True(IsCode(err, CodeReturnTypeMismatch))
	}

	{
		err := s.Register(&TableFunc{
			Name:   "garbage",
			Schema: "a: wat",
			New:    func() Handler { return &squareHandler{} },
		})
		assert.True(IsCode(err, CodeReturnTypeMismatch))
	}
}

func TestSQLBasic(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	{
		df, err := s.SQL("select * from square(3)")
		assert.NoError(err)
		assert.Equal(3, df.Count())
		assert.Equal(schema.Row{int64(2), int64(4)}, df.Collect()[2])
		assert.Equal("i", df.Schema().Fields[0].Name)
	}

	{
		df, err := s.SQL("select squared from square(4) where i > 1 order by squared desc")
		assert.NoError(err)
		assert.Equal(2, df.Count())
		assert.Equal(schema.Row{int64(9)}, df.Collect()[0])
	}
}

func TestTerminate(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	{
		df, err := s.SQL("select cnt from row_count(table(select * from square(5)))")
		assert.NoError(err)
		assert.Equal(1, df.Count())
		assert.Equal(schema.Row{int64(5)}, df.Collect()[0])
	}

	{
		// a fresh handler per evaluation, no state leak across queries
		df, err := s.SQL("select cnt from row_count(table(select * from square(5)))")
		assert.NoError(err)
		assert.Equal(schema.Row{int64(5)}, df.Collect()[0])
	}
}

// echoRow forwards the TABLE argument row it receives, proving eval gets
// called once per input row with the row in the argument position
type echoRow struct{}

func (self *echoRow) Eval(out Collector, args ...schema.Value) error {
	row := args[0].(schema.Row)
	return out.Emit(row...)
}

func TestTableArgument(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	assert.NoError(s.Register(&TableFunc{
		Name:   "echo",
		Args:   1,
		Schema: "i: bigint, squared: bigint",
		New:    func() Handler { return &echoRow{} },
	}))

	{
		df, err := s.SQL("select * from echo(table(select * from square(3)))")
		assert.NoError(err)
		assert.Equal(3, df.Count())
		assert.Equal(schema.Row{int64(1), int64(1)}, df.Collect()[1])
	}

	{
		_, err := s.SQL("select * from echo(table(v), table(v))")
		// second table arg is gated before the view lookup can even fail
		assert.Error(err)
	}
}

func TestErrorCodes(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	{
		_, err := s.SQL("select * from nosuch()")
		assert.True(IsCode(err, CodeFunctionNotFound))
	}

	{
		_, err := s.SQL("select * from nosuchview")
		assert.True(IsCode(err, CodeTableOrViewNotFound))
	}

	{
		_, err := s.SQL("select * from square(1, 2)")
		assert.True(IsCode(err, CodeWrongNumArgs))
	}

	{
		_, err := s.SQL("select * from square(2) as a, square(2) as b where a.i == b.i and nosuchcol > 1")
		assert.Error(err)
	}

	{
		assert.NoError(s.Register(&TableFunc{
			Name:   "toowide",
			Args:   0,
			Schema: "a: bigint",
			New: func() Handler {
				return HandlerFunc(func(out Collector, args ...schema.Value) error {
					return out.Emit(int64(1), int64(2))
				})
			},
		}))
		_, err := s.SQL("select * from toowide()")
		assert.True(IsCode(err, CodeSchemaMismatch))
	}

	{
		assert.NoError(s.Register(&TableFunc{
			Name:   "boom",
			Args:   0,
			Schema: "a: bigint",
			New: func() Handler {
				return HandlerFunc(func(out Collector, args ...schema.Value) error {
					panic("kaboom")
				})
			},
		}))
		_, err := s.SQL("select * from boom()")
		assert.True(IsCode(err, CodeUserCodeError))
	}

	{
		assert.NoError(s.Register(&TableFunc{
			Name:   "fails",
			Args:   0,
			Schema: "a: bigint",
			New: func() Handler {
				return HandlerFunc(func(out Collector, args ...schema.Value) error {
					return errors.New("handler gave up")
				})
			},
		}))
		_, err := s.SQL("select * from fails()")
		assert.True(IsCode(err, CodeUserCodeError))
	}

	{
		_, err := s.SQL("select * from square(2) as a, square(a.i) as b")
		assert.True(IsCode(err, CodeCorrelatedReference))
	}
}

func TestMultipleTableArguments(t *testing.T) {
	assert := assert.New(t)

	pair := &TableFunc{
		Name:   "pair",
		Args:   2,
		Schema: "l: bigint, r: bigint",
		New: func() Handler {
			return HandlerFunc(func(out Collector, args ...schema.Value) error {
				l := args[0].(schema.Row)
				r := args[1].(schema.Row)
				return out.Emit(l[0], r[0])
			})
		},
	}

	{
		s := newTestSession(t)
		assert.NoError(s.Register(pair))
		_, err := s.SQL(
			"select * from pair(table(select id from range(2)), table(select id from range(2)))",
		)
		assert.True(IsCode(err, CodeTooManyTableArguments))
	}

	{
		s := NewSessionWith(Config{AllowMultipleTableArguments: true})
		assert.NoError(s.Register(pair))
		df, err := s.SQL(
			"select * from pair(table(select id from range(2)), table(select id from range(2)))",
		)
		assert.NoError(err)
		// cross product of the two relations
		assert.Equal(4, df.Count())
	}
}

func TestCall(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	{
		df, err := s.Call("square", int64(3))
		assert.NoError(err)
		assert.Equal(3, df.Count())
		assert.Equal(schema.Row{int64(2), int64(4)}, df.Collect()[2])
	}

	{
		_, err := s.Call("square")
		assert.True(IsCode(err, CodeWrongNumArgs))
	}

	{
		_, err := s.Call("nosuch")
		assert.True(IsCode(err, CodeFunctionNotFound))
	}
}

func TestLateralUDTF(t *testing.T) {
	assert := assert.New(t)
	s := newTestSession(t)

	df, err := s.SQL(
		"select o.id, s.squared from range(3) as o, lateral square(o.id) as s",
	)
	assert.NoError(err)
	// 0 + 1 + 2 inner rows
	assert.Equal(3, df.Count())
	assert.Equal(schema.Row{int64(2), int64(1)}, df.Collect()[2])
}
