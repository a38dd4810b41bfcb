package dftest

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tabsql/tabsql/engine"
	"github.com/tabsql/tabsql/schema"
)

// recorder captures assertion failures instead of failing the test, so the
// assertions can themselves be put under test
type recorder struct {
	msgs []string
}

func (self *recorder) Errorf(format string, args ...interface{}) {
	self.msgs = append(self.msgs, fmt.Sprintf(format, args...))
}

func (self *recorder) failed() bool { return len(self.msgs) > 0 }

func mustSchema(t *testing.T, src string) *schema.Schema {
	s, err := schema.ParseSchema(src)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAssertRowsEqual(t *testing.T) {
	assert := assert.New(t)

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{int64(1), "a"}, {int64(2), "b"}},
			[]schema.Row{{int64(1), "a"}, {int64(2), "b"}},
		)
		assert.True(ok)
		assert.False(r.failed())
	}

	{
		// order insensitive by default
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{int64(2), "b"}, {int64(1), "a"}},
			[]schema.Row{{int64(1), "a"}, {int64(2), "b"}},
		)
		assert.True(ok)
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{int64(2), "b"}, {int64(1), "a"}},
			[]schema.Row{{int64(1), "a"}, {int64(2), "b"}},
			WithCheckRowOrder(true),
		)
		assert.False(ok)
		assert.Contains(r.msgs[0], "Results do not match")
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{int64(1)}},
			[]schema.Row{{int64(1)}, {int64(2)}},
		)
		assert.False(ok)
		assert.Contains(r.msgs[0], "Number of rows does not match")
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{int64(1), "a"}},
			[]schema.Row{{int64(1), "x"}},
		)
		assert.False(ok)
		assert.Contains(r.msgs[0], "( 0.00000 % )")
	}
}

func TestAssertRowsEqualTolerance(t *testing.T) {
	assert := assert.New(t)

	{
		// within default rtol
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{1.0000001}},
			[]schema.Row{{1.0}},
		)
		assert.True(ok)
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{1.01}},
			[]schema.Row{{1.0}},
		)
		assert.False(ok)
	}

	{
		// widened absolute tolerance accepts the same pair
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{1.01}},
			[]schema.Row{{1.0}},
			WithATol(0.1),
		)
		assert.True(ok)
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{1.1}},
			[]schema.Row{{1.0}},
			WithRTol(0.2),
		)
		assert.True(ok)
	}

	{
		// NaN equals NaN
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{math.NaN()}},
			[]schema.Row{{math.NaN()}},
		)
		assert.True(ok)
	}

	{
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{math.Inf(1)}},
			[]schema.Row{{math.Inf(-1)}},
		)
		assert.False(ok)
	}

	{
		// tolerance reaches into nested values
		r := &recorder{}
		ok := AssertRowsEqual(
			r,
			[]schema.Row{{[]schema.Value{1.0000001, 2.0}}},
			[]schema.Row{{[]schema.Value{1.0, 2.0}}},
		)
		assert.True(ok)
	}
}

func TestAssertSchemaEqual(t *testing.T) {
	assert := assert.New(t)

	a := mustSchema(t, "id: bigint, name: string")

	{
		r := &recorder{}
		ok := AssertSchemaEqual(r, a, mustSchema(t, "id: bigint, name: string"))
		assert.True(ok)
	}

	{
		// nullability is ignored by default
		r := &recorder{}
		ok := AssertSchemaEqual(r, a, mustSchema(t, "id: bigint not null, name: string"))
		assert.True(ok)
	}

	{
		r := &recorder{}
		ok := AssertSchemaEqual(
			r,
			a,
			mustSchema(t, "id: bigint not null, name: string"),
			WithIgnoreNullable(false),
		)
		assert.False(ok)
		assert.Contains(r.msgs[0], "Schemas do not match")
	}

	{
		r := &recorder{}
		ok := AssertSchemaEqual(r, a, mustSchema(t, "id: string, name: string"))
		assert.False(ok)
	}
}

func TestAssertDataFrameEqual(t *testing.T) {
	assert := assert.New(t)
	s := engine.NewSession()

	{
		actual, err := s.SQL("select id, id * 0.5 as half from range(3)")
		assert.NoError(err)
		expected, err := s.CreateDataFrame(
			[][]interface{}{
				{2, 1.0},
				{0, 0.0},
				{1, 0.5000001},
			},
			"id: bigint, half: double",
		)
		assert.NoError(err)

		r := &recorder{}
		assert.True(AssertDataFrameEqual(r, actual, expected))
		assert.False(r.failed())
	}

	{
		// schema mismatch reported before any row comparison
		actual, err := s.SQL("select id from range(1)")
		assert.NoError(err)
		expected, err := s.CreateDataFrame(
			[][]interface{}{{"0"}},
			"id: string",
		)
		assert.NoError(err)

		r := &recorder{}
		assert.False(AssertDataFrameEqual(r, actual, expected))
		assert.Contains(r.msgs[0], "Schemas do not match")
	}

	{
		actual, err := s.SQL("select id from range(2)")
		assert.NoError(err)
		expected, err := s.CreateDataFrame(
			[][]interface{}{{0}, {5}},
			"id: bigint",
		)
		assert.NoError(err)

		r := &recorder{}
		assert.False(AssertDataFrameEqual(r, actual, expected))
		assert.Contains(r.msgs[0], "( 50.00000 % )")
		assert.Contains(r.msgs[0], "*** actual ***")
		assert.Contains(r.msgs[0], "*** expected ***")
	}
}
