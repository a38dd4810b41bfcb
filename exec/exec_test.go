package exec

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

// the test runtime doubles as the plan catalog, a real session does the
// same split across the engine package

type sliceGen struct {
	rows []schema.Row
	idx  int
}

func (self *sliceGen) Start() error {
	self.idx = -1
	return nil
}

func (self *sliceGen) Next() (bool, error) {
	self.idx++
	return self.idx < len(self.rows), nil
}

func (self *sliceGen) Values() (schema.Row, error) {
	return self.rows[self.idx], nil
}

func (self *sliceGen) Close() {}

type testRuntime struct {
	view map[string][]schema.Row
}

func (self *testRuntime) LookupFunction(name string) (*plan.FunctionDef, error) {
	switch name {
	case "src":
		return &plan.FunctionDef{
			Name:   "src",
			Args:   0,
			Schema: tSchema("a: bigint, b: string"),
		}, nil
	case "seq":
		return &plan.FunctionDef{
			Name:   "seq",
			Args:   1,
			Schema: tSchema("id: bigint"),
		}, nil
	case "echo":
		return &plan.FunctionDef{
			Name:   "echo",
			Args:   1,
			Schema: tSchema("a: bigint, c: double"),
		}, nil
	default:
		return nil, fmt.Errorf("function not found: %s", name)
	}
}

func (self *testRuntime) LookupView(name string) (*schema.Schema, error) {
	if _, ok := self.view[name]; ok {
		return tSchema("a: bigint, c: double"), nil
	}
	return nil, fmt.Errorf("table or view not found: %s", name)
}

func (self *testRuntime) OpenFunction(name string, args []Arg) (Generator, error) {
	switch name {
	case "src":
		return &sliceGen{
			rows: []schema.Row{
				{int64(1), "apple"},
				{int64(2), "banana"},
				{int64(3), "cherry"},
			},
		}, nil

	case "seq":
		n, _ := args[0].Value.(int64)
		rows := []schema.Row{}
		for i := int64(0); i < n; i++ {
			rows = append(rows, schema.Row{i})
		}
		return &sliceGen{rows: rows}, nil

	case "echo":
		return &sliceGen{rows: args[0].Rows}, nil

	default:
		return nil, fmt.Errorf("function not found: %s", name)
	}
}

func (self *testRuntime) ViewRows(name string) ([]schema.Row, error) {
	if rows, ok := self.view[name]; ok {
		return rows, nil
	}
	return nil, fmt.Errorf("table or view not found: %s", name)
}

func (self *testRuntime) Scalar(name string, args []schema.Value) (schema.Value, error) {
	switch name {
	case "upper":
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	case "abs":
		switch x := args[0].(type) {
		case int64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case float64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		}
		return nil, fmt.Errorf("abs: not a number")
	default:
		return nil, fmt.Errorf("function not found: %s", name)
	}
}

func tSchema(s string) *schema.Schema {
	sch, err := schema.ParseSchema(s)
	if err != nil {
		panic(err)
	}
	return sch
}

func newTestRuntime() *testRuntime {
	return &testRuntime{
		view: map[string][]schema.Row{
			"v1": {
				{int64(10), 1.5},
				{int64(20), 2.5},
			},
		},
	}
}

func runQuery(t *testing.T, code string) *Result {
	rt := newTestRuntime()
	c, err := sql.Parse(code)
	if err != nil {
		t.Fatalf("parse(%s): %s", code, err.Error())
	}
	p, err := plan.PlanQuery(c.Select, rt, plan.DefaultConfig())
	if err != nil {
		t.Fatalf("plan(%s): %s", code, err.Error())
	}
	res, err := Run(p, rt)
	if err != nil {
		t.Fatalf("run(%s): %s", code, err.Error())
	}
	return res
}

func TestExecBasic(t *testing.T) {
	assert := assert.New(t)

	{
		res := runQuery(t, "select * from src()")
		assert.Equal(3, len(res.Rows))
		assert.Equal(schema.Row{int64(1), "apple"}, res.Rows[0])
	}

	{
		res := runQuery(t, "select b, a from src()")
		assert.Equal(schema.Row{"apple", int64(1)}, res.Rows[0])
	}

	{
		res := runQuery(t, "select id from seq(4)")
		assert.Equal(4, len(res.Rows))
		assert.Equal(schema.Row{int64(3)}, res.Rows[3])
	}

	{
		res := runQuery(t, "select * from v1")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(10), 1.5}, res.Rows[0])
	}

	{
		res := runQuery(t, "select x, y from values (1, 'p'), (2, 'q') as t(x, y)")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(2), "q"}, res.Rows[1])
	}
}

func TestExecFilterSortLimit(t *testing.T) {
	assert := assert.New(t)

	{
		res := runQuery(t, "select a from src() where a > 1")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(2)}, res.Rows[0])
	}

	{
		res := runQuery(t, "select a from src() order by a desc")
		assert.Equal(schema.Row{int64(3)}, res.Rows[0])
		assert.Equal(schema.Row{int64(1)}, res.Rows[2])
	}

	{
		res := runQuery(t, "select a from src() order by b asc limit 2")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(1)}, res.Rows[0])
	}

	{
		// limit 0 is empty, not one row
		res := runQuery(t, "select a from src() limit 0")
		assert.Equal(0, len(res.Rows))
	}

	{
		res := runQuery(t, "select distinct x from values (1), (1), (2) as t(x)")
		assert.Equal(2, len(res.Rows))
	}

	{
		// dedup happens before the limit counts
		res := runQuery(t, "select distinct x from values (1), (1), (2) as t(x) limit 2")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(2)}, res.Rows[1])
	}

	{
		res := runQuery(t, "select a from src() where b like 'a%'")
		assert.Equal(1, len(res.Rows))
		assert.Equal(schema.Row{int64(1)}, res.Rows[0])
	}

	{
		res := runQuery(t, "select x from values (1), (null), (3) as t(x) where x is null")
		assert.Equal(1, len(res.Rows))
		assert.Equal(schema.Row{nil}, res.Rows[0])
	}

	{
		res := runQuery(t, "select x from values (1), (null), (3) as t(x) where x is not null")
		assert.Equal(2, len(res.Rows))
	}
}

func TestExecJoin(t *testing.T) {
	assert := assert.New(t)

	{
		// cross product
		res := runQuery(t, "select s.a, v1.a from src() as s, v1")
		assert.Equal(6, len(res.Rows))
	}

	{
		res := runQuery(t, "select s.a, v1.c from src() as s join v1 where s.a * 10 == v1.a")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(1), 1.5}, res.Rows[0])
		assert.Equal(schema.Row{int64(2), 2.5}, res.Rows[1])
	}
}

func TestExecLateral(t *testing.T) {
	assert := assert.New(t)

	{
		res := runQuery(t, "select s.a, g.id from src() as s, lateral seq(s.a) as g")
		// 1 + 2 + 3 inner rows
		assert.Equal(6, len(res.Rows))
		assert.Equal(schema.Row{int64(1), int64(0)}, res.Rows[0])
		assert.Equal(schema.Row{int64(3), int64(2)}, res.Rows[5])
	}
}

func TestExecTableArg(t *testing.T) {
	assert := assert.New(t)

	{
		res := runQuery(t, "select * from echo(table(v1))")
		assert.Equal(2, len(res.Rows))
		assert.Equal(schema.Row{int64(10), 1.5}, res.Rows[0])
	}

	{
		res := runQuery(t, "select * from echo(table(select * from v1 where c > 2))")
		assert.Equal(1, len(res.Rows))
		assert.Equal(schema.Row{int64(20), 2.5}, res.Rows[0])
	}
}

func TestExecExpr(t *testing.T) {
	assert := assert.New(t)

	{
		res := runQuery(t, "select a * 2 + 1 from src() limit 1")
		assert.Equal(schema.Row{int64(3)}, res.Rows[0])
	}

	{
		// division always goes fractional
		res := runQuery(t, "select 3 / 2 from src() limit 1")
		assert.Equal(schema.Row{1.5}, res.Rows[0])
	}

	{
		res := runQuery(t, "select 7 % 3 from src() limit 1")
		assert.Equal(schema.Row{int64(1)}, res.Rows[0])
	}

	{
		res := runQuery(t, "select a > 2 ? 'big' : 'small' from src() where a == 3")
		assert.Equal(schema.Row{"big"}, res.Rows[0])
	}

	{
		res := runQuery(t, "select upper(b) from src() limit 1")
		assert.Equal(schema.Row{"APPLE"}, res.Rows[0])
	}

	{
		res := runQuery(t, "select abs(0 - a) from src() where a == 2")
		assert.Equal(schema.Row{int64(2)}, res.Rows[0])
	}

	{
		res := runQuery(t, "select 'x' + 'y' from src() limit 1")
		assert.Equal(schema.Row{"xy"}, res.Rows[0])
	}

	{
		res := runQuery(t, "select a in (1, 3) from src()")
		assert.Equal(schema.Row{true}, res.Rows[0])
		assert.Equal(schema.Row{false}, res.Rows[1])
		assert.Equal(schema.Row{true}, res.Rows[2])
	}

	{
		res := runQuery(t, "select a between 2 and 3 from src()")
		assert.Equal(schema.Row{false}, res.Rows[0])
		assert.Equal(schema.Row{true}, res.Rows[1])
	}

	{
		// projection alias reused in order by
		res := runQuery(t, "select a * 10 as big from src() order by big desc limit 1")
		assert.Equal(schema.Row{int64(30)}, res.Rows[0])
	}
}

func TestExecSuffixAccess(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime()
	rt.view["nested"] = []schema.Row{
		{schema.Row{int64(7), "x"}, []schema.Value{1.0, 2.0}},
	}

	run := func(code string) *Result {
		c, err := sql.Parse(code)
		assert.NoError(err)
		cat := &nestedCatalog{inner: rt}
		p, err := plan.PlanQuery(c.Select, cat, plan.DefaultConfig())
		assert.NoError(err)
		res, err := Run(p, rt)
		assert.NoError(err)
		return res
	}

	{
		res := run("select n.s.f from nested as n")
		assert.Equal(schema.Row{int64(7)}, res.Rows[0])
	}

	{
		res := run("select n.arr[1] from nested as n")
		assert.Equal(schema.Row{2.0}, res.Rows[0])
	}
}

// wraps the runtime to expose the nested view schema
type nestedCatalog struct {
	inner *testRuntime
}

func (self *nestedCatalog) LookupFunction(name string) (*plan.FunctionDef, error) {
	return self.inner.LookupFunction(name)
}

func (self *nestedCatalog) LookupView(name string) (*schema.Schema, error) {
	if name == "nested" {
		return tSchema("s: struct<f: bigint, g: string>, arr: array<double>"), nil
	}
	return self.inner.LookupView(name)
}

func TestRender(t *testing.T) {
	assert := assert.New(t)

	res := runQuery(t, "select a, b from src() limit 2")

	{
		buf := &bytes.Buffer{}
		c, _ := sql.Parse("select a, b from src() format title=true")
		rt := newTestRuntime()
		p, err := plan.PlanQuery(c.Select, rt, plan.DefaultConfig())
		assert.NoError(err)

		r := NewRenderer(p.Format, buf)
		assert.NoError(r.Render(res))

		out := buf.String()
		assert.Contains(out, "a")
		assert.Contains(out, "apple")
		assert.Contains(out, "banana")
		assert.Contains(out, "---")
	}

	{
		// default format hides the title bar
		buf := &bytes.Buffer{}
		c, _ := sql.Parse("select a, b from src()")
		rt := newTestRuntime()
		p, err := plan.PlanQuery(c.Select, rt, plan.DefaultConfig())
		assert.NoError(err)

		r := NewRenderer(p.Format, buf)
		assert.NoError(r.Render(res))
		assert.NotContains(buf.String(), "---")
	}
}
