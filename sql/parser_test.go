package sql

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
)

func doTestSelect(lhs, rhs string, assert *assert.Assertions) {
	p := newParser(rhs)
	p.L.Next()

	v, err := p.parseSelect()
	if err != nil {
		print(fmt.Sprintf("%s\n", err))
	}
	assert.True(err == nil)
	assert.Equal(lhs, PrintSelect(v))
}

func doParseCode(source string, assert *assert.Assertions) *Code {
	c, err := newParser(source).Parse()
	if err != nil {
		print(fmt.Sprintf("%s\n", err))
	}
	assert.True(err == nil)
	return c
}

func TestSelect1(t *testing.T) {
	assert := assert.New(t)

	doTestSelect(
		`select
a
from xx()`, "select a from xx()", assert)

	doTestSelect(
		`select
a
from xx(1)`, "select a from xx(1)", assert)

	doTestSelect(
		`select
a
from xx(true, false, 1, 2.000000, "")`, "select a from xx(true, false, 1, 2.0, '')", assert)

	doTestSelect(
		`select
a as t
from xx(true, false, 1, 2.000000, "")`, "select a as t from xx(true, false, 1, 2.0, '')", assert)

	doTestSelect(
		`select
a as t, b as t2
from xx(true, false, 1, 2.000000, "")`, "select a as t, b as t2 from xx(true, false, 1, 2.0, '')", assert)

	doTestSelect(
		`select
($1+10) as t, b as t2
from xx(true, false, 1, 2.000000, "")`, "select $1+10 as t, b as t2 from xx(true, false, 1, 2.0, '')", assert)

	doTestSelect(
		`select distinct
a
from xx(true, false, 1, 2.000000, "")`, "select distinct a from xx(true, false, 1, 2.0, '')", assert)

	doTestSelect(
		`select
a
from xx() as tb1`, "select a from xx() as tb1", assert)

	doTestSelect(
		`select
a
from xx() as tb1, yy() as tb2`, "select a from xx() as tb1, yy() as tb2", assert)

	doTestSelect(
		`select
a
from yy()
where (a==100)`, "select a from yy() where a == 100", assert)

	doTestSelect(
		`select
a
from yy()
where ((a==100)&&(a!=300))`, "select a from yy() where a == 100 and a != 300", assert)

	doTestSelect(
		`select
a, b as ttt
from yy()
where (((a==100)&&(a!=300))||(ttt>a))`, "select a, b as ttt from yy() where (a == 100 and a != 300) or ttt > a", assert)

	doTestSelect(
		`select
t1.a as f1, t2.b as f2
from xx() as t1, yy() as t2
where ((f1==f2)&&((f1>20)&&(f1<100)))
order by t1.c asc`,
		`
select
t1.a as f1,
t2.b as f2
from xx() as t1, yy() as t2
where f1 == f2 and (f1 > 20 and f1 < 100)
order by t1.c asc
`,
		assert)
}

func TestProjectionList(t *testing.T) {
	assert := assert.New(t)

	{
		c := doParseCode("select * from xx()", assert)
		assert.True(c.Select.Projection.HasStar())
		assert.Equal(1, len(c.Select.Projection.ValueList))
	}

	{
		c := doParseCode("select a, b as bb, 1+2 from xx()", assert)
		assert.False(c.Select.Projection.HasStar())
		assert.Equal(3, len(c.Select.Projection.ValueList))
	}

	{
		// nothing may follow a wildcard
		p := newParser("select *, a from xx()")
		p.L.Next()
		_, err := p.parseSelect()
		assert.Error(err)
	}

	{
		p := newParser("select *, * from xx()")
		p.L.Next()
		_, err := p.parseSelect()
		assert.Error(err)
	}
}

func TestSelectFromSource(t *testing.T) {
	assert := assert.New(t)

	// values with column aliases
	doTestSelect(
		`select
*
from values (1, "a"), (2, "b") as t(x, y)`,
		`select * from values (1, 'a'), (2, 'b') as t(x, y)`, assert)

	// bare view reference
	doTestSelect(
		`select
*
from v as t`,
		`select * from v as t`, assert)

	// lateral
	doTestSelect(
		`select
*
from t(), lateral fn(t.a)`,
		`select * from t(), lateral fn(t.a)`, assert)

	// join is the same as comma
	doTestSelect(
		`select
*
from t(), lateral fn(t.a)`,
		`select * from t() join lateral fn(t.a)`, assert)

	// qualified wildcard
	doTestSelect(
		`select
f.*, g.*
from f(), g()`,
		`select f.*, g.* from f(), g()`, assert)
}

func TestSelectTableArg(t *testing.T) {
	assert := assert.New(t)

	{
		p := newParser("select * from fn(table(v), 1)")
		p.L.Next()
		v, err := p.parseSelect()
		assert.NoError(err)

		assert.Equal(1, len(v.From.VarList))
		fv := v.From.VarList[0]
		assert.Equal(FromKindFunc, fv.Kind)
		assert.Equal("fn", fv.Name)
		assert.Equal(2, len(fv.Args))

		assert.True(fv.Args[0].IsTable())
		assert.Equal("v", fv.Args[0].Table.Name)
		assert.True(fv.Args[0].Table.Query == nil)

		assert.False(fv.Args[1].IsTable())
		assert.Equal(ExprConst, fv.Args[1].Value.Type())
	}

	{
		p := newParser("select * from fn(table(select a from src()))")
		p.L.Next()
		v, err := p.parseSelect()
		assert.NoError(err)

		fv := v.From.VarList[0]
		assert.Equal(1, len(fv.Args))
		assert.True(fv.Args[0].IsTable())
		assert.True(fv.Args[0].Table.Query != nil)
		assert.Equal("", fv.Args[0].Table.Name)
	}
}

func TestWith(t *testing.T) {
	assert := assert.New(t)

	c := doParseCode(
		"with cte as (select a from t()), cte2 as (select b from cte) select * from cte2",
		assert,
	)
	assert.True(c.Select != nil)
	assert.Equal(2, len(c.Select.With))
	assert.Equal("cte", c.Select.With[0].Name)
	assert.Equal("cte2", c.Select.With[1].Name)
	assert.Equal(FromKindRef, c.Select.From.VarList[0].Kind)
	assert.Equal("cte2", c.Select.From.VarList[0].Name)
}

func TestCreateView(t *testing.T) {
	assert := assert.New(t)

	{
		c := doParseCode("create view v as select * from t()", assert)
		assert.True(c.CreateView != nil)
		assert.Equal("v", c.CreateView.Name)
		assert.False(c.CreateView.Replace)
		assert.False(c.CreateView.Temporary)
	}

	{
		c := doParseCode("create or replace temporary view v as select * from t()", assert)
		cv := c.CreateView
		assert.True(cv != nil)
		assert.True(cv.Replace)
		assert.True(cv.Temporary)
	}

	{
		c := doParseCode("CREATE OR REPLACE TEMP VIEW v AS SELECT * FROM t();", assert)
		assert.True(c.CreateView != nil)
	}
}

func TestExprTernary(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("a?b:c")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprTernary)
		ter := v.(*Ternary)

		assert.True(ter.Cond.Type() == ExprRef)
		assert.True(ter.B0.Type() == ExprRef)
		assert.True(ter.B1.Type() == ExprRef)

		a0 := ter.Cond.(*Ref)
		a1 := ter.B0.(*Ref)
		a2 := ter.B1.(*Ref)

		assert.True(a0.Id == "a")
		assert.True(a1.Id == "b")
		assert.True(a2.Id == "c")
	}

	{
		p := newParser("a?b+e:c")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprTernary)
		ter := v.(*Ternary)

		assert.True(ter.Cond.Type() == ExprRef)
		assert.True(ter.B0.Type() == ExprBinary)
		assert.True(ter.B1.Type() == ExprRef)

		a0 := ter.Cond.(*Ref)
		a1 := ter.B0.(*Binary)
		a2 := ter.B1.(*Ref)

		assert.True(a0.Id == "a")
		assert.True(a2.Id == "c")
		{
			bin := a1
			assert.True(bin.Op == TkAdd)
			binL := bin.L.(*Ref)
			binR := bin.R.(*Ref)
			assert.True(binL.Id == "b")
			assert.True(binR.Id == "e")
		}
	}
}

func TestExprBinary(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("a+b")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprBinary)
		bin := v.(*Binary)

		assert.True(bin.Op == TkAdd)
		assert.True(bin.L.Type() == ExprRef)
		assert.True(bin.R.Type() == ExprRef)

		lhs := bin.L.(*Ref)
		rhs := bin.R.(*Ref)

		assert.True(lhs.Id == "a")
		assert.True(rhs.Id == "b")
	}

	{
		p := newParser("a-b*c+d")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprBinary)
		assert.Equal(PrintExpr(v), "((a-(b*c))+d)")
	}

	{
		p := newParser("a-b*c*d-e")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprBinary)
		assert.Equal(PrintExpr(v), "((a-((b*c)*d))-e)")
	}

	{
		p := newParser("a-b*c || d-e && c")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprBinary)
		assert.Equal(PrintExpr(v), "((a-(b*c))||((d-e)&&c))")
	}

	{
		p := newParser("a == 10 and a == 200 or b == 30")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprBinary)
		assert.Equal(PrintExpr(v), "(((a==10)&&(a==200))||(b==30))")
	}

	// single '=' is equality inside expressions
	{
		p := newParser("a = 10")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.Equal(PrintExpr(v), "(a==10)")
	}
}

func TestExprLikeIs(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("a like 'x%'")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.True(v.Type() == ExprBinary)
		bin := v.(*Binary)
		assert.Equal(TkLike, bin.Op)
		assert.Equal(ConstStr, bin.R.(*Const).Ty)
	}

	{
		p := newParser("a not like 'x%'")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.True(v.Type() == ExprUnary)
		u := v.(*Unary)
		assert.Equal([]int{TkNot}, u.Op)
		assert.Equal(TkLike, u.Operand.(*Binary).Op)
	}

	{
		p := newParser("a is null")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.True(v.Type() == ExprBinary)
		bin := v.(*Binary)
		assert.Equal(TkIs, bin.Op)
		assert.Equal(ConstNull, bin.R.(*Const).Ty)
	}

	{
		p := newParser("a is not null")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.True(v.Type() == ExprUnary)
		u := v.(*Unary)
		assert.Equal(TkIs, u.Operand.(*Binary).Op)
	}

	{
		p := newParser("a in (1, 2, 3)")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.Equal(PrintExpr(v), "(((a==1)||(a==2))||(a==3))")
	}

	{
		p := newParser("a between 1 and 10")
		p.L.Next()
		v, err := p.parseExpr()
		assert.NoError(err)
		assert.Equal(PrintExpr(v), "((a>=1)&&(a<=10))")
	}
}

func TestExprUnary(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("-a")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprUnary)
		u := v.(*Unary)
		assert.True(len(u.Op) == 1)
		assert.True(u.Op[0] == TkSub)
		assert.True(u.Operand.Type() == ExprRef)
		ref := u.Operand.(*Ref)
		assert.True(ref.Id == "a")
	}
	{
		p := newParser("!!a")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprUnary)
		u := v.(*Unary)
		assert.True(len(u.Op) == 2)
		assert.True(u.Op[0] == TkNot)
		assert.True(u.Op[1] == TkNot)

		assert.True(u.Operand.Type() == ExprRef)
		ref := u.Operand.(*Ref)
		assert.True(ref.Id == "a")
	}
}

func TestExprSub(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("(a+b)")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(PrintExpr(v) == "(a+b)")
	}
	{
		p := newParser("a*(a+b)+c")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(PrintExpr(v) == "((a*(a+b))+c)")
	}
}

func TestExprPrimary(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("a.b")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprPrimary)
		primary := v.(*Primary)
		assert.True(primary.Leading.Type() == ExprRef)
		ref := primary.Leading.(*Ref)
		assert.True(ref.Id == "a")

		assert.True(len(primary.Suffix) == 1)
		assert.True(primary.Suffix[0].Ty == SuffixDot)
		assert.True(primary.Suffix[0].Component == "b")
	}
	{
		p := newParser("a['']")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprPrimary)
		primary := v.(*Primary)
		assert.True(primary.Leading.Type() == ExprRef)
		ref := primary.Leading.(*Ref)
		assert.True(ref.Id == "a")

		assert.True(len(primary.Suffix) == 1)
		assert.True(primary.Suffix[0].Ty == SuffixIndex)
		idx := primary.Suffix[0].Index
		assert.True(idx.Type() == ExprConst)
		cidx := idx.(*Const)
		assert.True(cidx.Ty == ConstStr)
		assert.True(cidx.String == "")
	}
	{
		p := newParser("a(1,2)")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprPrimary)
		primary := v.(*Primary)
		assert.True(primary.Leading.Type() == ExprRef)
		ref := primary.Leading.(*Ref)
		assert.True(ref.Id == "a")

		assert.True(len(primary.Suffix) == 1)

		assert.True(primary.Suffix[0].Ty == SuffixCall)
		call := primary.Suffix[0].Call
		assert.True(len(call.Parameters) == 2)

		assert.True(call.Parameters[0].Type() == ExprConst)
		c0 := call.Parameters[0].(*Const)
		assert.True(c0.Ty == ConstInt)
		assert.True(c0.Int == int64(1))

		assert.True(call.Parameters[1].Type() == ExprConst)
		c1 := call.Parameters[1].(*Const)
		assert.True(c1.Ty == ConstInt)
		assert.True(c1.Int == int64(2))
	}
}

func TestExprConst(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("1")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprConst)
		c := v.(*Const)
		assert.True(c.Ty == ConstInt)
		assert.Equal(c.Int, int64(1), "int == 1")
	}
	{
		p := newParser("1.1")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprConst)
		c := v.(*Const)
		assert.True(c.Ty == ConstReal)
		assert.Equal(c.Real, float64(1.1), "real == 1.1")
	}
	{
		p := newParser("'str'")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprConst)
		c := v.(*Const)
		assert.True(c.Ty == ConstStr)
		assert.Equal(c.String, "str", "str == 'str'")
	}
	{
		p := newParser("null")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprConst)
		c := v.(*Const)
		assert.True(c.Ty == ConstNull)
	}
	{
		p := newParser("true")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprConst)
		c := v.(*Const)
		assert.True(c.Ty == ConstBool)
		assert.True(c.Bool)
	}
}

func TestExprAtomic(t *testing.T) {
	assert := assert.New(t)
	{
		p := newParser("a")
		p.L.Next()
		v, err := p.parseExpr()
		assert.True(err == nil)
		assert.True(v.Type() == ExprRef)
		ref := v.(*Ref)
		assert.Equal(ref.Id, "a")
	}
}
