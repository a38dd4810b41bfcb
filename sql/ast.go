package sql

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	ConstNull = iota
	ConstBool
	ConstStr
	ConstInt
	ConstReal
)

const (
	SuffixCall = iota
	SuffixDot
	SuffixIndex
)

const (
	ExprConst = iota
	ExprRef
	ExprSuffix
	ExprPrimary
	ExprUnary
	ExprBinary
	ExprTernary
)

const (
	SelectVarCol = iota
	SelectVarStar
	SelectVarTableStar
)

const (
	OrderAsc = iota
	OrderDesc
)

const (
	FromKindFunc = iota
	FromKindValues
	FromKindRef
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// Select statement plus a small DDL surface for temporary views, ie the only
// statements we support

type SelectVar interface {
	Type() int
	CInfo() CodeInfo

	// Just an index that is unique within the SQL, used to represent the default
	// name when printing out. It is the index starting from 1, and can be used
	// reference back into the SelectVar array inside of the *From* clause
	Index() int

	// If the field has an aliased, via as keyword, then it returns otherwise
	// returns an empty string
	Alias() string
}

type Col struct {
	CodeInfo CodeInfo
	ColIndex int
	As       string
	Value    Expr
}

type Star struct {
	CodeInfo CodeInfo
}

// TableStar is the qualified wildcard, example as *f.** inside of projection
type TableStar struct {
	CodeInfo CodeInfo
	Table    string
}

func (self *Col) Type() int       { return SelectVarCol }
func (self *Col) CInfo() CodeInfo { return self.CodeInfo }
func (self *Col) Index() int      { return self.ColIndex }
func (self *Col) Alias() string   { return self.As }

func (self *Star) Type() int       { return SelectVarStar }
func (self *Star) CInfo() CodeInfo { return self.CodeInfo }
func (self *Star) Index() int      { return 0 }
func (self *Star) Alias() string   { return "" }

func (self *TableStar) Type() int       { return SelectVarTableStar }
func (self *TableStar) CInfo() CodeInfo { return self.CodeInfo }
func (self *TableStar) Index() int      { return 0 }
func (self *TableStar) Alias() string   { return "" }

type SelectVarList []SelectVar

type Projection struct {
	CodeInfo  CodeInfo
	ValueList SelectVarList
}

func (self *SelectVarList) HasStar() bool {
	for _, y := range *self {
		if y.Type() == SelectVarStar {
			return true
		}
	}
	return false
}

func (self *Projection) HasStar() bool {
	return self.ValueList.HasStar()
}

// TableSpec is the payload of a TABLE(...) function argument, either an
// inlined query or a bare view/CTE name
type TableSpec struct {
	CodeInfo CodeInfo
	Query    *Select
	Name     string
}

// FromArg is one argument of a table function inside of the from clause.
// Either a scalar expression or a TABLE(...) spec, never both
type FromArg struct {
	CodeInfo CodeInfo
	Value    Expr
	Table    *TableSpec
}

func (self *FromArg) IsTable() bool { return self.Table != nil }

// FromVar is one source inside of the from clause. A source is a table
// function call, a VALUES literal table, or a reference to a view/CTE by
// name. LATERAL marks the source's arguments as allowed to reference the
// columns of the sources on its left.
type FromVar struct {
	CodeInfo CodeInfo
	Kind     int
	Name     string     // function or view name
	Args     []*FromArg // function call arguments
	Tuples   [][]*Const // VALUES rows
	Lateral  bool
	Alias    string   // name of the table, ie aliased etc ...
	ColAlias []string // column aliases, example as t(a, b)
}

type From struct {
	CodeInfo CodeInfo
	VarList  []*FromVar
}

// Where clause, just a list of expressions
type Where struct {
	CodeInfo  CodeInfo
	Condition Expr
}

type OrderBy struct {
	CodeInfo CodeInfo
	Order    int
	Name     []Expr
}

type Limit struct {
	CodeInfo CodeInfo
	Limit    int64
}

// Extension kept from the original dialect, allow user to dump the table in
// a better way. For format, we allow known value's toggles to be set
type FormatColumn struct {
	Index int
	Value *Const
}

type Format struct {
	Title   *Const // title of the table
	Border  *Const // border of thet able
	Base    *Const // base policy of the format
	Number  *Const
	String  *Const
	Rest    *Const
	Padding *Const         // padding size
	Column  []FormatColumn // column customization
}

// CTE is one *WITH name AS (select ...)* binding
type CTE struct {
	CodeInfo CodeInfo
	Name     string
	Query    *Select
}

type Select struct {
	CodeInfo CodeInfo
	Distinct bool // whether a distinct selection, ie dedup

	With       []*CTE      // WITH prefix, may be nil
	Projection *Projection // projection
	From       *From       // from clause
	Where      *Where      // where clause
	OrderBy    *OrderBy    // order by
	Limit      *Limit      // limit clause
	Format     *Format     // format of the select, when dumpped
}

// CreateView is *CREATE (OR REPLACE)? TEMPORARY? VIEW name AS select*
type CreateView struct {
	CodeInfo  CodeInfo
	Name      string
	Replace   bool
	Temporary bool
	Query     *Select
}

type Code struct {
	CodeInfo   CodeInfo
	Select     *Select
	CreateView *CreateView
}

/** -------------------------------------------------------------------------
 ** Expression
 ** -----------------------------------------------------------------------*/
type Const struct {
	Ty       int
	Bool     bool
	String   string
	Real     float64
	Int      int64
	CodeInfo CodeInfo
}

type Ref struct {
	Id       string
	CodeInfo CodeInfo
	CanName  CanName
}

type Call struct {
	Parameters []Expr
	CodeInfo   CodeInfo
}

type Suffix struct {
	Ty        int
	Call      *Call
	Index     Expr
	Component string
	CodeInfo  CodeInfo
}

type Primary struct {
	Leading  Expr
	Suffix   []*Suffix
	CodeInfo CodeInfo
	CanName  CanName
}

type Unary struct {
	Op       []int
	Operand  Expr
	CodeInfo CodeInfo
}

type Binary struct {
	Op       int
	L        Expr
	R        Expr
	CodeInfo CodeInfo
}

type Ternary struct {
	Cond     Expr
	B0       Expr
	B1       Expr
	CodeInfo CodeInfo
}

type Expr interface {
	Type() int
	CInfo() CodeInfo
}

func (self *Const) Type() int       { return ExprConst }
func (self *Const) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ref) Type() int       { return ExprRef }
func (self *Ref) CInfo() CodeInfo { return self.CodeInfo }

func (self *Suffix) Type() int       { return ExprSuffix }
func (self *Suffix) CInfo() CodeInfo { return self.CodeInfo }

func (self *Primary) Type() int       { return ExprPrimary }
func (self *Primary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Unary) Type() int       { return ExprUnary }
func (self *Unary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Binary) Type() int       { return ExprBinary }
func (self *Binary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ternary) Type() int       { return ExprTernary }
func (self *Ternary) CInfo() CodeInfo { return self.CodeInfo }

/* ----------------------------------------------------------------------------
 * Visitor
 * ---------------------------------------------------------------------------*/

type ExprVisitor interface {
	AcceptConst(*Const) (bool, error)
	AcceptRef(*Ref) (bool, error)
	AcceptSuffix(*Suffix) (bool, error)
	AcceptPrimary(*Primary) (bool, error)
	AcceptUnary(*Unary) (bool, error)
	AcceptBinary(*Binary) (bool, error)
	AcceptTernary(*Ternary) (bool, error)
}

func visitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	if expr == nil {
		return nil
	}
	switch expr.Type() {
	case ExprConst:
		if _, err := visitor.AcceptConst(expr.(*Const)); err != nil {
			return err
		}
		return nil

	case ExprRef:
		if _, err := visitor.AcceptRef(expr.(*Ref)); err != nil {
			return err
		}
		return nil

	case ExprSuffix:
		suff := expr.(*Suffix)
		if goon, err := visitor.AcceptSuffix(suff); err != nil {
			return err
		} else if goon {
			switch suff.Ty {
			case SuffixCall:
				for _, x := range suff.Call.Parameters {
					if err := visitExprPreOrder(visitor, x); err != nil {
						return err
					}
				}
				break
			case SuffixIndex:
				return visitExprPreOrder(visitor, suff.Index)
			default:
				break
			}
		}
		return nil

	case ExprPrimary:
		primary := expr.(*Primary)
		if goon, err := visitor.AcceptPrimary(primary); err != nil {
			return err
		} else if goon {
			if err := visitExprPreOrder(visitor, primary.Leading); err != nil {
				return err
			}
			for _, x := range primary.Suffix {
				if err := visitExprPreOrder(visitor, x); err != nil {
					return err
				}
			}
		}
		return nil

	case ExprUnary:
		unary := expr.(*Unary)
		if goon, err := visitor.AcceptUnary(unary); err != nil {
			return err
		} else if goon {
			return visitExprPreOrder(visitor, unary.Operand)
		}
		return nil

	case ExprBinary:
		binary := expr.(*Binary)
		if goon, err := visitor.AcceptBinary(binary); err != nil {
			return err
		} else if goon {
			if err := visitExprPreOrder(visitor, binary.L); err != nil {
				return err
			}
			if err := visitExprPreOrder(visitor, binary.R); err != nil {
				return err
			}
		}
		return nil

	case ExprTernary:
		ternary := expr.(*Ternary)
		if goon, err := visitor.AcceptTernary(ternary); err != nil {
			return err
		} else if goon {
			if err := visitExprPreOrder(visitor, ternary.Cond); err != nil {
				return err
			}
			if err := visitExprPreOrder(visitor, ternary.B0); err != nil {
				return err
			}
			if err := visitExprPreOrder(visitor, ternary.B1); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func VisitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	return visitExprPreOrder(visitor, expr)
}

/* ----------------------------------------------------------------------------
 * Printing
 * ---------------------------------------------------------------------------*/

// Stringify the AST. We do not use method but use free function

func doPrintExprConst(c *Const, buf *bytes.Buffer) {
	switch c.Ty {
	case ConstBool:
		buf.WriteString(fmt.Sprintf("%t", c.Bool))
		break
	case ConstStr:
		buf.WriteString(fmt.Sprintf("%q", c.String))
		break
	case ConstInt:
		buf.WriteString(fmt.Sprintf("%d", c.Int))
		break
	case ConstReal:
		buf.WriteString(fmt.Sprintf("%f", c.Real))
		break
	case ConstNull:
		buf.WriteString("null")
		break
	default:
		panic("unreachable")
	}
}

func doPrintExprSuffix(s *Suffix, buf *bytes.Buffer) {
	switch s.Ty {
	case SuffixCall:
		buf.WriteString("(")
		sz := len(s.Call.Parameters)

		for idx, entry := range s.Call.Parameters {
			doPrintExpr(entry, buf)
			if idx < sz-1 {
				buf.WriteString(",")
			}
		}
		buf.WriteString(")")
		break

	case SuffixDot:
		buf.WriteString(".")
		buf.WriteString(s.Component)
		break

	case SuffixIndex:
		buf.WriteString("[")
		doPrintExpr(s.Index, buf)
		buf.WriteString("]")
		break

	default:
		panic("unreachable")
	}
}

func binaryOpName(op int) string {
	switch op {
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "=="
	case TkNe:
		return "!="
	case TkAnd:
		return "&&"
	case TkOr:
		return "||"
	case TkLike:
		return " like "
	case TkIs:
		return " is "
	default:
		panic("unreachable")
	}
}

func doPrintExpr(expr Expr, buf *bytes.Buffer) {
	switch expr.Type() {
	case ExprConst:
		doPrintExprConst(expr.(*Const), buf)
		break

	case ExprRef:
		buf.WriteString(expr.(*Ref).Id)
		break

	case ExprPrimary:
		p := expr.(*Primary)
		doPrintExpr(p.Leading, buf)
		for _, entry := range p.Suffix {
			doPrintExprSuffix(entry, buf)
		}
		break

	case ExprUnary:
		u := expr.(*Unary)
		for _, o := range u.Op {
			switch o {
			case TkAdd:
				buf.WriteString("+")
				break
			case TkSub:
				buf.WriteString("-")
				break
			case TkNot:
				buf.WriteString("!")
				break
			default:
				panic("unreachable")
			}
		}
		doPrintExpr(u.Operand, buf)
		break

	case ExprBinary:
		b := expr.(*Binary)
		buf.WriteString("(")
		doPrintExpr(b.L, buf)
		buf.WriteString(binaryOpName(b.Op))
		doPrintExpr(b.R, buf)
		buf.WriteString(")")
		break

	case ExprTernary:
		t := expr.(*Ternary)
		doPrintExpr(t.Cond, buf)
		buf.WriteString(" ? ")
		doPrintExpr(t.B0, buf)
		buf.WriteString(" : ")
		doPrintExpr(t.B1, buf)
		break

	case ExprSuffix:
		doPrintExprSuffix(expr.(*Suffix), buf)
		break

	default:
		panic("unreachable")
	}
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------
func doPrintStmtProjection(projection *Projection, buf *bytes.Buffer) {
	l := len(projection.ValueList)

	for idx, x := range projection.ValueList {
		switch x.Type() {
		case SelectVarCol:
			col := x.(*Col)
			doPrintExpr(col.Value, buf)
			if col.As != "" {
				buf.WriteString(" as ")
				buf.WriteString(col.As)
			}
			break

		case SelectVarTableStar:
			buf.WriteString(x.(*TableStar).Table)
			buf.WriteString(".*")
			break

		default:
			buf.WriteString("*")
			break
		}

		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintFromVar(x *FromVar, buf *bytes.Buffer) {
	if x.Lateral {
		buf.WriteString("lateral ")
	}

	switch x.Kind {
	case FromKindFunc:
		buf.WriteString(x.Name)
		buf.WriteString("(")
		ll := len(x.Args)
		for iidx, y := range x.Args {
			if y.IsTable() {
				buf.WriteString("table(")
				if y.Table.Name != "" {
					buf.WriteString(y.Table.Name)
				} else {
					doPrintSelect(y.Table.Query, buf)
				}
				buf.WriteString(")")
			} else {
				doPrintExpr(y.Value, buf)
			}
			if iidx < ll-1 {
				buf.WriteString(", ")
			}
		}
		buf.WriteString(")")
		break

	case FromKindValues:
		buf.WriteString("values ")
		for idx, tuple := range x.Tuples {
			buf.WriteString("(")
			for iidx, c := range tuple {
				doPrintExprConst(c, buf)
				if iidx < len(tuple)-1 {
					buf.WriteString(", ")
				}
			}
			buf.WriteString(")")
			if idx < len(x.Tuples)-1 {
				buf.WriteString(", ")
			}
		}
		break

	default:
		buf.WriteString(x.Name)
		break
	}

	if x.Alias != "" {
		buf.WriteString(" as ")
		buf.WriteString(x.Alias)
		if len(x.ColAlias) > 0 {
			buf.WriteString("(")
			buf.WriteString(strings.Join(x.ColAlias, ", "))
			buf.WriteString(")")
		}
	}
}

func doPrintStmtFrom(from *From, buf *bytes.Buffer) {
	buf.WriteString("\nfrom ")
	l := len(from.VarList)

	for idx, x := range from.VarList {
		doPrintFromVar(x, buf)
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintStmtWhere(where *Where, buf *bytes.Buffer) {
	buf.WriteString("\nwhere ")
	doPrintExpr(where.Condition, buf)
}

func doPrintStmtOrderBy(orderBy *OrderBy, buf *bytes.Buffer) {
	buf.WriteString("\norder by ")

	l := len(orderBy.Name)

	for idx, x := range orderBy.Name {
		doPrintExpr(x, buf)
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}

	if orderBy.Order == OrderAsc {
		buf.WriteString(" asc")
	} else {
		buf.WriteString(" desc")
	}
}

func doPrintStmtLimit(limit *Limit, buf *bytes.Buffer) {
	buf.WriteString("\nlimit ")
	buf.WriteString(fmt.Sprintf("%d", limit.Limit))
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	for idx, cte := range s.With {
		if idx == 0 {
			buf.WriteString("with ")
		} else {
			buf.WriteString(", ")
		}
		buf.WriteString(cte.Name)
		buf.WriteString(" as (")
		doPrintSelect(cte.Query, buf)
		buf.WriteString(")\n")
	}

	if s.Distinct {
		buf.WriteString("select distinct\n")
	} else {
		buf.WriteString("select\n")
	}

	doPrintStmtProjection(s.Projection, buf)
	if s.From != nil {
		doPrintStmtFrom(s.From, buf)
	}

	if s.Where != nil {
		doPrintStmtWhere(s.Where, buf)
	}
	if s.OrderBy != nil {
		doPrintStmtOrderBy(s.OrderBy, buf)
	}
	if s.Limit != nil {
		doPrintStmtLimit(s.Limit, buf)
	}
}

func PrintExpr(expr Expr) string {
	if expr == nil {
		return ""
	}
	b := &bytes.Buffer{}
	doPrintExpr(expr, b)
	return b.String()
}

func PrintSelect(s *Select) string {
	b := &bytes.Buffer{}
	doPrintSelect(s, b)
	return b.String()
}

func PrintCode(c *Code) string {
	b := &bytes.Buffer{}
	if c.CreateView != nil {
		cv := c.CreateView
		b.WriteString("create ")
		if cv.Replace {
			b.WriteString("or replace ")
		}
		if cv.Temporary {
			b.WriteString("temporary ")
		}
		b.WriteString("view ")
		b.WriteString(cv.Name)
		b.WriteString(" as ")
		doPrintSelect(cv.Query, b)
	} else {
		doPrintSelect(c.Select, b)
	}
	return b.String()
}
