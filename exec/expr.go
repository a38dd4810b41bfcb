package exec

import (
	"math"
	"regexp"
	"time"

	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

// Expression evaluation against one joined row tuple. Every name has been
// settled by the planner, evaluation never consults the catalog except for
// scalar builtin dispatch.

type env struct {
	ex    *executor
	tuple []schema.Row
}

func (self *env) eval(expr sql.Expr) (schema.Value, error) {
	switch expr.Type() {
	case sql.ExprConst:
		return constValue(expr.(*sql.Const)), nil

	case sql.ExprRef:
		return self.evalRef(expr.(*sql.Ref))

	case sql.ExprPrimary:
		return self.evalPrimary(expr.(*sql.Primary))

	case sql.ExprUnary:
		return self.evalUnary(expr.(*sql.Unary))

	case sql.ExprBinary:
		return self.evalBinary(expr.(*sql.Binary))

	case sql.ExprTernary:
		return self.evalTernary(expr.(*sql.Ternary))

	default:
		return nil, self.ex.err("cannot evaluate expression: %s", sql.PrintExpr(expr))
	}
}

func constValue(c *sql.Const) schema.Value {
	switch c.Ty {
	case sql.ConstBool:
		return c.Bool
	case sql.ConstInt:
		return c.Int
	case sql.ConstReal:
		return c.Real
	case sql.ConstStr:
		return c.String
	case sql.ConstNull:
		return nil
	default:
		panic("unreachable")
	}
}

func (self *env) column(tidx, cidx int) (schema.Value, error) {
	if tidx >= len(self.tuple) || self.tuple[tidx] == nil {
		return nil, self.ex.err("column reference out of scope")
	}
	row := self.tuple[tidx]
	if cidx >= len(row) {
		return nil, self.ex.err("column index %d out of range", cidx)
	}
	return row[cidx], nil
}

func (self *env) evalRef(ref *sql.Ref) (schema.Value, error) {
	cn := &ref.CanName
	switch {
	case cn.IsTableColumn():
		return self.column(cn.TableIndex, cn.ColumnIndex)
	case cn.IsReference():
		return self.eval(cn.Reference)
	case cn.IsGlobal():
		return nil, self.ex.err("bare function name: %s used as a value", ref.Id)
	default:
		return nil, self.ex.err("unresolved name: %s", ref.Id)
	}
}

func (self *env) evalPrimary(primary *sql.Primary) (schema.Value, error) {
	cn := &primary.CanName

	if cn.IsTableColumn() {
		base, err := self.column(cn.TableIndex, cn.ColumnIndex)
		if err != nil {
			return nil, err
		}
		ty := self.ex.plan.Tables[cn.TableIndex].Schema.Fields[cn.ColumnIndex].Type
		return self.applySuffixes(base, ty, primary.Suffix[1:])
	}

	if lead, ok := primary.Leading.(*sql.Ref); ok &&
		len(primary.Suffix) > 0 &&
		primary.Suffix[0].Ty == sql.SuffixCall {
		v, err := self.evalCall(lead.Id, primary.Suffix[0].Call)
		if err != nil {
			return nil, err
		}
		return self.applySuffixes(v, nil, primary.Suffix[1:])
	}

	base, err := self.eval(primary.Leading)
	if err != nil {
		return nil, err
	}
	return self.applySuffixes(base, nil, primary.Suffix)
}

func (self *env) evalCall(name string, call *sql.Call) (schema.Value, error) {
	args := make([]schema.Value, 0, len(call.Parameters))
	for _, p := range call.Parameters {
		v, err := self.eval(p)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return self.ex.rt.Scalar(name, args)
}

// walk trailing accessors of a value. The static type, when known, is used
// to turn struct field names into positional indices, a struct value is a
// bare row at runtime.
func (self *env) applySuffixes(
	base schema.Value,
	ty *schema.Type,
	suffix []*sql.Suffix,
) (schema.Value, error) {
	for _, x := range suffix {
		if base == nil {
			return nil, nil // NULL propagates through any access
		}
		switch x.Ty {
		case sql.SuffixDot:
			v, nty, err := self.applyDot(base, ty, x.Component)
			if err != nil {
				return nil, err
			}
			base = v
			ty = nty
			break

		case sql.SuffixIndex:
			idx, err := self.eval(x.Index)
			if err != nil {
				return nil, err
			}
			v, nty, err := self.applyIndex(base, ty, idx)
			if err != nil {
				return nil, err
			}
			base = v
			ty = nty
			break

		default:
			return nil, self.ex.err("invalid accessor on value")
		}
	}
	return base, nil
}

func (self *env) applyDot(
	base schema.Value,
	ty *schema.Type,
	component string,
) (schema.Value, *schema.Type, error) {
	switch x := base.(type) {
	case schema.Row:
		if ty == nil || ty.Kind != schema.KindStruct {
			return nil, nil, self.ex.err("field access %s on untyped row", component)
		}
		for idx, f := range ty.Fields {
			if f.Name == component {
				return x[idx], f.Type, nil
			}
		}
		return nil, nil, self.ex.err("no field named %s", component)

	case *schema.Map:
		v, _ := x.Get(component)
		var ety *schema.Type
		if ty != nil {
			ety = ty.Elem
		}
		return v, ety, nil

	default:
		return nil, nil, self.ex.err("field access %s on %T value", component, base)
	}
}

func (self *env) applyIndex(
	base schema.Value,
	ty *schema.Type,
	idx schema.Value,
) (schema.Value, *schema.Type, error) {
	switch x := base.(type) {
	case []schema.Value:
		i, ok := idx.(int64)
		if !ok {
			return nil, nil, self.ex.err("array index is not an integer")
		}
		if i < 0 || i >= int64(len(x)) {
			return nil, nil, self.ex.err("array index %d out of range", i)
		}
		var ety *schema.Type
		if ty != nil {
			ety = ty.Elem
		}
		return x[i], ety, nil

	case *schema.Map:
		v, _ := x.Get(idx)
		var ety *schema.Type
		if ty != nil {
			ety = ty.Elem
		}
		return v, ety, nil

	default:
		return nil, nil, self.ex.err("index access on %T value", base)
	}
}

// ----------------------------------------------------------------------------
// operators
// ----------------------------------------------------------------------------

func truthy(v schema.Value) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func (self *env) evalUnary(unary *sql.Unary) (schema.Value, error) {
	v, err := self.eval(unary.Operand)
	if err != nil {
		return nil, err
	}

	// the op list applies right to left, ie closest to the operand first
	for i := len(unary.Op) - 1; i >= 0; i-- {
		switch unary.Op[i] {
		case sql.TkNot:
			if v == nil {
				// NOT NULL stays NULL
				break
			}
			v = !truthy(v)
			break

		case sql.TkSub:
			switch x := v.(type) {
			case int64:
				v = -x
			case float64:
				v = -x
			case nil:
				break
			default:
				return nil, self.ex.err("cannot negate %T value", v)
			}
			break

		case sql.TkAdd:
			break

		default:
			panic("unreachable")
		}
	}
	return v, nil
}

func (self *env) evalBinary(binary *sql.Binary) (schema.Value, error) {
	switch binary.Op {
	case sql.TkAnd, sql.TkOr:
		l, err := self.eval(binary.L)
		if err != nil {
			return nil, err
		}
		if binary.Op == sql.TkAnd && !truthy(l) {
			return false, nil
		}
		if binary.Op == sql.TkOr && truthy(l) {
			return true, nil
		}
		r, err := self.eval(binary.R)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil

	case sql.TkIs:
		l, err := self.eval(binary.L)
		if err != nil {
			return nil, err
		}
		return l == nil, nil

	default:
		break
	}

	l, err := self.eval(binary.L)
	if err != nil {
		return nil, err
	}
	r, err := self.eval(binary.R)
	if err != nil {
		return nil, err
	}

	switch binary.Op {
	case sql.TkAdd, sql.TkSub, sql.TkMul, sql.TkDiv, sql.TkMod:
		return self.arith(binary.Op, l, r)

	case sql.TkEq, sql.TkNe, sql.TkLt, sql.TkLe, sql.TkGt, sql.TkGe:
		return self.compare(binary.Op, l, r)

	case sql.TkLike:
		return self.like(l, r)

	default:
		panic("unreachable")
	}
}

func (self *env) arith(op int, l, r schema.Value) (schema.Value, error) {
	if l == nil || r == nil {
		return nil, nil
	}

	// string concatenation via +
	if op == sql.TkAdd {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}

	li, lIsInt := l.(int64)
	ri, rIsInt := r.(int64)

	if lIsInt && rIsInt && op != sql.TkDiv {
		switch op {
		case sql.TkAdd:
			return li + ri, nil
		case sql.TkSub:
			return li - ri, nil
		case sql.TkMul:
			return li * ri, nil
		case sql.TkMod:
			if ri == 0 {
				return nil, self.ex.err("modulo by zero")
			}
			return li % ri, nil
		}
	}

	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, self.ex.err("arithmetic on %T and %T values", l, r)
	}

	switch op {
	case sql.TkAdd:
		return lf + rf, nil
	case sql.TkSub:
		return lf - rf, nil
	case sql.TkMul:
		return lf * rf, nil
	case sql.TkDiv:
		if rf == 0 {
			return nil, self.ex.err("division by zero")
		}
		return lf / rf, nil
	case sql.TkMod:
		return math.Mod(lf, rf), nil
	default:
		panic("unreachable")
	}
}

func asFloat(v schema.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func (self *env) compare(op int, l, r schema.Value) (schema.Value, error) {
	if l == nil || r == nil {
		// SQL three valued logic degraded to false, IS NULL is the way to
		// test for NULL
		return false, nil
	}
	c := compareValues(l, r)
	switch op {
	case sql.TkEq:
		return c == 0, nil
	case sql.TkNe:
		return c != 0, nil
	case sql.TkLt:
		return c < 0, nil
	case sql.TkLe:
		return c <= 0, nil
	case sql.TkGt:
		return c > 0, nil
	case sql.TkGe:
		return c >= 0, nil
	default:
		panic("unreachable")
	}
}

func (self *env) like(l, r schema.Value) (schema.Value, error) {
	if l == nil || r == nil {
		return false, nil
	}
	str, ok := l.(string)
	if !ok {
		return nil, self.ex.err("like operand is not a string, got %T", l)
	}
	pattern, ok := r.(string)
	if !ok {
		return nil, self.ex.err("like pattern is not a string, got %T", r)
	}
	m, err := self.ex.likePattern(pattern)
	if err != nil {
		return nil, err
	}
	return m.re.MatchString(str), nil
}

func (self *env) evalTernary(ternary *sql.Ternary) (schema.Value, error) {
	cond, err := self.eval(ternary.Cond)
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return self.eval(ternary.B0)
	}
	return self.eval(ternary.B1)
}

// ----------------------------------------------------------------------------
// comparison and like helpers
// ----------------------------------------------------------------------------

// compareValues imposes a total order, numerics compare across int/float,
// anything incomparable falls back to its canonical rendering. NULL sorts
// first.
func compareValues(a, b schema.Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	ka := schema.FormatValue(a)
	kb := schema.FormatValue(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

type likeMatcher struct {
	re *regexp.Regexp
}

func (self *executor) likePattern(pattern string) (*likeMatcher, error) {
	if m, ok := self.regex[pattern]; ok {
		return m, nil
	}
	re, err := regexp.Compile(sql.LikeToRegex(pattern))
	if err != nil {
		return nil, self.err("invalid like pattern: %s", pattern)
	}
	m := &likeMatcher{re: re}
	self.regex[pattern] = m
	return m, nil
}
