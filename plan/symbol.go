package plan

import (
	"github.com/tabsql/tabsql/sql"
)

// Try to resolve the symbol inside of the expression tree and generate some
// correct representation of the SQL tree. Part of the plan
//
// The resolution runs in 2 passes,
//
// 1) canonicalize, which settles whatever can be settled against the table
//    schemas, ie bare column names, $N positional names and alias qualified
//    dot references. Free names are left free
//
// 2) alias, which settles the leftover free names against the projection
//    alias table, or fails with unknown column

// search a column name through the first *limit* table schemas. Returns the
// last hit along with the hit count, the caller decides what a count != 1
// means.
func (self *Plan) findColumn(
	name string,
	limit int,
) (int, int, int) {
	tidx := -1
	cidx := -1
	cnt := 0
	for i := 0; i < limit; i++ {
		td := self.Tables[i]
		if j := td.Schema.Index(name); j >= 0 {
			tidx = i
			cidx = j
			cnt++
		}
	}
	return tidx, cidx, cnt
}

type visitorResolveSymbol struct {
	p     *Plan
	limit int // only tables with Index < limit are visible
}

func (self *visitorResolveSymbol) resolveName(
	id string,
	cn *sql.CanName,
) error {
	if cn.IsSettled() {
		return nil
	}

	if cidx, ok := sql.PositionalRef(id); ok {
		if self.limit != 1 {
			return self.p.err(
				"resolve-symbol",
				"positional reference %s is ambiguous, %d tables are in scope",
				id,
				self.limit,
			)
		}
		if cidx >= self.p.Tables[0].ColumnSize() {
			return self.p.errW(
				"resolve-symbol",
				ErrUnknownColumn,
				"positional reference %s is out of range",
				id,
			)
		}
		cn.Set(0, cidx)
		return nil
	}

	tidx, cidx, cnt := self.p.findColumn(id, self.limit)
	switch cnt {
	case 0:
		// leave it free, the alias pass gets another go at it
		return nil
	case 1:
		cn.Set(tidx, cidx)
		return nil
	default:
		return self.p.err(
			"resolve-symbol",
			"column name: %s is ambiguous, found in %d tables",
			id,
			cnt,
		)
	}
}

func (self *visitorResolveSymbol) resolveQualified(
	primary *sql.Primary,
) (bool, error) {
	tableName := primary.Leading.(*sql.Ref).Id
	component := primary.Suffix[0].Component

	td := self.p.findTableByAlias(tableName)
	if td == nil || td.Index >= self.limit {
		// not a table alias, the leading maybe a struct typed column whose
		// field is accessed at runtime. Fall back to plain resolution
		return true, nil
	}

	cidx := td.Schema.Index(component)
	if cidx < 0 {
		if pos, ok := sql.PositionalRef(component); ok && pos < td.ColumnSize() {
			cidx = pos
		} else {
			return false, self.p.errW(
				"resolve-symbol",
				ErrUnknownColumn,
				"table %s has no column named %s",
				tableName,
				component,
			)
		}
	}
	primary.CanName.Set(td.Index, cidx)

	// the trailing suffixes, if any, are runtime accesses whose operands
	// still need resolution
	for _, x := range primary.Suffix[1:] {
		if err := self.visitSuffixOperand(x); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (self *visitorResolveSymbol) visitSuffixOperand(
	suffix *sql.Suffix,
) error {
	switch suffix.Ty {
	case sql.SuffixCall:
		for _, p := range suffix.Call.Parameters {
			if err := sql.VisitExprPreOrder(self, p); err != nil {
				return err
			}
		}
		break
	case sql.SuffixIndex:
		if err := sql.VisitExprPreOrder(self, suffix.Index); err != nil {
			return err
		}
		break
	default:
		break
	}
	return nil
}

func (self *visitorResolveSymbol) AcceptRef(
	ref *sql.Ref,
) (bool, error) {
	if err := self.resolveName(ref.Id, &ref.CanName); err != nil {
		return false, err
	}
	return true, nil
}

func (self *visitorResolveSymbol) AcceptPrimary(
	primary *sql.Primary,
) (bool, error) {
	if primary.Leading.Type() == sql.ExprRef && len(primary.Suffix) > 0 {
		switch primary.Suffix[0].Ty {
		case sql.SuffixCall:
			// scalar function call, the leading name lives in the function
			// namespace instead of the column one
			primary.Leading.(*sql.Ref).CanName.SetGlobal()
			for _, x := range primary.Suffix {
				if err := self.visitSuffixOperand(x); err != nil {
					return false, err
				}
			}
			return false, nil

		case sql.SuffixDot:
			return self.resolveQualified(primary)

		default:
			break
		}
	}
	return true, nil
}

func (self *visitorResolveSymbol) AcceptConst(*sql.Const) (bool, error) {
	return true, nil
}

func (self *visitorResolveSymbol) AcceptSuffix(*sql.Suffix) (bool, error) {
	return true, nil
}

func (self *visitorResolveSymbol) AcceptUnary(*sql.Unary) (bool, error) {
	return true, nil
}

func (self *visitorResolveSymbol) AcceptBinary(*sql.Binary) (bool, error) {
	return true, nil
}

func (self *visitorResolveSymbol) AcceptTernary(*sql.Ternary) (bool, error) {
	return true, nil
}

func (self *Plan) resolveSymbolExpr(
	expr sql.Expr,
	limit int,
) error {
	return sql.VisitExprPreOrder(
		&visitorResolveSymbol{
			p:     self,
			limit: limit,
		},
		expr,
	)
}

func (self *Plan) canonicalize(s *sql.Select) error {
	all := len(self.Tables)

	// 1.1) Projections
	for _, x := range s.Projection.ValueList {
		if col, ok := x.(*sql.Col); ok {
			if err := self.resolveSymbolExpr(col.Value, all); err != nil {
				return err
			}
		}
	}

	// 1.2) Where
	if s.Where != nil {
		if err := self.resolveSymbolExpr(s.Where.Condition, all); err != nil {
			return err
		}
	}

	// 1.3) Order by
	if s.OrderBy != nil {
		for _, cn := range s.OrderBy.Name {
			if err := self.resolveSymbolExpr(cn, all); err != nil {
				return err
			}
		}
	}

	return nil
}

// settle the scalar arguments of each table function source. A source only
// sees the tables on its left. Whether referencing them is legal at all is
// the semantic checker's business, a non-lateral source gets a correlated
// reference error there.
func (self *Plan) resolveFuncArgs() error {
	for _, td := range self.Tables {
		if td.Kind != SourceFunc {
			continue
		}
		limit := td.Index
		for _, arg := range td.Args {
			if arg.IsTable() {
				continue
			}
			if err := self.resolveSymbolExpr(arg.Value, limit); err != nil {
				return err
			}
			if err := self.ensureSettledExpr(arg.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// alias pass
// ----------------------------------------------------------------------------

func (self *Plan) setupAlias(projection *sql.Projection) error {
	for _, x := range projection.ValueList {
		if x.Alias() != "" {
			col := x.(*sql.Col)
			if _, ok := self.alias[x.Alias()]; ok {
				return self.err("resolve-symbol", "alias: %s already existed", x.Alias())
			}
			self.alias[x.Alias()] = col.Value
		}
	}
	return nil
}

func (self *Plan) findAlias(id string) sql.Expr {
	return self.alias[id]
}

func (self *Plan) resolveAliasId(id string, cn *sql.CanName) error {
	if cn.IsSettled() {
		return nil // do nothing, if the name already been settled
	}

	if alias := self.findAlias(id); alias != nil {
		cn.SetRef(alias)
	} else {
		return self.errW(
			"resolve-symbol",
			ErrUnknownColumn,
			"id: %s is unknown",
			id,
		)
	}
	return nil
}

type visitorAlias struct {
	p *Plan
}

func (self *visitorAlias) AcceptRef(
	ref *sql.Ref,
) (bool, error) {
	if err := self.p.resolveAliasId(ref.Id, &ref.CanName); err != nil {
		return false, err
	}
	return true, nil
}

func (self *visitorAlias) AcceptPrimary(
	primary *sql.Primary,
) (bool, error) {
	if primary.CanName.IsSettled() {
		// already a table column, only the trailing runtime accesses may
		// still hold free names
		for _, x := range primary.Suffix[1:] {
			if err := self.visitSuffixOperand(x); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if len(primary.Suffix) > 0 && primary.Suffix[0].Ty == sql.SuffixCall {
		// function call, the leading is a global name, skip it but walk the
		// arguments
		for _, x := range primary.Suffix {
			if err := self.visitSuffixOperand(x); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	return true, nil
}

func (self *visitorAlias) visitSuffixOperand(
	suffix *sql.Suffix,
) error {
	switch suffix.Ty {
	case sql.SuffixCall:
		for _, p := range suffix.Call.Parameters {
			if err := sql.VisitExprPreOrder(self, p); err != nil {
				return err
			}
		}
		break
	case sql.SuffixIndex:
		if err := sql.VisitExprPreOrder(self, suffix.Index); err != nil {
			return err
		}
		break
	default:
		break
	}
	return nil
}

func (self *visitorAlias) AcceptConst(*sql.Const) (bool, error) {
	return true, nil
}

func (self *visitorAlias) AcceptSuffix(*sql.Suffix) (bool, error) {
	return true, nil
}

func (self *visitorAlias) AcceptUnary(*sql.Unary) (bool, error) {
	return true, nil
}

func (self *visitorAlias) AcceptBinary(*sql.Binary) (bool, error) {
	return true, nil
}

func (self *visitorAlias) AcceptTernary(*sql.Ternary) (bool, error) {
	return true, nil
}

func (self *Plan) resolveAliasExpr(expr sql.Expr) error {
	return sql.VisitExprPreOrder(
		&visitorAlias{
			p: self,
		},
		expr,
	)
}

// after the alias pass every name must have been settled. The function args
// run through this *before* the alias table exists, which bans projection
// aliases from function arguments.
func (self *Plan) ensureSettledExpr(expr sql.Expr) error {
	return self.resolveAliasExpr(expr)
}

func (self *Plan) resolveAlias(s *sql.Select) error {
	// setup alias table, otherwise failed with error
	if err := self.setupAlias(s.Projection); err != nil {
		return err
	}

	// go through each component of select to finally resolve/settle down the
	// symbol, otherwise failed
	for _, p := range s.Projection.ValueList {
		col, ok := p.(*sql.Col)
		if ok {
			if err := self.resolveAliasExpr(col.Value); err != nil {
				return err
			}
		}
	}

	// where clause
	if s.Where != nil {
		if err := self.resolveAliasExpr(s.Where.Condition); err != nil {
			return err
		}
	}

	// order by
	if s.OrderBy != nil {
		for _, cn := range s.OrderBy.Name {
			if err := self.resolveAliasExpr(cn); err != nil {
				return err
			}
		}
	}

	return nil
}

func (self *Plan) resolveSymbol(s *sql.Select) error {
	// 1) settle the function arguments first, the projection alias table is
	//    not visible to them
	if err := self.resolveFuncArgs(); err != nil {
		return err
	}

	// 2) resolve symbol to its canonicalized name if we can, ie basically
	//    resolve any dot suffix expression to be full name
	if err := self.canonicalize(s); err != nil {
		return err
	}

	// 3) resolve the leftover names against the projection alias
	if err := self.resolveAlias(s); err != nil {
		return err
	}

	return nil
}
