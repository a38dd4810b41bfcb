package plan

import (
	"fmt"

	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

// scan the from clause and settle each source into a table descriptor. This
// is the only phase that talks to the catalog.
func (self *Plan) scanTable(s *sql.Select) error {
	if len(s.From.VarList) > self.Config.MaxTableSize {
		return self.err(
			"scan-table",
			"too many table sources, more than: %d",
			self.Config.MaxTableSize,
		)
	}

	for idx, fv := range s.From.VarList {
		td, err := self.genTableDescriptor(idx, fv)
		if err != nil {
			return err
		}
		self.Tables = append(self.Tables, td)
	}
	return self.checkTableAlias()
}

func (self *Plan) genTableDescriptor(
	idx int,
	fv *sql.FromVar,
) (*TableDescriptor, error) {
	out := &TableDescriptor{
		Index:   idx,
		Name:    fv.Name,
		Lateral: fv.Lateral,
		Alias:   fv.Alias,
		Symbol:  fmt.Sprintf("tbl%d", idx),
	}

	switch fv.Kind {
	case sql.FromKindFunc:
		out.Kind = SourceFunc
		if err := self.settleFuncSource(out, fv); err != nil {
			return nil, err
		}
		break

	case sql.FromKindValues:
		out.Kind = SourceValues
		if err := self.settleValuesSource(out, fv); err != nil {
			return nil, err
		}
		break

	case sql.FromKindRef:
		out.Kind = SourceView
		sch, err := self.catalog.LookupView(fv.Name)
		if err != nil {
			return nil, err
		}
		out.Schema = sch
		if out.Alias == "" {
			out.Alias = fv.Name
		}
		break

	default:
		panic("unreachable")
	}

	return out, nil
}

// ----------------------------------------------------------------------------
// table function source
// ----------------------------------------------------------------------------

func (self *Plan) settleFuncSource(
	td *TableDescriptor,
	fv *sql.FromVar,
) error {
	def, err := self.catalog.LookupFunction(fv.Name)
	if err != nil {
		return err
	}
	td.Func = def
	td.Schema = def.Schema

	if def.Args >= 0 && def.Args != len(fv.Args) {
		return self.errW(
			"scan-table",
			ErrWrongNumArgs,
			"function %s expects %d argument(s), got %d",
			fv.Name,
			def.Args,
			len(fv.Args),
		)
	}

	tableArgs := 0
	for _, arg := range fv.Args {
		fa, err := self.settleFuncArg(fv, arg)
		if err != nil {
			return err
		}
		if fa.IsTable() {
			tableArgs++
		}
		td.Args = append(td.Args, fa)
	}

	if tableArgs > 1 && !self.Config.AllowMultipleTableArguments {
		return self.errW(
			"scan-table",
			ErrTooManyTableArguments,
			"function %s is called with %d TABLE arguments",
			fv.Name,
			tableArgs,
		)
	}
	return nil
}

func (self *Plan) settleFuncArg(
	fv *sql.FromVar,
	arg *sql.FromArg,
) (*FuncArg, error) {
	if !arg.IsTable() {
		return &FuncArg{Value: arg.Value}, nil
	}

	if arg.Table.Query != nil {
		// TABLE(select ...), the inner select becomes its own plan whose
		// output rows feed the function
		sub, err := PlanQuery(arg.Table.Query, self.catalog, self.Config)
		if err != nil {
			return nil, self.err(
				"scan-table",
				"invalid TABLE argument of function %s: %s",
				fv.Name,
				err.Error(),
			)
		}
		return &FuncArg{
			TablePlan: sub,
			RowSchema: sub.Output.Schema,
		}, nil
	}

	sch, err := self.catalog.LookupView(arg.Table.Name)
	if err != nil {
		return nil, err
	}
	return &FuncArg{
		ViewName:  arg.Table.Name,
		RowSchema: sch,
	}, nil
}

// ----------------------------------------------------------------------------
// values source
// ----------------------------------------------------------------------------

func (self *Plan) settleValuesSource(
	td *TableDescriptor,
	fv *sql.FromVar,
) error {
	if len(fv.Tuples) == 0 {
		return self.err("scan-table", "values source has no tuple")
	}

	width := len(fv.Tuples[0])
	kinds := make([]int, width)
	for i := range kinds {
		kinds[i] = sql.ConstNull
	}

	for tidx, tuple := range fv.Tuples {
		if len(tuple) != width {
			return self.err(
				"scan-table",
				"values tuple #%d has %d element(s), expect %d",
				tidx,
				len(tuple),
				width,
			)
		}
		row := make(schema.Row, width)
		for i, c := range tuple {
			kinds[i] = mergeConstKind(kinds[i], c.Ty)
			if kinds[i] < 0 {
				return self.err(
					"scan-table",
					"values column #%d mixes incompatible types",
					i,
				)
			}
			row[i] = constValue(c)
		}
		td.Rows = append(td.Rows, row)
	}

	if len(fv.ColAlias) != 0 && len(fv.ColAlias) != width {
		return self.err(
			"scan-table",
			"values source declares %d column alias(es), expect %d",
			len(fv.ColAlias),
			width,
		)
	}

	fields := make([]schema.Field, width)
	for i := 0; i < width; i++ {
		name := fmt.Sprintf("c%d", i)
		if len(fv.ColAlias) != 0 {
			name = fv.ColAlias[i]
		}
		fields[i] = schema.Field{
			Name:     name,
			Type:     schema.Scalar(constKindToSchemaKind(kinds[i])),
			Nullable: true,
		}
	}
	td.Schema = &schema.Schema{Fields: fields}

	// the widening pass, ie an int column that later saw a real constant
	// must be normalized into float64 rows
	for _, row := range td.Rows {
		for i, v := range row {
			if kinds[i] == sql.ConstReal {
				if iv, ok := v.(int64); ok {
					row[i] = float64(iv)
				}
			}
		}
	}
	return nil
}

// merge the running constant kind of a values column with the next tuple's
// element. Null is transparent, int widens into real, otherwise the kinds
// must agree. Returns -1 on conflict.
func mergeConstKind(cur, next int) int {
	if next == sql.ConstNull {
		return cur
	}
	if cur == sql.ConstNull {
		return next
	}
	if cur == next {
		return cur
	}
	if (cur == sql.ConstInt && next == sql.ConstReal) ||
		(cur == sql.ConstReal && next == sql.ConstInt) {
		return sql.ConstReal
	}
	return -1
}

func constKindToSchemaKind(k int) int {
	switch k {
	case sql.ConstBool:
		return schema.KindBool
	case sql.ConstInt:
		return schema.KindBigint
	case sql.ConstReal:
		return schema.KindDouble
	case sql.ConstStr, sql.ConstNull:
		return schema.KindString
	default:
		panic("unreachable")
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

// ----------------------------------------------------------------------------
// alias bookkeeping
// ----------------------------------------------------------------------------

func (self *Plan) checkTableAlias() error {
	seen := make(map[string]bool)
	for _, td := range self.Tables {
		if td.Alias == "" {
			continue
		}
		if seen[td.Alias] {
			return self.err(
				"scan-table",
				"duplicated table alias: %s",
				td.Alias,
			)
		}
		seen[td.Alias] = true
	}
	return nil
}

func (self *Plan) findTableByAlias(alias string) *TableDescriptor {
	for _, td := range self.Tables {
		if td.Alias == alias {
			return td
		}
	}
	return nil
}
