package plan

import (
	"fmt"
	"math"

	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

func (self *Plan) planPrepare(s *sql.Select) error {
	// 1) scan table
	if err := self.scanTable(s); err != nil {
		return err
	}

	// 2) resolve all the symbols and resolve all the alias
	if err := self.resolveSymbol(s); err != nil {
		return err
	}

	// 3) perform semantic check
	if err := self.sema(s); err != nil {
		return err
	}
	return nil
}

// ----------------------------------------------------------------------------
// plan filter, the where clause maps to one filter node running right after
// the join

func (self *Plan) planFilter(s *sql.Select) {
	if s.Where != nil {
		self.Filter = &Filter{
			Condition: s.Where.Condition,
		}
	}
}

// ----------------------------------------------------------------------------
// plan the sorting

func (self *Plan) planSort(s *sql.Select) {
	if s.OrderBy != nil {
		asc := false
		if s.OrderBy.Order == sql.OrderAsc {
			asc = true
		}
		self.Sort = &Sort{
			Asc:     asc,
			VarList: s.OrderBy.Name,
		}
	}
}

// ----------------------------------------------------------------------------
// plan output
// output is lies inside of the SelectVar, just use select var will be fine,
// ie perform some expression operation. This is also where the output row
// shape gets inferred

func (self *Plan) planOutput(s *sql.Select) error {
	self.Output = &Output{}

	for _, x := range s.Projection.ValueList {
		switch x.Type() {
		case sql.SelectVarCol:
			col := x.(*sql.Col)
			self.Output.VarList = append(self.Output.VarList, OutputVar{
				Value: col.Value,
				Alias: col.Alias(),
			})
			break

		case sql.SelectVarTableStar:
			ts := x.(*sql.TableStar)
			td := self.findTableByAlias(ts.Table)
			if td == nil {
				return self.err(
					"plan-output",
					"unknown table: %s in qualified wildcard",
					ts.Table,
				)
			}
			self.Output.VarList = append(self.Output.VarList, OutputVar{
				TableWildcard: true,
				Table:         td,
			})
			break

		case sql.SelectVarStar:
			self.Output.Wildcard = true
			break

		default:
			break
		}
	}

	// Distinct
	self.Output.Distinct = s.Distinct

	// Limit
	if s.Limit != nil {
		self.Output.Limit = s.Limit.Limit
	} else {
		self.Output.Limit = math.MaxInt64
	}

	return self.planOutputSchema()
}

// infer the output row shape. A wildcard output is the concatenation of
// every source schema, otherwise each output var contributes its field,
// named after the alias when present.
func (self *Plan) planOutputSchema() error {
	out := &schema.Schema{}

	if self.Output.Wildcard {
		out.Fields = make([]schema.Field, 0, self.totalTableColumnSize())
		for _, td := range self.Tables {
			out.Fields = append(out.Fields, td.Schema.Fields...)
		}
		self.Output.Schema = out
		return nil
	}

	cidx := 0
	for _, ov := range self.Output.VarList {
		if ov.TableWildcard {
			out.Fields = append(out.Fields, ov.Table.Schema.Fields...)
			cidx += ov.Table.ColumnSize()
			continue
		}
		name := ov.Alias
		if name == "" {
			name = self.outputVarName(ov.Value, cidx)
		}
		out.Fields = append(out.Fields, schema.Field{
			Name:     name,
			Type:     self.inferExprType(ov.Value),
			Nullable: true,
		})
		cidx++
	}
	self.Output.Schema = out
	return nil
}

func (self *Plan) outputVarName(value sql.Expr, cidx int) string {
	switch value.Type() {
	case sql.ExprRef:
		ref := value.(*sql.Ref)
		if cn := &ref.CanName; cn.IsTableColumn() && cn.Reference == nil {
			return self.Tables[cn.TableIndex].Schema.Fields[cn.ColumnIndex].Name
		}
		return ref.Id

	case sql.ExprPrimary:
		primary := value.(*sql.Primary)
		// a dot chain names the output after its last component
		if n := len(primary.Suffix); n > 0 {
			if last := primary.Suffix[n-1]; last.Ty == sql.SuffixDot {
				return last.Component
			}
		}
		return fmt.Sprintf("c%d", cidx)

	default:
		return fmt.Sprintf("c%d", cidx)
	}
}

// best effort type inference of an output expression. Anything we cannot
// decide statically degrades into string, the executor materializes the
// real value regardless.
func (self *Plan) inferExprType(value sql.Expr) *schema.Type {
	switch value.Type() {
	case sql.ExprConst:
		c := value.(*sql.Const)
		switch c.Ty {
		case sql.ConstBool:
			return schema.Scalar(schema.KindBool)
		case sql.ConstInt:
			return schema.Scalar(schema.KindBigint)
		case sql.ConstReal:
			return schema.Scalar(schema.KindDouble)
		default:
			return schema.Scalar(schema.KindString)
		}

	case sql.ExprRef:
		ref := value.(*sql.Ref)
		if cn := &ref.CanName; cn.IsTableColumn() {
			return self.columnType(cn.TableIndex, cn.ColumnIndex)
		}
		if ref.CanName.IsReference() {
			return self.inferExprType(ref.CanName.Reference)
		}
		return schema.Scalar(schema.KindString)

	case sql.ExprPrimary:
		primary := value.(*sql.Primary)
		if cn := &primary.CanName; cn.IsTableColumn() {
			ty := self.columnType(cn.TableIndex, cn.ColumnIndex)
			return self.chaseSuffixType(ty, primary.Suffix[1:])
		}
		return schema.Scalar(schema.KindString)

	case sql.ExprUnary:
		unary := value.(*sql.Unary)
		for _, op := range unary.Op {
			if op == sql.TkNot {
				return schema.Scalar(schema.KindBool)
			}
		}
		return self.inferExprType(unary.Operand)

	case sql.ExprBinary:
		binary := value.(*sql.Binary)
		switch binary.Op {
		case sql.TkAdd, sql.TkSub, sql.TkMul, sql.TkDiv, sql.TkMod:
			l := self.inferExprType(binary.L)
			r := self.inferExprType(binary.R)
			if l.Kind == schema.KindDouble || r.Kind == schema.KindDouble ||
				l.Kind == schema.KindFloat || r.Kind == schema.KindFloat {
				return schema.Scalar(schema.KindDouble)
			}
			if l.IsNumeric() && r.IsNumeric() {
				return schema.Scalar(schema.KindBigint)
			}
			return schema.Scalar(schema.KindString)
		default:
			// comparison, logical, like, is
			return schema.Scalar(schema.KindBool)
		}

	case sql.ExprTernary:
		return self.inferExprType(value.(*sql.Ternary).B0)

	default:
		return schema.Scalar(schema.KindString)
	}
}

func (self *Plan) columnType(tidx, cidx int) *schema.Type {
	sch := self.Tables[tidx].Schema
	if cidx < sch.Size() {
		return sch.Fields[cidx].Type
	}
	return schema.Scalar(schema.KindString)
}

// walk the trailing accesses of a settled primary through the column type,
// ie struct fields, array elements or map values
func (self *Plan) chaseSuffixType(ty *schema.Type, suffix []*sql.Suffix) *schema.Type {
	for _, x := range suffix {
		switch x.Ty {
		case sql.SuffixDot:
			if ty.Kind != schema.KindStruct {
				return schema.Scalar(schema.KindString)
			}
			found := false
			for _, f := range ty.Fields {
				if f.Name == x.Component {
					ty = f.Type
					found = true
					break
				}
			}
			if !found {
				return schema.Scalar(schema.KindString)
			}
			break

		case sql.SuffixIndex:
			switch ty.Kind {
			case schema.KindArray:
				ty = ty.Elem
			case schema.KindMap:
				ty = ty.Elem
			default:
				return schema.Scalar(schema.KindString)
			}
			break

		default:
			return schema.Scalar(schema.KindString)
		}
	}
	return ty
}

func (self *Plan) plan(s *sql.Select) error {
	if err := self.planPrepare(s); err != nil {
		return err
	}
	self.planFilter(s)
	self.planSort(s)
	if err := self.planOutput(s); err != nil {
		return err
	}
	if err := self.planFormat(s); err != nil {
		return err
	}
	return nil
}
