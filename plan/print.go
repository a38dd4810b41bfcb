package plan

import (
	"fmt"
	"strings"

	"github.com/tabsql/tabsql/sql"
)

// Printing the plan out, for testing, debugging, visualization purpose etc ...

func (self *Plan) Print() string {
	buf := &strings.Builder{}
	self.printTableList(buf)
	self.printFilter(buf)
	self.printOutput(buf)
	self.printSort(buf)
	return buf.String()
}

func sourceKindName(kind int) string {
	switch kind {
	case SourceFunc:
		return "func"
	case SourceValues:
		return "values"
	case SourceView:
		return "view"
	default:
		panic("unreachable")
	}
}

func (self *Plan) printTableDescriptor(
	ts *TableDescriptor,
	buf *strings.Builder,
) {
	buf.WriteString("##> Table Descriptor\n")
	buf.WriteString(fmt.Sprintf("Index: %d\n", ts.Index))
	buf.WriteString(fmt.Sprintf("Kind: %s\n", sourceKindName(ts.Kind)))
	buf.WriteString(fmt.Sprintf("Name: %s\n", ts.Name))
	buf.WriteString(fmt.Sprintf("Alias: %s\n", ts.Alias))
	buf.WriteString(fmt.Sprintf("Lateral: %v\n", ts.Lateral))
	buf.WriteString(fmt.Sprintf("Symbol: %s\n", ts.Symbol))
	buf.WriteString(fmt.Sprintf("Schema: %s\n", ts.Schema.String()))

	for idx, arg := range ts.Args {
		switch {
		case arg.TablePlan != nil:
			buf.WriteString(fmt.Sprintf("Arg[%d]: TABLE(<subquery>)\n", idx))
			break
		case arg.ViewName != "":
			buf.WriteString(fmt.Sprintf("Arg[%d]: TABLE(%s)\n", idx, arg.ViewName))
			break
		default:
			buf.WriteString(fmt.Sprintf("Arg[%d]: %s\n", idx, sql.PrintExpr(arg.Value)))
			break
		}
	}
}

func (self *Plan) printTableList(
	buf *strings.Builder,
) {
	for _, ts := range self.Tables {
		self.printTableDescriptor(ts, buf)
	}
}

func (self *Plan) printFilter(
	buf *strings.Builder,
) {
	buf.WriteString("##> Filter\n")
	if self.Filter == nil {
		buf.WriteString("--\n")
	} else {
		buf.WriteString(fmt.Sprintf("Condition: %s\n", sql.PrintExpr(self.Filter.Condition)))
	}
}

func (self *Plan) printOutput(
	buf *strings.Builder,
) {
	output := self.Output
	buf.WriteString("##> Output\n")
	buf.WriteString(fmt.Sprintf("Limit: %d\n", output.Limit))
	buf.WriteString(fmt.Sprintf("Distinct: %v\n", output.Distinct))
	buf.WriteString(fmt.Sprintf("Wildcard: %v\n", output.Wildcard))
	buf.WriteString(fmt.Sprintf("Schema: %s\n", output.Schema.String()))

	for idx, ovar := range output.VarList {
		if ovar.TableWildcard {
			buf.WriteString(
				fmt.Sprintf(
					"Var[%d]: %s\n",
					idx,
					fmt.Sprintf("tbl[%d].*", ovar.Table.Index),
				),
			)
		} else {
			buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, sql.PrintExpr(ovar.Value)))
		}
	}
}

func (self *Plan) printSort(
	buf *strings.Builder,
) {
	sort := self.Sort
	buf.WriteString("##> OrderBy\n")
	if sort == nil {
		buf.WriteString("--\n")
	} else {
		if sort.Asc {
			buf.WriteString("Order: asc\n")
		} else {
			buf.WriteString("Order: desc\n")
		}
		for idx, expr := range sort.VarList {
			buf.WriteString(fmt.Sprintf("Sort[%d]: %s\n", idx, sql.PrintExpr(expr)))
		}
	}
}
