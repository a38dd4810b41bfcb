package engine

import (
	"io"
	"os"

	"github.com/tabsql/tabsql/exec"
	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
)

// DataFrame is a materialized query result.
type DataFrame struct {
	schema *schema.Schema
	rows   []schema.Row
	format *plan.Format // format clause of the producing query, maybe nil
}

func (self *DataFrame) Schema() *schema.Schema { return self.schema }

// Collect returns the materialized rows. The slice is shared, callers must
// not mutate it.
func (self *DataFrame) Collect() []schema.Row { return self.rows }

func (self *DataFrame) Count() int { return len(self.rows) }

// Show renders the dataframe as a table, honoring the query's format clause
// when one was given.
func (self *DataFrame) Show(w io.Writer) error {
	f := self.format
	if f == nil {
		f = plan.DefaultFormat()
	}
	r := exec.NewRenderer(f, w)
	return r.Render(&exec.Result{Schema: self.schema, Rows: self.rows})
}

// Dump is Show to stdout, a debugging convenience.
func (self *DataFrame) Dump() {
	_ = self.Show(os.Stdout)
}
