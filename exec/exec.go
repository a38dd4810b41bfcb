package exec

import (
	"fmt"
	"sort"

	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
)

// The interpreter of a plan. Execution is fully materializing, each source
// is drained into memory, the join is a plain nested loop and the output is
// a slice of rows. The scale here is test fixtures, not warehouses.

// Generator is one open instance of a table function. The protocol follows
// the usual value generator shape, Start once, then Next/Values until Next
// reports false, then Close.
type Generator interface {
	Start() error
	Next() (bool, error)
	Values() (schema.Row, error)
	Close()
}

// Arg is one fully evaluated argument of a table function call. A TABLE
// argument arrives as materialized rows.
type Arg struct {
	Value     schema.Value
	Rows      []schema.Row
	RowSchema *schema.Schema
	IsTable   bool
}

// Runtime supplies everything the interpreter cannot know, the function
// registry, the views and the scalar builtins. The engine package owns the
// implementation.
type Runtime interface {
	OpenFunction(name string, args []Arg) (Generator, error)
	ViewRows(name string) ([]schema.Row, error)
	Scalar(name string, args []schema.Value) (schema.Value, error)
}

type Result struct {
	Schema *schema.Schema
	Rows   []schema.Row
}

func Run(p *plan.Plan, rt Runtime) (*Result, error) {
	e := &executor{
		plan:   p,
		rt:     rt,
		static: make([][]schema.Row, len(p.Tables)),
		regex:  make(map[string]*likeMatcher),
	}
	return e.run()
}

type executor struct {
	plan   *plan.Plan
	rt     Runtime
	static [][]schema.Row // materialized non-lateral sources, by table index
	regex  map[string]*likeMatcher
}

func (self *executor) err(f string, args ...interface{}) error {
	return fmt.Errorf("exec: %s", fmt.Sprintf(f, args...))
}

func (self *executor) run() (*Result, error) {
	// 1) materialize the non-lateral sources upfront, a lateral one gets
	//    re-opened per outer tuple inside of the join loop
	for _, td := range self.plan.Tables {
		if td.Lateral {
			continue
		}
		rows, err := self.materialize(td, nil)
		if err != nil {
			return nil, err
		}
		self.static[td.Index] = rows
	}

	// 2) nested loop join plus filter
	var tuples [][]schema.Row
	tuple := make([]schema.Row, len(self.plan.Tables))

	var join func(idx int) error
	join = func(idx int) error {
		if idx == len(self.plan.Tables) {
			ok, err := self.filter(tuple)
			if err != nil {
				return err
			}
			if ok {
				cp := make([]schema.Row, len(tuple))
				copy(cp, tuple)
				tuples = append(tuples, cp)
			}
			return nil
		}

		td := self.plan.Tables[idx]
		rows := self.static[idx]
		if td.Lateral {
			var err error
			rows, err = self.materialize(td, tuple[:idx])
			if err != nil {
				return err
			}
		}

		for _, r := range rows {
			tuple[idx] = r
			if err := join(idx + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := join(0); err != nil {
		return nil, err
	}

	// 3) sort
	if err := self.sortTuples(tuples); err != nil {
		return nil, err
	}

	// 4) project, distinct, limit
	out := &Result{Schema: self.plan.Output.Schema}
	var seen map[string]bool
	if self.plan.Output.Distinct {
		seen = make(map[string]bool)
	}

	for _, tp := range tuples {
		if self.plan.Output.HasLimit() &&
			int64(len(out.Rows)) >= self.plan.Output.Limit {
			break
		}
		row, err := self.project(tp)
		if err != nil {
			return nil, err
		}
		if seen != nil {
			key := schema.SortKey(row)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// source materialization
// ----------------------------------------------------------------------------

func (self *executor) materialize(
	td *plan.TableDescriptor,
	outer []schema.Row,
) ([]schema.Row, error) {
	switch td.Kind {
	case plan.SourceValues:
		return td.Rows, nil

	case plan.SourceView:
		return self.rt.ViewRows(td.Name)

	case plan.SourceFunc:
		return self.invoke(td, outer)

	default:
		panic("unreachable")
	}
}

func (self *executor) invoke(
	td *plan.TableDescriptor,
	outer []schema.Row,
) ([]schema.Row, error) {
	env := &env{ex: self, tuple: outer}

	args := make([]Arg, 0, len(td.Args))
	for _, a := range td.Args {
		arg, err := self.evalFuncArg(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	gen, err := self.rt.OpenFunction(td.Name, args)
	if err != nil {
		return nil, err
	}
	defer gen.Close()

	if err := gen.Start(); err != nil {
		return nil, err
	}

	var out []schema.Row
	for {
		more, err := gen.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		row, err := gen.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (self *executor) evalFuncArg(a *plan.FuncArg, env *env) (Arg, error) {
	if a.TablePlan != nil {
		sub, err := Run(a.TablePlan, self.rt)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Rows: sub.Rows, RowSchema: a.RowSchema, IsTable: true}, nil
	}
	if a.ViewName != "" {
		rows, err := self.rt.ViewRows(a.ViewName)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Rows: rows, RowSchema: a.RowSchema, IsTable: true}, nil
	}
	v, err := env.eval(a.Value)
	if err != nil {
		return Arg{}, err
	}
	return Arg{Value: v}, nil
}

// ----------------------------------------------------------------------------
// filter / sort / project
// ----------------------------------------------------------------------------

func (self *executor) filter(tuple []schema.Row) (bool, error) {
	if self.plan.Filter == nil {
		return true, nil
	}
	env := &env{ex: self, tuple: tuple}
	v, err := env.eval(self.plan.Filter.Condition)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	default:
		return false, self.err("where condition is not a boolean, got %T", v)
	}
}

func (self *executor) sortTuples(tuples [][]schema.Row) error {
	if self.plan.Sort == nil {
		return nil
	}
	srt := self.plan.Sort

	keys := make([][]schema.Value, len(tuples))
	for idx, tp := range tuples {
		env := &env{ex: self, tuple: tp}
		ks := make([]schema.Value, 0, len(srt.VarList))
		for _, expr := range srt.VarList {
			v, err := env.eval(expr)
			if err != nil {
				return err
			}
			ks = append(ks, v)
		}
		keys[idx] = ks
	}

	// sort an index permutation so the key/tuple pairing stays intact
	perm := make([]int, len(tuples))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a := keys[perm[i]]
		b := keys[perm[j]]
		for idx := range a {
			c := compareValues(a[idx], b[idx])
			if c == 0 {
				continue
			}
			if srt.Asc {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	sorted := make([][]schema.Row, len(tuples))
	for i, p := range perm {
		sorted[i] = tuples[p]
	}
	copy(tuples, sorted)
	return nil
}

func (self *executor) project(tuple []schema.Row) (schema.Row, error) {
	out := schema.Row{}
	env := &env{ex: self, tuple: tuple}

	if self.plan.Output.Wildcard {
		for _, r := range tuple {
			out = append(out, r...)
		}
		return out, nil
	}

	for _, ov := range self.plan.Output.VarList {
		if ov.TableWildcard {
			out = append(out, tuple[ov.Table.Index]...)
			continue
		}
		v, err := env.eval(ov.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
