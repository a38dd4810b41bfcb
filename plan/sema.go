package plan

// Semantic checking, just check obvious sql semantic bugs. Runs after the
// symbol resolution, ie every name is settled by now.

import (
	"github.com/tabsql/tabsql/sql"
)

// A table function's scalar argument may reference columns of the sources on
// its left only when the source is marked LATERAL. The resolution pass
// already bans forward references, what is left to check is whether a plain
// source smuggled in an outer column at all.
func (self *Plan) semaCheckFuncArgs() error {
	for _, td := range self.Tables {
		if td.Kind != SourceFunc {
			continue
		}
		for _, arg := range td.Args {
			if arg.IsTable() {
				continue
			}
			if err := self.semaCheckOneFuncArg(td, arg.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self *Plan) semaCheckOneFuncArg(
	td *TableDescriptor,
	value sql.Expr,
) error {
	info := newExprTableAccessInfo(value)

	if !td.Lateral {
		if !info.s(value).Static() {
			return self.errW(
				"sema",
				ErrCorrelatedReference,
				"argument of function %s references a column, mark the source LATERAL",
				td.Name,
			)
		}
		return nil
	}

	for tidx := range info.s(value) {
		if tidx >= td.Index {
			return self.errW(
				"sema",
				ErrCorrelatedReference,
				"LATERAL argument of function %s references table #%d which is not on its left",
				td.Name,
				tidx,
			)
		}
	}
	return nil
}

// order by names must be either output columns or expressions over the
// sources, both already settled. The only thing left is the sanity of the
// sort direction which the parser guarantees, so this stays a placeholder
// for the filter check below.
func (self *Plan) semaCheckFilter(s *sql.Select) error {
	if s.Where == nil {
		return nil
	}
	// the filter runs before the output phase, an alias chase that lands on
	// a free expression would make it order dependent
	cond := s.Where.Condition
	if ref, ok := cond.(*sql.Ref); ok && ref.CanName.IsGlobal() {
		return self.err("sema", "where condition cannot be a bare function name")
	}
	return nil
}

func (self *Plan) sema(s *sql.Select) error {
	if err := self.semaCheckFuncArgs(); err != nil {
		return err
	}
	if err := self.semaCheckFilter(s); err != nil {
		return err
	}
	return nil
}
