package engine

import (
	"fmt"

	"github.com/tabsql/tabsql/exec"
	"github.com/tabsql/tabsql/schema"
)

// User defined table functions. A TableFunc is the registration record, a
// Handler is one live invocation of it. The engine instantiates a fresh
// handler for every call site evaluation, state never leaks across calls.

// Collector receives the rows a handler emits. Emit takes one value per
// output column, the engine coerces them against the declared row schema.
type Collector interface {
	Emit(values ...schema.Value) error
}

// Handler is the user side of a table function.
//
// Eval is called once when the function receives only scalar arguments, or
// once per input row when a TABLE argument is bound, that row arriving as a
// schema.Row value in the argument position. Rows are produced by calling
// out.Emit any number of times.
type Handler interface {
	Eval(out Collector, args ...schema.Value) error
}

// TerminateHandler is implemented by handlers that emit a tail after the
// last Eval, typically accumulated state.
type TerminateHandler interface {
	Terminate(out Collector) error
}

// TableFunc describes one registered table function.
type TableFunc struct {
	Name   string
	Args   int    // declared arity, -1 means variadic
	Schema string // output row schema, "a: bigint, b: string" form
	New    func() Handler
}

// ----------------------------------------------------------------------------
// generator adapter
// ----------------------------------------------------------------------------

// handlerGen adapts the eval/terminate handler contract onto the pull style
// generator the executor drains. The handler runs eagerly inside Start, the
// scale is test fixtures so buffering the output is fine.
type handlerGen struct {
	fn   *TableFunc
	sch  *schema.Schema
	args []exec.Arg

	rows []schema.Row
	idx  int
}

// collector coerces emitted values row by row
type collector struct {
	sch  *schema.Schema
	rows *[]schema.Row
}

func (self *collector) Emit(values ...schema.Value) error {
	row, err := self.sch.CoerceRow(values)
	if err != nil {
		return newError(
			CodeSchemaMismatch,
			"emitted row does not match the declared schema: %s",
			err.Error(),
		)
	}
	*self.rows = append(*self.rows, row)
	return nil
}

func (self *handlerGen) Start() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(
				CodeUserCodeError,
				"function %s panicked: %v",
				self.fn.Name,
				r,
			)
		}
	}()

	h := self.fn.New()
	if h == nil {
		return newError(
			CodeInvalidHandler,
			"function %s constructor returned a nil handler",
			self.fn.Name,
		)
	}

	out := &collector{sch: self.sch, rows: &self.rows}

	if err := self.evalAll(h, out); err != nil {
		return err
	}

	if t, ok := h.(TerminateHandler); ok {
		if err := t.Terminate(out); err != nil {
			return self.userErr("terminate", err)
		}
	}

	self.idx = -1
	return nil
}

// evalAll drives Eval over the cross product of the TABLE arguments, or a
// single invocation when every argument is scalar.
func (self *handlerGen) evalAll(h Handler, out Collector) error {
	tableAt := []int{}
	for idx, a := range self.args {
		if a.IsTable {
			tableAt = append(tableAt, idx)
		}
	}

	callArgs := make([]schema.Value, len(self.args))
	for idx, a := range self.args {
		if !a.IsTable {
			callArgs[idx] = a.Value
		}
	}

	if len(tableAt) == 0 {
		if err := h.Eval(out, callArgs...); err != nil {
			return self.userErr("eval", err)
		}
		return nil
	}

	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(tableAt) {
			if err := h.Eval(out, callArgs...); err != nil {
				return self.userErr("eval", err)
			}
			return nil
		}
		pos := tableAt[depth]
		for _, row := range self.args[pos].Rows {
			callArgs[pos] = row
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

func (self *handlerGen) userErr(method string, err error) error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return newError(
		CodeUserCodeError,
		"function %s encountered an error in the '%s' method: %s",
		self.fn.Name,
		method,
		err.Error(),
	)
}

func (self *handlerGen) Next() (bool, error) {
	self.idx++
	return self.idx < len(self.rows), nil
}

func (self *handlerGen) Values() (schema.Row, error) {
	if self.idx < 0 || self.idx >= len(self.rows) {
		return nil, fmt.Errorf("generator read out of sequence")
	}
	return self.rows[self.idx], nil
}

func (self *handlerGen) Close() {}

// HandlerFunc adapts a plain function into a Handler without terminate.
type HandlerFunc func(out Collector, args ...schema.Value) error

func (self HandlerFunc) Eval(out Collector, args ...schema.Value) error {
	return self(out, args...)
}
