package engine

import (
	"errors"
	"fmt"

	"github.com/tabsql/tabsql/exec"
	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

// Session holds the function registry and the temp views, and is the entry
// point for running SQL. It doubles as the planner's catalog and the
// executor's runtime.

type Config struct {
	MaxTableSize int

	// more than one TABLE(...) argument per call enables cross product
	// evaluation of the argument relations, opt in
	AllowMultipleTableArguments bool
}

// ScalarFunc is a scalar builtin usable inside expressions.
type ScalarFunc func(args []schema.Value) (schema.Value, error)

type registered struct {
	fn     *TableFunc
	schema *schema.Schema
}

// View is a named, materialized rowset.
type View struct {
	Schema *schema.Schema
	Rows   []schema.Row
}

type Session struct {
	config  Config
	funcs   map[string]*registered
	views   map[string]*View
	scalars map[string]ScalarFunc
}

func NewSession() *Session {
	return NewSessionWith(Config{})
}

func NewSessionWith(config Config) *Session {
	s := &Session{
		config:  config,
		funcs:   make(map[string]*registered),
		views:   make(map[string]*View),
		scalars: make(map[string]ScalarFunc),
	}
	s.registerBuiltins()
	return s
}

// ----------------------------------------------------------------------------
// registration
// ----------------------------------------------------------------------------

// Register makes a table function callable from SQL. Re-registering a name
// replaces the previous binding.
func (self *Session) Register(fn *TableFunc) error {
	if fn == nil || fn.Name == "" {
		return newError(CodeInvalidHandler, "table function needs a name")
	}
	if fn.New == nil {
		return newError(
			CodeInvalidHandler,
			"table function %s has no handler constructor",
			fn.Name,
		)
	}

	sch, err := schema.ParseSchema(fn.Schema)
	if err != nil {
		if errors.Is(err, schema.ErrNotRowSchema) {
			return newError(
				CodeReturnTypeMismatch,
				"table function %s must declare a row schema, got: %s",
				fn.Name,
				fn.Schema,
			)
		}
		return newError(
			CodeReturnTypeMismatch,
			"table function %s has an invalid schema: %s",
			fn.Name,
			err.Error(),
		)
	}

	self.funcs[fn.Name] = &registered{fn: fn, schema: sch}
	return nil
}

// RegisterScalar makes a scalar function usable inside expressions.
func (self *Session) RegisterScalar(name string, fn ScalarFunc) {
	self.scalars[name] = fn
}

// CreateOrReplaceView binds a dataframe's rows to a name.
func (self *Session) CreateOrReplaceView(name string, df *DataFrame) {
	self.views[name] = &View{Schema: df.schema, Rows: df.rows}
}

// CreateDataFrame materializes literal rows against a schema string.
func (self *Session) CreateDataFrame(
	rows [][]interface{},
	schemaStr string,
) (*DataFrame, error) {
	sch, err := schema.ParseSchema(schemaStr)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Row, 0, len(rows))
	for _, r := range rows {
		row, err := sch.CoerceRow(r)
		if err != nil {
			return nil, newError(CodeSchemaMismatch, "%s", err.Error())
		}
		out = append(out, row)
	}
	return &DataFrame{schema: sch, rows: out}, nil
}

// ----------------------------------------------------------------------------
// catalog
// ----------------------------------------------------------------------------

func (self *Session) lookupFunc(name string) (*registered, error) {
	if r, ok := self.funcs[name]; ok {
		return r, nil
	}
	return nil, newError(CodeFunctionNotFound, "function not found: %s", name)
}

func (self *Session) LookupFunction(name string) (*plan.FunctionDef, error) {
	r, err := self.lookupFunc(name)
	if err != nil {
		return nil, err
	}
	return &plan.FunctionDef{
		Name:   r.fn.Name,
		Args:   r.fn.Args,
		Schema: r.schema,
	}, nil
}

func (self *Session) LookupView(name string) (*schema.Schema, error) {
	if v, ok := self.views[name]; ok {
		return v.Schema, nil
	}
	return nil, newError(CodeTableOrViewNotFound, "table or view not found: %s", name)
}

// queryScope layers the CTE bindings of one query over the session. It is
// what actually gets handed to the planner and the executor, so a WITH name
// shadows a session view for the duration of the query.
type queryScope struct {
	session *Session
	views   map[string]*View
}

func newQueryScope(s *Session) *queryScope {
	return &queryScope{
		session: s,
		views:   make(map[string]*View),
	}
}

func (self *queryScope) LookupFunction(name string) (*plan.FunctionDef, error) {
	return self.session.LookupFunction(name)
}

func (self *queryScope) LookupView(name string) (*schema.Schema, error) {
	if v, ok := self.views[name]; ok {
		return v.Schema, nil
	}
	return self.session.LookupView(name)
}

func (self *queryScope) viewRows(name string) ([]schema.Row, error) {
	if v, ok := self.views[name]; ok {
		return v.Rows, nil
	}
	if v, ok := self.session.views[name]; ok {
		return v.Rows, nil
	}
	return nil, newError(CodeTableOrViewNotFound, "table or view not found: %s", name)
}

// ----------------------------------------------------------------------------
// runtime
// ----------------------------------------------------------------------------

func (self *queryScope) OpenFunction(name string, args []exec.Arg) (exec.Generator, error) {
	r, err := self.session.lookupFunc(name)
	if err != nil {
		return nil, err
	}
	return &handlerGen{
		fn:   r.fn,
		sch:  r.schema,
		args: args,
	}, nil
}

func (self *queryScope) ViewRows(name string) ([]schema.Row, error) {
	return self.viewRows(name)
}

func (self *queryScope) Scalar(name string, args []schema.Value) (schema.Value, error) {
	if fn, ok := self.session.scalars[name]; ok {
		return fn(args)
	}
	return nil, newError(CodeFunctionNotFound, "function not found: %s", name)
}

// ----------------------------------------------------------------------------
// execution
// ----------------------------------------------------------------------------

func (self *Session) planConfig() plan.Config {
	cfg := plan.DefaultConfig()
	if self.config.MaxTableSize > 0 {
		cfg.MaxTableSize = self.config.MaxTableSize
	}
	cfg.AllowMultipleTableArguments = self.config.AllowMultipleTableArguments
	return cfg
}

// SQL parses and runs one statement, returning its materialized result. A
// CREATE VIEW statement returns an empty dataframe.
func (self *Session) SQL(code string) (*DataFrame, error) {
	c, err := sql.Parse(code)
	if err != nil {
		return nil, err
	}

	if c.CreateView != nil {
		return self.runCreateView(c.CreateView)
	}
	return self.runSelect(c.Select)
}

func (self *Session) runCreateView(cv *sql.CreateView) (*DataFrame, error) {
	if _, ok := self.views[cv.Name]; ok && !cv.Replace {
		return nil, fmt.Errorf("view %s already exists", cv.Name)
	}
	df, err := self.runSelect(cv.Query)
	if err != nil {
		return nil, err
	}
	self.views[cv.Name] = &View{Schema: df.schema, Rows: df.rows}
	return &DataFrame{schema: &schema.Schema{}}, nil
}

func (self *Session) runSelect(sel *sql.Select) (*DataFrame, error) {
	scope := newQueryScope(self)

	// CTE bindings evaluate eagerly, in order, each seeing the ones before
	// it
	for _, cte := range sel.With {
		df, err := self.runSelectIn(scope, cte.Query)
		if err != nil {
			return nil, err
		}
		scope.views[cte.Name] = &View{Schema: df.schema, Rows: df.rows}
	}

	return self.runSelectIn(scope, sel)
}

func (self *Session) runSelectIn(
	scope *queryScope,
	sel *sql.Select,
) (*DataFrame, error) {
	p, err := plan.PlanQuery(sel, scope, self.planConfig())
	if err != nil {
		return nil, wrapPlanError(err)
	}
	res, err := exec.Run(p, scope)
	if err != nil {
		return nil, wrapPlanError(err)
	}
	return &DataFrame{
		schema: res.Schema,
		rows:   res.Rows,
		format: p.Format,
	}, nil
}

// Call invokes a table function directly, bypassing SQL.
func (self *Session) Call(name string, args ...schema.Value) (*DataFrame, error) {
	r, err := self.lookupFunc(name)
	if err != nil {
		return nil, err
	}
	if r.fn.Args >= 0 && r.fn.Args != len(args) {
		return nil, newError(
			CodeWrongNumArgs,
			"function %s expects %d argument(s), got %d",
			name,
			r.fn.Args,
			len(args),
		)
	}

	execArgs := make([]exec.Arg, 0, len(args))
	for _, a := range args {
		execArgs = append(execArgs, exec.Arg{Value: a})
	}

	gen := &handlerGen{fn: r.fn, sch: r.schema, args: execArgs}
	if err := gen.Start(); err != nil {
		return nil, err
	}
	defer gen.Close()

	var rows []schema.Row
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
		rows = append(rows, row)
	}
	return &DataFrame{schema: r.schema, rows: rows}, nil
}
