package plan

import (
	"errors"
	"fmt"
	"math"

	"github.com/tabsql/tabsql/schema"
	"github.com/tabsql/tabsql/sql"
)

const (
	defMaxTableSize = 100
)

// Source kinds of a table descriptor, mirrors the from clause grammar
const (
	SourceFunc = iota
	SourceValues
	SourceView
)

// Sentinel errors of the planner. The catalog owner wraps these into its own
// error taxonomy, the planner itself stays decoupled from it.
var (
	ErrWrongNumArgs          = errors.New("wrong number of arguments for table function")
	ErrTooManyTableArguments = errors.New("multiple TABLE arguments are not enabled")
	ErrCorrelatedReference   = errors.New("column reference requires a LATERAL source")
	ErrUnknownColumn         = errors.New("unknown column")
)

// FunctionDef is what the catalog knows about one table function. Args is
// the declared arity, -1 meaning variadic.
type FunctionDef struct {
	Name   string
	Args   int
	Schema *schema.Schema
}

// Catalog resolves names the planner cannot, ie table functions and views.
// Lookup failures come back as the owner's typed errors and are passed
// through untouched.
type Catalog interface {
	LookupFunction(name string) (*FunctionDef, error)
	LookupView(name string) (*schema.Schema, error)
}

// FuncArg is one settled argument of a table function source. Exactly one of
// Value/TablePlan/ViewName is set.
type FuncArg struct {
	Value     sql.Expr       // scalar argument
	TablePlan *Plan          // TABLE(select ...) argument
	ViewName  string         // TABLE(v) argument
	RowSchema *schema.Schema // row shape of a table argument
}

func (self *FuncArg) IsTable() bool { return self.TablePlan != nil || self.ViewName != "" }

type TableDescriptor struct {
	Index   int
	Kind    int
	Name    string       // function or view name
	Func    *FunctionDef // settled function, SourceFunc only
	Args    []*FuncArg   // call arguments, SourceFunc only
	Rows    []schema.Row // literal rows, SourceValues only
	Lateral bool
	Alias   string // table alias
	Schema  *schema.Schema
	Symbol  string // table symbol name, used by diagnostics
}

// Filter phase, the where clause
type Filter struct {
	Condition sql.Expr
}

// Sorting phase
type Sort struct {
	Asc     bool
	VarList []sql.Expr
}

type OutputVar struct {
	Value         sql.Expr
	Alias         string
	TableWildcard bool
	Table         *TableDescriptor
}

// Output phase, basically just materialize everything. This is related to
// the selected vars
type Output struct {
	VarList  []OutputVar
	Schema   *schema.Schema // output row shape
	Wildcard bool           // whether select * shows up
	Limit    int64          // maximum allowed entries output
	Distinct bool           // whether perform distinct operation for the output
}

func (self *Output) HasLimit() bool { return self.Limit < math.MaxInt64 }

// ----------------------------------------------------------------------------
// Format phase, allowing better visualization of the dumpped data in terminal
// The format algorithm is basically layout as following. It is a structurized
// system with 3 layers, based on the customization priority, descendingly,
// ----------------------------------------------------------------------------
// 1) column[index], if applicable takes highest priority
// 2) type, if applicable kicks in
// 3) base, 1 and 2 option missed, then the base format kicks in
// ----------------------------------------------------------------------------

const (
	ColorBlack = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorNone
)

type FormatInstruction struct {
	Ignore      bool    // whether this field is entirely ignored
	Bold        bool    // whether this field will be showed in bold font
	Italic      bool    // whether this field will be showed in italic font
	Underline   bool    // whether this field will be showed with underline
	Color       int     // color code of the field
	Index       int     // index, used only by column formatting
	StrOption   string  // string option, general option
	IntOption   int     // int value, option
	FloatOption float64 // float64 value, option
}

type Format struct {
	Title   *FormatInstruction
	Border  *FormatInstruction
	Number  *FormatInstruction
	String  *FormatInstruction
	Rest    *FormatInstruction
	Padding *FormatInstruction
	Column  []*FormatInstruction
}

// Planner configuration. Used to customize planner behavior
type Config struct {
	MaxTableSize int

	// more than one TABLE(...) argument per call is gated, the combination
	// semantics (cross product of the argument relations) is surprising
	// enough to be opt in
	AllowMultipleTableArguments bool
}

func DefaultConfig() Config {
	return Config{
		MaxTableSize: defMaxTableSize,
	}
}

type Plan struct {
	Config Config

	Tables []*TableDescriptor // sources of the from clause, in order
	Filter *Filter            // where clause, maybe nil
	Sort   *Sort              // order by, maybe nil
	Output *Output            // output phase, must exist
	Format *Format            // format of the plan, always valid

	// --------------------------------------------------------------------------
	// private data
	catalog Catalog
	alias   map[string]sql.Expr // projection alias table, used during symbol resolution
}

func newPlan(catalog Catalog, config Config) *Plan {
	if config.MaxTableSize == 0 {
		config.MaxTableSize = defMaxTableSize
	}
	return &Plan{
		Config:  config,
		catalog: catalog,
		alias:   make(map[string]sql.Expr),
	}
}

// PlanQuery plans a single select against the catalog. CTE bindings are the
// caller's business, the select handed in here must already be free of them.
func PlanQuery(s *sql.Select, catalog Catalog, config Config) (*Plan, error) {
	p := newPlan(catalog, config)
	if err := p.plan(s); err != nil {
		return nil, err
	}
	return p, nil
}

func (self *TableDescriptor) ColumnSize() int {
	return self.Schema.Size()
}

func (self *Plan) err(stage string, f string, args ...interface{}) error {
	msg := fmt.Sprintf(f, args...)
	return fmt.Errorf("stage(%s): %s", stage, msg)
}

// errW keeps the sentinel in the chain so the caller can errors.Is on it
func (self *Plan) errW(stage string, sentinel error, f string, args ...interface{}) error {
	msg := fmt.Sprintf(f, args...)
	return fmt.Errorf("stage(%s): %w: %s", stage, sentinel, msg)
}

func (self *Plan) totalTableColumnSize() int {
	cnt := 0
	for _, x := range self.Tables {
		cnt += x.ColumnSize()
	}
	return cnt
}
