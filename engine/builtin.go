package engine

import (
	"encoding/csv"
	"math"
	"strings"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"

	"github.com/tabsql/tabsql/schema"
)

// Builtin table functions and scalar functions every session starts with.
// They double as living examples of the handler contract.

func (self *Session) registerBuiltins() {
	// range(end) or range(start, end), the usual half open interval
	_ = self.Register(&TableFunc{
		Name:   "range",
		Args:   -1,
		Schema: "id: bigint",
		New: func() Handler {
			return HandlerFunc(rangeEval)
		},
	})

	// csv(text), one row per record, the record arriving as an array
	_ = self.Register(&TableFunc{
		Name:   "csv",
		Args:   1,
		Schema: "fields: array<string>",
		New: func() Handler {
			return HandlerFunc(csvEval)
		},
	})

	// awk(program, input), each output line of the awk program is a row
	_ = self.Register(&TableFunc{
		Name:   "awk",
		Args:   2,
		Schema: "line: string",
		New: func() Handler {
			return HandlerFunc(awkEval)
		},
	})

	self.RegisterScalar("upper", func(args []schema.Value) (schema.Value, error) {
		s, err := oneString("upper", args)
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	})

	self.RegisterScalar("lower", func(args []schema.Value) (schema.Value, error) {
		s, err := oneString("lower", args)
		if err != nil {
			return nil, err
		}
		return strings.ToLower(s), nil
	})

	self.RegisterScalar("trim", func(args []schema.Value) (schema.Value, error) {
		s, err := oneString("trim", args)
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(s), nil
	})

	self.RegisterScalar("length", func(args []schema.Value) (schema.Value, error) {
		if len(args) != 1 {
			return nil, newError(CodeWrongNumArgs, "length expects 1 argument")
		}
		switch x := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return int64(len(x)), nil
		case []schema.Value:
			return int64(len(x)), nil
		case *schema.Map:
			return int64(x.Len()), nil
		default:
			return nil, newError(CodeUserCodeError, "length: unsupported value %T", x)
		}
	})

	self.RegisterScalar("abs", func(args []schema.Value) (schema.Value, error) {
		if len(args) != 1 {
			return nil, newError(CodeWrongNumArgs, "abs expects 1 argument")
		}
		switch x := args[0].(type) {
		case nil:
			return nil, nil
		case int64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case float64:
			return math.Abs(x), nil
		default:
			return nil, newError(CodeUserCodeError, "abs: not a number, got %T", x)
		}
	})
}

func oneString(name string, args []schema.Value) (string, error) {
	if len(args) != 1 {
		return "", newError(CodeWrongNumArgs, "%s expects 1 argument", name)
	}
	if args[0] == nil {
		return "", nil
	}
	s, ok := args[0].(string)
	if !ok {
		return "", newError(CodeUserCodeError, "%s: not a string, got %T", name, args[0])
	}
	return s, nil
}

func rangeEval(out Collector, args ...schema.Value) error {
	var start, end int64

	switch len(args) {
	case 1:
		e, ok := args[0].(int64)
		if !ok {
			return newError(CodeUserCodeError, "range: end is not an integer")
		}
		end = e
	case 2:
		s, ok0 := args[0].(int64)
		e, ok1 := args[1].(int64)
		if !ok0 || !ok1 {
			return newError(CodeUserCodeError, "range: bounds are not integers")
		}
		start = s
		end = e
	default:
		return newError(CodeWrongNumArgs, "range expects 1 or 2 arguments, got %d", len(args))
	}

	for i := start; i < end; i++ {
		if err := out.Emit(i); err != nil {
			return err
		}
	}
	return nil
}

func csvEval(out Collector, args ...schema.Value) error {
	text, ok := args[0].(string)
	if !ok {
		return newError(CodeUserCodeError, "csv: input is not a string")
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := out.Emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func awkEval(out Collector, args ...schema.Value) error {
	program, ok := args[0].(string)
	if !ok {
		return newError(CodeUserCodeError, "awk: program is not a string")
	}
	input, ok := args[1].(string)
	if !ok {
		return newError(CodeUserCodeError, "awk: input is not a string")
	}

	prog, err := gawkp.ParseProgram([]byte(program), nil)
	if err != nil {
		return err
	}

	buf := strings.Builder{}
	interp, err := gawki.New(prog)
	if err != nil {
		return err
	}
	if _, err := interp.Execute(&gawki.Config{
		Stdin:  strings.NewReader(input),
		Output: &buf,
	}); err != nil {
		return err
	}

	for _, line := range strings.Split(buf.String(), "\n") {
		if line == "" {
			continue
		}
		if err := out.Emit(line); err != nil {
			return err
		}
	}
	return nil
}
