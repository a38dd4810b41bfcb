package engine

import (
	"errors"
	"fmt"

	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
)

// Error codes surfaced to the user. Tests match on these instead of message
// text.
const (
	CodeFunctionNotFound      = "FUNCTION_NOT_FOUND"
	CodeTableOrViewNotFound   = "TABLE_OR_VIEW_NOT_FOUND"
	CodeWrongNumArgs          = "WRONG_NUM_ARGS"
	CodeSchemaMismatch        = "SCHEMA_MISMATCH"
	CodeReturnTypeMismatch    = "RETURN_TYPE_MISMATCH"
	CodeUserCodeError         = "USER_CODE_ERROR"
	CodeInvalidHandler        = "INVALID_HANDLER"
	CodeTooManyTableArguments = "TOO_MANY_TABLE_ARGUMENTS"
	CodeCorrelatedReference   = "CORRELATED_REFERENCE"
)

type Error struct {
	Code    string
	Message string
}

func (self *Error) Error() string {
	return fmt.Sprintf("[%s] %s", self.Code, self.Message)
}

func newError(code string, f string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(f, args...),
	}
}

// IsCode reports whether err carries the given engine error code anywhere in
// its chain.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// wrapPlanError translates the planner's sentinel errors into engine codes.
// Catalog lookup failures already carry an engine code, those pass through.
func wrapPlanError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, plan.ErrWrongNumArgs):
		return newError(CodeWrongNumArgs, "%s", err.Error())
	case errors.Is(err, plan.ErrTooManyTableArguments):
		return newError(CodeTooManyTableArguments, "%s", err.Error())
	case errors.Is(err, plan.ErrCorrelatedReference):
		return newError(CodeCorrelatedReference, "%s", err.Error())
	case errors.Is(err, schema.ErrRowWidth):
		return newError(CodeSchemaMismatch, "%s", err.Error())
	default:
		return err
	}
}
