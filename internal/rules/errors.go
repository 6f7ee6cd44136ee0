package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by SchemaError and ValidationError.
var (
	ErrUnknownOperator = errors.New("unknown operator")
	ErrEmptyField      = errors.New("field must not be empty")
	ErrInvalidPattern  = errors.New("invalid regex pattern")
)

// ParseError reports that the document is not valid JSON at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse rule set: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports well-formed JSON that does not fit the rule-set shape.
// Path locates the offending node in JSON-path style, e.g. "rules[2].if.and[0]".
type SchemaError struct {
	Path string
	Msg  string
	Err  error
}

func (e *SchemaError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path == "" {
		return fmt.Sprintf("schema: %s", msg)
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ValidationError reports a rule set that parsed but cannot be trusted to
// evaluate meaningfully. Path locates the offending node.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate rule set: %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
