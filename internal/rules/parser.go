package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseRuleSet decodes a complete rule-set document. It is all-or-nothing:
// either every rule and condition in the document is well formed and the full
// tree is returned, or an error describes the first problem found.
// Syntactically invalid JSON yields a *ParseError; well-formed JSON with the
// wrong shape yields a *SchemaError carrying the offending location.
func ParseRuleSet(doc []byte) (*RuleSet, error) {
	var root struct {
		Rules    *[]json.RawMessage `json:"rules"`
		Fallback json.RawMessage    `json:"fallback"`
	}
	if err := unmarshalStrict(doc, &root, ""); err != nil {
		return nil, err
	}

	if root.Rules == nil {
		return nil, &SchemaError{Path: "rules", Msg: "missing required array"}
	}

	rs := &RuleSet{Rules: make([]Rule, 0, len(*root.Rules))}
	for i, rawRule := range *root.Rules {
		rule, err := parseRule(rawRule, fmt.Sprintf("rules[%d]", i))
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}

	if len(root.Fallback) > 0 && !bytes.Equal(bytes.TrimSpace(root.Fallback), []byte("null")) {
		fallback, err := parseResult(root.Fallback, "fallback")
		if err != nil {
			return nil, err
		}
		rs.Fallback = &fallback
	}

	return rs, nil
}

func parseRule(raw json.RawMessage, path string) (Rule, error) {
	var node struct {
		If   json.RawMessage `json:"if"`
		Then json.RawMessage `json:"then"`
	}
	if err := unmarshalStrict(raw, &node, path); err != nil {
		return Rule{}, err
	}

	if len(node.If) == 0 {
		return Rule{}, &SchemaError{Path: path + ".if", Msg: "missing required condition"}
	}
	if len(node.Then) == 0 {
		return Rule{}, &SchemaError{Path: path + ".then", Msg: "missing required result"}
	}

	cond, err := parseCondition(node.If, path+".if")
	if err != nil {
		return Rule{}, err
	}
	result, err := parseResult(node.Then, path+".then")
	if err != nil {
		return Rule{}, err
	}
	return Rule{If: cond, Then: result}, nil
}

func parseCondition(raw json.RawMessage, path string) (Condition, error) {
	var node struct {
		Field *string            `json:"field"`
		Op    *string            `json:"op"`
		Value *string            `json:"value"`
		And   *[]json.RawMessage `json:"and"`
		Or    *[]json.RawMessage `json:"or"`
	}
	if err := unmarshalStrict(raw, &node, path); err != nil {
		return Condition{}, err
	}

	switch {
	case node.And != nil && node.Or != nil:
		return Condition{}, &SchemaError{Path: path, Msg: `condition mixes "and" and "or"`}

	case node.And != nil:
		children, err := parseConditionList(*node.And, path+".and")
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: KindAll, Children: children}, nil

	case node.Or != nil:
		children, err := parseConditionList(*node.Or, path+".or")
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: KindAny, Children: children}, nil
	}

	if node.Field == nil {
		return Condition{}, &SchemaError{Path: path + ".field", Msg: "missing required string"}
	}
	if node.Op == nil {
		return Condition{}, &SchemaError{Path: path + ".op", Msg: "missing required string"}
	}
	if node.Value == nil {
		return Condition{}, &SchemaError{Path: path + ".value", Msg: "missing required string"}
	}

	op := Operator(*node.Op)
	if _, ok := validOperators[op]; !ok {
		return Condition{}, &SchemaError{
			Path: path + ".op",
			Err:  fmt.Errorf("%w: %q", ErrUnknownOperator, *node.Op),
		}
	}

	return Condition{Kind: KindSimple, Field: *node.Field, Op: op, Value: *node.Value}, nil
}

func parseConditionList(items []json.RawMessage, path string) ([]Condition, error) {
	children := make([]Condition, 0, len(items))
	for i, item := range items {
		child, err := parseCondition(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseResult(raw json.RawMessage, path string) (Result, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return Result{}, &SchemaError{Path: path, Msg: "missing required result"}
	}
	if !json.Valid(raw) {
		return Result{}, &ParseError{Err: fmt.Errorf("invalid JSON at %s", path)}
	}
	switch trimmed[0] {
	case '"', '{':
		return Result{raw: append(json.RawMessage(nil), raw...)}, nil
	default:
		return Result{}, &SchemaError{Path: path, Msg: "result must be a string or an object"}
	}
}

// unmarshalStrict maps JSON syntax errors to *ParseError and type mismatches
// to path-qualified *SchemaError.
func unmarshalStrict(raw []byte, dst any, path string) error {
	err := json.Unmarshal(raw, dst)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		p := path
		if typeErr.Field != "" {
			if p != "" {
				p += "."
			}
			p += typeErr.Field
		}
		return &SchemaError{Path: p, Msg: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}
	}
	return &ParseError{Err: err}
}
