package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operator represents a comparison operator used in rule conditions.
type Operator string

// Supported condition operators (string values match the wire format).
const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpPrefix   Operator = "prefix"
	OpSuffix   Operator = "suffix"
	OpRegex    Operator = "regex"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpGe       Operator = "ge"
	OpLe       Operator = "le"
)

// ConditionKind discriminates the three condition node shapes.
type ConditionKind int

const (
	// KindSimple compares one parameter field against a literal value.
	KindSimple ConditionKind = iota
	// KindAll matches when every child matches (vacuously true when empty).
	KindAll
	// KindAny matches when at least one child matches (vacuously false when empty).
	KindAny
)

// Condition is a node in a rule's predicate tree. Exactly one shape is
// populated, selected by Kind: a simple comparison (Field/Op/Value) or an
// aggregate over Children. Conditions nest to arbitrary depth and are not
// mutated after construction.
type Condition struct {
	Kind     ConditionKind
	Field    string
	Op       Operator
	Value    string
	Children []Condition
}

// Simple builds a leaf condition comparing one parameter field.
func Simple(field string, op Operator, value string) Condition {
	return Condition{Kind: KindSimple, Field: field, Op: op, Value: value}
}

// And builds an aggregate that matches when all children match.
func And(children ...Condition) Condition {
	return Condition{Kind: KindAll, Children: children}
}

// Or builds an aggregate that matches when any child matches.
func Or(children ...Condition) Condition {
	return Condition{Kind: KindAny, Children: children}
}

// MarshalJSON emits the wire shape for the condition's kind:
// {"field","op","value"} for simple nodes, {"and":[...]} and {"or":[...]}
// for aggregates.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindAll:
		return json.Marshal(struct {
			And []Condition `json:"and"`
		}{And: c.children()})
	case KindAny:
		return json.Marshal(struct {
			Or []Condition `json:"or"`
		}{Or: c.children()})
	default:
		return json.Marshal(struct {
			Field string   `json:"field"`
			Op    Operator `json:"op"`
			Value string   `json:"value"`
		}{Field: c.Field, Op: c.Op, Value: c.Value})
	}
}

// UnmarshalJSON accepts the same wire shapes MarshalJSON produces.
func (c *Condition) UnmarshalJSON(data []byte) error {
	parsed, err := parseCondition(data, "")
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// children never returns nil so aggregates marshal as [] rather than null.
func (c Condition) children() []Condition {
	if c.Children == nil {
		return []Condition{}
	}
	return c.Children
}

// Result is a rule's outcome: either plain text or an opaque JSON object,
// carried verbatim from the source document. Any other JSON type is rejected
// at unmarshal time.
type Result struct {
	raw json.RawMessage
}

// TextResult builds a text result.
func TextResult(text string) Result {
	raw, _ := json.Marshal(text)
	return Result{raw: raw}
}

// ObjectResult builds an object result from arbitrary JSON-encodable data.
func ObjectResult(object map[string]any) (Result, error) {
	raw, err := json.Marshal(object)
	if err != nil {
		return Result{}, fmt.Errorf("encode result object: %w", err)
	}
	return Result{raw: raw}, nil
}

// IsText reports whether the result is a JSON string.
func (r Result) IsText() bool {
	trimmed := bytes.TrimLeft(r.raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '"'
}

// Text returns the string payload of a text result.
func (r Result) Text() (string, bool) {
	if !r.IsText() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Raw returns the result's JSON encoding exactly as authored.
func (r Result) Raw() json.RawMessage {
	return r.raw
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("null"), nil
	}
	return r.raw, nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	parsed, err := parseResult(data, "")
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Rule pairs a condition with the result produced when it matches.
type Rule struct {
	If   Condition `json:"if"`
	Then Result    `json:"then"`
}

// RuleSet is an ordered list of rules with an optional fallback result.
// Rules are checked in order; the first match wins.
type RuleSet struct {
	Rules    []Rule  `json:"rules"`
	Fallback *Result `json:"fallback,omitempty"`
}

// Params is the flat string parameter map rule sets are evaluated against.
type Params map[string]string
