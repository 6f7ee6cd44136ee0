package rules

import (
	"fmt"
	"regexp"
)

// validOperators is the set of all recognised condition operators.
var validOperators = map[Operator]struct{}{
	OpEquals:   {},
	OpContains: {},
	OpPrefix:   {},
	OpSuffix:   {},
	OpRegex:    {},
	OpGt:       {},
	OpLt:       {},
	OpGe:       {},
	OpLe:       {},
}

// Validate checks a rule set independently of any parameter map: simple
// conditions must name a field, use a recognised operator, and regex
// patterns must compile. Aggregates are checked recursively; empty rule
// lists and empty aggregates are valid. It is a pure function: it never
// mutates rs and has no side effects.
//
// A rule set that passes Validate never produces an error at evaluation
// time, only match or no-match.
func Validate(rs *RuleSet) error {
	if rs == nil {
		return nil
	}
	for i, r := range rs.Rules {
		if err := validateCondition(r.If, fmt.Sprintf("rules[%d].if", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c Condition, path string) error {
	switch c.Kind {
	case KindAll:
		for i, child := range c.Children {
			if err := validateCondition(child, fmt.Sprintf("%s.and[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case KindAny:
		for i, child := range c.Children {
			if err := validateCondition(child, fmt.Sprintf("%s.or[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	if c.Field == "" {
		return &ValidationError{Path: path + ".field", Err: ErrEmptyField}
	}
	if _, ok := validOperators[c.Op]; !ok {
		return &ValidationError{Path: path + ".op", Err: fmt.Errorf("%w: %q", ErrUnknownOperator, c.Op)}
	}
	if c.Op == OpRegex {
		if _, err := regexp.Compile(c.Value); err != nil {
			return &ValidationError{Path: path + ".value", Err: fmt.Errorf("%w: %v", ErrInvalidPattern, err)}
		}
	}
	return nil
}
