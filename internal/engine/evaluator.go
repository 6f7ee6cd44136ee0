package engine

import (
	"github.com/TimurManjosov/godecide/internal/rules"
)

// Evaluate runs params through the rule set in document order and returns the
// first matching rule's result. When no rule matches, the fallback is
// returned if present; otherwise ok is false. Evaluation is total: missing
// parameters, unparsable numbers and uncompilable patterns all make the
// enclosing condition false, never an error.
func Evaluate(rs *rules.RuleSet, params rules.Params) (rules.Result, bool) {
	if rs == nil {
		return rules.Result{}, false
	}

	if i, ok := FirstMatch(rs, params); ok {
		return rs.Rules[i].Then, true
	}

	if rs.Fallback != nil {
		return *rs.Fallback, true
	}
	return rules.Result{}, false
}

// FirstMatch returns the index of the first rule whose condition matches
// params. The fallback is not consulted.
func FirstMatch(rs *rules.RuleSet, params rules.Params) (int, bool) {
	if rs == nil {
		return 0, false
	}
	for i, rule := range rs.Rules {
		if matchesCondition(rule.If, params) {
			return i, true
		}
	}
	return 0, false
}

// matchesCondition walks the condition tree with short-circuit semantics.
// An empty AND is true and an empty OR is false.
func matchesCondition(c rules.Condition, params rules.Params) bool {
	switch c.Kind {
	case rules.KindAll:
		for _, child := range c.Children {
			if !matchesCondition(child, params) {
				return false
			}
		}
		return true

	case rules.KindAny:
		for _, child := range c.Children {
			if matchesCondition(child, params) {
				return true
			}
		}
		return false
	}

	paramValue, ok := params[c.Field]
	if !ok {
		return false
	}
	handler, ok := getOperatorHandler(c.Op)
	if !ok {
		return false
	}
	return handler.Check(paramValue, c.Value)
}

// EvaluateJSON parses doc and evaluates it once against params. Callers on a
// hot path should parse once with rules.ParseRuleSet and call Evaluate
// repeatedly instead.
func EvaluateJSON(doc []byte, params rules.Params) (rules.Result, bool, error) {
	rs, err := rules.ParseRuleSet(doc)
	if err != nil {
		return rules.Result{}, false, err
	}
	result, ok := Evaluate(rs, params)
	return result, ok, nil
}

// ValidateJSON parses doc and runs the parameter-independent validator.
func ValidateJSON(doc []byte) error {
	rs, err := rules.ParseRuleSet(doc)
	if err != nil {
		return err
	}
	return rules.Validate(rs)
}
