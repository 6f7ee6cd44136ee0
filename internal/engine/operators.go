package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/TimurManjosov/godecide/internal/rules"
)

// OperatorHandler evaluates one simple-condition operator against the
// parameter value on the left and the condition's literal value on the right.
type OperatorHandler interface {
	Check(paramValue, ruleValue string) bool
}

var (
	operatorHandlers = map[rules.Operator]OperatorHandler{
		rules.OpEquals:   equalsHandler{},
		rules.OpContains: containsHandler{},
		rules.OpPrefix:   prefixHandler{},
		rules.OpSuffix:   suffixHandler{},
		rules.OpRegex:    regexHandler{},
		rules.OpGt:       numericCompareHandler{cmp: func(a, b float64) bool { return a > b }},
		rules.OpLt:       numericCompareHandler{cmp: func(a, b float64) bool { return a < b }},
		rules.OpGe:       numericCompareHandler{cmp: func(a, b float64) bool { return a >= b }},
		rules.OpLe:       numericCompareHandler{cmp: func(a, b float64) bool { return a <= b }},
	}
	// regexCache keeps compiled regex by pattern for the hot evaluation path.
	// Expected value type is *regexp.Regexp.
	regexCache sync.Map
)

func getOperatorHandler(op rules.Operator) (OperatorHandler, bool) {
	h, ok := operatorHandlers[op]
	return h, ok
}

type equalsHandler struct{}

func (equalsHandler) Check(paramValue, ruleValue string) bool {
	return paramValue == ruleValue
}

type containsHandler struct{}

func (containsHandler) Check(paramValue, ruleValue string) bool {
	return strings.Contains(paramValue, ruleValue)
}

type prefixHandler struct{}

func (prefixHandler) Check(paramValue, ruleValue string) bool {
	return strings.HasPrefix(paramValue, ruleValue)
}

type suffixHandler struct{}

func (suffixHandler) Check(paramValue, ruleValue string) bool {
	return strings.HasSuffix(paramValue, ruleValue)
}

// regexHandler matches anywhere in the parameter value; patterns that want
// full-string semantics anchor themselves with ^ and $.
type regexHandler struct{}

func (regexHandler) Check(paramValue, ruleValue string) bool {
	rx, ok := getCompiledRegex(ruleValue)
	if !ok {
		return false
	}
	return rx.MatchString(paramValue)
}

// numericCompareHandler parses both sides as float64; either side failing to
// parse makes the comparison false rather than an error.
type numericCompareHandler struct {
	cmp func(a, b float64) bool
}

func (h numericCompareHandler) Check(paramValue, ruleValue string) bool {
	param, ok := toFloat64(paramValue)
	if !ok {
		return false
	}
	rule, ok := toFloat64(ruleValue)
	if !ok {
		return false
	}
	return h.cmp(param, rule)
}

func getCompiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}

	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

func toFloat64(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	return f, err == nil
}
