// Package ruleengine evaluates the if/elseif/else rule chains embedded
// in parsed parameter maps against live register values, grounded on
// original_source's rule-evaluation logic in param_catalog.py's
// computed-value path.
package ruleengine

import (
	"math"
	"strconv"
	"strings"

	"github.com/bragerone/bragerone-go/domain"
)

// ValueSource resolves the current raw value stored at a register
// address.
type ValueSource interface {
	RawValue(addr domain.Address) (any, bool)
}

// Evaluate runs the rule chain described by raw (the decoded JSON value
// found under a mapping's "any", "value", or "paths.value" key) against
// src, returning the normalized output of the first matching if/elseif
// clause, the unconditional else clause if none matched, or nil if the
// chain is empty or malformed.
func Evaluate(raw any, src ValueSource) any {
	rules, ok := raw.([]any)
	if !ok {
		return nil
	}

	for _, ruleAny := range rules {
		rule, ok := ruleAny.(map[string]any)
		if !ok {
			continue
		}

		if elseVal, hasElse := rule["else"]; hasElse {
			return normalize(elseVal)
		}

		conditions, thenVal, hasClause := clauseOf(rule)
		if !hasClause {
			continue
		}
		if evalConditions(conditions, src) {
			return normalize(thenVal)
		}
	}
	return nil
}

func clauseOf(rule map[string]any) (conditions []any, then any, ok bool) {
	if ifVal, hasIf := rule["if"]; hasIf {
		if list, ok2 := ifVal.([]any); ok2 {
			return list, rule["then"], true
		}
	}
	if elseifVal, hasElseif := rule["elseif"]; hasElseif {
		if list, ok2 := elseifVal.([]any); ok2 {
			return list, rule["then"], true
		}
	}
	return nil, nil, false
}

// evalConditions requires every condition in the list to be satisfied
// (AND); a condition is itself satisfied if any of its selector
// addresses compares true (existential OR).
func evalConditions(conditions []any, src ValueSource) bool {
	if len(conditions) == 0 {
		return false
	}
	for _, condAny := range conditions {
		cond, ok := condAny.(map[string]any)
		if !ok {
			return false
		}
		if !evalCondition(cond, src) {
			return false
		}
	}
	return true
}

func evalCondition(cond map[string]any, src ValueSource) bool {
	expected := cond["expected"]
	operation, _ := cond["operation"].(string)
	selectors, ok := cond["value"].([]any)
	if !ok {
		return false
	}

	op := operationName(operation)

	for _, selAny := range selectors {
		selMap, ok := selAny.(map[string]any)
		if !ok {
			continue
		}
		sel, ok := decodeConditionSelector(selMap)
		if !ok {
			continue
		}
		raw, ok := src.RawValue(sel.Address())
		if !ok {
			continue
		}
		actual := extractBitOrMask(raw, sel)
		if compare(actual, expected, op) {
			return true
		}
	}
	return false
}

// conditionSelector mirrors domain.Selector's addressing fields; decoded
// locally to tolerate the condition selector's {group, number, use}
// naming instead of {pool, chan, idx}.
type conditionSelector struct {
	domain.Selector
}

func decodeConditionSelector(m map[string]any) (conditionSelector, bool) {
	pool, hasPool := asInt(m["group"])
	idx, hasIdx := asInt(m["number"])
	chanRaw, hasChan := m["use"]
	if !hasPool || !hasIdx || !hasChan {
		return conditionSelector{}, false
	}
	chanName, ok := chanRaw.(string)
	if !ok {
		return conditionSelector{}, false
	}
	ch := domain.Channel(0)
	if len(chanName) == 1 {
		ch = domain.Channel(chanName[0])
	} else {
		ch = channelByLongName(chanName)
	}
	if !ch.IsValid() {
		return conditionSelector{}, false
	}

	sel := domain.Selector{Pool: pool, Chan: ch, Idx: idx}
	if bit, ok := asInt(m["bit"]); ok {
		sel.Bit = &bit
	}
	if mask, ok := asInt(m["mask"]); ok {
		sel.Mask = &mask
	}
	return conditionSelector{Selector: sel}, true
}

func channelByLongName(name string) domain.Channel {
	switch name {
	case "value", "command":
		return domain.ChanValue
	case "status":
		return domain.ChanStatus
	case "unit":
		return domain.ChanUnit
	case "minValue":
		return domain.ChanMin
	case "maxValue":
		return domain.ChanMax
	default:
		return domain.Channel(0)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// extractBitOrMask applies the selector's optional bit/mask extraction
// to the register's raw value.
func extractBitOrMask(raw any, sel conditionSelector) any {
	f, ok := toFloat(raw)
	if !ok {
		return raw
	}
	n := int64(f)
	switch {
	case sel.Bit != nil:
		return float64((n >> uint(*sel.Bit)) & 1)
	case sel.Mask != nil:
		return float64(n & int64(*sel.Mask))
	default:
		return f
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// operationName takes the last dotted segment of an operation name, so
// "t.equalTo", "equalTo", and "e.equalTo" are all equivalent.
func operationName(op string) string {
	if i := strings.LastIndex(op, "."); i >= 0 {
		return op[i+1:]
	}
	return op
}

func compare(actual, expected any, op string) bool {
	af, aok := toFloat(actual)
	ef, eok := toFloat(expected)
	if aok && eok {
		switch op {
		case "equalTo":
			return af == ef
		case "notEqualTo":
			return af != ef
		case "greaterThan":
			return af > ef
		case "greaterThanOrEqualTo":
			return af >= ef
		case "lessThan":
			return af < ef
		case "lessThanOrEqualTo":
			return af <= ef
		}
		return false
	}

	as, ao := actual.(string)
	es, eo := expected.(string)
	if ao && eo {
		switch op {
		case "equalTo":
			return as == es
		case "notEqualTo":
			return as != es
		}
	}
	return false
}

// normalize applies the rule engine's output normalization: strings keep
// their suffix after the namespace prefix unless the namespace is the
// explicit enum prefix "e.", integer-valued float64s become decimal
// strings, {value: X} dicts recurse on X, and anything else
// yields nil.
func normalize(v any) any {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "e.") {
			return t
		}
		if i := strings.Index(t, "."); i >= 0 {
			return t[i+1:]
		}
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatFloat(t, 'f', 0, 64)
		}
		return nil
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return normalize(inner)
		}
		return nil
	default:
		return nil
	}
}
