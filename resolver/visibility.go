package resolver

import (
	"strings"

	"github.com/bragerone/bragerone-go/domain"
	"github.com/bragerone/bragerone-go/resolver/ruleengine"
)

// IsParameterVisibleLikeApp judges whether a parameter would be shown by
// the upstream web app, given its mapping and the live register store.
// It walks the mapping's paths.status selectors: a selector tagged
// INVISIBLE hides the parameter when its (bit/mask-extracted) value is
// truthy; a selector tagged DEVICE_AVAILABLE hides the parameter when
// its referenced bit reads 0. An INVISIBLE tag may instead be a full
// if/then/else rule clause (paths.StatusRules) gating on a register
// unrelated to the symbol's own address; that chain is replayed through
// the rule engine rather than read as a plain truthy check. Command-like
// parameters — no value address but a command section — are always
// visible regardless of whether a current value exists.
func (r *Resolver) IsParameterVisibleLikeApp(pm domain.ParamMap) domain.VisibilityResult {
	if len(pm.Paths.Value) == 0 && pm.CommandRules != nil {
		return domain.VisibilityResult{Visible: true, Reason: "command-like parameter"}
	}

	if chain, ok := pm.Paths.StatusRules["INVISIBLE"]; ok {
		if invisible, matched := bangFlag(ruleengine.Evaluate(chain, r.store)); matched && invisible {
			return domain.VisibilityResult{Visible: false, Reason: "status condition marks parameter invisible"}
		}
	}

	for _, sel := range pm.Paths.Status {
		if !hasConditionTag(sel.Condition, "INVISIBLE") {
			continue
		}
		raw, ok := r.store.RawValue(sel.Address())
		if !ok {
			continue
		}
		if extractedTruthy(raw, sel) {
			return domain.VisibilityResult{Visible: false, Reason: "status condition marks parameter invisible"}
		}
	}

	for _, sel := range pm.Paths.Status {
		if !hasConditionTag(sel.Condition, "DEVICE_AVAILABLE") || sel.Bit == nil {
			continue
		}
		raw, ok := r.store.RawValue(sel.Address())
		if !ok {
			continue
		}
		if !extractedTruthy(raw, sel) {
			return domain.VisibilityResult{Visible: false, Reason: "device availability bit is unset"}
		}
	}

	return domain.VisibilityResult{Visible: true, Reason: "no hiding condition matched"}
}

// bangFlag interprets a rule engine result shaped as a JS boolean
// negation literal: "!1" evaluates (as JS) to false, "!0" to true.
// matched is false for any other shape, including a nil (no clause
// matched) result.
func bangFlag(result any) (flag bool, matched bool) {
	s, ok := result.(string)
	if !ok {
		return false, false
	}
	switch s {
	case "!0":
		return true, true
	case "!1":
		return false, true
	default:
		return false, false
	}
}

func hasConditionTag(tags []string, name string) bool {
	for _, t := range tags {
		if stripNamespace(t) == name {
			return true
		}
	}
	return false
}

func stripNamespace(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func extractedTruthy(raw any, sel domain.Selector) bool {
	f, ok := toFloat(raw)
	if !ok {
		return false
	}
	n := int64(f)
	switch {
	case sel.Bit != nil:
		return (n>>uint(*sel.Bit))&1 != 0
	case sel.Mask != nil:
		return n&int64(*sel.Mask) != 0
	default:
		return n != 0
	}
}
