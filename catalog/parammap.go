package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/bragerone/bragerone-go/catalog/jsparse"
	"github.com/bragerone/bragerone-go/domain"
)

// channelAlias maps the long-form channel names an asset's channel map
// may use to the single-letter domain.Channel forms; single-letter forms
// pass through unchanged.
var channelAlias = map[string]domain.Channel{
	"value":    domain.ChanValue,
	"command":  domain.ChanValue,
	"status":   domain.ChanStatus,
	"unit":     domain.ChanUnit,
	"minValue": domain.ChanMin,
	"maxValue": domain.ChanMax,
	"v":        domain.ChanValue,
	"s":        domain.ChanStatus,
	"u":        domain.ChanUnit,
	"n":        domain.ChanMin,
	"x":        domain.ChanMax,
}

// GetParamMap resolves a set of requested symbol tokens to their parsed
// ParamMap, fetching assets_by_basename entries first and falling back
// to an inline candidate from the index bundle only when exactly one
// token remains unresolved and exactly one inline candidate exists.
func (c *Catalog) GetParamMap(ctx context.Context, tokens []string) (map[string]domain.ParamMap, error) {
	idx, ok := c.Index()
	if !ok {
		return nil, fmt.Errorf("catalog: index not refreshed")
	}

	out := make(map[string]domain.ParamMap, len(tokens))
	var unresolved []string

	for _, tok := range tokens {
		if pm, ok := c.cachedParamMap(tok); ok {
			out[tok] = pm
			continue
		}

		variants := idx.AssetsByBasename[tok]
		if len(variants) == 0 {
			unresolved = append(unresolved, tok)
			continue
		}
		asset := newestVariant(variants)

		raw, err := c.fetcher.GetBytes(ctx, asset.URL)
		if err != nil {
			unresolved = append(unresolved, tok)
			continue
		}
		pm, err := parseParamMapAsset(string(raw), tok)
		if err != nil {
			unresolved = append(unresolved, tok)
			continue
		}
		c.storeParamMap(tok, pm)
		out[tok] = pm
	}

	if len(unresolved) == 1 && len(idx.InlineParamCandidates) == 1 {
		tok := unresolved[0]
		rng := idx.InlineParamCandidates[0]
		lit := string(idx.Raw[rng.Start:rng.End])
		if pm, err := parseParamMapLiteral(lit, tok, "inline"); err == nil {
			c.storeParamMap(tok, pm)
			out[tok] = pm
		}
	}

	return out, nil
}

func (c *Catalog) cachedParamMap(token string) (domain.ParamMap, bool) {
	c.paramMapMu.Lock()
	defer c.paramMapMu.Unlock()
	pm, ok := c.paramMapCache[token]
	return pm, ok
}

func (c *Catalog) storeParamMap(token string, pm domain.ParamMap) {
	c.paramMapMu.Lock()
	defer c.paramMapMu.Unlock()
	c.paramMapCache[token] = pm
}

// newestVariant picks the last-observed hashed variant for a basename;
// assets_by_basename preserves discovery order, and the newest build
// artifact is assumed to be appended last.
func newestVariant(variants []domain.AssetRef) domain.AssetRef {
	return variants[len(variants)-1]
}

func parseParamMapAsset(js, token string) (domain.ParamMap, error) {
	obj, err := jsparse.ParseDefaultExport(js)
	if err != nil {
		if fields, ok := jsparse.FallbackExtractFields(jsparse.ToJSONish(js)); ok {
			return paramMapFromFallback(fields, token), nil
		}
		return domain.ParamMap{}, err
	}
	return buildParamMap(obj, token, token), nil
}

func parseParamMapLiteral(lit, token, origin string) (domain.ParamMap, error) {
	obj, err := jsparse.ParseObjectLiteral(lit)
	if err != nil {
		if fields, ok := jsparse.FallbackExtractFields(jsparse.ToJSONish(lit)); ok {
			return paramMapFromFallback(fields, token), nil
		}
		return domain.ParamMap{}, err
	}
	return buildParamMap(obj, token, origin), nil
}

func paramMapFromFallback(fields map[string]any, token string) domain.ParamMap {
	pm := domain.ParamMap{Key: token, Origin: "fallback", Raw: fields}
	if name, ok := fields["name"].(string); ok {
		pm.Name = name
	}
	return pm
}

func buildParamMap(obj map[string]any, token, origin string) domain.ParamMap {
	pm := domain.ParamMap{
		Key:    token,
		Origin: origin,
		Raw:    obj,
	}

	if group, ok := obj["group"].(string); ok {
		pm.Group = group
	}
	if ct, ok := obj["componentType"].(string); ok {
		pm.ComponentType = ct
	}
	if units, ok := obj["units"]; ok {
		pm.Units = units
	}
	if limits, ok := obj["limits"]; ok {
		pm.Limits = limits
	}
	if sf, ok := obj["statusFlags"]; ok {
		pm.StatusFlags = sf
	}
	if sc, ok := obj["statusConditions"]; ok {
		pm.StatusConditions = sc
	}
	if cr, ok := obj["command"]; ok {
		pm.CommandRules = cr
	}
	if uc, ok := obj["useComponent"].(string); ok {
		pm.UseComponent = uc
	}
	if name, ok := obj["name"].(string); ok {
		pm.Name = name
	}
	if any_, ok := obj["any"]; ok {
		pm.Any = any_
	}
	if v, ok := obj["value"]; ok {
		pm.Value = v
	}
	if vr, ok := obj["valueRule"]; ok {
		pm.ValueRule = vr
	}

	pm.Paths = extractChannelMap(obj)
	return pm
}

// extractChannelMap walks the well-known section names of a parsed
// parameter map object and builds the aggregated per-section address
// lists the resolver consumes. The status section is handled specially:
// it may mix plain tagged address selectors with if/then/else rule
// clauses (the latter can reference a register unrelated to the
// symbol's own address, e.g. a shared [t.INVISIBLE] gate).
func extractChannelMap(obj map[string]any) domain.ParamMapPaths {
	var paths domain.ParamMapPaths

	sectionTargets := []struct {
		key string
		dst *[]domain.Selector
	}{
		{"value", &paths.Value},
		{"unit", &paths.Unit},
		{"min", &paths.Min},
		{"max", &paths.Max},
		{"command", &paths.Command},
	}

	for _, t := range sectionTargets {
		raw, ok := obj[t.key]
		if !ok {
			continue
		}
		*t.dst = decodeSelectors(raw)
	}

	if raw, ok := obj["status"]; ok {
		paths.Status, paths.StatusRules = decodeStatusSection(raw)
	}

	return paths
}

// decodeStatusSection splits a status section's entries into plain
// tagged address selectors and if/then/else rule clauses, grouping the
// latter by their condition tag so the full chain (if-clause(s) plus a
// trailing else) can be replayed through the rule engine together.
func decodeStatusSection(raw any) ([]domain.Selector, map[string][]any) {
	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	case map[string]any:
		entries = []any{v}
	default:
		return nil, nil
	}

	var selectors []domain.Selector
	var rules map[string][]any

	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}

		if _, hasIf := m["if"]; hasIf {
			addStatusRule(&rules, m)
			continue
		}
		if _, hasElse := m["else"]; hasElse {
			addStatusRule(&rules, m)
			continue
		}

		if sel, ok := decodeSelector(m); ok {
			selectors = append(selectors, sel)
		}
	}

	return selectors, rules
}

func addStatusRule(rules *map[string][]any, entry map[string]any) {
	tags := parseConditionTags(entry["condition"])
	if len(tags) == 0 {
		return
	}
	if *rules == nil {
		*rules = make(map[string][]any)
	}
	for _, tag := range tags {
		(*rules)[tag] = append((*rules)[tag], entry)
	}
}

// parseConditionTags normalizes a condition field to its bare tag
// names, stripping namespace prefixes ("t.INVISIBLE" -> "INVISIBLE").
// Assets encode this either as a list of strings or as a single
// bracket-wrapped string literal ("[t.INVISIBLE]"), both of which are
// accepted.
func parseConditionTags(v any) []string {
	switch c := v.(type) {
	case []any:
		var out []string
		for _, e := range c {
			if s, ok := e.(string); ok {
				out = append(out, stripConditionNamespace(s))
			}
		}
		return out
	case string:
		s := strings.TrimSpace(c)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		var out []string
		for _, part := range strings.Split(s, ",") {
			part = strings.Trim(part, ` "'`)
			if part != "" {
				out = append(out, stripConditionNamespace(part))
			}
		}
		return out
	default:
		return nil
	}
}

func stripConditionNamespace(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// decodeSelectors accepts either a single selector-shaped map or a list
// of them and returns the decoded domain.Selector values.
func decodeSelectors(raw any) []domain.Selector {
	switch v := raw.(type) {
	case map[string]any:
		if sel, ok := decodeSelector(v); ok {
			return []domain.Selector{sel}
		}
		return nil
	case []any:
		var out []domain.Selector
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				if sel, ok := decodeSelector(m); ok {
					out = append(out, sel)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func decodeSelector(m map[string]any) (domain.Selector, bool) {
	pool, hasPool := asInt(m["pool"])
	chanRaw, hasChan := m["chan"]
	idx, hasIdx := asInt(m["idx"])
	if !hasPool || !hasChan || !hasIdx {
		return domain.Selector{}, false
	}

	chanName, ok := chanRaw.(string)
	if !ok {
		return domain.Selector{}, false
	}
	ch, ok := resolveChannelAlias(chanName)
	if !ok {
		return domain.Selector{}, false
	}

	sel := domain.Selector{Pool: pool, Chan: ch, Idx: idx}
	if bit, ok := asInt(m["bit"]); ok {
		sel.Bit = &bit
	}
	if mask, ok := asInt(m["mask"]); ok {
		sel.Mask = &mask
	}
	sel.Condition = parseConditionTags(m["condition"])
	return sel, true
}

func resolveChannelAlias(name string) (domain.Channel, bool) {
	if ch, ok := channelAlias[name]; ok {
		return ch, true
	}
	if len(name) == 1 {
		ch := domain.Channel(name[0])
		if ch.IsValid() {
			return ch, true
		}
	}
	return domain.Channel(0), false
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
