package jsparse

import (
	"encoding/json"
	"fmt"
)

// ParseDefaultExport extracts the default-exported object literal from
// js, applies the build-artifact rewrites (bracketed enum keys, enum
// value references) and the JSON-ish normalization pipeline, then
// parses the result as JSON into a generic map.
func ParseDefaultExport(js string) (map[string]any, error) {
	lit, err := ExtractDefaultObjectLiteral(js)
	if err != nil {
		return nil, err
	}
	return ParseObjectLiteral(lit)
}

// ParseObjectLiteral applies the rewrite+normalize+decode pipeline to an
// already-extracted object literal (used both for default exports and
// for inline candidate literals discovered elsewhere in a bundle).
func ParseObjectLiteral(lit string) (map[string]any, error) {
	lit = RewriteBracketedEnumKeys(lit)
	lit = RewriteEnumValues(lit)
	jsonish := ToJSONish(lit)

	var out map[string]any
	if err := json.Unmarshal([]byte(jsonish), &out); err != nil {
		return nil, fmt.Errorf("jsparse: decode normalized literal: %w", err)
	}
	return out, nil
}

// FallbackExtractFields performs the last-resort partial extraction
// used when a full parse fails: it regex-scans the normalized text for
// a "name" field, an optional numeric "id", and an optional "command"
// string, and returns a minimal record keyed by name. It returns
// ok=false if even "name" cannot be found.
func FallbackExtractFields(jsonish string) (fields map[string]any, ok bool) {
	nameMatch := nameFieldRe.FindStringSubmatch(jsonish)
	if nameMatch == nil {
		return nil, false
	}

	fields = map[string]any{"name": nameMatch[1]}
	if idMatch := idFieldRe.FindStringSubmatch(jsonish); idMatch != nil {
		var id int
		if _, err := fmt.Sscanf(idMatch[1], "%d", &id); err == nil {
			fields["id"] = id
		}
	}
	if cmdMatch := commandFieldRe.FindStringSubmatch(jsonish); cmdMatch != nil {
		fields["command"] = cmdMatch[1]
	}
	return fields, true
}
