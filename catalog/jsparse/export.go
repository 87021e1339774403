package jsparse

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoDefaultExport is returned when none of the four recognized
// default-export forms (nor the largest-brace fallback) can locate an
// object literal in the source.
var ErrNoDefaultExport = errors.New("jsparse: export default object not found")

var (
	exportDefaultRe = regexp.MustCompile(`export\s+default\b`)
	exportAliasRe   = regexp.MustCompile(`export\s*\{\s*([A-Za-z_$][\w$]*)\s+as\s+default\s*\}`)
	exportNameRe    = regexp.MustCompile(`export\s+default\s+([A-Za-z_$][\w$]*)\s*;`)
)

// ExtractDefaultObjectLiteral locates the default-exported object
// literal inside js, trying each recognized form in order:
//
//	(a) export default { ... }
//	(b) const X = { ... }; export { X as default };  (and let/var)
//	(c) export default X; with X defined earlier as an object literal
//	(d) fallback: the largest outermost {...} in the file
func ExtractDefaultObjectLiteral(js string) (string, error) {
	if lit, ok := extractDirectDefault(js); ok {
		return lit, nil
	}
	if lit, ok := extractAliasDefault(js); ok {
		return lit, nil
	}
	if lit, ok := extractNamedDefault(js); ok {
		return lit, nil
	}
	if lit, ok := extractLargestObject(js); ok {
		return lit, nil
	}
	return "", ErrNoDefaultExport
}

// extractDirectDefault handles form (a).
func extractDirectDefault(js string) (string, bool) {
	loc := exportDefaultRe.FindStringIndex(js)
	if loc == nil {
		return "", false
	}
	bracePos := indexByteFrom(js, '{', loc[1])
	if bracePos == -1 {
		return "", false
	}
	rng, ok := FindBracedObject(js, bracePos)
	if !ok {
		return "", false
	}
	return js[rng.Start:rng.End], true
}

// extractAliasDefault handles form (b): const/let/var X = {...}; export
// { X as default };
func extractAliasDefault(js string) (string, bool) {
	m := exportAliasRe.FindStringSubmatch(js)
	if m == nil {
		return "", false
	}
	name := m[1]
	varDefRe := regexp.MustCompile(`(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=\s*`)
	loc := varDefRe.FindStringIndex(js)
	if loc == nil {
		return "", false
	}
	bracePos := indexByteFrom(js, '{', loc[1])
	if bracePos == -1 {
		return "", false
	}
	rng, ok := FindBracedObject(js, bracePos)
	if !ok {
		return "", false
	}
	return js[rng.Start:rng.End], true
}

// extractNamedDefault handles form (c): export default X; with X
// defined earlier as const/let/var X = {...}.
func extractNamedDefault(js string) (string, bool) {
	m := exportNameRe.FindStringSubmatch(js)
	if m == nil {
		return "", false
	}
	name := m[1]
	varDefRe := regexp.MustCompile(`(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=\s*`)
	loc := varDefRe.FindStringIndex(js)
	if loc == nil {
		return "", false
	}
	bracePos := indexByteFrom(js, '{', loc[1])
	if bracePos == -1 {
		return "", false
	}
	rng, ok := FindBracedObject(js, bracePos)
	if !ok {
		return "", false
	}
	return js[rng.Start:rng.End], true
}

// extractLargestObject handles form (d): the fallback of last resort.
func extractLargestObject(js string) (string, bool) {
	ranges := FindAllBracedObjects(js)
	if len(ranges) == 0 {
		return "", false
	}
	best := ranges[0]
	for _, r := range ranges[1:] {
		if (r.End - r.Start) > (best.End - best.Start) {
			best = r
		}
	}
	return js[best.Start:best.End], true
}

func indexByteFrom(s string, b byte, from int) int {
	if from > len(s) {
		return -1
	}
	rel := strings.IndexByte(s[from:], b)
	if rel == -1 {
		return -1
	}
	return from + rel
}
