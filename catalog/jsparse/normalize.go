package jsparse

import "regexp"

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`(?m)//.*?$`)

	voidZeroRe      = regexp.MustCompile(`\bvoid\s*0\b`)
	voidZeroParenRe = regexp.MustCompile(`\bvoid\s*\(\s*0\s*\)`)

	notZeroRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|!\s*0`)
	notOneRe  = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|!\s*1`)

	singleQuotedRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'([^'\\]*(?:\\.[^'\\]*)*)'`)

	unquotedKeyRe    = regexp.MustCompile(`([{\s,])([A-Za-z_$][\w$]*)\s*:`)
	unquotedNumKeyRe = regexp.MustCompile(`([{\s,])([+-]?(?:\d+(?:\.\d+)?(?:[eE][+-]?\d+)?))\s*:`)
	unquotedHexKeyRe = regexp.MustCompile(`([{\s,])(0x[0-9a-fA-F]+)\s*:`)

	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)

	specialsRe = regexp.MustCompile(`(?i)(?:-Infinity|\b(?:undefined|NaN|Infinity))\b`)

	bracketedKeyRe = regexp.MustCompile(`(?m)\[\s*[A-Za-z_$][\w$]*\s*\.\s*([A-Za-z_$][\w$]*)\s*\]\s*:`)
	enumValueRe    = regexp.MustCompile(`:\s*[A-Za-z_$][\w$]*\s*\.\s*([A-Za-z_$][\w$]*)\b`)
)

// StripComments removes block and line comments.
func StripComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	return s
}

// ToJSONish applies the conservative normalization pipeline that turns
// an extracted JS object literal into a string encoding/json can parse:
// strip comments, fold void-0/!0/!1, single- to double-quote strings,
// quote bare keys (identifier/numeric/hex), drop trailing commas, and
// fold undefined/NaN/Infinity to null.
func ToJSONish(s string) string {
	s = StripComments(s)

	s = voidZeroRe.ReplaceAllString(s, "null")
	s = voidZeroParenRe.ReplaceAllString(s, "null")

	s = notZeroRe.ReplaceAllStringFunc(s, func(m string) string { return foldOutsideString(m, "true") })
	s = notOneRe.ReplaceAllStringFunc(s, func(m string) string { return foldOutsideString(m, "false") })

	s = singleQuotedRe.ReplaceAllStringFunc(s, singleToDouble)

	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = unquotedNumKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = unquotedHexKeyRe.ReplaceAllString(s, `$1"$2":`)

	s = trailingCommaObjRe.ReplaceAllString(s, "}")
	s = trailingCommaArrRe.ReplaceAllString(s, "]")

	s = specialsRe.ReplaceAllString(s, "null")

	return s
}

func foldOutsideString(match, repl string) string {
	if match[0] == '"' || match[0] == '\'' {
		return match
	}
	return repl
}

func singleToDouble(match string) string {
	if match[0] == '"' {
		return match
	}
	inner := match[1 : len(match)-1]
	return `"` + escapeForDoubleQuote(inner) + `"`
}

func escapeForDoubleQuote(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			if s[i+1] == '\'' {
				out = append(out, '\'')
			} else {
				out = append(out, c, s[i+1])
			}
			i++
			continue
		}
		if c == '"' {
			out = append(out, '\\', '"')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// RewriteBracketedEnumKeys rewrites build-artifact key prefixes of the
// form `[u.LOCKED]: ...` to `"LOCKED": ...`.
func RewriteBracketedEnumKeys(s string) string {
	return bracketedKeyRe.ReplaceAllString(s, `"$1":`)
}

// RewriteEnumValues rewrites value-side enum references like
// `: e.TEXT_FIELD` to `: "TEXT_FIELD"`.
func RewriteEnumValues(s string) string {
	return enumValueRe.ReplaceAllString(s, `: "$1"`)
}
