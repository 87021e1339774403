// Package i18n implements the language/i18n resolver (component I): the
// effective-language decision, per-(lang, namespace) chunk lookups, and
// dotted-path label resolution. Resolved labels are NFC-normalized via
// golang.org/x/text/unicode/norm.
package i18n

import (
	"context"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/bragerone/bragerone-go/catalog"
)

// Resolver decides the effective language and answers dotted-path label
// lookups against the catalog's i18n chunks.
type Resolver struct {
	cat *catalog.Catalog

	mu            sync.RWMutex
	configured    string
	effective     string
	effectiveOnce bool
}

// New builds a Resolver. configuredLang, when non-empty, always wins
// over the catalog's language-config default.
func New(cat *catalog.Catalog, configuredLang string) *Resolver {
	return &Resolver{cat: cat, configured: configuredLang}
}

// EnsureLang returns the effective language: the explicitly configured
// one, or the catalog's recognized language-config defaultTranslation.
func (r *Resolver) EnsureLang() string {
	r.mu.RLock()
	if r.effectiveOnce {
		defer r.mu.RUnlock()
		return r.effective
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.effectiveOnce {
		return r.effective
	}

	lang := r.configured
	if lang == "" {
		if idx, ok := r.cat.Index(); ok && idx.Translations != nil {
			lang = idx.Translations.DefaultTranslation
		}
	}
	if lang == "" {
		lang = "en"
	}
	r.effective = lang
	r.effectiveOnce = true
	return lang
}

// GetNamespace fetches and caches the namespace chunk for the effective
// language.
func (r *Resolver) GetNamespace(ctx context.Context, namespace string) (map[string]any, error) {
	return r.cat.GetI18n(ctx, r.EnsureLang(), namespace)
}

// ResolveParamLabel resolves symbol's label via the "parameters"
// namespace, tolerating an optional leading "app." prefix in the path
// and NFC-normalizing the resolved string.
func (r *Resolver) ResolveParamLabel(ctx context.Context, dottedPath string) (string, bool) {
	return r.ResolveNamespacePath(ctx, "parameters", dottedPath)
}

// ResolveNamespacePath resolves a dotted path against an arbitrary
// namespace, for callers (such as the resolver's computed-value
// labeling) that need namespaces other than "parameters".
func (r *Resolver) ResolveNamespacePath(ctx context.Context, namespace, dottedPath string) (string, bool) {
	ns, err := r.GetNamespace(ctx, namespace)
	if err != nil {
		return "", false
	}
	label, ok := catalog.LookupPath(ns, dottedPath)
	if !ok {
		return "", false
	}
	return norm.NFC.String(label), true
}

// unitSymbolOverrides maps the small set of raw unit codes the upstream
// app special-cases to a display symbol rather than routing through
// i18n (e.g. the bare string "degC" meaning the degree-Celsius symbol).
var unitSymbolOverrides = map[string]string{
	"degC": "°C",
}

// NormalizeUnitSymbol applies the small set of known raw-code
// normalizations (e.g. "degC" -> "°C") ahead of i18n lookup.
func NormalizeUnitSymbol(code string) string {
	if sym, ok := unitSymbolOverrides[code]; ok {
		return sym
	}
	return code
}
