package catalog

import (
	"context"
	"strings"

	"github.com/bragerone/bragerone-go/catalog/jsparse"
)

// GetI18n resolves and parses the i18n namespace chunk for lang,
// returning its default-exported nested mapping. Results are cached per
// (lang, namespace); a missing chunk returns an empty map rather than an
// error, per the catalog's fail-soft contract.
func (c *Catalog) GetI18n(ctx context.Context, lang, namespace string) (map[string]any, error) {
	key := i18nKey{lang: lang, ns: namespace}

	c.i18nMu.Lock()
	if cached, ok := c.i18nCache[key]; ok {
		c.i18nMu.Unlock()
		return cached, nil
	}
	c.i18nMu.Unlock()

	idx, ok := c.Index()
	if !ok {
		return map[string]any{}, nil
	}
	chunk, ok := idx.TranslationsByLang[strings.ToLower(lang)]
	if !ok {
		return map[string]any{}, nil
	}

	raw, err := c.fetcher.GetBytes(ctx, chunk)
	if err != nil {
		return map[string]any{}, nil
	}

	obj, err := jsparse.ParseDefaultExport(string(raw))
	if err != nil {
		return map[string]any{}, nil
	}

	ns, ok := obj[namespace].(map[string]any)
	if !ok {
		ns = obj
	}

	c.i18nMu.Lock()
	c.i18nCache[key] = ns
	c.i18nMu.Unlock()

	return ns, nil
}

// LookupPath resolves a dotted path against a nested i18n map, tolerating
// an optional leading "app." namespace prefix. It returns ok=false when
// any segment of the path is missing or not traversable.
func LookupPath(m map[string]any, path string) (string, bool) {
	path = strings.TrimPrefix(path, "app.")
	segments := strings.Split(path, ".")

	var cur any = m
	for _, seg := range segments {
		node, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = node[seg]
		if !ok {
			return "", false
		}
	}

	s, ok := cur.(string)
	return s, ok
}
