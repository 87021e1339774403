// Package catalog implements the asset catalog (component E): entry
// bundle discovery, lazy chunk fetch, and JS-to-record parsing for
// parameter maps, i18n namespaces, unit descriptors, and module menus.
// Grounded on original_source's jsparse.py (authoritative normalization
// grammar, ported into catalog/jsparse) and on the structural,
// name-independent language-config recognition the spec requires.
package catalog

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/bragerone/bragerone-go/catalog/jsparse"
	"github.com/bragerone/bragerone-go/domain"
)

// AssetFetcher is the subset of httpapi.Client the catalog needs: a
// concurrency-capped, conditionally-cached byte fetch.
type AssetFetcher interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Catalog discovers, fetches, and parses the minimum set of assets
// needed to answer semantic queries. All caches are append-only maps,
// each guarded by its own mutex. The lock is not held across fetch and
// parse, so concurrent misses for the same key may each fetch and parse.
type Catalog struct {
	fetcher AssetFetcher
	logger  *slog.Logger

	mu    sync.RWMutex
	index *domain.IndexState

	paramMapMu    sync.Mutex
	paramMapCache map[string]domain.ParamMap

	i18nMu    sync.Mutex
	i18nCache map[i18nKey]map[string]any

	unitsMu    sync.Mutex
	unitsCache map[string]any

	menuMu    sync.Mutex
	menuCache map[menuKey]domain.MenuResult
}

type i18nKey struct {
	lang string
	ns   string
}

type menuKey struct {
	deviceMenu int
	permHash   uint64
}

// New creates an empty Catalog backed by fetcher.
func New(fetcher AssetFetcher, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		fetcher:       fetcher,
		logger:        logger,
		paramMapCache: make(map[string]domain.ParamMap),
		i18nCache:     make(map[i18nKey]map[string]any),
		unitsCache:    make(map[string]any),
		menuCache:     make(map[menuKey]domain.MenuResult),
	}
}

// importRe matches `import("./<base>-<hash>.js")`-shaped dynamic
// imports used to populate assets_by_basename.
var importRe = regexp.MustCompile(`import\(\s*["']\.\/([A-Za-z0-9_.$-]+?)-([A-Za-z0-9]+)\.js["']\s*\)`)

// RefreshIndex fetches the entry bundle at url and rebuilds the
// catalog's IndexState: assets_by_basename, menu_map, the structural
// language configuration (if any), and inline parameter-map candidates.
func (c *Catalog) RefreshIndex(ctx context.Context, url string) (domain.IndexState, error) {
	raw, err := c.fetcher.GetBytes(ctx, url)
	if err != nil {
		return domain.IndexState{}, err
	}

	state := domain.IndexState{
		Raw:                raw,
		AssetsByBasename:   indexAssetsByBasename(string(raw)),
		MenuMap:            indexMenuMap(string(raw)),
		TranslationsByLang: indexLanguageChunks(string(raw)),
	}
	state.Translations = findLanguageConfig(string(raw))
	state.InlineParamCandidates = findInlineParamCandidates(string(raw))

	c.mu.Lock()
	c.index = &state
	c.mu.Unlock()

	return state, nil
}

// Index returns the most recently refreshed IndexState, if any.
func (c *Catalog) Index() (domain.IndexState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return domain.IndexState{}, false
	}
	return *c.index, true
}

func indexAssetsByBasename(bundle string) map[string][]domain.AssetRef {
	out := make(map[string][]domain.AssetRef)
	for _, m := range importRe.FindAllStringSubmatch(bundle, -1) {
		base, hash := m[1], m[2]
		url := "./" + base + "-" + hash + ".js"
		out[base] = append(out[base], domain.AssetRef{URL: url, Base: base, Hash: hash})
	}
	return out
}

// deviceMenuEntryRe matches integer-keyed menu map entries of the
// generic bare-or-string-key forms the minifier produces, e.g.
// `12:"menu-ab12"` or `"12":"menu-ab12"`.
var deviceMenuEntryRe = regexp.MustCompile(`["']?(\d+)["']?\s*:\s*["']([A-Za-z0-9_.$-]+)["']`)

func indexMenuMap(bundle string) map[int]string {
	loc := regexp.MustCompile(`device_menu`).FindStringIndex(bundle)
	if loc == nil {
		return nil
	}
	bracePos := indexByteFromCatalog(bundle, '{', loc[1])
	if bracePos == -1 {
		return nil
	}
	rng, ok := jsparse.FindBracedObject(bundle, bracePos)
	if !ok {
		return nil
	}
	section := bundle[rng.Start:rng.End]

	out := make(map[int]string)
	for _, m := range deviceMenuEntryRe.FindAllStringSubmatch(section, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out[id] = m[2]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// langChunkEntryRe matches the resources/languages/<flag>/*.json entries
// the build maps to a dynamic import of the flag's language chunk, e.g.
// `"../../resources/languages/pl/foo.json": () => d(() => import("./lang-pl-abc123.js"))`.
var langChunkEntryRe = regexp.MustCompile(`["']\.\./\.\./resources/languages/([a-zA-Z]{2})/[^"']+?\.json["']\s*:\s*\(\)\s*=>\s*\w+\(\(\)\s*=>\s*import\(\s*["'](\./[^"']+?\.js)["']\s*\)`)

func indexLanguageChunks(bundle string) map[string]string {
	out := make(map[string]string)
	for _, m := range langChunkEntryRe.FindAllStringSubmatch(bundle, -1) {
		flag := strings.ToLower(m[1])
		out[flag] = m[2]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func indexByteFromCatalog(s string, b byte, from int) int {
	rel := strings.IndexByte(s[from:], b)
	if rel == -1 {
		return -1
	}
	return from + rel
}
