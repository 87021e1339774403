package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragerone/bragerone-go/catalog"
)

type fakeFetcher struct {
	byURL map[string][]byte
}

func (f *fakeFetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	return f.byURL[url], nil
}

func TestEnsureLangPrefersExplicitlyConfiguredLang(t *testing.T) {
	cat := catalog.New(&fakeFetcher{}, nil)
	r := New(cat, "pl")

	assert.Equal(t, "pl", r.EnsureLang())
}

func TestEnsureLangFallsBackToCatalogDefaultTranslation(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"/assets/index-xyz.js": []byte(`const langCfg = {translations:[{id:"pl",flag:"pl"},{id:"en",flag:"en"}], defaultTranslation:"pl"};`),
	}}
	cat := catalog.New(f, nil)
	_, err := cat.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	r := New(cat, "")
	assert.Equal(t, "pl", r.EnsureLang())
}

func TestEnsureLangFallsBackToEnglishWhenNothingConfigured(t *testing.T) {
	cat := catalog.New(&fakeFetcher{}, nil)
	r := New(cat, "")

	assert.Equal(t, "en", r.EnsureLang())
}

func TestEnsureLangCachesDecisionAcrossCalls(t *testing.T) {
	cat := catalog.New(&fakeFetcher{}, nil)
	r := New(cat, "de")

	first := r.EnsureLang()
	r.configured = "pl" // mutating after the first call must not change the cached decision
	second := r.EnsureLang()

	assert.Equal(t, first, second)
	assert.Equal(t, "de", second)
}

func TestResolveNamespacePathResolvesAndNormalizesLabel(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"/assets/index-xyz.js": []byte(`import("./lang-pl-abc.js");
		"../../resources/languages/pl/foo.json": () => d(() => import("./lang-pl-abc.js")),`),
		"./lang-pl-abc.js": []byte(`export default {app:{boiler:{name:"Kociol"}}};`),
	}}
	cat := catalog.New(f, nil)
	_, err := cat.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	r := New(cat, "pl")
	label, ok := r.ResolveNamespacePath(context.Background(), "app", "app.boiler.name")
	require.True(t, ok)
	assert.Equal(t, "Kociol", label)
}

func TestResolveNamespacePathMissingPathReturnsFalse(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"/assets/index-xyz.js": []byte(`import("./lang-pl-abc.js");
		"../../resources/languages/pl/foo.json": () => d(() => import("./lang-pl-abc.js")),`),
		"./lang-pl-abc.js": []byte(`export default {app:{boiler:{name:"Kociol"}}};`),
	}}
	cat := catalog.New(f, nil)
	_, err := cat.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	r := New(cat, "pl")
	_, ok := r.ResolveNamespacePath(context.Background(), "app", "app.missing.path")
	assert.False(t, ok)
}

func TestResolveParamLabelUsesParametersNamespace(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"/assets/index-xyz.js": []byte(`import("./lang-pl-abc.js");
		"../../resources/languages/pl/parameters.json": () => d(() => import("./lang-pl-abc.js")),`),
		"./lang-pl-abc.js": []byte(`export default {PARAM_66:"Temperatura kotla"};`),
	}}
	cat := catalog.New(f, nil)
	_, err := cat.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	r := New(cat, "pl")
	label, ok := r.ResolveParamLabel(context.Background(), "PARAM_66")
	require.True(t, ok)
	assert.Equal(t, "Temperatura kotla", label)
}

func TestNormalizeUnitSymbolAppliesKnownOverride(t *testing.T) {
	assert.Equal(t, "°C", NormalizeUnitSymbol("degC"))
}

func TestNormalizeUnitSymbolPassesThroughUnknownCode(t *testing.T) {
	assert.Equal(t, "kWh", NormalizeUnitSymbol("kWh"))
}
