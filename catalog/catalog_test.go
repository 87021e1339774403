package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	byURL map[string][]byte
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{byURL: make(map[string][]byte), calls: make(map[string]int)}
}

func (f *fakeFetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	f.calls[url]++
	return f.byURL[url], nil
}

const sampleIndex = `
import("./PARAM_66-abc123.js");
import("./units-pl-9f8e.js");
const device_menu = {12:"menu-ab12", "13": "menu-cd34"};
const langCfg = {translations:[{id:"pl",flag:"pl"},{id:"en",flag:"en"}], defaultTranslation:"pl"};
"../../resources/languages/pl/foo.json": () => d(() => import("./lang-pl-abc.js")),
`

func TestRefreshIndexBuildsAllRegistries(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(sampleIndex)

	c := New(f, nil)
	state, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	assert.Contains(t, state.AssetsByBasename, "PARAM_66")
	assert.Equal(t, "menu-ab12", state.MenuMap[12])
	assert.Equal(t, "menu-cd34", state.MenuMap[13])
	require.NotNil(t, state.Translations)
	assert.Equal(t, "pl", state.Translations.DefaultTranslation)
	assert.Len(t, state.Translations.Translations, 2)
	assert.Equal(t, "./lang-pl-abc.js", state.TranslationsByLang["pl"])
}

func TestFindLanguageConfigRejectsBelowThreshold(t *testing.T) {
	bundle := `{translations:[{id:"pl",flag:"pl"},{id:"en"},{id:"fr"}], defaultTranslation:"pl"}`
	cfg := findLanguageConfig(bundle)
	assert.Nil(t, cfg)
}

func TestFindLanguageConfigAcceptsAtThreshold(t *testing.T) {
	bundle := `{translations:[{id:"pl",flag:"pl"},{id:"en",flag:"en"},{id:"de",flag:"de"},{id:"cs",flag:"cs"},{id:"sk",flag:"sk"},{id:"uk",flag:"uk"},{id:"ru",flag:"ru"},{id:"fr"},{id:"it"},{id:"es"}], defaultTranslation:"pl"}`
	cfg := findLanguageConfig(bundle)
	require.NotNil(t, cfg)
	assert.Equal(t, "pl", cfg.DefaultTranslation)
}

func TestGetParamMapFetchesByBasename(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(`import("./PARAM_66-abc.js");`)
	f.byURL["./PARAM_66-abc.js"] = []byte(`export default {group:"P1", componentType:"boiler", value:{pool:1,chan:"v",idx:66}};`)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	out, err := c.GetParamMap(context.Background(), []string{"PARAM_66"})
	require.NoError(t, err)
	pm, ok := out["PARAM_66"]
	require.True(t, ok)
	assert.Equal(t, "P1", pm.Group)
	require.Len(t, pm.Paths.Value, 1)
	assert.Equal(t, 66, pm.Paths.Value[0].Idx)
}

func TestGetParamMapParsesInvisibleRuleClauseStatusSection(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(`import("./PARAM_66-abc.js");`)
	f.byURL["./PARAM_66-abc.js"] = []byte(`export default {
		group: "P6",
		value: {pool:6, chan:"v", idx:66},
		status: [
			{if:[{expected:1, operation:"e.equalTo", value:[{group:6,number:34,use:"v"}]}], then:"!1", condition:"[t.INVISIBLE]"},
			{else:"!0", condition:"[t.INVISIBLE]"}
		]
	};`)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	out, err := c.GetParamMap(context.Background(), []string{"PARAM_66"})
	require.NoError(t, err)
	pm, ok := out["PARAM_66"]
	require.True(t, ok)

	assert.Empty(t, pm.Paths.Status, "rule-shaped status entries must not be mistaken for plain selectors")
	require.Contains(t, pm.Paths.StatusRules, "INVISIBLE")
	assert.Len(t, pm.Paths.StatusRules["INVISIBLE"], 2)
}

func TestGetParamMapInlineFallbackSingleCandidate(t *testing.T) {
	f := newFakeFetcher()
	bundle := `const x = {group:"P2", value:{pool:2,chan:"v",idx:9}};`
	f.byURL["/assets/index-xyz.js"] = []byte(bundle)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	out, err := c.GetParamMap(context.Background(), []string{"UNKNOWN_TOKEN"})
	require.NoError(t, err)
	pm, ok := out["UNKNOWN_TOKEN"]
	require.True(t, ok)
	assert.Equal(t, "inline", pm.Origin)
	assert.Equal(t, "P2", pm.Group)
}

func TestGetI18nResolvesNestedPath(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(sampleIndex)
	f.byURL["./lang-pl-abc.js"] = []byte(`export default {app:{boiler:{name:"Kocioł"}}};`)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	ns, err := c.GetI18n(context.Background(), "pl", "app")
	require.NoError(t, err)
	label, ok := LookupPath(ns, "app.boiler.name")
	require.True(t, ok)
	assert.Equal(t, "Kocioł", label)
}

func TestGetI18nMissingLangReturnsEmpty(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(sampleIndex)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	ns, err := c.GetI18n(context.Background(), "de", "app")
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestGetUnitsDecodesDescriptors(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["./units-pl.js"] = []byte(`export default {"5": {text:"units.celsius", value:"e => Number((e*.1).toFixed(1))"}};`)

	c := New(f, nil)
	d, ok := c.GetUnit(context.Background(), "./units-pl.js", 5)
	require.True(t, ok)
	assert.Equal(t, "units.celsius", d.Text)
}

func TestGetModuleMenuFiltersByPermission(t *testing.T) {
	f := newFakeFetcher()
	f.byURL["/assets/index-xyz.js"] = []byte(`import("./menu-abc-1a2b.js"); const device_menu = {1:"menu-abc"};`)
	f.byURL["./menu-abc-1a2b.js"] = []byte(`export default {routes:[
		{path:"boiler", displayName:" Boiler ", permissionModule:"A.BOILER_VIEW", isModuleItem:true,
		 parameters:{read:["helper(E.READ, 'PARAM_66')"]}},
		{path:"locked", permissionModule:"A.LOCKED_VIEW", isModuleItem:true}
	]};`)

	c := New(f, nil)
	_, err := c.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)

	result, err := c.GetModuleMenu(context.Background(), 1, map[string]bool{"BOILER_VIEW": true}, false)
	require.NoError(t, err)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, "Boiler", result.Routes[0].DisplayName)
	assert.Equal(t, "PARAM_66", result.Routes[0].Parameters.Read[0].Token)
}
