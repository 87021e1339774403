package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragerone/bragerone-go/catalog"
	"github.com/bragerone/bragerone-go/domain"
	"github.com/bragerone/bragerone-go/i18n"
	"github.com/bragerone/bragerone-go/paramstore"
)

type fakeFetcher struct {
	byURL map[string][]byte
}

func (f *fakeFetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	return f.byURL[url], nil
}

func TestResolveValueDirectWithUnitTransform(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"./units-pl.js": []byte(`export default {"5": {text:"units.celsius", value:"e => Number((e*.1).toFixed(1))"}};`),
	}}
	cat := catalog.New(f, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "pl")
	r := New(cat, store, lang, "./units-pl.js")

	store.Upsert("P1.v66", float64(235))
	store.Upsert("P1.u66", float64(5))

	pm := domain.ParamMap{
		Key: "PARAM_66",
		Paths: domain.ParamMapPaths{
			Value: []domain.Selector{{Pool: 1, Chan: domain.ChanValue, Idx: 66}},
		},
		Units: float64(5),
	}

	rv := r.ResolveValue(context.Background(), "PARAM_66", pm)
	assert.Equal(t, "direct", rv.Kind)
	assert.InDelta(t, 23.5, rv.Value.(float64), 0.0001)
}

func TestResolveValueComputedFromRuleList(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{}}
	cat := catalog.New(f, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "pl")
	r := New(cat, store, lang, "")

	store.Upsert("P1.v10", float64(1))

	pm := domain.ParamMap{
		Key:   "PARAM_10",
		Value: []any{map[string]any{"if": []any{map[string]any{"expected": float64(1), "operation": "equalTo", "value": []any{map[string]any{"group": float64(1), "number": float64(10), "use": "v"}}}}, "then": "ns.ON"}},
	}

	rv := r.ResolveValue(context.Background(), "PARAM_10", pm)
	assert.Equal(t, "computed", rv.Kind)
	assert.Equal(t, "ON", rv.Value)
}

func TestDescribeSymbolReadsLiveMinMaxFromStore(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{}}
	cat := catalog.New(f, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "en")
	r := New(cat, store, lang, "")

	store.Upsert("P1.v66", float64(235))
	store.Upsert("P1.n66", float64(0))
	store.Upsert("P1.x66", float64(500))

	pm := domain.ParamMap{
		Key:    "PARAM_66",
		Limits: "some-static-asset-limits-value",
		Paths: domain.ParamMapPaths{
			Value: []domain.Selector{{Pool: 1, Chan: domain.ChanValue, Idx: 66}},
		},
	}

	desc := r.DescribeSymbol(context.Background(), "PARAM_66", pm)
	assert.InDelta(t, 0, desc.Min.(float64), 0.0001)
	assert.InDelta(t, 500, desc.Max.(float64), 0.0001)
	assert.Equal(t, "some-static-asset-limits-value", desc.Mapping.Limits)
}

func TestDescribeSymbolOmitsMinMaxWhenUnresolved(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{}}
	cat := catalog.New(f, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "en")
	r := New(cat, store, lang, "")

	pm := domain.ParamMap{Key: "PARAM_66"}

	desc := r.DescribeSymbol(context.Background(), "PARAM_66", pm)
	assert.Nil(t, desc.Min)
	assert.Nil(t, desc.Max)
}

func TestIsParameterVisibleLikeAppHidesOnInvisibleCondition(t *testing.T) {
	cat := catalog.New(&fakeFetcher{}, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "en")
	r := New(cat, store, lang, "")

	store.Upsert("P1.s20", float64(1))

	pm := domain.ParamMap{
		Paths: domain.ParamMapPaths{
			Value:  []domain.Selector{{Pool: 1, Chan: domain.ChanValue, Idx: 20}},
			Status: []domain.Selector{{Pool: 1, Chan: domain.ChanStatus, Idx: 20, Condition: []string{"t.INVISIBLE"}}},
		},
	}

	result := r.IsParameterVisibleLikeApp(pm)
	assert.False(t, result.Visible)
}

// TestIsParameterVisibleLikeAppEvaluatesInvisibleRuleClauseFromCatalog
// exercises the real catalog.GetParamMap parsing path (unlike the
// hand-built ParamMap above) for an INVISIBLE status section shaped as
// an if/then/else rule clause gating on a register distinct from the
// symbol's own address, per original_source's
// test_is_parameter_visible_like_app_hides_t_invisible.
func TestIsParameterVisibleLikeAppEvaluatesInvisibleRuleClauseFromCatalog(t *testing.T) {
	f := &fakeFetcher{byURL: map[string][]byte{
		"/assets/index-xyz.js": []byte(`import("./PARAM_66-abc.js");`),
		"./PARAM_66-abc.js": []byte(`export default {
			group: "P6",
			value: {pool:6, chan:"v", idx:66},
			status: [
				{if:[{expected:1, operation:"e.equalTo", value:[{group:6,number:34,use:"v"}]}], then:"!1", condition:"[t.INVISIBLE]"},
				{else:"!0", condition:"[t.INVISIBLE]"}
			]
		};`),
	}}
	cat := catalog.New(f, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "en")
	r := New(cat, store, lang, "")

	_, err := cat.RefreshIndex(context.Background(), "/assets/index-xyz.js")
	require.NoError(t, err)
	out, err := cat.GetParamMap(context.Background(), []string{"PARAM_66"})
	require.NoError(t, err)
	pm := out["PARAM_66"]

	store.Upsert("P6.v66", float64(12))
	store.Upsert("P6.v34", float64(1))
	assert.True(t, r.IsParameterVisibleLikeApp(pm).Visible)

	store.Upsert("P6.v34", float64(0))
	assert.False(t, r.IsParameterVisibleLikeApp(pm).Visible)
}

func TestIsParameterVisibleLikeAppCommandLikeAlwaysVisible(t *testing.T) {
	cat := catalog.New(&fakeFetcher{}, nil)
	store := paramstore.New()
	lang := i18n.New(cat, "en")
	r := New(cat, store, lang, "")

	pm := domain.ParamMap{CommandRules: []any{"SET"}}

	result := r.IsParameterVisibleLikeApp(pm)
	require.True(t, result.Visible)
	assert.Contains(t, result.Reason, "command-like")
}
