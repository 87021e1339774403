// Package resolver implements the symbolic resolver (component G): the
// primary read surface translating a parsed ParamMap plus live register
// values into labeled, unit-converted, visibility-aware results.
// Grounded on original_source's param_catalog.py (rule evaluation,
// computed-value labeling cascade) and jsparse's unit-transform
// application.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/bragerone/bragerone-go/catalog"
	"github.com/bragerone/bragerone-go/domain"
	"github.com/bragerone/bragerone-go/i18n"
	"github.com/bragerone/bragerone-go/internal/jsexpr"
	"github.com/bragerone/bragerone-go/paramstore"
	"github.com/bragerone/bragerone-go/resolver/ruleengine"
)

// Resolver is the primary read surface over a device's resolved
// catalog, register store, and i18n namespaces.
type Resolver struct {
	catalog *catalog.Catalog
	store   *paramstore.Store
	lang    *i18n.Resolver

	unitsURL string
}

// New builds a Resolver wiring the catalog, register store, and
// language resolver together. unitsURL is the asset URL of the units
// dictionary chunk for the active language (resolved by the caller from
// the catalog's assets_by_basename, since its basename follows the same
// per-language convention as i18n chunks).
func New(cat *catalog.Catalog, store *paramstore.Store, lang *i18n.Resolver, unitsURL string) *Resolver {
	return &Resolver{catalog: cat, store: store, lang: lang, unitsURL: unitsURL}
}

// ResolveLabel resolves symbol's display label via the "parameters" i18n
// namespace, falling back to the mapping's own Name field interpreted as
// a dotted path.
func (r *Resolver) ResolveLabel(ctx context.Context, symbol string, pm domain.ParamMap) (string, bool) {
	if label, ok := r.lang.ResolveParamLabel(ctx, symbol); ok {
		return label, true
	}
	if pm.Name != "" {
		if label, ok := r.lang.ResolveNamespacePath(ctx, "parameters", pm.Name); ok {
			return label, true
		}
	}
	return "", false
}

// ResolveUnit normalizes a unit reference to either a scalar display
// string or an enum mapping of raw value to label, consulting the unit
// descriptor's text (i18n path), then the units namespace, then its
// options map.
func (r *Resolver) ResolveUnit(ctx context.Context, unitCode any) (scalar string, enum map[string]string, ok bool) {
	desc, found := r.catalog.GetUnit(ctx, r.unitsURL, unitCode)
	if !found {
		return "", nil, false
	}

	if len(desc.Options) > 0 {
		enum = make(map[string]string, len(desc.Options))
		for raw, v := range desc.Options {
			enum[raw] = r.resolveOptionLabel(ctx, v)
		}
		return "", enum, true
	}

	if desc.Text != "" {
		if label, ok := r.lang.ResolveNamespacePath(ctx, "units", desc.Text); ok {
			return i18n.NormalizeUnitSymbol(label), nil, true
		}
		return i18n.NormalizeUnitSymbol(desc.Text), nil, true
	}

	return "", nil, false
}

func (r *Resolver) resolveOptionLabel(ctx context.Context, v any) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if strings.Contains(s, ".") {
		if label, ok := r.lang.ResolveNamespacePath(ctx, "units", s); ok {
			return label
		}
	}
	return s
}

// ResolveValue returns the fully resolved value for symbol: computed via
// the mapping's rule lists when present, otherwise read directly from
// the register store and passed through the unit's value transform.
func (r *Resolver) ResolveValue(ctx context.Context, symbol string, pm domain.ParamMap) domain.ResolvedValue {
	if rule := firstNonNil(pm.Any, pm.Value, pm.ValueRule); rule != nil {
		out := ruleengine.Evaluate(rule, r.store)
		rv := domain.ResolvedValue{Symbol: symbol, Kind: "computed", Value: out}
		rv.ValueLabel, _ = r.computedValueLabel(ctx, pm, out)
		return rv
	}

	if len(pm.Paths.Value) == 0 {
		return domain.ResolvedValue{Symbol: symbol, Kind: "direct"}
	}

	addr, raw, ok := firstResolvable(pm.Paths.Value, r.store)
	rv := domain.ResolvedValue{Symbol: symbol, Kind: "direct", Address: addr.Key()}
	if !ok {
		return rv
	}
	rv.Value = raw

	unitCode := r.effectiveUnitCode(addr, pm)
	if unitCode != nil {
		if scalar, enum, ok := r.ResolveUnit(ctx, unitCode); ok {
			rv.Unit = scalar
			if enum != nil {
				rv.ValueLabel = enum[fmt.Sprintf("%v", raw)]
			}
		}

		if desc, ok := r.catalog.GetUnit(ctx, r.unitsURL, unitCode); ok && desc.Value != "" {
			if transformed, err := applyTransform(desc.Value, raw); err == nil {
				rv.Value = transformed
			}
		}
	}

	return rv
}

// effectiveUnitCode prefers the register's own unit channel (u<idx>)
// when present, falling back to the mapping's static units field.
func (r *Resolver) effectiveUnitCode(valueAddr domain.Address, pm domain.ParamMap) any {
	unitAddr := domain.Address{Pool: valueAddr.Pool, Chan: domain.ChanUnit, Index: valueAddr.Index}
	if v, ok := r.store.RawValue(unitAddr); ok {
		return v
	}
	return pm.Units
}

// liveLimits reads the n<idx>/x<idx> channel values at the symbol's
// resolved address, the same way describe_symbol derives min/max from
// fam.get("n")/fam.get("x") rather than from any static mapping field.
func (r *Resolver) liveLimits(resolvedAddress string, addr domain.Address) (min, max any) {
	if resolvedAddress == "" {
		return nil, nil
	}
	min, _ = r.store.RawValue(domain.Address{Pool: addr.Pool, Chan: domain.ChanMin, Index: addr.Index})
	max, _ = r.store.RawValue(domain.Address{Pool: addr.Pool, Chan: domain.ChanMax, Index: addr.Index})
	return min, max
}

func applyTransform(src string, raw any) (any, error) {
	expr, err := jsexpr.Compile(src)
	if err != nil {
		return nil, err
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("resolver: non-numeric raw value for transform")
	}
	return expr.Eval(f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstResolvable(selectors []domain.Selector, store *paramstore.Store) (domain.Address, any, bool) {
	for _, sel := range selectors {
		addr := sel.Address()
		if addr.Chan == 0 {
			addr.Chan = domain.ChanValue
		}
		if v, ok := store.RawValue(addr); ok {
			return addr, v, true
		}
	}
	if len(selectors) > 0 {
		return selectors[0].Address(), nil, false
	}
	return domain.Address{}, nil, false
}

// computedValueLabel attempts, in order, the app.one.<name> lookup, the
// generic enum lookup for "e.<NAME>" strings, and the useComponent
// namespace cascade; it never invents a translation, returning
// ok=false when none resolves.
func (r *Resolver) computedValueLabel(ctx context.Context, pm domain.ParamMap, value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}

	if pm.Name != "" {
		if label, ok := r.lang.ResolveNamespacePath(ctx, "parameters", "app.one."+pm.Name+"."+s); ok {
			return label, true
		}
	}

	if strings.HasPrefix(s, "e.") {
		if label, ok := r.lang.ResolveNamespacePath(ctx, "enums", strings.TrimPrefix(s, "e.")); ok {
			return label, true
		}
	}

	if pm.UseComponent != "" {
		candidates := []string{s, toCamelCase(s), toSnakeCase(s)}
		namespaces := []string{
			"app.one." + pm.UseComponent + "State",
			pm.UseComponent,
			pm.UseComponent + "state",
		}
		for _, ns := range namespaces {
			for _, c := range candidates {
				if label, ok := r.lang.ResolveNamespacePath(ctx, "parameters", ns+"."+c); ok {
					return label, true
				}
			}
		}
	}

	return "", false
}

func toCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DescribeSymbol returns the full descriptor bundle for symbol.
func (r *Resolver) DescribeSymbol(ctx context.Context, symbol string, pm domain.ParamMap) domain.SymbolDescriptor {
	resolved := r.ResolveValue(ctx, symbol, pm)
	label, _ := r.ResolveLabel(ctx, symbol, pm)

	var addr domain.Address
	if resolved.Address != "" {
		addr, _ = domain.ParseKey(resolved.Address)
	}

	minVal, maxVal := r.liveLimits(resolved.Address, addr)

	desc := domain.SymbolDescriptor{
		Symbol:             symbol,
		Pool:               addr.Pool,
		Idx:                addr.Index,
		Chan:               addr.Chan,
		Label:              label,
		Unit:               resolved.Unit,
		Value:              resolved.Value,
		ComputedValue:      resolved.Value,
		ComputedValueLabel: resolved.ValueLabel,
		Min:                minVal,
		Max:                maxVal,
		Status:             pm.StatusFlags,
		Mapping: domain.MappingDescriptor{
			ComponentType: pm.ComponentType,
			Channels: map[string][]domain.Selector{
				"value":   pm.Paths.Value,
				"status":  pm.Paths.Status,
				"unit":    pm.Paths.Unit,
				"min":     pm.Paths.Min,
				"max":     pm.Paths.Max,
				"command": pm.Paths.Command,
			},
			StatusConditions: pm.StatusConditions,
			Limits:           pm.Limits,
			StatusFlags:      pm.StatusFlags,
			CommandRules:     pm.CommandRules,
			Inputs:           collectInputs(pm),
			Values:           pm.Value,
			UnitsSource:      pm.Units,
			Origin:           pm.Origin,
			Raw:              pm.Raw,
		},
	}

	if resolved.Kind == "direct" {
		desc.UnitCode = r.effectiveUnitCode(addr, pm)
	} else {
		desc.UnitCode = pm.Units
	}

	return desc
}

// collectInputs enumerates every (address, bit?, mask?) referenced by
// the mapping's own value/status/unit/min/max/command paths. Selectors
// that appear only inside rule lists (Any/Value/ValueRule and
// StatusRules) are not included.
func collectInputs(pm domain.ParamMap) []domain.Selector {
	var out []domain.Selector
	out = append(out, pm.Paths.Value...)
	out = append(out, pm.Paths.Status...)
	out = append(out, pm.Paths.Unit...)
	out = append(out, pm.Paths.Min...)
	out = append(out, pm.Paths.Max...)
	out = append(out, pm.Paths.Command...)
	return out
}
