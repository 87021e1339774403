package domain

// Selector names a register address referenced from an asset's rules or
// channel paths, with optional bit/mask extraction and a guard condition
// (used by the rule engine's condition selectors).
type Selector struct {
	Pool      int
	Chan      Channel
	Idx       int
	Bit       *int
	Mask      *int
	Condition []string
}

// Address returns the plain register address this selector names.
func (s Selector) Address() Address {
	return Address{Pool: s.Pool, Chan: s.Chan, Index: s.Idx}
}

// ParamMapPaths is the aggregated per-section address list extracted
// from a parameter map asset; this is the canonical form the resolver
// consumes.
type ParamMapPaths struct {
	Value   []Selector
	Status  []Selector
	Unit    []Selector
	Min     []Selector
	Max     []Selector
	Command []Selector

	// StatusRules holds the status entries shaped as an if/then/else
	// rule clause rather than a plain tagged address selector, grouped
	// by their condition tag (e.g. "INVISIBLE"). Each chain is the raw
	// decoded rule list in source order, ready for ruleengine.Evaluate;
	// its referenced register need not be the symbol's own address.
	StatusRules map[string][]any
}

// ParamMap is the parsed mapping from a symbol to one or more register
// addresses plus optional rules, produced by the catalog's asset parser.
type ParamMap struct {
	Key  string
	Group string

	Paths ParamMapPaths

	ComponentType    string
	Units            any // scalar unit code, or map[string]any
	Limits           any
	StatusFlags      any
	StatusConditions any
	CommandRules     any

	// UseComponent names a component id used by computed-value label
	// resolution fallback (app.one.<component>State / <component> /
	// <component>state namespaces).
	UseComponent string

	// Name is the mapping's own display-name field, interpreted as a
	// dotted i18n path when resolve_label falls back to it.
	Name string

	// Any/Value/ValueRule are the three rule-list locations the rule
	// engine may evaluate, preserved as raw decoded JSON values.
	Any       any
	Value     any
	ValueRule any

	// Origin records where this mapping was resolved from: an asset
	// basename, "inline" for the inline-candidate fallback, or "fallback"
	// for the partial regex extraction used when a full parse fails.
	Origin string

	// Raw is the full normalized+parsed object, preserved for the rule
	// engine and for diagnostics.
	Raw map[string]any
}
