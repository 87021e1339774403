package domain

// ResolvedValue is the result of resolving a symbol's current value.
type ResolvedValue struct {
	Symbol     string
	Kind       string // "computed" or "direct"
	Address    string
	Value      any
	ValueLabel string
	Unit       string
}

// SymbolDescriptor is the full descriptor bundle returned by
// describe_symbol: every field the upstream web app would show for a
// parameter, plus the raw mapping inputs that produced it.
type SymbolDescriptor struct {
	Symbol string
	Pool   int
	Idx    int
	Chan   Channel

	Label string
	Unit  string
	Value any

	ComputedValue      any
	ComputedValueLabel string

	UnitCode any
	Min      any
	Max      any
	Status   any

	Mapping MappingDescriptor
}

// MappingDescriptor summarizes a ParamMap for diagnostic/descriptor
// output.
type MappingDescriptor struct {
	ComponentType    string
	Channels         map[string][]Selector
	StatusConditions any
	Limits           any
	StatusFlags      any
	CommandRules     any
	Inputs           []Selector
	Values           any
	UnitsSource      any
	Origin           string
	Raw              map[string]any
}

// VisibilityResult is returned by is_parameter_visible_like_app.
type VisibilityResult struct {
	Visible bool
	Reason  string
}
