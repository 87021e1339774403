package domain

// AssetRef describes one hashed chunk discovered in the entry bundle,
// keyed by its symbol-like basename. Multiple hashed variants of the
// same basename may coexist across deployments/upgrades.
type AssetRef struct {
	URL  string
	Base string
	Hash string
}

// ByteRange marks the start/end offsets (end exclusive) of a candidate
// object literal inside a parsed source buffer.
type ByteRange struct {
	Start int
	End   int
}

// IndexState is the parsed entry bundle: the raw bytes plus every
// derived registry the catalog needs to answer semantic queries lazily.
type IndexState struct {
	Raw []byte

	// AssetsByBasename maps a basename to every hashed variant observed.
	AssetsByBasename map[string][]AssetRef

	// MenuMap maps an integer device_menu id to the basename of its
	// menu chunk.
	MenuMap map[int]string

	// TranslationsByLang maps a lowercase language code (taken from a
	// resources/languages/<code>/ import path) to the relative URL of
	// its i18n chunk, e.g. "./lang-pl-abc.js".
	TranslationsByLang map[string]string

	// Translations is the parsed language configuration, or nil if the
	// entry bundle carries no recognizable language literal.
	Translations *TranslationConfig

	// InlineParamCandidates are byte ranges of object literals inside
	// Raw that plausibly encode a parameter map; used only as a
	// last-resort fallback when exactly one requested token is
	// otherwise unresolved and exactly one candidate exists.
	InlineParamCandidates []ByteRange
}

// TranslationConfig is the language configuration literal extracted
// structurally from the entry bundle.
type TranslationConfig struct {
	Translations      []LanguageDescriptor
	DefaultTranslation string
}

// LanguageDescriptor is one entry of a TranslationConfig's translations
// array.
type LanguageDescriptor struct {
	ID   string
	Flag string
	Name string
	Dev  bool
}
