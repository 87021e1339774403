package catalog

import (
	"github.com/bragerone/bragerone-go/catalog/jsparse"
	"github.com/bragerone/bragerone-go/domain"
)

// languageConfigThreshold is the fraction of a candidate translations
// array that must carry both id and flag keys for the object to be
// recognized as a language configuration literal.
const languageConfigThreshold = 0.70

// findLanguageConfig scans every object literal in bundle — including
// ones nested inside a wrapping object, so that `{foo: {translations:
// [...], defaultTranslation: "pl"}}` is found the same as the bare
// literal — and returns the first one that structurally matches a
// language configuration: a translations array at least 70% composed of
// {id, flag} objects, and a non-empty string defaultTranslation.
// Recognition does not depend on variable names, assignment forms, or
// minification.
func findLanguageConfig(bundle string) *domain.TranslationConfig {
	for _, rng := range jsparse.FindAllBracedObjectsRecursive(bundle) {
		obj, err := jsparse.ParseObjectLiteral(bundle[rng.Start:rng.End])
		if err != nil {
			continue
		}
		if cfg := asLanguageConfig(obj); cfg != nil {
			return cfg
		}
	}
	return nil
}

func asLanguageConfig(obj map[string]any) *domain.TranslationConfig {
	rawTranslations, ok := obj["translations"].([]any)
	if !ok || len(rawTranslations) == 0 {
		return nil
	}
	defaultTranslation, ok := obj["defaultTranslation"].(string)
	if !ok || defaultTranslation == "" {
		return nil
	}

	var descriptors []domain.LanguageDescriptor
	matching := 0
	for _, entryAny := range rawTranslations {
		entry, ok := entryAny.(map[string]any)
		if !ok {
			continue
		}
		id, hasID := entry["id"].(string)
		flag, hasFlag := entry["flag"].(string)
		if hasID && hasFlag {
			matching++
		}
		desc := domain.LanguageDescriptor{}
		if hasID {
			desc.ID = id
		}
		if hasFlag {
			desc.Flag = flag
		}
		if name, ok := entry["name"].(string); ok {
			desc.Name = name
		}
		if dev, ok := entry["dev"].(bool); ok {
			desc.Dev = dev
		}
		descriptors = append(descriptors, desc)
	}

	if float64(matching)/float64(len(rawTranslations)) < languageConfigThreshold {
		return nil
	}

	return &domain.TranslationConfig{
		Translations:       descriptors,
		DefaultTranslation: defaultTranslation,
	}
}

// findInlineParamCandidates collects byte ranges of every top-level
// object literal in the bundle, to be used as the last-resort
// parameter-map fallback when exactly one requested token is otherwise
// unresolved.
func findInlineParamCandidates(bundle string) []domain.ByteRange {
	ranges := jsparse.FindAllBracedObjects(bundle)
	out := make([]domain.ByteRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, domain.ByteRange{Start: r.Start, End: r.End})
	}
	return out
}
