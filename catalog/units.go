package catalog

import (
	"context"
	"strconv"

	"github.com/bragerone/bragerone-go/catalog/jsparse"
)

// UnitDescriptor is a single entry of the units dictionary: the display
// symbol path, the raw-to-display and display-to-raw transform function
// literals (interpreted by the resolver's expression evaluator), and an
// optional enum mapping of raw value to display token or i18n reference.
type UnitDescriptor struct {
	Text         string
	Value        string
	ValuePrepare string
	Options      map[string]any
}

// GetUnits fetches and parses the units chunk named by url, caching the
// whole decoded dictionary keyed by url so repeated lookups for
// different codes reuse one fetch+parse.
func (c *Catalog) GetUnits(ctx context.Context, url string) (map[string]UnitDescriptor, error) {
	c.unitsMu.Lock()
	if cached, ok := c.unitsCache[url]; ok {
		c.unitsMu.Unlock()
		return cached.(map[string]UnitDescriptor), nil
	}
	c.unitsMu.Unlock()

	raw, err := c.fetcher.GetBytes(ctx, url)
	if err != nil {
		return map[string]UnitDescriptor{}, nil
	}

	obj, err := jsparse.ParseDefaultExport(string(raw))
	if err != nil {
		return map[string]UnitDescriptor{}, nil
	}

	out := make(map[string]UnitDescriptor, len(obj))
	for k, v := range obj {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out[k] = decodeUnitDescriptor(entry)
	}

	c.unitsMu.Lock()
	c.unitsCache[url] = out
	c.unitsMu.Unlock()

	return out, nil
}

// GetUnit resolves a single unit descriptor by its numeric or string
// code, normalizing the code to its stringified form as the dictionary
// key.
func (c *Catalog) GetUnit(ctx context.Context, url string, code any) (UnitDescriptor, bool) {
	units, err := c.GetUnits(ctx, url)
	if err != nil {
		return UnitDescriptor{}, false
	}
	key := unitCodeKey(code)
	d, ok := units[key]
	return d, ok
}

func unitCodeKey(code any) string {
	switch v := code.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func decodeUnitDescriptor(entry map[string]any) UnitDescriptor {
	d := UnitDescriptor{}
	if s, ok := entry["text"].(string); ok {
		d.Text = s
	}
	if s, ok := entry["value"].(string); ok {
		d.Value = s
	}
	if s, ok := entry["valuePrepare"].(string); ok {
		d.ValuePrepare = s
	}
	if opts, ok := entry["options"].(map[string]any); ok {
		d.Options = opts
	}
	return d
}
