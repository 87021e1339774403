package menu

import (
	"strings"

	"github.com/bragerone/bragerone-go/domain"
)

// Panel is one named, ordered group of symbols surfaced to a dashboard.
type Panel struct {
	Title   string
	Symbols []string
}

// corePanelPaths names the three canonical groups exposed in core-only
// mode, matched as a case-insensitive substring of a route's path.
var corePanelPaths = []struct {
	title string
	match func(path string) bool
}{
	{"Boiler", func(p string) bool { return strings.Contains(strings.ToLower(p), "boiler") }},
	{"DHW", func(p string) bool { return strings.Contains(strings.ToLower(p), "dhw") }},
	{"Valve 1", func(p string) bool { return strings.Contains(strings.ToLower(p), "valve") }},
}

// LabelResolver resolves a dotted i18n path to a display string; used to
// prefer i18n-resolved panel titles over raw path segments.
type LabelResolver func(path string) (string, bool)

// CorePanels builds the three canonical core-only panels (Boiler, DHW,
// Valve 1), each an ordered list of symbols harvested from the routes
// whose path matches that panel, in the document order the routes
// appear in the tree.
func CorePanels(result domain.MenuResult, resolve LabelResolver) []Panel {
	panels := make([]Panel, 0, len(corePanelPaths))

	for _, cp := range corePanelPaths {
		p := Panel{Title: cp.title}

		var walk func(r *domain.MenuRoute)
		walk = func(r *domain.MenuRoute) {
			if cp.match(r.Path) {
				p.Symbols = append(p.Symbols, tokensOf(r)...)
			}
			for _, c := range r.Children {
				walk(c)
			}
		}
		for _, r := range result.Routes {
			walk(r)
		}

		if title, ok := resolve("routes.modules.menu." + cp.title); ok {
			p.Title = title
		}
		panels = append(panels, p)
	}
	return panels
}

// AllPanels builds one panel per module-item route; non-module-item
// routes (e.g. fleet-level "modules") are excluded. Collisions in
// resolved titles are disambiguated via "<parent>/<child>" paths.
func AllPanels(result domain.MenuResult, resolve LabelResolver) []Panel {
	var panels []Panel
	seenTitles := make(map[string]string) // title -> path already claiming it

	var walk func(r *domain.MenuRoute, parentPath string)
	walk = func(r *domain.MenuRoute, parentPath string) {
		if r.IsModuleItem {
			title := r.DisplayName
			if resolved, ok := resolve("routes.modules.menu." + r.Path); ok {
				title = resolved
			}
			if claimedBy, dup := seenTitles[title]; dup && claimedBy != r.Path {
				title = parentPath + "/" + r.Path
			}
			seenTitles[title] = r.Path
			panels = append(panels, Panel{Title: title, Symbols: tokensOf(r)})
		}
		for _, c := range r.Children {
			walk(c, r.Path)
		}
	}
	for _, r := range result.Routes {
		walk(r, "")
	}
	return panels
}

func tokensOf(r *domain.MenuRoute) []string {
	var out []string
	for _, p := range allDomainParams(r) {
		out = append(out, p.Token)
	}
	return out
}
