package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bragerone/bragerone-go/domain"
)

func noResolve(string) (string, bool) { return "", false }

func paramRoute(path string, tokens ...string) *domain.MenuRoute {
	r := &domain.MenuRoute{Path: path, DisplayName: path, IsModuleItem: true}
	for _, tok := range tokens {
		r.Parameters.Read = append(r.Parameters.Read, domain.MenuParameter{Token: tok})
	}
	return r
}

// TestCorePanelsOrdersSymbolsByRouteDocumentOrder is a regression test
// for CorePanels building its Symbols list from document order rather
// than from an unordered map: with more than one route matching the
// same panel, the result must be the same, stable order every call.
func TestCorePanelsOrdersSymbolsByRouteDocumentOrder(t *testing.T) {
	routes := []*domain.MenuRoute{
		paramRoute("boiler/overview", "PARAM_1"),
		paramRoute("boiler/advanced", "PARAM_2"),
		paramRoute("boiler/advanced/sub", "PARAM_3"),
	}
	result := domain.MenuResult{Routes: routes}

	for i := 0; i < 20; i++ {
		panels := CorePanels(result, noResolve)
		var boiler Panel
		for _, p := range panels {
			if p.Title == "Boiler" {
				boiler = p
			}
		}
		assert.Equal(t, []string{"PARAM_1", "PARAM_2", "PARAM_3"}, boiler.Symbols, "iteration %d", i)
	}
}

func TestCorePanelsMatchesOnlyPanelSpecificRoutes(t *testing.T) {
	routes := []*domain.MenuRoute{
		paramRoute("boiler/overview", "PARAM_1"),
		paramRoute("dhw/overview", "PARAM_9"),
		paramRoute("valve/one", "PARAM_5"),
	}
	result := domain.MenuResult{Routes: routes}

	panels := CorePanels(result, noResolve)
	byTitle := make(map[string]Panel)
	for _, p := range panels {
		byTitle[p.Title] = p
	}

	assert.Equal(t, []string{"PARAM_1"}, byTitle["Boiler"].Symbols)
	assert.Equal(t, []string{"PARAM_9"}, byTitle["DHW"].Symbols)
	assert.Equal(t, []string{"PARAM_5"}, byTitle["Valve 1"].Symbols)
}

func TestCorePanelsPrefersResolvedTitle(t *testing.T) {
	routes := []*domain.MenuRoute{paramRoute("boiler/overview", "PARAM_1")}
	result := domain.MenuResult{Routes: routes}

	resolve := func(path string) (string, bool) {
		if path == "routes.modules.menu.Boiler" {
			return "Kocioł", true
		}
		return "", false
	}

	panels := CorePanels(result, resolve)
	var boilerTitle string
	for _, p := range panels {
		if p.Symbols != nil && p.Symbols[0] == "PARAM_1" {
			boilerTitle = p.Title
		}
	}
	assert.Equal(t, "Kocioł", boilerTitle)
}

func TestAllPanelsOneEntryPerModuleItemRoute(t *testing.T) {
	root := paramRoute("boiler", "PARAM_1")
	root.IsModuleItem = false // fleet-level route, excluded
	child := paramRoute("boiler/dhw", "PARAM_2")
	root.Children = append(root.Children, child)

	result := domain.MenuResult{Routes: []*domain.MenuRoute{root}}

	panels := AllPanels(result, noResolve)
	assert.Len(t, panels, 1)
	assert.Equal(t, "boiler/dhw", panels[0].Title)
	assert.Equal(t, []string{"PARAM_2"}, panels[0].Symbols)
}

func TestAllPanelsDisambiguatesDuplicateTitles(t *testing.T) {
	resolve := func(path string) (string, bool) { return "Same Title", true }

	a := paramRoute("a", "PARAM_A")
	b := paramRoute("b", "PARAM_B")
	parent := &domain.MenuRoute{Path: "boiler", IsModuleItem: false, Children: []*domain.MenuRoute{a, b}}

	result := domain.MenuResult{Routes: []*domain.MenuRoute{parent}}
	panels := AllPanels(result, resolve)

	var titles []string
	for _, p := range panels {
		titles = append(titles, p.Title)
	}
	assert.Contains(t, titles, "Same Title")
	assert.Contains(t, titles, "boiler/b")
}
