package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessStripsDetectedBuildAliasPrefix(t *testing.T) {
	routes := []RawRoute{
		{
			Path:             "boiler",
			DisplayName:      " Boiler ",
			Icon:             "A.icon-boiler",
			PermissionModule: "A.BOILER_VIEW",
			IsModuleItem:     true,
		},
	}

	result := Process(routes, "/assets/menu-abc.js", Options{
		Permissions: map[string]bool{"BOILER_VIEW": true},
	})

	require.Len(t, result.Routes, 1)
	r := result.Routes[0]
	assert.Equal(t, "Boiler", r.DisplayName)
	assert.Equal(t, "icon-boiler", r.Icon)
	assert.Equal(t, "BOILER_VIEW", r.Permission)
}

func TestProcessLeavesUndetectedPrefixShapeUntouched(t *testing.T) {
	// "ZZZZ.FOO" has a 4-letter lead, outside prefixRe's 1-3 letter
	// range, so it is never added to the detected prefix set and must
	// survive processing unstripped.
	routes := []RawRoute{
		{Path: "odd", PermissionModule: "ZZZZ.FOO", IsModuleItem: true},
	}

	result := Process(routes, "", Options{Permissions: map[string]bool{"ZZZZ.FOO": true}})

	require.Len(t, result.Routes, 1)
	assert.Equal(t, "ZZZZ.FOO", result.Routes[0].Permission)
}

func TestProcessHidesRouteMissingPermissionOutsideDebugMode(t *testing.T) {
	routes := []RawRoute{
		{Path: "locked", PermissionModule: "A.LOCKED_VIEW", IsModuleItem: true},
	}

	result := Process(routes, "", Options{Permissions: map[string]bool{}, DebugMode: false})

	assert.Empty(t, result.Routes)
}

func TestProcessKeepsUnauthorizedRouteVisibleInDebugMode(t *testing.T) {
	routes := []RawRoute{
		{Path: "locked", PermissionModule: "A.LOCKED_VIEW", IsModuleItem: true},
	}

	result := Process(routes, "", Options{Permissions: map[string]bool{}, DebugMode: true})

	require.Len(t, result.Routes, 1)
	r := result.Routes[0]
	assert.Equal(t, "LOCKED_VIEW", r.Permission)
	assert.False(t, r.Visible)
}

func TestProcessExtractsParameterTokenFromHelperCall(t *testing.T) {
	routes := []RawRoute{
		{
			Path:         "boiler",
			IsModuleItem: true,
			Parameters: RawParameters{
				Read: []RawParameter{{Expr: `helper(E.READ, "PARAM_66")`}},
			},
		},
	}

	result := Process(routes, "", Options{})

	require.Len(t, result.Routes, 1)
	require.Len(t, result.Routes[0].Parameters.Read, 1)
	assert.Equal(t, "PARAM_66", result.Routes[0].Parameters.Read[0].Token)
}

func TestProcessFallsBackToRawExprWhenTokenShapeDoesNotMatch(t *testing.T) {
	routes := []RawRoute{
		{
			Path:         "boiler",
			IsModuleItem: true,
			Parameters: RawParameters{
				Read: []RawParameter{{Expr: "not-a-call-expression"}},
			},
		},
	}

	result := Process(routes, "", Options{})

	require.Len(t, result.Routes[0].Parameters.Read, 1)
	p := result.Routes[0].Parameters.Read[0]
	assert.Equal(t, "not-a-call-expression", p.Token)
	assert.Equal(t, "not-a-call-expression", p.Raw)
}

func TestProcessFiltersParameterByPermissionOutsideDebugMode(t *testing.T) {
	routes := []RawRoute{
		{
			Path:         "boiler",
			IsModuleItem: true,
			Parameters: RawParameters{
				Write: []RawParameter{
					{Expr: `helper(E.WRITE, "PARAM_10")`, PermissionModule: "A.BOILER_WRITE"},
				},
			},
		},
	}

	hidden := Process(routes, "", Options{Permissions: map[string]bool{}, DebugMode: false})
	assert.Empty(t, hidden.Routes[0].Parameters.Write)

	shown := Process(routes, "", Options{Permissions: map[string]bool{}, DebugMode: true})
	require.Len(t, shown.Routes[0].Parameters.Write, 1)
	assert.Equal(t, "PARAM_10", shown.Routes[0].Parameters.Write[0].Token)

	authorized := Process(routes, "", Options{Permissions: map[string]bool{"BOILER_WRITE": true}})
	require.Len(t, authorized.Routes[0].Parameters.Write, 1)
}

func TestProcessRecursesIntoChildRoutes(t *testing.T) {
	routes := []RawRoute{
		{
			Path:         "boiler",
			IsModuleItem: true,
			Children: []RawRoute{
				{Path: "boiler/temp", IsModuleItem: true,
					Parameters: RawParameters{Read: []RawParameter{{Expr: `helper(E.READ, "PARAM_1")`}}}},
			},
		},
	}

	result := Process(routes, "", Options{})

	require.Len(t, result.Routes, 1)
	require.Len(t, result.Routes[0].Children, 1)
	child := result.Routes[0].Children[0]
	assert.Equal(t, "boiler/temp", child.Path)
	assert.Equal(t, "PARAM_1", child.Parameters.Read[0].Token)
}

func TestAllTokensAndAllPermissionsFlattenTree(t *testing.T) {
	routes := []RawRoute{
		{
			Path:             "boiler",
			PermissionModule: "A.BOILER_VIEW",
			IsModuleItem:     true,
			Parameters: RawParameters{
				Read: []RawParameter{{Expr: `helper(E.READ, "PARAM_66")`, PermissionModule: "A.BOILER_VIEW"}},
			},
			Children: []RawRoute{
				{Path: "boiler/dhw", PermissionModule: "A.DHW_VIEW", IsModuleItem: true,
					Parameters: RawParameters{
						Status: []RawParameter{{Expr: `helper(E.STATUS, "PARAM_70")`}},
					}},
			},
		},
	}

	result := Process(routes, "", Options{
		Permissions: map[string]bool{"BOILER_VIEW": true, "DHW_VIEW": true},
	})

	assert.ElementsMatch(t, []string{"PARAM_66", "PARAM_70"}, AllTokens(result))
	assert.ElementsMatch(t, []string{"BOILER_VIEW", "DHW_VIEW"}, AllPermissions(result))
}

func TestRoutesByPathFlattensTree(t *testing.T) {
	routes := []RawRoute{
		{Path: "boiler", IsModuleItem: true, Children: []RawRoute{
			{Path: "boiler/dhw", IsModuleItem: true},
		}},
	}

	result := Process(routes, "", Options{})
	byPath := RoutesByPath(result)

	assert.Contains(t, byPath, "boiler")
	assert.Contains(t, byPath, "boiler/dhw")
}
