// Package menu implements the menu processor (component F): prefix
// detection, permission filtering, display-name trimming, and parameter
// token extraction over a device menu chunk's raw route tree.
package menu

import (
	"regexp"
	"strings"

	"github.com/bragerone/bragerone-go/domain"
)

// prefixRe identifies short alpha build-alias prefixes of the form
// `<1-3 letters>.<REST>`, e.g. "A.", "e.", "E." — inserted by the
// minifier ahead of a permission or icon token.
var prefixRe = regexp.MustCompile(`^([A-Za-z]{1,3})\.(.+)$`)

// tokenExtractRe pulls the quoted literal out of a helper-call
// expression like `helper(E.READ, "PARAM_66")` or `E(A.WRITE,
// 'URUCHOMIENIE_KOTLA')`.
var tokenExtractRe = regexp.MustCompile(`\b[A-Za-z_$][\w$]*\([^,]*?,\s*['"]([^'"]+)['"]\)`)

// RawRoute is the shape of one decoded route object from a parsed menu
// chunk's default export.
type RawRoute struct {
	Path             string
	DisplayName      string
	Icon             string
	PermissionModule string
	IsModuleItem     bool
	Parameters       RawParameters
	Children         []RawRoute
}

// RawParameters groups a route's four parameter kinds as raw decoded
// values (each a string JS-call expression or nil).
type RawParameters struct {
	Read    []RawParameter
	Write   []RawParameter
	Status  []RawParameter
	Special []RawParameter
}

// RawParameter is one undecoded parameter entry: its raw JS expression
// and the permission module guarding it, if any.
type RawParameter struct {
	Expr             string
	PermissionModule string
}

// Options controls menu processing behavior.
type Options struct {
	Permissions map[string]bool
	DebugMode   bool
}

// Process runs the full transform pipeline over routes and returns the
// validated MenuResult.
func Process(routes []RawRoute, assetURL string, opts Options) domain.MenuResult {
	prefixes := detectPrefixes(routes)

	var out []*domain.MenuRoute
	for _, r := range routes {
		if processed := processRoute(r, prefixes, opts); processed != nil {
			out = append(out, processed)
		}
	}

	return domain.MenuResult{Routes: out, AssetURL: assetURL}
}

// detectPrefixes scans every permissionModule and icon string (route and
// parameter level) and returns the set of prefixes observed.
func detectPrefixes(routes []RawRoute) map[string]bool {
	prefixes := make(map[string]bool)
	var walk func(r RawRoute)
	walk = func(r RawRoute) {
		collectPrefix(r.PermissionModule, prefixes)
		collectPrefix(r.Icon, prefixes)
		for _, p := range allParams(r.Parameters) {
			collectPrefix(p.PermissionModule, prefixes)
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range routes {
		walk(r)
	}
	return prefixes
}

func collectPrefix(s string, prefixes map[string]bool) {
	if m := prefixRe.FindStringSubmatch(s); m != nil {
		prefixes[m[1]+"."] = true
	}
}

func allParams(p RawParameters) []RawParameter {
	var out []RawParameter
	out = append(out, p.Read...)
	out = append(out, p.Write...)
	out = append(out, p.Status...)
	out = append(out, p.Special...)
	return out
}

// stripPrefix removes any detected build-alias prefix from s.
func stripPrefix(s string, prefixes map[string]bool) string {
	if m := prefixRe.FindStringSubmatch(s); m != nil && prefixes[m[1]+"."] {
		return m[2]
	}
	return s
}

// visible reports whether permissionModule (already prefix-stripped)
// authorizes against the caller's permission set; an absent module is
// always visible.
func visible(permissionModule string, permissions map[string]bool) bool {
	if permissionModule == "" {
		return true
	}
	return permissions[permissionModule]
}

func processRoute(r RawRoute, prefixes map[string]bool, opts Options) *domain.MenuRoute {
	normalizedPerm := stripPrefix(r.PermissionModule, prefixes)
	routeVisible := visible(normalizedPerm, opts.Permissions)

	if !routeVisible && !opts.DebugMode {
		return nil
	}

	out := &domain.MenuRoute{
		Path:         r.Path,
		DisplayName:  strings.TrimSpace(r.DisplayName),
		Icon:         stripPrefix(r.Icon, prefixes),
		Permission:   normalizedPerm,
		IsModuleItem: r.IsModuleItem,
		Visible:      routeVisible,
	}

	out.Parameters.Read = processParams(r.Parameters.Read, prefixes, opts)
	out.Parameters.Write = processParams(r.Parameters.Write, prefixes, opts)
	out.Parameters.Status = processParams(r.Parameters.Status, prefixes, opts)
	out.Parameters.Special = processParams(r.Parameters.Special, prefixes, opts)

	for _, c := range r.Children {
		if child := processRoute(c, prefixes, opts); child != nil {
			out.Children = append(out.Children, child)
		}
	}

	return out
}

func processParams(params []RawParameter, prefixes map[string]bool, opts Options) []domain.MenuParameter {
	var out []domain.MenuParameter
	for _, p := range params {
		normalizedPerm := stripPrefix(p.PermissionModule, prefixes)
		if !visible(normalizedPerm, opts.Permissions) && !opts.DebugMode {
			continue
		}
		out = append(out, domain.MenuParameter{
			Token:      extractToken(p.Expr),
			Permission: normalizedPerm,
			Raw:        p.Expr,
		})
	}
	return out
}

// extractToken pulls the clean symbol token out of a helper-call
// expression; if the expression doesn't match the expected call shape,
// the raw expression is returned as a last-resort token.
func extractToken(expr string) string {
	if m := tokenExtractRe.FindStringSubmatch(expr); m != nil {
		return m[1]
	}
	return expr
}

// AllTokens flattens every parameter token across the whole route tree.
func AllTokens(result domain.MenuResult) []string {
	var out []string
	var walk func(r *domain.MenuRoute)
	walk = func(r *domain.MenuRoute) {
		for _, p := range allDomainParams(r) {
			out = append(out, p.Token)
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range result.Routes {
		walk(r)
	}
	return out
}

// AllPermissions flattens every distinct (post-normalization) permission
// string referenced anywhere in the route tree.
func AllPermissions(result domain.MenuResult) []string {
	seen := make(map[string]bool)
	var out []string
	var record func(p string)
	record = func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	var walk func(r *domain.MenuRoute)
	walk = func(r *domain.MenuRoute) {
		record(r.Permission)
		for _, p := range allDomainParams(r) {
			record(p.Permission)
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range result.Routes {
		walk(r)
	}
	return out
}

// RoutesByPath flattens the tree into a path -> route map.
func RoutesByPath(result domain.MenuResult) map[string]*domain.MenuRoute {
	out := make(map[string]*domain.MenuRoute)
	var walk func(r *domain.MenuRoute)
	walk = func(r *domain.MenuRoute) {
		out[r.Path] = r
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range result.Routes {
		walk(r)
	}
	return out
}

func allDomainParams(r *domain.MenuRoute) []domain.MenuParameter {
	var out []domain.MenuParameter
	out = append(out, r.Parameters.Read...)
	out = append(out, r.Parameters.Write...)
	out = append(out, r.Parameters.Status...)
	out = append(out, r.Parameters.Special...)
	return out
}
