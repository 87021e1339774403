package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/bragerone/bragerone-go/catalog/jsparse"
	"github.com/bragerone/bragerone-go/domain"
	"github.com/bragerone/bragerone-go/menu"
)

// GetModuleMenu fetches and parses the menu chunk for deviceMenu (via
// the index's menu_map), filters it through the menu processor using
// permissions/debugMode, and caches the result per (deviceMenu,
// permission-set hash).
func (c *Catalog) GetModuleMenu(ctx context.Context, deviceMenu int, permissions map[string]bool, debugMode bool) (domain.MenuResult, error) {
	hash := hashPermissionSet(permissions)
	key := menuKey{deviceMenu: deviceMenu, permHash: hash}

	c.menuMu.Lock()
	if cached, ok := c.menuCache[key]; ok {
		c.menuMu.Unlock()
		return cached, nil
	}
	c.menuMu.Unlock()

	idx, ok := c.Index()
	if !ok {
		return domain.MenuResult{}, fmt.Errorf("catalog: index not refreshed")
	}
	base, ok := idx.MenuMap[deviceMenu]
	if !ok {
		return domain.MenuResult{}, nil
	}

	variants := idx.AssetsByBasename[base]
	if len(variants) == 0 {
		return domain.MenuResult{}, nil
	}
	asset := newestVariant(variants)

	raw, err := c.fetcher.GetBytes(ctx, asset.URL)
	if err != nil {
		return domain.MenuResult{}, nil
	}

	routes, err := parseMenuAsset(string(raw))
	if err != nil {
		return domain.MenuResult{}, nil
	}

	result := menu.Process(routes, asset.URL, menu.Options{Permissions: permissions, DebugMode: debugMode})

	c.menuMu.Lock()
	c.menuCache[key] = result
	c.menuMu.Unlock()

	return result, nil
}

// hashPermissionSet produces a stable hash over a permission set,
// independent of map iteration order, used as the menu cache's second
// dimension.
func hashPermissionSet(permissions map[string]bool) uint64 {
	granted := make([]string, 0, len(permissions))
	for k, v := range permissions {
		if v {
			granted = append(granted, k)
		}
	}
	sort.Strings(granted)
	return xxhash.Sum64String(strings.Join(granted, "\x00"))
}

func parseMenuAsset(js string) ([]menu.RawRoute, error) {
	obj, err := jsparse.ParseDefaultExport(js)
	if err != nil {
		return nil, err
	}

	var rawList []any
	if list, ok := obj["routes"].([]any); ok {
		rawList = list
	} else if asIs, ok := objAsList(obj); ok {
		rawList = asIs
	} else {
		return nil, fmt.Errorf("catalog: menu asset default export has no route list")
	}

	out := make([]menu.RawRoute, 0, len(rawList))
	for _, entry := range rawList {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, decodeRawRoute(m))
	}
	return out, nil
}

// objAsList accepts a decoded default export whose single property is a
// list (for example `{routes: [...]}`) and returns that list. A default
// export of a bare `[...]` array is not decoded: ParseDefaultExport
// decodes only into a map.
func objAsList(obj map[string]any) ([]any, bool) {
	if len(obj) == 1 {
		for _, v := range obj {
			if list, ok := v.([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}

func decodeRawRoute(m map[string]any) menu.RawRoute {
	r := menu.RawRoute{}
	if s, ok := m["path"].(string); ok {
		r.Path = s
	}
	if s, ok := m["displayName"].(string); ok {
		r.DisplayName = s
	}
	if s, ok := m["icon"].(string); ok {
		r.Icon = s
	}
	if s, ok := m["permissionModule"].(string); ok {
		r.PermissionModule = s
	}
	if b, ok := m["isModuleItem"].(bool); ok {
		r.IsModuleItem = b
	}

	if params, ok := m["parameters"].(map[string]any); ok {
		r.Parameters = menu.RawParameters{
			Read:    decodeRawParams(params["read"]),
			Write:   decodeRawParams(params["write"]),
			Status:  decodeRawParams(params["status"]),
			Special: decodeRawParams(params["special"]),
		}
	}

	if children, ok := m["children"].([]any); ok {
		for _, c := range children {
			if cm, ok := c.(map[string]any); ok {
				r.Children = append(r.Children, decodeRawRoute(cm))
			}
		}
	}

	return r
}

func decodeRawParams(raw any) []menu.RawParameter {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]menu.RawParameter, 0, len(list))
	for _, e := range list {
		switch v := e.(type) {
		case string:
			out = append(out, menu.RawParameter{Expr: v})
		case map[string]any:
			p := menu.RawParameter{}
			if expr, ok := v["expr"].(string); ok {
				p.Expr = expr
			}
			if perm, ok := v["permissionModule"].(string); ok {
				p.PermissionModule = perm
			}
			out = append(out, p)
		}
	}
	return out
}
