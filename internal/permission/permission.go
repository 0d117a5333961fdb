// Package permission resolves the role-filtered menu tree and the route
// table derived from it. The catalog is static: two dynamic top-level
// groups plus a base set every role receives.
package permission

import (
	"sort"
	"strings"
)

// Kind discriminates menu entries from action buttons.
type Kind string

const (
	KindMenu   Kind = "MENU"
	KindButton Kind = "BUTTON"
)

// Node is one entry of the permission tree. A single struct covers both
// kinds; button nodes leave Path and Component empty.
type Node struct {
	ID        int      `json:"id"`
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Kind      Kind     `json:"type"`
	Path      string   `json:"path,omitempty"`
	Redirect  string   `json:"redirect,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	Component string   `json:"component,omitempty"`
	Order     int      `json:"order"`
	Roles     []string `json:"roles,omitempty"`
	Show      bool     `json:"show"`
	Enable    bool     `json:"enable"`
	KeepAlive bool     `json:"keepAlive,omitempty"`
	Children  []*Node  `json:"children,omitempty"`
}

// Route is a leaf menu entry the client can install as a page.
type Route struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Component string `json:"component"`
	KeepAlive bool   `json:"keepAlive"`
}

// base is granted to every authenticated role.
func base() []*Node {
	return []*Node{
		{
			ID: 90, Code: "Home", Name: "Home", Kind: KindMenu,
			Path: "/", Icon: "i-fe:home", Component: "/src/views/home/index.vue",
			Order: 0, Show: true, Enable: true,
		},
		{
			ID: 98, Code: "ExternalLink", Name: "External links", Kind: KindMenu,
			Icon: "i-fe:external-link", Order: 98, Show: true, Enable: true,
			Children: []*Node{
				{
					ID: 981, Code: "ShowDocs", Name: "Project docs", Kind: KindMenu,
					Path: "https://kfcgw50.me", Icon: "i-me:docs",
					Order: 1, Show: true, Enable: true,
				},
			},
		},
	}
}

// dynamic is filtered by the principal's role before it is returned.
func dynamic() []*Node {
	return []*Node{
		{
			ID: 1, Code: "ImgMgt", Name: "Resource management", Kind: KindMenu,
			Icon: "i-fe:list", Order: 1, Show: true, Enable: true,
			Roles: []string{"admin", "user"},
			Children: []*Node{
				{
					ID: 11, Code: "fileImgMgt", Name: "Image management", Kind: KindMenu,
					Path: "/pms/picmanage", Icon: "i-fe:image",
					Component: "/src/views/picmanage/index.vue",
					Order:     1, Show: true, Enable: true,
				},
			},
		},
		{
			ID: 2, Code: "SysMgt", Name: "System management", Kind: KindMenu,
			Icon: "i-fe:grid", Order: 2, Show: true, Enable: true,
			Roles: []string{"admin"},
			Children: []*Node{
				{
					ID: 21, Code: "UserMgt", Name: "User management", Kind: KindMenu,
					Path: "/pms/user", Icon: "i-fe:user",
					Component: "/src/views/pms/user/index.vue",
					Order:     1, Show: true, Enable: true, KeepAlive: true,
					Children: []*Node{
						{
							ID: 211, Code: "AddUser", Name: "Create user", Kind: KindButton,
							Order: 1, Show: true, Enable: true,
						},
					},
				},
				{
					ID: 22, Code: "siteSetting", Name: "Site settings", Kind: KindMenu,
					Path: "/pms/setting", Icon: "i-fe:settings",
					Component: "/src/views/pms/setting/index.vue",
					Order:     2, Show: true, Enable: true,
				},
			},
		},
	}
}

// Resolve returns the tree for one role: base entries first, then the
// dynamic groups whose Roles include the role. The result is a fresh
// copy on every call; callers may mutate or memoize it freely.
func Resolve(role string) []*Node {
	tree := base()
	for _, node := range dynamic() {
		if hasRole(node.Roles, role) {
			tree = append(tree, node)
		}
	}
	sortTree(tree)
	return tree
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func sortTree(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

// Routes flattens a resolved tree into installable pages: menu leaves
// carrying both an internal path and a component. External links and
// buttons are skipped.
func Routes(tree []*Node) []Route {
	var out []Route
	walk(tree, func(n *Node) {
		if n.Kind != KindMenu || n.Component == "" || n.Path == "" {
			return
		}
		if !strings.HasPrefix(n.Path, "/") {
			return
		}
		out = append(out, Route{
			Name:      n.Code,
			Path:      n.Path,
			Component: n.Component,
			KeepAlive: n.KeepAlive,
		})
	})
	return out
}

// KnownMenuPath reports whether any node of the full catalog, role
// filtering aside, carries the path. It decides 403 versus 404 for
// paths outside the caller's resolved tree.
func KnownMenuPath(path string) bool {
	known := false
	walk(append(base(), dynamic()...), func(n *Node) {
		if n.Path != "" && n.Path == path {
			known = true
		}
	})
	return known
}

func walk(nodes []*Node, fn func(*Node)) {
	for _, n := range nodes {
		fn(n)
		walk(n.Children, fn)
	}
}
