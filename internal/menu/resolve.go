// Package menu builds the navigation tree a principal is allowed to see.
package menu

import (
	"sort"

	"github.com/corkboard-io/corkboard/internal/model"
)

// View is a visible menu node with its visible children.
type View struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Icon         string     `json:"icon"`
	Order        int        `json:"order"`
	RequiredRole model.Role `json:"requiredRole,omitempty"`
	Children     []*View    `json:"children"`
}

// allowedBy maps a node requirement to the roles that satisfy it. A requirement
// missing from the map is not satisfiable.
var allowedBy = map[model.Role]model.RoleSet{
	model.RoleAdmin:     model.NewRoleSet(model.RoleAdmin),
	model.RoleModerator: model.NewRoleSet(model.RoleAdmin, model.RoleModerator),
	model.RoleUser:      model.NewRoleSet(model.RoleAdmin, model.RoleModerator, model.RoleUser),
}

// Visible reports whether a single node may be shown to p, ignoring its ancestors.
// A nil p is an anonymous caller. A required role outside admin, moderator and
// user hides the node from everyone, logged in or not.
func Visible(node *model.Menu, p *model.Principal) bool {
	if !node.Active {
		return false
	}
	if node.RequiredRole == "" {
		return true
	}
	if p == nil {
		return false
	}
	allowed, ok := allowedBy[node.RequiredRole]
	return ok && allowed.Has(p.Role)
}

// Resolve returns the roots of the tree visible to p, siblings ordered by their
// order field and then id. A hidden node hides its whole subtree. Nodes whose
// parent does not exist are never reached.
func Resolve(nodes []model.Menu, p *model.Principal) []*View {
	children := make(map[int64][]int, len(nodes))
	var roots []int
	for i := range nodes {
		if nodes[i].ParentID == nil {
			roots = append(roots, i)
			continue
		}
		children[*nodes[i].ParentID] = append(children[*nodes[i].ParentID], i)
	}
	r := &resolver{nodes: nodes, children: children, principal: p}
	return r.level(roots, len(nodes))
}

type resolver struct {
	nodes     []model.Menu
	children  map[int64][]int
	principal *model.Principal
}

// level resolves one set of siblings. depth bounds the recursion so cyclic parent
// links cannot loop forever.
func (r *resolver) level(indexes []int, depth int) []*View {
	views := make([]*View, 0, len(indexes))
	if depth <= 0 {
		return views
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		a, b := &r.nodes[indexes[i]], &r.nodes[indexes[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
	for _, i := range indexes {
		node := &r.nodes[i]
		if !Visible(node, r.principal) {
			continue
		}
		views = append(views, &View{
			ID:           node.ID,
			Name:         node.Name,
			URL:          node.URL,
			Icon:         node.Icon,
			Order:        node.SortOrder,
			RequiredRole: node.RequiredRole,
			Children:     r.level(r.children[node.ID], depth-1),
		})
	}
	return views
}
