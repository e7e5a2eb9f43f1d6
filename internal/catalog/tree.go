package catalog

import (
	"sort"
	"strings"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

// CategoryNode is one level of the category hierarchy.
type CategoryNode struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	// Path is the slash-joined slug path from the root, e.g. "gates/hardware".
	Path         string          `json:"path"`
	Label        string          `json:"label"`
	Depth        int             `json:"depth"`
	ProductCount int             `json:"productCount"`
	Children     []*CategoryNode `json:"children,omitempty"`
}

// CategoryTree indexes nodes by slug path.
type CategoryTree struct {
	Roots []*CategoryNode `json:"roots"`
	index map[string]*CategoryNode
}

// BuildCategoryTree derives the category hierarchy from active products. A product counts toward
// its own category and every ancestor, so a node's count includes its descendants.
func BuildCategoryTree(products []domain.Product) *CategoryTree {
	tree := &CategoryTree{index: make(map[string]*CategoryNode)}
	for _, p := range products {
		if !p.Visible() {
			continue
		}
		segments := p.CategoryPath()
		var parent *CategoryNode
		var slugs, names []string
		for depth, name := range segments {
			slug := Slugify(name)
			if slug == "" {
				continue
			}
			slugs = append(slugs, slug)
			names = append(names, name)
			path := strings.Join(slugs, "/")
			node, ok := tree.index[path]
			if !ok {
				node = &CategoryNode{
					Name:  name,
					Slug:  slug,
					Path:  path,
					Label: strings.Join(names, " > "),
					Depth: depth,
				}
				tree.index[path] = node
				if parent == nil {
					tree.Roots = append(tree.Roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			node.ProductCount++
			parent = node
		}
	}
	sortNodes(tree.Roots)
	return tree
}

func sortNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Find looks up a node by slash-joined slug path.
func (t *CategoryTree) Find(path string) (*CategoryNode, bool) {
	if t == nil {
		return nil, false
	}
	node, ok := t.index[strings.Trim(strings.ToLower(path), "/")]
	return node, ok
}

// Breadcrumbs returns the nodes from the root down to path.
func (t *CategoryTree) Breadcrumbs(path string) []*CategoryNode {
	path = strings.Trim(strings.ToLower(path), "/")
	if path == "" {
		return nil
	}
	var crumbs []*CategoryNode
	parts := strings.Split(path, "/")
	for i := range parts {
		node, ok := t.Find(strings.Join(parts[:i+1], "/"))
		if !ok {
			return nil
		}
		crumbs = append(crumbs, node)
	}
	return crumbs
}

// Flatten lists every node depth-first in display order.
func (t *CategoryTree) Flatten() []*CategoryNode {
	if t == nil {
		return nil
	}
	var out []*CategoryNode
	var walk func([]*CategoryNode)
	walk = func(nodes []*CategoryNode) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(t.Roots)
	return out
}

// CategorySlugPath returns the slug path for a product's category.
func CategorySlugPath(p domain.Product) string {
	segments := p.CategoryPath()
	slugs := make([]string, 0, len(segments))
	for _, s := range segments {
		if slug := Slugify(s); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return strings.Join(slugs, "/")
}
