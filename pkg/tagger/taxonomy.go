package tagger

import (
	"github.com/hejijunhao/tagger/internal/engine/taxonomy"
)

// Node is one category in a hierarchy. Exactly one of Items or Children is
// set. Template, containing a single "{}" placeholder, is required on the
// top-most category of every branch and must not be repeated below it.
type Node struct {
	Name     string
	Template string
	Items    []string
	Children []Node
}

// Taxonomy returns the hierarchy the Tagger classifies against. The result
// is a copy; changing it has no effect.
func (t *Tagger) Taxonomy() []Node {
	return fromInternal(t.taxonomy.Roots())
}

func toInternal(nodes []Node) []*taxonomy.Category {
	out := make([]*taxonomy.Category, len(nodes))
	for i, n := range nodes {
		c := &taxonomy.Category{Name: n.Name, Template: n.Template}
		switch {
		case n.Items != nil:
			c.Body = taxonomy.Leaves(append([]string(nil), n.Items...))
		case n.Children != nil:
			c.Body = taxonomy.Children(toInternal(n.Children))
		}
		out[i] = c
	}
	return out
}

func fromInternal(cats []*taxonomy.Category) []Node {
	out := make([]Node, len(cats))
	for i, c := range cats {
		n := Node{Name: c.Name, Template: c.Template}
		switch body := c.Body.(type) {
		case taxonomy.Leaves:
			n.Items = append([]string{}, body...)
		case taxonomy.Children:
			n.Children = fromInternal(body)
		}
		out[i] = n
	}
	return out
}
