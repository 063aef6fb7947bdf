package taxonomy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hejijunhao/tagger/internal/model"
)

// Placeholder is the single slot in a prompt template that receives the item.
const Placeholder = "{}"

// Node is the body of a Category: either Leaves or Children.
type Node interface {
	isNode()
}

// Leaves is an ordered group of plain item strings.
type Leaves []string

// Children is an ordered group of named subcategories.
type Children []*Category

func (Leaves) isNode()   {}
func (Children) isNode() {}

// Category is a named taxonomy node. A non-empty Template marks a main
// category: every leaf beneath it is prompted with that template.
type Category struct {
	Name     string
	Template string
	Body     Node
}

// Main creates a main category with named subcategories.
func Main(name, template string, children ...*Category) *Category {
	return &Category{Name: name, Template: template, Body: Children(children)}
}

// FlatMain creates a main category whose items have no intermediate subcategory.
func FlatMain(name, template string, items ...string) *Category {
	return &Category{Name: name, Template: template, Body: Leaves(items)}
}

// Group creates a nesting layer without a template of its own.
func Group(name string, children ...*Category) *Category {
	return &Category{Name: name, Body: Children(children)}
}

// Items creates a subcategory holding leaf items.
func Items(name string, items ...string) *Category {
	return &Category{Name: name, Body: Leaves(items)}
}

// Fill substitutes item into the template's placeholder.
func Fill(template, item string) string {
	return strings.Replace(template, Placeholder, item, 1)
}

// Taxonomy is the immutable, validated category tree plus its flattened
// entries. Safe for concurrent use.
type Taxonomy struct {
	roots     []*Category
	entries   []model.Entry
	templates map[string]string // owner path → template
}

// New validates the tree and flattens it once. Any structural problem is
// reported as a configuration error.
func New(roots []*Category) (*Taxonomy, error) {
	if len(roots) == 0 {
		return nil, model.WrapError(model.ErrConfiguration, "taxonomy", fmt.Errorf("taxonomy is empty"))
	}
	if err := validate(roots); err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "taxonomy", err)
	}

	f := newFlattener()
	for _, root := range roots {
		if err := f.category(root, "", ""); err != nil {
			return nil, model.WrapError(model.ErrConfiguration, "taxonomy", err)
		}
	}
	if len(f.entries) == 0 {
		return nil, model.WrapError(model.ErrConfiguration, "taxonomy", fmt.Errorf("taxonomy has no leaf items"))
	}

	return &Taxonomy{roots: roots, entries: f.entries, templates: f.templates}, nil
}

// Entries returns the flattened leaves in definition order.
func (t *Taxonomy) Entries() []model.Entry {
	return slices.Clone(t.entries)
}

// Len returns the number of flattened leaves.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}

// Template returns the prompt template owned by the main category at path owner.
func (t *Taxonomy) Template(owner string) (string, bool) {
	tmpl, ok := t.templates[owner]
	return tmpl, ok
}

// Roots returns the top-level categories.
func (t *Taxonomy) Roots() []*Category {
	return t.roots
}

// Labels returns the distinct entry labels in definition order.
func (t *Taxonomy) Labels() []string {
	seen := make(map[string]bool, len(t.entries))
	labels := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		l := e.Label()
		if seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}
