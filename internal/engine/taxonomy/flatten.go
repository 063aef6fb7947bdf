package taxonomy

import (
	"fmt"

	"github.com/hejijunhao/tagger/internal/model"
)

// Flatten walks the tree depth-first in definition order and returns one
// entry per leaf item. It does not run the name and template checks that
// New performs.
func Flatten(roots []*Category) ([]model.Entry, error) {
	f := newFlattener()
	for _, root := range roots {
		if err := f.category(root, "", ""); err != nil {
			return nil, err
		}
	}
	return f.entries, nil
}

type flattener struct {
	entries   []model.Entry
	templates map[string]string
}

func newFlattener() *flattener {
	return &flattener{templates: make(map[string]string)}
}

// category descends into c. parent is the path above c; owner is the path of
// the main category already governing this subtree, or empty above it.
func (f *flattener) category(c *Category, parent, owner string) error {
	if c == nil {
		return fmt.Errorf("nil category under %q", parent)
	}
	path := joinPath(parent, c.Name)

	if c.Template != "" {
		if owner != "" {
			return fmt.Errorf("%q: nested prompt template inside %q", path, owner)
		}
		owner = path
		f.templates[owner] = c.Template
	}

	switch body := c.Body.(type) {
	case Leaves:
		// Only a main category may hold items directly.
		if c.Template == "" {
			return fmt.Errorf("%q: items outside any prompt-bearing category", path)
		}
		f.emit(path, "", owner, body)
	case Children:
		if len(body) == 0 {
			return fmt.Errorf("%q: category has no subcategories", path)
		}
		for _, child := range body {
			if child == nil {
				return fmt.Errorf("%q: nil subcategory", path)
			}
			if items, ok := child.Body.(Leaves); ok && child.Template == "" && owner != "" {
				f.emit(path, child.Name, owner, items)
				continue
			}
			if err := f.category(child, path, owner); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%q: category has neither items nor subcategories", path)
	}
	return nil
}

func (f *flattener) emit(path, sub, owner string, items Leaves) {
	for _, item := range items {
		f.entries = append(f.entries, model.Entry{
			Path:        path,
			Subcategory: sub,
			Item:        item,
			Owner:       owner,
		})
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + model.PathSeparator + name
}
