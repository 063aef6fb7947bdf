package taxonomy

import (
	"fmt"
	"strings"

	"github.com/hejijunhao/tagger/internal/model"
)

// validate checks names, templates, and group contents. Structural rules
// (template nesting, items without an owner) are enforced by the flattener.
func validate(roots []*Category) error {
	return validateSiblings(roots, "")
}

func validateSiblings(cats []*Category, parent string) error {
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		if c == nil {
			return fmt.Errorf("nil category under %q", parent)
		}
		if err := validateName(c.Name, parent); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q under %q", c.Name, parent)
		}
		seen[c.Name] = true

		path := joinPath(parent, c.Name)
		if c.Template != "" {
			if n := strings.Count(c.Template, Placeholder); n != 1 {
				return fmt.Errorf("%q: prompt template must contain exactly one %s placeholder, found %d", path, Placeholder, n)
			}
		}

		switch body := c.Body.(type) {
		case Leaves:
			if len(body) == 0 {
				return fmt.Errorf("%q: empty item list", path)
			}
			for i, item := range body {
				if strings.TrimSpace(item) == "" {
					return fmt.Errorf("%q: item %d is blank", path, i)
				}
			}
		case Children:
			if len(body) == 0 {
				return fmt.Errorf("%q: category has no subcategories", path)
			}
			if err := validateSiblings(body, path); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%q: category has neither items nor subcategories", path)
		}
	}
	return nil
}

func validateName(name, parent string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("blank category name under %q", parent)
	}
	if strings.Contains(name, model.PathSeparator) {
		return fmt.Errorf("category name %q contains the path separator %q", name, model.PathSeparator)
	}
	return nil
}
