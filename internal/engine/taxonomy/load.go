package taxonomy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hejijunhao/tagger/internal/model"
)

const (
	keyPrompt        = "prompt"
	keySubcategories = "subcategories"
)

// LoadFile reads a taxonomy definition from a YAML (or JSON) file.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "taxonomy", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a taxonomy document and validates it. The document is a mapping
// of category name to either
//
//	{prompt: "a product photo of {}", subcategories: <list or mapping>}
//
// for main categories, a mapping of child categories for pass-through layers,
// or a list of item strings for leaf groups. Mapping order is preserved.
func Load(r io.Reader) (*Taxonomy, error) {
	roots, err := parse(r)
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "taxonomy", err)
	}
	return New(roots)
}

func parse(r io.Reader) ([]*Category, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("taxonomy document is empty")
		}
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolve(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: taxonomy root must be a mapping", root.Line)
	}
	return parseChildren(root)
}

func parseChildren(n *yaml.Node) ([]*Category, error) {
	cats := make([]*Category, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := resolve(n.Content[i]), resolve(n.Content[i+1])
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: category name must be a string", key.Line)
		}
		c, err := parseCategory(key.Value, val)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func parseCategory(name string, n *yaml.Node) (*Category, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		items, err := parseItems(name, n)
		if err != nil {
			return nil, err
		}
		return &Category{Name: name, Body: items}, nil
	case yaml.MappingNode:
		if prompt := lookup(n, keyPrompt); prompt != nil {
			return parseMain(name, n, prompt)
		}
		children, err := parseChildren(n)
		if err != nil {
			return nil, err
		}
		return &Category{Name: name, Body: Children(children)}, nil
	default:
		return nil, fmt.Errorf("line %d: %q must be a mapping or a list of items", n.Line, name)
	}
}

func parseMain(name string, n, prompt *yaml.Node) (*Category, error) {
	if prompt.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: %q: prompt must be a string", prompt.Line, name)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch k := n.Content[i].Value; k {
		case keyPrompt, keySubcategories:
		default:
			return nil, fmt.Errorf("line %d: %q: unexpected key %q in main category", n.Content[i].Line, name, k)
		}
	}

	subs := lookup(n, keySubcategories)
	if subs == nil {
		return nil, fmt.Errorf("line %d: %q: main category has no subcategories", n.Line, name)
	}

	c := &Category{Name: name, Template: prompt.Value}
	switch subs.Kind {
	case yaml.SequenceNode:
		items, err := parseItems(name, subs)
		if err != nil {
			return nil, err
		}
		c.Body = items
	case yaml.MappingNode:
		children, err := parseChildren(subs)
		if err != nil {
			return nil, err
		}
		c.Body = Children(children)
	default:
		return nil, fmt.Errorf("line %d: %q: subcategories must be a mapping or a list", subs.Line, name)
	}
	return c, nil
}

func parseItems(name string, n *yaml.Node) (Leaves, error) {
	items := make(Leaves, 0, len(n.Content))
	for _, el := range n.Content {
		el = resolve(el)
		if el.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %q: items must be plain strings", el.Line, name)
		}
		items = append(items, el.Value)
	}
	return items, nil
}

// lookup returns the value node for key in a mapping node.
func lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			return resolve(n.Content[i+1])
		}
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
