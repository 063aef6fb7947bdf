package model

import "strings"

// PathSeparator joins taxonomy path segments and label parts.
const PathSeparator = " - "

// Entry is a single flattened taxonomy leaf.
type Entry struct {
	Path        string // ancestor chain, e.g. "Fashion & Clothing - Accessories"
	Subcategory string // immediate group name; empty for flat main categories
	Item        string // leaf item, e.g. "handbags"
	Owner       string // path of the main category whose prompt template applies
}

// Label renders the entry as "{Path}[ - {Subcategory}] - {Item}".
func (e Entry) Label() string {
	var b strings.Builder
	b.Grow(len(e.Path) + len(e.Subcategory) + len(e.Item) + 2*len(PathSeparator))
	b.WriteString(e.Path)
	if e.Subcategory != "" {
		b.WriteString(PathSeparator)
		b.WriteString(e.Subcategory)
	}
	b.WriteString(PathSeparator)
	b.WriteString(e.Item)
	return b.String()
}

// PromptRecord pairs one prompt text with the label it scores.
type PromptRecord struct {
	Text  string `json:"prompt"`
	Label string `json:"label"`
}
