// Package prompt expands flattened taxonomy entries into prompt ensembles.
//
// Every entry yields exactly EnsembleSize prompts, all carrying the entry's
// label, stored consecutively: prompts[i*EnsembleSize : (i+1)*EnsembleSize]
// belong to entry i. Score aggregation relies on that stride.
package prompt

import (
	"fmt"

	"github.com/hejijunhao/tagger/internal/engine/taxonomy"
	"github.com/hejijunhao/tagger/internal/model"
)

// EnsembleSize is the number of phrasing variants generated per entry.
const EnsembleSize = 3

// Generic phrasings shared by every category.
const (
	ClearPhoto = "a clear product photo of {}"
	ThisIsA    = "this is a {} product photo"
)

// Variants returns the ensemble for one item in fixed order: the owning
// category's template, then the two generic phrasings.
func Variants(template, item string) [EnsembleSize]string {
	return [EnsembleSize]string{
		taxonomy.Fill(template, item),
		taxonomy.Fill(ClearPhoto, item),
		taxonomy.Fill(ThisIsA, item),
	}
}

// Set holds the parallel prompt and label sequences for a taxonomy.
// Read-only after Generate; safe to share across goroutines.
type Set struct {
	Prompts []string      // len == len(Entries) * EnsembleSize
	Labels  []string      // Labels[j] is the label of Prompts[j]
	Entries []model.Entry // flattened entries, in taxonomy order
}

// Generate builds the prompt set for every flattened entry of tax.
func Generate(tax *taxonomy.Taxonomy) (*Set, error) {
	entries := tax.Entries()
	s := &Set{
		Prompts: make([]string, 0, len(entries)*EnsembleSize),
		Labels:  make([]string, 0, len(entries)*EnsembleSize),
		Entries: entries,
	}

	for _, e := range entries {
		tmpl, ok := tax.Template(e.Owner)
		if !ok {
			return nil, model.WrapError(model.ErrConfiguration, "prompt.generate",
				fmt.Errorf("no prompt template for %q (owner %q)", e.Label(), e.Owner))
		}
		label := e.Label()
		for _, p := range Variants(tmpl, e.Item) {
			s.Prompts = append(s.Prompts, p)
			s.Labels = append(s.Labels, label)
		}
	}
	return s, nil
}

// Len returns the number of entries (not prompts).
func (s *Set) Len() int {
	return len(s.Entries)
}

// Block returns the prompts belonging to entry i.
func (s *Set) Block(i int) []string {
	return s.Prompts[i*EnsembleSize : (i+1)*EnsembleSize]
}

// EntryLabels returns one label per entry, aligned with aggregated scores.
func (s *Set) EntryLabels() []string {
	labels := make([]string, len(s.Entries))
	for i := range s.Entries {
		labels[i] = s.Labels[i*EnsembleSize]
	}
	return labels
}

// Records returns the prompts paired with their labels.
func (s *Set) Records() []model.PromptRecord {
	recs := make([]model.PromptRecord, len(s.Prompts))
	for i := range s.Prompts {
		recs[i] = model.PromptRecord{Text: s.Prompts[i], Label: s.Labels[i]}
	}
	return recs
}
