// Package classifier turns raw image/prompt similarities into ranked
// category labels.
package classifier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hejijunhao/tagger/internal/model"
)

// Policy controls which aggregated scores are reported.
type Policy struct {
	// Threshold is the score a candidate must strictly exceed.
	Threshold float64
	// TopM bounds how many ranked candidates are considered at all.
	TopM int
	// FallbackCount is how many candidates are returned when none clears Threshold.
	FallbackCount int
	// MaxResults caps the final list.
	MaxResults int
}

// DefaultPolicy returns the stock selection settings.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:     0.25,
		TopM:          5,
		FallbackCount: 3,
		MaxResults:    3,
	}
}

// Validate reports nonsensical policy settings as configuration errors.
func (p Policy) Validate() error {
	var errs []error
	if p.Threshold < -1 || p.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold %v outside [-1, 1]", p.Threshold))
	}
	if p.TopM < 1 {
		errs = append(errs, fmt.Errorf("top-m must be at least 1, got %d", p.TopM))
	}
	if p.FallbackCount < 1 {
		errs = append(errs, fmt.Errorf("fallback count must be at least 1, got %d", p.FallbackCount))
	}
	if p.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("max results must be at least 1, got %d", p.MaxResults))
	}
	if len(errs) > 0 {
		return model.WrapError(model.ErrConfiguration, "policy", errors.Join(errs...))
	}
	return nil
}

// Selection is the outcome of applying a Policy.
type Selection struct {
	Categories []model.ScoredCategory
	// Fallback is set when nothing cleared the threshold.
	Fallback bool
}

// Select ranks scores, keeps the first occurrence of each label among the
// top M, filters by threshold and falls back to the best candidates when the
// filter leaves nothing. The result is non-empty whenever labels is.
func (p Policy) Select(labels []string, scores []float64) (Selection, error) {
	if err := p.Validate(); err != nil {
		return Selection{}, err
	}
	if len(labels) != len(scores) {
		return Selection{}, model.WrapError(model.ErrBackend, "select",
			fmt.Errorf("%d labels but %d scores", len(labels), len(scores)))
	}
	if len(labels) == 0 {
		return Selection{}, model.WrapError(model.ErrConfiguration, "select", errors.New("no categories to rank"))
	}

	ranked := make([]model.ScoredCategory, len(labels))
	for i := range labels {
		ranked[i] = model.ScoredCategory{Label: labels[i], Confidence: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > p.TopM {
		ranked = ranked[:p.TopM]
	}

	seen := make(map[string]struct{}, len(ranked))
	unique := make([]model.ScoredCategory, 0, len(ranked))
	for _, c := range ranked {
		if _, dup := seen[c.Label]; dup {
			continue
		}
		seen[c.Label] = struct{}{}
		unique = append(unique, c)
	}

	var kept []model.ScoredCategory
	for _, c := range unique {
		if c.Confidence > p.Threshold {
			kept = append(kept, c)
		}
	}

	sel := Selection{Categories: kept}
	if len(kept) == 0 {
		sel.Fallback = true
		sel.Categories = unique[:min(p.FallbackCount, len(unique))]
	}
	if len(sel.Categories) > p.MaxResults {
		sel.Categories = sel.Categories[:p.MaxResults]
	}
	return sel, nil
}
