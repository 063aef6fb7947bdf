package model

import "time"

// ScoredCategory is one ranked label with its aggregated similarity.
type ScoredCategory struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification is the record emitted for one classified image.
type Classification struct {
	ID           string           `json:"id"`
	Source       string           `json:"source,omitempty"` // file path, object key, or upload name
	Categories   []ScoredCategory `json:"categories"`
	Fallback     bool             `json:"fallback,omitempty"` // no category cleared the threshold
	ModelVersion string           `json:"model_version,omitempty"`
	Duration     time.Duration    `json:"duration_ns,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Top returns the highest-confidence category, or false when there is none.
func (c Classification) Top() (ScoredCategory, bool) {
	if len(c.Categories) == 0 {
		return ScoredCategory{}, false
	}
	return c.Categories[0], true
}
