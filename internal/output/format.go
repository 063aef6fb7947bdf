package output

import (
	"encoding/json"
	"fmt"

	"github.com/hejijunhao/tagger/internal/model"
)

// Marshal encodes rec as a single JSON line without the trailing newline.
// Categories is always an array, never null.
func Marshal(rec model.Classification) ([]byte, error) {
	data, err := json.Marshal(Normalize(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal classification %s: %w", rec.ID, err)
	}
	return data, nil
}

// Normalize returns rec with a non-nil Categories slice.
func Normalize(rec model.Classification) model.Classification {
	if rec.Categories == nil {
		rec.Categories = []model.ScoredCategory{}
	}
	return rec
}
