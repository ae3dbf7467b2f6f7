package domain

import "math"

const (
	// CuratedConfidence is assigned to entries shipped with the seed set.
	CuratedConfidence = 1.0
	// LearnedConfidence is assigned to entries added at runtime.
	LearnedConfidence = 0.8
)

// KnowledgeEntry is a stored fact that can answer an input directly.
// Triggers are not unique; several entries may share one.
type KnowledgeEntry struct {
	Trigger    string  `json:"trigger"`
	Answer     string  `json:"answer"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// EffectiveConfidence returns the confidence used for ranking. Values that
// cannot be a weight (NaN, negative) rank as 0.
func (e KnowledgeEntry) EffectiveConfidence() float64 {
	if math.IsNaN(e.Confidence) || e.Confidence < 0 {
		return 0
	}
	return e.Confidence
}
