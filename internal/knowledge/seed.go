// Package knowledge holds the curated fact set and the ranking rules shared
// by every KnowledgeStore implementation.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elliotchance/pie/v2"

	"chat-responder/internal/domain"
)

// Curated returns the default seed set. Callers get a fresh copy.
func Curated() []domain.KnowledgeEntry {
	return []domain.KnowledgeEntry{
		{Trigger: "hello", Answer: "Hello! How can I help you today?", Category: "greetings", Confidence: domain.CuratedConfidence},
		{Trigger: "how are you", Answer: "I'm doing well, thank you for asking! How are you?", Category: "greetings", Confidence: domain.CuratedConfidence},
		{Trigger: "what is your name", Answer: "I'm a simple chat assistant. You can call me Bot.", Category: "identity", Confidence: domain.CuratedConfidence},
		{Trigger: "what can you do", Answer: "I can chat, remember your name, and learn new answers when you teach me.", Category: "identity", Confidence: domain.CuratedConfidence},
		{Trigger: "who made you", Answer: "I was built by a small team of developers.", Category: "identity", Confidence: domain.CuratedConfidence},
		{Trigger: "good morning", Answer: "Good morning! I hope your day is off to a great start.", Category: "greetings", Confidence: domain.CuratedConfidence},
		{Trigger: "good night", Answer: "Good night! Sleep well.", Category: "farewells", Confidence: domain.CuratedConfidence},
	}
}

// Matches reports whether query occurs in the entry's trigger or answer,
// ignoring case.
func Matches(e domain.KnowledgeEntry, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Trigger), q) || strings.Contains(strings.ToLower(e.Answer), q)
}

// Rank orders entries by descending confidence. Equal confidences keep their
// input order.
func Rank(entries []domain.KnowledgeEntry) []domain.KnowledgeEntry {
	return pie.SortStableUsing(entries, func(a, b domain.KnowledgeEntry) bool {
		return a.EffectiveConfidence() > b.EffectiveConfidence()
	})
}

// Normalize returns e the way stores persist it: trimmed, lower-cased trigger.
func Normalize(e domain.KnowledgeEntry) domain.KnowledgeEntry {
	e.Trigger = strings.ToLower(strings.TrimSpace(e.Trigger))
	e.Answer = strings.TrimSpace(e.Answer)
	e.Category = strings.TrimSpace(e.Category)
	return e
}

// ParamLister is the subset of the parameter store needed to load extra
// curated entries.
type ParamLister interface {
	GetParametersByPath(ctx context.Context, path string) (map[string]string, error)
}

type paramEntry struct {
	Trigger    string   `json:"trigger"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// LoadParamSeed reads curated entries stored as JSON values under
// <prefix>/knowledge/. Entries without a confidence are curated (1.0).
func LoadParamSeed(ctx context.Context, params ParamLister, prefix string) ([]domain.KnowledgeEntry, error) {
	path := strings.TrimRight(strings.TrimSpace(prefix), "/") + "/knowledge/"
	values, err := params.GetParametersByPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load seed from %q: %w", path, err)
	}

	names := pie.Sort(pie.Keys(values))
	entries := make([]domain.KnowledgeEntry, 0, len(names))
	for _, name := range names {
		var p paramEntry
		if err := json.Unmarshal([]byte(values[name]), &p); err != nil {
			return nil, fmt.Errorf("knowledge: decode seed %q: %w", name, err)
		}
		if strings.TrimSpace(p.Trigger) == "" || strings.TrimSpace(p.Answer) == "" {
			return nil, fmt.Errorf("knowledge: seed %q: trigger and answer are required", name)
		}
		confidence := domain.CuratedConfidence
		if p.Confidence != nil {
			confidence = *p.Confidence
		}
		entries = append(entries, Normalize(domain.KnowledgeEntry{
			Trigger:    p.Trigger,
			Answer:     p.Answer,
			Category:   p.Category,
			Confidence: confidence,
		}))
	}
	return entries, nil
}
