// Package memory provides process-local KnowledgeStore and HistoryLog
// implementations.
package memory

import (
	"context"
	"sync"

	"github.com/elliotchance/pie/v2"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

// KnowledgeStore keeps entries in insertion order.
type KnowledgeStore struct {
	mu      sync.RWMutex
	seed    []domain.KnowledgeEntry
	entries []domain.KnowledgeEntry
}

// NewKnowledgeStore returns an empty store whose Seed inserts seed, or the
// curated set when seed is empty.
func NewKnowledgeStore(seed []domain.KnowledgeEntry) *KnowledgeStore {
	if len(seed) == 0 {
		seed = knowledge.Curated()
	}
	return &KnowledgeStore{seed: seed}
}

// Seed inserts every seed entry whose (trigger, answer) pair is absent.
func (s *KnowledgeStore) Seed(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.seed {
		e = knowledge.Normalize(e)
		exists := pie.Any(s.entries, func(have domain.KnowledgeEntry) bool {
			return have.Trigger == e.Trigger && have.Answer == e.Answer
		})
		if !exists {
			s.entries = append(s.entries, e)
		}
	}
	return nil
}

func (s *KnowledgeStore) Search(_ context.Context, query string) ([]domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := pie.Filter(s.entries, func(e domain.KnowledgeEntry) bool {
		return knowledge.Matches(e, query)
	})
	return knowledge.Rank(matched), nil
}

func (s *KnowledgeStore) Add(_ context.Context, trigger, answer, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, knowledge.Normalize(domain.KnowledgeEntry{
		Trigger:    trigger,
		Answer:     answer,
		Category:   category,
		Confidence: domain.LearnedConfidence,
	}))
	return nil
}

func (s *KnowledgeStore) List(_ context.Context) ([]domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.KnowledgeEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
