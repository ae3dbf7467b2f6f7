package usecase

import (
	"context"
	"sync"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

type fakeKnowledge struct {
	mu          sync.Mutex
	entries     []domain.KnowledgeEntry
	searchErr   error
	addErr      error
	listErr     error
	searchCalls int
	lastQuery   string
	added       []domain.KnowledgeEntry
}

func (f *fakeKnowledge) Search(_ context.Context, query string) ([]domain.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastQuery = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []domain.KnowledgeEntry
	for _, e := range f.entries {
		if knowledge.Matches(e, query) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeKnowledge) Seed(_ context.Context) error { return nil }

func (f *fakeKnowledge) Add(_ context.Context, trigger, answer, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, domain.KnowledgeEntry{Trigger: trigger, Answer: answer, Category: category, Confidence: domain.LearnedConfidence})
	return nil
}

func (f *fakeKnowledge) List(_ context.Context) ([]domain.KnowledgeEntry, error) {
	return f.entries, f.listErr
}

type fakeHistory struct {
	mu         sync.Mutex
	turns      []domain.Turn
	appendErr  error
	queryErr   error
	lastQuery  string
	lastLimit  int
	queryTurns []domain.Turn
}

func (f *fakeHistory) Append(_ context.Context, sessionID, userText, botText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.turns = append(f.turns, domain.Turn{SessionID: sessionID, UserText: userText, BotText: botText})
	return nil
}

func (f *fakeHistory) Query(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	f.lastQuery = sessionID
	f.lastLimit = limit
	return f.queryTurns, f.queryErr
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

// scriptedRandom returns fixed draws: IntN yields min(intn, n-1) and Float64
// yields float.
type scriptedRandom struct {
	intn  int
	float float64
}

func (r scriptedRandom) IntN(n int) int {
	if r.intn >= n {
		return n - 1
	}
	return r.intn
}

func (r scriptedRandom) Float64() float64 { return r.float }

// neverPersonalize keeps the 0.3 draw from firing.
var neverPersonalize = scriptedRandom{float: 0.99}
