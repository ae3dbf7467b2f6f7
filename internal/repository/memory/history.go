package memory

import (
	"context"
	"sync"
	"time"

	"chat-responder/internal/domain"
)

// HistoryLog is an unbounded in-memory turn log.
type HistoryLog struct {
	mu    sync.RWMutex
	now   func() time.Time
	turns []domain.Turn
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{now: time.Now}
}

func (l *HistoryLog) Append(_ context.Context, sessionID, userText, botText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, domain.Turn{
		SessionID: sessionID,
		UserText:  userText,
		BotText:   botText,
		Timestamp: l.now().UTC(),
	})
	return nil
}

// Query walks the log backwards, so results are newest first.
func (l *HistoryLog) Query(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return []domain.Turn{}, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Turn, 0, min(limit, len(l.turns)))
	for i := len(l.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if sessionID != "" && l.turns[i].SessionID != sessionID {
			continue
		}
		out = append(out, l.turns[i])
	}
	return out, nil
}

// Len reports the number of recorded turns.
func (l *HistoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}
