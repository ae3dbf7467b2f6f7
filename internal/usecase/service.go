package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

const (
	defaultMaxSessions  = 1000
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultCategory     = "user_added"
)

// KnowledgeStore is the fact table consulted before classification.
type KnowledgeStore interface {
	KnowledgeSearcher
	Seed(ctx context.Context) error
	Add(ctx context.Context, trigger, answer, category string) error
	List(ctx context.Context) ([]domain.KnowledgeEntry, error)
}

// HistoryLog is the durable, append-only conversation record.
type HistoryLog interface {
	HistoryAppender
	Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
}

type ChatInput struct {
	Message   string
	SessionID string
}

type ChatOutput struct {
	Reply     string
	SessionID string
}

type HistoryInput struct {
	SessionID string
	Limit     int
}

type TeachInput struct {
	Trigger  string
	Answer   string
	Category string
}

type sessionSlot struct {
	mu        sync.Mutex
	responder *Responder

	// Guarded by ChatService.mu.
	lastUsed uint64
	active   int
}

// ChatService keeps one Responder per session and serializes turns within a
// session. Sessions beyond maxSessions evict the least recently used one.
type ChatService struct {
	knowledge   KnowledgeStore
	history     HistoryLog
	maxSessions int
	opts        []Option
	settings    settings

	mu       sync.Mutex
	sessions map[string]*sessionSlot
	tick     uint64
}

func NewChatService(k KnowledgeStore, h HistoryLog, maxSessions int, opts ...Option) (*ChatService, error) {
	if k == nil {
		return nil, errors.New("usecase: knowledge store must not be nil")
	}
	if h == nil {
		return nil, errors.New("usecase: history log must not be nil")
	}
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	s := newSettings(opts)
	s.rng = synchronized(s.rng)
	return &ChatService{
		knowledge:   k,
		history:     h,
		maxSessions: maxSessions,
		// Responders share the service's random source and clock.
		opts:     append(append([]Option{}, opts...), WithRandom(s.rng)),
		settings: s,
		sessions: make(map[string]*sessionSlot),
	}, nil
}

// Chat runs one turn. An empty SessionID starts a new session; an unknown one
// starts a session under that ID.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	slot, err := s.slot(strings.TrimSpace(in.SessionID))
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "session_create_error", err)
	}
	defer s.release(slot)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	reply, err := slot.responder.ProcessMessage(ctx, in.Message)
	if err != nil {
		return ChatOutput{}, err
	}
	return ChatOutput{Reply: reply, SessionID: slot.responder.Session().ID}, nil
}

// History returns the most recent turns, newest first.
func (s *ChatService) History(ctx context.Context, in HistoryInput) ([]domain.Turn, error) {
	limit := in.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, newError(ErrorInvalidInput, "invalid_limit", nil)
	}
	turns, err := s.history.Query(ctx, strings.TrimSpace(in.SessionID), limit)
	if err != nil {
		return nil, newError(ErrorHistory, "history_query_error", err)
	}
	return turns, nil
}

// Teach adds a user-supplied fact with learned confidence.
func (s *ChatService) Teach(ctx context.Context, in TeachInput) (domain.KnowledgeEntry, error) {
	entry := knowledge.Normalize(domain.KnowledgeEntry{
		Trigger:    in.Trigger,
		Answer:     in.Answer,
		Category:   in.Category,
		Confidence: domain.LearnedConfidence,
	})
	if entry.Trigger == "" {
		return domain.KnowledgeEntry{}, newError(ErrorInvalidInput, "empty_trigger", nil)
	}
	if entry.Answer == "" {
		return domain.KnowledgeEntry{}, newError(ErrorInvalidInput, "empty_answer", nil)
	}
	if entry.Category == "" {
		entry.Category = defaultCategory
	}
	if err := s.knowledge.Add(ctx, entry.Trigger, entry.Answer, entry.Category); err != nil {
		return domain.KnowledgeEntry{}, newError(ErrorKnowledgeStore, "knowledge_add_error", err)
	}
	s.settings.logger.InfoContext(ctx, "knowledge entry added", "trigger", entry.Trigger, "category", entry.Category)
	return entry, nil
}

// Knowledge lists every stored entry.
func (s *ChatService) Knowledge(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	entries, err := s.knowledge.List(ctx)
	if err != nil {
		return nil, newError(ErrorKnowledgeStore, "knowledge_list_error", err)
	}
	return entries, nil
}

// SessionCount reports how many sessions are held in memory.
func (s *ChatService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ChatService) slot(id string) (*sessionSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if id != "" {
		if slot, ok := s.sessions[id]; ok {
			slot.lastUsed = s.tick
			slot.active++
			return slot, nil
		}
	}

	opts := s.opts
	if id != "" {
		opts = append(append([]Option{}, s.opts...), WithSessionID(id))
	}
	responder, err := NewResponder(s.knowledge, s.history, opts...)
	if err != nil {
		return nil, err
	}
	id = responder.Session().ID

	if len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}
	slot := &sessionSlot{responder: responder, lastUsed: s.tick, active: 1}
	s.sessions[id] = slot
	s.settings.logger.Debug("session started", "session", id)
	return slot, nil
}

func (s *ChatService) release(slot *sessionSlot) {
	s.mu.Lock()
	slot.active--
	s.mu.Unlock()
}

// evictOldest drops the least recently used idle session. Sessions with a
// call in flight are never evicted; if every session is busy the registry
// grows past maxSessions until one frees up.
func (s *ChatService) evictOldest() {
	var (
		oldestID string
		oldest   uint64
	)
	for id, slot := range s.sessions {
		if slot.active > 0 {
			continue
		}
		if oldestID == "" || slot.lastUsed < oldest {
			oldestID, oldest = id, slot.lastUsed
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.sessions, oldestID)
	s.settings.logger.Debug("session evicted", "session", oldestID)
}
