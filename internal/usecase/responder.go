package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-responder/internal/classifier"
	"chat-responder/internal/domain"
)

// DefaultPersonalizeRate is the chance that a knowledge answer gets a
// follow-up naming the user.
const DefaultPersonalizeRate = 0.3

// KnowledgeSearcher finds candidate answers for an input.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]domain.KnowledgeEntry, error)
}

// HistoryAppender durably records turns.
type HistoryAppender interface {
	Append(ctx context.Context, sessionID, userText, botText string) error
}

// Personalizer may decorate a knowledge answer for a user whose name is known.
type Personalizer func(answer, name string, rng Random) string

var followUps = []string{
	" Is there anything else you'd like to know, %s?",
	" I hope that helps, %s!",
	" Let me know if you have more questions, %s.",
}

// SuffixPersonalizer appends a follow-up naming the user with probability rate.
func SuffixPersonalizer(rate float64) Personalizer {
	return func(answer, name string, rng Random) string {
		if rate <= 0 || rng.Float64() >= rate {
			return answer
		}
		return answer + fmt.Sprintf(followUps[rng.IntN(len(followUps))], name)
	}
}

type settings struct {
	rng         Random
	now         func() time.Time
	personalize Personalizer
	logger      *slog.Logger
	sessionID   string
}

type Option func(*settings)

func WithRandom(rng Random) Option {
	return func(s *settings) {
		s.rng = rng
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithPersonalizer replaces the knowledge-answer decoration policy. A nil
// personalizer disables it.
func WithPersonalizer(p Personalizer) Option {
	return func(s *settings) {
		s.personalize = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(s *settings) {
		s.sessionID = strings.TrimSpace(id)
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now:         time.Now,
		personalize: SuffixPersonalizer(DefaultPersonalizeRate),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.rng == nil {
		s.rng = NewRandom(0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Responder produces replies for one session. It is not safe for concurrent
// use; callers serialize ProcessMessage per session.
type Responder struct {
	knowledge KnowledgeSearcher
	history   HistoryAppender
	session   *Session
	settings  settings
}

func NewResponder(k KnowledgeSearcher, h HistoryAppender, opts ...Option) (*Responder, error) {
	if k == nil {
		return nil, errors.New("usecase: knowledge store must not be nil")
	}
	if h == nil {
		return nil, errors.New("usecase: history log must not be nil")
	}
	s := newSettings(opts)
	id := s.sessionID
	if id == "" {
		id = NewSessionID(s.now())
	}
	return &Responder{
		knowledge: k,
		history:   h,
		session:   newSession(id),
		settings:  s,
	}, nil
}

// Session exposes the responder's session state.
func (r *Responder) Session() *Session {
	return r.session
}

// ProcessMessage computes the reply to userText, records the turn in the
// history log and then in the session window. On error nothing is recorded
// and no reply is returned.
func (r *Responder) ProcessMessage(ctx context.Context, userText string) (string, error) {
	reply, branch, err := r.reply(ctx, userText)
	if err != nil {
		return "", err
	}

	if err := r.history.Append(ctx, r.session.ID, userText, reply); err != nil {
		return "", newError(ErrorHistory, "history_append_error", err)
	}
	r.session.remember(domain.Turn{
		SessionID: r.session.ID,
		UserText:  userText,
		BotText:   reply,
		Timestamp: r.settings.now().UTC(),
	})

	r.settings.logger.DebugContext(ctx, "reply selected",
		"session", r.session.ID,
		"branch", branch,
	)
	return reply, nil
}

func (r *Responder) reply(ctx context.Context, userText string) (reply, branch string, err error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return clarificationReply, "empty", nil
	}

	if name, ok := classifier.ExtractIntroducedName(text); ok {
		r.session.UserName = name
		return fmt.Sprintf(introductionReply, name), "introduction", nil
	}

	entries, err := r.knowledge.Search(ctx, strings.ToLower(text))
	if err != nil {
		return "", "", newError(ErrorKnowledgeStore, "knowledge_search_error", err)
	}
	if best, ok := bestEntry(entries); ok {
		answer := best.Answer
		if name := r.session.UserName; name != "" && r.settings.personalize != nil {
			answer = r.settings.personalize(answer, name, r.settings.rng)
		}
		return answer, "knowledge", nil
	}

	intent := classifier.Classify(text)
	return generateReply(intent, r.session.UserName, r.settings.rng), intent.String(), nil
}

// bestEntry picks the highest-confidence entry; the earliest wins a tie.
// Entries without an answer cannot be replies and are skipped.
func bestEntry(entries []domain.KnowledgeEntry) (domain.KnowledgeEntry, bool) {
	var (
		best  domain.KnowledgeEntry
		found bool
	)
	for _, e := range entries {
		if strings.TrimSpace(e.Answer) == "" {
			continue
		}
		if !found || e.EffectiveConfidence() > best.EffectiveConfidence() {
			best, found = e, true
		}
	}
	return best, found
}
