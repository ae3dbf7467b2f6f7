package usecase

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"chat-responder/internal/domain"
)

// RecentTurnLimit bounds the in-memory window kept per session.
const RecentTurnLimit = 10

const (
	sessionIDLayout   = "20060102T150405"
	sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	sessionIDSuffix   = 8
)

// Session is the state of one continuous interaction. It lives only as long
// as the process.
type Session struct {
	ID       string
	UserName string

	turns []domain.Turn
}

func newSession(id string) *Session {
	return &Session{ID: id, turns: make([]domain.Turn, 0, RecentTurnLimit)}
}

// RecentTurns returns a copy of the window, oldest first.
func (s *Session) RecentTurns() []domain.Turn {
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) remember(t domain.Turn) {
	if len(s.turns) == RecentTurnLimit {
		copy(s.turns, s.turns[1:])
		s.turns = s.turns[:RecentTurnLimit-1]
	}
	s.turns = append(s.turns, t)
}

// NewSessionID returns a timestamp followed by a random suffix, e.g.
// 20261015T142233-k3j9x0ab.
func NewSessionID(now time.Time) string {
	suffix, err := gonanoid.Generate(sessionIDAlphabet, sessionIDSuffix)
	if err != nil {
		// crypto/rand failing leaves the timestamp as the only entropy.
		suffix = fmt.Sprintf("%08d", now.Nanosecond()%100000000)
	}
	return now.UTC().Format(sessionIDLayout) + "-" + suffix
}
