package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

var curatedHello = domain.KnowledgeEntry{
	Trigger:    "hello",
	Answer:     "Hello! How can I help you today?",
	Category:   "greetings",
	Confidence: 1.0,
}

func newTestResponder(t *testing.T, k KnowledgeSearcher, h HistoryAppender, opts ...Option) *Responder {
	t.Helper()
	r, err := NewResponder(k, h, opts...)
	require.NoError(t, err)
	return r
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewResponder_ValidatesDependencies(t *testing.T) {
	_, err := NewResponder(nil, &fakeHistory{})
	require.Error(t, err)

	_, err = NewResponder(&fakeKnowledge{}, nil)
	require.Error(t, err)
}

func TestNewResponder_SessionIDFromClock(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 22, 33, 0, time.UTC)
	r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{}, WithClock(func() time.Time { return now }))

	id := r.Session().ID
	require.True(t, strings.HasPrefix(id, "20261015T142233-"), id)
	require.Len(t, strings.TrimPrefix(id, "20261015T142233-"), sessionIDSuffix)
}

func TestProcessMessage_GreetingWithEmptyStore(t *testing.T) {
	for i := 0; i < 4; i++ {
		r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{}, WithRandom(scriptedRandom{intn: i}))
		reply, err := r.ProcessMessage(context.Background(), "hello")
		require.NoError(t, err)
		require.Contains(t, replyGenerators[domain.IntentGreeting].base, reply)
	}
}

func TestProcessMessage_KnowledgePreemptsClassification(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{curatedHello}}
	r := newTestResponder(t, k, &fakeHistory{}, WithRandom(neverPersonalize))

	reply, err := r.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, curatedHello.Answer, reply)
}

func TestProcessMessage_NameThenKnowledge(t *testing.T) {
	k := &fakeKnowledge{entries: knowledge.Curated()}
	h := &fakeHistory{}
	r := newTestResponder(t, k, h, WithRandom(neverPersonalize))

	reply, err := r.ProcessMessage(context.Background(), "My name is Sam")
	require.NoError(t, err)
	require.Contains(t, reply, "Sam")
	require.Equal(t, "Sam", r.Session().UserName)
	require.Zero(t, k.searchCalls)

	reply, err = r.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, curatedHello.Answer, reply)
	require.Equal(t, 2, h.count())
}

func TestProcessMessage_EmptyInput(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{curatedHello}}
	h := &fakeHistory{}
	r := newTestResponder(t, k, h)

	for _, in := range []string{"", "   ", "\t\n"} {
		reply, err := r.ProcessMessage(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, clarificationReply, reply)
	}
	require.Zero(t, k.searchCalls)
	require.Equal(t, 3, h.count())
	require.Equal(t, "   ", h.turns[1].UserText)
}

func TestProcessMessage_NameOverwrite(t *testing.T) {
	r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{})

	_, err := r.ProcessMessage(context.Background(), "call me ann")
	require.NoError(t, err)
	require.Equal(t, "Ann", r.Session().UserName)

	reply, err := r.ProcessMessage(context.Background(), "Actually, I am bob")
	require.NoError(t, err)
	require.Equal(t, "Bob", r.Session().UserName)
	require.Equal(t, fmt.Sprintf(introductionReply, "Bob"), reply)
}

func TestProcessMessage_HighestConfidenceWins(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{
		{Trigger: "weather", Answer: "learned", Confidence: 0.8},
		{Trigger: "weather", Answer: "curated first", Confidence: 1.0},
		{Trigger: "weather", Answer: "curated second", Confidence: 1.0},
	}}
	r := newTestResponder(t, k, &fakeHistory{}, WithRandom(neverPersonalize))

	reply, err := r.ProcessMessage(context.Background(), "  Weather ")
	require.NoError(t, err)
	require.Equal(t, "curated first", reply)
	require.Equal(t, "weather", k.lastQuery)
}

func TestProcessMessage_MalformedConfidenceRanksAsZero(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{
		{Trigger: "tea", Answer: "nan", Confidence: math.NaN()},
		{Trigger: "tea", Answer: "negative", Confidence: -2},
		{Trigger: "tea", Answer: "", Confidence: 1},
		{Trigger: "tea", Answer: "low", Confidence: 0.1},
	}}
	r := newTestResponder(t, k, &fakeHistory{}, WithRandom(neverPersonalize))

	reply, err := r.ProcessMessage(context.Background(), "tea")
	require.NoError(t, err)
	require.Equal(t, "low", reply)
}

func TestProcessMessage_PersonalizesKnowledgeAnswer(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{curatedHello}}
	r := newTestResponder(t, k, &fakeHistory{}, WithRandom(scriptedRandom{float: 0.1}))

	reply, err := r.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, curatedHello.Answer, reply, "no name known yet")

	_, err = r.ProcessMessage(context.Background(), "my name is sam")
	require.NoError(t, err)

	reply, err = r.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, curatedHello.Answer+fmt.Sprintf(followUps[0], "Sam"), reply)
}

func TestProcessMessage_PersonalizerDisabled(t *testing.T) {
	k := &fakeKnowledge{entries: []domain.KnowledgeEntry{curatedHello}}
	r := newTestResponder(t, k, &fakeHistory{}, WithRandom(scriptedRandom{}), WithPersonalizer(nil))

	_, err := r.ProcessMessage(context.Background(), "my name is sam")
	require.NoError(t, err)
	reply, err := r.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, curatedHello.Answer, reply)
}

func TestProcessMessage_NamedGreetingVariants(t *testing.T) {
	r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{}, WithRandom(scriptedRandom{intn: 100}))

	_, err := r.ProcessMessage(context.Background(), "my name is sam")
	require.NoError(t, err)

	reply, err := r.ProcessMessage(context.Background(), "hey")
	require.NoError(t, err)
	require.Equal(t, "Hi Sam! Good to see you.", reply)

	reply, err = r.ProcessMessage(context.Background(), "goodbye")
	require.NoError(t, err)
	require.Equal(t, "See you soon, Sam!", reply)

	reply, err = r.ProcessMessage(context.Background(), "thanks")
	require.NoError(t, err)
	require.Equal(t, "Glad I could help!", reply)
}

func TestProcessMessage_CategoryReplies(t *testing.T) {
	cases := []struct {
		in     string
		intent domain.Intent
	}{
		{in: "is it late?", intent: domain.IntentQuestion},
		{in: "bye?", intent: domain.IntentQuestion},
		{in: "farewell friend", intent: domain.IntentFarewell},
		{in: "thank you", intent: domain.IntentGratitude},
		{in: "pizza is great", intent: domain.IntentGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{}, WithRandom(scriptedRandom{intn: 2}))
			reply, err := r.ProcessMessage(context.Background(), tc.in)
			require.NoError(t, err)
			require.NotEmpty(t, reply)
			require.Contains(t, candidates(tc.intent, ""), reply)
		})
	}
}

func TestProcessMessage_WindowKeepsTenMostRecent(t *testing.T) {
	h := &fakeHistory{}
	r := newTestResponder(t, &fakeKnowledge{}, h)

	const calls = 13
	for i := 1; i <= calls; i++ {
		_, err := r.ProcessMessage(context.Background(), fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	turns := r.Session().RecentTurns()
	require.Len(t, turns, RecentTurnLimit)
	for i, turn := range turns {
		require.Equal(t, fmt.Sprintf("message %d", calls-RecentTurnLimit+1+i), turn.UserText)
		require.Equal(t, r.Session().ID, turn.SessionID)
	}
	require.Equal(t, calls, h.count())
}

func TestProcessMessage_KnowledgeStoreError(t *testing.T) {
	h := &fakeHistory{}
	r := newTestResponder(t, &fakeKnowledge{searchErr: errors.New("db locked")}, h)

	reply, err := r.ProcessMessage(context.Background(), "hello")
	require.Empty(t, reply)
	expectError(t, err, ErrorKnowledgeStore, "knowledge_search_error")
	require.ErrorContains(t, err, "db locked")
	require.Zero(t, h.count())
	require.Empty(t, r.Session().RecentTurns())
}

func TestProcessMessage_HistoryError(t *testing.T) {
	r := newTestResponder(t, &fakeKnowledge{}, &fakeHistory{appendErr: errors.New("throttled")})

	reply, err := r.ProcessMessage(context.Background(), "hello")
	require.Empty(t, reply)
	expectError(t, err, ErrorHistory, "history_append_error")
	require.Empty(t, r.Session().RecentTurns())
}

func TestSuffixPersonalizer(t *testing.T) {
	p := SuffixPersonalizer(0.3)
	require.Equal(t, "a", p("a", "Sam", scriptedRandom{float: 0.3}))
	require.Equal(t, "a"+fmt.Sprintf(followUps[1], "Sam"), p("a", "Sam", scriptedRandom{intn: 1, float: 0.29}))
	require.Equal(t, "a", SuffixPersonalizer(0)("a", "Sam", scriptedRandom{}))
}
