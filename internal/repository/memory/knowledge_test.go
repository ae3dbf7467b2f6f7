package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

func TestSeed_Idempotent(t *testing.T) {
	s := NewKnowledgeStore(nil)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))
	first, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(knowledge.Curated()))

	require.NoError(t, s.Seed(ctx))
	second, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSeed_DoesNotDeduplicateUserEntries(t *testing.T) {
	s := NewKnowledgeStore(nil)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))
	require.NoError(t, s.Add(ctx, "Hello", "Hi yourself.", "custom"))
	require.NoError(t, s.Seed(ctx))

	matches, err := s.Search(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Hello! How can I help you today?", matches[0].Answer)
	require.Equal(t, domain.KnowledgeEntry{Trigger: "hello", Answer: "Hi yourself.", Category: "custom", Confidence: 0.8}, matches[1])

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(knowledge.Curated())+1)
}

func TestSeed_SameTriggerDifferentAnswerIsKept(t *testing.T) {
	s := NewKnowledgeStore([]domain.KnowledgeEntry{
		{Trigger: "x", Answer: "one", Confidence: 1},
		{Trigger: "X", Answer: "two", Confidence: 1},
		{Trigger: "x", Answer: "one", Confidence: 1},
	})
	require.NoError(t, s.Seed(context.Background()))
	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSearch_RanksByConfidenceThenInsertion(t *testing.T) {
	s := NewKnowledgeStore([]domain.KnowledgeEntry{{Trigger: "pets", Answer: "I like cats.", Confidence: 1}})
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "pets", "Dogs are great.", "user"))
	require.NoError(t, s.Seed(ctx))
	require.NoError(t, s.Add(ctx, "pets", "Fish too.", "user"))

	matches, err := s.Search(ctx, "PETS")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "I like cats.", matches[0].Answer)
	require.Equal(t, "Dogs are great.", matches[1].Answer)
	require.Equal(t, "Fish too.", matches[2].Answer)
}

func TestSearch_MatchesAnswerText(t *testing.T) {
	s := NewKnowledgeStore(nil)
	require.NoError(t, s.Seed(context.Background()))

	matches, err := s.Search(context.Background(), "sleep well")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "good night", matches[0].Trigger)

	matches, err = s.Search(context.Background(), "no such text anywhere")
	require.NoError(t, err)
	require.Empty(t, matches)
}
