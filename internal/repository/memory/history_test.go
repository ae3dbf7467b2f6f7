package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryLog_QueryNewestFirst(t *testing.T) {
	l := NewHistoryLog()
	base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	n := 0
	l.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		session := "a"
		if i%2 == 1 {
			session = "b"
		}
		require.NoError(t, l.Append(ctx, session, fmt.Sprintf("u%d", i), fmt.Sprintf("b%d", i)))
	}
	require.Equal(t, 5, l.Len())

	all, err := l.Query(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "u4", all[0].UserText)
	require.Equal(t, "u2", all[2].UserText)
	require.True(t, all[0].Timestamp.After(all[1].Timestamp))

	onlyA, err := l.Query(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 3)
	require.Equal(t, "u4", onlyA[0].UserText)
	require.Equal(t, "u0", onlyA[2].UserText)

	none, err := l.Query(ctx, "a", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}
