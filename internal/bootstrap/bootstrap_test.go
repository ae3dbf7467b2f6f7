package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"chat-responder/internal/config"
	"chat-responder/internal/usecase"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noAWS(context.Context) (aws.Config, error) {
	return aws.Config{}, errors.New("no credentials")
}

func TestOpen_MemoryBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Responder.PersonalizeRate = 0

	app, err := open(context.Background(), &cfg, quietLogger(), noAWS)
	require.NoError(t, err)
	defer app.Close()

	out, err := app.Service.Chat(context.Background(), usecase.ChatInput{Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, "Hello! How can I help you today?", out.Reply)

	turns, err := app.Service.History(context.Background(), usecase.HistoryInput{SessionID: out.SessionID})
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestOpen_SQLiteSharesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	cfg := config.Default()
	cfg.Knowledge = config.Knowledge{Backend: config.BackendSQLite, SQLitePath: path}
	cfg.History = config.History{Backend: config.BackendSQLite, SQLitePath: path}

	app, err := open(context.Background(), &cfg, quietLogger(), noAWS)
	require.NoError(t, err)
	require.Len(t, app.closers, 1)

	_, err = app.Service.Teach(context.Background(), usecase.TeachInput{Trigger: "color", Answer: "Blue."})
	require.NoError(t, err)
	require.NoError(t, app.Close())

	// Reopening reseeds without duplicating and keeps the taught entry.
	app, err = open(context.Background(), &cfg, quietLogger(), noAWS)
	require.NoError(t, err)
	defer app.Close()
	entries, err := app.Service.Knowledge(context.Background())
	require.NoError(t, err)
	require.Equal(t, "color", entries[len(entries)-1].Trigger)

	out, err := app.Service.Chat(context.Background(), usecase.ChatInput{Message: "Color"})
	require.NoError(t, err)
	require.Contains(t, out.Reply, "Blue.")
}

func TestOpen_DynamoDBHistory(t *testing.T) {
	cfg := config.Default()
	cfg.History = config.History{Backend: config.BackendDynamoDB, Table: "chat-history", TTLDays: 7}

	calls := 0
	app, err := open(context.Background(), &cfg, quietLogger(), func(context.Context) (aws.Config, error) {
		calls++
		return aws.Config{Region: "eu-west-1"}, nil
	})
	require.NoError(t, err)
	defer app.Close()
	require.Equal(t, 1, calls)
}

func TestOpen_AWSFailures(t *testing.T) {
	cfg := config.Default()
	cfg.History = config.History{Backend: config.BackendDynamoDB, Table: "chat-history"}
	_, err := open(context.Background(), &cfg, quietLogger(), noAWS)
	require.ErrorContains(t, err, "load AWS config")

	cfg = config.Default()
	cfg.Knowledge.ParamPrefix = "/chat"
	_, err = open(context.Background(), &cfg, quietLogger(), noAWS)
	require.ErrorContains(t, err, "no credentials")
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil, nil)
	require.Error(t, err)
}
