package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chat-responder/internal/domain"
)

// HistoryLog is the history table.
type HistoryLog struct {
	db  *sql.DB
	now func() time.Time
}

func (d *DB) History() *HistoryLog {
	return &HistoryLog{db: d.db, now: time.Now}
}

func (l *HistoryLog) Append(ctx context.Context, sessionID, userText, botText string) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO history (session_id, user_text, bot_text, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, userText, botText, l.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: Append: %w", err)
	}
	return nil
}

// Query returns up to limit turns, newest first by append order. An empty
// sessionID spans all sessions.
func (l *HistoryLog) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = l.db.QueryContext(ctx, `SELECT session_id, user_text, bot_text, created_at FROM history
ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = l.db.QueryContext(ctx, `SELECT session_id, user_text, bot_text, created_at FROM history
WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: Query: %w", err)
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		var (
			t       domain.Turn
			created int64
		)
		if err := rows.Scan(&t.SessionID, &t.UserText, &t.BotText, &created); err != nil {
			return nil, fmt.Errorf("sqlite: Query scan: %w", err)
		}
		t.Timestamp = time.Unix(0, created).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: Query rows: %w", err)
	}
	return turns, nil
}
