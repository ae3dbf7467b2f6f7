package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chat-responder/internal/domain"
	"chat-responder/internal/knowledge"
)

// KnowledgeStore is the knowledge table.
type KnowledgeStore struct {
	db   *sql.DB
	seed []domain.KnowledgeEntry
}

// Knowledge returns the store; Seed inserts seed, or the curated set when
// seed is empty.
func (d *DB) Knowledge(seed []domain.KnowledgeEntry) *KnowledgeStore {
	if len(seed) == 0 {
		seed = knowledge.Curated()
	}
	return &KnowledgeStore{db: d.db, seed: seed}
}

// Seed inserts every seed entry whose (trigger, answer) pair is absent, in
// one transaction.
func (s *KnowledgeStore) Seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: Seed begin: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO knowledge (trigger_phrase, answer, category, confidence)
SELECT ?, ?, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM knowledge WHERE trigger_phrase = ? AND answer = ?)`
	for _, e := range s.seed {
		e = knowledge.Normalize(e)
		if _, err := tx.ExecContext(ctx, insert, e.Trigger, e.Answer, e.Category, e.Confidence, e.Trigger, e.Answer); err != nil {
			return fmt.Errorf("sqlite: Seed insert %q: %w", e.Trigger, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: Seed commit: %w", err)
	}
	return nil
}

// Search matches query against trigger and answer. SQLite's lower() folds
// ASCII only, so matching happens in Go over every row.
func (s *KnowledgeStore) Search(ctx context.Context, query string) ([]domain.KnowledgeEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: Search: %w", err)
	}
	matched := entries[:0]
	for _, e := range entries {
		if knowledge.Matches(e, query) {
			matched = append(matched, e)
		}
	}
	return knowledge.Rank(matched), nil
}

func (s *KnowledgeStore) Add(ctx context.Context, trigger, answer, category string) error {
	e := knowledge.Normalize(domain.KnowledgeEntry{Trigger: trigger, Answer: answer, Category: category})
	_, err := s.db.ExecContext(ctx, `INSERT INTO knowledge (trigger_phrase, answer, category, confidence) VALUES (?, ?, ?, ?)`,
		e.Trigger, e.Answer, e.Category, domain.LearnedConfidence)
	if err != nil {
		return fmt.Errorf("sqlite: Add: %w", err)
	}
	return nil
}

func (s *KnowledgeStore) List(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trigger_phrase, answer, category, confidence FROM knowledge ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: List query: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: List: %w", err)
	}
	return entries, nil
}

// scanEntries reads and closes rows. A NULL confidence reads as 0.
func scanEntries(rows *sql.Rows) ([]domain.KnowledgeEntry, error) {
	defer rows.Close()

	var entries []domain.KnowledgeEntry
	for rows.Next() {
		var (
			e          domain.KnowledgeEntry
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&e.Trigger, &e.Answer, &e.Category, &confidence); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Confidence = confidence.Float64
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}
