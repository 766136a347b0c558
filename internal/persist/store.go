// Package persist stores conversations and drafts in SQLite so sessions
// survive restarts.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhisek/stepwise/internal/transcript"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the database location: STEPWISE_DB when set,
// otherwise the stepwise directory under the user config dir.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("STEPWISE_DB"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "stepwise", "stepwise.db"), nil
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency between the UI and the syncer.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		turns_json TEXT NOT NULL,
		solution_json TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		progress INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);

	CREATE TABLE IF NOT EXISTS drafts (
		conversation_id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// LoadConversations returns all stored conversations in creation order.
func (s *Store) LoadConversations(ctx context.Context) ([]*transcript.Conversation, error) {
	query := `
		SELECT id, turns_json, solution_json, reasoning, progress, completed, created_at, updated_at
		FROM conversations ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []*transcript.Conversation
	for rows.Next() {
		var (
			conv                 transcript.Conversation
			turnsJSON, solJSON   string
			completed            int
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&conv.ID, &turnsJSON, &solJSON, &conv.ModelReasoning,
			&conv.Progress, &completed, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		if err := json.Unmarshal([]byte(turnsJSON), &conv.Turns); err != nil {
			return nil, fmt.Errorf("decode turns for %s: %w", conv.ID, err)
		}
		if err := json.Unmarshal([]byte(solJSON), &conv.ModelSolution); err != nil {
			return nil, fmt.Errorf("decode solution for %s: %w", conv.ID, err)
		}
		conv.Completed = completed != 0
		conv.CreatedAt = time.Unix(createdAt, 0)
		conv.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

// SaveConversation creates or updates a conversation record.
func (s *Store) SaveConversation(ctx context.Context, conv *transcript.Conversation) error {
	turnsJSON, err := json.Marshal(conv.Turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	solJSON, err := json.Marshal(conv.ModelSolution)
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}

	query := `
	INSERT INTO conversations (id, turns_json, solution_json, reasoning, progress, completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		turns_json = excluded.turns_json,
		solution_json = excluded.solution_json,
		reasoning = excluded.reasoning,
		progress = excluded.progress,
		completed = excluded.completed,
		updated_at = excluded.updated_at`

	completed := 0
	if conv.Completed {
		completed = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		conv.ID, string(turnsJSON), string(solJSON), conv.ModelReasoning,
		conv.Progress, completed, conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation and its draft.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// PruneConversations deletes every stored conversation whose id is not in
// keep. The syncer uses it to mirror in-memory deletions.
func (s *Store) PruneConversations(ctx context.Context, keep []string) error {
	if len(keep) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
			return fmt.Errorf("prune conversations: %w", err)
		}
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM conversations WHERE id NOT IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune conversations: %w", err)
	}
	return nil
}

// Draft returns the saved draft for a conversation, or "" when none exists.
func (s *Store) Draft(ctx context.Context, conversationID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content FROM drafts WHERE conversation_id = ?`, conversationID)

	var content string
	err := row.Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan draft: %w", err)
	}
	return content, nil
}

// SetDraft saves the draft for a conversation. An empty draft deletes the
// row instead of storing blank content.
func (s *Store) SetDraft(ctx context.Context, conversationID, content string) error {
	if content == "" {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM drafts WHERE conversation_id = ?`, conversationID); err != nil {
			return fmt.Errorf("clear draft: %w", err)
		}
		return nil
	}

	query := `
	INSERT INTO drafts (conversation_id, content, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(conversation_id) DO UPDATE SET
		content = excluded.content,
		updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, conversationID, content, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// Drafts returns all saved drafts keyed by conversation id.
func (s *Store) Drafts(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conversation_id, content FROM drafts`)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}
		out[id] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return out, nil
}
