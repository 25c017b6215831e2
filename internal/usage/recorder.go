// Package usage records per-request LLM usage for observability.
// Recording failures must never fail the request that produced them;
// callers log a warning and continue.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Entry is one usage record: a completion attempt against one provider.
type Entry struct {
	UserID       string
	Provider     string
	Model        string
	Kind         string // "completion" or "agent"
	InputTokens  int
	OutputTokens int
	ToolCalls    int
	Success      bool
	Error        string
	Timestamp    time.Time
}

// Recorder persists usage entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// LogRecorder writes usage entries to the structured log only.
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates a Recorder backed by zap.
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, entry Entry) error {
	r.logger.Info("llm usage",
		zap.String("user_id", entry.UserID),
		zap.String("provider", entry.Provider),
		zap.String("model", entry.Model),
		zap.String("kind", entry.Kind),
		zap.Int("input_tokens", entry.InputTokens),
		zap.Int("output_tokens", entry.OutputTokens),
		zap.Int("tool_calls", entry.ToolCalls),
		zap.Bool("success", entry.Success),
		zap.String("error", entry.Error))
	return nil
}

// SQLRecorder appends usage entries to a sqlite table.
type SQLRecorder struct {
	db *sql.DB
}

// NewSQLRecorder creates the usage table if missing.
func NewSQLRecorder(db *sql.DB) (*SQLRecorder, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS llm_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT,
		kind TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		tool_calls INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create usage table: %w", err)
	}
	return &SQLRecorder{db: db}, nil
}

func (r *SQLRecorder) Record(ctx context.Context, entry Entry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO llm_usage (user_id, provider, model, kind, input_tokens, output_tokens, tool_calls, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Provider, entry.Model, entry.Kind,
		entry.InputTokens, entry.OutputTokens, entry.ToolCalls,
		entry.Success, entry.Error, ts)
	if err != nil {
		return fmt.Errorf("insert usage entry: %w", err)
	}
	return nil
}
