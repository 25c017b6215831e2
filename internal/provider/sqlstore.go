package provider

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore persists provider configurations in sqlite. The completion
// path only reads; writes come from the management commands.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the config table if missing.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS provider_configs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		encrypted_key TEXT,
		model TEXT NOT NULL,
		base_url TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("create provider_configs table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// ActiveConfigs returns the user's active configs ordered by ascending
// priority, ties broken by creation order.
func (s *SQLStore) ActiveConfigs(ctx context.Context, userID string) ([]Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, COALESCE(encrypted_key, ''), model, COALESCE(base_url, ''), priority, is_active, created_at
		FROM provider_configs
		WHERE user_id = ? AND is_active = 1
		ORDER BY priority ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query provider configs: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		var cfg Config
		var kind string
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &kind, &cfg.EncryptedKey, &cfg.Model, &cfg.BaseURL, &cfg.Priority, &cfg.IsActive, &cfg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		cfg.Kind = Kind(kind)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// AllConfigs returns every config for the user, active or not, for the
// management listing.
func (s *SQLStore) AllConfigs(ctx context.Context, userID string) ([]Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, COALESCE(encrypted_key, ''), model, COALESCE(base_url, ''), priority, is_active, created_at
		FROM provider_configs
		WHERE user_id = ?
		ORDER BY priority ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query provider configs: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		var cfg Config
		var kind string
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &kind, &cfg.EncryptedKey, &cfg.Model, &cfg.BaseURL, &cfg.Priority, &cfg.IsActive, &cfg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		cfg.Kind = Kind(kind)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Insert stores a new config.
func (s *SQLStore) Insert(ctx context.Context, cfg Config) error {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_configs (id, user_id, kind, encrypted_key, model, base_url, priority, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.UserID, string(cfg.Kind), cfg.EncryptedKey, cfg.Model, cfg.BaseURL, cfg.Priority, cfg.IsActive, cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert provider config: %w", err)
	}
	return nil
}

// Deactivate removes a config from the fallback chain without deleting
// its row.
func (s *SQLStore) Deactivate(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET is_active = 0 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deactivate provider config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("provider config %q not found", id)
	}
	return nil
}
