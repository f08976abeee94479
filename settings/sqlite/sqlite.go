// Package sqlite implements a settings.Store backed by a local SQLite
// database, the durable storage used by the zone filter daemon.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/zones"
)

// Store persists settings in a SQLite database file. Rows hold the JSON
// encoding of their value, so schema migrations are only needed when the
// keying changes, not when the value types grow fields.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at path, creating it and its schema as needed.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open settings database")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifier_configs (
			id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			preset TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, errors.Wrap(err, "create settings schema")
	}

	return &Store{db}, nil
}

// NotifierConfig loads the stored configuration for a notifier.
func (s *Store) NotifierConfig(ctx context.Context, id string) (*zones.NotifierConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT config FROM notifier_configs WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load notifier config %q", id)
	}

	var cfg zones.NotifierConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode notifier config %q", id)
	}
	return &cfg, nil
}

// SaveNotifierConfig stores the configuration for a notifier.
func (s *Store) SaveNotifierConfig(ctx context.Context, id string, cfg *zones.NotifierConfig) error {
	if id == "" {
		return errors.New("notifier id required")
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrapf(err, "encode notifier config %q", id)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifier_configs (id, config, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config, updated_at = CURRENT_TIMESTAMP
	`, id, string(raw))
	return errors.Wrapf(err, "save notifier config %q", id)
}

// Presets loads every stored preset, ordered by ID.
func (s *Store) Presets(ctx context.Context) ([]*zones.Preset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, preset FROM presets ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "load presets")
	}
	defer func() {
		utils.UncheckedError(rows.Close())
	}()

	var out []*zones.Preset
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "scan preset row")
		}
		var preset zones.Preset
		if err := json.Unmarshal([]byte(raw), &preset); err != nil {
			return nil, errors.Wrapf(err, "decode preset %q", id)
		}
		out = append(out, &preset)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate presets")
	}
	return out, nil
}

// SavePreset stores a preset keyed by its ID.
func (s *Store) SavePreset(ctx context.Context, preset *zones.Preset) error {
	if preset == nil || preset.ID == "" {
		return errors.New("preset id required")
	}
	raw, err := json.Marshal(preset)
	if err != nil {
		return errors.Wrapf(err, "encode preset %q", preset.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presets (id, preset, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET preset = excluded.preset, updated_at = CURRENT_TIMESTAMP
	`, preset.ID, string(raw))
	return errors.Wrapf(err, "save preset %q", preset.ID)
}

// DeletePreset removes a preset.
func (s *Store) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "delete preset %q", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete preset %q", id)
	}
	if n == 0 {
		return settings.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
