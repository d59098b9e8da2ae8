package library

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/datascry/scry/internal/matcher"
	"github.com/datascry/scry/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store persists the template library and recorded match decisions.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Decision is one recorded match outcome.
type Decision struct {
	ID           string
	Dataset      string
	ObservedKey  string
	TemplateKey  string
	Confidence   matcher.Confidence
	OverlapCount int
	CreatedAt    string
}

// OpenStore creates or opens a SQLite library database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// repeatedly.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open library store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect library store: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply library schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveLibrary replaces the stored template set with the given library,
// preserving declaration order through the position column.
func (s *Store) SaveLibrary(ctx context.Context, lib *model.Library) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	defer tx.Rollback()

	// The replace is delete-then-insert; deferring FK checks to commit lets
	// recorded decisions keep referencing templates that survive the sync.
	if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM templates`); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	for i, tpl := range lib.Templates {
		itemsJSON, err := json.Marshal(tpl.Items)
		if err != nil {
			return fmt.Errorf("save template %q: %w", tpl.Key, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO templates (key, position, name, citation, license, items)
			VALUES (?, ?, ?, ?, ?, ?)
		`, tpl.Key, i, tpl.Name, tpl.Citation, tpl.License, string(itemsJSON))
		if err != nil {
			return fmt.Errorf("save template %q: %w", tpl.Key, err)
		}
	}

	return tx.Commit()
}

// LoadLibrary reads the stored template set in declaration order.
func (s *Store) LoadLibrary(ctx context.Context) (*model.Library, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, citation, license, items
		FROM templates
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	defer rows.Close()

	lib := &model.Library{}
	for rows.Next() {
		var tpl model.Template
		var itemsJSON string
		if err := rows.Scan(&tpl.Key, &tpl.Name, &tpl.Citation, &tpl.License, &itemsJSON); err != nil {
			return nil, fmt.Errorf("load library: %w", err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &tpl.Items); err != nil {
			return nil, fmt.Errorf("load template %q: %w", tpl.Key, err)
		}
		lib.Templates = append(lib.Templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	return lib, nil
}

// RecordDecision stores one match outcome and returns its generated id.
func (s *Store) RecordDecision(ctx context.Context, dataset, observedKey string, result *matcher.MatchResult) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, dataset, observed_key, template_key, confidence, overlap_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, dataset, observedKey, result.TemplateKey, string(result.Confidence), result.OverlapCount,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("record decision: %w", err)
	}
	return id, nil
}

// ListDecisions returns the recorded decisions for a dataset, ordered by
// observed key then id for stable output.
func (s *Store) ListDecisions(ctx context.Context, dataset string) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, observed_key, template_key, confidence, overlap_count, created_at
		FROM decisions
		WHERE dataset = ?
		ORDER BY observed_key ASC, id ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		var conf string
		if err := rows.Scan(&d.ID, &d.Dataset, &d.ObservedKey, &d.TemplateKey, &conf, &d.OverlapCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("list decisions: %w", err)
		}
		d.Confidence = matcher.Confidence(conf)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	return decisions, nil
}
