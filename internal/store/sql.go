package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

// phraseRow is the database shape of a phrases.Rule.
type phraseRow struct {
	ID          string `db:"id"`
	Original    string `db:"original"`
	OriginalKey string `db:"original_key"`
	Simplified  string `db:"simplified"`
	Category    string `db:"category"`
	CreatedAt   int64  `db:"created_at"`
}

func toRow(r phrases.Rule) phraseRow {
	return phraseRow{
		ID:          r.ID,
		Original:    r.Original,
		OriginalKey: r.Key(),
		Simplified:  r.Simplified,
		Category:    string(r.Category),
		CreatedAt:   r.CreatedAt.UnixNano(),
	}
}

func (row phraseRow) rule() phrases.Rule {
	return phrases.Rule{
		ID:         row.ID,
		Original:   row.Original,
		Simplified: row.Simplified,
		Category:   phrases.Category(row.Category),
		CreatedAt:  time.Unix(0, row.CreatedAt).UTC(),
	}
}

// OpenSQL opens a SQL store and applies the schema.
func OpenSQL(cfg Config) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Type {
	case TypeSQLite:
		db, err = openSQLite(cfg.Path)
	case TypePostgres:
		db, err = openPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	driver := "sqlite"
	if cfg.Type == TypePostgres {
		driver = "postgres"
	}
	s := &SQLStore{db: sqlx.NewDb(db, driver)}

	if _, err := s.db.Exec(schemaPhrases); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// ListRules returns every rule ordered by creation time.
func (s *SQLStore) ListRules(ctx context.Context) ([]phrases.Rule, error) {
	var rows []phraseRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, original, original_key, simplified, category, created_at FROM phrases ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query phrases: %w", err)
	}

	out := make([]phrases.Rule, len(rows))
	for i, row := range rows {
		out[i] = row.rule()
	}
	return out, nil
}

// CreateRule inserts a rule. The unique index on original_key turns
// duplicates into phrases.ErrDuplicateRule.
func (s *SQLStore) CreateRule(ctx context.Context, rule phrases.Rule) (phrases.Rule, error) {
	if _, err := s.db.NamedExecContext(ctx, insertPhrase, toRow(rule)); err != nil {
		if isUniqueViolation(err) {
			return phrases.Rule{}, phrases.ErrDuplicateRule
		}
		return phrases.Rule{}, fmt.Errorf("failed to insert phrase: %w", err)
	}
	return rule, nil
}

// DeleteRule removes a rule by ID.
func (s *SQLStore) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM phrases WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	if n == 0 {
		return phrases.ErrNotFound
	}
	return nil
}

// ReplaceRules deletes every rule and inserts rules in one transaction.
func (s *SQLStore) ReplaceRules(ctx context.Context, rules []phrases.Rule) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM phrases`); err != nil {
		return fmt.Errorf("failed to clear phrases: %w", err)
	}
	for _, r := range rules {
		if _, err := tx.NamedExecContext(ctx, insertPhrase, toRow(r)); err != nil {
			if isUniqueViolation(err) {
				return phrases.ErrDuplicateRule
			}
			return fmt.Errorf("failed to insert phrase: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation recognises unique-constraint errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	// Primary result codes only carry SQLITE_CONSTRAINT; fall back to the message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
