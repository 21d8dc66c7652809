package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps the cursor in the bot_cursor table, one row per bot key.
type PostgresStore struct {
	db  *sqlx.DB
	key string
}

// NewPostgresStore returns a store for the row identified by key.
func NewPostgresStore(db *sqlx.DB, key string) *PostgresStore {
	return &PostgresStore{db: db, key: key}
}

// Load returns the stored cursor or nil when the row is missing or null.
func (s *PostgresStore) Load(ctx context.Context) (*string, error) {
	var cur sql.NullString
	err := s.db.GetContext(ctx, &cur, `SELECT cursor FROM bot_cursor WHERE bot_id = $1`, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	if !cur.Valid || cur.String == "" {
		return nil, nil
	}
	return &cur.String, nil
}

// Save upserts the row in a single statement.
func (s *PostgresStore) Save(ctx context.Context, cursor string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO bot_cursor (bot_id, cursor, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (bot_id) DO UPDATE SET cursor = EXCLUDED.cursor, updated_at = EXCLUDED.updated_at`,
		s.key, cursor)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
