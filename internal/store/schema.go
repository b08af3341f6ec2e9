package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_phone_idx
	ON documents ((data ->> 'phone'))
	WHERE collection = 'users';
CREATE INDEX IF NOT EXISTS documents_fingerprint_idx
	ON documents ((data ->> 'deviceFingerprint'))
	WHERE collection = 'deviceSessions';
`

// EnsureSchema creates the documents table and its expression indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
