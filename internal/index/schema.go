package index

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the pgvector extension, the domain table and its HNSW
// index when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, table string, dimensions int) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id text PRIMARY KEY,
				embedding vector(%d) NOT NULL,
				metadata jsonb NOT NULL DEFAULT '{}'::jsonb
			)
		`, table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_l2_ops) WITH (m = 24, ef_construction = 256)`, table, table),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema for %s: %w", table, err)
		}
	}
	return nil
}

// EnsureEmbeddingDimensions checks whether the embedding vector column matches
// the target dimension count. When they differ it truncates stale data, alters
// the column type, and rebuilds the HNSW index.
// Returns true when a migration was performed.
func EnsureEmbeddingDimensions(ctx context.Context, db *sql.DB, table string, target int) (bool, error) {
	if !tableNamePattern.MatchString(table) {
		return false, fmt.Errorf("invalid table name %q", table)
	}
	if target <= 0 {
		return false, fmt.Errorf("invalid embedding dimensions: %d", target)
	}

	// pgvector stores the dimension count in atttypmod for vector(N) columns.
	var current int
	err := db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = '%s'::regclass
		  AND attname = 'embedding'
	`, table)).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("query current embedding dimensions: %w", err)
	}

	if current == target {
		return false, nil
	}

	// Dimensions changed: old embeddings are from a different model and
	// cannot be meaningfully searched, so truncate before altering.
	stmts := []string{
		fmt.Sprintf(`DROP INDEX IF EXISTS %s_embedding_idx`, table),
		fmt.Sprintf(`TRUNCATE %s`, table),
		fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d)`, table, target),
		fmt.Sprintf(`CREATE INDEX %s_embedding_idx ON %s USING hnsw (embedding vector_l2_ops) WITH (m = 24, ef_construction = 256)`, table, table),
	}
	for _, stmt := range stmts {
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			return false, fmt.Errorf("migrate embedding dimensions (%d to %d): %w", current, target, execErr)
		}
	}

	return true, nil
}
