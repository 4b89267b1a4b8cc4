package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGIndex is a pgvector-backed Index over a single table.
type PGIndex struct {
	db    *sql.DB
	table string
}

// NewPGIndex creates an index over the named table. The table name is
// interpolated into SQL, so it is restricted to a safe identifier pattern.
func NewPGIndex(db *sql.DB, table string) (*PGIndex, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PGIndex{db: db, table: table}, nil
}

func (s *PGIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if record.ID == "" {
			return errors.New("record id is required")
		}
		if len(record.Embedding) == 0 {
			return fmt.Errorf("record %s: embedding is required", record.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`, s.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		metadataBytes, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", record.ID, err)
		}
		if _, err := stmt.ExecContext(
			ctx,
			record.ID,
			pgvector.NewVector(record.Embedding),
			metadataBytes,
		); err != nil {
			return fmt.Errorf("upsert record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PGIndex) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, errors.New("embedding is required")
	}
	if topK <= 0 {
		topK = 3
	}

	where, args := compileFilter(filter, 3)
	args = append([]any{pgvector.NewVector(embedding), topK}, args...)

	query := fmt.Sprintf(`
		SELECT id,
			metadata,
			embedding <-> $1 AS distance
		FROM %s
		%s
		ORDER BY embedding <-> $1
		LIMIT $2
	`, s.table, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		var metadataBytes []byte
		if err := rows.Scan(&match.ID, &metadataBytes, &match.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &match.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// compileFilter turns a Filter into a WHERE clause over the jsonb metadata
// column. Placeholders start at firstArg. Keys are iterated in sorted order
// so the generated SQL is deterministic.
func compileFilter(filter Filter, firstArg int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	arg := firstArg
	for _, key := range keys {
		cond := filter[key]
		switch {
		case len(cond.In) > 0:
			clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = ANY($%d)", escapeKey(key), arg))
			args = append(args, pq.Array(cond.In))
			arg++
		default:
			clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = $%d", escapeKey(key), arg))
			args = append(args, cond.Eq)
			arg++
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func escapeKey(key string) string {
	return strings.ReplaceAll(key, "'", "''")
}
