// Package index provides filtered vector similarity search over Postgres
// with the pgvector extension. Each knowledge domain gets its own table of
// (id, embedding, metadata) rows; queries combine nearest-neighbor ordering
// with exact-match metadata predicates.
package index

import "context"

// Condition constrains one metadata attribute. Exactly one of Eq or In is
// set; use the constructors.
type Condition struct {
	Eq string
	In []string
}

// Eq matches rows whose attribute equals value.
func Eq(value string) Condition {
	return Condition{Eq: value}
}

// In matches rows whose attribute equals any of the given values.
func In(values ...string) Condition {
	return Condition{In: values}
}

// Filter maps metadata attribute names to conditions. All conditions must
// hold (AND semantics). A nil or empty filter matches everything.
type Filter map[string]Condition

// Record is one indexed document.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]any
}

// Match is a query hit. Score is the embedding distance to the query vector,
// lower is closer.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Index is a vector index over one knowledge domain.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error)
}
