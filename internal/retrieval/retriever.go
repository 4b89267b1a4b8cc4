package retrieval

import (
	"context"
	"fmt"

	"github.com/partdeck/partdeck/internal/index"
	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

const (
	DefaultPartsTopK   = 3
	DefaultRepairsTopK = 3
	DefaultSupportTopK = 2

	// Symptom queries need a wider net since the symptom predicate is an
	// exact match against free text and rarely narrows cleanly.
	symptomSearchMinTopK = 5
)

// Retriever answers natural-language queries against one knowledge domain.
// Filtered search runs first when the query yields predicates; any filtered
// hit wins over unfiltered ranking. Zero matches is not an error.
type Retriever struct {
	index    index.Index
	embedder llm.EmbeddingClient
	logger   logging.Logger

	topK    int
	extract func(string) index.Filter
	widen   bool
	render  func(index.Match) string
	empty   string
}

// NewPartsRetriever builds the retriever for the parts catalog.
func NewPartsRetriever(idx index.Index, embedder llm.EmbeddingClient, topK int, logger logging.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultPartsTopK
	}
	return &Retriever{
		index:    idx,
		embedder: embedder,
		logger:   logger,
		topK:     topK,
		extract:  PartsFilter,
		widen:    true,
		render:   formatPartMatch,
		empty:    "No matching parts found.",
	}
}

// NewRepairsRetriever builds the retriever for the repairs playbook.
func NewRepairsRetriever(idx index.Index, embedder llm.EmbeddingClient, topK int, logger logging.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultRepairsTopK
	}
	return &Retriever{
		index:    idx,
		embedder: embedder,
		logger:   logger,
		topK:     topK,
		extract:  RepairsFilter,
		render:   formatRepairMatch,
		empty:    "No matching parts found.",
	}
}

// NewSupportRetriever builds the retriever for support policies. Support
// queries are purely semantic, no filter extraction.
func NewSupportRetriever(idx index.Index, embedder llm.EmbeddingClient, topK int, logger logging.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultSupportTopK
	}
	return &Retriever{
		index:    idx,
		embedder: embedder,
		logger:   logger,
		topK:     topK,
		render:   formatPolicyMatch,
		empty:    "No matching information found.",
	}
}

// Search embeds the query, runs filtered-then-fallback retrieval and returns
// the formatted result text.
func (r *Retriever) Search(ctx context.Context, query string) (string, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("embed query: no vector returned")
	}
	embedding := vectors[0]

	var filter index.Filter
	if r.extract != nil {
		filter = r.extract(query)
	}

	topK := r.topK
	if r.widen && len(filter) > 0 {
		if _, ok := filter["symptoms"]; ok && topK < symptomSearchMinTopK {
			topK = symptomSearchMinTopK
		}
	}

	if len(filter) > 0 {
		matches, err := r.index.Query(ctx, embedding, topK, filter)
		if err != nil {
			return "", fmt.Errorf("filtered query: %w", err)
		}
		if len(matches) > 0 {
			if r.logger != nil {
				r.logger.WithFields(logging.Fields{
					"matches": len(matches),
					"filters": len(filter),
				}).Debug("Filtered search hit")
			}
			return r.formatMatches(matches), nil
		}
		if r.logger != nil {
			r.logger.Debug("No filtered matches, falling back to semantic search")
		}
	}

	matches, err := r.index.Query(ctx, embedding, topK, nil)
	if err != nil {
		return "", fmt.Errorf("semantic query: %w", err)
	}
	return r.formatMatches(matches), nil
}

func (r *Retriever) formatMatches(matches []index.Match) string {
	if len(matches) == 0 {
		return r.empty
	}
	blocks := make([]string, 0, len(matches))
	for _, match := range matches {
		blocks = append(blocks, r.render(match))
	}
	return joinBlocks(blocks)
}
