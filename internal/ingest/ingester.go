package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/partdeck/partdeck/internal/index"
	"github.com/partdeck/partdeck/internal/retrieval"
	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

const defaultBatchSize = 100

type document struct {
	id       string
	text     string
	metadata map[string]any
}

// Ingester embeds documents and writes them to one vector index. Failed
// batches fall back to per-record upserts so one bad row cannot sink a whole
// batch.
type Ingester struct {
	index     index.Index
	embedder  llm.EmbeddingClient
	logger    logging.Logger
	batchSize int
}

func NewIngester(idx index.Index, embedder llm.EmbeddingClient, logger logging.Logger) *Ingester {
	return &Ingester{
		index:     idx,
		embedder:  embedder,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// IngestParts embeds and stores the parts catalog. Record ids are row
// positions, matching repeat runs for idempotent upserts.
func (g *Ingester) IngestParts(ctx context.Context, parts []retrieval.Part) error {
	docs := make([]document, 0, len(parts))
	for i, part := range parts {
		docs = append(docs, document{
			id:       strconv.Itoa(i),
			text:     part.SearchableText(),
			metadata: part.Metadata(),
		})
	}
	return g.ingest(ctx, docs)
}

// IngestRepairs embeds and stores the repair playbook.
func (g *Ingester) IngestRepairs(ctx context.Context, repairs []retrieval.RepairCase) error {
	docs := make([]document, 0, len(repairs))
	for i, repair := range repairs {
		docs = append(docs, document{
			id:       strconv.Itoa(i),
			text:     repair.SearchableText(),
			metadata: repair.Metadata(),
		})
	}
	return g.ingest(ctx, docs)
}

// IngestSupport embeds and stores the support policies. Policy ids derive
// from titles so edited policies overwrite in place.
func (g *Ingester) IngestSupport(ctx context.Context, policies []retrieval.PolicySection) error {
	docs := make([]document, 0, len(policies))
	for _, policy := range policies {
		docs = append(docs, document{
			id:       policy.ID(),
			text:     policy.SearchableText(),
			metadata: policy.Metadata(),
		})
	}
	return g.ingest(ctx, docs)
}

func (g *Ingester) ingest(ctx context.Context, docs []document) error {
	for start := 0; start < len(docs); start += g.batchSize {
		end := start + g.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, 0, len(batch))
		for _, doc := range batch {
			texts = append(texts, doc.text)
		}
		vectors, err := g.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch at %d: got %d vectors for %d documents", start, len(vectors), len(batch))
		}

		records := make([]index.Record, 0, len(batch))
		for i, doc := range batch {
			records = append(records, index.Record{
				ID:        doc.id,
				Embedding: vectors[i],
				Metadata:  doc.metadata,
			})
		}

		if err := g.index.Upsert(ctx, records); err != nil {
			g.logger.WithError(err).WithField("batch_start", start).Warn("Batch upsert failed, retrying records individually")
			for _, record := range records {
				if err := g.index.Upsert(ctx, []index.Record{record}); err != nil {
					g.logger.WithError(err).WithField("record_id", record.ID).Error("Record upsert failed")
				}
			}
		} else {
			g.logger.WithFields(logging.Fields{
				"batch_start": start,
				"records":     len(records),
			}).Info("Uploaded batch")
		}
	}
	return nil
}
