package indexer

import (
	"context"
	"fmt"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/vectorstore"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("indexer")

// Indexer embeds chunks and lands them in the vector store in batches. Each
// landed batch is marked on the chunk rows before the next one starts, so a
// crash resumes at the first unmarked chunk instead of re-embedding
// everything.
type Indexer struct {
	embedder capability.Embedder
	vectors  vectorstore.Store
	meta     metadata.Store
}

func New(embedder capability.Embedder, vectors vectorstore.Store, meta metadata.Store) *Indexer {
	return &Indexer{embedder: embedder, vectors: vectors, meta: meta}
}

func (ix *Indexer) IndexDocument(ctx context.Context, caseId string, documentId string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	chunks, err := ix.meta.GetChunks(ctx, documentId)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return docModel.ValidationErr("document %s has no chunks to index", documentId)
	}

	//skip the prefix that already landed
	start := 0
	for start < len(chunks) && chunks[start].VectorId != "" {
		start++
	}
	if start == len(chunks) {
		loggr.Debug("all chunks already indexed", "documentId", documentId)
		return nil
	}
	if start > 0 {
		loggr.Info("resuming indexing", "documentId", documentId, "fromChunk", start)
	}

	for i := start; i < len(chunks); i += config.EmbeddingBatchSize {
		end := i + config.EmbeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := ix.embedder.BatchEmbedding(ctx, texts, len(chunks) > config.EmbeddingBatchSize)
		if err != nil {
			return docModel.CapabilityErr("batch embedding", err)
		}
		if len(vectors) != len(batch) {
			return docModel.CapabilityErr("batch embedding",
				fmt.Errorf("wanted %d vectors, got %d", len(batch), len(vectors)))
		}

		if err := ix.vectors.UpsertBatch(ctx, caseId, batch, vectors); err != nil {
			return docModel.StoreErr("vector upsert", err)
		}
		if err := ix.meta.MarkChunkVectors(ctx, documentId, batch[0].Index, batch[len(batch)-1].Index); err != nil {
			return err
		}
	}

	return nil
}
