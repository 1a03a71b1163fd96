package vectorstore

import (
	"context"

	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

// Store indexes chunk embeddings and answers similarity queries scoped to a
// case.
type Store interface {
	// UpsertBatch writes one point per chunk using the chunk's deterministic
	// vector id, so replays overwrite instead of duplicating.
	UpsertBatch(ctx context.Context, caseId string, chunks []docModel.Chunk, vectors [][]float32) error
	Query(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error)
	DeleteByDocument(ctx context.Context, documentId string) error
}
