package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

// evidence is one numbered context entry handed to the generator. Summary
// evidence from keyword-only documents carries ChunkIndex -1.
type evidence struct {
	Marker     int
	DocumentId string
	ChunkIndex int
	Score      float64
	Text       string
}

// assembleContext walks the ranked documents and packs their evidence into
// the character budget, best ranked first. Lower ranked evidence is what
// falls off when the budget runs out.
func (e *Engine) assembleContext(ctx context.Context, ranked []queryModel.RankedDocument,
	keyword []queryModel.KeywordHit, vector []queryModel.VectorHit) ([]evidence, error) {

	summaries := map[string]string{}
	for _, hit := range keyword {
		summaries[hit.DocumentId] = hit.Summary
	}
	chunkHits := map[string][]queryModel.VectorHit{}
	for _, hit := range vector {
		chunkHits[hit.DocumentId] = append(chunkHits[hit.DocumentId], hit)
	}

	var entries []evidence
	used := 0
	marker := 1
	for _, doc := range ranked {
		hits := chunkHits[doc.DocumentId]
		sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

		if len(hits) == 0 {
			//keyword-only document, its summary is the evidence
			text := summaries[doc.DocumentId]
			if text == "" {
				continue
			}
			if used+len(text) > config.ContextCharBudget {
				if len(entries) == 0 {
					return nil, docModel.BudgetExceededErr(
						"summary of document %s alone exceeds the context budget", doc.DocumentId)
				}
				continue
			}
			entries = append(entries, evidence{
				Marker:     marker,
				DocumentId: doc.DocumentId,
				ChunkIndex: -1,
				Score:      doc.KeywordScore,
				Text:       text,
			})
			used += len(text)
			marker++
			continue
		}

		texts, err := e.chunkTexts(ctx, doc.DocumentId)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			text := hit.Preview
			if hit.ChunkIndex >= 0 && hit.ChunkIndex < len(texts) {
				text = texts[hit.ChunkIndex]
			}
			if text == "" {
				continue
			}
			if used+len(text) > config.ContextCharBudget {
				if len(entries) == 0 {
					return nil, docModel.BudgetExceededErr(
						"chunk %d of document %s alone exceeds the context budget",
						hit.ChunkIndex, doc.DocumentId)
				}
				continue
			}
			entries = append(entries, evidence{
				Marker:     marker,
				DocumentId: hit.DocumentId,
				ChunkIndex: hit.ChunkIndex,
				Score:      hit.Score,
				Text:       text,
			})
			used += len(text)
			marker++
		}
	}
	return entries, nil
}

func (e *Engine) chunkTexts(ctx context.Context, documentId string) ([]string, error) {
	chunks, err := e.meta.GetChunks(ctx, documentId)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for _, c := range chunks {
		if c.Index >= 0 && c.Index < len(texts) {
			texts[c.Index] = c.Text
		}
	}
	return texts, nil
}

func renderContext(entries []evidence) string {
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "[%d] %s\n\n", entry.Marker, entry.Text)
	}
	return b.String()
}
