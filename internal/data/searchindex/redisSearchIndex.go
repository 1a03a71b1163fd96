package searchindex

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/redisStore"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

/*
Redis layout, all namespaced by case id:

	doc:{case}:{docId}      hash  - summary + metadata
	case:{case}:docs        set   - all indexed doc ids
	term:{case}:{token}     set   - doc ids whose summary contains token
	docterms:{case}:{docId} set   - tokens indexed for the doc (for delete)

Indexing a document twice overwrites the hash and re-points the term sets,
so the summarization stage can be re-run safely.
*/

type redisIndex struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisSearchIndex(ctx context.Context) Store {
	inner := redisStore.GetRedisStore(ctx, config.RedisSearchIndex)
	if inner == nil {
		return nil
	}
	return &redisIndex{
		store:  inner,
		logger: logger_i.NewLogger("SearchIndex"),
	}
}

func TestSearchIndex(inner *redisStore.Store) Store {
	return &redisIndex{
		store:  inner,
		logger: logger_i.NewLogger("SearchIndex"),
	}
}

func docKey(caseId, docId string) string      { return "doc:" + caseId + ":" + docId }
func caseDocsKey(caseId string) string        { return "case:" + caseId + ":docs" }
func termKey(caseId, token string) string     { return "term:" + caseId + ":" + token }
func docTermsKey(caseId, docId string) string { return "docterms:" + caseId + ":" + docId }

func (r *redisIndex) Index(ctx context.Context, doc SummaryDocument) error {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", doc.DocumentId)

	//re-indexing: drop the old term postings first
	if err := r.Delete(ctx, doc.CaseId, doc.DocumentId); err != nil {
		return err
	}

	chunkSummaries, err := json.Marshal(doc.ChunkSummaries)
	if err != nil {
		return err
	}

	err = r.store.HSet(ctx, docKey(doc.CaseId, doc.DocumentId), map[string]interface{}{
		"summary":          doc.Summary,
		"filename":         doc.Filename,
		"classification":   doc.Classification,
		"content_category": doc.ContentCategory,
		"chunk_summaries":  string(chunkSummaries),
	})
	if err != nil {
		log.Error("Failed to write summary hash", "error", err)
		return err
	}

	if err := r.store.SAdd(ctx, caseDocsKey(doc.CaseId), doc.DocumentId); err != nil {
		return err
	}

	terms := Tokenize(doc.Summary + " " + doc.Filename)
	for _, term := range terms {
		if err := r.store.SAdd(ctx, termKey(doc.CaseId, term), doc.DocumentId); err != nil {
			return err
		}
		if err := r.store.SAdd(ctx, docTermsKey(doc.CaseId, doc.DocumentId), term); err != nil {
			return err
		}
	}

	log.Debug("Indexed summary", "terms", len(terms))
	return nil
}

func (r *redisIndex) Search(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "caseId", caseId)

	if len(terms) == 0 {
		return nil, nil
	}

	matched := make(map[string]int)
	for _, term := range terms {
		docIds, err := r.store.SMembers(ctx, termKey(caseId, term))
		if err != nil {
			log.Error("Term lookup failed", "term", term, "error", err)
			return nil, err
		}
		for _, id := range docIds {
			matched[id]++
		}
	}

	hits := make([]queryModel.KeywordHit, 0, len(matched))
	for docId, count := range matched {
		fields, err := r.store.HGetAll(ctx, docKey(caseId, docId))
		if err != nil {
			return nil, err
		}
		hits = append(hits, queryModel.KeywordHit{
			DocumentId: docId,
			Score:      float64(count) / float64(len(terms)),
			Summary:    fields["summary"],
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentId < hits[j].DocumentId
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *redisIndex) Delete(ctx context.Context, caseId string, documentId string) error {
	terms, err := r.store.SMembers(ctx, docTermsKey(caseId, documentId))
	if err != nil {
		return err
	}
	for _, term := range terms {
		if err := r.store.SRem(ctx, termKey(caseId, term), documentId); err != nil {
			return err
		}
	}
	if err := r.store.Del(ctx, docTermsKey(caseId, documentId), docKey(caseId, documentId)); err != nil {
		return err
	}
	return r.store.SRem(ctx, caseDocsKey(caseId), documentId)
}
