package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/searchindex"
	"github.com/nkurra/CaseAPI/internal/data/vectorstore"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("queryEngine")

const conceptPrompt = `Extract the key legal and factual search terms from the question.
Respond with ONLY a JSON array of lowercase single-word strings, no other text.`

const answerPrompt = `You are answering a question about a legal case using only the numbered
evidence passages provided. Every statement of fact in your answer must cite
its passage with an inline marker like [1] or [3]. If the evidence does not
answer the question, say so plainly. Do not invent facts.`

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Engine answers case questions over the two retrieval signals: the keyword
// search index and the chunk vector store.
type Engine struct {
	meta      metadata.Store
	index     searchindex.Store
	vectors   vectorstore.Store
	embedder  capability.Embedder
	generator capability.Generator
}

func NewEngine(meta metadata.Store, index searchindex.Store, vectors vectorstore.Store,
	embedder capability.Embedder, generator capability.Generator) *Engine {
	return &Engine{meta: meta, index: index, vectors: vectors, embedder: embedder, generator: generator}
}

func (e *Engine) Answer(ctx context.Context, caseId, question string) (*queryModel.Answer, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "caseId", caseId)

	if strings.TrimSpace(question) == "" {
		return nil, docModel.ValidationErr("empty question")
	}
	if strings.TrimSpace(caseId) == "" {
		return nil, docModel.ValidationErr("empty case id")
	}

	terms := e.extractConcepts(ctx, question)

	var keyword []queryModel.KeywordHit
	var vector []queryModel.VectorHit
	var kwErr, vecErr error

	//the two signals are independent, query them in parallel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keyword, kwErr = e.index.Search(gctx, caseId, terms, config.KeywordSearchLimit)
		return nil
	})
	g.Go(func() error {
		var embedding []float32
		embedding, vecErr = e.embedder.GetEmbedding(gctx, question)
		if vecErr != nil {
			return nil
		}
		vector, vecErr = e.vectors.Query(gctx, caseId, embedding, config.RetrievalTopK)
		return nil
	})
	g.Wait()

	if kwErr != nil && vecErr != nil {
		return nil, docModel.StoreErr("both retrieval signals failed",
			fmt.Errorf("keyword: %v, vector: %v", kwErr, vecErr))
	}
	partial := kwErr != nil || vecErr != nil
	if partial {
		loggr.Warn("retrieval degraded to one signal", "keywordErr", kwErr, "vectorErr", vecErr)
	}

	if len(keyword) == 0 && len(vector) == 0 {
		return &queryModel.Answer{
			Question:        question,
			CaseId:          caseId,
			Text:            "No relevant documents were found for this question in the case.",
			NoEvidence:      true,
			PartialEvidence: partial,
		}, nil
	}

	ranked := Fuse(keyword, vector, e.creationTimes(ctx, caseId))

	entries, err := e.assembleContext(ctx, ranked, keyword, vector)
	if err != nil {
		return nil, err
	}

	prompt := answerPrompt
	if partial {
		prompt += "\nNote: one evidence source was unavailable, the passages may be incomplete."
	}
	text, err := e.generator.GenerateText(ctx, prompt,
		"Question: "+question+"\n\nEvidence:\n"+renderContext(entries))
	if err != nil {
		return nil, docModel.CapabilityErr("generate answer", err)
	}

	return &queryModel.Answer{
		Question:        question,
		CaseId:          caseId,
		Text:            text,
		Citations:       extractCitations(text, entries),
		PartialEvidence: partial,
	}, nil
}

// extractConcepts asks the model for search terms and falls back to plain
// tokenization when the model misbehaves.
func (e *Engine) extractConcepts(ctx context.Context, question string) []string {
	raw, err := e.generator.GenerateText(ctx, conceptPrompt, question)
	if err == nil {
		raw = strings.TrimSpace(raw)
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")

		var terms []string
		if json.Unmarshal([]byte(strings.TrimSpace(raw)), &terms) == nil && len(terms) > 0 {
			for i := range terms {
				terms[i] = strings.ToLower(strings.TrimSpace(terms[i]))
			}
			return terms
		}
	}
	logger.Debug("concept extraction fell back to tokenization")
	return searchindex.Tokenize(question)
}

func (e *Engine) creationTimes(ctx context.Context, caseId string) map[string]time.Time {
	docs, err := e.meta.ListByCase(ctx, caseId, "")
	if err != nil {
		logger.Warn("could not load creation times for tie-breaking", "error", err)
		return nil
	}
	times := make(map[string]time.Time, len(docs))
	for _, d := range docs {
		times[d.Id] = d.CreatedAt
	}
	return times
}

// extractCitations resolves the [n] markers the generator emitted against
// the evidence list. Markers pointing at nothing are dropped.
func extractCitations(text string, entries []evidence) []queryModel.Citation {
	byMarker := make(map[int]evidence, len(entries))
	for _, entry := range entries {
		byMarker[entry.Marker] = entry
	}

	seen := map[int]bool{}
	var citations []queryModel.Citation
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		entry, ok := byMarker[n]
		if !ok {
			continue
		}
		seen[n] = true

		preview := entry.Text
		if len(preview) > 200 {
			cut := 200
			for cut > 0 && !utf8.RuneStart(preview[cut]) {
				cut--
			}
			preview = preview[:cut]
		}
		citations = append(citations, queryModel.Citation{
			Marker:     n,
			DocumentId: entry.DocumentId,
			ChunkIndex: entry.ChunkIndex,
			Score:      entry.Score,
			Preview:    preview,
		})
	}
	return citations
}
