package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/searchindex"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("summarizer")

const chunkSummaryPrompt = `Summarize the following passage from a legal document in at most %d words.
Keep parties, dates, amounts and obligations. Respond with only the summary.`

const reducePrompt = `The following are summaries of consecutive parts of one legal document.
Combine them into a single summary of at most %d words. Keep parties, dates,
amounts and obligations. Respond with only the summary.`

/*
Summarization is map-reduce. Each chunk gets a short summary, then summaries
are folded together level by level until one document summary fits the input
budget. The reduction depth is capped so a pathological document cannot
recurse forever.
*/

type Summarizer struct {
	generator capability.Generator
	meta      metadata.Store
	index     searchindex.Store
}

func New(generator capability.Generator, meta metadata.Store, index searchindex.Store) *Summarizer {
	return &Summarizer{generator: generator, meta: meta, index: index}
}

// Summarize builds chunk and document summaries and writes the search index
// entry. The has_summary flag on the document is the caller's to set, after
// this returns cleanly.
func (s *Summarizer) Summarize(ctx context.Context, doc *docModel.Document) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	chunks, err := s.meta.GetChunks(ctx, doc.Id)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return docModel.ValidationErr("document %s has no chunks to summarize", doc.Id)
	}

	chunkSummaries := make([]string, len(chunks))
	for i, chunk := range chunks {
		summary, err := s.generate(ctx,
			fmt.Sprintf(chunkSummaryPrompt, config.ChunkSummaryMaxWords), chunk.Text)
		if err != nil {
			return docModel.CapabilityErr("chunk summary", err)
		}
		chunkSummaries[i] = summary
	}

	docSummary, err := s.reduce(ctx, chunkSummaries)
	if err != nil {
		return err
	}

	loggr.Debug("document summarized", "documentId", doc.Id, "chunks", len(chunks))

	entry := searchindex.SummaryDocument{
		DocumentId:      doc.Id,
		CaseId:          doc.CaseId,
		Filename:        doc.Filename,
		Classification:  doc.Classification,
		ContentCategory: doc.ContentCategory,
		Summary:         docSummary,
		ChunkSummaries:  chunkSummaries,
	}
	if err := s.index.Index(ctx, entry); err != nil {
		return docModel.StoreErr("index summary", err)
	}
	return nil
}

// reduce folds summaries together until a single one remains. Each level
// packs as many summaries as fit the input budget into one generation call.
func (s *Summarizer) reduce(ctx context.Context, summaries []string) (string, error) {
	prompt := fmt.Sprintf(reducePrompt, config.DocSummaryMaxWords)

	for depth := 0; depth < config.MaxReductionDepth; depth++ {
		if len(summaries) == 1 && len(summaries[0]) <= config.SummaryInputBudget {
			if depth == 0 {
				//single chunk documents still get a document level pass
				return s.generate(ctx, prompt, summaries[0])
			}
			return summaries[0], nil
		}

		var next []string
		var group []string
		groupLen := 0
		flush := func() error {
			if len(group) == 0 {
				return nil
			}
			combined, err := s.generate(ctx, prompt, strings.Join(group, "\n\n"))
			if err != nil {
				return docModel.CapabilityErr("reduce summaries", err)
			}
			next = append(next, combined)
			group = group[:0]
			groupLen = 0
			return nil
		}

		for _, sum := range summaries {
			if groupLen > 0 && groupLen+len(sum) > config.SummaryInputBudget {
				if err := flush(); err != nil {
					return "", err
				}
			}
			group = append(group, sum)
			groupLen += len(sum) + 2
		}
		if err := flush(); err != nil {
			return "", err
		}

		summaries = next
		if len(summaries) == 1 {
			return summaries[0], nil
		}
	}

	// Depth cap reached with multiple summaries left. Join what we have
	// rather than failing the document.
	logger.Warn("summary reduction depth cap reached")
	joined := strings.Join(summaries, " ")
	if len(joined) > config.SummaryInputBudget {
		cut := config.SummaryInputBudget
		for cut > 0 && !utf8.RuneStart(joined[cut]) {
			cut--
		}
		joined = joined[:cut]
	}
	return joined, nil
}

func (s *Summarizer) generate(ctx context.Context, prompt, text string) (string, error) {
	out, err := s.generator.GenerateText(ctx, prompt, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
