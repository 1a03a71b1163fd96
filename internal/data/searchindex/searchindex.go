package searchindex

import (
	"context"
	"strings"

	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

// SummaryDocument is what gets indexed per document once summarization
// succeeds: the executive summary plus enough metadata to render a hit.
type SummaryDocument struct {
	DocumentId      string   `json:"document_id"`
	CaseId          string   `json:"case_id"`
	Filename        string   `json:"filename"`
	Classification  string   `json:"classification"`
	ContentCategory string   `json:"content_category"`
	Summary         string   `json:"summary"`
	ChunkSummaries  []string `json:"chunk_summaries"`
}

type Store interface {
	Index(ctx context.Context, doc SummaryDocument) error
	Search(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error)
	Delete(ctx context.Context, caseId string, documentId string) error
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "was": true, "are": true, "has": true, "have": true,
	"from": true, "not": true, "its": true, "any": true, "all": true,
	"will": true, "shall": true, "been": true, "were": true, "which": true,
}

// Tokenize splits text into lowercase index terms, dropping stopwords and
// short tokens. Shared by indexing and search so both sides agree.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
