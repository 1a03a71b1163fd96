package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/searchindex"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

type mockMeta struct {
	chunks map[string][]docModel.Chunk
	docs   []docModel.Document
}

func (m *mockMeta) GetChunks(ctx context.Context, documentId string) ([]docModel.Chunk, error) {
	return m.chunks[documentId], nil
}

func (m *mockMeta) ListByCase(ctx context.Context, caseId string, status docModel.DocumentStatus) ([]docModel.Document, error) {
	return m.docs, nil
}

func (m *mockMeta) CreateDocument(ctx context.Context, doc *docModel.Document) error { return nil }
func (m *mockMeta) GetDocument(ctx context.Context, documentId string) (*docModel.Document, error) {
	return nil, nil
}
func (m *mockMeta) TransitionStatus(ctx context.Context, documentId string, current, next docModel.DocumentStatus) error {
	return nil
}
func (m *mockMeta) SetFailed(ctx context.Context, documentId string, stage docModel.DocumentStatus, message string) error {
	return nil
}
func (m *mockMeta) ResetForRetry(ctx context.Context, documentId string) (docModel.DocumentStatus, error) {
	return "", nil
}
func (m *mockMeta) SetFileType(ctx context.Context, documentId string, fileType docModel.FileType) error {
	return nil
}
func (m *mockMeta) SetClassification(ctx context.Context, documentId string, label, category string) error {
	return nil
}
func (m *mockMeta) SetFilterDecision(ctx context.Context, documentId string, confidence float64, reasoning string) error {
	return nil
}
func (m *mockMeta) SetHasSummary(ctx context.Context, documentId string) error { return nil }
func (m *mockMeta) ReplaceChunks(ctx context.Context, documentId string, chunks []docModel.Chunk) error {
	return nil
}
func (m *mockMeta) MarkChunkVectors(ctx context.Context, documentId string, fromIndex, toIndex int) error {
	return nil
}

type mockSearchIndex struct {
	searchFn func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error)
}

func (m *mockSearchIndex) Index(ctx context.Context, doc searchindex.SummaryDocument) error {
	return nil
}

func (m *mockSearchIndex) Search(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
	return m.searchFn(ctx, caseId, terms, limit)
}

func (m *mockSearchIndex) Delete(ctx context.Context, caseId string, documentId string) error {
	return nil
}

type mockVectorStore struct {
	queryFn func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error)
}

func (m *mockVectorStore) UpsertBatch(ctx context.Context, caseId string, chunks []docModel.Chunk, vectors [][]float32) error {
	return nil
}

func (m *mockVectorStore) Query(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
	return m.queryFn(ctx, caseId, vector, topK)
}

func (m *mockVectorStore) DeleteByDocument(ctx context.Context, documentId string) error {
	return nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, query string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.embedFn == nil {
		return []float32{1, 0}, nil
	}
	return m.embedFn(ctx, query)
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string, isHugeDataSet bool) ([][]float32, error) {
	return nil, nil
}

// mockGenerator routes by prompt: the concept extraction prompt and the
// answer prompt take different canned responses.
type mockGenerator struct {
	concepts string
	answer   string
	answerFn func(contextText string) (string, error)
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string, contextText string) (string, error) {
	if strings.Contains(prompt, "search terms") {
		if m.concepts == "" {
			return "", errors.New("concept model down")
		}
		return m.concepts, nil
	}
	if m.answerFn != nil {
		return m.answerFn(contextText)
	}
	return m.answer, nil
}

func testEngine(index *mockSearchIndex, vectors *mockVectorStore, gen *mockGenerator, meta *mockMeta) *Engine {
	if meta == nil {
		meta = &mockMeta{}
	}
	return NewEngine(meta, index, vectors, &mockEmbedder{}, gen)
}

func noHits() (*mockSearchIndex, *mockVectorStore) {
	idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
		return nil, nil
	}}
	vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
		return nil, nil
	}}
	return idx, vec
}

func TestAnswerValidation(t *testing.T) {
	idx, vec := noHits()
	e := testEngine(idx, vec, &mockGenerator{concepts: `["rent"]`, answer: "x"}, nil)

	if _, err := e.Answer(context.Background(), "case-1", "   "); docModel.KindOf(err) != docModel.ErrValidation {
		t.Errorf("empty question: kind = %s, want validation_error", docModel.KindOf(err))
	}
	if _, err := e.Answer(context.Background(), "", "who signed?"); docModel.KindOf(err) != docModel.ErrValidation {
		t.Errorf("empty case: kind = %s, want validation_error", docModel.KindOf(err))
	}
}

func TestAnswerNoEvidence(t *testing.T) {
	idx, vec := noHits()
	e := testEngine(idx, vec, &mockGenerator{concepts: `["rent"]`, answer: "should not be called"}, nil)

	answer, err := e.Answer(context.Background(), "case-1", "Who pays the rent?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !answer.NoEvidence {
		t.Error("expected a no-evidence answer")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("no-evidence answer has %d citations", len(answer.Citations))
	}
}

func TestAnswerWithCitations(t *testing.T) {
	idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
		return []queryModel.KeywordHit{{DocumentId: "doc-kw", Score: 0.8, Summary: "Summary of the lease terms."}}, nil
	}}
	vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
		return []queryModel.VectorHit{{DocumentId: "doc-vec", ChunkIndex: 0, Score: 0.9, Preview: "Rent is due monthly."}}, nil
	}}
	meta := &mockMeta{chunks: map[string][]docModel.Chunk{
		"doc-vec": {{DocumentId: "doc-vec", Index: 0, Text: "Rent is due monthly in advance."}},
	}}
	gen := &mockGenerator{
		concepts: `["rent"]`,
		//repeats marker 1 and cites a marker that has no evidence entry
		answer: "Rent is due monthly [1]. The lease confirms this [1], [2]. See also [9].",
	}

	e := testEngine(idx, vec, gen, meta)
	answer, err := e.Answer(context.Background(), "case-1", "When is rent due?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if len(answer.Citations) != 2 {
		t.Fatalf("got %d citations, want 2 (deduped, unresolvable dropped): %+v", len(answer.Citations), answer.Citations)
	}
	if answer.Citations[0].Marker != 1 || answer.Citations[1].Marker != 2 {
		t.Errorf("citation markers = %d, %d", answer.Citations[0].Marker, answer.Citations[1].Marker)
	}
	for _, c := range answer.Citations {
		if len(c.Preview) > 200 {
			t.Errorf("citation preview is %d chars, want at most 200", len(c.Preview))
		}
	}
	if answer.PartialEvidence {
		t.Error("both signals succeeded, answer should not be partial")
	}

	//the vector doc ranks first, so marker 1 is its chunk evidence
	if answer.Citations[0].DocumentId != "doc-vec" || answer.Citations[0].ChunkIndex != 0 {
		t.Errorf("citation 1 = %+v, want doc-vec chunk 0", answer.Citations[0])
	}
	//the keyword-only doc contributes its summary
	if answer.Citations[1].DocumentId != "doc-kw" || answer.Citations[1].ChunkIndex != -1 {
		t.Errorf("citation 2 = %+v, want doc-kw summary evidence", answer.Citations[1])
	}
}

func TestCitationPreviewRuneBoundary(t *testing.T) {
	//a two-byte rune straddles the 200-byte preview cut
	long := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 100)
	entries := []evidence{{Marker: 1, DocumentId: "doc-a", ChunkIndex: 0, Text: long}}

	citations := extractCitations("The clause applies [1].", entries)
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	preview := citations[0].Preview
	if len(preview) > 200 {
		t.Errorf("preview is %d bytes, want at most 200", len(preview))
	}
	if !utf8.ValidString(preview) {
		t.Error("preview is not valid UTF-8")
	}
	if preview != strings.Repeat("a", 199) {
		t.Errorf("cut should back up to the rune start, got tail %q", preview[190:])
	}
}

func TestAnswerPartialEvidence(t *testing.T) {
	t.Run("keyword signal down", func(t *testing.T) {
		idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
			return nil, errors.New("redis unreachable")
		}}
		vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
			return []queryModel.VectorHit{{DocumentId: "doc-1", ChunkIndex: 0, Score: 0.9, Preview: "Found it."}}, nil
		}}
		meta := &mockMeta{chunks: map[string][]docModel.Chunk{
			"doc-1": {{DocumentId: "doc-1", Index: 0, Text: "Found it."}},
		}}

		e := testEngine(idx, vec, &mockGenerator{concepts: `["rent"]`, answer: "Found [1]."}, meta)
		answer, err := e.Answer(context.Background(), "case-1", "Where is it?")
		if err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		if !answer.PartialEvidence {
			t.Error("expected a partial evidence answer")
		}
		if len(answer.Citations) != 1 {
			t.Errorf("got %d citations, want 1", len(answer.Citations))
		}
	})

	t.Run("both signals down", func(t *testing.T) {
		idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
			return nil, errors.New("redis unreachable")
		}}
		vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
			return nil, errors.New("qdrant unreachable")
		}}

		e := testEngine(idx, vec, &mockGenerator{concepts: `["rent"]`}, nil)
		_, err := e.Answer(context.Background(), "case-1", "Where is it?")
		if docModel.KindOf(err) != docModel.ErrStore {
			t.Errorf("error kind = %s, want store_error", docModel.KindOf(err))
		}
	})

	t.Run("embedding failure counts as the vector signal failing", func(t *testing.T) {
		idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
			return []queryModel.KeywordHit{{DocumentId: "doc-1", Score: 0.5, Summary: "The summary."}}, nil
		}}
		vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
			t.Error("vector query should not run when embedding fails")
			return nil, nil
		}}
		e := testEngine(idx, vec, &mockGenerator{concepts: `["rent"]`, answer: "From summary [1]."}, nil)
		e.embedder = &mockEmbedder{embedFn: func(ctx context.Context, query string) ([]float32, error) {
			return nil, errors.New("embedder down")
		}}

		answer, err := e.Answer(context.Background(), "case-1", "What happened?")
		if err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		if !answer.PartialEvidence {
			t.Error("expected a partial evidence answer")
		}
	})
}

func TestAnswerBudgetExceeded(t *testing.T) {
	huge := strings.Repeat("x", config.ContextCharBudget+1)
	idx, _ := noHits()
	vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
		return []queryModel.VectorHit{{DocumentId: "doc-1", ChunkIndex: 0, Score: 0.9}}, nil
	}}
	meta := &mockMeta{chunks: map[string][]docModel.Chunk{
		"doc-1": {{DocumentId: "doc-1", Index: 0, Text: huge}},
	}}

	e := testEngine(idx, vec, &mockGenerator{concepts: `["x"]`}, meta)
	_, err := e.Answer(context.Background(), "case-1", "What is in the document?")
	if docModel.KindOf(err) != docModel.ErrBudgetExceeded {
		t.Errorf("error kind = %s, want budget_exceeded", docModel.KindOf(err))
	}
}

func TestAnswerBudgetDropsLowestRanked(t *testing.T) {
	//two docs, each chunk just over half the budget: only the better
	//ranked one fits
	big := strings.Repeat("y", config.ContextCharBudget/2+100)
	vec := &mockVectorStore{queryFn: func(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
		return []queryModel.VectorHit{
			{DocumentId: "doc-best", ChunkIndex: 0, Score: 0.9},
			{DocumentId: "doc-worst", ChunkIndex: 0, Score: 0.1},
		}, nil
	}}
	idx, _ := noHits()
	meta := &mockMeta{chunks: map[string][]docModel.Chunk{
		"doc-best":  {{DocumentId: "doc-best", Index: 0, Text: big}},
		"doc-worst": {{DocumentId: "doc-worst", Index: 0, Text: big}},
	}}

	var rendered string
	gen := &mockGenerator{concepts: `["y"]`, answerFn: func(contextText string) (string, error) {
		rendered = contextText
		return "All cited [1].", nil
	}}

	e := testEngine(idx, vec, gen, meta)
	answer, err := e.Answer(context.Background(), "case-1", "What do the documents say?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if strings.Count(rendered, "[1]") != 1 || strings.Contains(rendered, "[2]") {
		t.Error("only the best ranked evidence should fit the budget")
	}
	if len(answer.Citations) != 1 || answer.Citations[0].DocumentId != "doc-best" {
		t.Errorf("citations = %+v, want just doc-best", answer.Citations)
	}
}

func TestConceptFallbackToTokenize(t *testing.T) {
	var gotTerms []string
	idx := &mockSearchIndex{searchFn: func(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
		gotTerms = terms
		return nil, nil
	}}
	_, vec := noHits()

	//empty concepts makes the generator fail the extraction call
	e := testEngine(idx, vec, &mockGenerator{answer: "irrelevant"}, nil)
	if _, err := e.Answer(context.Background(), "case-1", "Who signed the indemnity agreement?"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	want := searchindex.Tokenize("Who signed the indemnity agreement?")
	if len(gotTerms) != len(want) {
		t.Fatalf("search terms = %v, want tokenized question %v", gotTerms, want)
	}
	for i := range want {
		if gotTerms[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, gotTerms[i], want[i])
		}
	}
}
