package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/searchindex"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string, contextText string) (string, error)
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string, contextText string) (string, error) {
	return m.generateFn(ctx, prompt, contextText)
}

type mockIndex struct {
	indexed []searchindex.SummaryDocument
}

func (m *mockIndex) Index(ctx context.Context, doc searchindex.SummaryDocument) error {
	m.indexed = append(m.indexed, doc)
	return nil
}

func (m *mockIndex) Search(ctx context.Context, caseId string, terms []string, limit int) ([]queryModel.KeywordHit, error) {
	return nil, nil
}

func (m *mockIndex) Delete(ctx context.Context, caseId string, documentId string) error {
	return nil
}

type chunkMeta struct {
	chunks []docModel.Chunk
}

func (m *chunkMeta) GetChunks(ctx context.Context, documentId string) ([]docModel.Chunk, error) {
	return m.chunks, nil
}

func (m *chunkMeta) CreateDocument(ctx context.Context, doc *docModel.Document) error { return nil }
func (m *chunkMeta) GetDocument(ctx context.Context, documentId string) (*docModel.Document, error) {
	return nil, nil
}
func (m *chunkMeta) ListByCase(ctx context.Context, caseId string, status docModel.DocumentStatus) ([]docModel.Document, error) {
	return nil, nil
}
func (m *chunkMeta) TransitionStatus(ctx context.Context, documentId string, current, next docModel.DocumentStatus) error {
	return nil
}
func (m *chunkMeta) SetFailed(ctx context.Context, documentId string, stage docModel.DocumentStatus, message string) error {
	return nil
}
func (m *chunkMeta) ResetForRetry(ctx context.Context, documentId string) (docModel.DocumentStatus, error) {
	return "", nil
}
func (m *chunkMeta) SetFileType(ctx context.Context, documentId string, fileType docModel.FileType) error {
	return nil
}
func (m *chunkMeta) SetClassification(ctx context.Context, documentId string, label, category string) error {
	return nil
}
func (m *chunkMeta) SetFilterDecision(ctx context.Context, documentId string, confidence float64, reasoning string) error {
	return nil
}
func (m *chunkMeta) SetHasSummary(ctx context.Context, documentId string) error { return nil }
func (m *chunkMeta) ReplaceChunks(ctx context.Context, documentId string, chunks []docModel.Chunk) error {
	return nil
}
func (m *chunkMeta) MarkChunkVectors(ctx context.Context, documentId string, fromIndex, toIndex int) error {
	return nil
}

func testDoc() *docModel.Document {
	return &docModel.Document{
		Id:              "doc-1",
		CaseId:          "case-1",
		Filename:        "lease.pdf",
		Classification:  "lease",
		ContentCategory: "contracts",
	}
}

func nChunks(n int) []docModel.Chunk {
	chunks := make([]docModel.Chunk, n)
	for i := range chunks {
		chunks[i] = docModel.Chunk{DocumentId: "doc-1", Index: i, Text: fmt.Sprintf("chunk %d body", i)}
	}
	return chunks
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes chunk and document summaries", func(t *testing.T) {
		calls := 0
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			calls++
			return fmt.Sprintf("summary of: %.30s", text), nil
		}}
		idx := &mockIndex{}
		meta := &chunkMeta{chunks: nChunks(3)}

		s := New(gen, meta, idx)
		if err := s.Summarize(ctx, testDoc()); err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}

		//three chunk summaries plus one reduction
		if calls != 4 {
			t.Errorf("got %d generation calls, want 4", calls)
		}
		if len(idx.indexed) != 1 {
			t.Fatalf("indexed %d entries, want 1", len(idx.indexed))
		}
		entry := idx.indexed[0]
		if entry.DocumentId != "doc-1" || entry.CaseId != "case-1" {
			t.Errorf("entry identity = %s/%s", entry.CaseId, entry.DocumentId)
		}
		if entry.Classification != "lease" || entry.Filename != "lease.pdf" {
			t.Errorf("entry metadata = %+v", entry)
		}
		if len(entry.ChunkSummaries) != 3 {
			t.Errorf("entry has %d chunk summaries, want 3", len(entry.ChunkSummaries))
		}
		if entry.Summary == "" {
			t.Error("entry missing the document summary")
		}
	})

	t.Run("single chunk still gets a document level pass", func(t *testing.T) {
		calls := 0
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			calls++
			return "short summary", nil
		}}
		idx := &mockIndex{}
		meta := &chunkMeta{chunks: nChunks(1)}

		s := New(gen, meta, idx)
		if err := s.Summarize(ctx, testDoc()); err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if calls != 2 {
			t.Errorf("got %d generation calls, want chunk pass plus document pass", calls)
		}
	})

	t.Run("oversized summary set reduces in levels", func(t *testing.T) {
		//chunk summaries so large that one reduction call cannot hold them all
		var reduceInputs []string
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			if strings.Contains(prompt, "summaries of consecutive parts") {
				reduceInputs = append(reduceInputs, text)
				return "reduced", nil
			}
			return strings.Repeat("w ", 3000), nil //6000 chars per chunk summary
		}}
		idx := &mockIndex{}
		meta := &chunkMeta{chunks: nChunks(4)}

		s := New(gen, meta, idx)
		if err := s.Summarize(ctx, testDoc()); err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}

		//4 summaries of 6000 chars cannot share one 8000 char call
		if len(reduceInputs) < 2 {
			t.Errorf("got %d reduction calls, want the set split across levels", len(reduceInputs))
		}
		if idx.indexed[0].Summary != "reduced" {
			t.Errorf("document summary = %q", idx.indexed[0].Summary)
		}
	})

	t.Run("depth cap truncates on a rune boundary", func(t *testing.T) {
		//every reduction returns the same oversized text so the levels never
		//converge; the joined fallback crosses the budget inside a rune
		level := strings.Repeat("a", 1998) + "é" + strings.Repeat("b", 4000) //6000 bytes
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			return level, nil
		}}

		s := New(gen, &chunkMeta{}, &mockIndex{})
		out, err := s.reduce(ctx, []string{level, level})
		if err != nil {
			t.Fatalf("reduce failed: %v", err)
		}
		if len(out) > config.SummaryInputBudget {
			t.Errorf("summary is %d bytes, over the input budget", len(out))
		}
		if !utf8.ValidString(out) {
			t.Error("truncated summary is not valid UTF-8")
		}
	})

	t.Run("generation failure is a capability error", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			return "", errors.New("model down")
		}}
		s := New(gen, &chunkMeta{chunks: nChunks(2)}, &mockIndex{})

		err := s.Summarize(ctx, testDoc())
		if docModel.KindOf(err) != docModel.ErrCapability {
			t.Errorf("error kind = %s, want capability_error", docModel.KindOf(err))
		}
	})

	t.Run("no chunks is a validation error", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt, text string) (string, error) {
			return "x", nil
		}}
		s := New(gen, &chunkMeta{}, &mockIndex{})

		err := s.Summarize(ctx, testDoc())
		if docModel.KindOf(err) != docModel.ErrValidation {
			t.Errorf("error kind = %s, want validation_error", docModel.KindOf(err))
		}
	})
}
