package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/data/blob"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/store"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
)

type fixture struct {
	meta  metadata.Store
	blobs blob.Store
	orch  *Orchestrator

	chunker    *mockChunker
	indexer    *mockIndexer
	summarizer *mockSummarizer
	extractor  *mockExtractor
	analyzer   *mockAnalyzer
	vectors    *mockVectors
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := metadata.NewSQLiteDB(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		meta:       metadata.NewStore(db),
		blobs:      blob.NewInMemoryStore(),
		chunker:    &mockChunker{},
		indexer:    &mockIndexer{},
		summarizer: &mockSummarizer{},
		extractor:  &mockExtractor{},
		analyzer:   &mockAnalyzer{},
		vectors:    &mockVectors{},
	}
	f.orch = &Orchestrator{
		Meta:       f.meta,
		Blobs:      f.blobs,
		Vectors:    f.vectors,
		Classifier: &mockClassifier{},
		Analyzer:   f.analyzer,
		Chunker:    f.chunker,
		Indexer:    f.indexer,
		Summarizer: f.summarizer,
		Extractor:  f.extractor,
		Locker:     store.InitInMemoryDocLock(),
	}
	return f
}

func (f *fixture) upload(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	doc := &docModel.Document{
		Id:       id,
		CaseId:   "case-1",
		Filename: id + ".txt",
		FileSize: 64,
		BlobKey:  docModel.OriginalKey(id),
	}
	if err := f.meta.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if err := f.blobs.Put(ctx, docModel.OriginalKey(id), []byte("Some body text."), "text/plain"); err != nil {
		t.Fatalf("put original: %v", err)
	}
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	if err := f.orch.Process(ctx, "doc-1"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	doc, err := f.meta.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Status != docModel.StatusCompleted {
		t.Fatalf("status = %s, want completed", doc.Status)
	}
	if doc.FileType != docModel.TXT {
		t.Errorf("file type = %s", doc.FileType)
	}
	if doc.Classification != "contract" || doc.ContentCategory != "agreements" {
		t.Errorf("classification = %s/%s", doc.Classification, doc.ContentCategory)
	}
	if doc.FilterConfidence == nil {
		t.Error("filter decision was not persisted")
	}
	if !doc.HasSummary {
		t.Error("has_summary not set")
	}

	//artifacts written before the statuses that certify them
	if _, err := f.blobs.Get(ctx, docModel.BlocksKey("doc-1")); err != nil {
		t.Error("blocks artifact missing")
	}
	if _, err := f.blobs.Get(ctx, docModel.ChunkSetKey("doc-1")); err != nil {
		t.Error("chunk set artifact missing")
	}
	chunks, err := f.meta.GetChunks(ctx, "doc-1")
	if err != nil || len(chunks) != 2 {
		t.Errorf("chunk rows = %d (%v), want 2", len(chunks), err)
	}

	if f.chunker.calls != 1 || f.indexer.calls != 1 || f.summarizer.calls != 1 {
		t.Errorf("calls: chunker %d indexer %d summarizer %d, want 1 each",
			f.chunker.calls, f.indexer.calls, f.summarizer.calls)
	}
	if f.vectors.deletes != 1 {
		t.Errorf("stale vector cleanup ran %d times, want 1", f.vectors.deletes)
	}
}

func TestProcessFilteredOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	f.analyzer.analyzeFn = func(ctx context.Context, docType, sample string) (capability.FilterDecision, error) {
		return capability.FilterDecision{Accept: false, Confidence: 0.95, Reasoning: "catering menu"}, nil
	}

	if err := f.orch.Process(ctx, "doc-1"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	doc, _ := f.meta.GetDocument(ctx, "doc-1")
	if doc.Status != docModel.StatusFilteredOut {
		t.Fatalf("status = %s, want filtered_out", doc.Status)
	}
	if doc.FilterReasoning != "catering menu" {
		t.Errorf("filter reasoning = %q", doc.FilterReasoning)
	}
	if f.chunker.calls != 0 || f.summarizer.calls != 0 {
		t.Error("filtered documents must not be chunked or summarized")
	}
}

func TestProcessStageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	f.chunker.chunkFn = func(ctx context.Context, doc *docModel.BlocksDocument) ([]docModel.Chunk, error) {
		return nil, docModel.CapabilityErr("chunk", errors.New("embedder down"))
	}

	err := f.orch.Process(ctx, "doc-1")
	if err == nil {
		t.Fatal("expected Process to fail")
	}

	doc, _ := f.meta.GetDocument(ctx, "doc-1")
	if doc.Status != docModel.StatusFailed {
		t.Fatalf("status = %s, want failed", doc.Status)
	}
	if doc.ProcessingError == nil || doc.ProcessingError.Stage != docModel.StatusChunking {
		t.Errorf("processing error = %+v, want chunking stage", doc.ProcessingError)
	}
	if doc.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", doc.RetryCount)
	}
}

func TestProcessUnsupportedFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	f.extractor.detectFn = func(filename string, data []byte) docModel.FileType {
		return docModel.UNKNOWN
	}

	err := f.orch.Process(ctx, "doc-1")
	if docModel.KindOf(err) != docModel.ErrUnsupportedFormat {
		t.Fatalf("error kind = %s, want unsupported_format", docModel.KindOf(err))
	}
	if docModel.Retryable(err) {
		t.Error("unsupported format must not be retryable")
	}

	doc, _ := f.meta.GetDocument(ctx, "doc-1")
	if doc.Status != docModel.StatusFailed {
		t.Errorf("status = %s, want failed", doc.Status)
	}
	if doc.ProcessingError.Stage != docModel.StatusDetectingType {
		t.Errorf("failure attributed to %s, want detecting_type", doc.ProcessingError.Stage)
	}
}

func TestRetryResumesAtFailedStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	//first run dies in the indexer, after chunks are persisted
	f.indexer.indexFn = func(ctx context.Context, caseId, documentId string) error {
		return docModel.StoreErr("upsert", errors.New("vector db unreachable"))
	}
	if err := f.orch.Process(ctx, "doc-1"); err == nil {
		t.Fatal("expected first run to fail")
	}

	doc, _ := f.meta.GetDocument(ctx, "doc-1")
	if doc.ProcessingError.Stage != docModel.StatusChunking {
		t.Fatalf("failure stage = %s, want chunking", doc.ProcessingError.Stage)
	}

	f.indexer.indexFn = nil
	if err := f.orch.Retry(ctx, "doc-1"); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	doc, _ = f.meta.GetDocument(ctx, "doc-1")
	if doc.Status != docModel.StatusCompleted {
		t.Fatalf("status after retry = %s, want completed", doc.Status)
	}

	//the chunk rows from the first run were reused, not rebuilt
	if f.chunker.calls != 1 {
		t.Errorf("chunker ran %d times, want 1", f.chunker.calls)
	}
	if f.indexer.calls != 2 {
		t.Errorf("indexer ran %d times, want 2", f.indexer.calls)
	}
	//earlier stages were not re-run either
	if f.vectors.deletes != 1 {
		t.Errorf("stale vector cleanup ran %d times, want 1", f.vectors.deletes)
	}
}

func TestRetryRequiresFailedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	err := f.orch.Retry(ctx, "doc-1")
	if docModel.KindOf(err) != docModel.ErrValidation {
		t.Errorf("error kind = %s, want validation_error", docModel.KindOf(err))
	}
}

func TestProcessLockedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	acquired, err := f.orch.Locker.TryLock(ctx, "doc-1")
	if err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	if err := f.orch.Process(ctx, "doc-1"); !errors.Is(err, ErrLocked) {
		t.Errorf("Process = %v, want ErrLocked", err)
	}

	doc, _ := f.meta.GetDocument(ctx, "doc-1")
	if doc.Status != docModel.StatusUploaded {
		t.Errorf("locked document moved to %s", doc.Status)
	}
}

func TestProcessTerminalIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "doc-1")

	if err := f.orch.Process(ctx, "doc-1"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	chunkerRuns := f.chunker.calls

	if err := f.orch.Process(ctx, "doc-1"); err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if f.chunker.calls != chunkerRuns {
		t.Error("terminal document was reprocessed")
	}
}

func TestProcessUnknownDocument(t *testing.T) {
	f := newFixture(t)
	err := f.orch.Process(context.Background(), "ghost")
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("Process = %v, want ErrNotFound", err)
	}
}
