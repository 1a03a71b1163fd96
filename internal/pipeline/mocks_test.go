package pipeline

import (
	"context"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

type mockClassifier struct {
	classifyFn func(ctx context.Context, sample string) (capability.Classification, error)
}

func (m *mockClassifier) ClassifyText(ctx context.Context, sample string) (capability.Classification, error) {
	if m.classifyFn == nil {
		return capability.Classification{Label: "contract", Category: "agreements", Confidence: 0.9}, nil
	}
	return m.classifyFn(ctx, sample)
}

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, docType, sample string) (capability.FilterDecision, error)
}

func (m *mockAnalyzer) AnalyzeContent(ctx context.Context, docType, sample string) (capability.FilterDecision, error) {
	if m.analyzeFn == nil {
		return capability.FilterDecision{Accept: true, Confidence: 0.9}, nil
	}
	return m.analyzeFn(ctx, docType, sample)
}

type mockChunker struct {
	chunkFn func(ctx context.Context, doc *docModel.BlocksDocument) ([]docModel.Chunk, error)
	calls   int
}

func (m *mockChunker) Chunk(ctx context.Context, doc *docModel.BlocksDocument) ([]docModel.Chunk, error) {
	m.calls++
	if m.chunkFn == nil {
		return []docModel.Chunk{
			{DocumentId: doc.DocumentId, Index: 0, Text: "chunk zero", WordCount: 2, Method: docModel.MethodStructural},
			{DocumentId: doc.DocumentId, Index: 1, Text: "chunk one", WordCount: 2, Method: docModel.MethodStructural},
		}, nil
	}
	return m.chunkFn(ctx, doc)
}

type mockIndexer struct {
	indexFn func(ctx context.Context, caseId, documentId string) error
	calls   int
}

func (m *mockIndexer) IndexDocument(ctx context.Context, caseId string, documentId string) error {
	m.calls++
	if m.indexFn == nil {
		return nil
	}
	return m.indexFn(ctx, caseId, documentId)
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, doc *docModel.Document) error
	calls       int
}

func (m *mockSummarizer) Summarize(ctx context.Context, doc *docModel.Document) error {
	m.calls++
	if m.summarizeFn == nil {
		return nil
	}
	return m.summarizeFn(ctx, doc)
}

type mockExtractor struct {
	detectFn  func(filename string, data []byte) docModel.FileType
	extractFn func(documentId string, fileType docModel.FileType, data []byte) (*docModel.BlocksDocument, error)
}

func (m *mockExtractor) DetectType(filename string, data []byte) docModel.FileType {
	if m.detectFn == nil {
		return docModel.TXT
	}
	return m.detectFn(filename, data)
}

func (m *mockExtractor) Extract(documentId string, fileType docModel.FileType, data []byte) (*docModel.BlocksDocument, error) {
	if m.extractFn == nil {
		return &docModel.BlocksDocument{
			SchemaVersion: docModel.BlocksSchemaVersion,
			DocumentId:    documentId,
			PageCount:     1,
			TotalBlocks:   1,
			Pages: []docModel.Page{{
				Index:  1,
				Blocks: []docModel.Block{{Index: 0, Text: "Some body text.", Kind: docModel.KindParagraph}},
			}},
		}, nil
	}
	return m.extractFn(documentId, fileType, data)
}

type mockVectors struct {
	deleteFn func(ctx context.Context, documentId string) error
	deletes  int
}

func (m *mockVectors) UpsertBatch(ctx context.Context, caseId string, chunks []docModel.Chunk, vectors [][]float32) error {
	return nil
}

func (m *mockVectors) Query(ctx context.Context, caseId string, vector []float32, topK int) ([]queryModel.VectorHit, error) {
	return nil, nil
}

func (m *mockVectors) DeleteByDocument(ctx context.Context, documentId string) error {
	m.deletes++
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, documentId)
}
