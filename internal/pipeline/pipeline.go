package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/classify"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/blob"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/vectorstore"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/internal/extract"
	"github.com/nkurra/CaseAPI/internal/metrics"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("pipeline")

// ErrLocked means another run already holds this document's lock. Not an
// error state, the other run is doing the work.
var ErrLocked = errors.New("document is locked by another run")

type Chunker interface {
	Chunk(ctx context.Context, doc *docModel.BlocksDocument) ([]docModel.Chunk, error)
}

type Indexer interface {
	IndexDocument(ctx context.Context, caseId string, documentId string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, doc *docModel.Document) error
}

type Extractor interface {
	Extract(documentId string, fileType docModel.FileType, data []byte) (*docModel.BlocksDocument, error)
	DetectType(filename string, data []byte) docModel.FileType
}

type defaultExtractor struct{}

func (defaultExtractor) Extract(documentId string, fileType docModel.FileType, data []byte) (*docModel.BlocksDocument, error) {
	return extract.Extract(documentId, fileType, data)
}

func (defaultExtractor) DetectType(filename string, data []byte) docModel.FileType {
	return extract.DetectType(filename, data)
}

func NewDefaultExtractor() Extractor { return defaultExtractor{} }

/*
Orchestrator drives one document through the processing pipeline. Each stage
writes its artifact first and moves the status second, so every status except
uploaded certifies that all earlier artifacts exist. A crash between artifact
and status re-runs one idempotent stage, never skips one.
*/
type Orchestrator struct {
	Meta       metadata.Store
	Blobs      blob.Store
	Vectors    vectorstore.Store
	Classifier capability.Classifier
	Analyzer   capability.ContentAnalyzer
	Chunker    Chunker
	Indexer    Indexer
	Summarizer Summarizer
	Extractor  Extractor
	Locker     jobModel.DocumentLocker
}

// Process runs the document from its current status to a terminal one. Safe
// to call on a document in any state: terminal documents are a no-op, a
// half-processed document resumes at its recorded stage.
func (o *Orchestrator) Process(ctx context.Context, documentId string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	acquired, err := o.Locker.TryLock(ctx, documentId)
	if err != nil {
		return docModel.StoreErr("acquire document lock", err)
	}
	if !acquired {
		loggr.Info("document already locked, skipping")
		return ErrLocked
	}
	defer func() {
		if err := o.Locker.Unlock(context.WithoutCancel(ctx), documentId); err != nil {
			loggr.Error("failed to release document lock", "error", err)
		}
	}()

	for {
		doc, err := o.Meta.GetDocument(ctx, documentId)
		if err != nil {
			return err
		}

		if doc.Status.Terminal() {
			loggr.Debug("document in terminal state", "status", doc.Status)
			return nil
		}

		stageStart := time.Now()
		next, err := o.runStage(ctx, doc)
		metrics.CaptureStageMetrics(string(stageOf(doc.Status)), time.Since(stageStart))
		if err != nil {
			metrics.CountDocumentOutcome("failed")
			loggr.Error("stage failed", "stage", stageOf(doc.Status), "error", err)
			if failErr := o.Meta.SetFailed(context.WithoutCancel(ctx), documentId, stageOf(doc.Status), err.Error()); failErr != nil {
				loggr.Error("failed to record failure", "error", failErr)
			}
			return err
		}

		if err := o.Meta.TransitionStatus(ctx, documentId, doc.Status, next); err != nil {
			return err
		}
		loggr.Info("stage complete", "from", doc.Status, "to", next)

		if next.Terminal() {
			metrics.CountDocumentOutcome(string(next))
			return nil
		}
	}
}

// Retry resets a failed document to the stage it failed in and reprocesses.
func (o *Orchestrator) Retry(ctx context.Context, documentId string) error {
	stage, err := o.Meta.ResetForRetry(ctx, documentId)
	if err != nil {
		return err
	}
	logger.Info("retrying document", "documentId", documentId, "stage", stage)
	return o.Process(ctx, documentId)
}

// stageOf maps a status to the stage a failure should be attributed to.
// uploaded has no stage of its own, its work belongs to detecting_type.
func stageOf(status docModel.DocumentStatus) docModel.DocumentStatus {
	if status == docModel.StatusUploaded {
		return docModel.StatusDetectingType
	}
	return status
}

// runStage executes the work of the document's current status and returns
// the status to move to. Artifacts are persisted before returning.
func (o *Orchestrator) runStage(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PipelineStageTimeout)
	defer cancel()

	switch doc.Status {
	case docModel.StatusUploaded:
		return docModel.StatusDetectingType, nil

	case docModel.StatusDetectingType:
		return o.detectType(ctx, doc)

	case docModel.StatusExtractingBlocks:
		return o.extractBlocks(ctx, doc)

	case docModel.StatusClassifying:
		return o.classifyDocument(ctx, doc)

	case docModel.StatusAnalyzingContent:
		return o.analyzeContent(ctx, doc)

	case docModel.StatusChunking:
		return o.chunkAndIndex(ctx, doc)

	case docModel.StatusSummarizing:
		return o.summarize(ctx, doc)
	}

	return "", docModel.ValidationErr("no stage for status %s", doc.Status)
}

func (o *Orchestrator) detectType(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	data, err := o.Blobs.Get(ctx, docModel.OriginalKey(doc.Id))
	if err != nil {
		return "", docModel.StoreErr("get original", err)
	}

	fileType := o.Extractor.DetectType(doc.Filename, data)
	if fileType == docModel.UNKNOWN {
		return "", docModel.UnsupportedFormatErr(doc.Filename)
	}

	if err := o.Meta.SetFileType(ctx, doc.Id, fileType); err != nil {
		return "", err
	}
	return docModel.StatusExtractingBlocks, nil
}

func (o *Orchestrator) extractBlocks(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	data, err := o.Blobs.Get(ctx, docModel.OriginalKey(doc.Id))
	if err != nil {
		return "", docModel.StoreErr("get original", err)
	}

	blocks, err := o.Extractor.Extract(doc.Id, doc.FileType, data)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(blocks)
	if err != nil {
		return "", docModel.ValidationErr("encode blocks: %v", err)
	}
	if err := o.Blobs.Put(ctx, docModel.BlocksKey(doc.Id), payload, "application/json"); err != nil {
		return "", docModel.StoreErr("put blocks artifact", err)
	}
	return docModel.StatusClassifying, nil
}

func (o *Orchestrator) loadBlocks(ctx context.Context, documentId string) (*docModel.BlocksDocument, error) {
	data, err := o.Blobs.Get(ctx, docModel.BlocksKey(documentId))
	if err != nil {
		return nil, docModel.StoreErr("get blocks artifact", err)
	}
	var blocks docModel.BlocksDocument
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, docModel.ValidationErr("decode blocks artifact: %v", err)
	}
	if blocks.SchemaVersion != docModel.BlocksSchemaVersion {
		return nil, docModel.ValidationErr("blocks artifact has schema %q, want %q",
			blocks.SchemaVersion, docModel.BlocksSchemaVersion)
	}
	return &blocks, nil
}

func (o *Orchestrator) classifyDocument(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	blocks, err := o.loadBlocks(ctx, doc.Id)
	if err != nil {
		return "", err
	}

	result := classify.Classify(ctx, o.Classifier, blocks)
	if err := o.Meta.SetClassification(ctx, doc.Id, result.Label, result.Category); err != nil {
		return "", err
	}
	return docModel.StatusAnalyzingContent, nil
}

func (o *Orchestrator) analyzeContent(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	blocks, err := o.loadBlocks(ctx, doc.Id)
	if err != nil {
		return "", err
	}

	decision, err := classify.Analyze(ctx, o.Analyzer, doc.Classification, blocks)
	if err != nil {
		return "", err
	}

	if err := o.Meta.SetFilterDecision(ctx, doc.Id, decision.Confidence, decision.Reasoning); err != nil {
		return "", err
	}

	if !decision.Accept {
		logger.Info("document filtered out", "documentId", doc.Id, "reasoning", decision.Reasoning)
		return docModel.StatusFilteredOut, nil
	}
	return docModel.StatusChunking, nil
}

// chunkAndIndex covers both chunk production and vector indexing. On resume
// existing chunk rows are reused rather than re-chunked, so vector progress
// marks survive and indexing picks up at the first unmarked chunk.
func (o *Orchestrator) chunkAndIndex(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	existing, err := o.Meta.GetChunks(ctx, doc.Id)
	if err != nil {
		return "", err
	}

	if len(existing) == 0 {
		blocks, err := o.loadBlocks(ctx, doc.Id)
		if err != nil {
			return "", err
		}

		chunks, err := o.Chunker.Chunk(ctx, blocks)
		if err != nil {
			return "", err
		}

		//clear any orphaned points from an earlier half-indexed run
		if err := o.Vectors.DeleteByDocument(ctx, doc.Id); err != nil {
			return "", docModel.StoreErr("clear stale vectors", err)
		}

		set := docModel.ChunkSet{
			DocumentId:  doc.Id,
			CaseId:      doc.CaseId,
			TotalChunks: len(chunks),
			Chunks:      chunks,
		}
		payload, err := json.Marshal(set)
		if err != nil {
			return "", docModel.ValidationErr("encode chunk set: %v", err)
		}
		if err := o.Blobs.Put(ctx, docModel.ChunkSetKey(doc.Id), payload, "application/json"); err != nil {
			return "", docModel.StoreErr("put chunk set", err)
		}

		if err := o.Meta.ReplaceChunks(ctx, doc.Id, chunks); err != nil {
			return "", err
		}
	}

	if err := o.Indexer.IndexDocument(ctx, doc.CaseId, doc.Id); err != nil {
		return "", err
	}
	return docModel.StatusSummarizing, nil
}

func (o *Orchestrator) summarize(ctx context.Context, doc *docModel.Document) (docModel.DocumentStatus, error) {
	if err := o.Summarizer.Summarize(ctx, doc); err != nil {
		return "", err
	}
	if err := o.Meta.SetHasSummary(ctx, doc.Id); err != nil {
		return "", err
	}
	return docModel.StatusCompleted, nil
}
