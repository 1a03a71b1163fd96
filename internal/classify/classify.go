package classify

import (
	"context"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("classify")

// Result carries the classification label plus the stored category. Failure
// degrades to "unknown" instead of failing the document, classification is
// advisory.
type Result struct {
	Label    string
	Category string
}

func Classify(ctx context.Context, classifier capability.Classifier, doc *docModel.BlocksDocument) Result {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	sample := SampleBlocks(doc)
	if sample == "" {
		return Result{Label: "unknown", Category: "unknown"}
	}

	c, err := classifier.ClassifyText(ctx, sample)
	if err != nil {
		loggr.Warn("classification failed, continuing as unknown", "documentId", doc.DocumentId, "error", err)
		return Result{Label: "unknown", Category: "unknown"}
	}
	if c.Label == "" {
		c.Label = "unknown"
	}
	if c.Category == "" {
		c.Category = c.Label
	}
	return Result{Label: c.Label, Category: c.Category}
}

// Analyze runs the content relevance filter. Unlike classification this one
// is load bearing: an error fails the stage, and a confident reject sends the
// document to filtered_out.
func Analyze(ctx context.Context, analyzer capability.ContentAnalyzer, docType string, doc *docModel.BlocksDocument) (capability.FilterDecision, error) {
	sample := SampleBlocks(doc)
	decision, err := analyzer.AnalyzeContent(ctx, docType, sample)
	if err != nil {
		return capability.FilterDecision{}, docModel.CapabilityErr("analyze content", err)
	}

	// A low confidence reject is treated as accept. Dropping evidence needs
	// conviction, keeping it does not.
	if !decision.Accept && decision.Confidence < config.ClassifyMinConfidence {
		decision.Accept = true
	}
	return decision, nil
}
