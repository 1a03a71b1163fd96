package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

// LLM-backed classifier and analyzer. Both are thin prompt adapters over a
// Generator so the provider stays swappable.

const classifyPrompt = `You are classifying a legal document from a text sample.
Pick exactly one label from: correspondence, contract, court_filing, report, memo, invoice, other.
Pick exactly one category from: substantive, administrative, junk.
Rate your confidence from 0 to 10.
Respond with JSON only: {"label": "...", "category": "...", "confidence": N}

Sample:
%s`

const analyzeGenericPrompt = `You are deciding whether a legal document is worth processing.
Reject only obvious noise: spam, empty or corrupted text, automated boilerplate with no substance.
Rate your confidence from 0 to 10 and explain in one sentence.
Respond with JSON only: {"accept": true/false, "confidence": N, "reasoning": "..."}

Document type: %s
Sample:
%s`

const analyzeCorrespondencePrompt = `You are deciding whether a piece of correspondence is relevant to a legal matter.
Reject marketing mail, newsletters, automated notifications and personal small talk.
Accept anything discussing obligations, disputes, payments, deadlines or the matter itself.
Rate your confidence from 0 to 10 and explain in one sentence.
Respond with JSON only: {"accept": true/false, "confidence": N, "reasoning": "..."}

Sample:
%s`

type llmClassifier struct {
	generator Generator
	logger    *logger_i.Logger
}

func NewLLMClassifier(g Generator) Classifier {
	return &llmClassifier{generator: g, logger: logger_i.NewLogger("Classifier")}
}

func (c *llmClassifier) ClassifyText(ctx context.Context, sample string) (Classification, error) {
	raw, err := c.generator.GenerateText(ctx, fmt.Sprintf(classifyPrompt, sample), "")
	if err != nil {
		return Classification{}, err
	}

	var parsed struct {
		Label      string  `json:"label"`
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		c.logger.Warn("classifier returned non-JSON", "raw", raw)
		return Classification{}, fmt.Errorf("parsing classification: %w", err)
	}

	return Classification{
		Label:      strings.ToLower(strings.TrimSpace(parsed.Label)),
		Category:   strings.ToLower(strings.TrimSpace(parsed.Category)),
		Confidence: clampConfidence(parsed.Confidence),
	}, nil
}

type llmAnalyzer struct {
	generator Generator
	logger    *logger_i.Logger
}

func NewLLMAnalyzer(g Generator) ContentAnalyzer {
	return &llmAnalyzer{generator: g, logger: logger_i.NewLogger("ContentAnalyzer")}
}

func (a *llmAnalyzer) AnalyzeContent(ctx context.Context, docType string, sample string) (FilterDecision, error) {
	prompt := fmt.Sprintf(analyzeGenericPrompt, docType, sample)
	if isCorrespondence(docType) {
		prompt = fmt.Sprintf(analyzeCorrespondencePrompt, sample)
	}

	raw, err := a.generator.GenerateText(ctx, prompt, "")
	if err != nil {
		return FilterDecision{}, err
	}

	var parsed struct {
		Accept     bool    `json:"accept"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		a.logger.Warn("analyzer returned non-JSON", "raw", raw)
		return FilterDecision{}, fmt.Errorf("parsing filter decision: %w", err)
	}

	return FilterDecision{
		Accept:     parsed.Accept,
		Confidence: clampConfidence(parsed.Confidence),
		Reasoning:  parsed.Reasoning,
	}, nil
}

func isCorrespondence(docType string) bool {
	t := strings.ToLower(docType)
	for _, term := range []string{"correspondence", "email", "message", "letter"} {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

// models rate 0-10, we store 0.0-1.0
func clampConfidence(v float64) float64 {
	if v > 1 {
		v = v / 10.0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
