package capability

import "context"

/*
Every ML-backed operation the pipeline or the query engine consumes lives
behind one of these interfaces. The concrete model is a deployment detail -
main wires either the Gemini or the OpenAI provider and nothing downstream
knows the difference.
*/

type Classification struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type FilterDecision struct {
	Accept     bool    `json:"accept"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type Classifier interface {
	ClassifyText(ctx context.Context, sample string) (Classification, error)
}

type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, docType string, sample string) (FilterDecision, error)
}

type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string, isHugeDataSet bool) ([][]float32, error)
}

type Generator interface {
	GenerateText(ctx context.Context, prompt string, contextText string) (string, error)
}

// EntityExtractor is reserved for entity linking. Nothing in the core
// pipeline calls it yet.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}
