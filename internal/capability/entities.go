package capability

import (
	"context"
	"encoding/json"
	"fmt"
)

const extractEntitiesPrompt = `Extract named entities (people, organizations, dates, amounts, locations) from the text.
Respond with JSON only: [{"text": "...", "type": "person|organization|date|amount|location"}]

Text:
%s`

type llmEntityExtractor struct {
	generator Generator
}

// NewLLMEntityExtractor backs the reserved entity capability with the
// generator. Kept for the future entity-linking path.
func NewLLMEntityExtractor(g Generator) EntityExtractor {
	return &llmEntityExtractor{generator: g}
}

func (e *llmEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	raw, err := e.generator.GenerateText(ctx, fmt.Sprintf(extractEntitiesPrompt, text), "")
	if err != nil {
		return nil, err
	}

	var entities []Entity
	if err := json.Unmarshal([]byte(stripFences(raw)), &entities); err != nil {
		return nil, fmt.Errorf("parsing entities: %w", err)
	}
	return entities, nil
}
