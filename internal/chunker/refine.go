package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
)

const refinePrompt = `You are splitting a legal document passage into smaller coherent chunks.
Split the passage into pieces of at most %d characters each, breaking at
clause or sentence boundaries. The pieces concatenated in order MUST
reproduce the passage exactly, byte for byte, including all whitespace.
Respond with ONLY a JSON array of strings, no other text.`

// refineOversized sends any chunk over the size bound through one LLM split
// attempt. The model's answer is only trusted if the pieces concatenate back
// to the original text exactly, anything else falls back to a deterministic
// whitespace split.
func (c *Chunker) refineOversized(ctx context.Context, bodyText string, candidates []candidate) ([]candidate, error) {
	var out []candidate
	for _, cand := range candidates {
		if cand.span.End-cand.span.Start <= config.MaxChunkChars {
			out = append(out, cand)
			continue
		}

		text := bodyText[cand.span.Start:cand.span.End]
		pieces := c.llmSplit(ctx, text)
		if pieces == nil {
			pieces = fallbackSplit(text)
		}

		pos := cand.span.Start
		for _, p := range pieces {
			out = append(out, candidate{
				span:   span{Start: pos, End: pos + len(p)},
				method: docModel.MethodLLMRefined,
			})
			pos += len(p)
		}
	}
	return out, nil
}

// llmSplit returns nil when the model's split cannot be validated.
func (c *Chunker) llmSplit(ctx context.Context, text string) []string {
	if c.generator == nil {
		return nil
	}

	prompt := fmt.Sprintf(refinePrompt, config.MaxChunkChars)
	raw, err := c.generator.GenerateText(ctx, prompt, text)
	if err != nil {
		logger.Warn("llm refinement failed, using fallback split", "error", err)
		return nil
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var pieces []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &pieces); err != nil {
		logger.Warn("llm refinement returned unparseable output")
		return nil
	}
	if len(pieces) < 2 || strings.Join(pieces, "") != text {
		logger.Warn("llm refinement did not round-trip, using fallback split")
		return nil
	}
	for _, p := range pieces {
		if len(p) > config.MaxChunkChars || len(strings.Fields(p)) == 0 {
			return nil
		}
	}
	return pieces
}

// fallbackSplit cuts at the last whitespace before the size bound, keeping
// the whitespace with the preceding piece.
func fallbackSplit(text string) []string {
	var pieces []string
	for len(text) > config.MaxChunkChars {
		cut := lastSpaceBefore(text, config.MaxChunkChars)
		if cut <= 0 {
			cut = config.MaxChunkChars //no whitespace at all, hard cut
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

func lastSpaceBefore(text string, limit int) int {
	cut := -1
	for i, r := range text {
		if i >= limit {
			break
		}
		if unicode.IsSpace(r) {
			end := i + utf8.RuneLen(r)
			if end > limit {
				//multi-byte space straddling the bound goes to the next piece
				end = i
			}
			if end > 0 {
				cut = end
			}
		}
	}
	return cut
}
