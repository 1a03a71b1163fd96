package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("chunker")

/*
Chunking is tiered. The structural pass groups whole blocks under headings
and numbered clauses; if every group fits the size bound that result wins.
Otherwise the semantic pass splits on sentence embedding similarity, and any
chunk the semantic pass could not fit gets one LLM refinement attempt with a
deterministic fallback.

All passes produce byte spans over the body text, never rewritten strings, so
the chunk texts concatenated in order always equal the body text exactly.
*/

type Chunker struct {
	embedder  capability.Embedder
	generator capability.Generator
}

func New(embedder capability.Embedder, generator capability.Generator) *Chunker {
	return &Chunker{embedder: embedder, generator: generator}
}

type candidate struct {
	span   span
	method docModel.ChunkMethod
}

func (c *Chunker) Chunk(ctx context.Context, doc *docModel.BlocksDocument) ([]docModel.Chunk, error) {
	bodyText := doc.BodyText()
	if bodyText == "" {
		return nil, docModel.ValidationErr("document %s has no body text", doc.DocumentId)
	}

	blocks := doc.BodyBlocks()
	offsets := blockOffsets(blocks)

	candidates, ok := c.structuralPass(bodyText, blocks, offsets)
	if !ok {
		var err error
		candidates, err = c.semanticPass(ctx, bodyText)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := c.refineOversized(ctx, bodyText, candidates)
	if err != nil {
		return nil, err
	}

	return c.build(doc.DocumentId, bodyText, blocks, offsets, candidates)
}

// blockOffsets returns the byte offset of each body block within the body
// text, which is the blocks joined by "\n\n".
func blockOffsets(blocks []docModel.Block) []int {
	offsets := make([]int, len(blocks))
	pos := 0
	for i, b := range blocks {
		offsets[i] = pos
		pos += len(b.Text)
		if i < len(blocks)-1 {
			pos += 2 //the "\n\n" joiner
		}
	}
	return offsets
}

// structuralPass groups whole blocks into chunks, starting a new chunk at
// each heading or numbered clause. It succeeds only when every group fits
// MaxChunkChars.
func (c *Chunker) structuralPass(bodyText string, blocks []docModel.Block, offsets []int) ([]candidate, bool) {
	if len(blocks) == 0 {
		return nil, false
	}

	blockEnd := func(i int) int {
		if i == len(blocks)-1 {
			return len(bodyText)
		}
		return offsets[i+1]
	}

	var candidates []candidate
	groupStart := 0
	for i := 1; i <= len(blocks); i++ {
		boundary := i == len(blocks) ||
			blocks[i].Kind == docModel.KindHeading ||
			blockEnd(i-1)-offsets[groupStart]+len(blocks[i].Text) > config.MaxChunkChars

		if !boundary {
			continue
		}

		sp := span{Start: offsets[groupStart], End: blockEnd(i - 1)}
		if sp.End-sp.Start > config.MaxChunkChars {
			return nil, false //a single block or heading group overflows
		}
		candidates = append(candidates, candidate{span: sp, method: docModel.MethodStructural})
		groupStart = i
	}

	return candidates, true
}

// semanticPass splits the body text on sentence embedding similarity. A new
// chunk starts where adjacent sentences drop below the similarity threshold
// or where the size bound would be crossed.
func (c *Chunker) semanticPass(ctx context.Context, bodyText string) ([]candidate, error) {
	sentences := sentenceSpans(bodyText)
	if len(sentences) == 0 {
		return nil, docModel.ValidationErr("no sentences found in body text")
	}

	texts := make([]string, len(sentences))
	for i, sp := range sentences {
		texts[i] = bodyText[sp.Start:sp.End]
	}

	vectors, err := c.embedSentences(ctx, texts)
	if err != nil {
		return nil, docModel.CapabilityErr("embed sentences", err)
	}

	var candidates []candidate
	start := sentences[0].Start
	for i := 1; i <= len(sentences); i++ {
		boundary := i == len(sentences)
		if !boundary {
			size := sentences[i-1].End - start
			if size+len(texts[i]) > config.MaxChunkChars {
				boundary = true
			} else if cosineSimilarity(vectors[i-1], vectors[i]) < config.SimilarityThreshold {
				boundary = true
			}
		}
		if boundary {
			candidates = append(candidates, candidate{
				span:   span{Start: start, End: sentences[i-1].End},
				method: docModel.MethodSemantic,
			})
			if i < len(sentences) {
				start = sentences[i].Start
			}
		}
	}
	return candidates, nil
}

func (c *Chunker) embedSentences(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += config.SentenceEmbedBatch {
		end := i + config.SentenceEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedder.BatchEmbedding(ctx, texts[i:end], len(texts) > config.SentenceEmbedBatch)
		if err != nil {
			return nil, err
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("expected %d sentence vectors, got %d", end-i, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Chunker) build(documentId, bodyText string, blocks []docModel.Block, offsets []int, candidates []candidate) ([]docModel.Chunk, error) {
	chunks := make([]docModel.Chunk, 0, len(candidates))
	pos := 0
	for i, cand := range candidates {
		if cand.span.Start != pos {
			return nil, docModel.ValidationErr("chunk %d does not start where chunk %d ended", i, i-1)
		}
		pos = cand.span.End

		text := bodyText[cand.span.Start:cand.span.End]
		words := len(strings.Fields(text))
		if words == 0 {
			return nil, docModel.ValidationErr("chunk %d has no words", i)
		}

		first, last := coveredBlocks(offsets, blocks, cand.span)
		chunk := docModel.Chunk{
			DocumentId: documentId,
			Index:      i,
			Text:       text,
			BlockStart: blocks[first].Index,
			BlockEnd:   blocks[last].Index,
			Method:     cand.method,
			WordCount:  words,
		}
		if blocks[first].Kind == docModel.KindHeading && offsets[first] == cand.span.Start {
			chunk.SectionType = blocks[first].Text
		}
		chunks = append(chunks, chunk)
	}

	if pos != len(bodyText) {
		return nil, docModel.ValidationErr("chunks cover %d of %d body bytes", pos, len(bodyText))
	}
	return chunks, nil
}

// coveredBlocks finds the first and last body block indices a span touches.
func coveredBlocks(offsets []int, blocks []docModel.Block, sp span) (int, int) {
	first, last := 0, len(blocks)-1
	for i := range blocks {
		end := len(blocks[i].Text) + offsets[i]
		if sp.Start < end {
			first = i
			break
		}
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if offsets[i] < sp.End {
			last = i
			break
		}
	}
	if last < first {
		last = first
	}
	return first, last
}
