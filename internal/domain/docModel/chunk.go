package docModel

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChunkMethod string

const (
	MethodStructural ChunkMethod = "structural"
	MethodSemantic   ChunkMethod = "semantic"
	MethodLLMRefined ChunkMethod = "llm_refined"
)

type Chunk struct {
	DocumentId  string      `json:"document_id" db:"document_id"`
	Index       int         `json:"chunk_index" db:"chunk_index"`
	Text        string      `json:"text" db:"text"`
	BlockStart  int         `json:"block_start" db:"block_start"`
	BlockEnd    int         `json:"block_end" db:"block_end"` //inclusive
	Method      ChunkMethod `json:"method" db:"method"`
	WordCount   int         `json:"word_count" db:"word_count"`
	SectionType string      `json:"section_type,omitempty" db:"section_type"`
	//set once the chunk's embedding batch has landed in the vector store
	VectorId  string    `json:"vector_id,omitempty" db:"vector_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChunkSet is the blob artifact written alongside the metadata rows. The two
// must agree on count and order or the set is invalid.
type ChunkSet struct {
	DocumentId  string  `json:"document_id"`
	CaseId      string  `json:"case_id"`
	TotalChunks int     `json:"total_chunks"`
	Chunks      []Chunk `json:"chunks"`
}

var chunkIdSpace = uuid.MustParse("8dfd7169-2f6a-4f43-a1f0-2cc64517db41")

// ChunkVectorId derives the vector store point id from document id and chunk
// index. Deterministic so re-upserting after a partial failure overwrites
// instead of duplicating.
func ChunkVectorId(documentId string, index int) string {
	return uuid.NewSHA1(chunkIdSpace, []byte(fmt.Sprintf("%s/%d", documentId, index))).String()
}
