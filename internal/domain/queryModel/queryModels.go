package queryModel

import "time"

// Citation points an answer statement back at the chunk it was generated
// from. Marker is the inline [n] reference the generator was told to emit.
type Citation struct {
	Marker     int     `json:"marker"`
	DocumentId string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

type Answer struct {
	Question  string     `json:"question"`
	CaseId    string     `json:"case_id"`
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	//set when one retrieval store was unavailable and the answer was built
	//from the other alone
	PartialEvidence bool `json:"partial_evidence,omitempty"`
	NoEvidence      bool `json:"no_evidence,omitempty"`
}

// KeywordHit is one scored document from the search index store.
type KeywordHit struct {
	DocumentId string
	Score      float64
	Summary    string
}

// VectorHit is one scored chunk match from the vector store.
type VectorHit struct {
	DocumentId string
	ChunkIndex int
	Score      float64
	Preview    string
}

// RankedDocument is the fusion output: one document with its combined score
// and the signals that produced it.
type RankedDocument struct {
	DocumentId   string
	FusedScore   float64
	KeywordScore float64
	VectorScore  float64
	InBoth       bool
	CreatedAt    time.Time
}

// BestSignal returns the stronger of the raw per-signal scores, the first
// tie-break between equal fused scores.
func (r RankedDocument) BestSignal() float64 {
	if r.KeywordScore > r.VectorScore {
		return r.KeywordScore
	}
	return r.VectorScore
}
