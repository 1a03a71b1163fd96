package docModel

import "time"

type DocumentStatus string

const (
	StatusUploaded         DocumentStatus = "uploaded"
	StatusDetectingType    DocumentStatus = "detecting_type"
	StatusExtractingBlocks DocumentStatus = "extracting_blocks"
	StatusClassifying      DocumentStatus = "classifying"
	StatusAnalyzingContent DocumentStatus = "analyzing_content"
	StatusFilteredOut      DocumentStatus = "filtered_out"
	StatusChunking         DocumentStatus = "chunking"
	StatusSummarizing      DocumentStatus = "summarizing"
	StatusCompleted        DocumentStatus = "completed"
	StatusFailed           DocumentStatus = "failed"
)

// StageOrder is the fixed pipeline order. filtered_out branches off after
// analyzing_content and failed is reachable from any non-terminal status.
var StageOrder = []DocumentStatus{
	StatusUploaded,
	StatusDetectingType,
	StatusExtractingBlocks,
	StatusClassifying,
	StatusAnalyzingContent,
	StatusChunking,
	StatusSummarizing,
	StatusCompleted,
}

func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusFilteredOut
}

// Stage reports whether s names a runnable pipeline stage (as opposed to a
// terminal state or the initial uploaded marker).
func (s DocumentStatus) Stage() bool {
	switch s {
	case StatusDetectingType, StatusExtractingBlocks, StatusClassifying,
		StatusAnalyzingContent, StatusChunking, StatusSummarizing:
		return true
	}
	return false
}

// ValidNext reports whether the edge s -> next exists in the state machine.
// Resetting failed back to a stage is the retry path and is validated
// separately by the metadata store.
func (s DocumentStatus) ValidNext(next DocumentStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusUploaded:
		return next == StatusDetectingType
	case StatusDetectingType:
		return next == StatusExtractingBlocks
	case StatusExtractingBlocks:
		return next == StatusClassifying
	case StatusClassifying:
		return next == StatusAnalyzingContent
	case StatusAnalyzingContent:
		return next == StatusChunking || next == StatusFilteredOut
	case StatusChunking:
		return next == StatusSummarizing
	case StatusSummarizing:
		return next == StatusCompleted
	}
	return false
}

type FileType string

const (
	PDF     FileType = "pdf"
	DOCX    FileType = "docx"
	TXT     FileType = "txt"
	RTF     FileType = "rtf"
	UNKNOWN FileType = "unknown"
)

type ProcessingError struct {
	Stage   DocumentStatus `json:"stage"`
	Message string         `json:"message"`
}

type Document struct {
	Id       string   `json:"id" db:"id"`
	CaseId   string   `json:"case_id" db:"case_id"`
	Filename string   `json:"filename" db:"filename"`
	FileType FileType `json:"file_type" db:"file_type"`
	FileSize int64    `json:"file_size" db:"file_size"`

	//pointer to the original bytes in the blob store
	BlobKey string `json:"blob_key" db:"blob_key"`

	Status          DocumentStatus   `json:"status" db:"status"`
	ProcessingError *ProcessingError `json:"processing_error,omitempty"`
	RetryCount      int              `json:"retry_count" db:"retry_count"`

	Classification   string   `json:"classification,omitempty" db:"classification"`
	ContentCategory  string   `json:"content_category,omitempty" db:"content_category"`
	FilterConfidence *float64 `json:"filter_confidence,omitempty" db:"filter_confidence"`
	FilterReasoning  string   `json:"filter_reasoning,omitempty" db:"filter_reasoning"`

	HasSummary bool      `json:"has_summary" db:"has_summary"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

//blob store keys, one prefix per document

func OriginalKey(documentId string) string   { return documentId + "/original" }
func BlocksKey(documentId string) string     { return documentId + "/extraction/blocks" }
func ChunkSetKey(documentId string) string   { return documentId + "/chunks" }
