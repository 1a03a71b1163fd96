package api

import (
	"time"

	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status     string             `json:"status"`
	DocumentId string             `json:"document_id,omitempty"`
	Answer     *queryModel.Answer `json:"answer,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type DocumentResponse struct {
	Id               string   `json:"id"`
	CaseId           string   `json:"case_id"`
	Filename         string   `json:"filename"`
	FileType         string   `json:"file_type"`
	FileSize         int64    `json:"file_size"`
	Status           string   `json:"status"`
	RetryCount       int      `json:"retry_count"`
	Classification   string   `json:"classification,omitempty"`
	ContentCategory  string   `json:"content_category,omitempty"`
	FilterConfidence *float64 `json:"filter_confidence,omitempty"`
	FilterReasoning  string   `json:"filter_reasoning,omitempty"`
	HasSummary       bool     `json:"has_summary"`
	ErrorStage       string   `json:"error_stage,omitempty"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type UploadResponse struct {
	DocumentId string `json:"document_id"`
	JobId      string `json:"job_id"`
	StatusURL  string `json:"status_url"`
}

type CaseDocumentsResponse struct {
	CaseId    string             `json:"case_id"`
	Documents []DocumentResponse `json:"documents"`
}

// requests---------------------

type QueryRequest struct {
	CaseId   string `json:"case_id" validate:"required"`
	Question string `json:"question" validate:"required"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}
