package jobModel

import (
	"context"
	"time"

	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

type JobStatus string
type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	JobTypeProcess JobType = "Process"
	JobTypeRetry   JobType = "Retry"
	JobTypeQuery   JobType = "Query"
)

type Job struct {
	Id          string     `json:"id"`
	TraceId     string     `json:"trace_id"`
	JobType     JobType    `json:"job_type"`
	JobPayload  JobPayload `json:"job_payload"`
	Error       JobError   `json:"error,omitempty"`
	CreatedTime time.Time  `json:"created_time"`
	EndTime     time.Time  `json:"end_time,omitempty"`
	Status      JobStatus  `json:"status"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	//process + retry jobs
	DocumentId string `json:"document_id,omitempty"`

	//query jobs
	CaseId   string             `json:"case_id,omitempty"`
	Question string             `json:"question,omitempty"`
	Answer   *queryModel.Answer `json:"answer,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobId string)
}

// DocumentLocker is the advisory per-document lock behind the orchestrator's
// mutual exclusion rule: at most one Process invocation per document id.
type DocumentLocker interface {
	TryLock(ctx context.Context, documentId string) (bool, error)
	Unlock(ctx context.Context, documentId string) error
}
