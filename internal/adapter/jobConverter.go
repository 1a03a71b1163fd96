package adapter

import (
	"fmt"
	"time"

	"github.com/nkurra/CaseAPI/internal/api"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:     string(job.Status),
		DocumentId: job.JobPayload.DocumentId,
		Answer:     job.JobPayload.Answer,
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToDocumentResponse(doc *docModel.Document) api.DocumentResponse {
	out := api.DocumentResponse{
		Id:               doc.Id,
		CaseId:           doc.CaseId,
		Filename:         doc.Filename,
		FileType:         string(doc.FileType),
		FileSize:         doc.FileSize,
		Status:           string(doc.Status),
		RetryCount:       doc.RetryCount,
		Classification:   doc.Classification,
		ContentCategory:  doc.ContentCategory,
		FilterConfidence: doc.FilterConfidence,
		FilterReasoning:  doc.FilterReasoning,
		HasSummary:       doc.HasSummary,
		CreatedAt:        doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.ProcessingError != nil {
		out.ErrorStage = string(doc.ProcessingError.Stage)
		out.ErrorMessage = doc.ProcessingError.Message
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
