package worker

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	jobmodel "github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/internal/metrics"
	"github.com/nkurra/CaseAPI/internal/pipeline"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.DocumentLockTTL)
	defer cancel()
	logger.With("trace Id ", job.TraceId)
	logger.Debug("Processing job:", "job Id:", job.Id)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	var err error
	switch job.JobType {
	case jobmodel.JobTypeProcess:
		err = _orchestrator.Process(ctx, job.JobPayload.DocumentId)

	case jobmodel.JobTypeRetry:
		err = _orchestrator.Retry(ctx, job.JobPayload.DocumentId)

	case jobmodel.JobTypeQuery:
		job.JobPayload.Answer, err = _queryEngine.Answer(ctx, job.JobPayload.CaseId, job.JobPayload.Question)

	default:
		err = docModel.ValidationErr("unknown job type %s", job.JobType)
	}

	job.EndTime = time.Now()
	if err != nil && !errors.Is(err, pipeline.ErrLocked) {
		job.Error = toJobError(err)
		saveJobState(ctx, job, jobmodel.JobStatusError)
		return
	}
	saveJobState(ctx, job, jobmodel.JobStatusComplete)
}

// toJobError maps the pipeline error taxonomy onto the job's outward error.
func toJobError(err error) jobmodel.JobError {
	code := http.StatusInternalServerError
	switch docModel.KindOf(err) {
	case docModel.ErrUnsupportedFormat, docModel.ErrValidation:
		code = http.StatusUnprocessableEntity
	case docModel.ErrBudgetExceeded:
		code = http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, metadata.ErrNotFound) {
		code = http.StatusNotFound
	}
	if errors.Is(err, metadata.ErrRetryExhausted) {
		code = http.StatusConflict
	}
	return jobmodel.JobError{
		Code:    code,
		Message: err.Error(),
		Retry:   docModel.Retryable(err),
	}
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update status in Redis", "err", err)
	}
}
