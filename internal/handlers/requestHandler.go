package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/nkurra/CaseAPI/internal/adapter"
	"github.com/nkurra/CaseAPI/internal/adapter/utils"
	"github.com/nkurra/CaseAPI/internal/api"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id         string
	traceId    string
	jobType    jobModel.JobType
	documentId string
	caseId     string
	question   string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// UploadDocumentHandler godoc
// @Summary      Upload a case document
// @Description  Receives a file via multipart/form-data, stores the original bytes, registers the document and queues a processing job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        caseId    path      string  true  "Case ID"
// @Param        document  formData  file    true  "The PDF, DOCX, RTF or TXT file to upload"
// @Success      202  {object}  api.UploadResponse  "Accepted - document registered and queued"
// @Failure      400  {object}  api.JobResponse     "Bad Request - missing fields or file too large"
// @Failure      500  {object}  api.JobResponse     "Internal Server Error - storage failure"
// @Router       /cases/{caseId}/documents [post]
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	caseId := utils.GetChiURLParam(r, "caseId")
	if strings.TrimSpace(caseId) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "caseId is required")
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	data, err := io.ReadAll(io.LimitReader(fileReader, config.MaxUploadBytes+1))
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Read error")
		return
	}
	if int64(len(data)) > config.MaxUploadBytes {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large")
		return
	}
	if len(data) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Empty file")
		return
	}

	documentId := utils.GetNewUUID()
	blobKey := docModel.OriginalKey(documentId)
	if err := handlerInstance.service.Blobs.Put(r.Context(), blobKey, data, fileMetadata.Header.Get("Content-Type")); err != nil {
		logRH.Error("Failed to store original", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "Storage error")
		return
	}

	doc := &docModel.Document{
		Id:       documentId,
		CaseId:   caseId,
		Filename: fileMetadata.Filename,
		FileSize: int64(len(data)),
		BlobKey:  blobKey,
		Status:   docModel.StatusUploaded,
	}
	if err := handlerInstance.service.Meta.CreateDocument(r.Context(), doc); err != nil {
		logRH.Error("Failed to register document", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "Storage error")
		return
	}

	jobData := newJobData{
		id:         utils.GetNewUUID(),
		traceId:    r.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:    jobModel.JobTypeProcess,
		documentId: documentId,
		caseId:     caseId,
	}
	CreateNewJob(jobData)

	writeJsonResponse(w, http.StatusAccepted, api.UploadResponse{
		DocumentId: documentId,
		JobId:      jobData.id,
		StatusURL:  "status/" + jobData.id,
	})
}

// ProcessDocumentHandler godoc
// @Summary      Queue document processing
// @Description  Queues a processing job for a registered document. Safe to call on a half-processed document, it resumes at its recorded stage.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse  "Job successfully created"
// @Failure      404  {object}  api.JobResponse      "Document not found"
// @Router       /documents/{id}/process [post]
func ProcessDocumentHandler(w http.ResponseWriter, r *http.Request) {
	queueDocumentJob(w, r, jobModel.JobTypeProcess)
}

// RetryDocumentHandler godoc
// @Summary      Retry a failed document
// @Description  Resets a failed document to the stage it failed in and queues reprocessing. Refused when the retry budget is exhausted.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse  "Retry job created"
// @Failure      404  {object}  api.JobResponse      "Document not found"
// @Failure      409  {object}  api.JobResponse      "Document is not failed or retries exhausted"
// @Router       /documents/{id}/retry [post]
func RetryDocumentHandler(w http.ResponseWriter, r *http.Request) {
	queueDocumentJob(w, r, jobModel.JobTypeRetry)
}

func queueDocumentJob(w http.ResponseWriter, r *http.Request, jobType jobModel.JobType) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	documentId := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.Meta.GetDocument(r.Context(), documentId)
	if err == metadata.ErrNotFound {
		WriteErrorResponse(w, http.StatusNotFound, documentId, "Document not found")
		return
	}
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "Storage error")
		return
	}

	if jobType == jobModel.JobTypeRetry {
		if doc.Status != docModel.StatusFailed {
			WriteErrorResponse(w, http.StatusConflict, documentId, "Document is not in a failed state")
			return
		}
		if doc.RetryCount > config.MaxRetryCount {
			WriteErrorResponse(w, http.StatusConflict, documentId, "Retry budget exhausted")
			return
		}
	}

	jobData := newJobData{
		id:         utils.GetNewUUID(),
		traceId:    r.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:    jobType,
		documentId: documentId,
		caseId:     doc.CaseId,
	}
	CreateNewJob(jobData)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(jobData.id))
}

// GetDocumentHandler godoc
// @Summary      Get document status
// @Description  Returns the document record including its pipeline status, classification and failure details.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse  "The document record"
// @Failure      404  {object}  api.JobResponse       "Document not found"
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	documentId := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.Meta.GetDocument(r.Context(), documentId)
	if err == metadata.ErrNotFound {
		WriteErrorResponse(w, http.StatusNotFound, documentId, "Document not found")
		return
	}
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// ListCaseDocumentsHandler godoc
// @Summary      List case documents
// @Description  Lists all documents of a case, optionally filtered by pipeline status via the status query parameter.
// @Tags         Documents
// @Produce      json
// @Param        caseId  path   string  true   "Case ID"
// @Param        status  query  string  false  "Filter by document status"
// @Success      200  {object}  api.CaseDocumentsResponse
// @Router       /cases/{caseId}/documents [get]
func ListCaseDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	caseId := utils.GetChiURLParam(r, "caseId")
	status := docModel.DocumentStatus(r.URL.Query().Get("status"))
	docs, err := handlerInstance.service.Meta.ListByCase(r.Context(), caseId, status)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, caseId, "Storage error")
		return
	}

	out := api.CaseDocumentsResponse{CaseId: caseId, Documents: []api.DocumentResponse{}}
	for i := range docs {
		out.Documents = append(out.Documents, adapter.ToDocumentResponse(&docs[i]))
	}
	writeJsonResponse(w, http.StatusOK, out)
}

// QueryHandler godoc
// @Summary      Ask a question about a case
// @Description  Accepts a question scoped to a case, queues an answering job and returns a job ID to track status.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest     true  "Case ID and question"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data"
// @Router       /query [post]
func QueryHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request ", request.RemoteAddr)
		return
	}

	var requestData api.QueryRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Query handler reader :", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil ||
		strings.TrimSpace(requestData.CaseId) == "" || strings.TrimSpace(requestData.Question) == "" {
		logRH.Warn("Bad Query Request: ", "error:", err, "request data:", requestData)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	jobData := newJobData{
		id:       utils.GetNewUUID(),
		traceId:  request.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:  jobModel.JobTypeQuery,
		caseId:   requestData.CaseId,
		question: requestData.Question,
	}
	CreateNewJob(jobData)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(jobData.id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}
