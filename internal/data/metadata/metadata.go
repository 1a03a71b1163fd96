package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var log = logger_i.NewLogger("metadataStore")

var ErrNotFound = errors.New("document not found")

// ErrStaleStatus means a status transition lost a compare-and-swap: the row's
// current status no longer matches the expected one.
var ErrStaleStatus = errors.New("document status changed underneath transition")

var ErrRetryExhausted = errors.New("retry count exhausted")

type Store interface {
	CreateDocument(ctx context.Context, doc *docModel.Document) error
	GetDocument(ctx context.Context, documentId string) (*docModel.Document, error)
	ListByCase(ctx context.Context, caseId string, status docModel.DocumentStatus) ([]docModel.Document, error)

	// TransitionStatus moves the document from expected current status to next.
	// The edge must exist in the state machine and the row must still hold
	// the expected status, otherwise nothing is written.
	TransitionStatus(ctx context.Context, documentId string, current, next docModel.DocumentStatus) error
	SetFailed(ctx context.Context, documentId string, stage docModel.DocumentStatus, message string) error
	// ResetForRetry moves a failed document back to the stage it failed in.
	// Refused once retry_count reaches the cap.
	ResetForRetry(ctx context.Context, documentId string) (docModel.DocumentStatus, error)

	SetFileType(ctx context.Context, documentId string, fileType docModel.FileType) error
	SetClassification(ctx context.Context, documentId string, label, category string) error
	SetFilterDecision(ctx context.Context, documentId string, confidence float64, reasoning string) error
	SetHasSummary(ctx context.Context, documentId string) error

	ReplaceChunks(ctx context.Context, documentId string, chunks []docModel.Chunk) error
	MarkChunkVectors(ctx context.Context, documentId string, fromIndex, toIndex int) error
	GetChunks(ctx context.Context, documentId string) ([]docModel.Chunk, error)
}

type sqlStore struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

// documentRow mirrors the documents table. processing_error is stored as a
// JSON blob so it round-trips the stage alongside the message.
type documentRow struct {
	Id               string          `db:"id"`
	CaseId           string          `db:"case_id"`
	Filename         string          `db:"filename"`
	FileType         string          `db:"file_type"`
	FileSize         int64           `db:"file_size"`
	BlobKey          string          `db:"blob_key"`
	Status           string          `db:"status"`
	ProcessingError  sql.NullString  `db:"processing_error"`
	RetryCount       int             `db:"retry_count"`
	Classification   string          `db:"classification"`
	ContentCategory  string          `db:"content_category"`
	FilterConfidence sql.NullFloat64 `db:"filter_confidence"`
	FilterReasoning  string          `db:"filter_reasoning"`
	HasSummary       bool            `db:"has_summary"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r *documentRow) toDocument() (*docModel.Document, error) {
	doc := &docModel.Document{
		Id:              r.Id,
		CaseId:          r.CaseId,
		Filename:        r.Filename,
		FileType:        docModel.FileType(r.FileType),
		FileSize:        r.FileSize,
		BlobKey:         r.BlobKey,
		Status:          docModel.DocumentStatus(r.Status),
		RetryCount:      r.RetryCount,
		Classification:  r.Classification,
		ContentCategory: r.ContentCategory,
		FilterReasoning: r.FilterReasoning,
		HasSummary:      r.HasSummary,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.FilterConfidence.Valid {
		c := r.FilterConfidence.Float64
		doc.FilterConfidence = &c
	}
	if r.ProcessingError.Valid && r.ProcessingError.String != "" {
		var pe docModel.ProcessingError
		if err := json.Unmarshal([]byte(r.ProcessingError.String), &pe); err != nil {
			return nil, docModel.StoreErr("decode processing_error", err)
		}
		doc.ProcessingError = &pe
	}
	return doc, nil
}

func (s *sqlStore) CreateDocument(ctx context.Context, doc *docModel.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = docModel.StatusUploaded
	}
	if doc.FileType == "" {
		doc.FileType = docModel.UNKNOWN
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, case_id, filename, file_type, file_size, blob_key, status,
			 retry_count, classification, content_category, filter_reasoning,
			 has_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', '', '', 0, ?, ?)`,
		doc.Id, doc.CaseId, doc.Filename, string(doc.FileType), doc.FileSize,
		doc.BlobKey, string(doc.Status), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return docModel.StoreErr("insert document", err)
	}
	return nil
}

func (s *sqlStore) GetDocument(ctx context.Context, documentId string) (*docModel.Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM documents WHERE id = ?`, documentId)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, docModel.StoreErr("get document", err)
	}
	return row.toDocument()
}

func (s *sqlStore) ListByCase(ctx context.Context, caseId string, status docModel.DocumentStatus) ([]docModel.Document, error) {
	var rows []documentRow
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM documents WHERE case_id = ? ORDER BY created_at`, caseId)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM documents WHERE case_id = ? AND status = ? ORDER BY created_at`,
			caseId, string(status))
	}
	if err != nil {
		return nil, docModel.StoreErr("list documents", err)
	}

	docs := make([]docModel.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *sqlStore) TransitionStatus(ctx context.Context, documentId string, current, next docModel.DocumentStatus) error {
	if !current.ValidNext(next) {
		return docModel.ValidationErr("invalid status transition %s -> %s", current, next)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, processing_error = NULL, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(next), time.Now().UTC(), documentId, string(current))
	if err != nil {
		return docModel.StoreErr("transition status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return docModel.StoreErr("transition status", err)
	}
	if n == 0 {
		if _, getErr := s.GetDocument(ctx, documentId); getErr == ErrNotFound {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (s *sqlStore) SetFailed(ctx context.Context, documentId string, stage docModel.DocumentStatus, message string) error {
	pe, err := json.Marshal(docModel.ProcessingError{Stage: stage, Message: message})
	if err != nil {
		return docModel.StoreErr("encode processing_error", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, processing_error = ?, retry_count = retry_count + 1, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?, ?)`,
		string(docModel.StatusFailed), string(pe), time.Now().UTC(), documentId,
		string(docModel.StatusCompleted), string(docModel.StatusFailed), string(docModel.StatusFilteredOut))
	if err != nil {
		return docModel.StoreErr("set failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	log.Warn("document failed", "documentId", documentId, "stage", stage, "message", message)
	return nil
}

func (s *sqlStore) ResetForRetry(ctx context.Context, documentId string) (docModel.DocumentStatus, error) {
	doc, err := s.GetDocument(ctx, documentId)
	if err != nil {
		return "", err
	}
	if doc.Status != docModel.StatusFailed {
		return "", docModel.ValidationErr("retry requires failed status, have %s", doc.Status)
	}
	if doc.RetryCount > config.MaxRetryCount {
		return "", ErrRetryExhausted
	}
	if doc.ProcessingError == nil || !doc.ProcessingError.Stage.Stage() {
		return "", docModel.ValidationErr("failed document %s has no resumable stage", documentId)
	}

	stage := doc.ProcessingError.Stage
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(stage), time.Now().UTC(), documentId, string(docModel.StatusFailed))
	if err != nil {
		return "", docModel.StoreErr("reset for retry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrStaleStatus
	}
	return stage, nil
}

func (s *sqlStore) SetFileType(ctx context.Context, documentId string, fileType docModel.FileType) error {
	return s.setFields(ctx, documentId, `file_type = ?`, string(fileType))
}

func (s *sqlStore) SetClassification(ctx context.Context, documentId string, label, category string) error {
	return s.setFields(ctx, documentId, `classification = ?, content_category = ?`, label, category)
}

func (s *sqlStore) SetFilterDecision(ctx context.Context, documentId string, confidence float64, reasoning string) error {
	return s.setFields(ctx, documentId, `filter_confidence = ?, filter_reasoning = ?`, confidence, reasoning)
}

func (s *sqlStore) SetHasSummary(ctx context.Context, documentId string) error {
	return s.setFields(ctx, documentId, `has_summary = 1`)
}

func (s *sqlStore) setFields(ctx context.Context, documentId, setClause string, args ...any) error {
	query := `UPDATE documents SET ` + setClause + `, updated_at = ? WHERE id = ?`
	args = append(args, time.Now().UTC(), documentId)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return docModel.StoreErr("update document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) ReplaceChunks(ctx context.Context, documentId string, chunks []docModel.Chunk) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return docModel.StoreErr("begin chunk tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentId); err != nil {
		return docModel.StoreErr("clear chunks", err)
	}

	now := time.Now().UTC()
	for i := range chunks {
		c := &chunks[i]
		c.DocumentId = documentId
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks
				(document_id, chunk_index, text, block_start, block_end,
				 method, word_count, section_type, vector_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.DocumentId, c.Index, c.Text, c.BlockStart, c.BlockEnd,
			string(c.Method), c.WordCount, c.SectionType, c.VectorId, c.CreatedAt)
		if err != nil {
			return docModel.StoreErr("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docModel.StoreErr("commit chunks", err)
	}
	return nil
}

// MarkChunkVectors records that the chunks in [fromIndex, toIndex] landed in
// the vector store. The vector id is derivable from document id and index, so
// a resumed run can skip straight past marked chunks.
func (s *sqlStore) MarkChunkVectors(ctx context.Context, documentId string, fromIndex, toIndex int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return docModel.StoreErr("begin vector mark tx", err)
	}
	defer tx.Rollback()

	for i := fromIndex; i <= toIndex; i++ {
		_, err := tx.ExecContext(ctx,
			`UPDATE chunks SET vector_id = ? WHERE document_id = ? AND chunk_index = ?`,
			docModel.ChunkVectorId(documentId, i), documentId, i)
		if err != nil {
			return docModel.StoreErr("mark chunk vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docModel.StoreErr("commit vector marks", err)
	}
	return nil
}

func (s *sqlStore) GetChunks(ctx context.Context, documentId string) ([]docModel.Chunk, error) {
	var chunks []docModel.Chunk
	err := s.db.SelectContext(ctx, &chunks,
		`SELECT * FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentId)
	if err != nil {
		return nil, docModel.StoreErr("get chunks", err)
	}
	return chunks, nil
}
