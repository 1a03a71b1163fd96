package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("extract")

type rawPage struct {
	Number  int
	Content string
}

// Extract turns raw document bytes into the page blocks artifact.
func Extract(documentId string, fileType docModel.FileType, data []byte) (*docModel.BlocksDocument, error) {
	var pages []rawPage
	var err error

	switch fileType {
	case docModel.PDF:
		pages, err = extractPDF(data)
	case docModel.DOCX, docModel.RTF:
		pages, err = extractDocxRtf(data, fileType)
	case docModel.TXT:
		pages = []rawPage{{Number: 1, Content: string(data)}}
	default:
		return nil, docModel.UnsupportedFormatErr(string(fileType))
	}
	if err != nil {
		return nil, err
	}

	doc := pagesToBlocks(documentId, pages)
	if doc.TotalBlocks == 0 {
		return nil, docModel.ValidationErr("no text content extracted from document %s", documentId)
	}
	return doc, nil
}

func extractPDF(data []byte) ([]rawPage, error) {
	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Error("failed opening of pdf file")
		return nil, docModel.UnsupportedFormatErr("pdf: " + err.Error())
	}

	var pages []rawPage
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// Log warning but continue with other pages
			logger.Error("Error parsing page content", "Error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractDocxRtf goes through a temp file because cat only reads paths.
func extractDocxRtf(data []byte, fileType docModel.FileType) ([]rawPage, error) {
	tmp, err := os.CreateTemp("", "caseapi-*."+string(fileType))
	if err != nil {
		return nil, fmt.Errorf("failed to stage temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stage temp file: %w", err)
	}
	tmp.Close()

	text, err := cat.File(tmp.Name())
	if err != nil {
		logger.Error("Error extracting content from doc")
		return nil, docModel.UnsupportedFormatErr(string(fileType) + ": " + err.Error())
	}

	return []rawPage{
		{
			Number:  1,
			Content: text,
		},
	}, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		logger.Error("pageExtract", "timeout")
		return "", errors.New("timeout")
	}
}
