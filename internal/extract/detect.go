package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nkurra/CaseAPI/internal/domain/docModel"
)

var extensionTypes = map[string]docModel.FileType{
	".pdf":  docModel.PDF,
	".docx": docModel.DOCX,
	".txt":  docModel.TXT,
	".rtf":  docModel.RTF,
}

// DetectType resolves the file type from content first and extension second.
// Content wins when the two disagree, a renamed pdf is still a pdf.
func DetectType(filename string, data []byte) docModel.FileType {
	if t := sniffContent(data); t != docModel.UNKNOWN {
		return t
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}

	if looksLikeText(data) {
		return docModel.TXT
	}
	return docModel.UNKNOWN
}

func sniffContent(data []byte) docModel.FileType {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return docModel.PDF
	case bytes.HasPrefix(data, []byte("{\\rtf")):
		return docModel.RTF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && bytes.Contains(data, []byte("word/")):
		return docModel.DOCX
	}
	return docModel.UNKNOWN
}

func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if !utf8.Valid(sample) {
		return false
	}
	//control chars other than whitespace mean binary
	for _, b := range sample {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			return false
		}
	}
	return true
}
