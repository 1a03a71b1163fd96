package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nkurra/CaseAPI/internal/domain/docModel"
)

var (
	pageNumRe   = regexp.MustCompile(`(?i)^\s*(page\s+)?\d+(\s+of\s+\d+)?\s*$`)
	listItemRe  = regexp.MustCompile(`^\s*([-*•]|\(?[a-z0-9]{1,3}[.)])\s+`)
	clauseNumRe = regexp.MustCompile(`^\s*\d+(\.\d+)*\.?\s+\S`)
)

// splitParagraphs breaks raw page text on blank lines. Single newlines inside
// a paragraph are soft wraps and get collapsed to spaces.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range regexp.MustCompile(`\n\s*\n`).Split(normalized, -1) {
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimSpace(l)
		}
		joined := strings.TrimSpace(strings.Join(lines, " "))
		if joined != "" {
			out = append(out, joined)
		}
	}
	return out
}

func classifyKind(text string) docModel.BlockKind {
	if listItemRe.MatchString(text) && len(text) < 400 {
		return docModel.KindListItem
	}
	if looksLikeHeading(text) {
		return docModel.KindHeading
	}
	return docModel.KindParagraph
}

func looksLikeHeading(text string) bool {
	if len(text) > 90 || strings.HasSuffix(text, ".") {
		return false
	}
	if clauseNumRe.MatchString(text) && len(text) < 90 {
		return true
	}

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return false
	}
	//all caps or heavily title cased
	return float64(upper)/float64(letters) > 0.7
}

// pagesToBlocks builds the blocks artifact from per-page raw text, marking
// page-number footers and repeated first lines as headers so they stay out of
// the body.
func pagesToBlocks(documentId string, rawPages []rawPage) *docModel.BlocksDocument {
	doc := &docModel.BlocksDocument{
		SchemaVersion: docModel.BlocksSchemaVersion,
		DocumentId:    documentId,
	}

	firstLineCounts := map[string]int{}
	pageParas := make([][]string, len(rawPages))
	for i, page := range rawPages {
		paras := splitParagraphs(page.Content)
		pageParas[i] = paras
		if len(paras) > 0 && len(paras[0]) < 100 {
			firstLineCounts[paras[0]]++
		}
	}

	index := 0
	for i, paras := range pageParas {
		page := docModel.Page{Index: rawPages[i].Number}
		for j, text := range paras {
			kind := classifyKind(text)
			if pageNumRe.MatchString(text) {
				kind = docModel.KindFooter
			} else if j == 0 && len(rawPages) > 1 && firstLineCounts[text] >= 2 {
				kind = docModel.KindHeader
			}
			page.Blocks = append(page.Blocks, docModel.Block{
				Index: index,
				Text:  text,
				Kind:  kind,
			})
			index++
		}
		doc.Pages = append(doc.Pages, page)
	}

	doc.PageCount = len(doc.Pages)
	doc.TotalBlocks = index
	return doc
}
