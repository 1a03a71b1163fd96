package classify

import (
	"strings"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/domain/docModel"
)

// SampleBlocks picks a representative slice of body blocks for the
// classifier. Long documents get samples from the beginning, middle and end,
// and skip the first page which tends to be cover sheet boilerplate.
func SampleBlocks(doc *docModel.BlocksDocument) string {
	blocks := doc.BodyBlocks()
	if len(blocks) == 0 {
		return ""
	}

	if doc.PageCount > config.LongDocumentPages && config.BoilerplateSkipFirstPage {
		if trimmed := skipFirstPage(doc); len(trimmed) > 0 {
			blocks = trimmed
		}
	}

	picked := pickSpread(blocks, config.ClassifySampleBlocks)

	var b strings.Builder
	for _, block := range picked {
		if b.Len()+len(block.Text)+2 > config.ClassifySampleMaxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.Text)
	}
	return b.String()
}

func skipFirstPage(doc *docModel.BlocksDocument) []docModel.Block {
	var out []docModel.Block
	for _, page := range doc.Pages[1:] {
		for _, block := range page.Blocks {
			if block.Kind == docModel.KindHeader || block.Kind == docModel.KindFooter {
				continue
			}
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			out = append(out, block)
		}
	}
	return out
}

// pickSpread takes n blocks spread evenly across begin, middle and end.
func pickSpread(blocks []docModel.Block, n int) []docModel.Block {
	if len(blocks) <= n {
		return blocks
	}

	third := n / 3
	rest := n - 2*third
	mid := len(blocks)/2 - third/2

	var out []docModel.Block
	out = append(out, blocks[:third]...)
	out = append(out, blocks[mid:mid+third]...)
	out = append(out, blocks[len(blocks)-rest:]...)
	return out
}
