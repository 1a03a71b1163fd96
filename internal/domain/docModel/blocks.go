package docModel

import "strings"

// BlocksSchemaVersion tags the extraction artifact so downstream consumers can
// reject blocks written by an incompatible extractor.
const BlocksSchemaVersion = "page_blocks.v1"

type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindListItem  BlockKind = "list_item"
	KindHeader    BlockKind = "header"
	KindFooter    BlockKind = "footer"
	KindTable     BlockKind = "table"
)

type StyleInfo struct {
	Size     float64 `json:"size,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
	FontName string  `json:"font_name,omitempty"`
}

type Block struct {
	Index int       `json:"index"`
	Text  string    `json:"text"`
	Kind  BlockKind `json:"kind"`
	//bbox [x0, y0, x1, y1] in page coordinates, empty for formats without layout
	BBox  []float64  `json:"bbox,omitempty"`
	Style *StyleInfo `json:"style,omitempty"`
}

type Page struct {
	Index  int     `json:"index"`
	Blocks []Block `json:"blocks"`
}

type BlocksDocument struct {
	SchemaVersion string `json:"schema_version"`
	DocumentId    string `json:"document_id"`
	PageCount     int    `json:"page_count"`
	TotalBlocks   int    `json:"total_blocks"`
	Pages         []Page `json:"pages"`
}

// BodyBlocks flattens pages into body blocks, dropping headers, footers and
// empty text. The chunker and the round-trip invariant are defined over this
// filtered sequence.
func (d *BlocksDocument) BodyBlocks() []Block {
	var out []Block
	for _, page := range d.Pages {
		for _, block := range page.Blocks {
			if block.Kind == KindHeader || block.Kind == KindFooter {
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

// BodyText joins body block texts with a paragraph separator. Chunk texts
// concatenated in index order must reproduce this string exactly.
func (d *BlocksDocument) BodyText() string {
	blocks := d.BodyBlocks()
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}
