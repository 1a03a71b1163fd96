package docModel

import (
	"errors"
	"testing"
)

func TestValidNext_HappyPath(t *testing.T) {
	for i := 0; i < len(StageOrder)-1; i++ {
		if !StageOrder[i].ValidNext(StageOrder[i+1]) {
			t.Errorf("expected %s -> %s to be valid", StageOrder[i], StageOrder[i+1])
		}
	}
}

func TestValidNext_NoSkips(t *testing.T) {
	//jumping two stages ahead is never allowed
	for i := 0; i < len(StageOrder)-2; i++ {
		if StageOrder[i].ValidNext(StageOrder[i+2]) {
			t.Errorf("expected %s -> %s to be invalid", StageOrder[i], StageOrder[i+2])
		}
	}
}

func TestValidNext_Branches(t *testing.T) {
	tests := []struct {
		from, to DocumentStatus
		want     bool
	}{
		{StatusAnalyzingContent, StatusFilteredOut, true},
		{StatusAnalyzingContent, StatusChunking, true},
		{StatusClassifying, StatusFilteredOut, false},
		{StatusChunking, StatusFailed, true},
		{StatusUploaded, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusChunking, false},
		{StatusFilteredOut, StatusChunking, false},
		{StatusSummarizing, StatusCompleted, true},
	}
	for _, tt := range tests {
		if got := tt.from.ValidNext(tt.to); got != tt.want {
			t.Errorf("ValidNext(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []DocumentStatus{StatusCompleted, StatusFailed, StatusFilteredOut} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range StageOrder[:len(StageOrder)-1] {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestBodyText_ExcludesHeadersAndFooters(t *testing.T) {
	doc := &BlocksDocument{
		SchemaVersion: BlocksSchemaVersion,
		Pages: []Page{
			{Index: 1, Blocks: []Block{
				{Index: 0, Text: "ACME CORP CONFIDENTIAL", Kind: KindHeader},
				{Index: 1, Text: "First paragraph.", Kind: KindParagraph},
				{Index: 2, Text: "Page 1", Kind: KindFooter},
			}},
			{Index: 2, Blocks: []Block{
				{Index: 3, Text: "Second paragraph.", Kind: KindParagraph},
				{Index: 4, Text: "   ", Kind: KindParagraph},
			}},
		},
	}

	want := "First paragraph.\n\nSecond paragraph."
	if got := doc.BodyText(); got != want {
		t.Errorf("BodyText() = %q, want %q", got, want)
	}
	if n := len(doc.BodyBlocks()); n != 2 {
		t.Errorf("BodyBlocks() returned %d blocks, want 2", n)
	}
}

func TestChunkVectorId_Deterministic(t *testing.T) {
	a := ChunkVectorId("doc-1", 0)
	b := ChunkVectorId("doc-1", 0)
	if a != b {
		t.Errorf("same inputs gave different ids: %s vs %s", a, b)
	}
	if ChunkVectorId("doc-1", 1) == a {
		t.Error("different index gave the same id")
	}
	if ChunkVectorId("doc-2", 0) == a {
		t.Error("different document gave the same id")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(UnsupportedFormatErr("xyz")) != ErrUnsupportedFormat {
		t.Error("unsupported format error lost its kind")
	}
	if KindOf(StoreErr("get", errors.New("boom"))) != ErrStore {
		t.Error("store error lost its kind")
	}
	if KindOf(errors.New("anonymous")) != ErrCapability {
		t.Error("untagged error should default to capability kind")
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(UnsupportedFormatErr("xyz")) {
		t.Error("unsupported format should not be retryable")
	}
	if Retryable(ValidationErr("bad invariant")) {
		t.Error("validation error should not be retryable")
	}
	if !Retryable(CapabilityErr("llm", errors.New("timeout"))) {
		t.Error("capability error should be retryable")
	}
	if !Retryable(StoreErr("redis", errors.New("conn refused"))) {
		t.Error("store error should be retryable")
	}
}
