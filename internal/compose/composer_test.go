package compose

import (
	"fmt"
	"testing"

	"github.com/gdkds12/translatePDF/internal/types"
)

type recordingRenderer struct {
	calls []struct {
		page  int
		boxes int
	}
}

func (r *recordingRenderer) ComposePage(pdfPath string, pageNum int, boxes []types.LayoutBox) (types.RenderedPage, error) {
	r.calls = append(r.calls, struct {
		page  int
		boxes int
	}{pageNum, len(boxes)})
	return types.RenderedPage{
		PageNumber: pageNum,
		Data:       []byte(fmt.Sprintf("page-%d", pageNum)),
	}, nil
}

func TestComposeChunkRendersEveryPage(t *testing.T) {
	renderer := &recordingRenderer{}
	c := NewComposer(renderer)

	chunk := types.Chunk{ID: 1, StartPage: 11, EndPage: 13}
	boxes := []types.LayoutBox{
		{ParagraphID: "a", Lines: []string{"x"}},
		{ParagraphID: "b", Lines: []string{"y"}},
		{ParagraphID: "c", Lines: []string{"z"}},
	}
	pageOf := map[string]int{"a": 11, "b": 11, "c": 13}

	pages, err := c.ComposeChunk("input.pdf", chunk, boxes, pageOf)
	if err != nil {
		t.Fatalf("ComposeChunk() error: %v", err)
	}

	// Every chunk page renders, text or not, in ascending order.
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	wantBoxes := map[int]int{11: 2, 12: 0, 13: 1}
	for i, call := range renderer.calls {
		if call.page != 11+i {
			t.Errorf("call %d rendered page %d", i, call.page)
		}
		if call.boxes != wantBoxes[call.page] {
			t.Errorf("page %d got %d boxes, want %d", call.page, call.boxes, wantBoxes[call.page])
		}
	}
	for i, page := range pages {
		if page.PageNumber != 11+i {
			t.Errorf("result page %d has number %d", i, page.PageNumber)
		}
	}
}

type idRecordingRenderer struct {
	rendered [][]string
}

func (r *idRecordingRenderer) ComposePage(pdfPath string, pageNum int, boxes []types.LayoutBox) (types.RenderedPage, error) {
	ids := make([]string, 0, len(boxes))
	for _, box := range boxes {
		ids = append(ids, box.ParagraphID)
	}
	r.rendered = append(r.rendered, ids)
	return types.RenderedPage{PageNumber: pageNum}, nil
}

func TestComposeChunkSkipsPassthroughBoxes(t *testing.T) {
	renderer := &idRecordingRenderer{}
	c := NewComposer(renderer)

	chunk := types.Chunk{ID: 0, StartPage: 1, EndPage: 1}
	boxes := []types.LayoutBox{
		{ParagraphID: "prose", Lines: []string{"번역된 문장"}},
		// Source rendering must survive; no stamp may cover the formula.
		{ParagraphID: "formula", Lines: []string{"$x = y$"}, Passthrough: true},
	}
	pageOf := map[string]int{"prose": 1, "formula": 1}

	pages, err := c.ComposeChunk("input.pdf", chunk, boxes, pageOf)
	if err != nil {
		t.Fatalf("ComposeChunk() error: %v", err)
	}
	if len(pages) != 1 || len(renderer.rendered) != 1 {
		t.Fatalf("rendered %d pages", len(renderer.rendered))
	}
	got := renderer.rendered[0]
	if len(got) != 1 || got[0] != "prose" {
		t.Errorf("rendered boxes = %v, want only the prose box", got)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"paper.pdf", "paper_translated.pdf"},
		{"/docs/paper.pdf", "/docs/paper_translated.pdf"},
		{"noext", "noext_translated"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.expected {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
