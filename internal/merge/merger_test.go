package merge

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/gdkds12/translatePDF/internal/types"
)

// line builds a single-line block. y is the top edge in inches.
func line(id string, page int, text string, x, y, w, h float64) types.Block {
	return types.Block{
		ID:         id,
		PageNumber: page,
		Text:       text,
		BBox:       types.BoundingBox{X: x, Y: y, Width: w, Height: h},
	}
}

func TestMergeAdjacentLines(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "The quick brown fox", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "jumps over the lazy dog.", 1.0, 1.18, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 1 {
		t.Fatalf("Merge() produced %d paragraphs, want 1", len(paragraphs))
	}

	p := paragraphs[0]
	if p.Text != "The quick brown fox jumps over the lazy dog." {
		t.Errorf("merged text = %q", p.Text)
	}
	if p.ID != "merged_p1_l1" {
		t.Errorf("paragraph ID = %q, want merged_p1_l1", p.ID)
	}
	if !reflect.DeepEqual(p.OriginalBlockIDs, []string{"p1_l1", "p1_l2"}) {
		t.Errorf("OriginalBlockIDs = %v", p.OriginalBlockIDs)
	}
	// The paragraph box must cover both lines.
	for _, b := range blocks {
		if !p.BBox.Contains(b.BBox) {
			t.Errorf("paragraph box %+v does not contain block %+v", p.BBox, b.BBox)
		}
	}
}

func TestMergeBreaksOnLargeGap(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "first paragraph text", 1.0, 1.0, 3.0, 0.15),
		// Gap of 0.5in, far beyond half the line height.
		line("p1_l2", 1, "second paragraph text", 1.0, 1.65, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 2 {
		t.Fatalf("Merge() produced %d paragraphs, want 2", len(paragraphs))
	}
}

func TestMergeBreaksOnSentenceEnd(t *testing.T) {
	m := NewMerger(DefaultConfig())

	for _, punct := range []string{".", "!", "?"} {
		blocks := []types.Block{
			line("p1_l1", 1, "This sentence ends here"+punct, 1.0, 1.0, 3.0, 0.15),
			line("p1_l2", 1, "A new paragraph begins", 1.0, 1.18, 3.0, 0.15),
		}
		paragraphs := m.Merge(blocks)
		if len(paragraphs) != 2 {
			t.Errorf("punct %q: got %d paragraphs, want 2", punct, len(paragraphs))
		}
	}
}

func TestMergeBreaksOnColumnChange(t *testing.T) {
	m := NewMerger(DefaultConfig())

	// Same vertical band but no horizontal overlap and a big left shift,
	// like two columns.
	blocks := []types.Block{
		line("p1_l1", 1, "left column line", 0.5, 1.0, 2.0, 0.15),
		line("p1_l2", 1, "right column line", 4.5, 1.1, 2.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 2 {
		t.Fatalf("Merge() produced %d paragraphs, want 2", len(paragraphs))
	}
}

func TestMergeHyphenatedLineBreak(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "the trans-", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "lation pipeline", 1.0, 1.18, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 1 {
		t.Fatalf("Merge() produced %d paragraphs, want 1", len(paragraphs))
	}
	if paragraphs[0].Text != "the translation pipeline" {
		t.Errorf("hyphen join produced %q", paragraphs[0].Text)
	}
}

func TestMergeCollapsesWhitespace(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "  spaced   out\ttext ", 1.0, 1.0, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 1 {
		t.Fatalf("Merge() produced %d paragraphs, want 1", len(paragraphs))
	}
	if paragraphs[0].Text != "spaced out text" {
		t.Errorf("normalized text = %q", paragraphs[0].Text)
	}
}

func TestMergePreservesReadingOrder(t *testing.T) {
	m := NewMerger(DefaultConfig())

	// Deliberately shuffled input across two pages.
	blocks := []types.Block{
		line("p2_l1", 2, "Second page.", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "Lower on page one.", 1.0, 4.0, 3.0, 0.15),
		line("p1_l1", 1, "Top of page one.", 1.0, 1.0, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)
	if len(paragraphs) != 3 {
		t.Fatalf("Merge() produced %d paragraphs, want 3", len(paragraphs))
	}
	want := []string{"Top of page one.", "Lower on page one.", "Second page."}
	for i, text := range want {
		if paragraphs[i].Text != text {
			t.Errorf("paragraph %d = %q, want %q", i, paragraphs[i].Text, text)
		}
	}
}

func TestMergeEveryBlockAssignedOnce(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "Alpha beta.", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "Gamma delta", 1.0, 1.5, 3.0, 0.15),
		line("p1_l3", 1, "epsilon zeta.", 1.0, 1.68, 3.0, 0.15),
		line("p2_l1", 2, "Eta theta.", 1.0, 1.0, 3.0, 0.15),
	}

	paragraphs := m.Merge(blocks)

	seen := make(map[string]int)
	for _, p := range paragraphs {
		for _, id := range p.OriginalBlockIDs {
			seen[id]++
		}
	}
	if len(seen) != len(blocks) {
		t.Errorf("assigned %d distinct blocks, want %d", len(seen), len(blocks))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("block %s assigned %d times", id, count)
		}
	}
}

func TestMergeDeterministic(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "One two three.", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "Four five", 1.0, 1.18, 3.0, 0.15),
		line("p1_l3", 1, "six seven.", 1.0, 1.36, 3.0, 0.15),
	}

	first := m.Merge(blocks)
	for i := 0; i < 10; i++ {
		if got := m.Merge(blocks); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed from first run", i)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	m := NewMerger(DefaultConfig())

	blocks := []types.Block{
		line("p1_l1", 1, "First sentence spans", 1.0, 1.0, 3.0, 0.15),
		line("p1_l2", 1, "two lines here.", 1.0, 1.18, 3.0, 0.15),
		line("p1_l3", 1, "Second paragraph stands alone.", 1.0, 1.8, 3.0, 0.15),
	}

	once := m.Merge(blocks)
	twice := m.MergeParagraphs(once)

	if len(twice) != len(once) {
		t.Fatalf("re-merge changed paragraph count: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if twice[i].Text != once[i].Text {
			t.Errorf("paragraph %d text changed: %q -> %q", i, once[i].Text, twice[i].Text)
		}
		if twice[i].BBox != once[i].BBox {
			t.Errorf("paragraph %d bbox changed", i)
		}
	}
}

func TestMergeIdempotentWithoutPunctuation(t *testing.T) {
	m := NewMerger(DefaultConfig())

	// Two tall paragraphs whose last lines carry no sentence punctuation.
	// The inter-paragraph gap is wider than a line but much narrower than
	// half a merged paragraph's union box, so a tolerance derived from the
	// union height would wrongly merge them on a second pass.
	var blocks []types.Block
	for i := 0; i < 5; i++ {
		blocks = append(blocks, line(fmt.Sprintf("p1_l%d", i+1), 1,
			"first paragraph line text", 1.0, 1.0+float64(i)*0.18, 3.0, 0.15))
	}
	for i := 0; i < 5; i++ {
		blocks = append(blocks, line(fmt.Sprintf("p1_l%d", i+6), 1,
			"second paragraph line text", 1.0, 2.20+float64(i)*0.18, 3.0, 0.15))
	}

	once := m.Merge(blocks)
	if len(once) != 2 {
		t.Fatalf("Merge() produced %d paragraphs, want 2", len(once))
	}

	twice := m.MergeParagraphs(once)
	if len(twice) != len(once) {
		t.Fatalf("re-merge changed paragraph count: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if twice[i].Text != once[i].Text {
			t.Errorf("paragraph %d text changed: %q -> %q", i, once[i].Text, twice[i].Text)
		}
		if twice[i].BBox != once[i].BBox {
			t.Errorf("paragraph %d bbox changed", i)
		}
	}
}

func TestMergeEmptyInput(t *testing.T) {
	m := NewMerger(DefaultConfig())
	if got := m.Merge(nil); got != nil {
		t.Errorf("Merge(nil) = %v, want nil", got)
	}
}

func TestStripLineHyphen(t *testing.T) {
	tests := []struct {
		in       string
		out      string
		stripped bool
	}{
		{"trans-", "trans", true},
		{"plain text", "plain text", false},
		{"dash -", "dash -", false},
		{"-", "-", false},
		{"1-", "1-", false},
	}
	for _, tt := range tests {
		got, stripped := stripLineHyphen(tt.in)
		if got != tt.out || stripped != tt.stripped {
			t.Errorf("stripLineHyphen(%q) = (%q, %v), want (%q, %v)",
				tt.in, got, stripped, tt.out, tt.stripped)
		}
	}
}
