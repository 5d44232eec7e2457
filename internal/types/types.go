// Package types defines the core data types shared across the PDF
// translation pipeline: extracted blocks, merged paragraphs, translation
// units, reflowed layout boxes, chunks and rendered pages.
package types

import "fmt"

// BoundingBox describes the position and size of a text region on a page.
// Coordinates are in inches with the origin at the top-left of the page,
// matching the extraction service output.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (b BoundingBox) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b BoundingBox) Bottom() float64 { return b.Y + b.Height }

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	minX := b.X
	if other.X < minX {
		minX = other.X
	}
	minY := b.Y
	if other.Y < minY {
		minY = other.Y
	}
	maxR := b.Right()
	if other.Right() > maxR {
		maxR = other.Right()
	}
	maxB := b.Bottom()
	if other.Bottom() > maxB {
		maxB = other.Bottom()
	}
	return BoundingBox{X: minX, Y: minY, Width: maxR - minX, Height: maxB - minY}
}

// Contains reports whether other lies fully inside b, allowing a small
// epsilon for floating point noise.
func (b BoundingBox) Contains(other BoundingBox) bool {
	const eps = 1e-9
	return other.X >= b.X-eps && other.Y >= b.Y-eps &&
		other.Right() <= b.Right()+eps && other.Bottom() <= b.Bottom()+eps
}

// Block is a single extracted text fragment with page-relative coordinates.
// Blocks are produced by the extraction service and are immutable afterwards;
// the ID is what ties translated text back to its original position.
type Block struct {
	ID         string      `json:"id"`
	PageNumber int         `json:"page_number"`
	Text       string      `json:"text"`
	BBox       BoundingBox `json:"bbox"`
}

// Paragraph is one or more Blocks merged into a semantic text unit.
// Its bbox is the union of all member block boxes. LineHeight is the height
// of a single member line; the merger uses it instead of the union box
// height so its gap heuristics stay stable over re-merged paragraphs.
type Paragraph struct {
	ID               string      `json:"id"`
	Text             string      `json:"text"`
	OriginalBlockIDs []string    `json:"original_block_ids"`
	PageNumber       int         `json:"page_number"`
	BBox             BoundingBox `json:"bbox"`
	LineHeight       float64     `json:"line_height,omitempty"`
}

// TranslationUnit pairs a paragraph with its translated text. Exactly one
// unit exists per paragraph. Failed records a paragraph whose remote
// translation was permanently unavailable; its TranslatedText then carries
// the original source text so the document stays complete.
type TranslationUnit struct {
	ParagraphID    string `json:"paragraph_id"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	Tone           string `json:"tone"`
	Failed         bool   `json:"failed,omitempty"`
}

// LayoutBox is the reflow result for one paragraph: the final font size and
// the wrapped lines that fit the paragraph's original bounding box.
type LayoutBox struct {
	ParagraphID string      `json:"paragraph_id"`
	FontSize    float64     `json:"font_size"`
	Lines       []string    `json:"lines"`
	BBox        BoundingBox `json:"bbox"`
	Overflowed  bool        `json:"overflowed,omitempty"`
	Truncated   bool        `json:"truncated,omitempty"`
	Passthrough bool        `json:"passthrough,omitempty"`
}

// ChunkState tracks a chunk through the pipeline state machine.
type ChunkState string

const (
	ChunkPending     ChunkState = "pending"
	ChunkExtracting  ChunkState = "extracting"
	ChunkMerging     ChunkState = "merging"
	ChunkTranslating ChunkState = "translating"
	ChunkReflowing   ChunkState = "reflowing"
	ChunkRendering   ChunkState = "rendering"
	ChunkCompleted   ChunkState = "completed"
	ChunkFailed      ChunkState = "failed"
)

// IsValidChunkState reports whether s is a known state.
func IsValidChunkState(s ChunkState) bool {
	switch s {
	case ChunkPending, ChunkExtracting, ChunkMerging, ChunkTranslating,
		ChunkReflowing, ChunkRendering, ChunkCompleted, ChunkFailed:
		return true
	default:
		return false
	}
}

// Chunk is a contiguous run of pages processed as one pipeline unit.
// StartPage and EndPage are 1-based and inclusive.
type Chunk struct {
	ID        int        `json:"id"`
	StartPage int        `json:"start_page"`
	EndPage   int        `json:"end_page"`
	State     ChunkState `json:"state"`
}

// PageCount returns the number of pages covered by the chunk.
func (c Chunk) PageCount() int { return c.EndPage - c.StartPage + 1 }

// Pages returns the 1-based page numbers covered by the chunk, ascending.
func (c Chunk) Pages() []int {
	pages := make([]int, 0, c.PageCount())
	for p := c.StartPage; p <= c.EndPage; p++ {
		pages = append(pages, p)
	}
	return pages
}

// String implements fmt.Stringer for log output.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d (pages %d-%d)", c.ID, c.StartPage, c.EndPage)
}

// RenderedPage is a single composed output page. Data holds a complete
// one-page PDF document.
type RenderedPage struct {
	PageNumber int    `json:"page_number"`
	Data       []byte `json:"data"`
}

// OverflowWarning records a paragraph whose reflowed text still exceeded its
// box at the minimum font size. Warnings never abort a job; they are
// collected and reported in the post-run summary.
type OverflowWarning struct {
	ChunkID     int     `json:"chunk_id"`
	PageNumber  int     `json:"page_number"`
	ParagraphID string  `json:"paragraph_id"`
	FontSize    float64 `json:"font_size"`
	ExcessPts   float64 `json:"excess_pts"`
	Truncated   bool    `json:"truncated"`
}
