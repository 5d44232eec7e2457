// Package merge reconstructs paragraphs from the raw line blocks returned by
// the extraction service. Blocks are grouped per page, ordered top-to-bottom
// and left-to-right, and folded into paragraphs using vertical proximity,
// horizontal overlap, hyphenation and sentence-boundary heuristics.
package merge

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Config holds the merge heuristics. The thresholds are empirically tuned
// and intentionally configurable; Default matches the values validated
// against representative documents.
type Config struct {
	// VerticalToleranceFactor bounds the allowed gap between consecutive
	// lines relative to their average height.
	VerticalToleranceFactor float64
	// HorizontalOverlapThreshold is the minimum horizontal overlap as a
	// fraction of the narrower block's width.
	HorizontalOverlapThreshold float64
}

// DefaultConfig returns the default merge heuristics.
func DefaultConfig() Config {
	return Config{
		VerticalToleranceFactor:    0.5,
		HorizontalOverlapThreshold: 0.1,
	}
}

// Merger reconstructs paragraphs from extracted blocks. Merging is
// deterministic and idempotent: the same input always produces the same
// paragraph sequence, and re-merging that sequence leaves it unchanged.
type Merger struct {
	cfg Config
}

// NewMerger creates a Merger with the given heuristics, falling back to
// defaults for zero values.
func NewMerger(cfg Config) *Merger {
	def := DefaultConfig()
	if cfg.VerticalToleranceFactor <= 0 {
		cfg.VerticalToleranceFactor = def.VerticalToleranceFactor
	}
	if cfg.HorizontalOverlapThreshold <= 0 {
		cfg.HorizontalOverlapThreshold = def.HorizontalOverlapThreshold
	}
	return &Merger{cfg: cfg}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// span pairs a text region with the height of a single line inside it. For
// raw extraction lines the two are identical; a re-merged paragraph spans
// several lines, and its gap tolerance must still come from the line height,
// not from the union box.
type span struct {
	block      types.Block
	lineHeight float64
}

// Merge folds the given blocks into paragraphs. Every input block ends up in
// exactly one paragraph, paragraphs preserve reading order (pages ascending,
// then top-to-bottom, left-to-right), and each paragraph's bounding box is
// the union of its member boxes.
func (m *Merger) Merge(blocks []types.Block) []types.Paragraph {
	if len(blocks) == 0 {
		return nil
	}
	spans := make([]span, len(blocks))
	for i, b := range blocks {
		spans[i] = span{block: b, lineHeight: b.BBox.Height}
	}
	return m.mergeAll(spans)
}

// MergeParagraphs re-runs the merge over an already merged sequence, used to
// verify idempotence. Each paragraph is treated as a single region carrying
// its union box, normalized text and recorded line height.
func (m *Merger) MergeParagraphs(paragraphs []types.Paragraph) []types.Paragraph {
	spans := make([]span, 0, len(paragraphs))
	for _, p := range paragraphs {
		lineHeight := p.LineHeight
		if lineHeight <= 0 {
			lineHeight = p.BBox.Height
		}
		spans = append(spans, span{
			block: types.Block{
				ID:         strings.TrimPrefix(p.ID, "merged_"),
				PageNumber: p.PageNumber,
				Text:       p.Text,
				BBox:       p.BBox,
			},
			lineHeight: lineHeight,
		})
	}
	merged := m.mergeAll(spans)
	// Restore the original member lists: a paragraph that merged nothing
	// new keeps its block ids.
	if len(merged) == len(paragraphs) {
		for i := range merged {
			merged[i].OriginalBlockIDs = paragraphs[i].OriginalBlockIDs
		}
	}
	return merged
}

func (m *Merger) mergeAll(spans []span) []types.Paragraph {
	byPage := make(map[int][]span)
	var pages []int
	for _, s := range spans {
		if _, seen := byPage[s.block.PageNumber]; !seen {
			pages = append(pages, s.block.PageNumber)
		}
		byPage[s.block.PageNumber] = append(byPage[s.block.PageNumber], s)
	}
	sort.Ints(pages)

	var paragraphs []types.Paragraph
	for _, page := range pages {
		paragraphs = append(paragraphs, m.mergePage(byPage[page])...)
	}

	logger.Debug("blocks merged into paragraphs",
		logger.Int("blocks", len(spans)),
		logger.Int("paragraphs", len(paragraphs)))
	return paragraphs
}

// mergePage merges the spans of a single page.
func (m *Merger) mergePage(spans []span) []types.Paragraph {
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].block.BBox.Y != sorted[j].block.BBox.Y {
			return sorted[i].block.BBox.Y < sorted[j].block.BBox.Y
		}
		return sorted[i].block.BBox.X < sorted[j].block.BBox.X
	})

	var paragraphs []types.Paragraph
	var current *paragraphBuilder

	for i := range sorted {
		s := sorted[i]
		if current == nil {
			current = newParagraphBuilder(s)
			continue
		}
		if m.shouldMerge(current.last, s) {
			current.append(s)
			continue
		}
		paragraphs = append(paragraphs, current.build())
		current = newParagraphBuilder(s)
	}
	if current != nil {
		paragraphs = append(paragraphs, current.build())
	}
	return paragraphs
}

// shouldMerge decides whether next continues the paragraph that prev belongs
// to. The two regions must sit on the same page, within the vertical gap
// tolerance, and either overlap horizontally or start at nearly the same
// left edge. The tolerance scales with the single-line height, not the box
// height, so an already merged multi-line paragraph does not widen it on a
// re-merge. A line ending in sentence punctuation always terminates its
// paragraph.
func (m *Merger) shouldMerge(prev, next span) bool {
	if prev.block.PageNumber != next.block.PageNumber {
		return false
	}

	lineHeight := (prev.lineHeight + next.lineHeight) / 2
	verticalGap := next.block.BBox.Y - prev.block.BBox.Bottom()

	// Allow a minor overlap but reject lines that are too far apart or
	// genuinely stacked on top of each other.
	if verticalGap <= -lineHeight*0.1 || verticalGap >= lineHeight*m.cfg.VerticalToleranceFactor {
		return false
	}

	overlapStart := prev.block.BBox.X
	if next.block.BBox.X > overlapStart {
		overlapStart = next.block.BBox.X
	}
	overlapEnd := prev.block.BBox.Right()
	if next.block.BBox.Right() < overlapEnd {
		overlapEnd = next.block.BBox.Right()
	}
	horizontalOverlap := overlapEnd - overlapStart
	if horizontalOverlap < 0 {
		horizontalOverlap = 0
	}

	minWidth := prev.block.BBox.Width
	if next.block.BBox.Width < minWidth {
		minWidth = next.block.BBox.Width
	}
	leftShift := prev.block.BBox.X - next.block.BBox.X
	if leftShift < 0 {
		leftShift = -leftShift
	}
	if horizontalOverlap < minWidth*m.cfg.HorizontalOverlapThreshold && leftShift > lineHeight*0.5 {
		return false
	}

	return !endsSentence(prev.block.Text)
}

// endsSentence reports whether text ends with sentence-terminating
// punctuation.
func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "!") || strings.HasSuffix(t, "?")
}

// NormalizeText collapses whitespace runs and trims the edges.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// stripLineHyphen removes a trailing hyphen used for word splitting across
// lines, reporting whether one was removed. Only a hyphen directly preceded
// by a letter qualifies; "state-of-the-art" style compounds mid-line are
// untouched.
func stripLineHyphen(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasSuffix(t, "-") {
		return t, false
	}
	runes := []rune(t)
	if len(runes) < 2 || !unicode.IsLetter(runes[len(runes)-2]) {
		return t, false
	}
	return string(runes[:len(runes)-1]), true
}

// paragraphBuilder accumulates consecutive line spans into one paragraph.
type paragraphBuilder struct {
	text       strings.Builder
	ids        []string
	page       int
	bbox       types.BoundingBox
	last       span
	hyphened   bool
	lineHeight float64
}

func newParagraphBuilder(first span) *paragraphBuilder {
	b := &paragraphBuilder{
		page:       first.block.PageNumber,
		bbox:       first.block.BBox,
		last:       first,
		ids:        []string{first.block.ID},
		lineHeight: first.lineHeight,
	}
	line, hyphened := stripLineHyphen(first.block.Text)
	b.text.WriteString(NormalizeText(line))
	b.hyphened = hyphened
	return b
}

func (b *paragraphBuilder) append(s span) {
	line, hyphened := stripLineHyphen(s.block.Text)
	normalized := NormalizeText(line)
	if normalized != "" {
		// A hyphenated line break joins without a space.
		if !b.hyphened && b.text.Len() > 0 {
			b.text.WriteString(" ")
		}
		b.text.WriteString(normalized)
	}
	b.hyphened = hyphened
	b.ids = append(b.ids, s.block.ID)
	b.bbox = b.bbox.Union(s.block.BBox)
	b.last = s
	b.lineHeight += s.lineHeight
}

func (b *paragraphBuilder) build() types.Paragraph {
	return types.Paragraph{
		ID:               "merged_" + b.ids[0],
		Text:             strings.TrimSpace(b.text.String()),
		OriginalBlockIDs: b.ids,
		PageNumber:       b.page,
		BBox:             b.bbox,
		LineHeight:       b.lineHeight / float64(len(b.ids)),
	}
}
