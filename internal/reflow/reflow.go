// Package reflow fits translated text back into the bounding boxes of the
// original paragraphs. Korean translations are usually shorter than their
// English source but wider per glyph, so each paragraph is wrapped and its
// font size stepped down until the lines fit, with a bounded overflow
// allowance once the minimum size is reached.
package reflow

import (
	"strings"
	"unicode"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/translate"
	"github.com/gdkds12/translatePDF/internal/types"
)

const (
	pointsPerInch = 72.0

	// fontSizeStep is how much the font shrinks per fitting iteration.
	fontSizeStep = 0.5

	// TruncationMarker terminates text that could not be fitted completely.
	TruncationMarker = "…"
)

// Config holds the fitting parameters in points.
type Config struct {
	DefaultFontSize   float64
	MinFontSize       float64
	LineHeightRatio   float64
	OverflowTolerance float64
}

// DefaultConfig returns the standard fitting parameters.
func DefaultConfig() Config {
	return Config{
		DefaultFontSize:   10.0,
		MinFontSize:       6.0,
		LineHeightRatio:   1.2,
		OverflowTolerance: 12.0,
	}
}

// Engine reflows translated paragraphs. It is stateless and safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine, falling back to defaults for zero values.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DefaultFontSize <= 0 {
		cfg.DefaultFontSize = def.DefaultFontSize
	}
	if cfg.MinFontSize <= 0 {
		cfg.MinFontSize = def.MinFontSize
	}
	if cfg.MinFontSize > cfg.DefaultFontSize {
		cfg.MinFontSize = cfg.DefaultFontSize
	}
	if cfg.LineHeightRatio <= 0 {
		cfg.LineHeightRatio = def.LineHeightRatio
	}
	if cfg.OverflowTolerance < 0 {
		cfg.OverflowTolerance = def.OverflowTolerance
	}
	return &Engine{cfg: cfg}
}

// Reflow produces one layout box per translation unit, preserving unit
// order. Overflow never fails the stage; paragraphs that exceed their box at
// the minimum font size are reported as warnings.
func (e *Engine) Reflow(chunkID int, paragraphs []types.Paragraph, units []types.TranslationUnit) ([]types.LayoutBox, []types.OverflowWarning) {
	byID := make(map[string]types.Paragraph, len(paragraphs))
	for _, p := range paragraphs {
		byID[p.ID] = p
	}

	boxes := make([]types.LayoutBox, 0, len(units))
	var warnings []types.OverflowWarning

	for _, unit := range units {
		para, ok := byID[unit.ParagraphID]
		if !ok {
			logger.Warn("translation unit without matching paragraph",
				logger.String("paragraph", unit.ParagraphID))
			continue
		}

		box, warning := e.fitParagraph(para, unit)
		boxes = append(boxes, box)
		if warning != nil {
			warning.ChunkID = chunkID
			warnings = append(warnings, *warning)
		}
	}
	return boxes, warnings
}

// fitParagraph wraps the unit's text into the paragraph's box, shrinking the
// font until it fits or the floor is reached.
func (e *Engine) fitParagraph(para types.Paragraph, unit types.TranslationUnit) (types.LayoutBox, *types.OverflowWarning) {
	text := unit.TranslatedText
	if text == "" {
		text = unit.SourceText
	}

	// Formulas reuse the source rendering and must never be rewrapped,
	// shrunk or truncated.
	if unit.TranslatedText == unit.SourceText && translate.IsFormula(unit.SourceText) {
		return types.LayoutBox{
			ParagraphID: para.ID,
			FontSize:    e.cfg.DefaultFontSize,
			Lines:       []string{text},
			BBox:        para.BBox,
			Passthrough: true,
		}, nil
	}

	widthPts := para.BBox.Width * pointsPerInch
	heightPts := para.BBox.Height * pointsPerInch

	fontSize := e.cfg.DefaultFontSize
	var lines []string
	for {
		lines = wrapText(text, fontSize, widthPts)
		needed := float64(len(lines)) * fontSize * e.cfg.LineHeightRatio
		if needed <= heightPts {
			return types.LayoutBox{
				ParagraphID: para.ID,
				FontSize:    fontSize,
				Lines:       lines,
				BBox:        para.BBox,
			}, nil
		}
		if fontSize-fontSizeStep < e.cfg.MinFontSize {
			break
		}
		fontSize -= fontSizeStep
	}

	// Floor reached. Accept bounded overflow, truncate beyond it.
	needed := float64(len(lines)) * fontSize * e.cfg.LineHeightRatio
	excess := needed - heightPts

	box := types.LayoutBox{
		ParagraphID: para.ID,
		FontSize:    fontSize,
		Lines:       lines,
		BBox:        para.BBox,
		Overflowed:  true,
	}

	if excess > e.cfg.OverflowTolerance {
		box.Lines = truncateLines(lines, fontSize, e.cfg.LineHeightRatio, heightPts+e.cfg.OverflowTolerance)
		box.Truncated = true
	}

	warning := &types.OverflowWarning{
		PageNumber:  para.PageNumber,
		ParagraphID: para.ID,
		FontSize:    fontSize,
		ExcessPts:   excess,
		Truncated:   box.Truncated,
	}
	logger.Warn("paragraph overflows its box at minimum font size",
		logger.String("paragraph", para.ID),
		logger.Int("page", para.PageNumber),
		logger.Float64("excessPts", excess),
		logger.Bool("truncated", box.Truncated))
	return box, warning
}

// truncateLines keeps as many leading lines as fit in maxHeightPts and marks
// the cut with the truncation marker. At least one line is always kept.
func truncateLines(lines []string, fontSize, lineHeightRatio, maxHeightPts float64) []string {
	lineHeight := fontSize * lineHeightRatio
	keep := int(maxHeightPts / lineHeight)
	if keep < 1 {
		keep = 1
	}
	if keep >= len(lines) {
		return lines
	}
	kept := make([]string, keep)
	copy(kept, lines[:keep])
	last := kept[keep-1]
	runes := []rune(last)
	if len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	kept[keep-1] = string(runes) + TruncationMarker
	return kept
}

// wrapText breaks text into lines no wider than maxWidthPts at the given
// font size. Breaks prefer spaces; a single token wider than the box is
// broken between characters.
func wrapText(text string, fontSize, maxWidthPts float64) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxWidthPts <= 0 {
		// A degenerate box cannot hold any text.
		return []string{TruncationMarker}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0.0
	spaceWidth := charWidth(' ', fontSize)

	flush := func() {
		if line.Len() > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wordWidth := StringWidth(word, fontSize)

		if wordWidth > maxWidthPts {
			// Token wider than the box, break it between characters.
			flush()
			for _, r := range word {
				w := charWidth(r, fontSize)
				if lineWidth+w > maxWidthPts && line.Len() > 0 {
					flush()
				}
				line.WriteRune(r)
				lineWidth += w
			}
			continue
		}

		needed := wordWidth
		if line.Len() > 0 {
			needed += spaceWidth
		}
		if lineWidth+needed > maxWidthPts {
			flush()
			needed = wordWidth
		}
		if line.Len() > 0 {
			line.WriteRune(' ')
		}
		line.WriteString(word)
		lineWidth += needed
	}
	flush()

	if len(lines) == 0 {
		return []string{TruncationMarker}
	}
	return lines
}

// StringWidth estimates the rendered width of text in points. CJK glyphs are
// full width, Latin glyphs roughly half, spaces a quarter.
func StringWidth(text string, fontSize float64) float64 {
	width := 0.0
	for _, r := range text {
		width += charWidth(r, fontSize)
	}
	return width
}

func charWidth(r rune, fontSize float64) float64 {
	switch {
	case r == ' ':
		return fontSize * 0.25
	case isWideRune(r):
		return fontSize
	default:
		return fontSize * 0.5
	}
}

// isWideRune reports whether r renders as a full width glyph. Hangul, Han
// and Kana all do.
func isWideRune(r rune) bool {
	return unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		(r >= 0xFF00 && r <= 0xFFEF) // full width forms
}
