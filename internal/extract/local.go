package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

const (
	// pointsPerInch converts PDF points to the inch coordinates used
	// pipeline-wide.
	pointsPerInch = 72.0

	// sameLineTolerancePts treats rows whose baselines differ by less than
	// this as the same visual line when sorting.
	sameLineTolerancePts = 5.0

	defaultFontSizePts = 10.0
)

// LocalExtractor extracts text blocks without any remote service. It reads
// the content streams directly, which works well for digitally authored PDFs
// but cannot handle scanned pages.
type LocalExtractor struct{}

// NewLocalExtractor creates the built-in extractor.
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

// Extract reads the chunk's pages and returns their text blocks in reading
// order.
func (e *LocalExtractor) Extract(ctx context.Context, pdfPath string, chunk types.Chunk) ([]types.Block, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "failed to open PDF for extraction", err)
	}
	defer f.Close()

	dims, err := PageDimensions(pdfPath)
	if err != nil {
		return nil, err
	}

	if chunk.EndPage > r.NumPage() {
		return nil, types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("chunk page range %d-%d exceeds document page count %d",
				chunk.StartPage, chunk.EndPage, r.NumPage()), nil)
	}

	var blocks []types.Block
	for _, pageNum := range chunk.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, types.NewPipeError(types.ErrInternal, "extraction canceled", err)
		}

		pageHeightPts := 11.0 * pointsPerInch
		if pageNum-1 < len(dims) {
			pageHeightPts = dims[pageNum-1].Height
		}

		pageBlocks, err := e.extractPage(r, pageNum, pageHeightPts)
		if err != nil {
			logger.Warn("page extraction failed, skipping page",
				logger.Int("page", pageNum), logger.Err(err))
			continue
		}
		blocks = append(blocks, pageBlocks...)
	}

	logger.Debug("local extraction finished",
		logger.Int("chunk", chunk.ID),
		logger.Int("blocks", len(blocks)))
	return blocks, nil
}

// extractPage extracts the rows of one page and converts them into blocks
// with inch coordinates, top-left origin, sorted in reading order.
func (e *LocalExtractor) extractPage(r *pdf.Reader, pageNum int, pageHeightPts float64) ([]types.Block, error) {
	page := r.Page(pageNum)
	if page.V.IsNull() {
		return nil, nil
	}
	if page.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("failed to read page text: %w", err)
	}

	type rawBlock struct {
		text string
		// PDF coordinates, points, bottom-left origin.
		minX, maxX, baselineY float64
		fontSize              float64
	}

	var raws []rawBlock
	for _, row := range rows {
		if len(row.Content) == 0 {
			continue
		}

		var sb strings.Builder
		var minX, maxX, maxY float64
		var totalFontSize float64
		fragments := 0

		for _, t := range row.Content {
			if t.S == "" || isPostScriptCode(t.S) {
				continue
			}
			sb.WriteString(t.S)
			if fragments == 0 {
				minX, maxX, maxY = t.X, t.X, t.Y
			} else {
				if t.X < minX {
					minX = t.X
				}
				if t.X > maxX {
					maxX = t.X
				}
				if t.Y > maxY {
					maxY = t.Y
				}
			}
			totalFontSize += t.FontSize
			fragments++
		}

		text := strings.TrimSpace(sb.String())
		if text == "" || isPostScriptCode(text) || hasExcessiveNonPrintable(text) {
			continue
		}

		fontSize := totalFontSize / float64(fragments)
		if fontSize <= 0 {
			fontSize = defaultFontSizePts
		}

		raws = append(raws, rawBlock{
			text:      text,
			minX:      minX,
			maxX:      maxX,
			baselineY: maxY,
			fontSize:  fontSize,
		})
	}

	// Higher Y means higher on the page in PDF coordinates, so descending Y
	// gives top-to-bottom reading order.
	sort.SliceStable(raws, func(i, j int) bool {
		dy := raws[i].baselineY - raws[j].baselineY
		if dy > -sameLineTolerancePts && dy < sameLineTolerancePts {
			return raws[i].minX < raws[j].minX
		}
		return raws[i].baselineY > raws[j].baselineY
	})

	blocks := make([]types.Block, 0, len(raws))
	for i, raw := range raws {
		heightPts := raw.fontSize * 1.2
		widthPts := raw.maxX - raw.minX + raw.fontSize
		// The reader reports fragment origins, not glyph extents, so
		// single-fragment rows need a width estimate from the text length.
		estimated := float64(len(raw.text)) * raw.fontSize * 0.5
		if estimated > widthPts {
			widthPts = estimated
		}

		// Flip to top-left origin: the baseline sits near the bottom of the
		// line box.
		topPts := pageHeightPts - raw.baselineY - raw.fontSize

		blocks = append(blocks, types.Block{
			ID:         fmt.Sprintf("p%d_l%d", pageNum, i+1),
			PageNumber: pageNum,
			Text:       raw.text,
			BBox: types.BoundingBox{
				X:      raw.minX / pointsPerInch,
				Y:      topPts / pointsPerInch,
				Width:  widthPts / pointsPerInch,
				Height: heightPts / pointsPerInch,
			},
		})
	}
	return blocks, nil
}

// isPostScriptCode reports whether text looks like PDF operator or
// PostScript code leaked from a content stream. Such fragments must never
// reach translation.
func isPostScriptCode(text string) bool {
	if len(text) == 0 {
		return false
	}

	textLower := strings.ToLower(text)

	if strings.Contains(text, " def ") || strings.HasSuffix(text, " def") {
		if strings.Contains(text, "/") {
			return true
		}
	}
	if strings.Contains(textLower, "null def") {
		return true
	}
	if strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	if strings.Contains(textLower, "/burl") || strings.Contains(textLower, "burl@") {
		return true
	}

	psOperators := []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
		"moveto", "lineto", "curveto",
	}
	for _, op := range psOperators {
		if strings.Contains(textLower, op) {
			return true
		}
	}

	// Several /Name tokens in a row indicate PostScript names, unless the
	// text is a URL.
	if !strings.Contains(text, "://") && !strings.Contains(textLower, "http") {
		nameCount := 0
		for _, word := range strings.Fields(text) {
			if len(word) > 1 && word[0] == '/' && isIdentifier(word[1:]) {
				nameCount++
			}
		}
		if nameCount >= 3 {
			return true
		}
	}

	return false
}

func isIdentifier(s string) bool {
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_' || c == '@') {
			return false
		}
	}
	return s != ""
}

// hasExcessiveNonPrintable reports whether more than 10% of the text is
// control or non-printable characters.
func hasExcessiveNonPrintable(text string) bool {
	if len(text) == 0 {
		return false
	}
	nonPrintable := 0
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			nonPrintable++
		}
		if r >= 0x7F && r <= 0x9F {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(text)) > 0.1
}
