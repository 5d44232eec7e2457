// Package compose renders translated text onto copies of the original pages.
// Each page is carved out of the source document, the reflowed lines are
// stamped over the original paragraphs with an opaque background, and the
// result is returned as a standalone one-page PDF.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

const pointsPerInch = 72.0

// Renderer produces one composed page from the source document and the
// layout boxes that belong to that page.
type Renderer interface {
	ComposePage(pdfPath string, pageNum int, boxes []types.LayoutBox) (types.RenderedPage, error)
}

// PDFRenderer implements Renderer on top of pdfcpu: the page is trimmed out
// of the source file and every text line is applied as a stamp with a white
// background that covers the original text.
type PDFRenderer struct {
	workDir         string
	fontName        string
	lineHeightRatio float64
}

// RendererConfig configures page composition.
type RendererConfig struct {
	// WorkDir receives the temporary one-page files.
	WorkDir string
	// FontPath is an optional TTF with Hangul coverage, installed into
	// pdfcpu's user font directory. FontName selects the installed font.
	FontPath        string
	FontName        string
	LineHeightRatio float64
}

// NewPDFRenderer creates the renderer and installs the configured user font.
func NewPDFRenderer(cfg RendererConfig) (*PDFRenderer, error) {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, types.NewPipeError(types.ErrInternal, "failed to create work directory", err)
	}
	if cfg.LineHeightRatio <= 0 {
		cfg.LineHeightRatio = 1.2
	}

	fontName := cfg.FontName
	if cfg.FontPath != "" {
		if err := api.InstallFonts([]string{cfg.FontPath}); err != nil {
			return nil, types.NewPipeError(types.ErrConfig, "failed to install overlay font", err)
		}
		if fontName == "" {
			base := filepath.Base(cfg.FontPath)
			fontName = base[:len(base)-len(filepath.Ext(base))]
		}
		logger.Info("overlay font installed",
			logger.String("path", cfg.FontPath), logger.String("font", fontName))
	}
	if fontName == "" {
		// Built-in font, no Hangul glyphs. Good enough for layout checks
		// and for documents that stay in Latin script.
		fontName = "Helvetica"
	}

	return &PDFRenderer{
		workDir:         cfg.WorkDir,
		fontName:        fontName,
		lineHeightRatio: cfg.LineHeightRatio,
	}, nil
}

// ComposePage renders one output page. The original page serves as the
// background so figures, tables and untranslated regions survive unchanged.
func (r *PDFRenderer) ComposePage(pdfPath string, pageNum int, boxes []types.LayoutBox) (types.RenderedPage, error) {
	pagePath := filepath.Join(r.workDir, fmt.Sprintf("page_%d.pdf", pageNum))
	defer os.Remove(pagePath)

	if err := api.TrimFile(pdfPath, pagePath, []string{strconv.Itoa(pageNum)}, nil); err != nil {
		return types.RenderedPage{}, types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("failed to isolate page %d", pageNum), err)
	}

	for _, box := range boxes {
		if box.Passthrough || len(box.Lines) == 0 {
			continue
		}
		if err := r.stampBox(pagePath, box); err != nil {
			return types.RenderedPage{}, err
		}
	}

	data, err := os.ReadFile(pagePath)
	if err != nil {
		return types.RenderedPage{}, types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("failed to read composed page %d", pageNum), err)
	}

	logger.Debug("page composed",
		logger.Int("page", pageNum), logger.Int("boxes", len(boxes)))
	return types.RenderedPage{PageNumber: pageNum, Data: data}, nil
}

// stampBox applies every line of one layout box as a text stamp. Lines are
// positioned from the top-left of the page; pdfcpu offsets move down with
// negative y.
func (r *PDFRenderer) stampBox(pagePath string, box types.LayoutBox) error {
	xPts := box.BBox.X * pointsPerInch
	topPts := box.BBox.Y * pointsPerInch
	lineHeight := box.FontSize * r.lineHeightRatio

	for i, line := range box.Lines {
		if line == "" {
			continue
		}
		// Offset to the line's baseline area, measured from the top-left
		// corner.
		yPts := topPts + float64(i)*lineHeight + box.FontSize

		desc := fmt.Sprintf(
			"fontname:%s, points:%.1f, scale:1 abs, pos:tl, off:%.1f %.1f, rot:0, fillcol:#000000, bgcol:#ffffff, ma:1",
			r.fontName, box.FontSize, xPts, -yPts)

		wm, err := api.TextWatermark(line, desc, true, false, 0)
		if err != nil {
			return types.NewPipeError(types.ErrInternal, "failed to build text stamp", err)
		}
		if err := api.AddWatermarksFile(pagePath, pagePath, nil, wm, nil); err != nil {
			return types.NewPipeError(types.ErrInternal,
				fmt.Sprintf("failed to stamp paragraph %s", box.ParagraphID), err)
		}
	}
	return nil
}

// Composer groups layout boxes by page and renders every page of a chunk,
// including pages without any text so the output stays page-complete.
type Composer struct {
	renderer Renderer
}

// NewComposer creates a Composer on top of the given renderer.
func NewComposer(renderer Renderer) *Composer {
	return &Composer{renderer: renderer}
}

// ComposeChunk renders all pages of the chunk in ascending page order.
// pageOf maps a paragraph ID to its page number.
func (c *Composer) ComposeChunk(pdfPath string, chunk types.Chunk, boxes []types.LayoutBox, pageOf map[string]int) ([]types.RenderedPage, error) {
	byPage := make(map[int][]types.LayoutBox)
	for _, box := range boxes {
		if box.Passthrough {
			// The source rendering already shows this paragraph; stamping
			// over it would replace correct output with re-set text.
			logger.Debug("passthrough box kept as source rendering",
				logger.String("paragraph", box.ParagraphID))
			continue
		}
		page, ok := pageOf[box.ParagraphID]
		if !ok {
			logger.Warn("layout box without page mapping",
				logger.String("paragraph", box.ParagraphID))
			continue
		}
		byPage[page] = append(byPage[page], box)
	}

	pages := make([]types.RenderedPage, 0, chunk.PageCount())
	for _, pageNum := range chunk.Pages() {
		rendered, err := c.renderer.ComposePage(pdfPath, pageNum, byPage[pageNum])
		if err != nil {
			return nil, err
		}
		pages = append(pages, rendered)
	}
	return pages, nil
}
