package extract

import (
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcputypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// DocumentInfo describes an input PDF after validation.
type DocumentInfo struct {
	Path      string
	PageCount int
	FileSize  int64
}

// Inspect validates the input PDF and returns its page count and size. An
// unreadable or structurally broken file yields ErrMalformedDocument, which
// aborts the job before any chunk is planned.
func Inspect(pdfPath string) (*DocumentInfo, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewPipeError(types.ErrMalformedDocument, "input file does not exist", err)
		}
		return nil, types.NewPipeError(types.ErrMalformedDocument, "input file is not accessible", err)
	}
	if info.IsDir() {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "input path is a directory", nil)
	}

	if err := api.ValidateFile(pdfPath, nil); err != nil {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "input is not a valid PDF", err)
	}

	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "failed to read PDF structure", err)
	}
	if pdfCtx.PageCount < 1 {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "PDF has no pages", nil)
	}

	logger.Info("input document validated",
		logger.String("path", pdfPath),
		logger.Int("pages", pdfCtx.PageCount))

	return &DocumentInfo{
		Path:      pdfPath,
		PageCount: pdfCtx.PageCount,
		FileSize:  info.Size(),
	}, nil
}

// PageDimensions returns the media box size of every page in points.
func PageDimensions(pdfPath string) ([]pdfcputypes.Dim, error) {
	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return nil, types.NewPipeError(types.ErrMalformedDocument, "failed to read page dimensions", err)
	}
	return dims, nil
}
