// Package extract turns PDF pages into positioned text blocks. Two
// implementations exist: a remote layout-analysis client and a built-in pure
// Go extractor used when no endpoint is configured. Both produce blocks with
// inch coordinates, top-left origin, in reading order.
package extract

import (
	"context"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Service extracts text blocks for the pages of one chunk.
type Service interface {
	// Extract returns the blocks for chunk's page range of the document at
	// pdfPath. Block page numbers are absolute document page numbers.
	Extract(ctx context.Context, pdfPath string, chunk types.Chunk) ([]types.Block, error)
}

// NewService selects the extraction backend from configuration: the remote
// client when an endpoint is configured, the local extractor otherwise.
func NewService(cfg *types.Config) Service {
	if cfg != nil && cfg.ExtractEndpoint != "" {
		logger.Info("using remote extraction service",
			logger.String("endpoint", cfg.ExtractEndpoint))
		return NewRemoteClient(cfg.ExtractEndpoint, cfg.ExtractAPIKey, cfg.RequestTimeout)
	}
	logger.Info("using built-in text extractor")
	return NewLocalExtractor()
}
