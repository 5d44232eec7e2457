// Package pipeline orchestrates the translation job: page-range planning,
// the per-chunk stage machine with retries, and final document assembly.
package pipeline

import (
	"fmt"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Plan splits a document of pageCount pages into ceil(pageCount/chunkSize)
// contiguous chunks. Chunk IDs start at 0, page ranges are 1-based and
// inclusive, every page belongs to exactly one chunk and only the last chunk
// may be short.
func Plan(pageCount, chunkSize int) ([]types.Chunk, error) {
	if pageCount < 1 {
		return nil, types.NewPipeError(types.ErrMalformedDocument,
			fmt.Sprintf("invalid page count %d", pageCount), nil)
	}
	if chunkSize < 1 {
		return nil, types.NewPipeError(types.ErrConfig,
			fmt.Sprintf("invalid chunk size %d", chunkSize), nil)
	}

	chunkCount := (pageCount + chunkSize - 1) / chunkSize
	chunks := make([]types.Chunk, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := i*chunkSize + 1
		end := start + chunkSize - 1
		if end > pageCount {
			end = pageCount
		}
		chunks = append(chunks, types.Chunk{
			ID:        i,
			StartPage: start,
			EndPage:   end,
			State:     types.ChunkPending,
		})
	}

	logger.Info("chunk plan created",
		logger.Int("pages", pageCount),
		logger.Int("chunkSize", chunkSize),
		logger.Int("chunks", chunkCount))
	return chunks, nil
}
