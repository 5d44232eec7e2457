package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gdkds12/translatePDF/internal/artifact"
	"github.com/gdkds12/translatePDF/internal/compose"
	"github.com/gdkds12/translatePDF/internal/extract"
	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/merge"
	"github.com/gdkds12/translatePDF/internal/reflow"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Translator is the translation stage seen by the processor.
type Translator interface {
	Translate(ctx context.Context, paragraphs []types.Paragraph) ([]types.TranslationUnit, error)
}

// ChunkResult is the output of one fully processed chunk.
type ChunkResult struct {
	Chunk            types.Chunk
	Pages            []types.RenderedPage
	Warnings         []types.OverflowWarning
	FailedParagraphs int
}

// Processor runs one chunk through the stage machine:
// pending -> extracting -> merging -> translating -> reflowing -> rendering
// -> completed. Any stage error moves the chunk to failed with the stage and
// chunk recorded on the error.
type Processor struct {
	extractor  extract.Service
	merger     *merge.Merger
	translator Translator
	reflower   *reflow.Engine
	composer   *compose.Composer
	store      *artifact.Store

	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// ProcessorConfig wires the stage implementations together.
type ProcessorConfig struct {
	Extractor  extract.Service
	Merger     *merge.Merger
	Translator Translator
	Reflower   *reflow.Engine
	Composer   *compose.Composer
	Store      *artifact.Store
	MaxRetries int
	BaseDelay  time.Duration
}

// NewProcessor creates a chunk processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Second
	}
	return &Processor{
		extractor:  cfg.Extractor,
		merger:     cfg.Merger,
		translator: cfg.Translator,
		reflower:   cfg.Reflower,
		composer:   cfg.Composer,
		store:      cfg.Store,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Process runs all stages for one chunk. Intermediate results are persisted
// so a resumed job skips stages that already completed.
func (p *Processor) Process(ctx context.Context, pdfPath string, chunk types.Chunk) (*ChunkResult, error) {
	logger.Info("processing chunk",
		logger.Int("chunk", chunk.ID),
		logger.Int("startPage", chunk.StartPage),
		logger.Int("endPage", chunk.EndPage))

	chunk.State = types.ChunkExtracting
	blocks, err := p.extractStage(ctx, pdfPath, chunk)
	if err != nil {
		return nil, p.fail(&chunk, err)
	}

	chunk.State = types.ChunkMerging
	paragraphs, err := p.mergeStage(chunk, blocks)
	if err != nil {
		return nil, p.fail(&chunk, err)
	}

	chunk.State = types.ChunkTranslating
	units, err := p.translateStage(ctx, chunk, paragraphs)
	if err != nil {
		return nil, p.fail(&chunk, err)
	}

	chunk.State = types.ChunkReflowing
	boxes, warnings := p.reflower.Reflow(chunk.ID, paragraphs, units)
	if p.store != nil {
		if err := p.store.Save(chunk.ID, artifact.StageLayout, boxes); err != nil {
			logger.Warn("failed to persist layout artifact", logger.Err(err))
		}
	}

	chunk.State = types.ChunkRendering
	pageOf := make(map[string]int, len(paragraphs))
	for _, para := range paragraphs {
		pageOf[para.ID] = para.PageNumber
	}
	pages, err := p.composer.ComposeChunk(pdfPath, chunk, boxes, pageOf)
	if err != nil {
		return nil, p.fail(&chunk, err)
	}

	chunk.State = types.ChunkCompleted
	failed := 0
	for _, u := range units {
		if u.Failed {
			failed++
		}
	}

	logger.Info("chunk completed",
		logger.Int("chunk", chunk.ID),
		logger.Int("paragraphs", len(paragraphs)),
		logger.Int("degraded", failed),
		logger.Int("overflow", len(warnings)))

	return &ChunkResult{
		Chunk:            chunk,
		Pages:            pages,
		Warnings:         warnings,
		FailedParagraphs: failed,
	}, nil
}

// extractStage loads cached blocks or calls the extraction service with
// retries. When all attempts fail the error escalates to fatal: a chunk
// without text cannot proceed, and the job aborts with the failure locus.
func (p *Processor) extractStage(ctx context.Context, pdfPath string, chunk types.Chunk) ([]types.Block, error) {
	if p.store != nil {
		var cached []types.Block
		if ok, _ := p.store.Load(chunk.ID, artifact.StageBlocks, &cached); ok {
			logger.Info("reusing extracted blocks", logger.Int("chunk", chunk.ID))
			return cached, nil
		}
	}

	var blocks []types.Block
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		blocks, lastErr = p.extractor.Extract(ctx, pdfPath, chunk)
		if lastErr == nil {
			break
		}
		if !types.IsRetryable(lastErr) {
			return nil, lastErr
		}
		if attempt == p.maxRetries {
			var pe *types.PipeError
			if errors.As(lastErr, &pe) {
				return nil, types.NewPipeError(types.ErrFatalService,
					"extraction failed after all retries: "+pe.Message, pe.Cause)
			}
			return nil, types.NewPipeError(types.ErrFatalService,
				"extraction failed after all retries", lastErr)
		}

		delay := p.backoff(attempt)
		logger.Warn("extraction attempt failed, retrying",
			logger.Int("chunk", chunk.ID),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(lastErr))
		if err := p.sleep(ctx, delay); err != nil {
			return nil, types.NewPipeError(types.ErrInternal, "extraction canceled", err)
		}
	}

	if p.store != nil {
		// Fresh blocks invalidate whatever a previous run derived from the
		// old ones.
		p.store.Clear(chunk.ID)
		if err := p.store.Save(chunk.ID, artifact.StageBlocks, blocks); err != nil {
			logger.Warn("failed to persist block artifact", logger.Err(err))
		}
	}
	return blocks, nil
}

func (p *Processor) mergeStage(chunk types.Chunk, blocks []types.Block) ([]types.Paragraph, error) {
	if p.store != nil {
		var cached []types.Paragraph
		if ok, _ := p.store.Load(chunk.ID, artifact.StageParagraphs, &cached); ok {
			logger.Info("reusing merged paragraphs", logger.Int("chunk", chunk.ID))
			return cached, nil
		}
	}

	paragraphs := p.merger.Merge(blocks)

	if p.store != nil {
		if err := p.store.Save(chunk.ID, artifact.StageParagraphs, paragraphs); err != nil {
			logger.Warn("failed to persist paragraph artifact", logger.Err(err))
		}
	}
	return paragraphs, nil
}

func (p *Processor) translateStage(ctx context.Context, chunk types.Chunk, paragraphs []types.Paragraph) ([]types.TranslationUnit, error) {
	if p.store != nil {
		var cached []types.TranslationUnit
		if ok, _ := p.store.Load(chunk.ID, artifact.StageUnits, &cached); ok && len(cached) == len(paragraphs) {
			logger.Info("reusing translated units", logger.Int("chunk", chunk.ID))
			return cached, nil
		}
	}

	// Per-paragraph degradation happens inside the translator; an error
	// here means the stage as a whole cannot continue, credential
	// rejection included.
	units, err := p.translator.Translate(ctx, paragraphs)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.store.Save(chunk.ID, artifact.StageUnits, units); err != nil {
			logger.Warn("failed to persist unit artifact", logger.Err(err))
		}
	}
	return units, nil
}

// fail moves the chunk to the failed state and annotates err with the chunk
// and the stage it failed in.
func (p *Processor) fail(chunk *types.Chunk, err error) error {
	stage := chunk.State
	chunk.State = types.ChunkFailed
	var pe *types.PipeError
	if errors.As(err, &pe) {
		return pe.WithLocus(chunk.ID, stage)
	}
	return types.NewPipeError(types.ErrInternal, "chunk processing failed", err).
		WithLocus(chunk.ID, stage)
}

func (p *Processor) backoff(attempt int) time.Duration {
	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay + time.Duration(rand.Int63n(int64(delay)/2+1))
}
