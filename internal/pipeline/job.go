package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gdkds12/translatePDF/internal/artifact"
	"github.com/gdkds12/translatePDF/internal/compose"
	"github.com/gdkds12/translatePDF/internal/extract"
	"github.com/gdkds12/translatePDF/internal/glossary"
	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/merge"
	"github.com/gdkds12/translatePDF/internal/reflow"
	"github.com/gdkds12/translatePDF/internal/translate"
	"github.com/gdkds12/translatePDF/internal/types"
)

// ProgressFunc receives chunk completion updates. done counts completed
// chunks, total is the planned chunk count.
type ProgressFunc func(done, total int)

// Summary is the post-run report of a translation job.
type Summary struct {
	InputPath        string                  `json:"input_path"`
	OutputPath       string                  `json:"output_path"`
	PageCount        int                     `json:"page_count"`
	ChunkCount       int                     `json:"chunk_count"`
	ParagraphCount   int                     `json:"paragraph_count"`
	FailedParagraphs int                     `json:"failed_paragraphs"`
	Warnings         []types.OverflowWarning `json:"warnings,omitempty"`
	Duration         time.Duration           `json:"duration"`
}

// Job is one document translation run.
type Job struct {
	cfg      *types.Config
	gloss    *glossary.Glossary
	progress ProgressFunc

	// translator is replaceable in tests; when nil the OpenAI service is
	// built from the configuration.
	translator Translator
	extractor  extract.Service
	renderer   compose.Renderer
}

// Option customizes a Job.
type Option func(*Job)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(j *Job) { j.progress = fn }
}

// WithTranslator overrides the translation stage.
func WithTranslator(t Translator) Option {
	return func(j *Job) { j.translator = t }
}

// WithExtractor overrides the extraction stage.
func WithExtractor(e extract.Service) Option {
	return func(j *Job) { j.extractor = e }
}

// WithRenderer overrides the page renderer.
func WithRenderer(r compose.Renderer) Option {
	return func(j *Job) { j.renderer = r }
}

// NewJob creates a Job with the given configuration and glossary. gloss may
// be nil.
func NewJob(cfg *types.Config, gloss *glossary.Glossary, opts ...Option) *Job {
	j := &Job{cfg: cfg, gloss: gloss}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run translates the document at inputPath into outputPath. Chunks are
// processed serially in ascending order; the first fatal chunk error aborts
// the job with its chunk and stage recorded on the returned error.
func (j *Job) Run(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	start := time.Now()

	doc, err := extract.Inspect(inputPath)
	if err != nil {
		return nil, err
	}

	if outputPath == "" {
		outputPath = compose.OutputPath(inputPath)
	}

	workDir := j.cfg.WorkDirectory
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "translatepdf_*")
		if err != nil {
			return nil, types.NewPipeError(types.ErrInternal, "failed to create work directory", err)
		}
		defer os.RemoveAll(workDir)
	}

	chunks, err := Plan(doc.PageCount, j.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	processor, err := j.buildProcessor(ctx, workDir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		InputPath:  inputPath,
		OutputPath: outputPath,
		PageCount:  doc.PageCount,
		ChunkCount: len(chunks),
	}

	var allPages []types.RenderedPage
	for i, chunk := range chunks {
		result, err := processor.Process(ctx, inputPath, chunk)
		if err != nil {
			logger.Error("job aborted", err, logger.Int("chunk", chunk.ID))
			return nil, err
		}
		allPages = append(allPages, result.Pages...)
		summary.Warnings = append(summary.Warnings, result.Warnings...)
		summary.FailedParagraphs += result.FailedParagraphs
		if j.progress != nil {
			j.progress(i+1, len(chunks))
		}
	}

	if err := j.assemble(allPages, doc.PageCount, outputPath, workDir); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	logger.Info("job finished",
		logger.String("output", outputPath),
		logger.Int("pages", doc.PageCount),
		logger.Int("degradedParagraphs", summary.FailedParagraphs),
		logger.Int("overflowWarnings", len(summary.Warnings)),
		logger.Duration("duration", summary.Duration))
	return summary, nil
}

// assemble verifies page completeness and merges the rendered pages into the
// final document.
func (j *Job) assemble(pages []types.RenderedPage, pageCount int, outputPath, workDir string) error {
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if seen[p.PageNumber] {
			return types.NewPipeError(types.ErrInternal,
				fmt.Sprintf("page %d was rendered twice", p.PageNumber), nil)
		}
		seen[p.PageNumber] = true
	}
	for page := 1; page <= pageCount; page++ {
		if !seen[page] {
			return types.NewPipeError(types.ErrInternal,
				fmt.Sprintf("page %d is missing from the rendered output", page), nil)
		}
	}
	return compose.MergePages(pages, outputPath, workDir)
}

// buildProcessor assembles the stage implementations, honoring test
// overrides.
func (j *Job) buildProcessor(ctx context.Context, workDir string) (*Processor, error) {
	store, err := artifact.NewStore(workDir)
	if err != nil {
		return nil, err
	}

	extractor := j.extractor
	if extractor == nil {
		extractor = extract.NewService(j.cfg)
	}

	translator := j.translator
	if translator == nil {
		service, err := translate.NewOpenAIService(ctx, translate.OpenAIConfig{
			APIKey:      j.cfg.OpenAIAPIKey,
			BaseURL:     j.cfg.OpenAIBaseURL,
			Model:       j.cfg.OpenAIModel,
			Timeout:     time.Duration(j.cfg.RequestTimeout) * time.Second,
			PromptExtra: j.gloss.PromptSection(),
		})
		if err != nil {
			return nil, err
		}
		translator = translate.NewAdapter(service, j.gloss, translate.AdapterConfig{
			Tone:          j.cfg.Tone,
			ContextWindow: j.cfg.ContextWindow,
			MaxRetries:    j.cfg.MaxRetries,
			BaseDelay:     time.Duration(j.cfg.RetryBaseDelay) * time.Second,
		})
	}

	renderer := j.renderer
	if renderer == nil {
		renderer, err = compose.NewPDFRenderer(compose.RendererConfig{
			WorkDir:         workDir,
			FontPath:        j.cfg.FontPath,
			FontName:        j.cfg.FontName,
			LineHeightRatio: j.cfg.LineHeightRatio,
		})
		if err != nil {
			return nil, err
		}
	}

	return NewProcessor(ProcessorConfig{
		Extractor: extractor,
		Merger: merge.NewMerger(merge.Config{
			VerticalToleranceFactor:    j.cfg.VerticalToleranceFactor,
			HorizontalOverlapThreshold: j.cfg.HorizontalOverlapThreshold,
		}),
		Translator: translator,
		Reflower: reflow.NewEngine(reflow.Config{
			DefaultFontSize:   j.cfg.DefaultFontSize,
			MinFontSize:       j.cfg.MinFontSize,
			LineHeightRatio:   j.cfg.LineHeightRatio,
			OverflowTolerance: j.cfg.OverflowTolerance,
		}),
		Composer:   compose.NewComposer(renderer),
		Store:      store,
		MaxRetries: j.cfg.MaxRetries,
		BaseDelay:  time.Duration(j.cfg.RetryBaseDelay) * time.Second,
	}), nil
}
