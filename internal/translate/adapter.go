package translate

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gdkds12/translatePDF/internal/glossary"
	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Adapter drives the translation stage: it batches paragraphs within the
// context window, retries transient failures with exponential backoff, falls
// back to per-paragraph requests when a batch keeps failing, and enforces
// the glossary on every result. Exactly one TranslationUnit is produced per
// input paragraph, in input order.
type Adapter struct {
	service    Service
	gloss      *glossary.Glossary
	tone       string
	window     int
	maxRetries int
	baseDelay  time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// AdapterConfig configures the translation adapter.
type AdapterConfig struct {
	Tone          string
	ContextWindow int
	MaxRetries    int
	BaseDelay     time.Duration
}

// NewAdapter creates an Adapter on top of the given translation service.
func NewAdapter(service Service, gloss *glossary.Glossary, cfg AdapterConfig) *Adapter {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 4000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Second
	}
	if cfg.Tone == "" {
		cfg.Tone = "formal"
	}
	return &Adapter{
		service:    service,
		gloss:      gloss,
		tone:       cfg.Tone,
		window:     cfg.ContextWindow,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		sleep:      sleepCtx,
	}
}

// Translate produces one unit per paragraph, preserving input order. A
// paragraph whose translation remains unavailable after all retries becomes
// a degraded unit carrying its source text with Failed set; only credential
// rejection aborts the stage.
func (a *Adapter) Translate(ctx context.Context, paragraphs []types.Paragraph) ([]types.TranslationUnit, error) {
	units := make([]types.TranslationUnit, len(paragraphs))
	indexByID := make(map[string]int, len(paragraphs))

	var pending []Item
	for i, p := range paragraphs {
		indexByID[p.ID] = i
		units[i] = types.TranslationUnit{
			ParagraphID: p.ID,
			SourceText:  p.Text,
			Tone:        a.tone,
		}
		if IsFormula(p.Text) {
			// Formulas go through verbatim.
			units[i].TranslatedText = p.Text
			continue
		}
		pending = append(pending, Item{ID: p.ID, Text: p.Text})
	}

	for _, batch := range a.makeBatches(pending) {
		translated, err := a.translateWithRetry(ctx, batch)
		if err != nil {
			if errors.Is(err, ErrCredentialRejected) {
				return nil, err
			}
			logger.Warn("batch translation exhausted retries, falling back to single paragraphs",
				logger.Int("paragraphs", len(batch)), logger.Err(err))
			translated = a.translateIndividually(ctx, batch)
		}

		for _, item := range batch {
			i := indexByID[item.ID]
			text, ok := translated[item.ID]
			if !ok || text == "" {
				units[i].TranslatedText = item.Text
				units[i].Failed = true
				continue
			}
			units[i].TranslatedText = a.gloss.Enforce(item.Text, text)
		}
	}

	return units, nil
}

// translateWithRetry calls the service up to maxRetries times with
// exponential backoff and jitter. Fatal errors are returned immediately.
func (a *Adapter) translateWithRetry(ctx context.Context, batch []Item) (map[string]string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		result, err := a.service.TranslateBatch(ctx, batch, a.tone)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !types.IsRetryable(err) {
			return nil, err
		}
		if attempt == a.maxRetries {
			break
		}

		delay := backoffDelay(a.baseDelay, attempt)
		logger.Warn("translation attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err))
		if err := a.sleep(ctx, delay); err != nil {
			return nil, types.NewPipeError(types.ErrRetryableService, "translation canceled", err)
		}
	}
	return nil, lastErr
}

// translateIndividually retries each paragraph of a failed batch on its own.
// Paragraphs missing from the result become degraded units upstream.
func (a *Adapter) translateIndividually(ctx context.Context, batch []Item) map[string]string {
	result := make(map[string]string, len(batch))
	for _, item := range batch {
		single, err := a.translateWithRetry(ctx, []Item{item})
		if err != nil {
			logger.Warn("paragraph translation permanently failed, keeping source text",
				logger.String("paragraph", item.ID), logger.Err(err))
			continue
		}
		if text, ok := single[item.ID]; ok {
			result[item.ID] = text
		}
	}
	return result
}

// makeBatches groups items so the combined text of each batch, separators
// included, stays within the context window. An oversized single item gets
// its own batch.
func (a *Adapter) makeBatches(items []Item) [][]Item {
	if len(items) == 0 {
		return nil
	}

	separatorSize := len(BatchSeparator)
	var batches [][]Item
	var current []Item
	currentSize := 0

	for _, item := range items {
		size := len(item.Text)

		if size >= a.window {
			if len(current) > 0 {
				batches = append(batches, current)
				current = nil
				currentSize = 0
			}
			batches = append(batches, []Item{item})
			continue
		}

		additional := size
		if len(current) > 0 {
			additional += separatorSize
		}
		if currentSize+additional > a.window {
			batches = append(batches, current)
			current = []Item{item}
			currentSize = size
			continue
		}
		current = append(current, item)
		currentSize += additional
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// backoffDelay doubles the base delay per attempt and adds up to 50% jitter
// so parallel chunks do not retry in lockstep.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
