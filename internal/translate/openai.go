package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// translationTemperature keeps translations consistent across retries.
const translationTemperature float32 = 0.3

// OpenAIService translates batches through an OpenAI compatible chat model.
type OpenAIService struct {
	chatModel model.BaseChatModel
	modelName string
	// promptExtra is appended to the system prompt, typically the glossary
	// section.
	promptExtra string
}

// OpenAIConfig configures the chat model backing the service.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	PromptExtra string
}

// NewOpenAIService creates the chat model and wraps it as a translation
// Service.
func NewOpenAIService(ctx context.Context, cfg OpenAIConfig) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, types.NewPipeError(types.ErrConfig, "translation API key is not configured", nil)
	}
	if cfg.Model == "" {
		return nil, types.NewPipeError(types.ErrConfig, "translation model is not configured", nil)
	}

	temperature := translationTemperature
	modelConfig := &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Temperature: &temperature,
	}
	if cfg.BaseURL != "" {
		modelConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		modelConfig.Timeout = cfg.Timeout
	}

	chatModel, err := openai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, types.NewPipeError(types.ErrConfig, "failed to create chat model", err)
	}

	return &OpenAIService{
		chatModel:   chatModel,
		modelName:   cfg.Model,
		promptExtra: cfg.PromptExtra,
	}, nil
}

// TranslateBatch joins the items with the batch separator, sends one chat
// request and maps the split response back onto the item IDs. A response
// whose part count does not match the request is returned as a retryable
// error so the caller can retry or fall back to smaller batches.
func (s *OpenAIService) TranslateBatch(ctx context.Context, items []Item, tone string) (map[string]string, error) {
	if len(items) == 0 {
		return map[string]string{}, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	batchText := strings.Join(texts, BatchSeparator)

	logger.Debug("sending translation batch",
		logger.String("model", s.modelName),
		logger.Int("paragraphs", len(items)),
		logger.Int("chars", len(batchText)))

	response, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(s.systemPrompt(tone)),
		schema.UserMessage(userPrompt(batchText)),
	})
	if err != nil {
		return nil, classifyModelError(err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, types.NewPipeError(types.ErrRetryableService, "model returned empty translation", nil)
	}

	parts := strings.Split(response.Content, strings.TrimSpace(BatchSeparator))
	if len(parts) != len(items) {
		return nil, types.NewPipeError(types.ErrRetryableService,
			fmt.Sprintf("model returned %d parts for %d paragraphs", len(parts), len(items)), nil)
	}

	result := make(map[string]string, len(items))
	for i, item := range items {
		result[item.ID] = strings.TrimSpace(parts[i])
	}
	return result, nil
}

func (s *OpenAIService) systemPrompt(tone string) string {
	var toneInstruction string
	switch tone {
	case "friendly":
		toneInstruction = "Use a friendly, conversational Korean register (해요체)."
	default:
		toneInstruction = "Use a formal, academic Korean register (하십시오체)."
	}

	prompt := "You are a professional translator specializing in technical and academic documents. " +
		"Translate the given English text into Korean. " + toneInstruction + "\n\n" +
		"Rules:\n" +
		"1. The input contains multiple paragraphs separated by the marker ---BLOCK_SEPARATOR---. " +
		"Translate each paragraph independently and keep every marker exactly where it is. " +
		"The output must contain exactly as many paragraphs as the input.\n" +
		"2. Keep mathematical formulas, LaTeX commands, numbers, variable names, citations like [12] " +
		"and URLs unchanged.\n" +
		"3. Keep commonly used technical acronyms in English.\n" +
		"4. Output only the translations, no explanations."

	if s.promptExtra != "" {
		prompt += s.promptExtra
	}
	return prompt
}

func userPrompt(batchText string) string {
	return "Translate the following text to Korean:\n\n" + batchText
}

// ErrCredentialRejected marks authentication failures. Unlike other fatal
// translation errors these abort the whole job immediately, since no later
// request can succeed either.
var ErrCredentialRejected = errors.New("translation credentials rejected")

// classifyModelError maps a chat model error onto the pipeline error codes.
// Authentication, malformed-request and content-policy failures are fatal;
// everything else is assumed transient.
func classifyModelError(err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "invalid_api_key"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "forbidden"):
		return types.NewPipeError(types.ErrFatalService, "translation service rejected credentials",
			fmt.Errorf("%w: %v", ErrCredentialRejected, err))
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "bad request"),
		strings.Contains(msg, "content_policy"),
		strings.Contains(msg, "content policy"),
		strings.Contains(msg, "content_filter"):
		return types.NewPipeError(types.ErrFatalService, "translation request rejected", err)
	default:
		return types.NewPipeError(types.ErrRetryableService, "translation request failed", err)
	}
}
