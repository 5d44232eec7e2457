// Package config provides configuration management for the PDF translation
// pipeline. Configuration is stored as JSON, with environment variables
// overriding API credentials.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name.
	DefaultConfigFileName = "translatepdf-config.json"
	// EnvOpenAIAPIKey overrides the translation API key.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL overrides the translation API base URL.
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvExtractEndpoint overrides the extraction service endpoint.
	EnvExtractEndpoint = "EXTRACT_ENDPOINT"
	// EnvExtractAPIKey overrides the extraction service key.
	EnvExtractAPIKey = "EXTRACT_API_KEY"

	// DefaultModel is the default translation model.
	DefaultModel = "gpt-4o"
	// DefaultChunkSize is the default number of pages per chunk.
	DefaultChunkSize = 10
	// DefaultContextWindow bounds translation batch size in characters.
	DefaultContextWindow = 4000
	// DefaultMaxRetries is the retry cap for remote calls.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the base backoff delay in seconds.
	DefaultRetryBaseDelay = 5
	// DefaultRequestTimeout is the per-call timeout in seconds.
	DefaultRequestTimeout = 30
	// DefaultTone is the default translation tone.
	DefaultTone = "formal"

	// DefaultFontSize is the starting overlay font size in points.
	DefaultFontSize = 10.0
	// DefaultMinFontSize is the smallest font size the reflow engine may
	// select.
	DefaultMinFontSize = 6.0
	// DefaultLineHeightRatio is the leading as a ratio of font size.
	DefaultLineHeightRatio = 1.2
	// DefaultOverflowTolerance is the accepted vertical overflow in points
	// once the font floor is reached.
	DefaultOverflowTolerance = 12.0

	// DefaultVerticalToleranceFactor bounds the line gap relative to the
	// average block height when merging.
	DefaultVerticalToleranceFactor = 0.5
	// DefaultHorizontalOverlapThreshold is the minimum horizontal overlap
	// (fraction of the narrower block) for two lines to merge.
	DefaultHorizontalOverlapThreshold = 0.1
)

// Manager loads, validates and persists application configuration.
type Manager struct {
	configPath string
	config     *types.Config
}

// NewManager creates a Manager using the given config path, or the default
// location in the user's home directory when empty.
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewPipeError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, DefaultConfigFileName)
	}

	m := &Manager{
		configPath: configPath,
		config:     Default(),
	}

	if err := m.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, types.NewPipeError(types.ErrConfig, "failed to load configuration", err)
		}
		// First run, defaults plus environment.
	}
	m.applyEnv()

	return m, nil
}

// Default returns a Config populated with defaults.
func Default() *types.Config {
	return &types.Config{
		OpenAIModel:                DefaultModel,
		ContextWindow:              DefaultContextWindow,
		ChunkSize:                  DefaultChunkSize,
		Tone:                       DefaultTone,
		MaxRetries:                 DefaultMaxRetries,
		RetryBaseDelay:             DefaultRetryBaseDelay,
		RequestTimeout:             DefaultRequestTimeout,
		DefaultFontSize:            DefaultFontSize,
		MinFontSize:                DefaultMinFontSize,
		LineHeightRatio:            DefaultLineHeightRatio,
		OverflowTolerance:          DefaultOverflowTolerance,
		VerticalToleranceFactor:    DefaultVerticalToleranceFactor,
		HorizontalOverlapThreshold: DefaultHorizontalOverlapThreshold,
	}
}

// Load reads the configuration file. Missing file is returned as-is so the
// caller can fall back to defaults.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return err
	}
	m.config = normalize(cfg)

	logger.Debug("configuration loaded", logger.String("path", m.configPath))
	return nil
}

// Save writes the configuration file.
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewPipeError(types.ErrConfig, "failed to marshal configuration", err)
	}

	if dir := filepath.Dir(m.configPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewPipeError(types.ErrConfig, "failed to create config directory", err)
		}
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return types.NewPipeError(types.ErrConfig, "failed to write configuration", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *types.Config { return m.config }

// Set replaces the current configuration after normalizing zero values.
func (m *Manager) Set(cfg *types.Config) {
	m.config = normalize(cfg)
}

// applyEnv lets environment variables override file values for credentials
// and endpoints.
func (m *Manager) applyEnv() {
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		m.config.OpenAIAPIKey = v
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		m.config.OpenAIBaseURL = v
	}
	if v := os.Getenv(EnvExtractEndpoint); v != "" {
		m.config.ExtractEndpoint = v
	}
	if v := os.Getenv(EnvExtractAPIKey); v != "" {
		m.config.ExtractAPIKey = v
	}
}

// normalize fills zero values with defaults so a partial config file still
// yields a usable configuration.
func normalize(cfg *types.Config) *types.Config {
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = DefaultModel
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Tone != "formal" && cfg.Tone != "friendly" {
		cfg.Tone = DefaultTone
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.DefaultFontSize <= 0 {
		cfg.DefaultFontSize = DefaultFontSize
	}
	if cfg.MinFontSize <= 0 {
		cfg.MinFontSize = DefaultMinFontSize
	}
	if cfg.MinFontSize > cfg.DefaultFontSize {
		cfg.MinFontSize = cfg.DefaultFontSize
	}
	if cfg.LineHeightRatio <= 0 {
		cfg.LineHeightRatio = DefaultLineHeightRatio
	}
	if cfg.OverflowTolerance < 0 {
		cfg.OverflowTolerance = DefaultOverflowTolerance
	}
	if cfg.VerticalToleranceFactor <= 0 {
		cfg.VerticalToleranceFactor = DefaultVerticalToleranceFactor
	}
	if cfg.HorizontalOverlapThreshold <= 0 {
		cfg.HorizontalOverlapThreshold = DefaultHorizontalOverlapThreshold
	}
	return cfg
}
