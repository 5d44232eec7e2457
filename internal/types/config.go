package types

// Config is the application configuration for the translation pipeline.
type Config struct {
	// Translation service.
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"` // base URL for OpenAI compatible APIs
	OpenAIModel   string `json:"openai_model"`
	ContextWindow int    `json:"context_window"` // batch size bound in characters

	// Extraction service. When Endpoint is empty the built-in pure Go
	// extractor is used instead of the remote call.
	ExtractEndpoint string `json:"extract_endpoint"`
	ExtractAPIKey   string `json:"extract_api_key"`

	// Pipeline.
	ChunkSize      int    `json:"chunk_size"`       // pages per chunk
	WorkDirectory  string `json:"work_directory"`   // intermediate artifacts and temp files
	Tone           string `json:"tone"`             // "formal" or "friendly"
	MaxRetries     int    `json:"max_retries"`      // attempts per remote call
	RetryBaseDelay int    `json:"retry_base_delay"` // seconds, doubled per attempt
	RequestTimeout int    `json:"request_timeout"`  // seconds per remote call

	// Layout.
	FontPath          string  `json:"font_path"`          // TTF with Hangul coverage
	FontName          string  `json:"font_name"`
	DefaultFontSize   float64 `json:"default_font_size"`  // points
	MinFontSize       float64 `json:"min_font_size"`      // floor, points
	LineHeightRatio   float64 `json:"line_height_ratio"`  // leading as ratio of font size
	OverflowTolerance float64 `json:"overflow_tolerance"` // accepted vertical overflow, points

	// Paragraph merge heuristics. Empirically tuned; exposed so they can be
	// validated against representative documents.
	VerticalToleranceFactor    float64 `json:"vertical_tolerance_factor"`
	HorizontalOverlapThreshold float64 `json:"horizontal_overlap_threshold"`
}
