package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gdkds12/translatePDF/internal/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OpenAIModel != DefaultModel {
		t.Errorf("model = %q", cfg.OpenAIModel)
	}
	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d", cfg.ChunkSize)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("max retries = %d", cfg.MaxRetries)
	}
	if cfg.Tone != "formal" {
		t.Errorf("tone = %q", cfg.Tone)
	}
	if cfg.MinFontSize != DefaultMinFontSize || cfg.DefaultFontSize != DefaultFontSize {
		t.Errorf("font sizes = %v/%v", cfg.MinFontSize, cfg.DefaultFontSize)
	}
}

func TestManagerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	cfg := m.Get()
	cfg.ChunkSize = 5
	cfg.Tone = "friendly"
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload NewManager() error: %v", err)
	}
	got := m2.Get()
	if got.ChunkSize != 5 {
		t.Errorf("reloaded chunk size = %d, want 5", got.ChunkSize)
	}
	if got.Tone != "friendly" {
		t.Errorf("reloaded tone = %q, want friendly", got.Tone)
	}
}

func TestManagerMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.json")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if m.Get().ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d, want default", m.Get().ChunkSize)
	}
}

func TestManagerEnvOverrides(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk-from-env")
	t.Setenv(EnvOpenAIBaseURL, "https://proxy.example.com/v1")
	t.Setenv(EnvExtractEndpoint, "https://extract.example.com")

	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	cfg := m.Get()
	if cfg.OpenAIAPIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.OpenAIAPIKey)
	}
	if cfg.OpenAIBaseURL != "https://proxy.example.com/v1" {
		t.Errorf("base url = %q", cfg.OpenAIBaseURL)
	}
	if cfg.ExtractEndpoint != "https://extract.example.com" {
		t.Errorf("extract endpoint = %q", cfg.ExtractEndpoint)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	got := normalize(&types.Config{Tone: "yelling", MinFontSize: 20, DefaultFontSize: 10})

	if got.Tone != DefaultTone {
		t.Errorf("tone = %q, want %q", got.Tone, DefaultTone)
	}
	if got.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d", got.ChunkSize)
	}
	if got.MinFontSize > got.DefaultFontSize {
		t.Errorf("min font %v exceeds default %v", got.MinFontSize, got.DefaultFontSize)
	}
	if got.VerticalToleranceFactor != DefaultVerticalToleranceFactor {
		t.Errorf("vertical tolerance = %v", got.VerticalToleranceFactor)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"chunk_size": 3}`), 0600); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	cfg := m.Get()
	if cfg.ChunkSize != 3 {
		t.Errorf("chunk size = %d, want 3", cfg.ChunkSize)
	}
	// Missing fields fall back to defaults.
	if cfg.OpenAIModel != DefaultModel {
		t.Errorf("model = %q, want default", cfg.OpenAIModel)
	}
}
