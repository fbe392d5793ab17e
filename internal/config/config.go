// Package config loads vibetrack settings in three layers: built-in
// defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lehigh-university-libraries/vibetrack/internal/validation"
)

const (
	// PathEnvVar overrides the config file location
	PathEnvVar = "VIBETRACK_CONFIG"
	// DefaultPath is read when present and no other path is given
	DefaultPath = "vibetrack.yaml"

	envPrefix = "vibetrack_"
)

type Config struct {
	Provider    string  `koanf:"provider" validate:"oneof=gemini openai ollama"`
	Temperature float64 `koanf:"temperature" validate:"min=0,max=2"`
	Suggestions int     `koanf:"suggestions" validate:"min=1,max=25"`

	Gemini  GeminiConfig  `koanf:"gemini"`
	OpenAI  OpenAIConfig  `koanf:"openai"`
	Ollama  OllamaConfig  `koanf:"ollama"`
	Catalog CatalogConfig `koanf:"catalog"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type OpenAIConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
	URL    string `koanf:"url" validate:"omitempty,url"`
}

type OllamaConfig struct {
	URL   string `koanf:"url" validate:"omitempty,url"`
	Model string `koanf:"model"`
}

type CatalogConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Country           string        `koanf:"country"`
	ArtworkSize       int           `koanf:"artwork_size" validate:"min=0"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"min=0"`
}

type ServerConfig struct {
	Host                 string        `koanf:"host"`
	Port                 int           `koanf:"port" validate:"min=1,max=65535"`
	AnalyzeRatePerMinute int           `koanf:"analyze_rate_per_minute" validate:"min=0"`
	MaxUploadBytes       int64         `koanf:"max_upload_bytes" validate:"min=1"`
	SessionTTL           time.Duration `koanf:"session_ttl" validate:"min=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Provider:    "gemini",
		Suggestions: 3,
		Catalog: CatalogConfig{
			BaseURL:           "https://itunes.apple.com/search",
			ArtworkSize:       600,
			RequestsPerMinute: 20,
		},
		Server: ServerConfig{
			Port:                 8888,
			AnalyzeRatePerMinute: 10,
			MaxUploadBytes:       32 << 20,
			SessionTTL:           time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration. An empty path falls back to $VIBETRACK_CONFIG
// and then to DefaultPath if that file exists. An explicitly named file
// must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("config file %s: %w", DefaultPath, err)
	}
	return "", nil
}

// plain variables shared with other tools
var envMappings = map[string]string{
	"gemini_api_key": "gemini.api_key",
	"gemini_model":   "gemini.model",
	"openai_api_key": "openai.api_key",
	"openai_model":   "openai.model",
	"openai_url":     "openai.url",
	"ollama_url":     "ollama.url",
	"ollama_model":   "ollama.model",
}

var sections = []string{"gemini", "openai", "ollama", "catalog", "server", "log"}

// envKey maps an environment variable to a config path. Unrelated
// variables map to "" and are skipped.
func envKey(key string) string {
	key = strings.ToLower(key)

	if path, ok := envMappings[key]; ok {
		return path
	}

	rest, ok := strings.CutPrefix(key, envPrefix)
	if !ok || rest == "config" {
		return ""
	}
	for _, s := range sections {
		if field, ok := strings.CutPrefix(rest, s+"_"); ok {
			return s + "." + field
		}
	}
	return rest
}
