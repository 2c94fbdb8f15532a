// Package config loads service configuration from an optional YAML file with
// CHATPDF_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CHATPDF_"

// Config holds every service setting.
type Config struct {
	HTTPAddr   string `koanf:"http_addr"`
	CORSOrigin string `koanf:"cors_origin"`

	DatabasePath string `koanf:"database_path"`

	QdrantAddr       string `koanf:"qdrant_addr"`
	QdrantCollection string `koanf:"qdrant_collection"`

	OllamaURL      string `koanf:"ollama_url"`
	EmbeddingModel string `koanf:"embedding_model"`

	GeminiAPIKey string  `koanf:"gemini_api_key"`
	GeminiModel  string  `koanf:"gemini_model"`
	GeminiRPS    float64 `koanf:"gemini_rps"`

	StorageURL        string `koanf:"storage_url"`
	StorageBucket     string `koanf:"storage_bucket"`
	StorageServiceKey string `koanf:"storage_service_key"`

	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	NATSURL      string `koanf:"nats_url"`
	AlertSubject string `koanf:"alert_subject"`

	MetricsPort int `koanf:"metrics_port"`
}

// Default returns the configuration defaults; anything secret is empty and
// must come from the file or the environment.
func Default() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		CORSOrigin:       "*",
		DatabasePath:     "chatpdf.db",
		QdrantAddr:       "localhost:6334",
		QdrantCollection: "pdf_chunks",
		OllamaURL:        "http://localhost:11434",
		EmbeddingModel:   "all-minilm",
		GeminiModel:      "gemini-2.5-flash",
		GeminiRPS:        1,
		StorageBucket:    "pdfs",
		TokenTTL:         24 * time.Hour,
		AlertSubject:     "chatpdf.alerts",
		MetricsPort:      9090,
	}
}

// Load reads the YAML file at path when it exists, then overlays CHATPDF_*
// environment variables (CHATPDF_JWT_SECRET -> jwt_secret).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a running API server cannot do without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("gemini_api_key is required")
	}
	if c.StorageURL == "" {
		return fmt.Errorf("storage_url is required")
	}
	if c.QdrantAddr == "" {
		return fmt.Errorf("qdrant_addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	return nil
}
