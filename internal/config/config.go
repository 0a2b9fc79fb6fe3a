package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultMaxTokens     = 600
	DefaultTemperature   = 0.3
	DefaultPromptVersion = "v1-concise"
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8741
)

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Analysis AnalysisConfig `json:"analysis"`
	Store    StoreConfig    `json:"store"`
	Server   ServerConfig   `json:"server"`
}

// ProviderConfig carries the chat-completion API credentials. It is passed
// explicitly to the client constructor; nothing reads it from globals.
type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type AnalysisConfig struct {
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"maxTokens"`
	PromptVersion string  `json:"promptVersion"`
	CatalogPath   string  `json:"catalogPath,omitempty"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath,omitempty"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{},
		Analysis: AnalysisConfig{
			Model:         DefaultModel,
			Temperature:   DefaultTemperature,
			MaxTokens:     DefaultMaxTokens,
			PromptVersion: DefaultPromptVersion,
		},
		Store: StoreConfig{},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".mindiary")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultDBPath is used when store.dbPath is not configured.
func DefaultDBPath() string {
	return filepath.Join(ConfigDir(), "data", "diary.db")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("MINDIARY_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("MINDIARY_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("MINDIARY_MODEL"); model != "" {
		cfg.Analysis.Model = model
	}
	if version := os.Getenv("MINDIARY_PROMPT_VERSION"); version != "" {
		cfg.Analysis.PromptVersion = version
	}
	if temp := os.Getenv("MINDIARY_TEMPERATURE"); temp != "" {
		if parsed, err := strconv.ParseFloat(temp, 64); err == nil {
			cfg.Analysis.Temperature = parsed
		}
	}
	if maxTokens := os.Getenv("MINDIARY_MAX_TOKENS"); maxTokens != "" {
		if parsed, err := strconv.Atoi(maxTokens); err == nil {
			cfg.Analysis.MaxTokens = parsed
		}
	}
	if dbPath := os.Getenv("MINDIARY_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if catalogPath := os.Getenv("MINDIARY_CATALOG_PATH"); catalogPath != "" {
		cfg.Analysis.CatalogPath = catalogPath
	}

	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = DefaultModel
	}
	if cfg.Analysis.MaxTokens <= 0 {
		cfg.Analysis.MaxTokens = DefaultMaxTokens
	}
	if cfg.Analysis.PromptVersion == "" {
		cfg.Analysis.PromptVersion = DefaultPromptVersion
	}
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = DefaultDBPath()
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
