// Package config loads contentpilot configuration from a YAML file with
// PILOT_* environment overrides. Environment always wins over file values
// so deployments can rotate credentials without editing config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all contentpilot configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Live    LiveConfig    `yaml:"live"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StoreConfig configures the content store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // http, postgres
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	Dataset     string `yaml:"dataset"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LiveConfig configures the live-update event feed.
type LiveConfig struct {
	Backend   string `yaml:"backend"` // memory, redis
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_pass"`
	Channel   string `yaml:"channel"`
}

// HistoryConfig configures conversation persistence.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the process loggers.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},
		Store: StoreConfig{
			Backend: "http",
			Dataset: "production",
		},
		Live: LiveConfig{
			Backend: "memory",
			Channel: "contentpilot:updates",
		},
		History: HistoryConfig{
			Path: ".pilot/history.db",
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of defaults, then applies
// environment overrides. A missing file is not an error: defaults plus
// environment are a complete configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.Provider, "PILOT_LLM_PROVIDER")
	set(&c.LLM.APIKey, "PILOT_LLM_API_KEY")
	set(&c.LLM.Model, "PILOT_LLM_MODEL")
	set(&c.LLM.BaseURL, "PILOT_LLM_BASE_URL")
	set(&c.Store.Backend, "PILOT_STORE_BACKEND")
	set(&c.Store.BaseURL, "PILOT_STORE_BASE_URL")
	set(&c.Store.Token, "PILOT_STORE_TOKEN")
	set(&c.Store.Dataset, "PILOT_STORE_DATASET")
	set(&c.Store.PostgresDSN, "PILOT_STORE_POSTGRES_DSN")
	set(&c.Live.Backend, "PILOT_LIVE_BACKEND")
	set(&c.Live.RedisAddr, "PILOT_REDIS_ADDR")
	set(&c.Live.RedisPass, "PILOT_REDIS_PASS")
	set(&c.History.Path, "PILOT_HISTORY_PATH")
	set(&c.Server.Addr, "PILOT_SERVER_ADDR")
	set(&c.Logging.Level, "PILOT_LOG_LEVEL")
}

// LLMTimeout parses the configured timeout, falling back to two minutes.
func (c Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
