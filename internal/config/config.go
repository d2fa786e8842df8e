package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "LINK_CLASSIFIER_CONFIG"

// Config holds high-level settings required across the application.
// Merge order: defaults < config file < environment < CLI flags.
type Config struct {
	LinkAce  LinkAceConfig        `yaml:"linkace"`
	Ollama   OllamaConfig         `yaml:"ollama"`
	Classify ClassificationConfig `yaml:"classification"`
	Server   ServerConfig         `yaml:"server"`
	Batch    BatchConfig          `yaml:"batch"`
	Logging  LoggingConfig        `yaml:"logging"`
}

// LinkAceConfig describes how to reach the bookmark service.
type LinkAceConfig struct {
	APIURL   string `yaml:"apiUrl" env:"LINKACE_API_URL"`
	APIToken string `yaml:"apiToken" env:"LINKACE_API_TOKEN"`
}

// OllamaConfig defines how to contact the inference backend.
type OllamaConfig struct {
	URL   string `yaml:"url" env:"OLLAMA_URL"`
	Model string `yaml:"model" env:"OLLAMA_MODEL"`
}

// ClassificationConfig groups decision-policy settings.
type ClassificationConfig struct {
	ListIDs        []int         `yaml:"listIds" env:"CLASSIFY_LIST_IDS"`
	Threshold      float64       `yaml:"confidenceThreshold" env:"CONFIDENCE_THRESHOLD"`
	CacheTTL       time.Duration `yaml:"cacheTtl" env:"CACHE_TTL"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"REQUEST_TIMEOUT"`
}

// ServerConfig wires the HTTP surface and its admission control.
type ServerConfig struct {
	Host       string        `yaml:"host" env:"SERVER_HOST"`
	Port       int           `yaml:"port" env:"SERVER_PORT"`
	RateLimit  int           `yaml:"rateLimit" env:"RATE_LIMIT"`
	RateWindow time.Duration `yaml:"rateWindow" env:"RATE_WINDOW"`
}

// BatchConfig controls the assignment executor.
type BatchConfig struct {
	InputListID int    `yaml:"inputListId" env:"INPUT_LIST_ID"`
	DryRun      bool   `yaml:"dryRun" env:"DRY_RUN"`
	Concurrency int    `yaml:"concurrency" env:"BATCH_CONCURRENCY"`
	ApplyAll    bool   `yaml:"applyAll" env:"BATCH_APPLY_ALL"`
	OutputFile  string `yaml:"outputFile" env:"OUTPUT_FILE"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides on top of defaults. The path argument wins over the
// LINK_CLASSIFIER_CONFIG environment variable.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks bounds the rest of the system relies on.
func (c Config) Validate() error {
	if c.Classify.Threshold < 0 || c.Classify.Threshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", c.Classify.Threshold)
	}
	if c.Classify.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", c.Classify.CacheTTL)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.Server.RateLimit)
	}
	if c.Server.RateWindow <= 0 {
		return fmt.Errorf("rate window must be positive, got %v", c.Server.RateWindow)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		LinkAce: LinkAceConfig{},
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "llama3.2",
		},
		Classify: ClassificationConfig{
			Threshold:      0.8,
			CacheTTL:       5 * time.Minute,
			RequestTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:       "localhost",
			Port:       5000,
			RateLimit:  60,
			RateWindow: time.Minute,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
