package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Tesco         TescoConfig
	Embedding     EmbeddingConfig
	OpenFoodFacts OpenFoodFactsConfig
	Matching      MatchingConfig
	Categoriser   CategoriserConfig
	Batch         BatchConfig
	Files         FilesConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TescoConfig holds the retailer search API configuration
type TescoConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	MinDelay   time.Duration `mapstructure:"min_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// EmbeddingConfig holds the embeddings endpoint configuration
type EmbeddingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// OpenFoodFactsConfig holds the nutrition enrichment configuration
type OpenFoodFactsConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RatePerMin int           `mapstructure:"rate_per_min"`
}

// MatchingConfig holds resolution engine tuning
type MatchingConfig struct {
	CandidateCount         int           `mapstructure:"candidate_count"`
	EscalationThreshold    float64       `mapstructure:"escalation_threshold"`
	ConsolidationThreshold float64       `mapstructure:"consolidation_threshold"`
	CacheTTL               time.Duration `mapstructure:"cache_ttl"`
}

// CategoriserConfig holds the taxonomy model boundary configuration
type CategoriserConfig struct {
	Model           string   `mapstructure:"model"`
	SystemPrompt    string   `mapstructure:"system_prompt"`
	Categories1     []string `mapstructure:"categories_1"`
	Categories2     []string `mapstructure:"categories_2"`
	Categories3     []string `mapstructure:"categories_3"`
	Characteristics []string `mapstructure:"characteristics"`
	Flavours        []string `mapstructure:"flavours"`
}

// BatchConfig holds batch runner configuration
type BatchConfig struct {
	Workers      int  `mapstructure:"workers"`
	ShowProgress bool `mapstructure:"show_progress"`
}

// FilesConfig holds the batch input/output file locations
type FilesConfig struct {
	Input             string `mapstructure:"input"`
	Results           string `mapstructure:"results"`
	FoodFacts         string `mapstructure:"food_facts"`
	Mappings          string `mapstructure:"mappings"`
	Categorised       string `mapstructure:"categorised"`
	InvalidCategories string `mapstructure:"invalid_categories"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/trolleywise/")

	v.SetEnvPrefix("TROLLEYWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper already knows about, so the
	// secret keys with no default must be bound explicitly or the env
	// vars are ignored.
	_ = v.BindEnv("tesco.api_key")
	_ = v.BindEnv("embedding.api_key")

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Retailer search defaults
	v.SetDefault("tesco.endpoint", "https://api.tesco.com/shoppingexperience")
	v.SetDefault("tesco.timeout", "20s")
	v.SetDefault("tesco.max_retries", 3)
	v.SetDefault("tesco.min_delay", "500ms")
	v.SetDefault("tesco.max_delay", "1500ms")

	// Embedding defaults
	v.SetDefault("embedding.model", "text-embedding-3-small")

	// Open Food Facts defaults
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "TrolleyWise/1.0")
	v.SetDefault("openfoodfacts.timeout", "20s")
	v.SetDefault("openfoodfacts.max_retries", 3)
	v.SetDefault("openfoodfacts.rate_per_min", 100)

	// Matching defaults
	v.SetDefault("matching.candidate_count", 100)
	v.SetDefault("matching.escalation_threshold", 95.0)
	v.SetDefault("matching.consolidation_threshold", 0.6)
	v.SetDefault("matching.cache_ttl", "24h")

	// Batch defaults
	v.SetDefault("batch.workers", 1)
	v.SetDefault("batch.show_progress", true)

	// File defaults
	v.SetDefault("files.input", "data/products.csv")
	v.SetDefault("files.results", "data/results.csv")
	v.SetDefault("files.food_facts", "data/food_facts.csv")
	v.SetDefault("files.mappings", "data/category_mappings.csv")
	v.SetDefault("files.categorised", "data/categorised.csv")
	v.SetDefault("files.invalid_categories", "data/invalid_categories.csv")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Tesco.APIKey == "" {
		return fmt.Errorf("retailer API key is required (set TROLLEYWISE_TESCO_API_KEY)")
	}

	if config.Embedding.APIKey == "" {
		return fmt.Errorf("embedding API key is required (set TROLLEYWISE_EMBEDDING_API_KEY)")
	}

	if config.Matching.EscalationThreshold < 0 || config.Matching.EscalationThreshold > 100 {
		return fmt.Errorf("escalation threshold must be in [0,100], got: %.1f", config.Matching.EscalationThreshold)
	}

	if config.Matching.ConsolidationThreshold <= 0 || config.Matching.ConsolidationThreshold >= 1 {
		return fmt.Errorf("consolidation threshold must be in (0,1), got: %.2f", config.Matching.ConsolidationThreshold)
	}

	if config.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got: %d", config.Batch.Workers)
	}

	return nil
}
