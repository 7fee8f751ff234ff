// Package config loads process-wide settings from the environment and an
// optional cypherqa.yaml in the data directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the optional config file looked up in the data directory.
const FileName = "cypherqa"

// Config holds all configuration for cypherqa.
// Priority: environment > config file > defaults
type Config struct {
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Schema SchemaConfig `mapstructure:"schema"`
	Server ServerConfig `mapstructure:"server"`
}

// Neo4jConfig holds the graph database connection.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	MaxRows  int    `mapstructure:"max_rows"`
}

// LLMConfig holds the text-generation service settings.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// SchemaConfig controls the local schema cache.
type SchemaConfig struct {
	// CacheTTL of zero disables the cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"neo4j.uri":        "NEO4J_URI",
	"neo4j.username":   "NEO4J_USERNAME",
	"neo4j.password":   "NEO4J_PASSWORD",
	"neo4j.database":   "NEO4J_DATABASE",
	"llm.api_key":      "ANTHROPIC_API_KEY",
	"llm.model":        "CYPHERQA_MODEL",
	"llm.provider":     "CYPHERQA_PROVIDER",
	"llm.base_url":     "ANTHROPIC_BASE_URL",
	"schema.cache_ttl": "CYPHERQA_SCHEMA_TTL",
	"server.port":      "CYPHERQA_PORT",
}

// MissingError lists every required setting that has no value.
type MissingError struct {
	Variables []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Variables, ", "))
}

// Load reads configuration for dataDir. A missing config file is not an
// error.
func Load(dataDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dataDir)
	v.AddConfigPath(".")
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_rows", 5000)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-haiku-4-5")
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("schema.cache_ttl", "1h")
	v.SetDefault("server.port", 8080)
}

// Validate reports every missing secret at once.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, envBindings["llm.api_key"])
	}
	if c.Neo4j.URI == "" {
		missing = append(missing, envBindings["neo4j.uri"])
	}
	if c.Neo4j.Username == "" {
		missing = append(missing, envBindings["neo4j.username"])
	}
	if c.Neo4j.Password == "" {
		missing = append(missing, envBindings["neo4j.password"])
	}
	if len(missing) > 0 {
		return &MissingError{Variables: missing}
	}
	return nil
}
