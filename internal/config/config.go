package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort int
	ServerHost string

	// OpenAI settings
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIMaxToken int

	// Application settings
	Environment string
	LogLevel    string

	// Memory holds the cognitive memory subsystem configuration.
	Memory MemoryConfig
}

// MemoryConfig configures the memory subsystem (see internal/memoryservice).
// Fields mirror the `memory.*` keys an operator would set via environment
// variables. Load itself fails when OPENAI_API_KEY is empty, since the
// chat client needs the same key; memoryservice.New turns the subsystem
// into a no-op when Enabled is false or its dependencies are unavailable.
type MemoryConfig struct {
	Enabled bool

	DBPath string

	MaxEpisodicActive          int
	MinClusterSize             int
	MaxSemanticExtractionBatch int
	ContextTokenBudget         int
	PrefetchRecentTurns        int
	CheckFrequency             int
	EmbeddingDimension         int

	EmbeddingModel  string
	SemanticModel   string
	SummarizerModel string
	RelationalModel string
	GateModel       string

	EnableGating   bool
	VerboseLogging bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxToken: getEnvInt("OPENAI_MAX_TOKENS", 2048),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Memory:         loadMemoryConfig(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadMemoryConfig() MemoryConfig {
	mc := MemoryConfig{
		Enabled:                    getEnvBool("MEMORY_ENABLED", true),
		DBPath:                     getEnv("MEMORY_DB_PATH", "memory.db"),
		MaxEpisodicActive:          getEnvInt("MEMORY_MAX_EPISODIC_ACTIVE", 1000),
		MinClusterSize:             getEnvInt("MEMORY_MIN_CLUSTER_SIZE", 3),
		MaxSemanticExtractionBatch: getEnvInt("MEMORY_MAX_SEMANTIC_EXTRACTION_BATCH_SIZE", 50),
		ContextTokenBudget:         getEnvInt("MEMORY_CONTEXT_TOKEN_BUDGET", 1500),
		PrefetchRecentTurns:        getEnvInt("MEMORY_PREFETCH_RECENT_TURNS", 3),
		CheckFrequency:             getEnvInt("MEMORY_CHECK_FREQUENCY", 50),
		EmbeddingDimension:         getEnvInt("MEMORY_EMBEDDING_DIMENSION", 768),
		EmbeddingModel:             getEnv("MEMORY_EMBEDDING_MODEL", "text-embedding-3-small"),
		SemanticModel:              getEnv("MEMORY_SEMANTIC_MODEL", "gpt-4o-mini"),
		SummarizerModel:            getEnv("MEMORY_SUMMARIZER_MODEL", "gpt-4o-mini"),
		RelationalModel:            getEnv("MEMORY_RELATIONAL_MODEL", "gpt-4o-mini"),
		GateModel:                  getEnv("MEMORY_GATE_MODEL", "gpt-4o-mini"),
		EnableGating:               getEnvBool("MEMORY_ENABLE_GATING", true),
		VerboseLogging:             getEnvBool("MEMORY_VERBOSE_LOGGING", false),
	}

	if mc.PrefetchRecentTurns > 3 {
		mc.PrefetchRecentTurns = 3
	}

	return mc
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
