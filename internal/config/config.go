package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"rxtract/internal/logger"
)

// OCR gateway backends.
const (
	OCRBackendVision     = "vision"
	OCRBackendDocumentAI = "documentai"
)

type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// OCR Gateway Configuration
	OCRBackend string // "vision" or "documentai"

	// Generative-model call discipline
	ModelMinInterval time.Duration // minimum spacing between external model calls
	ModelTimeout     time.Duration // per-call timeout
	ModelMaxAttempts uint

	// Validation Configuration
	RequirePatientName bool

	// Batch Configuration
	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := fromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadOCR reads configuration for OCR-only commands, which do not need the
// model API key.
func LoadOCR() (*Config, error) {
	config := fromEnv()

	if err := config.validateOCR(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func fromEnv() *Config {
	return &Config{
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:     getFloatEnv("OPENAI_TEMPERATURE", 0.1),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		OCRBackend:            getEnv("OCR_BACKEND", "vision"),
		ModelMinInterval:      getDurationEnv("MODEL_MIN_INTERVAL", time.Second),
		ModelTimeout:          getDurationEnv("MODEL_TIMEOUT", 60*time.Second),
		ModelMaxAttempts:      uint(getIntEnv("MODEL_MAX_ATTEMPTS", 3)),
		RequirePatientName:    getEnv("REQUIRE_PATIENT_NAME", "") == "true",
		BatchWorkers:          getIntEnv("BATCH_WORKERS", 4),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ModelMinInterval < 0 {
		return fmt.Errorf("MODEL_MIN_INTERVAL must not be negative")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	return c.validateOCR()
}

func (c *Config) validateOCR() error {
	if c.OCRBackend != OCRBackendVision && c.OCRBackend != OCRBackendDocumentAI {
		return fmt.Errorf("OCR_BACKEND must be %q or %q, got %q", OCRBackendVision, OCRBackendDocumentAI, c.OCRBackend)
	}
	if c.OCRBackend == OCRBackendDocumentAI {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai OCR backend")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai OCR backend")
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
