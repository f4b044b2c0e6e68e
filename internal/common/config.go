package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/polifund/fundscan/constants"
)

// Config holds all application configuration
type Config struct {
	Azure  AzureConfig
	Vision VisionConfig
	Batch  BatchConfig
	Cache  CacheConfig
}

// AzureConfig holds Document Intelligence configuration
type AzureConfig struct {
	Endpoint     string
	Key          string
	APIVersion   string
	Timeout      time.Duration
	PollInterval time.Duration
	Models       map[constants.FormType]string
}

// VisionConfig holds vision-model configuration for receipt annotation
type VisionConfig struct {
	Provider    string
	OpenAIModel string
	OpenAIKey   string
	GeminiModel string
	GeminiKey   string
	Temperature float32
	Timeout     time.Duration
	MaxEdge     int
	JPEGQuality int
}

// BatchConfig holds batch-run configuration
type BatchConfig struct {
	Workers       int
	RetryAttempts int
	RetryDelay    time.Duration
	RetryBackoff  float64
	RasterDPI     int
	Pdftoppm      string
}

// CacheConfig holds annotation-cache configuration
type CacheConfig struct {
	DSN string
	TTL time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Azure: AzureConfig{
			Endpoint:     getEnv("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT", ""),
			Key:          getEnv("AZURE_DOCUMENT_INTELLIGENCE_KEY", ""),
			APIVersion:   getEnv("AZURE_DOCUMENT_INTELLIGENCE_API_VERSION", "2024-11-30"),
			Timeout:      getEnvAsDuration("FUNDSCAN_OCR_TIMEOUT", 120*time.Second),
			PollInterval: getEnvAsDuration("FUNDSCAN_OCR_POLL_INTERVAL", 2*time.Second),
			Models: map[constants.FormType]string{
				constants.Form65:  getEnv("MODEL_ID_FORM_6_5", ""),
				constants.Form625: getEnv("MODEL_ID_FORM_6_2_5", ""),
				constants.Form75:  getEnv("MODEL_ID_FORM_7_5", ""),
				constants.Form735: getEnv("MODEL_ID_FORM_7_3_5", ""),
			},
		},
		Vision: VisionConfig{
			Provider:    getEnv("FUNDSCAN_VISION_PROVIDER", "openai"),
			OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiKey:   getEnv("GEMINI_API_KEY", ""),
			Temperature: getEnvAsFloat32("FUNDSCAN_VISION_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("FUNDSCAN_VISION_TIMEOUT", 45*time.Second),
			MaxEdge:     getEnvAsInt("FUNDSCAN_VISION_MAX_EDGE", 1024),
			JPEGQuality: getEnvAsInt("FUNDSCAN_VISION_JPEG_QUALITY", 85),
		},
		Batch: BatchConfig{
			Workers:       getEnvAsInt("FUNDSCAN_WORKERS", 1),
			RetryAttempts: getEnvAsInt("FUNDSCAN_RETRY_ATTEMPTS", 3),
			RetryDelay:    getEnvAsDuration("FUNDSCAN_RETRY_DELAY", time.Second),
			RetryBackoff:  2.0,
			RasterDPI:     getEnvAsInt("FUNDSCAN_RASTER_DPI", 200),
			Pdftoppm:      getEnv("FUNDSCAN_PDFTOPPM", "pdftoppm"),
		},
		Cache: CacheConfig{
			DSN: getEnv("FUNDSCAN_CACHE_DSN", ""),
			TTL: getEnvAsDuration("FUNDSCAN_CACHE_TTL", 24*time.Hour),
		},
	}
}

// fileConfig mirrors the optional config file. Keys absent from the file
// leave the corresponding Config values untouched.
type fileConfig struct {
	ModelMapping   map[string]string `json:"model_mapping" yaml:"model_mapping"`
	VisionProvider string            `json:"vision_provider" yaml:"vision_provider"`
	Workers        int               `json:"workers" yaml:"workers"`
	RasterDPI      int               `json:"raster_dpi" yaml:"raster_dpi"`
}

// ApplyFile overlays a JSON or YAML config file onto the loaded config.
// Model mapping entries override environment values per form type; entries
// left empty after the merge are treated as unconfigured.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %s", path), err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}

	for key, value := range fc.ModelMapping {
		if ft, ok := constants.ParseFormType(key); ok {
			c.Azure.Models[ft] = value
		}
	}
	for ft, model := range c.Azure.Models {
		if model == "" {
			delete(c.Azure.Models, ft)
		}
	}

	if fc.VisionProvider != "" {
		c.Vision.Provider = fc.VisionProvider
	}
	if fc.Workers > 0 {
		c.Batch.Workers = fc.Workers
	}
	if fc.RasterDPI > 0 {
		c.Batch.RasterDPI = fc.RasterDPI
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the configuration needed before any OCR call.
func (c *Config) Validate() error {
	if c.Azure.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Azure.Key == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_DOCUMENT_INTELLIGENCE_KEY is required", ErrInvalidInput)
	}
	return nil
}

// ValidateVision checks the configuration needed when receipt annotation
// is enabled. A missing API key wraps ErrNoCredential so callers can
// degrade to annotation-disabled instead of aborting.
func (c *Config) ValidateVision() error {
	switch c.Vision.Provider {
	case "openai":
		if c.Vision.OpenAIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is not set", ErrNoCredential)
		}
	case "gemini":
		if c.Vision.GeminiKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is not set", ErrNoCredential)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown vision provider %q", c.Vision.Provider), ErrInvalidInput)
	}
	return nil
}
