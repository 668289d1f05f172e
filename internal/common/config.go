package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/document-pipeline/constants"
)

// LLM providers accepted in LLMConfig.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
	Journal  JournalConfig  `yaml:"journal"`
	Export   ExportConfig   `yaml:"export"`
	Watch    WatchConfig    `yaml:"watch"`
	Log      LogConfig      `yaml:"log"`
}

// PathsConfig holds the on-disk layout
type PathsConfig struct {
	RawDir        string `yaml:"raw_dir"`
	ProcessedDir  string `yaml:"processed_dir"`
	QuarantineDir string `yaml:"quarantine_dir"`
	HashesFile    string `yaml:"hashes_file"`
}

// PipelineConfig holds orchestrator tuning
type PipelineConfig struct {
	Workers             int     `yaml:"workers"`
	QueueSize           int     `yaml:"queue_size"`
	IngestConcurrency   int     `yaml:"ingest_concurrency"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	ProjectID       string        `yaml:"project_id"`
	Region          string        `yaml:"region"`
	CredentialsFile string        `yaml:"credentials_file"`
	GeminiModel     string        `yaml:"gemini_model"`
	OpenAIModel     string        `yaml:"openai_model"`
	APIKey          string        `yaml:"api_key"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
}

// JournalConfig holds the optional processing journal database
type JournalConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ExportConfig holds consolidation outputs
type ExportConfig struct {
	CSVPath  string `yaml:"csv_path"`
	XLSXPath string `yaml:"xlsx_path"`
}

// WatchConfig holds watch-mode settings
type WatchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	HealthAddr string        `yaml:"health_addr"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	processed := getEnv("DATA_PROCESSED_DIR", constants.DefaultProcessedDir)
	return &Config{
		Paths: PathsConfig{
			RawDir:        getEnv("DATA_RAW_DIR", constants.DefaultRawDir),
			ProcessedDir:  processed,
			QuarantineDir: getEnv("DATA_QUARANTINE_DIR", constants.DefaultQuarantineDir),
			HashesFile:    getEnv("DATA_HASHES_FILE", filepath.Join(processed, constants.HashesFileName)),
		},
		Pipeline: PipelineConfig{
			Workers:             getEnvAsInt("PIPELINE_WORKERS", 5),
			QueueSize:           getEnvAsInt("PIPELINE_QUEUE_SIZE", 64),
			IngestConcurrency:   getEnvAsInt("INGEST_CONCURRENCY", 4),
			ConfidenceThreshold: getEnvAsFloat64("CONFIDENCE_THRESHOLD", constants.ConfidenceThreshold),
		},
		LLM: LLMConfig{
			Provider:        getEnv("LLM_PROVIDER", ProviderGemini),
			ProjectID:       getEnv("GCP_PROJECT_ID", ""),
			Region:          getEnv("GCP_REGION", "us-central1"),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Journal: JournalConfig{
			DSN:             getEnv("JOURNAL_DSN", ""),
			MaxConns:        getEnvAsInt32("JOURNAL_MAX_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("JOURNAL_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("JOURNAL_DIAL_TIMEOUT", 3*time.Second),
		},
		Export: ExportConfig{
			CSVPath:  getEnv("EXPORT_CSV_PATH", constants.DefaultCSVPath),
			XLSXPath: getEnv("EXPORT_XLSX_PATH", ""),
		},
		Watch: WatchConfig{
			Debounce:   getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			HealthAddr: getEnv("HEALTH_ADDR", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", constants.DefaultLogFile),
		},
	}
}

// LoadConfigFile loads env configuration and overlays the YAML file at path.
// Keys absent from the file keep their env/default values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError(CodeConfig, fmt.Sprintf("read config %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config %s", path), err)
	}
	return cfg, nil
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("paths.raw_dir", c.Paths.RawDir, Required).
		Field("paths.processed_dir", c.Paths.ProcessedDir, Required).
		Field("paths.quarantine_dir", c.Paths.QuarantineDir, Required).
		Field("paths.hashes_file", c.Paths.HashesFile, Required).
		Field("pipeline.workers", c.Pipeline.Workers, Positive).
		Field("pipeline.queue_size", c.Pipeline.QueueSize, Positive).
		Field("pipeline.ingest_concurrency", c.Pipeline.IngestConcurrency, Positive).
		Field("pipeline.confidence_threshold", c.Pipeline.ConfidenceThreshold, UnitInterval).
		Field("llm.provider", c.LLM.Provider, OneOf(ProviderGemini, ProviderOpenAI))
	if err := ValidateAndReturnError(v); err != nil {
		return err
	}
	return c.ValidateCredentials()
}

// ValidateCredentials checks the provider credentials required to build a gateway.
func (c *Config) ValidateCredentials() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return ConfigErrorf("OPENAI_API_KEY is required")
		}
	default:
		if c.LLM.ProjectID == "" {
			return ConfigErrorf("GCP_PROJECT_ID is required")
		}
	}
	return nil
}
