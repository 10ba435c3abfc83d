package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	LogLevel           string
	LogFormat          string
	Port               string
	StorageDir         string
	CheckpointSchedule string
	CheckpointKeep     int
	RestoreOnStart     bool
	RequestTimeout     int
	TrainingWorkers    int
	RandomSeed         int64
	ModelConfigPath    string
	Models             models.ModelConfig
}

// LoadConfig loads configuration from environment variables. When
// MODEL_CONFIG names a YAML file, its fields override the default model
// sizes.
func LoadConfig() (*Config, error) {
	config := &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		Port:               getEnv("PORT", "8080"),
		StorageDir:         getEnv("STORAGE_DIR", "./data"),
		CheckpointSchedule: getEnv("CHECKPOINT_SCHEDULE", "@every 10m"),
		CheckpointKeep:     getEnvAsInt("CHECKPOINT_KEEP", 10),
		RestoreOnStart:     getEnvAsBool("RESTORE_ON_START", true),
		RequestTimeout:     getEnvAsInt("REQUEST_TIMEOUT", 30),
		TrainingWorkers:    getEnvAsInt("TRAINING_WORKERS", 2),
		RandomSeed:         getEnvAsInt64("RANDOM_SEED", 0),
		ModelConfigPath:    getEnv("MODEL_CONFIG", ""),
		Models:             models.DefaultModelConfig(),
	}

	if config.ModelConfigPath != "" {
		if err := loadModelConfig(config.ModelConfigPath, &config.Models); err != nil {
			return nil, err
		}
	}
	if err := config.Models.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model config")
	}
	if config.RequestTimeout <= 0 {
		return nil, errors.Errorf("REQUEST_TIMEOUT must be positive, got %d", config.RequestTimeout)
	}
	if config.TrainingWorkers <= 0 {
		return nil, errors.Errorf("TRAINING_WORKERS must be positive, got %d", config.TrainingWorkers)
	}
	if config.CheckpointKeep < 0 {
		return nil, errors.Errorf("CHECKPOINT_KEEP must not be negative, got %d", config.CheckpointKeep)
	}

	return config, nil
}

// DatabasePath returns the SQLite file inside StorageDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StorageDir, "microfinance.db")
}

// Timeout returns RequestTimeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// loadModelConfig overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current values.
func loadModelConfig(path string, cfg *models.ModelConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read model config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse model config %s", path)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
