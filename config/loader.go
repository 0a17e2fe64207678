package config

import (
	"os"
	"path/filepath"

	"github.com/Velocidex/yaml/v2"
	errors "github.com/go-errors/errors"
)

func GetDefaultConfig() *Config {
	cache_dir := os.Getenv("PACKRAT_CACHE")
	if cache_dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cache_dir = filepath.Join(home, ".packrat", "cache")
		} else {
			cache_dir = filepath.Join(os.TempDir(), "packrat_cache")
		}
	}

	return &Config{
		CacheDirectory: cache_dir,
		Concurrency:    4,
		RetryCount:     3,
		HttpTimeoutSec: 300,
		MaxToolSize:    2 * 1024 * 1024 * 1024,
		UserAgent:      "packrat",
		Logging:        &LoggingConfig{},
	}
}

// Load the configuration file and merge it over the defaults.
func LoadConfig(filename string) (*Config, error) {
	result := GetDefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	err = yaml.UnmarshalStrict(data, result)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	err = ValidateConfig(result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func ValidateConfig(config_obj *Config) error {
	if config_obj.CacheDirectory == "" {
		return errors.New("Config: cache_directory must be set")
	}

	if config_obj.Concurrency <= 0 {
		return errors.New("Config: concurrency must be positive")
	}

	if config_obj.RetryCount < 0 {
		return errors.New("Config: retry_count may not be negative")
	}

	if config_obj.MaxToolSize <= 0 {
		return errors.New("Config: max_tool_size must be positive")
	}

	if config_obj.Logging == nil {
		config_obj.Logging = &LoggingConfig{}
	}

	return nil
}
