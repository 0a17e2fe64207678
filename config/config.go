package config

// The packrat configuration controls where tools are cached and how
// aggressively they are fetched. All fields have usable defaults so a
// config file is optional.

type LoggingConfig struct {
	// If set, logs are also written to rotated files in this
	// directory.
	OutputDirectory string `yaml:"output_directory,omitempty"`

	// How long to keep old log files (days).
	MaxAgeDays int64 `yaml:"max_age_days,omitempty"`

	// How often to rotate the log file (hours).
	RotationHours int64 `yaml:"rotation_hours,omitempty"`

	Debug bool `yaml:"debug,omitempty"`
}

type Config struct {
	// Where verified tool blobs and the cache inventory live.
	CacheDirectory string `yaml:"cache_directory,omitempty"`

	// Number of parallel tool downloads.
	Concurrency int64 `yaml:"concurrency,omitempty"`

	// How many times to retry a transient download failure before
	// giving up on the tool.
	RetryCount int64 `yaml:"retry_count,omitempty"`

	// Per request timeout in seconds.
	HttpTimeoutSec int64 `yaml:"http_timeout_sec,omitempty"`

	// Refuse to buffer tools larger than this.
	MaxToolSize int64 `yaml:"max_tool_size,omitempty"`

	UserAgent string `yaml:"user_agent,omitempty"`

	Logging *LoggingConfig `yaml:"logging,omitempty"`
}
