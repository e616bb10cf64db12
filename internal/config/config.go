package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		BasePath     string `yaml:"base_path"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL           string `yaml:"url"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		CodeAttempts *int   `yaml:"code_attempts"`
	} `yaml:"quiz"`
	Import struct {
		MaxBytes         int64  `yaml:"max_bytes"`
		MaxQuestions     int    `yaml:"max_questions"`
		Timeout          string `yaml:"timeout"`
		DriveDownloadURL string `yaml:"drive_download_url"`
	} `yaml:"import"`
	RateLimit struct {
		JoinMax    int    `yaml:"join_max"`
		JoinWindow string `yaml:"join_window"`
	} `yaml:"ratelimit"`
	Log LogConfig `yaml:"log"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DefaultMaxImportBytes = 3 * 1024 * 1024
	DefaultMaxQuestions   = 50
	DefaultJoinMax        = 30

	DefaultImportTimeout = 15 * time.Second
	DefaultReadTimeout   = 15 * time.Second
	// writeTimeoutMargin is the time left to write a response after an import
	// download has used its whole budget.
	writeTimeoutMargin = 10 * time.Second
)

// Load reads YAML config from path. A missing file yields the zero config, which
// callers fill with defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QUIZ_CODE_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quiz.CodeAttempts = &n
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// MaxImportBytes returns the configured import ceiling or the 3 MiB default.
func (c Config) MaxImportBytes() int64 {
	if c.Import.MaxBytes > 0 {
		return c.Import.MaxBytes
	}
	return DefaultMaxImportBytes
}

// MaxQuestions returns the extraction cap.
func (c Config) MaxQuestions() int {
	if c.Import.MaxQuestions > 0 {
		return c.Import.MaxQuestions
	}
	return DefaultMaxQuestions
}

// JoinLimit returns the number of joins allowed per client per window.
func (c Config) JoinLimit() int {
	if c.RateLimit.JoinMax > 0 {
		return c.RateLimit.JoinMax
	}
	return DefaultJoinMax
}

// BasePath is the prefix the API is mounted under, "/api" unless configured.
// Set it to "/" to serve at the root only.
func (c Config) BasePath() string {
	if c.Server.BasePath == "" {
		return "/api"
	}
	return c.Server.BasePath
}

// ImportTimeout bounds a whole remote import download.
func (c Config) ImportTimeout() time.Duration {
	return TTLDuration(c.Import.Timeout, DefaultImportTimeout)
}

// WriteTimeout is the server's response deadline. It always exceeds the import
// timeout so an import that finishes near its limit can still be answered.
func (c Config) WriteTimeout() time.Duration {
	floor := c.ImportTimeout() + writeTimeoutMargin
	if d := TTLDuration(c.Server.WriteTimeout, 0); d > floor {
		return d
	}
	return floor
}
