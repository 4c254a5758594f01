package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"masterimage/internal/image"
)

// Load reads the optional YAML file named by MASTERIMAGE_CONFIG over the
// defaults and then applies environment overrides.
func Load(logger zerolog.Logger) (*Config, error) {
	cfg := Default()

	if path := os.Getenv("MASTERIMAGE_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.TempDir = getEnv(logger, "MASTERIMAGE_TEMP_DIR", cfg.TempDir, parseString)
	cfg.DBPath = getEnv(logger, "MASTERIMAGE_DB_PATH", cfg.DBPath, parseString)
	cfg.Workers = getEnv(logger, "MASTERIMAGE_WORKERS", cfg.Workers, strconv.Atoi)
	cfg.LogLevel = getEnv(logger, "LOG_LEVEL", cfg.LogLevel, parseString)

	st := &cfg.Storage
	st.BasePath = getEnv(logger, "MASTERIMAGE_BASE_PATH", st.BasePath, parseString)
	st.Directory = getEnv(logger, "MASTERIMAGE_DIR", st.Directory, parseString)
	st.UseDateDirectories = getEnv(logger, "MASTERIMAGE_DATE_DIRS", st.UseDateDirectories, strconv.ParseBool)
	st.JPGQuality = getEnv(logger, "MASTERIMAGE_JPG_QUALITY", st.JPGQuality, strconv.Atoi)
	st.DefaultImagePath = getEnv(logger, "MASTERIMAGE_DEFAULT_IMAGE", st.DefaultImagePath, parseString)
	st.FetchTimeout = getEnv(logger, "MASTERIMAGE_FETCH_TIMEOUT", st.FetchTimeout, time.ParseDuration)
	st.Columns.Blob = getEnv(logger, "MASTERIMAGE_BLOB", st.Columns.Blob, strconv.ParseBool)
	if format := os.Getenv("MASTERIMAGE_FORMAT"); format != "" {
		st.StorageFormat = image.Format(format)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	st.Normalize()
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigError{Field: path, Reason: err.Error()}
	}
	return nil
}

func getEnv[T any](logger zerolog.Logger, key string, defaultValue T, parser func(string) (T, error)) T {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	parsed, err := parser(val)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", val).Interface("default", defaultValue).
			Msg("invalid environment value, using default")
		return defaultValue
	}

	return parsed
}

func parseString(val string) (string, error) {
	return val, nil
}
