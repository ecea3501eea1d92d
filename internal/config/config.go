package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	RegistryURL     string
	RegistryTimeout time.Duration

	StageBackend   string
	StageLocalPath string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	MaxStagedFiles int
	MaxFileBytes   int64

	SessionTTL   time.Duration
	SessionSweep string

	LogLevel  string
	LogFormat string
	LogFile   string

	RegistryListenAddr string
	RegistryBackend    string
	DBPath             string
	MongoURI           string
	MongoDBName        string
}

// Load reads the environment, optionally seeded from envFile. A missing
// envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var errs []error
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		RegistryURL:        getEnv("REGISTRY_URL", "http://localhost:3001"),
		RegistryTimeout:    getDuration("REGISTRY_TIMEOUT", 15*time.Second, &errs),
		StageBackend:       getEnv("STAGE_BACKEND", "local"),
		StageLocalPath:     getEnv("STAGE_LOCAL_PATH", "/data/staged"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET", "productreg-staged"),
		S3UseSSL:           getBool("S3_USE_SSL", false, &errs),
		MaxStagedFiles:     getInt("MAX_STAGED_FILES", 20, &errs),
		MaxFileBytes:       int64(getInt("MAX_FILE_BYTES", 10<<20, &errs)),
		SessionTTL:         getDuration("SESSION_TTL", 30*time.Minute, &errs),
		SessionSweep:       getEnv("SESSION_SWEEP", "@every 5m"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		LogFile:            getEnv("LOG_FILE", ""),
		RegistryListenAddr: getEnv("REGISTRY_LISTEN_ADDR", ":3001"),
		RegistryBackend:    getEnv("REGISTRY_BACKEND", "sqlite"),
		DBPath:             getEnv("DB_PATH", "/data/registry.db"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGODB_DB_NAME", "productreg"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StageBackend {
	case "local":
		if c.StageLocalPath == "" {
			return errors.New("STAGE_LOCAL_PATH must be provided when STAGE_BACKEND=local")
		}
	case "s3":
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET must be provided when STAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STAGE_BACKEND %q", c.StageBackend)
	}

	switch c.RegistryBackend {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unknown REGISTRY_BACKEND %q", c.RegistryBackend)
	}

	if c.MaxStagedFiles <= 0 {
		return errors.New("MAX_STAGED_FILES must be positive")
	}
	if c.MaxFileBytes <= 0 {
		return errors.New("MAX_FILE_BYTES must be positive")
	}
	if c.RegistryTimeout <= 0 {
		return errors.New("REGISTRY_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return n
}

func getBool(key string, defaultVal bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return b
}

func getDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return d
}
