package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// Selection and now-playing
	HistorySize     int // values below 1 use the default of 5
	JingleCadence   int
	NowPlayingFloor time.Duration
	LatestCap       int
	LivePollEvery   time.Duration

	// URL resolver
	SignedURLTTL   time.Duration
	PrivateBuckets []string

	// Upstream blob store
	UpstreamDialTimeout   time.Duration
	UpstreamHeaderTimeout time.Duration
	UpstreamIdleTimeout   time.Duration
	UpstreamHeadMode      string // "range" or "head"

	// S3 compatible signer (GCS interoperability, MinIO, S3)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioRegion    string
	MinioUseSSL    bool

	// Catalog source: mysql, firestore or none
	CatalogSource            string
	DBHost                   string
	DBPort                   string
	DBUser                   string
	DBPassword               string
	DBName                   string
	FirestoreProjectID       string
	FirestoreSongsCollection string

	// Redis catalog snapshot
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	CatalogSnapshotTTL time.Duration

	ChannelsFile   string
	AdminJWTSecret string
	SentryDSN      string
	Environment    string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		ReadHeaderTimeout: getEnvDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second),
		IdleTimeout:       getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:   getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		HistorySize:     getEnvInt("HISTORY_SIZE", 5),
		JingleCadence:   getEnvInt("JINGLE_CADENCE", 5),
		NowPlayingFloor: getEnvDuration("NOW_PLAYING_FLOOR", 120*time.Second),
		LatestCap:       getEnvInt("LATEST_CAP", 200),
		LivePollEvery:   getEnvDuration("LIVE_POLL_INTERVAL", 5*time.Second),

		SignedURLTTL:   getEnvDuration("SIGNED_URL_TTL", 2*time.Hour),
		PrivateBuckets: getEnvList("PRIVATE_BUCKETS"),

		UpstreamDialTimeout:   getEnvDuration("UPSTREAM_DIAL_TIMEOUT", 10*time.Second),
		UpstreamHeaderTimeout: getEnvDuration("UPSTREAM_HEADER_TIMEOUT", 20*time.Second),
		UpstreamIdleTimeout:   getEnvDuration("UPSTREAM_IDLE_TIMEOUT", 60*time.Second),
		UpstreamHeadMode:      strings.ToLower(getEnv("UPSTREAM_HEAD_MODE", "range")),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "storage.googleapis.com"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioRegion:    getEnv("MINIO_REGION", "auto"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),

		CatalogSource:            strings.ToLower(getEnv("CATALOG_SOURCE", "none")),
		DBHost:                   getEnv("DB_HOST", "127.0.0.1"),
		DBPort:                   getEnv("DB_PORT", "3306"),
		DBUser:                   getEnv("DB_USER", "root"),
		DBPassword:               os.Getenv("DB_PASSWORD"),
		DBName:                   getEnv("DB_NAME", "nawax"),
		FirestoreProjectID:       strings.TrimSpace(getEnv("FIRESTORE_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", ""))),
		FirestoreSongsCollection: strings.TrimSpace(getEnv("FIRESTORE_SONGS_COLLECTION", "songs")),

		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CatalogSnapshotTTL: getEnvDuration("CATALOG_SNAPSHOT_TTL", 24*time.Hour),

		ChannelsFile:   os.Getenv("CHANNELS_FILE"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		Environment:    getEnv("ENV", "development"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}

	if cfg.HistorySize < 1 {
		cfg.HistorySize = 5
	}
	if cfg.JingleCadence < 1 {
		cfg.JingleCadence = 5
	}
	return cfg
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// SignerEnabled reports whether S3 credentials for URL signing were configured.
func (c *Config) SignerEnabled() bool {
	return c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
