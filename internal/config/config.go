package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"shannon/internal/model"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// Signal history is persisted only when Host is set.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database has been configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for MinIO.
// When Endpoint is set the kline cache and signal reports live in the bucket
// instead of the local prices directory.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object store has been configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// BinanceConfig holds exchange REST API settings.
type BinanceConfig struct {
	BaseURL           string
	KlineInterval     model.KlineInterval
	KlineLimit        int
	HistoryDays       int
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	TimeoutSec        int
}

// StrategyConfig tunes the DCA signal strategy.
type StrategyConfig struct {
	Pairs               []model.Pair
	MaxParallelRequests int
	RSILength           int
	BandPct             float64
	TaskCacheTTLSec     int
}

// CacheConfig controls the market data cache layers.
type CacheConfig struct {
	// PricesDir is the local file cache directory.
	PricesDir string
	// FileResultsSec is how long a cached kline file stays fresh. Zero or
	// negative disables the file cache for current data.
	FileResultsSec  int
	PricesMaxAgeSec int
	MemoryTTLSec    int
	MemoryMaxSize   int
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level    string
	Timezone string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Log      LogConfig
	Binance  BinanceConfig
	Strategy StrategyConfig
	Cache    CacheConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	pairs := model.ParsePairs(getEnvList("SHANNON_PAIRS", nil))
	if len(pairs) == 0 {
		pairs = model.DefaultPairs
	}

	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Timezone: getEnv("TZ", "UTC"),
		},
		Binance: BinanceConfig{
			BaseURL:           getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
			KlineInterval:     model.KlineInterval(getEnv("BINANCE_KLINE_INTERVAL", string(model.Interval1Day))),
			KlineLimit:        getEnvInt("BINANCE_KLINE_LIMIT", 360),
			HistoryDays:       getEnvInt("BINANCE_HISTORY_DAYS", 365),
			RequestsPerSecond: getEnvFloat("BINANCE_REQUESTS_PER_SECOND", 10),
			Burst:             getEnvInt("BINANCE_BURST", 5),
			MaxRetries:        getEnvInt("BINANCE_MAX_RETRIES", 3),
			TimeoutSec:        getEnvInt("BINANCE_TIMEOUT_SEC", 15),
		},
		Strategy: StrategyConfig{
			Pairs:               pairs,
			MaxParallelRequests: getEnvInt("STRATEGY_MAX_PARALLEL_REQUESTS", 5),
			RSILength:           getEnvInt("STRATEGY_RSI_LENGTH", 12),
			BandPct:             getEnvFloat("STRATEGY_BAND_PCT", 3),
			TaskCacheTTLSec:     getEnvInt("STRATEGY_TASK_CACHE_TTL_SEC", 30),
		},
		Cache: CacheConfig{
			PricesDir:       getEnv("PRICES_DIR", "prices"),
			FileResultsSec:  getEnvInt("CACHE_FILE_RESULTS_SEC", 60),
			PricesMaxAgeSec: getEnvInt("PRICES_MAX_AGE_SEC", 3*60*60),
			MemoryTTLSec:    getEnvInt("CACHE_MEMORY_TTL_SEC", 60),
			MemoryMaxSize:   getEnvInt("CACHE_MEMORY_MAX_SIZE", 256),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Validate checks values that would otherwise fail deep inside a scan.
func (c *AppConfig) Validate() error {
	var errs []error
	if !c.Binance.KlineInterval.Valid() {
		errs = append(errs, fmt.Errorf("invalid kline interval %q", c.Binance.KlineInterval))
	}
	if c.Binance.KlineLimit <= 0 || c.Binance.KlineLimit > 1000 {
		errs = append(errs, fmt.Errorf("kline limit must be within 1..1000, got %d", c.Binance.KlineLimit))
	}
	if c.Binance.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.Strategy.MaxParallelRequests <= 0 {
		errs = append(errs, errors.New("max parallel requests must be positive"))
	}
	if c.Strategy.RSILength <= 0 {
		errs = append(errs, errors.New("rsi length must be positive"))
	}
	if c.Strategy.BandPct < 0 {
		errs = append(errs, errors.New("band percent must not be negative"))
	}
	if c.Cache.MemoryMaxSize <= 0 {
		errs = append(errs, errors.New("memory cache size must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvList splits a comma separated variable, trimming blanks.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
