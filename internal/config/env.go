package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	SslCertPath string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	Port    string
	LogMode string

	// EDGAR feeds
	SECUserAgent       string
	EdgarDataBaseURL   string
	EdgarArchivesURL   string
	EdgarTickersURL    string
	EdgarRateLimit     int
	HTTPTimeout        time.Duration
	IndexCacheTTL      time.Duration
	RedisURL           string
	CompanyRefreshCron string

	// ingestion tuning
	ChunkSize         int
	ChunkOverlap      int
	EmbedBatchSize    int
	EmbedTimeout      time.Duration
	IngestConcurrency int

	// optional raw filing archive
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	BondFinderURL string
	BondMaxPages  int
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),

		Port:    getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "dev"),

		SECUserAgent:       getEnv("SEC_USER_AGENT", "filingscope admin@example.com"),
		EdgarDataBaseURL:   getEnv("EDGAR_DATA_BASE_URL", "https://data.sec.gov"),
		EdgarArchivesURL:   getEnv("EDGAR_ARCHIVES_BASE_URL", "https://www.sec.gov/Archives/edgar/data"),
		EdgarTickersURL:    getEnv("EDGAR_TICKERS_URL", "https://www.sec.gov/files/company_tickers.json"),
		EdgarRateLimit:     getEnvInt("EDGAR_RATE_LIMIT", 8),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		IndexCacheTTL:      getEnvDuration("INDEX_CACHE_TTL", 15*time.Minute),
		RedisURL:           getEnv("REDIS_URL", ""),
		CompanyRefreshCron: getEnv("COMPANY_REFRESH_CRON", ""),

		ChunkSize:         getEnvInt("CHUNK_SIZE", 1500),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 150),
		EmbedBatchSize:    getEnvInt("EMBED_BATCH_SIZE", 16),
		EmbedTimeout:      getEnvDuration("EMBED_TIMEOUT", 60*time.Second),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),

		BondFinderURL: getEnv("BOND_FINDER_URL", "https://markets.businessinsider.com/bonds/finder"),
		BondMaxPages:  getEnvInt("BOND_MAX_PAGES", 5),
	}
}

// Validate reports the first setting the API cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if strings.TrimSpace(c.SECUserAgent) == "" {
		return fmt.Errorf("SEC_USER_AGENT not set")
	}
	return nil
}

// ArchiveEnabled is true when every S3 setting is present.
func (c *Config) ArchiveEnabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.BucketName != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
