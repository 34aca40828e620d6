package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IngestConfig configures the ingestd backend.
type IngestConfig struct {
	DbURL        string
	KafkaBroker  string
	KafkaTopic   string
	APIPort      int
	ListingsCron string // cron expression; empty disables scheduled listing sync
	Collection   string // required only when ListingsCron is set
	Marketplaces []string
}

// ListingsConfig configures a one-shot marketplace listing sync run.
type ListingsConfig struct {
	DbURL          string
	Collection     string
	Marketplaces   []string // empty means every registered marketplace
	RequestDelay   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	HTTPTimeout    time.Duration
}

// ChainSyncConfig configures a one-shot chunked block-range scan.
type ChainSyncConfig struct {
	DbURL            string
	RPCURLs          []string
	BackendURL       string
	ExchangeContract string
	NFTContract      string
	ChunkSize        uint64
	PriceDecimals    int
	FromBlock        uint64 // 0 resumes from the persisted sync state
	ToBlock          uint64 // 0 scans up to the current chain height
	RequestDelay     time.Duration
}

// NewIngestConfig loads ingestd configuration from environment variables.
func NewIngestConfig() *IngestConfig {
	loadDotEnv()

	cfg := &IngestConfig{
		DbURL:        getEnvOrFatal("DB_URL"),
		KafkaBroker:  getEnvOrFatal("KAFKA_BROKER"),
		KafkaTopic:   getEnvOrFatal("KAFKA_TOPIC"),
		APIPort:      getEnvInt("API_PORT", 8080),
		ListingsCron: getEnv("LISTINGS_CRON", ""),
		Marketplaces: getEnvList("MARKETPLACES"),
	}
	if cfg.ListingsCron != "" {
		cfg.Collection = getEnvOrFatal("COLLECTION")
	}
	return cfg
}

// NewListingsConfig loads listing sync configuration from environment variables.
func NewListingsConfig() *ListingsConfig {
	loadDotEnv()

	return &ListingsConfig{
		DbURL:          getEnvOrFatal("DB_URL"),
		Collection:     getEnvOrFatal("COLLECTION"),
		Marketplaces:   getEnvList("MARKETPLACES"),
		RequestDelay:   time.Duration(getEnvInt("REQUEST_DELAY_MS", 1200)) * time.Millisecond,
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
	}
}

// NewChainSyncConfig loads chain scan configuration from environment variables.
func NewChainSyncConfig() *ChainSyncConfig {
	loadDotEnv()

	return &ChainSyncConfig{
		DbURL:            getEnvOrFatal("DB_URL"),
		RPCURLs:          getEnvListOrFatal("RPC_URLS"),
		BackendURL:       getEnvOrFatal("BACKEND_URL"),
		ExchangeContract: getEnvOrFatal("EXCHANGE_CONTRACT"),
		NFTContract:      getEnvOrFatal("NFT_CONTRACT"),
		ChunkSize:        getEnvUint64("CHUNK_SIZE", 10000),
		PriceDecimals:    getEnvInt("PRICE_DECIMALS", 18),
		FromBlock:        getEnvUint64("FROM_BLOCK", 0),
		ToBlock:          getEnvUint64("TO_BLOCK", 0),
		RequestDelay:     time.Duration(getEnvInt("REQUEST_DELAY_MS", 100)) * time.Millisecond,
	}
}

// loadDotEnv loads a .env file when one exists; a missing file is fine in
// deployed environments where everything comes from real env vars.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}
}

func getEnvOrFatal(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	log.Fatalf("environment variable %s not set", key)

	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func getEnvListOrFatal(key string) []string {
	values := getEnvList(key)
	if len(values) == 0 {
		log.Fatalf("environment variable %s not set", key)
	}
	return values
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
