package config

import (
	"os"
	"strconv"
	"time"

	"audubonwatch/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// State document
	DataFile string

	// Redis configuration (optional; empty disables publishing)
	RedisAddr   string
	RedisDB     int
	RedisStream string

	// Memcache configuration (optional; empty disables the fetch block cache)
	MemcacheAddr string

	// Fetch configuration
	FetchTimeout time.Duration
	MinBodySize  int
	AdapterDelay time.Duration

	// URLs for the source adapters
	PrincetonURL      string
	PanteekURL        string
	OldPrintShopURL   string
	AntiqueAudubonURL string
	AudubonArtURL     string
	FirstDibsURL      string
	EbayURL           string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "30"))
	minBodySize, _ := strconv.Atoi(getEnv("MIN_BODY_SIZE", "512"))
	adapterDelay, _ := strconv.Atoi(getEnv("ADAPTER_DELAY_SECONDS", "2"))

	return &Config{
		DataFile:          getEnv("DATA_FILE", "audubon_listings.json"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           redisDB,
		RedisStream:       getEnv("REDIS_STREAM", "audubon:new"),
		MemcacheAddr:      getEnv("MEMCACHE_ADDR", ""),
		FetchTimeout:      time.Duration(fetchTimeout) * time.Second,
		MinBodySize:       minBodySize,
		AdapterDelay:      time.Duration(adapterDelay) * time.Second,
		PrincetonURL:      getEnv("PRINCETON_URL", "https://princetonaudubonprints.com"),
		PanteekURL:        getEnv("PANTEEK_URL", "https://www.panteek.com"),
		OldPrintShopURL:   getEnv("OLDPRINTSHOP_URL", "https://oldprintshop.com"),
		AntiqueAudubonURL: getEnv("ANTIQUEAUDUBON_URL", "https://www.antiqueaudubon.com"),
		AudubonArtURL:     getEnv("AUDUBONART_URL", "https://audubonart.com"),
		FirstDibsURL:      getEnv("FIRSTDIBS_URL", "https://www.1stdibs.com"),
		EbayURL:           getEnv("EBAY_URL", "https://www.ebay.com"),
		Environment:       getEnv("AUDUBONWATCH_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return errors.NewConfiguration("DATA_FILE must not be empty", nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.NewConfiguration("FETCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.MinBodySize < 0 {
		return errors.NewConfiguration("MIN_BODY_SIZE must not be negative", nil)
	}
	if c.AdapterDelay < 0 {
		return errors.NewConfiguration("ADAPTER_DELAY_SECONDS must not be negative", nil)
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
