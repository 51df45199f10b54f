// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Scraper     ScraperConfig
	Translation TranslationConfig
	Images      ImageConfig
	Catalog     CatalogConfig
	Scheduler   SchedulerConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	// Per-IP API limits. Scrape endpoints get their own, stricter budget.
	RateLimitRPS    float64
	RateLimitBurst  int
	ScrapeRateLimit int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
	Endpoint        string
	LocalDir        string
	LocalBaseURL    string
}

type ScraperConfig struct {
	UserAgent         string
	FetchTimeout      time.Duration
	DelayBetweenURLs  time.Duration
	RequestsPerSecond float64
	BrowserEnabled    bool
	ChromeRemoteURL   string
}

type TranslationConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	PromptVersion     string
	MaxTokens         int
	Temperature       float64
	DelayBetweenItems time.Duration
	RequestsPerMinute int
	ReviewBatchSize   int
}

type ImageConfig struct {
	Concurrency     int
	DownloadTimeout time.Duration
	MaxWidth        int
	JPEGQuality     int
	MaxBytes        int64
}

type CatalogConfig struct {
	DefaultReviewerName string
	ProductPathPrefix   string
}

type SchedulerConfig struct {
	Enabled             bool
	ScrapeSpec          string
	TranslateSpec       string
	ReviewTranslateSpec string
	ScrapeURLs          []string
	BatchLimit          int
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),

			RateLimitRPS:    getEnvAsFloat("API_RATE_LIMIT_RPS", 10),
			RateLimitBurst:  getEnvAsInt("API_RATE_LIMIT_BURST", 20),
			ScrapeRateLimit: getEnvAsInt("API_SCRAPE_RATE_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "curation"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-3"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "curation-images"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			LocalDir:        getEnv("UPLOADS_DIR", "./uploads"),
			LocalBaseURL:    getEnv("UPLOADS_BASE_URL", "/uploads"),
		},
		Scraper: ScraperConfig{
			UserAgent:         getEnv("SCRAPER_USER_AGENT", ""),
			FetchTimeout:      getEnvAsDuration("SCRAPER_FETCH_TIMEOUT", 10*time.Second),
			DelayBetweenURLs:  getEnvAsDuration("SCRAPER_URL_DELAY", 2*time.Second),
			RequestsPerSecond: getEnvAsFloat("SCRAPER_REQUESTS_PER_SECOND", 1),
			BrowserEnabled:    getEnvAsBool("SCRAPER_BROWSER_ENABLED", false),
			ChromeRemoteURL:   getEnv("SCRAPER_CHROME_REMOTE_URL", ""),
		},
		Translation: TranslationConfig{
			APIKey:            getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:           getEnv("TRANSLATION_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:             getEnv("TRANSLATION_MODEL", "openai/gpt-4o-mini"),
			PromptVersion:     getEnv("TRANSLATION_PROMPT_VERSION", "v2-reviews"),
			MaxTokens:         getEnvAsInt("TRANSLATION_MAX_TOKENS", 1024),
			Temperature:       getEnvAsFloat("TRANSLATION_TEMPERATURE", 0.3),
			DelayBetweenItems: getEnvAsDuration("TRANSLATION_ITEM_DELAY", time.Second),
			RequestsPerMinute: getEnvAsInt("TRANSLATION_REQUESTS_PER_MINUTE", 30),
			ReviewBatchSize:   getEnvAsInt("TRANSLATION_REVIEW_BATCH_SIZE", 10),
		},
		Images: ImageConfig{
			Concurrency:     getEnvAsInt("IMAGE_CONCURRENCY", 2),
			DownloadTimeout: getEnvAsDuration("IMAGE_DOWNLOAD_TIMEOUT", 15*time.Second),
			MaxWidth:        getEnvAsInt("IMAGE_MAX_WIDTH", 1200),
			JPEGQuality:     getEnvAsInt("IMAGE_JPEG_QUALITY", 85),
			MaxBytes:        int64(getEnvAsInt("IMAGE_MAX_BYTES", 10<<20)),
		},
		Catalog: CatalogConfig{
			DefaultReviewerName: getEnv("CATALOG_DEFAULT_REVIEWER", "Client Nuage"),
			ProductPathPrefix:   getEnv("CATALOG_PRODUCT_PATH_PREFIX", "/produits/"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             getEnvAsBool("SCHEDULER_ENABLED", false),
			ScrapeSpec:          getEnv("SCHEDULER_SCRAPE_SPEC", "0 3 * * *"),
			TranslateSpec:       getEnv("SCHEDULER_TRANSLATE_SPEC", "*/30 * * * *"),
			ReviewTranslateSpec: getEnv("SCHEDULER_REVIEW_TRANSLATE_SPEC", "15 * * * *"),
			ScrapeURLs:          getEnvAsList("SCRAPE_URLS", nil),
			BatchLimit:          getEnvAsInt("SCHEDULER_BATCH_LIMIT", 10),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "fr"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.IsProduction() {
		return fmt.Errorf("database password is required in production")
	}

	if c.Images.Concurrency < 0 {
		return fmt.Errorf("image concurrency must not be negative")
	}

	if c.Scheduler.Enabled {
		specs := map[string]string{
			"SCHEDULER_SCRAPE_SPEC":           c.Scheduler.ScrapeSpec,
			"SCHEDULER_TRANSLATE_SPEC":        c.Scheduler.TranslateSpec,
			"SCHEDULER_REVIEW_TRANSLATE_SPEC": c.Scheduler.ReviewTranslateSpec,
		}
		for key, spec := range specs {
			if spec == "" {
				continue
			}
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, spec, err)
			}
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("1500ms") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
