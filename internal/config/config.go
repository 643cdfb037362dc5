package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fallback values used when the environment does not provide one.
// Config.Warnings reports which of them are still active.
const (
	defaultInternalAPIKey = "internal-print-key"
	defaultAIProxySecret  = "ai-proxy-secret"
	defaultBaseURL        = "http://localhost:3000"
)

// Config holds all application configuration
type Config struct {
	NodeEnv        string
	Port           string
	JWTSecret      string
	InternalAPIKey string
	BaseURL        string // public frontend, used for signature and verify links
	InternalURL    string // how the headless browser reaches this server
	UploadsDir     string
	FrontendDir    string
	LogLevel       string
	Database       DatabaseConfig
	AI             AIConfig
	PDF            PDFConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Path     string // sqlite file
	Alter    bool
}

// AIConfig selects and configures the text-editing backend
type AIConfig struct {
	Provider     string // proxy or gemini
	ProxyURL     string
	ProxySecret  string
	GeminiAPIKey string
	Model        string
	Timeout      time.Duration
}

// PDFConfig configures headless browser printing
type PDFConfig struct {
	ChromePath    string
	ExtraDelay    time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	port := getEnv("PORT", "3001")

	return &Config{
		NodeEnv:        getEnv("NODE_ENV", "development"),
		Port:           port,
		JWTSecret:      jwtSecret,
		InternalAPIKey: getEnv("INTERNAL_API_KEY", defaultInternalAPIKey),
		BaseURL:        getEnv("FRONTEND_URL", defaultBaseURL),
		InternalURL:    getEnv("INTERNAL_URL", "http://127.0.0.1:"+port),
		UploadsDir:     getEnv("UPLOADS_DIR", "uploads"),
		FrontendDir:    os.Getenv("FRONTEND_DIR"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckdocs"),
			Path:     getEnv("SQLITE_PATH", "eckdocs.db"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		AI: AIConfig{
			Provider:     getEnv("AI_PROVIDER", "proxy"),
			ProxyURL:     getEnv("AI_PROXY_URL", "http://localhost:8787/v1/complete"),
			ProxySecret:  getEnv("AI_PROXY_SECRET", defaultAIProxySecret),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        os.Getenv("AI_MODEL"),
			Timeout:      getDuration("AI_TIMEOUT", 90*time.Second),
		},
		PDF: PDFConfig{
			ChromePath:    os.Getenv("CHROME_PATH"),
			ExtraDelay:    getDuration("PDF_EXTRA_DELAY", 1500*time.Millisecond),
			Timeout:       getDuration("PDF_TIMEOUT", 60*time.Second),
			MaxConcurrent: getInt("PDF_MAX_CONCURRENT", 2),
		},
	}, nil
}

// Warnings lists the hardcoded fallbacks still in effect
func (c *Config) Warnings() []string {
	var w []string
	if c.InternalAPIKey == defaultInternalAPIKey {
		w = append(w, "INTERNAL_API_KEY not set, using built-in default")
	}
	if c.AI.Provider == "proxy" && c.AI.ProxySecret == defaultAIProxySecret {
		w = append(w, "AI_PROXY_SECRET not set, using built-in default")
	}
	if c.BaseURL == defaultBaseURL {
		w = append(w, "FRONTEND_URL not set, links will point to "+defaultBaseURL)
	}
	return w
}

// IsProduction reports whether NODE_ENV is production
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
