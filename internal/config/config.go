package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMySQL    = "mysql"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config aggregates runtime configuration for the bot and supporting services.
type Config struct {
	BotToken         string
	WebhookURL       string
	GroqAPIKey       string
	GroqBaseURL      string
	LLMModel         string
	LLMTemperature   float64
	LLMMaxTokens     int
	StoreDriver      string
	DatabaseURL      string
	SupabaseKey      string
	MySQLDSN         string
	SQLitePath       string
	UpsellLink       string
	ListenAddr       string
	WriteTimeout     time.Duration
	MemoryCapChars   int
	PromptTailChars  int
	FreeWarnAt       int
	FreeLimit        int
	AdminUsername    string
	AdminPassword    string
	LogLevel         string
	MetricsNamespace string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

	cfg := Config{
		WebhookURL:       strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		GroqBaseURL:      normalizeBaseURL(getEnv("GROQ_BASE_URL", defaultGroqBaseURL), defaultGroqBaseURL),
		LLMModel:         getEnv("LLM_MODEL", "llama-3.1-70b-versatile"),
		LLMTemperature:   getFloat("LLM_TEMPERATURE", 0.9),
		LLMMaxTokens:     getInt("LLM_MAX_TOKENS", 800),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		SupabaseKey:      os.Getenv("SUPABASE_KEY"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
		SQLitePath:       getEnv("SQLITE_PATH", "twin.db"),
		UpsellLink:       getEnv("LEMON_LINK", "https://google.com"),
		ListenAddr:       listenAddr(),
		WriteTimeout:     time.Second * time.Duration(getInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		MemoryCapChars:   getInt("MEMORY_CAP_CHARS", 12000),
		PromptTailChars:  getInt("PROMPT_TAIL_CHARS", 3000),
		FreeWarnAt:       getInt("FREE_WARN_AT", 30),
		FreeLimit:        getInt("FREE_LIMIT", 60),
		AdminUsername:    os.Getenv("ADMIN_USERNAME"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "twin"),
	}

	cfg.BotToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	cfg.DatabaseURL = getEnv("SUPABASE_DB_URL", os.Getenv("DATABASE_URL"))

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if cfg.GroqAPIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "SUPABASE_DB_URL")
		}
	case StoreDriverMySQL:
		if cfg.MySQLDSN == "" {
			missing = append(missing, "MYSQL_DSN")
		}
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_DRIVER: %s", cfg.StoreDriver)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.MemoryCapChars <= 0 {
		return Config{}, fmt.Errorf("MEMORY_CAP_CHARS must be positive, got %d", cfg.MemoryCapChars)
	}
	if cfg.PromptTailChars <= 0 || cfg.PromptTailChars > cfg.MemoryCapChars {
		cfg.PromptTailChars = cfg.MemoryCapChars
	}
	if cfg.FreeWarnAt <= 0 || cfg.FreeLimit <= cfg.FreeWarnAt {
		return Config{}, fmt.Errorf("FREE_WARN_AT (%d) must be positive and below FREE_LIMIT (%d)", cfg.FreeWarnAt, cfg.FreeLimit)
	}

	return cfg, nil
}

// AdminEnabled reports whether admin routes should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

// normalizeBaseURL accepts hosts without a scheme and strips trailing slashes.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		host, path, _ := strings.Cut(parsed.Path, "/")
		parsed.Host = host
		parsed.Path = ""
		if path != "" {
			parsed.Path = "/" + path
		}
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String()
}

// listenAddr honours PORT as set by PaaS hosts when LISTEN_ADDR is absent.
func listenAddr() string {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		return addr
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8000"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Hosted deployments inject the environment directly.
	return nil
}
