package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	GeminiAPIKey        string        `mapstructure:"GEMINI_API_KEY"`
	ChatModel           string        `mapstructure:"CHAT_MODEL"`
	ThinkingModel       string        `mapstructure:"THINKING_MODEL"`
	ThinkingBudget      int32         `mapstructure:"THINKING_BUDGET"`
	TriageModel         string        `mapstructure:"TRIAGE_MODEL"`
	AnalysisModel       string        `mapstructure:"ANALYSIS_MODEL"`
	AIRequestTimeout    time.Duration `mapstructure:"AI_REQUEST_TIMEOUT"`
	AnalysisConcurrency int           `mapstructure:"ANALYSIS_CONCURRENCY"`
	DataSource          string        `mapstructure:"DATA_SOURCE"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	MigrationsDir       string        `mapstructure:"MIGRATIONS_DIR"`
	TelegramBotToken    string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      int64         `mapstructure:"TELEGRAM_CHAT_ID"`
	ReportFontPath      string        `mapstructure:"REPORT_FONT_PATH"`
	AutoTriage          bool          `mapstructure:"AUTO_TRIAGE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
}

const (
	DataSourceMock     = "mock"
	DataSourcePostgres = "postgres"
)

var keys = []string{
	"PORT", "ENV", "GEMINI_API_KEY", "CHAT_MODEL", "THINKING_MODEL", "THINKING_BUDGET",
	"TRIAGE_MODEL", "ANALYSIS_MODEL", "AI_REQUEST_TIMEOUT", "ANALYSIS_CONCURRENCY",
	"DATA_SOURCE", "DATABASE_URL", "MIGRATIONS_DIR", "TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID", "REPORT_FONT_PATH", "AUTO_TRIAGE", "CORS_ORIGINS",
}

// Load reads the environment, falling back to a .env file in the working
// directory when present.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("CHAT_MODEL", "gemini-2.5-flash")
	v.SetDefault("THINKING_MODEL", "gemini-2.5-pro")
	v.SetDefault("THINKING_BUDGET", 32768)
	v.SetDefault("TRIAGE_MODEL", "gemini-2.5-flash")
	v.SetDefault("ANALYSIS_MODEL", "gemini-2.5-pro")
	v.SetDefault("AI_REQUEST_TIMEOUT", "60s")
	v.SetDefault("ANALYSIS_CONCURRENCY", 4)
	v.SetDefault("DATA_SOURCE", DataSourceMock)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("AUTO_TRIAGE", true)
	v.SetDefault("CORS_ORIGINS", "*")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TelegramEnabled reports whether team chat delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// Validate checks combinations Load cannot default away.
func (c *Config) Validate() error {
	switch c.DataSource {
	case DataSourceMock:
	case DataSourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE is %q", DataSourcePostgres)
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", DataSourceMock, DataSourcePostgres, c.DataSource)
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.AnalysisConcurrency < 1 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY must be at least 1, got %d", c.AnalysisConcurrency)
	}
	if c.AIRequestTimeout < 0 {
		return fmt.Errorf("AI_REQUEST_TIMEOUT must not be negative, got %s", c.AIRequestTimeout)
	}
	if c.ThinkingBudget < 0 {
		return fmt.Errorf("THINKING_BUDGET must not be negative, got %d", c.ThinkingBudget)
	}
	return nil
}
