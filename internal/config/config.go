package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	DiscordToken string
	DatabaseDSN  string

	// OperatorIDs is the static allow-list of user IDs permitted to run
	// privileged commands.
	OperatorIDs []string

	// CyclePeriod is the length of a leaderboard cycle started by the
	// finalize sweep. SetupPeriod is the short test-length cycle used when
	// a leaderboard is first set up.
	CyclePeriod time.Duration
	SetupPeriod time.Duration

	// DebounceDelay coalesces bursts of re-render triggers; RefreshInterval
	// drives the countdown-footer refresh sweep; SweepInterval drives the
	// cycle finalize sweep.
	DebounceDelay   time.Duration
	RefreshInterval time.Duration
	SweepInterval   time.Duration

	// PageSize is the number of entries per page in the paginated view.
	PageSize int

	LogLevel    string
	MetricsAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional, continue with environment variables
	}

	config := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		DatabaseDSN:  os.Getenv("DATABASE_DSN"),
		OperatorIDs:  splitList(os.Getenv("OPERATOR_IDS")),
		LogLevel:     envOr("LOG_LEVEL", "info"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
	}

	if config.DiscordToken == "" {
		return nil, &ConfigError{Field: "DISCORD_TOKEN", Message: "DISCORD_TOKEN is required"}
	}

	if config.DatabaseDSN == "" {
		return nil, &ConfigError{Field: "DATABASE_DSN", Message: "DATABASE_DSN is required"}
	}

	var err error
	if config.CyclePeriod, err = durationEnv("CYCLE_PERIOD", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if config.SetupPeriod, err = durationEnv("SETUP_CYCLE_PERIOD", 4*time.Minute); err != nil {
		return nil, err
	}
	if config.DebounceDelay, err = durationEnv("DEBOUNCE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if config.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if config.SweepInterval, err = durationEnv("SWEEP_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if config.PageSize, err = intEnv("PAGE_SIZE", 10); err != nil {
		return nil, err
	}
	if config.PageSize < 1 {
		return nil, &ConfigError{Field: "PAGE_SIZE", Message: "PAGE_SIZE must be at least 1"}
	}

	return config, nil
}

// IsOperator reports whether userID is on the privileged allow-list.
func (c *Config) IsOperator(userID string) bool {
	for _, id := range c.OperatorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: fmt.Sprintf("%s is not a valid duration: %v", key, err)}
	}
	if d <= 0 {
		return 0, &ConfigError{Field: key, Message: key + " must be positive"}
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: fmt.Sprintf("%s is not a valid integer: %v", key, err)}
	}
	return n, nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
