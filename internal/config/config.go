package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pressure-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Verifier  VerifierConfig  `mapstructure:"verifier"`
	Adjuster  AdjusterConfig  `mapstructure:"adjuster"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs monitoring cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// FeedConfig covers the football-data API.
type FeedConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// MonitorConfig tunes the alert decision context.
type MonitorConfig struct {
	// ShotsMode selects the shots-on-goal figure for the dominance
	// condition: max, sum, home, or away.
	ShotsMode string `mapstructure:"shots_mode"`
	// CornersMode selects how the recent-period corner count is derived:
	// "window" diffs against a baseline sample, "total" reuses the
	// cumulative match count.
	CornersMode   string        `mapstructure:"corners_mode"`
	CornersWindow time.Duration `mapstructure:"corners_window"`
}

// VerifierConfig tunes the outcome verification batch.
type VerifierConfig struct {
	ObservationWindow time.Duration `mapstructure:"observation_window"`
	BatchSize         int           `mapstructure:"batch_size"`
	FetchDelay        time.Duration `mapstructure:"fetch_delay"`
}

// AdjusterConfig tunes the daily threshold adjustment.
type AdjusterConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	TrailingWindow time.Duration `mapstructure:"trailing_window"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRESSWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "presswatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70726573))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("feed.base_url", "https://v3.football.api-sports.io")
	v.SetDefault("feed.request_timeout", "15s")
	v.SetDefault("feed.requests_per_minute", 30)
	v.SetDefault("feed.user_agent", "presswatcher/1.0")

	v.SetDefault("monitor.shots_mode", "max")
	v.SetDefault("monitor.corners_mode", "window")
	v.SetDefault("monitor.corners_window", "10m")

	v.SetDefault("verifier.observation_window", "10m")
	v.SetDefault("verifier.batch_size", 50)
	v.SetDefault("verifier.fetch_delay", "500ms")

	v.SetDefault("adjuster.interval", "24h")
	v.SetDefault("adjuster.trailing_window", "24h")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Verifier.ObservationWindow <= 0 {
		return fmt.Errorf("verifier.observation_window must be greater than zero")
	}
	if c.Verifier.BatchSize <= 0 {
		return fmt.Errorf("verifier.batch_size must be greater than zero")
	}
	if c.Adjuster.Interval <= 0 {
		return fmt.Errorf("adjuster.interval must be greater than zero")
	}
	if c.Adjuster.TrailingWindow <= 0 {
		return fmt.Errorf("adjuster.trailing_window must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	switch c.Monitor.ShotsMode {
	case "max", "sum", "home", "away":
	default:
		return fmt.Errorf("monitor.shots_mode must be one of max, sum, home, away")
	}
	switch c.Monitor.CornersMode {
	case "window", "total":
	default:
		return fmt.Errorf("monitor.corners_mode must be window or total")
	}
	if c.Monitor.CornersMode == "window" && c.Monitor.CornersWindow <= 0 {
		return fmt.Errorf("monitor.corners_window must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
