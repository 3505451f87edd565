// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gitlab.com/MikeTTh/env"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Discord       DiscordConfig       `yaml:"discord"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Questionnaire QuestionnaireConfig `yaml:"questionnaire"`
	Store         StoreConfig         `yaml:"store"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DiscordConfig describes the guild and channels the bot operates in.
type DiscordConfig struct {
	// Token is read from IRRBOT_DISCORD_TOKEN only and never from the file.
	Token           string   `yaml:"-"`
	GuildID         string   `yaml:"guild_id"`
	LogChannelID    string   `yaml:"log_channel_id"`
	ForumChannelID  string   `yaml:"forum_channel_id"`
	AdminRole       string   `yaml:"admin_role"`
	ModeratorRoleID string   `yaml:"moderator_role_id"`
	ProtestEmojiID  string   `yaml:"protest_emoji_id"`
	ButtonMessage   string   `yaml:"button_message"`
	OwnerIDs        []string `yaml:"owner_ids"`
}

// CatalogConfig describes where the question catalog and tag rules live.
type CatalogConfig struct {
	QuestionsFile string `yaml:"questions_file"`
	TagRulesFile  string `yaml:"tag_rules_file"`
}

// QuestionnaireConfig describes the interactive submission flow.
type QuestionnaireConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// StoreConfig describes submission persistence settings.
type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	Directory       string        `yaml:"directory"`
	DSNEnv          string        `yaml:"dsn_env"`
	AddrEnv         string        `yaml:"addr_env"`
	DB              int           `yaml:"db"`
	KeyPrefix       string        `yaml:"key_prefix"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig describes the operational HTTP server.
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Discord: DiscordConfig{
			AdminRole:     "Admin",
			ButtonMessage: "Click the button below to file an incident report.",
		},
		Catalog: CatalogConfig{
			QuestionsFile: "config/questions.json",
			TagRulesFile:  "config/tag_logic.json",
		},
		Questionnaire: QuestionnaireConfig{
			IdleTimeout: 5 * time.Minute,
		},
		Store: StoreConfig{
			Driver:          DriverFile,
			Directory:       "data",
			DSNEnv:          "IRRBOT_DATABASE_URL",
			AddrEnv:         "IRRBOT_REDIS_ADDR",
			KeyPrefix:       "irrbot",
			MaxOpenConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "stdout",
				SamplingRate: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid. It does not
// require the Discord token so offline commands can validate a file.
func (c *Config) Validate() error {
	var errs []string

	if c.Discord.GuildID == "" {
		errs = append(errs, "discord.guild_id is required")
	}
	if c.Discord.LogChannelID == "" {
		errs = append(errs, "discord.log_channel_id is required")
	}
	if c.Discord.ForumChannelID == "" {
		errs = append(errs, "discord.forum_channel_id is required")
	}
	if c.Catalog.QuestionsFile == "" {
		errs = append(errs, "catalog.questions_file is required")
	}
	if c.Questionnaire.IdleTimeout <= 0 {
		errs = append(errs, "questionnaire.idle_timeout must be positive")
	}

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Directory == "" {
			errs = append(errs, "store.directory is required for the file driver")
		}
	case DriverMemory:
	case DriverRedis:
		if c.Store.AddrEnv == "" {
			errs = append(errs, "store.addr_env is required for the redis driver")
		}
	case DriverPostgres:
		if c.Store.DSNEnv == "" {
			errs = append(errs, "store.dsn_env is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of file, memory, redis, postgres", c.Store.Driver))
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if r := c.Observability.Tracing.SamplingRate; r < 0 || r > 1 {
		errs = append(errs, "observability.tracing.sampling_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// RequireToken fails when no Discord token was provided through the
// environment.
func (c *Config) RequireToken() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("config: IRRBOT_DISCORD_TOKEN is required")
	}
	return nil
}

// applyEnvOverrides reads IRRBOT_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	cfg.Discord.Token = env.String("IRRBOT_DISCORD_TOKEN", "")
	cfg.Discord.GuildID = env.String("IRRBOT_DISCORD_GUILD_ID", cfg.Discord.GuildID)
	cfg.Discord.LogChannelID = env.String("IRRBOT_DISCORD_LOG_CHANNEL_ID", cfg.Discord.LogChannelID)
	cfg.Discord.ForumChannelID = env.String("IRRBOT_DISCORD_FORUM_CHANNEL_ID", cfg.Discord.ForumChannelID)
	cfg.Store.Driver = env.String("IRRBOT_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Directory = env.String("IRRBOT_STORE_DIRECTORY", cfg.Store.Directory)
	cfg.Observability.LogLevel = env.String("IRRBOT_OBSERVABILITY_LOG_LEVEL", cfg.Observability.LogLevel)

	if v := env.String("IRRBOT_SERVER_PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := env.String("IRRBOT_QUESTIONNAIRE_IDLE_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Questionnaire.IdleTimeout = d
		}
	}
}
