package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_valid(t *testing.T) {
	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discord.GuildID != "1000000000000000001" {
		t.Errorf("Discord.GuildID = %q", cfg.Discord.GuildID)
	}
	if cfg.Discord.AdminRole != "Stewards" {
		t.Errorf("Discord.AdminRole = %q, want Stewards", cfg.Discord.AdminRole)
	}
	if len(cfg.Discord.OwnerIDs) != 2 {
		t.Errorf("Discord.OwnerIDs = %v, want 2 entries", cfg.Discord.OwnerIDs)
	}
	if cfg.Questionnaire.IdleTimeout != 2*time.Minute {
		t.Errorf("Questionnaire.IdleTimeout = %v, want 2m", cfg.Questionnaire.IdleTimeout)
	}
	if cfg.Store.Directory != "/var/lib/irrbot" {
		t.Errorf("Store.Directory = %q", cfg.Store.Directory)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	// Not in the file, so the default survives.
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 10s", cfg.Server.WriteTimeout)
	}
	if cfg.Observability.Tracing.Exporter != "otlp" {
		t.Errorf("Tracing.Exporter = %q, want otlp", cfg.Observability.Tracing.Exporter)
	}
}

func TestLoad_missing_file(t *testing.T) {
	_, err := Load("testdata/nonexistent.yaml")
	if err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoad_missing_channels(t *testing.T) {
	_, err := Load("testdata/missing_channels.yaml")
	if err == nil {
		t.Fatal("Load() with missing channels should return error")
	}
	for _, want := range []string{"discord.log_channel_id", "discord.forum_channel_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_bad_driver(t *testing.T) {
	_, err := Load("testdata/bad_driver.yaml")
	if err == nil || !strings.Contains(err.Error(), "store.driver") {
		t.Fatalf("Load() error = %v, want store.driver error", err)
	}
}

func TestLoad_token_only_from_env(t *testing.T) {
	t.Setenv("IRRBOT_DISCORD_TOKEN", "")

	cfg, err := Load("testdata/token_in_file.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.Token != "" {
		t.Errorf("Discord.Token = %q, want empty (file value must be ignored)", cfg.Discord.Token)
	}
	if err := cfg.RequireToken(); err == nil {
		t.Error("RequireToken() should fail without env token")
	}

	t.Setenv("IRRBOT_DISCORD_TOKEN", "secret")
	cfg, err = Load("testdata/token_in_file.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.Token != "secret" {
		t.Errorf("Discord.Token = %q, want env value", cfg.Discord.Token)
	}
	if err := cfg.RequireToken(); err != nil {
		t.Errorf("RequireToken() error = %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Store.Driver != DriverFile {
		t.Errorf("default Store.Driver = %q, want file", cfg.Store.Driver)
	}
	if cfg.Questionnaire.IdleTimeout != 5*time.Minute {
		t.Errorf("default IdleTimeout = %v, want 5m", cfg.Questionnaire.IdleTimeout)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.Observability.LogLevel)
	}
	if cfg.Catalog.TagRulesFile != "config/tag_logic.json" {
		t.Errorf("default TagRulesFile = %q", cfg.Catalog.TagRulesFile)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IRRBOT_SERVER_PORT", "3000")
	t.Setenv("IRRBOT_STORE_DRIVER", "memory")
	t.Setenv("IRRBOT_OBSERVABILITY_LOG_LEVEL", "error")
	t.Setenv("IRRBOT_QUESTIONNAIRE_IDLE_TIMEOUT", "90s")
	t.Setenv("IRRBOT_DISCORD_FORUM_CHANNEL_ID", "42")

	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000 (env override)", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want memory (env override)", cfg.Store.Driver)
	}
	if cfg.Observability.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error (env override)", cfg.Observability.LogLevel)
	}
	if cfg.Questionnaire.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s (env override)", cfg.Questionnaire.IdleTimeout)
	}
	if cfg.Discord.ForumChannelID != "42" {
		t.Errorf("ForumChannelID = %q, want 42 (env override)", cfg.Discord.ForumChannelID)
	}
}

func TestEnvOverrides_invalid_numbers_ignored(t *testing.T) {
	t.Setenv("IRRBOT_SERVER_PORT", "not-a-port")
	t.Setenv("IRRBOT_QUESTIONNAIRE_IDLE_TIMEOUT", "soon")

	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want file value 9090", cfg.Server.Port)
	}
	if cfg.Questionnaire.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want file value 2m", cfg.Questionnaire.IdleTimeout)
	}
}

func TestValidate_collects_all_errors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Questionnaire.IdleTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should return error")
	}
	for _, want := range []string{"discord.guild_id", "server.port", "questionnaire.idle_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_server_disabled_skips_port(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.GuildID = "1"
	cfg.Discord.LogChannelID = "2"
	cfg.Discord.ForumChannelID = "3"
	cfg.Server.Enabled = false
	cfg.Server.Port = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
