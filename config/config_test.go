package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YOUTUBE_API_KEY", "YT_CLIENT_ID", "YT_CLIENT_SECRET", "YT_REDIRECT_URI", "YT_SCOPES",
		"DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID", "TOOL_NAME",
		"CRON_SECRET", "CRON_SECRET_DC_KEEP_ALIVE",
		"DISCOVERY_TICK", "DISCOVERY_BUFFER",
		"HIGHLIGHT_CHANNELS", "HIGHLIGHT_COMPILE_INTERVAL", "DB_DSN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ToolName != "clip-tender" {
		t.Errorf("tool name = %q", cfg.ToolName)
	}
	if cfg.DiscoveryTick != time.Second {
		t.Errorf("tick = %v", cfg.DiscoveryTick)
	}
	if cfg.DiscoveryBuffer != 64 {
		t.Errorf("buffer = %d", cfg.DiscoveryBuffer)
	}
	if cfg.HighlightInterval != 6*time.Hour {
		t.Errorf("interval = %v", cfg.HighlightInterval)
	}
	if cfg.YTScopes == "" {
		t.Error("scopes default missing")
	}
	if cfg.DBDsn == "" {
		t.Error("db dsn default missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOOL_NAME", "myclipper")
	t.Setenv("DISCOVERY_TICK", "250ms")
	t.Setenv("DISCOVERY_BUFFER", "8")
	t.Setenv("HIGHLIGHT_CHANNELS", "UCa, UCb ,,UCc")
	t.Setenv("HIGHLIGHT_COMPILE_INTERVAL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ToolName != "myclipper" {
		t.Errorf("tool name = %q", cfg.ToolName)
	}
	if cfg.DiscoveryTick != 250*time.Millisecond {
		t.Errorf("tick = %v", cfg.DiscoveryTick)
	}
	if cfg.DiscoveryBuffer != 8 {
		t.Errorf("buffer = %d", cfg.DiscoveryBuffer)
	}
	if len(cfg.HighlightChannels) != 3 || cfg.HighlightChannels[1] != "UCb" {
		t.Errorf("channels = %v", cfg.HighlightChannels)
	}
	if cfg.HighlightInterval != 30*time.Minute {
		t.Errorf("interval = %v", cfg.HighlightInterval)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCOVERY_TICK", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad DISCOVERY_TICK")
	}

	clearEnv(t)
	t.Setenv("DISCOVERY_BUFFER", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative DISCOVERY_BUFFER")
	}

	clearEnv(t)
	t.Setenv("HIGHLIGHT_COMPILE_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero HIGHLIGHT_COMPILE_INTERVAL")
	}
}

func TestValidateHelpers(t *testing.T) {
	clearEnv(t)
	cfg, _ := Load()
	if err := cfg.ValidateProviderReady(); err == nil {
		t.Error("provider should not be ready without api key")
	}
	if err := cfg.ValidateNotifyReady(); err == nil {
		t.Error("notify should not be ready without discord env")
	}
	if err := cfg.ValidateCommentReady(); err == nil {
		t.Error("comments should not be ready without oauth env")
	}

	cfg.YTAPIKey = "k"
	cfg.DiscordBotToken = "t"
	cfg.DiscordChannelID = "c"
	cfg.YTClientID = "id"
	cfg.YTClientSecret = "sec"
	if err := cfg.ValidateProviderReady(); err != nil {
		t.Errorf("provider: %v", err)
	}
	if err := cfg.ValidateNotifyReady(); err != nil {
		t.Errorf("notify: %v", err)
	}
	if err := cfg.ValidateCommentReady(); err != nil {
		t.Errorf("comments: %v", err)
	}
}
