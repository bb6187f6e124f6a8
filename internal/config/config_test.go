package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MM_CONFIG", "PORT", "MM_API_ADDR", "MM_STORE", "MM_PROFILE", "MM_SAVE_DIR",
		"DATABASE_URL", "REDIS_URL", "MM_CACHE_TTL", "MM_PRICE_TICK_EVERY",
		"MM_NEWS_TICK_EVERY", "MM_UI_TICK_EVERY", "MM_VOLATILITY", "VOLATILITY",
		"MM_DISCORD_WEBHOOK_ID", "MM_DISCORD_WEBHOOK_TOKEN", "RUN_ONCE", "MM_API_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Store.Kind != "file" || cfg.Store.Profile != "default" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Game.PriceTickEvery != 10*time.Second || cfg.Game.NewsTickEvery != 180*time.Second || cfg.Game.UITickEvery != time.Second {
		t.Fatalf("game = %+v", cfg.Game)
	}
	if cfg.Game.Volatility != "normal" {
		t.Fatalf("volatility = %q", cfg.Game.Volatility)
	}
	if cfg.Discord.Enabled() {
		t.Fatal("discord enabled without credentials")
	}
}

func TestPortOverridesAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
}

func TestFileOverlayAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mm.toml")
	body := `
addr = ":7070"

[store]
kind = "memory"
profile = "alice"

[game]
price_tick = "2s"
news_tick = "30s"
volatility = "wild"

[discord]
webhook_id = "123"
webhook_token = "abc"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MM_CONFIG", path)
	t.Setenv("MM_NEWS_TICK_EVERY", "45s")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Store.Kind != "memory" || cfg.Store.Profile != "alice" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Game.PriceTickEvery != 2*time.Second {
		t.Fatalf("price tick = %v", cfg.Game.PriceTickEvery)
	}
	if cfg.Game.NewsTickEvery != 45*time.Second {
		t.Fatalf("env should win over file: news tick = %v", cfg.Game.NewsTickEvery)
	}
	if cfg.Game.Volatility != "wild" {
		t.Fatalf("volatility = %q", cfg.Game.Volatility)
	}
	if !cfg.Discord.Enabled() {
		t.Fatal("discord should be enabled")
	}
}

func TestStoreValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"postgres without url", map[string]string{"MM_STORE": "postgres"}, true},
		{"postgres with url", map[string]string{"MM_STORE": "postgres", "DATABASE_URL": "postgres://x"}, false},
		{"redis without url", map[string]string{"MM_STORE": "redis"}, true},
		{"cached needs both", map[string]string{"MM_STORE": "cached", "DATABASE_URL": "postgres://x"}, true},
		{"unknown", map[string]string{"MM_STORE": "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadSimFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MM_PRICE_TICK_EVERY", "soon")
	t.Setenv("MM_VOLATILITY", "ludicrous")
	t.Setenv("RUN_ONCE", "true")
	cfg, err := LoadSimFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Game.PriceTickEvery != 10*time.Second {
		t.Fatalf("price tick = %v", cfg.Game.PriceTickEvery)
	}
	if cfg.Game.Volatility != "normal" {
		t.Fatalf("volatility = %q", cfg.Game.Volatility)
	}
	if !cfg.RunOnce {
		t.Fatal("RUN_ONCE not honored")
	}
}
