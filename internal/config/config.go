package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"marketmasters/internal/store"
)

type StoreConfig struct {
	Kind        string
	Profile     string
	Dir         string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
}

func (s StoreConfig) Options() store.Options {
	return store.Options{
		Kind:        store.Kind(s.Kind),
		Profile:     s.Profile,
		Dir:         s.Dir,
		DatabaseURL: s.DatabaseURL,
		RedisURL:    s.RedisURL,
		CacheTTL:    s.CacheTTL,
	}
}

type GameConfig struct {
	PriceTickEvery time.Duration
	NewsTickEvery  time.Duration
	UITickEvery    time.Duration
	Volatility     string
}

type DiscordConfig struct {
	WebhookID    string
	WebhookToken string
}

func (d DiscordConfig) Enabled() bool {
	return d.WebhookID != "" && d.WebhookToken != ""
}

type APIConfig struct {
	Addr    string
	Store   StoreConfig
	Game    GameConfig
	Discord DiscordConfig
}

type SimConfig struct {
	Store   StoreConfig
	Game    GameConfig
	Discord DiscordConfig
	RunOnce bool
}

type CLIConfig struct {
	APIBaseURL string
	Store      StoreConfig
	Game       GameConfig
}

// fileConfig is the optional TOML file named by MM_CONFIG. Environment
// variables win over anything set here.
type fileConfig struct {
	Addr       string `toml:"addr"`
	APIBaseURL string `toml:"api_base_url"`
	Store      struct {
		Kind        string `toml:"kind"`
		Profile     string `toml:"profile"`
		Dir         string `toml:"dir"`
		DatabaseURL string `toml:"database_url"`
		RedisURL    string `toml:"redis_url"`
		CacheTTL    string `toml:"cache_ttl"`
	} `toml:"store"`
	Game struct {
		PriceTick  string `toml:"price_tick"`
		NewsTick   string `toml:"news_tick"`
		UITick     string `toml:"ui_tick"`
		Volatility string `toml:"volatility"`
	} `toml:"game"`
	Discord struct {
		WebhookID    string `toml:"webhook_id"`
		WebhookToken string `toml:"webhook_token"`
	} `toml:"discord"`
}

func loadFile() (fileConfig, error) {
	var fc fileConfig
	path := strings.TrimSpace(os.Getenv("MM_CONFIG"))
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func LoadAPIFromEnv() (APIConfig, error) {
	fc, err := loadFile()
	if err != nil {
		return APIConfig{}, err
	}
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MM_API_ADDR", or(fc.Addr, ":8080"))
	}
	cfg := APIConfig{
		Addr:    addr,
		Store:   loadStore(fc),
		Game:    loadGame(fc),
		Discord: loadDiscord(fc),
	}
	return cfg, cfg.Store.validate()
}

func LoadSimFromEnv() (SimConfig, error) {
	fc, err := loadFile()
	if err != nil {
		return SimConfig{}, err
	}
	cfg := SimConfig{
		Store:   loadStore(fc),
		Game:    loadGame(fc),
		Discord: loadDiscord(fc),
		RunOnce: envBoolDefault("RUN_ONCE", false),
	}
	return cfg, cfg.Store.validate()
}

func LoadCLIFromEnv() (CLIConfig, error) {
	fc, err := loadFile()
	if err != nil {
		return CLIConfig{}, err
	}
	cfg := CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("MM_API_BASE_URL", or(fc.APIBaseURL, "http://localhost:8080")), "/"),
		Store:      loadStore(fc),
		Game:       loadGame(fc),
	}
	return cfg, cfg.Store.validate()
}

func loadStore(fc fileConfig) StoreConfig {
	return StoreConfig{
		Kind:        strings.ToLower(envDefault("MM_STORE", or(fc.Store.Kind, "file"))),
		Profile:     envDefault("MM_PROFILE", or(fc.Store.Profile, "default")),
		Dir:         envDefault("MM_SAVE_DIR", fc.Store.Dir),
		DatabaseURL: envDefault("DATABASE_URL", fc.Store.DatabaseURL),
		RedisURL:    envDefault("REDIS_URL", fc.Store.RedisURL),
		CacheTTL:    envDurationDefault("MM_CACHE_TTL", parseDuration(fc.Store.CacheTTL, 5*time.Minute)),
	}
}

func loadGame(fc fileConfig) GameConfig {
	return GameConfig{
		PriceTickEvery: envDurationDefault("MM_PRICE_TICK_EVERY", parseDuration(fc.Game.PriceTick, 10*time.Second)),
		NewsTickEvery:  envDurationDefault("MM_NEWS_TICK_EVERY", parseDuration(fc.Game.NewsTick, 180*time.Second)),
		UITickEvery:    envDurationDefault("MM_UI_TICK_EVERY", parseDuration(fc.Game.UITick, time.Second)),
		Volatility:     envVolatilityDefault(fc.Game.Volatility),
	}
}

func loadDiscord(fc fileConfig) DiscordConfig {
	return DiscordConfig{
		WebhookID:    envDefault("MM_DISCORD_WEBHOOK_ID", fc.Discord.WebhookID),
		WebhookToken: envDefault("MM_DISCORD_WEBHOOK_TOKEN", fc.Discord.WebhookToken),
	}
}

func (s StoreConfig) validate() error {
	switch s.Kind {
	case "file", "memory":
		return nil
	case "postgres":
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for MM_STORE=postgres")
		}
	case "redis":
		if s.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for MM_STORE=redis")
		}
	case "cached":
		if s.DatabaseURL == "" || s.RedisURL == "" {
			return fmt.Errorf("DATABASE_URL and REDIS_URL are required for MM_STORE=cached")
		}
	default:
		return fmt.Errorf("unknown MM_STORE %q", s.Kind)
	}
	return nil
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envVolatilityDefault(fromFile string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MM_VOLATILITY")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(os.Getenv("VOLATILITY")))
	}
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(fromFile))
	}
	switch v {
	case "calm", "normal", "wild":
		return v
	default:
		return "normal"
	}
}
