package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the play API service.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	PairStateTTL          time.Duration
	RecentWindow          time.Duration
	RecentLimit           int
	GuardWait             time.Duration
	BatchMaxSize          int
	BatchMaxWait          time.Duration
	FlushInterval         time.Duration
	LeaderboardFloor      time.Duration
	LeaderboardCacheTTL   time.Duration
	ChallengeCacheTTL     time.Duration
	ConfigurationCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PLAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Play API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("pair_state_ttl", "2m")
	v.SetDefault("recent_window", "30s")
	v.SetDefault("recent_limit", 5)
	v.SetDefault("guard_wait", "2s")
	v.SetDefault("batch_max_size", 10000)
	v.SetDefault("batch_max_wait", "1s")
	v.SetDefault("flush_interval", "3s")
	v.SetDefault("leaderboard_floor", "30s")
	v.SetDefault("leaderboard_cache_ttl", "3h")
	v.SetDefault("challenge_cache_ttl", "5m")
	v.SetDefault("configuration_cache_ttl", "10m")

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		AppPort:      v.GetString("app.port"),
		DatabaseURL:  v.GetString("database.url"),
		RedisURL:     v.GetString("redis.url"),
		NATSURL:      v.GetString("nats.url"),
		RecentLimit:  v.GetInt("recent_limit"),
		BatchMaxSize: v.GetInt("batch_max_size"),
	}

	durations := map[string]*time.Duration{
		"pair_state_ttl":          &cfg.PairStateTTL,
		"recent_window":           &cfg.RecentWindow,
		"guard_wait":              &cfg.GuardWait,
		"batch_max_wait":          &cfg.BatchMaxWait,
		"flush_interval":          &cfg.FlushInterval,
		"leaderboard_floor":       &cfg.LeaderboardFloor,
		"leaderboard_cache_ttl":   &cfg.LeaderboardCacheTTL,
		"challenge_cache_ttl":     &cfg.ChallengeCacheTTL,
		"configuration_cache_ttl": &cfg.ConfigurationCacheTTL,
	}

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}

	if cfg.BatchMaxSize <= 0 {
		cfg.BatchMaxSize = 10000
	}

	return cfg, nil
}
