package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Quote      QuoteConfig      `mapstructure:"quote"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// QuoteConfig configures the upstream quote/swap API client.
// Quote and build calls carry distinct timeouts: quoting is a fast pricing
// lookup, payload construction is noticeably slower upstream.
type QuoteConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	QuoteTimeout time.Duration `mapstructure:"quote_timeout"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"`
	SlippageBps  int           `mapstructure:"slippage_bps"`
}

// TokenConfig describes one supported payment token.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Mint     string `mapstructure:"mint"`
	Decimals int    `mapstructure:"decimals"`
}

// SettlementConfig fixes the asset merchants are paid out in and the set of
// tokens customers may pay with.
type SettlementConfig struct {
	Token  TokenConfig   `mapstructure:"token"`
	Tokens []TokenConfig `mapstructure:"tokens"`
}

type StreamConfig struct {
	ObserverBuffer int `mapstructure:"observer_buffer"` // per-observer event buffer
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: TSG_ (Token Settlement Gateway).
// Nested keys use underscore: TSG_DATABASE_HOST, TSG_QUOTE_BASE_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "settlement_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("quote.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("quote.api_key", "")
	v.SetDefault("quote.quote_timeout", "5s")
	v.SetDefault("quote.build_timeout", "15s")
	v.SetDefault("quote.slippage_bps", 50)
	v.SetDefault("settlement.token.symbol", "USDC")
	v.SetDefault("settlement.token.mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	v.SetDefault("settlement.token.decimals", 6)
	v.SetDefault("stream.observer_buffer", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TSG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("TSG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
