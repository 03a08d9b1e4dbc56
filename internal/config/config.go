package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultRPCURL      = "https://api.mainnet.abs.xyz"
	DefaultContract    = "0x99Bb83AE9bb0C0A6be865CaCF67760947f91Cb70"
	DefaultTopic0      = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	DefaultMetadataURL = "https://api.cosmo.fans"
	DefaultRedisURL    = "redis://localhost:6379"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Contract        string
	Topic0          string
	FromBlock       uint64
	ToBlock         uint64
	BatchSize       uint64
	Confirmations   uint64
	CatchUpInterval time.Duration
	RetryBackoff    time.Duration
	MaxBackoff      time.Duration

	Listen     string
	QueueSize  int
	RedisURL   string
	HistoryKey string
	MaxHistory int

	DatabaseURL   string
	CutoffEnabled bool

	MetadataURL         string
	MetadataTimeout     time.Duration
	MetadataConcurrency int
	StrictTimestamps    bool

	StreamTopic string
	SentryDSN   string

	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	LogLevel          string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("OBJEKT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// REDIS_URL= (set but empty) selects the in-memory history buffer
	v.AllowEmptyEnv(true)

	// unprefixed names shared with the rest of the deployment
	_ = v.BindEnv("database-url", "OBJEKT_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis-url", "OBJEKT_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("sentry-dsn", "OBJEKT_SENTRY_DSN", "SENTRY_DSN")

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("contract", DefaultContract)
	v.SetDefault("topic0", DefaultTopic0)
	v.SetDefault("batch-size", uint64(1000))
	v.SetDefault("confirmations", uint64(0))
	v.SetDefault("catchup-interval", time.Second)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("max-backoff", 30*time.Second)
	v.SetDefault("listen", ":3001")
	v.SetDefault("queue-size", 64)
	v.SetDefault("redis-url", DefaultRedisURL)
	v.SetDefault("history-key", "transfer:history")
	v.SetDefault("max-history", 50)
	v.SetDefault("cutoff-enabled", false)
	v.SetDefault("metadata-url", DefaultMetadataURL)
	v.SetDefault("metadata-timeout", 10*time.Second)
	v.SetDefault("metadata-concurrency", 8)
	v.SetDefault("strict-timestamps", false)
	v.SetDefault("out", "./data/transfers.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", false)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:              strings.TrimSpace(v.GetString("rpc")),
		Contract:            strings.TrimSpace(v.GetString("contract")),
		Topic0:              strings.TrimSpace(v.GetString("topic0")),
		FromBlock:           v.GetUint64("from"),
		ToBlock:             v.GetUint64("to"),
		BatchSize:           v.GetUint64("batch-size"),
		Confirmations:       v.GetUint64("confirmations"),
		CatchUpInterval:     v.GetDuration("catchup-interval"),
		RetryBackoff:        v.GetDuration("retry-backoff"),
		MaxBackoff:          v.GetDuration("max-backoff"),
		Listen:              v.GetString("listen"),
		QueueSize:           v.GetInt("queue-size"),
		RedisURL:            strings.TrimSpace(v.GetString("redis-url")),
		HistoryKey:          v.GetString("history-key"),
		MaxHistory:          v.GetInt("max-history"),
		DatabaseURL:         strings.TrimSpace(v.GetString("database-url")),
		CutoffEnabled:       v.GetBool("cutoff-enabled"),
		MetadataURL:         strings.TrimSpace(v.GetString("metadata-url")),
		MetadataTimeout:     v.GetDuration("metadata-timeout"),
		MetadataConcurrency: v.GetInt("metadata-concurrency"),
		StrictTimestamps:    v.GetBool("strict-timestamps"),
		StreamTopic:         strings.TrimSpace(v.GetString("stream-topic")),
		SentryDSN:           strings.TrimSpace(v.GetString("sentry-dsn")),
		Out:                 v.GetString("out"),
		Checkpoint:          v.GetString("checkpoint"),
		CheckpointEnabled:   v.GetBool("checkpoint-enabled"),
		LogLevel:            v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.MetadataURL == "" {
		return fmt.Errorf("metadata url is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("max history must be greater than zero")
	}
	return nil
}
