package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig     `mapstructure:"http"`
	Log        LogConfig      `mapstructure:"log"`
	Network    string         `mapstructure:"network"` // "mainnet" | "testnet"
	MySQL      DatabaseConfig `mapstructure:"mysql"`
	ClickHouse DatabaseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	Provider   ProviderConfig `mapstructure:"provider"`
	Wallet     WalletConfig   `mapstructure:"wallet"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Archiver   ArchiverConfig `mapstructure:"archiver"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	AdminAPIKey string `mapstructure:"admin_api_key"` // guards /v1 reports
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"`
}

// ProviderConfig points at the custodial wallet provider for the configured
// network. One provider per process; the network tag is threaded from here
// into every component that touches chain state.
type ProviderConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	WalletPath   string        `mapstructure:"wallet_path"`
	BalancePath  string        `mapstructure:"balance_path"`
	TransferPath string        `mapstructure:"transfer_path"`
	TimeoutMs    int           `mapstructure:"timeout_ms"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

type WalletConfig struct {
	KeySecret string `mapstructure:"key_secret"` // 32 bytes, AES-256 key material
	FeeMargin string `mapstructure:"fee_margin"` // decimal, USDC reserved for fees
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"` // per phone number on /ussd
}

type ArchiverConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies
// env overrides (CRYPTOFONO_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (CRYPTOFONO_*)
	v.SetEnvPrefix("CRYPTOFONO")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return Config{}, fmt.Errorf("config: unknown network %q", cfg.Network)
	}
	return cfg, nil
}
