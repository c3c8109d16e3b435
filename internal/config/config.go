// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	RPCURL     string `mapstructure:"rpc_url"`
	PrivateKey string `mapstructure:"private_key"`

	Pool     string  `mapstructure:"pool"`
	BaseMint string  `mapstructure:"base_mint"`
	SpendSOL float64 `mapstructure:"spend_sol"`
	Slippage float64 `mapstructure:"slippage"`

	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`

	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	MaxAttempts    uint          `mapstructure:"max_attempts"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed"`

	LogFile     string `mapstructure:"log_file"`
	Debug       bool   `mapstructure:"debug"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

const (
	EnvPrefix = "SOLANA_BOT"
	// legacyRPCEnv is the variable name used by the original scripts.
	legacyRPCEnv = "SOLANA_NODE_RPC_ENDPOINT"

	DefaultRPCURL           = "https://api.mainnet-beta.solana.com"
	DefaultSlippage         = 0.05
	DefaultComputeUnitLimit = 150_000
	DefaultComputeUnitPrice = 6_666_666
	DefaultRateLimitRPS     = 10
	DefaultRPCTimeout       = 10 * time.Second
	DefaultConfirmTimeout   = 30 * time.Second
	DefaultMaxAttempts      = 3
	DefaultMaxElapsed       = 15 * time.Second
	DefaultLogFile          = "pumpswap-bot.log"
)

// Load читает конфигурацию: .env, значения по умолчанию, файл (если задан),
// переменные окружения SOLANA_BOT_*, затем флаги. Каждый следующий источник
// переопределяет предыдущий.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":            DefaultRPCURL,
		"private_key":        "",
		"pool":               "",
		"base_mint":          "",
		"spend_sol":          0.0,
		"slippage":           DefaultSlippage,
		"compute_unit_limit": DefaultComputeUnitLimit,
		"compute_unit_price": DefaultComputeUnitPrice,
		"rate_limit_rps":     DefaultRateLimitRPS,
		"rpc_timeout":        DefaultRPCTimeout,
		"confirm_timeout":    DefaultConfirmTimeout,
		"max_attempts":       DefaultMaxAttempts,
		"max_elapsed":        DefaultMaxElapsed,
		"log_file":           DefaultLogFile,
		"debug":              false,
		"metrics_addr":       "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	loadEnvironmentVariables(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if os.Getenv(EnvPrefix+"_RPC_URL") == "" {
		if legacy := strings.TrimSpace(os.Getenv(legacyRPCEnv)); legacy != "" {
			v.Set("rpc_url", legacy)
		}
	}
}

// bindFlags binds only flags the user set, so unset flags never mask
// values from the file or the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || !f.Changed {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// Validate проверяет общие параметры подключения.
func (cfg *Config) Validate() error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.RateLimitRPS < 0 {
		return errors.New("invalid rate_limit_rps")
	}
	if cfg.RPCTimeout < 0 || cfg.ConfirmTimeout < 0 || cfg.MaxElapsed < 0 {
		return errors.New("timeouts must not be negative")
	}
	if cfg.ComputeUnitLimit == 0 {
		return errors.New("invalid compute_unit_limit")
	}
	if cfg.MaxAttempts == 0 {
		return errors.New("invalid max_attempts")
	}
	if cfg.LogFile == "" {
		return errors.New("log_file is empty")
	}
	return nil
}

// ValidateTrade проверяет параметры покупки.
func (cfg *Config) ValidateTrade() error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.PrivateKey == "" {
		return errors.New("private_key is empty")
	}
	if cfg.Pool == "" && cfg.BaseMint == "" {
		return errors.New("either pool or base_mint is required")
	}
	if _, err := cfg.PoolAddress(); err != nil {
		return err
	}
	if _, err := cfg.BaseMintAddress(); err != nil {
		return err
	}
	if cfg.SpendSOL <= 0 {
		return errors.New("spend_sol must be positive")
	}
	if cfg.Slippage < 0 || cfg.Slippage >= 1 {
		return errors.New("slippage must be in [0, 1)")
	}
	return nil
}

// PoolAddress возвращает адрес пула или нулевой ключ, если он не задан.
func (cfg *Config) PoolAddress() (solana.PublicKey, error) {
	return optionalKey("pool", cfg.Pool)
}

// BaseMintAddress возвращает mint токена или нулевой ключ, если он не задан.
func (cfg *Config) BaseMintAddress() (solana.PublicKey, error) {
	return optionalKey("base_mint", cfg.BaseMint)
}

func optionalKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return key, nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
