// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DefaultSecondaryManager is the second address allowed to see manager controls.
const DefaultSecondaryManager = "0x153dfef4355E823dCB0FCc76Efe942BefCa86477"

type Config struct {
	Port             int           `env:"PORT" envDefault:"3318"`
	RPCURL           string        `env:"RPC_URL"`
	WalletURL        string        `env:"WALLET_URL"`
	ContractAddress  string        `env:"CONTRACT_ADDRESS"`
	SecondaryManager string        `env:"SECONDARY_MANAGER" envDefault:"0x153dfef4355E823dCB0FCc76Efe942BefCa86477"`
	VotePriceWei     string        `env:"VOTE_PRICE_WEI" envDefault:"10000000000000000"`
	BalanceInterval  time.Duration `env:"BALANCE_INTERVAL" envDefault:"10s"`
	AccountInterval  time.Duration `env:"ACCOUNT_INTERVAL" envDefault:"2s"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"4s"`
	ReceiptTimeout   time.Duration `env:"RECEIPT_TIMEOUT" envDefault:"2m"`
	DatabaseURL      string        `env:"DATABASE_URL" envDefault:"file:votedeck.db"`
	DatabaseType     string        `env:"DATABASE_TYPE" envDefault:"sqlite"`
	MetadataPath     string        `env:"METADATA_PATH"`
	StaticDir        string        `env:"STATIC_DIR"`
	FormSecret       string        `env:"FORM_SECRET"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"text"`
	OTelEndpoint     string        `env:"OTEL_ENDPOINT"`
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored) and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RegisterFlags binds command-line flags to cfg. Current values become the
// flag defaults, so flags override the environment.
func RegisterFlags(flags *pflag.FlagSet, cfg *Config) {
	// Network config
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Server port")
	flags.StringVar(&cfg.RPCURL, "rpc", cfg.RPCURL, "Node JSON-RPC URL (http, ws or ipc)")
	flags.StringVar(&cfg.WalletURL, "wallet", cfg.WalletURL, "Wallet provider JSON-RPC URL (defaults to --rpc)")
	flags.StringVarP(&cfg.ContractAddress, "contract", "c", cfg.ContractAddress, "Voting contract address")
	flags.StringVar(&cfg.SecondaryManager, "secondary-manager", cfg.SecondaryManager, "Secondary manager address")
	flags.StringVar(&cfg.VotePriceWei, "vote-price", cfg.VotePriceWei, "Wei attached to each vote")

	// Refresh loop
	flags.DurationVar(&cfg.BalanceInterval, "balance-interval", cfg.BalanceInterval, "Contract balance refresh interval")
	flags.DurationVar(&cfg.AccountInterval, "account-interval", cfg.AccountInterval, "Wallet account polling interval")
	flags.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Event polling interval when subscriptions are unavailable")
	flags.DurationVar(&cfg.ReceiptTimeout, "receipt-timeout", cfg.ReceiptTimeout, "How long to wait for a transaction receipt")

	// Storage and assets
	flags.StringVarP(&cfg.DatabaseURL, "database-url", "d", cfg.DatabaseURL, "Database URL")
	flags.StringVarP(&cfg.DatabaseType, "database-type", "t", cfg.DatabaseType, "Database type (sqlite or postgres)")
	flags.StringVar(&cfg.MetadataPath, "metadata", cfg.MetadataPath, "Proposal metadata YAML file")
	flags.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory served at /assets/")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.FormSecret, "form-secret", cfg.FormSecret, "Form token secret (prefer env)")

	// Observability
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	flags.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint (empty disables tracing)")
}

// Validate checks the settings every command needs and fills derived defaults.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc URL required (use --rpc or RPC_URL env)")
	}
	if c.WalletURL == "" {
		c.WalletURL = c.RPCURL
	}

	if c.ContractAddress == "" {
		return errors.New("contract address required (use --contract or CONTRACT_ADDRESS env)")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", c.ContractAddress)
	}
	if c.SecondaryManager != "" && !common.IsHexAddress(c.SecondaryManager) {
		return fmt.Errorf("invalid secondary manager address %q", c.SecondaryManager)
	}

	price, ok := new(big.Int).SetString(c.VotePriceWei, 10)
	if !ok || price.Sign() < 0 {
		return fmt.Errorf("invalid vote price %q", c.VotePriceWei)
	}

	for name, d := range map[string]time.Duration{
		"balance interval": c.BalanceInterval,
		"account interval": c.AccountInterval,
		"poll interval":    c.PollInterval,
		"receipt timeout":  c.ReceiptTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database type %q", c.DatabaseType)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	// Secrets - MUST be provided
	if c.FormSecret == "" {
		return errors.New("FORM_SECRET required")
	}
	return nil
}

// Contract returns the parsed contract address.
func (c Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// Secondary returns the secondary manager, or the zero address when unset.
func (c Config) Secondary() common.Address {
	if c.SecondaryManager == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.SecondaryManager)
}

// VotePrice returns the wei attached to each vote.
func (c Config) VotePrice() *big.Int {
	price, ok := new(big.Int).SetString(c.VotePriceWei, 10)
	if !ok {
		return nil
	}
	return price
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// NewLogger builds the process logger described by the config.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
