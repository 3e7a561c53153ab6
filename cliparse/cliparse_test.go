// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

const testContract = "0x00000000000000000000000000000000000c0de5"

// parseArgs resolves a server config the way the serve command does.
func parseArgs(args []string) (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}

	flags := pflag.NewFlagSet("votedeck", pflag.ContinueOnError)
	RegisterFlags(flags, &cfg)
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("CONTRACT_ADDRESS", testContract)
	t.Setenv("FORM_SECRET", "test-secret")
}

func TestServerConfig_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BALANCE_INTERVAL", "30s")

	cfg, err := parseArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.BalanceInterval != 30*time.Second {
		t.Errorf("expected balance interval 30s, got %s", cfg.BalanceInterval)
	}
	if cfg.Contract() != common.HexToAddress(testContract) {
		t.Errorf("unexpected contract %s", cfg.Contract().Hex())
	}
}

func TestServerConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := parseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.WalletURL != cfg.RPCURL {
		t.Errorf("wallet URL should default to rpc URL, got %q", cfg.WalletURL)
	}
	if cfg.Secondary() != common.HexToAddress(DefaultSecondaryManager) {
		t.Errorf("unexpected secondary manager %s", cfg.Secondary().Hex())
	}
	if cfg.VotePrice().String() != "10000000000000000" {
		t.Errorf("unexpected vote price %s", cfg.VotePrice())
	}
	if cfg.BalanceInterval != 10*time.Second {
		t.Errorf("expected balance interval 10s, got %s", cfg.BalanceInterval)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.DatabaseType)
	}
}

func TestServerConfig_CLIOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := parseArgs([]string{"-p", "8080", "-d", "file:test.db", "--form-secret", "s1", "--wallet", "http://wallet:8545"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.FormSecret != "s1" {
		t.Errorf("expected form secret from CLI, got %q", cfg.FormSecret)
	}
	if cfg.WalletURL != "http://wallet:8545" {
		t.Errorf("unexpected wallet URL %q", cfg.WalletURL)
	}
}

func TestServerConfig_Required(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{"rpc", "RPC_URL", "rpc URL required"},
		{"contract", "CONTRACT_ADDRESS", "contract address required"},
		{"secret", "FORM_SECRET", "FORM_SECRET required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := parseArgs(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad contract", []string{"--contract", "not-an-address"}},
		{"bad secondary", []string{"--secondary-manager", "0x123"}},
		{"bad price", []string{"--vote-price", "ten"}},
		{"negative price", []string{"--vote-price", "-1"}},
		{"zero interval", []string{"--balance-interval", "0s"}},
		{"bad db type", []string{"-t", "mysql"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"bad log format", []string{"--log-format", "xml"}},
		{"bad port", []string{"-p", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			if _, err := parseArgs(tt.args); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "RPC_URL=ws://node:8546\nCONTRACT_ADDRESS=" + testContract + "\nLOG_FORMAT=json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set
	t.Setenv("RPC_URL", "")
	os.Unsetenv("RPC_URL")
	t.Setenv("CONTRACT_ADDRESS", "")
	os.Unsetenv("CONTRACT_ADDRESS")
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RPCURL != "ws://node:8546" {
		t.Errorf("unexpected rpc URL %q", cfg.RPCURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("unexpected log format %q", cfg.LogFormat)
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %s", out)
	}
}
