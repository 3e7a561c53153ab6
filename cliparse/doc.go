// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

Load reads .env and the environment; RegisterFlags binds the flags of a
cobra command to the result, so parsed flags override the environment:

	cfg, err := cliparse.Load()
	cliparse.RegisterFlags(rootCmd.PersistentFlags(), &cfg)
	// after flag parsing
	err = cfg.Validate()
	err = cfg.ValidateServer() // serve only

# Sources

Values are resolved in this order, later sources winning:

  - defaults (envDefault tags)
  - .env file (joho/godotenv; never overrides the real environment)
  - environment variables (caarlos0/env)
  - CLI flags

# Config Fields

  - Port (-p, PORT): server port (default: 3318)
  - RPCURL (--rpc, RPC_URL): node JSON-RPC URL (required)
  - WalletURL (--wallet, WALLET_URL): wallet provider URL (default: RPCURL)
  - ContractAddress (-c, CONTRACT_ADDRESS): voting contract (required)
  - SecondaryManager (--secondary-manager, SECONDARY_MANAGER)
  - VotePriceWei (--vote-price, VOTE_PRICE_WEI): default 0.01 ether
  - BalanceInterval, AccountInterval, PollInterval, ReceiptTimeout
  - DatabaseURL (-d), DatabaseType (-t): activity store
  - MetadataPath, StaticDir
  - FormSecret (--form-secret, FORM_SECRET): required by the server
  - LogLevel, LogFormat, OTelEndpoint

# Validation

Validate checks what every command needs (node, contract, price, intervals,
logging). ValidateServer adds the port, database and FORM_SECRET checks.
*/
package cliparse
