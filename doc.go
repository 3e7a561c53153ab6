// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the votedeck dashboard.

votedeck is a web dashboard for a deployed voting contract. It shows the
contract's state for the wallet's current account and submits votes and
manager actions through the wallet. The page refreshes when the contract
emits an event.

# Commands

	votedeck [serve]          - Run the dashboard server (default)
	votedeck status [--json]  - Connect, fetch once, print the snapshot
	votedeck accounts         - List wallet accounts

# Starting the Server

Settings come from the environment (a .env file is read when present) and
can be overridden with flags:

	RPC_URL=ws://localhost:8545 CONTRACT_ADDRESS=0x... FORM_SECRET=... go run .

Or with flags:

	go run . serve -p 3318 --rpc ws://localhost:8545 -c 0x...

# Configuration

Required settings:

  - RPC_URL (--rpc): Node JSON-RPC URL
  - CONTRACT_ADDRESS (-c): Voting contract address
  - FORM_SECRET (--form-secret): Secret for form tokens (serve only)

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - WALLET_URL (--wallet): Wallet endpoint (default: RPC_URL)
  - DATABASE_TYPE / DATABASE_URL: Activity store (default: sqlite file:votedeck.db)
  - OTEL_ENDPOINT: OTLP/HTTP trace endpoint

See package cliparse for the full list.

# Architecture

  - contract: ABI binding, event decoding, receipt polling
  - wallet: Account listing and transaction submission
  - dashboard: State snapshot, permissions, commands, event handling
  - watch: Event subscription with a persisted block cursor
  - db: Activity store (events, submissions, cursor)
  - meta: Proposal metadata catalog
  - views: Page rendering
  - handlers, router, middleware: HTTP surface
  - telemetry: Tracing setup
  - cliparse, auth, models: Configuration, form tokens, shared types

The server runs the watcher, the dashboard's polling loops, the metadata
watcher and the HTTP server together and stops them all on SIGINT or SIGTERM.
*/
package main
