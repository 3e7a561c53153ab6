// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db stores the dashboard's activity log.

The contract is the source of truth for voting state; this database only keeps
what the dashboard itself observed or did, so the activity page survives
restarts and the event watcher can resume where it stopped.

# Opening

Open accepts "sqlite" (modernc.org/sqlite, pure Go) or "postgres" (lib/pq):

	conn, err := db.Open("sqlite", "file:votedeck.db")
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call CreateSchema multiple times - uses IF NOT EXISTS.

# Tables

  - contract_event: decoded contract logs, unique per (tx_hash, log_index)
  - tx_submission: transactions sent through the wallet and their outcome
  - sync_cursor: last block whose events were delivered, per contract

Timestamps are written explicitly in UTC so the schema stays portable between
both drivers.
*/
package db
