// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open opens a database of the given type and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	driver := strings.ToLower(dbType)
	switch driver {
	case TypeSQLite, TypePostgres:
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == TypeSQLite {
		// sqlite serializes writers; one connection also keeps :memory: databases shared
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Observed contract events
CREATE TABLE IF NOT EXISTS contract_event (
    id TEXT PRIMARY KEY,
    contract_address TEXT NOT NULL,
    kind TEXT NOT NULL,
    block_number BIGINT NOT NULL,
    tx_hash TEXT NOT NULL,
    log_index BIGINT NOT NULL,
    summary TEXT NOT NULL,
    observed_at TIMESTAMP NOT NULL,
    UNIQUE (tx_hash, log_index)
);

CREATE INDEX IF NOT EXISTS idx_contract_event_block ON contract_event(contract_address, block_number);

-- Transactions sent through the wallet
CREATE TABLE IF NOT EXISTS tx_submission (
    id TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    account TEXT NOT NULL,
    tx_hash TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'failed')),
    error TEXT,
    submitted_at TIMESTAMP NOT NULL,
    settled_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tx_submission_submitted ON tx_submission(submitted_at);

-- Last block whose events were delivered, per contract
CREATE TABLE IF NOT EXISTS sync_cursor (
    contract_address TEXT PRIMARY KEY,
    block_number BIGINT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
