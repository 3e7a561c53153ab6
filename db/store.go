// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedeck/models"
)

// Store persists the dashboard's activity log and event cursor.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordEvent stores an observed event. Re-delivering the same log is a no-op.
func (s *Store) RecordEvent(ctx context.Context, ev models.ContractEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_event (id, contract_address, kind, block_number, tx_hash, log_index, summary, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, ev.ID, strings.ToLower(ev.Contract), ev.Kind, int64(ev.BlockNumber), ev.TxHash, int64(ev.LogIndex), ev.Summary, ev.ObservedAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.ContractEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_address, kind, block_number, tx_hash, log_index, summary, observed_at
		FROM contract_event
		ORDER BY block_number DESC, log_index DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.ContractEvent{}
	for rows.Next() {
		var ev models.ContractEvent
		var block, index int64
		if err := rows.Scan(&ev.ID, &ev.Contract, &ev.Kind, &block, &ev.TxHash, &index, &ev.Summary, &ev.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.BlockNumber = uint64(block)
		ev.LogIndex = uint(index)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordSubmission stores a newly sent transaction and returns its id.
func (s *Store) RecordSubmission(ctx context.Context, sub models.Submission) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = models.SubmissionPending
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tx_submission (id, action, account, tx_hash, status, error, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sub.ID, sub.Action, strings.ToLower(sub.Account), sub.TxHash, sub.Status, nullString(sub.Error), sub.SubmittedAt)
	if err != nil {
		return "", fmt.Errorf("failed to record submission: %w", err)
	}
	return sub.ID, nil
}

// SettleSubmission marks a submission confirmed or failed.
func (s *Store) SettleSubmission(ctx context.Context, id, status, errText string) error {
	if status != models.SubmissionConfirmed && status != models.SubmissionFailed {
		return fmt.Errorf("invalid settle status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tx_submission
		SET status = $1, error = $2, settled_at = $3
		WHERE id = $4
	`, status, nullString(errText), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to settle submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecentSubmissions returns the newest submissions first.
func (s *Store) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, account, tx_hash, status, error, submitted_at, settled_at
		FROM tx_submission
		ORDER BY submitted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		var sub models.Submission
		var errText sql.NullString
		var settled sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.Action, &sub.Account, &sub.TxHash, &sub.Status, &errText, &sub.SubmittedAt, &settled); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		sub.Error = errText.String
		if settled.Valid {
			t := settled.Time
			sub.SettledAt = &t
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// LoadCursor returns the last delivered block for a contract.
func (s *Store) LoadCursor(ctx context.Context, contract string) (uint64, bool, error) {
	var block int64
	err := s.db.QueryRowContext(ctx, `
		SELECT block_number FROM sync_cursor WHERE contract_address = $1
	`, strings.ToLower(contract)).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load cursor: %w", err)
	}
	return uint64(block), true, nil
}

// SaveCursor records the last delivered block for a contract.
func (s *Store) SaveCursor(ctx context.Context, contract string, block uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursor (contract_address, block_number, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_address) DO UPDATE SET block_number = excluded.block_number, updated_at = excluded.updated_at
	`, strings.ToLower(contract), int64(block), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
