// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package watch delivers voting contract events in chain order.
//
// Logs are always read with FilterLogs over block ranges starting at a
// cursor, so delivery is ordered and resumable. A log subscription, when the
// node supports one, only wakes the watcher up; otherwise it polls.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/votedeck/contract"
)

var tracer = otel.Tracer("github.com/danielhkuo/votedeck/watch")

// Source is the node API the watcher reads from.
type Source interface {
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// Cursor persists the last block whose events were delivered.
type Cursor interface {
	LoadCursor(ctx context.Context, contract string) (uint64, bool, error)
	SaveCursor(ctx context.Context, contract string, block uint64) error
}

// Handler receives each decoded event.
type Handler func(ctx context.Context, ev contract.Event)

type Config struct {
	PollInterval time.Duration
	// MaxRange caps the blocks covered by one FilterLogs request.
	MaxRange uint64
	// MaxRetryInterval caps the backoff between failed attempts.
	MaxRetryInterval time.Duration
}

type Watcher struct {
	voting *contract.Voting
	source Source
	cursor Cursor
	cfg    Config

	next atomic.Uint64
}

// New creates a watcher. cursor may be nil, in which case watching starts at
// the chain head on every run.
func New(voting *contract.Voting, source Source, cursor Cursor, cfg Config) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 4 * time.Second
	}
	if cfg.MaxRange == 0 {
		cfg.MaxRange = 2000
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = 30 * time.Second
	}
	return &Watcher{voting: voting, source: source, cursor: cursor, cfg: cfg}
}

// Next returns the next block the watcher will scan.
func (w *Watcher) Next() uint64 {
	return w.next.Load()
}

// Run delivers events to handle until ctx is done. Errors from the node are
// retried with exponential backoff; only a failure to find the start block
// is returned.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	start, err := w.startBlock(ctx)
	if err != nil {
		return err
	}
	w.next.Store(start)
	slog.Info("event watcher started", "contract", w.voting.Address().Hex(), "from_block", start)

	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = w.cfg.MaxRetryInterval
	if retry.InitialInterval > retry.MaxInterval {
		retry.InitialInterval = retry.MaxInterval
	}
	for {
		err := w.follow(ctx, handle, retry)
		if ctx.Err() != nil {
			return nil
		}

		wait := retry.NextBackOff()
		slog.Warn("event watcher interrupted", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (w *Watcher) startBlock(ctx context.Context) (uint64, error) {
	if w.cursor != nil {
		block, ok, err := w.cursor.LoadCursor(ctx, w.voting.Address().Hex())
		if err != nil {
			return 0, err
		}
		if ok {
			return block + 1, nil
		}
	}

	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get head block: %w", err)
	}
	return head + 1, nil
}

// follow catches up, then waits for wake-ups until something fails.
func (w *Watcher) follow(ctx context.Context, handle Handler, retry *backoff.ExponentialBackOff) error {
	if err := w.CatchUp(ctx, handle); err != nil {
		return err
	}

	wake := make(chan types.Log, 64)
	sub, err := w.source.SubscribeFilterLogs(ctx, w.voting.FilterQuery(nil, nil), wake)
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		retry.Reset()
		return w.poll(ctx, handle, retry)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()
	retry.Reset()

	// Anything mined between the catch-up and the subscription
	if err := w.CatchUp(ctx, handle); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription ended: %w", err)
		case <-wake:
			if err := w.CatchUp(ctx, handle); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, handle Handler, retry *backoff.ExponentialBackOff) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.CatchUp(ctx, handle); err != nil {
				return err
			}
			retry.Reset()
		}
	}
}

// CatchUp delivers every event from the cursor to the current head.
func (w *Watcher) CatchUp(ctx context.Context, handle Handler) error {
	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get head block: %w", err)
	}

	for from := w.next.Load(); from <= head; from = w.next.Load() {
		to := from + w.cfg.MaxRange - 1
		if to > head {
			to = head
		}
		if err := w.scan(ctx, from, to, handle); err != nil {
			return err
		}
		w.next.Store(to + 1)
	}
	return nil
}

func (w *Watcher) scan(ctx context.Context, from, to uint64, handle Handler) error {
	ctx, span := tracer.Start(ctx, "watch.scan", trace.WithAttributes(
		attribute.Int64("block.from", int64(from)),
		attribute.Int64("block.to", int64(to)),
	))
	defer span.End()

	query := w.voting.FilterQuery(new(big.Int).SetUint64(from), new(big.Int).SetUint64(to))
	logs, err := w.source.FilterLogs(ctx, query)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to filter logs %d-%d: %w", from, to, err)
	}
	span.SetAttributes(attribute.Int("logs", len(logs)))

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	for _, log := range logs {
		if log.Removed {
			continue
		}
		ev, err := w.voting.DecodeEvent(log)
		if err != nil {
			slog.Warn("skipping undecodable log", "tx", log.TxHash.Hex(), "index", log.Index, "error", err)
			continue
		}
		handle(ctx, ev)
	}

	if w.cursor != nil {
		if err := w.cursor.SaveCursor(ctx, w.voting.Address().Hex(), to); err != nil {
			slog.Warn("failed to save event cursor", "block", to, "error", err)
		}
	}
	return nil
}
