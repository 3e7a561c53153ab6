// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptPollInterval is how often WaitMined asks the node for a receipt.
var ReceiptPollInterval = time.Second

// ReceiptSource is the part of Backend needed to wait for a transaction.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitMined blocks until the transaction is mined or timeout elapses.
// A mined transaction with failed status returns the receipt and ErrReverted.
func WaitMined(ctx context.Context, source ReceiptSource, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		receipt, err := source.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return receipt, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(ReceiptPollInterval)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s: %w", hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return receipt, nil
}
