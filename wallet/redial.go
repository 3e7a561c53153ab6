// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votedeck/contract"
)

// Redialer is a Provider for an endpoint that may not be reachable yet. It
// dials on first use and again on every call until a dial succeeds.
type Redialer struct {
	url string

	mu     sync.Mutex
	client *RPCProvider
}

func NewRedialer(rawURL string) *Redialer {
	return &Redialer{url: rawURL}
}

func (r *Redialer) provider(ctx context.Context) (*RPCProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	client, err := Dial(ctx, r.url)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

func (r *Redialer) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p, err := r.provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.RequestAccounts(ctx)
}

func (r *Redialer) Accounts(ctx context.Context) ([]common.Address, error) {
	p, err := r.provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.Accounts(ctx)
}

func (r *Redialer) SendTransaction(ctx context.Context, from common.Address, call contract.Call) (common.Hash, error) {
	p, err := r.provider(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return p.SendTransaction(ctx, from, call)
}

// Close closes the underlying connection, if one was made.
func (r *Redialer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}
