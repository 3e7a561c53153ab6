// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package wallet talks to the external wallet provider that owns the keys.
// The dashboard never signs anything itself: it asks the provider for
// accounts and hands it unsigned calls to sign and broadcast.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/danielhkuo/votedeck/contract"
)

// JSON-RPC error codes used by wallet providers (EIP-1193 / EIP-1474)
const (
	codeUserRejected   = 4001
	codeMethodNotFound = -32601
)

var (
	ErrUnavailable = errors.New("wallet is not available")
	ErrRejected    = errors.New("user rejected the request")
	ErrNoAccounts  = errors.New("wallet has no accounts")
)

// Provider is an external wallet that can list accounts and send transactions.
type Provider interface {
	// RequestAccounts asks the wallet for access to its accounts. A browser
	// wallet may prompt the user.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts lists the accounts already exposed, without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	SendTransaction(ctx context.Context, from common.Address, call contract.Call) (common.Hash, error)
}

// RPCProvider is a Provider backed by a JSON-RPC wallet endpoint (a node with
// managed accounts, or a signer exposing the eth namespace).
type RPCProvider struct {
	client *rpc.Client
}

// Dial connects to the wallet endpoint.
func Dial(ctx context.Context, rawURL string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

// RequestAccounts requests access to the wallet's accounts, primary first.
// Providers without eth_requestAccounts fall back to eth_accounts.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	if errorCode(err) == codeMethodNotFound {
		return p.Accounts(ctx)
	}
	return checkAccounts(accounts, err)
}

// Accounts reads eth_accounts, primary first.
func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_accounts")
	return checkAccounts(accounts, err)
}

func checkAccounts(accounts []common.Address, err error) ([]common.Address, error) {
	if err != nil {
		return nil, classify(err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

// SendTransaction asks the wallet to sign and broadcast call from the account.
func (p *RPCProvider) SendTransaction(ctx context.Context, from common.Address, call contract.Call) (common.Hash, error) {
	args := sendTxArgs{From: from, To: call.To, Data: call.Data}
	if call.Value != nil && call.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(new(big.Int).Set(call.Value))
	}

	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify(err)
	}
	return hash, nil
}

func errorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func classify(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == codeUserRejected {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return fmt.Errorf("wallet error: %w", err)
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
