// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/danielhkuo/votedeck/models"
)

//go:embed voting.abi.json
var votingABIJSON string

var votingABI = mustParseABI(votingABIJSON)

var (
	ErrUnknownEvent = errors.New("unknown contract event")
	ErrReverted     = errors.New("transaction reverted")
	ErrOverflow     = errors.New("value does not fit in uint64")
)

// DefaultVotePrice is the value attached to each vote: 0.01 ether.
var DefaultVotePrice = big.NewInt(1e16)

// Backend is the slice of the node API the dashboard needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractCaller
	ethereum.LogFilterer
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to the node's JSON-RPC endpoint (http, ws or ipc).
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node: %w", err)
	}
	return client, nil
}

// ABI returns the parsed voting contract ABI.
func ABI() abi.ABI {
	return votingABI
}

// Call is an unsigned transaction request for the wallet to sign and send.
type Call struct {
	Method string
	To     common.Address
	Data   []byte
	Value  *big.Int
}

// Voting is a read binding to a deployed voting contract.
type Voting struct {
	address   common.Address
	backend   Backend
	bound     *bind.BoundContract
	votePrice *big.Int
}

// New binds the voting ABI to address. A nil votePrice uses DefaultVotePrice.
func New(address common.Address, backend Backend, votePrice *big.Int) *Voting {
	if votePrice == nil {
		votePrice = DefaultVotePrice
	}
	return &Voting{
		address:   address,
		backend:   backend,
		bound:     bind.NewBoundContract(address, votingABI, backend, nil, backend),
		votePrice: new(big.Int).Set(votePrice),
	}
}

func (v *Voting) Address() common.Address {
	return v.address
}

func (v *Voting) Backend() Backend {
	return v.backend
}

// VotePrice returns the wei attached to a single vote.
func (v *Voting) VotePrice() *big.Int {
	return new(big.Int).Set(v.votePrice)
}

func (v *Voting) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := v.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("failed to call %s: empty result", method)
	}
	return out, nil
}

func (v *Voting) Manager(ctx context.Context) (common.Address, error) {
	out, err := v.call(ctx, "manager")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Proposals returns proposal identifiers in contract order.
func (v *Voting) Proposals(ctx context.Context) ([]string, error) {
	out, err := v.call(ctx, "getProposals")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

func (v *Voting) Votes(ctx context.Context, proposal string) (uint64, error) {
	out, err := v.call(ctx, "getVotes", proposal)
	if err != nil {
		return 0, err
	}
	return toUint64(out[0])
}

func (v *Voting) VotingEnded(ctx context.Context) (bool, error) {
	out, err := v.call(ctx, "votingEnded")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (v *Voting) WinningProposal(ctx context.Context) (string, error) {
	out, err := v.call(ctx, "winningProposal")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (v *Voting) RemainingVotes(ctx context.Context, voter common.Address) (uint64, error) {
	out, err := v.call(ctx, "getRemainingVotes", voter)
	if err != nil {
		return 0, err
	}
	return toUint64(out[0])
}

// voteRecord mirrors the tuple components of getVoteHistory.
type voteRecord struct {
	Id       *big.Int
	Proposal string
	Votes    *big.Int
}

func (v *Voting) History(ctx context.Context) ([]models.HistoryEntry, error) {
	out, err := v.call(ctx, "getVoteHistory")
	if err != nil {
		return nil, err
	}
	records := *abi.ConvertType(out[0], new([]voteRecord)).(*[]voteRecord)

	history := make([]models.HistoryEntry, 0, len(records))
	for _, rec := range records {
		id, err := toUint64(rec.Id)
		if err != nil {
			return nil, fmt.Errorf("history id: %w", err)
		}
		votes, err := toUint64(rec.Votes)
		if err != nil {
			return nil, fmt.Errorf("history votes: %w", err)
		}
		history = append(history, models.HistoryEntry{ID: id, Proposal: rec.Proposal, Votes: votes})
	}
	return history, nil
}

func (v *Voting) Destroyed(ctx context.Context) (bool, error) {
	out, err := v.call(ctx, "contractDestroyed")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Balance returns the contract's balance in wei at the latest block.
func (v *Voting) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := v.backend.BalanceAt(ctx, v.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// VoteCall packs vote(proposal, votes) with votes*price attached.
func (v *Voting) VoteCall(proposal string, votes uint64) (Call, error) {
	n := new(big.Int).SetUint64(votes)
	call, err := v.pack("vote", proposal, n)
	if err != nil {
		return Call{}, err
	}
	call.Value = new(big.Int).Mul(n, v.votePrice)
	return call, nil
}

func (v *Voting) EndVotingCall() (Call, error) {
	return v.pack("endVoting")
}

func (v *Voting) WithdrawCall() (Call, error) {
	return v.pack("withdraw")
}

func (v *Voting) ResetVotingCall() (Call, error) {
	return v.pack("resetVoting")
}

func (v *Voting) ChangeOwnerCall(newOwner common.Address) (Call, error) {
	return v.pack("changeOwner", newOwner)
}

func (v *Voting) DestroyCall() (Call, error) {
	return v.pack("destroyContract")
}

func (v *Voting) pack(method string, args ...interface{}) (Call, error) {
	data, err := votingABI.Pack(method, args...)
	if err != nil {
		return Call{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return Call{Method: method, To: v.address, Data: data, Value: new(big.Int)}, nil
}

func toUint64(value interface{}) (uint64, error) {
	n, ok := value.(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("unexpected value type %T", value)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, n)
	}
	return n.Uint64(), nil
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid voting ABI: %v", err))
	}
	return parsed
}
