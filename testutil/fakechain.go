// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/danielhkuo/votedeck/contract"
)

// Well-known test addresses
var (
	ContractAddress  = common.HexToAddress("0x00000000000000000000000000000000000c0de5")
	ManagerAddress   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	SecondaryAddress = common.HexToAddress("0x153dfef4355E823dCB0FCc76Efe942BefCa86477")
	VoterAddress     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	OtherVoter       = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// DefaultAllowance is the per-account vote allowance of the fake contract.
const DefaultAllowance = 5

type historyRecord struct {
	Id       *big.Int
	Proposal string
	Votes    *big.Int
}

// FakeChain is an in-memory node, wallet and voting contract. It speaks the
// real voting ABI so bindings are exercised end to end.
type FakeChain struct {
	mu  sync.Mutex
	abi abi.ABI

	manager   common.Address
	secondary common.Address
	proposals []string
	votes     map[string]uint64
	spent     map[common.Address]uint64
	ended     bool
	winner    string
	balance   *big.Int
	history   []historyRecord
	destroyed bool
	noCode    bool
	price     *big.Int

	accounts []common.Address
	nonce    uint64
	block    uint64
	logs     []types.Log
	receipts map[common.Hash]*types.Receipt

	subscribe bool
	subs      []chan<- types.Log

	// Failure injection
	CallErr     error
	AccountsErr error
	SendErr     error

	calls    int
	requests int
}

// NewFakeChain deploys a fake contract managed by ManagerAddress with the given proposals.
// The wallet exposes VoterAddress, ManagerAddress and OtherVoter.
func NewFakeChain(proposals ...string) *FakeChain {
	return &FakeChain{
		abi:       contract.ABI(),
		manager:   ManagerAddress,
		secondary: SecondaryAddress,
		proposals: append([]string(nil), proposals...),
		votes:     make(map[string]uint64),
		spent:     make(map[common.Address]uint64),
		balance:   new(big.Int),
		price:     new(big.Int).Set(contract.DefaultVotePrice),
		accounts:  []common.Address{VoterAddress, ManagerAddress, OtherVoter},
		block:     100,
		receipts:  make(map[common.Hash]*types.Receipt),
	}
}

// EnableSubscriptions makes SubscribeFilterLogs succeed instead of reporting
// notifications as unsupported.
func (f *FakeChain) EnableSubscriptions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribe = true
}

// SetAccounts replaces the accounts the wallet reports, primary first.
func (f *FakeChain) SetAccounts(accounts ...common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append([]common.Address(nil), accounts...)
}

// SelfDestruct removes the contract code so calls return no data.
func (f *FakeChain) SelfDestruct() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noCode = true
}

// AdvanceBlocks mines empty blocks.
func (f *FakeChain) AdvanceBlocks(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block += n
}

// Calls returns the number of contract reads served.
func (f *FakeChain) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Balance returns the contract balance held by the fake.
func (f *FakeChain) Balance() *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance)
}

// Backend

func (f *FakeChain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noCode || account != ContractAddress {
		return nil, nil
	}
	return []byte{0x60, 0x80}, nil
}

func (f *FakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.CallErr != nil {
		return nil, f.CallErr
	}
	if f.noCode || msg.To == nil || *msg.To != ContractAddress {
		return nil, nil
	}
	if len(msg.Data) < 4 {
		return nil, errors.New("execution reverted: missing selector")
	}
	method, err := f.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "manager":
		return method.Outputs.Pack(f.manager)
	case "getProposals":
		return method.Outputs.Pack(append([]string{}, f.proposals...))
	case "getVotes":
		return method.Outputs.Pack(new(big.Int).SetUint64(f.votes[args[0].(string)]))
	case "votingEnded":
		return method.Outputs.Pack(f.ended)
	case "winningProposal":
		return method.Outputs.Pack(f.winner)
	case "getRemainingVotes":
		return method.Outputs.Pack(new(big.Int).SetUint64(f.remaining(args[0].(common.Address))))
	case "getVoteHistory":
		return method.Outputs.Pack(append([]historyRecord{}, f.history...))
	case "contractDestroyed":
		return method.Outputs.Pack(f.destroyed)
	}
	return nil, fmt.Errorf("execution reverted: %s is not a view", method.Name)
}

func (f *FakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CallErr != nil {
		return nil, f.CallErr
	}
	if account != ContractAddress {
		return new(big.Int), nil
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *FakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, nil
}

func (f *FakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *FakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Log
	for _, log := range f.logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if !matchQuery(q, log) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (f *FakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.subscribe {
		return nil, rpc.ErrNotificationsUnsupported
	}
	f.subs = append(f.subs, ch)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, sub := range f.subs {
			if sub == ch {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				break
			}
		}
		return nil
	}), nil
}

func matchQuery(q ethereum.FilterQuery, log types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == log.Address {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
		found := false
		for _, topic := range q.Topics[0] {
			if len(log.Topics) > 0 && topic == log.Topics[0] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Wallet

// RequestAccounts reports the wallet accounts and counts the request.
func (f *FakeChain) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
	return f.Accounts(ctx)
}

// AccountRequests returns how many times RequestAccounts was called.
func (f *FakeChain) AccountRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeChain) Accounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccountsErr != nil {
		return nil, f.AccountsErr
	}
	return append([]common.Address(nil), f.accounts...), nil
}

// SendTransaction executes call from the given account and mines it in its own block.
func (f *FakeChain) SendTransaction(ctx context.Context, from common.Address, call contract.Call) (common.Hash, error) {
	f.mu.Lock()

	if f.SendErr != nil {
		f.mu.Unlock()
		return common.Hash{}, f.SendErr
	}

	f.nonce++
	f.block++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%d", from.Hex(), f.nonce)))

	logs, err := f.execute(from, call, hash)
	status := types.ReceiptStatusSuccessful
	if err != nil {
		status = types.ReceiptStatusFailed
		logs = nil
	}
	f.logs = append(f.logs, logs...)
	f.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(f.block),
		Logs:        toPointers(logs),
	}
	subs := append([]chan<- types.Log(nil), f.subs...)
	f.mu.Unlock()

	for _, log := range logs {
		for _, sub := range subs {
			select {
			case sub <- log:
			case <-ctx.Done():
				return hash, nil
			}
		}
	}
	return hash, nil
}

func (f *FakeChain) execute(from common.Address, call contract.Call, hash common.Hash) ([]types.Log, error) {
	if f.noCode || call.To != ContractAddress {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, errors.New("missing selector")
	}
	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	var logs []types.Log
	emit := func(name string, indexed []common.Hash, data ...interface{}) {
		ev := f.abi.Events[name]
		packed, err := ev.Inputs.NonIndexed().Pack(data...)
		if err != nil {
			panic(fmt.Sprintf("fake chain: pack %s: %v", name, err))
		}
		logs = append(logs, types.Log{
			Address:     ContractAddress,
			Topics:      append([]common.Hash{ev.ID}, indexed...),
			Data:        packed,
			BlockNumber: f.block,
			TxHash:      hash,
			Index:       uint(len(f.logs) + len(logs)),
		})
	}

	if f.destroyed {
		return nil, errors.New("contract destroyed")
	}
	isManager := from == f.manager || from == f.secondary

	switch method.Name {
	case "vote":
		proposal := args[0].(string)
		n := args[1].(*big.Int).Uint64()
		if f.ended || isManager || n == 0 || f.remaining(from) < n || !f.hasProposal(proposal) {
			return nil, errors.New("vote rejected")
		}
		want := new(big.Int).Mul(args[1].(*big.Int), f.price)
		if call.Value == nil || call.Value.Cmp(want) != 0 {
			return nil, errors.New("wrong value")
		}
		f.votes[proposal] += n
		f.spent[from] += n
		f.balance.Add(f.balance, call.Value)
		f.history = append(f.history, historyRecord{
			Id:       big.NewInt(int64(len(f.history) + 1)),
			Proposal: proposal,
			Votes:    new(big.Int).SetUint64(n),
		})
		emit("VoteCast", []common.Hash{addressTopic(from)}, proposal, new(big.Int).SetUint64(n))
	case "endVoting":
		if !isManager || f.ended {
			return nil, errors.New("end voting rejected")
		}
		f.ended = true
		f.winner = ""
		var best uint64
		for i, p := range f.proposals {
			if i == 0 || f.votes[p] > best {
				f.winner, best = p, f.votes[p]
			}
		}
		emit("VotingEnded", nil, f.winner)
		emit("WinnerDeclared", nil, f.winner, new(big.Int).SetUint64(best))
	case "withdraw":
		if !isManager {
			return nil, errors.New("withdraw rejected")
		}
		f.balance = new(big.Int)
	case "resetVoting":
		if !isManager || !f.ended {
			return nil, errors.New("reset rejected")
		}
		f.ended = false
		f.winner = ""
		f.votes = make(map[string]uint64)
		f.spent = make(map[common.Address]uint64)
		emit("VotingReset", nil)
	case "changeOwner":
		if !isManager || !f.ended {
			return nil, errors.New("change owner rejected")
		}
		newOwner := args[0].(common.Address)
		old := f.manager
		f.manager = newOwner
		emit("OwnerChanged", []common.Hash{addressTopic(old), addressTopic(newOwner)})
	case "destroyContract":
		if !isManager || !f.ended {
			return nil, errors.New("destroy rejected")
		}
		f.destroyed = true
		f.balance = new(big.Int)
		emit("ContractDestroyed", nil)
	default:
		return nil, fmt.Errorf("%s is a view", method.Name)
	}
	return logs, nil
}

func (f *FakeChain) remaining(account common.Address) uint64 {
	spent := f.spent[account]
	if spent >= DefaultAllowance {
		return 0
	}
	return DefaultAllowance - spent
}

func (f *FakeChain) hasProposal(proposal string) bool {
	for _, p := range f.proposals {
		if p == proposal {
			return true
		}
	}
	return false
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func toPointers(logs []types.Log) []*types.Log {
	out := make([]*types.Log, len(logs))
	for i := range logs {
		out[i] = &logs[i]
	}
	return out
}
