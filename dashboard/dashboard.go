// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/votedeck/contract"
	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/wallet"
)

var tracer = otel.Tracer("github.com/danielhkuo/votedeck/dashboard")

// Status messages shown to the user
const (
	MsgWalletUnavailable = "Wallet is not available"
	MsgRejected          = "User rejected the connection request"
	MsgConnectFailed     = "Could not connect to the wallet"
	MsgLoadFailed        = "Could not load contract state"
	MsgWaiting           = "Waiting on transaction success..."
	MsgTxFailed          = "Transaction failed!"
	MsgWithdrawFailed    = "Withdrawal failed!"
	MsgResetFailed       = "Reset voting failed!"
	MsgVotingEnded       = "Voting ended successfully!"
	MsgWithdrawn         = "Withdrawal successful!"
	MsgVotingReset       = "Voting reset successfully!"
	MsgDestroyed         = "Contract destroyed successfully!"
	MsgAccountChanged    = "Account changed; reload the page"
	MsgNotConnected      = "Connect a wallet first"
	MsgNotAllowed        = "That action is not available right now"
)

var (
	ErrNotConnected = errors.New("wallet is not connected")
	ErrNotAllowed   = errors.New("action is not allowed in the current state")
	ErrInvalidInput = errors.New("invalid input")
	ErrTxFailed     = errors.New("transaction failed")
)

// Activity records what the dashboard observes and sends.
type Activity interface {
	RecordEvent(ctx context.Context, ev models.ContractEvent) error
	RecordSubmission(ctx context.Context, sub models.Submission) (string, error)
	SettleSubmission(ctx context.Context, id, status, errText string) error
}

type Config struct {
	SecondaryManager common.Address
	BalanceInterval  time.Duration
	AccountInterval  time.Duration
	ReceiptTimeout   time.Duration
}

type Dashboard struct {
	voting   *contract.Voting
	wallet   wallet.Provider
	activity Activity
	cfg      Config
	hub      *hub

	mu       sync.RWMutex
	state    models.State
	accounts []common.Address
	primary  common.Address

	refreshMu sync.Mutex
	cmdMu     sync.Mutex
}

// New creates a disconnected dashboard. activity may be nil.
func New(voting *contract.Voting, provider wallet.Provider, activity Activity, cfg Config) *Dashboard {
	if cfg.BalanceInterval <= 0 {
		cfg.BalanceInterval = 10 * time.Second
	}
	if cfg.AccountInterval <= 0 {
		cfg.AccountInterval = 2 * time.Second
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 2 * time.Minute
	}
	return &Dashboard{
		voting:   voting,
		wallet:   provider,
		activity: activity,
		cfg:      cfg,
		hub:      newHub(),
		state: models.State{
			SecondaryManager: cfg.SecondaryManager,
			Votes:            map[string]uint64{},
			Balance:          new(big.Int),
		},
	}
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() models.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Accounts returns the wallet accounts seen at the last connect or poll.
func (d *Dashboard) Accounts() []common.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]common.Address(nil), d.accounts...)
}

// Subscribe returns a channel of snapshots. A slow reader only ever sees the
// latest one. cancel must be called to release the subscription.
func (d *Dashboard) Subscribe() (<-chan models.State, func()) {
	return d.hub.subscribe()
}

// update applies fn to the state and broadcasts the result.
func (d *Dashboard) update(fn func(s *models.State)) models.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.state)
	d.hub.broadcast(d.state)
	return d.state
}

// Notify shows msg on the dashboard until the next action replaces it.
func (d *Dashboard) Notify(msg string) {
	d.setMessage(msg)
}

func (d *Dashboard) setMessage(msg string) {
	d.update(func(s *models.State) {
		s.Message = msg
		s.Alert = ""
	})
}

// Connect asks the wallet for its accounts and loads the contract state for
// the first one. It may be called again after a failure.
func (d *Dashboard) Connect(ctx context.Context) error {
	accounts, err := d.wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = wallet.ErrNoAccounts
	}
	if err != nil {
		msg := MsgConnectFailed
		switch {
		case errors.Is(err, wallet.ErrUnavailable):
			msg = MsgWalletUnavailable
		case errors.Is(err, wallet.ErrRejected):
			msg = MsgRejected
		}
		slog.Warn("wallet connection failed", "error", err)
		d.update(func(s *models.State) {
			s.Connected = false
			s.Message = msg
		})
		return err
	}

	d.update(func(s *models.State) {
		d.accounts = accounts
		d.primary = accounts[0]
		s.Account = accounts[0]
		s.Connected = true
		s.Message = ""
		s.Alert = ""
	})
	slog.Info("wallet connected", "account", accounts[0].Hex(), "accounts", len(accounts))
	return d.Refresh(ctx)
}

// SelectAccount switches to one of the wallet's accounts and refreshes.
func (d *Dashboard) SelectAccount(ctx context.Context, account common.Address) error {
	d.mu.RLock()
	connected := d.state.Connected
	known := false
	for _, a := range d.accounts {
		if a == account {
			known = true
			break
		}
	}
	d.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}
	if !known {
		return fmt.Errorf("%w: %s is not a wallet account", ErrInvalidInput, account.Hex())
	}

	d.update(func(s *models.State) { s.Account = account })
	slog.Info("account selected", "account", account.Hex())
	return d.Refresh(ctx)
}

// PollAccounts re-reads the exposed wallet accounts without prompting and
// follows a change of the primary account.
func (d *Dashboard) PollAccounts(ctx context.Context) {
	d.mu.RLock()
	connected := d.state.Connected
	previous := d.primary
	d.mu.RUnlock()
	if !connected {
		return
	}

	accounts, err := d.wallet.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		slog.Debug("account poll failed", "error", err)
		return
	}

	d.mu.Lock()
	d.accounts = accounts
	d.primary = accounts[0]
	d.mu.Unlock()
	if accounts[0] == previous {
		return
	}

	slog.Info("wallet account changed", "from", previous.Hex(), "to", accounts[0].Hex())
	d.update(func(s *models.State) { s.Account = accounts[0] })
	if err := d.Refresh(ctx); err != nil {
		slog.Warn("refresh after account change failed", "error", err)
	}
}

// Refresh re-reads the whole contract state. On failure the previous
// snapshot is kept and the load failure message is set.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	ctx, span := tracer.Start(ctx, "dashboard.refresh")
	defer span.End()

	account := d.Snapshot().Account
	snap, err := d.fetch(ctx, account)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to load contract state", "error", err)
		d.update(func(s *models.State) { s.Message = MsgLoadFailed })
		return err
	}

	d.update(func(s *models.State) {
		snap.Account = s.Account
		snap.Connected = s.Connected
		snap.Message = s.Message
		snap.Alert = s.Alert
		snap.SecondaryManager = d.cfg.SecondaryManager
		if s.Account != account {
			// Another refresh for the new account follows
			snap.RemainingVotes = s.RemainingVotes
		}
		*s = snap
	})
	slog.Debug("contract state refreshed",
		"proposals", len(snap.Proposals),
		"ended", snap.VotingEnded,
		"destroyed", snap.Destroyed,
		"balance", snap.Balance.String(),
	)
	return nil
}

func (d *Dashboard) fetch(ctx context.Context, account common.Address) (models.State, error) {
	snap := models.State{FetchedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Manager, err = d.voting.Manager(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Proposals, err = d.voting.Proposals(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.VotingEnded, err = d.voting.VotingEnded(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Balance, err = d.voting.Balance(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.History, err = d.voting.History(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Destroyed, err = d.voting.Destroyed(gctx)
		return err
	})
	if account != (common.Address{}) {
		g.Go(func() (err error) {
			snap.RemainingVotes, err = d.voting.RemainingVotes(gctx, account)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, bind.ErrNoCode) {
			return d.destroyedSnapshot(ctx)
		}
		return models.State{}, err
	}

	votes := make([]uint64, len(snap.Proposals))
	g, gctx = errgroup.WithContext(ctx)
	for i, p := range snap.Proposals {
		g.Go(func() (err error) {
			votes[i], err = d.voting.Votes(gctx, p)
			return err
		})
	}
	if snap.VotingEnded {
		g.Go(func() (err error) {
			snap.WinningProposal, err = d.voting.WinningProposal(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return models.State{}, err
	}

	snap.Votes = make(map[string]uint64, len(snap.Proposals))
	for i, p := range snap.Proposals {
		snap.Votes[p] = votes[i]
	}
	return snap, nil
}

// destroyedSnapshot keeps what was last known about a contract whose code is
// gone.
func (d *Dashboard) destroyedSnapshot(ctx context.Context) (models.State, error) {
	snap := d.Snapshot()
	snap.Destroyed = true
	snap.FetchedAt = time.Now().UTC()
	if balance, err := d.voting.Balance(ctx); err == nil {
		snap.Balance = balance
	}
	return snap, nil
}

// RefreshBalance re-reads only the contract balance.
func (d *Dashboard) RefreshBalance(ctx context.Context) error {
	balance, err := d.voting.Balance(ctx)
	if err != nil {
		return err
	}
	d.update(func(s *models.State) { s.Balance = balance })
	return nil
}

// Run polls the wallet accounts and the contract balance until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(d.cfg.AccountInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				d.PollAccounts(ctx)
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(d.cfg.BalanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := d.RefreshBalance(ctx); err != nil {
					slog.Debug("balance refresh failed", "error", err)
				}
			}
		}
	})
	return g.Wait()
}

// Subscribers returns the number of live subscriptions.
func (d *Dashboard) Subscribers() int {
	return d.hub.len()
}
