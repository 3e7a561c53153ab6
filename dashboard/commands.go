// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/danielhkuo/votedeck/contract"
	"github.com/danielhkuo/votedeck/models"
)

// command describes one wallet transaction and its outcome messages.
type command struct {
	action      string
	call        func() (contract.Call, error)
	allowed     func(p models.Permissions) bool
	success     func(account common.Address) string
	failure     string
	balanceOnly bool
}

// Vote casts votes for a proposal from the current account. Fewer than one
// vote counts as one.
func (d *Dashboard) Vote(ctx context.Context, proposal string, votes int64) (models.CommandResponse, error) {
	if votes < 1 {
		votes = 1
	}
	n := uint64(votes)

	state := d.Snapshot()
	if state.Connected && !state.Destroyed {
		if !hasProposal(state.Proposals, proposal) {
			return models.CommandResponse{}, fmt.Errorf("%w: unknown proposal %q", ErrInvalidInput, proposal)
		}
		if Permissions(state).CanVote && n > state.RemainingVotes {
			msg := fmt.Sprintf("You have only %d votes left.", state.RemainingVotes)
			d.setMessage(msg)
			return models.CommandResponse{Message: msg}, fmt.Errorf("%w: %s", ErrNotAllowed, msg)
		}
	}

	return d.execute(ctx, command{
		action:  models.ActionVote,
		call:    func() (contract.Call, error) { return d.voting.VoteCall(proposal, n) },
		allowed: func(p models.Permissions) bool { return p.CanVote },
		success: func(account common.Address) string { return voteMessage(account.Hex(), n, proposal) },
		failure: MsgTxFailed,
	})
}

func (d *Dashboard) EndVoting(ctx context.Context) (models.CommandResponse, error) {
	return d.execute(ctx, command{
		action:  models.ActionEndVoting,
		call:    d.voting.EndVotingCall,
		allowed: func(p models.Permissions) bool { return p.CanEndVoting },
		success: func(common.Address) string { return MsgVotingEnded },
		failure: MsgTxFailed,
	})
}

// Withdraw moves the contract balance to the manager. Only the balance is
// re-read afterwards.
func (d *Dashboard) Withdraw(ctx context.Context) (models.CommandResponse, error) {
	return d.execute(ctx, command{
		action:      models.ActionWithdraw,
		call:        d.voting.WithdrawCall,
		allowed:     func(p models.Permissions) bool { return p.CanWithdraw },
		success:     func(common.Address) string { return MsgWithdrawn },
		failure:     MsgWithdrawFailed,
		balanceOnly: true,
	})
}

func (d *Dashboard) ResetVoting(ctx context.Context) (models.CommandResponse, error) {
	return d.execute(ctx, command{
		action:  models.ActionResetVoting,
		call:    d.voting.ResetVotingCall,
		allowed: func(p models.Permissions) bool { return p.CanReset },
		success: func(common.Address) string { return MsgVotingReset },
		failure: MsgResetFailed,
	})
}

// ChangeOwner transfers the contract to newOwner, given as a hex address.
func (d *Dashboard) ChangeOwner(ctx context.Context, newOwner string) (models.CommandResponse, error) {
	if !common.IsHexAddress(newOwner) {
		return models.CommandResponse{}, fmt.Errorf("%w: %q is not an address", ErrInvalidInput, newOwner)
	}
	owner := common.HexToAddress(newOwner)

	return d.execute(ctx, command{
		action:  models.ActionChangeOwner,
		call:    func() (contract.Call, error) { return d.voting.ChangeOwnerCall(owner) },
		allowed: func(p models.Permissions) bool { return p.CanChangeOwner },
		success: func(common.Address) string { return "Ownership transferred to " + owner.Hex() },
		failure: MsgTxFailed,
	})
}

func (d *Dashboard) Destroy(ctx context.Context) (models.CommandResponse, error) {
	return d.execute(ctx, command{
		action:  models.ActionDestroy,
		call:    d.voting.DestroyCall,
		allowed: func(p models.Permissions) bool { return p.CanDestroy },
		success: func(common.Address) string { return MsgDestroyed },
		failure: MsgTxFailed,
	})
}

// execute runs one command at a time: gate, send, record, wait, refresh.
func (d *Dashboard) execute(ctx context.Context, cmd command) (models.CommandResponse, error) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	state := d.Snapshot()
	if !state.Connected {
		return models.CommandResponse{}, ErrNotConnected
	}
	if !cmd.allowed(Permissions(state)) {
		return models.CommandResponse{}, fmt.Errorf("%w: %s", ErrNotAllowed, cmd.action)
	}
	call, err := cmd.call()
	if err != nil {
		return models.CommandResponse{}, fmt.Errorf("failed to build %s call: %w", cmd.action, err)
	}

	// The outcome is recorded even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "dashboard."+cmd.action)
	defer span.End()
	span.SetAttributes(attribute.String("account", state.Account.Hex()))

	account := state.Account
	d.setMessage(MsgWaiting)

	hash, err := d.wallet.SendTransaction(ctx, account, call)
	if err != nil {
		span.RecordError(err)
		slog.Warn("transaction not sent", "action", cmd.action, "account", account.Hex(), "error", err)
		d.recordSubmission(ctx, models.Submission{
			Action:  cmd.action,
			Account: account.Hex(),
			Status:  models.SubmissionFailed,
			Error:   err.Error(),
		})
		d.setMessage(cmd.failure)
		return models.CommandResponse{Message: cmd.failure}, fmt.Errorf("%w: %v", ErrTxFailed, err)
	}
	slog.Info("transaction sent", "action", cmd.action, "account", account.Hex(), "tx", hash.Hex())
	id := d.recordSubmission(ctx, models.Submission{
		Action:  cmd.action,
		Account: account.Hex(),
		TxHash:  hash.Hex(),
		Status:  models.SubmissionPending,
	})

	_, waitErr := contract.WaitMined(ctx, d.voting.Backend(), hash, d.cfg.ReceiptTimeout)
	d.settleSubmission(ctx, id, waitErr)

	if cmd.balanceOnly {
		if err := d.RefreshBalance(ctx); err != nil {
			slog.Warn("balance refresh failed", "error", err)
		}
	} else {
		// A failed refresh has already set its own message
		_ = d.Refresh(ctx)
	}

	resp := models.CommandResponse{TxHash: hash.Hex()}
	if waitErr != nil {
		span.RecordError(waitErr)
		slog.Warn("transaction failed", "action", cmd.action, "tx", hash.Hex(), "error", waitErr)
		resp.Message = cmd.failure
		d.setMessage(resp.Message)
		return resp, fmt.Errorf("%w: %v", ErrTxFailed, waitErr)
	}

	slog.Info("transaction confirmed", "action", cmd.action, "tx", hash.Hex())
	resp.Message = cmd.success(account)
	d.setMessage(resp.Message)
	return resp, nil
}

func (d *Dashboard) recordSubmission(ctx context.Context, sub models.Submission) string {
	if d.activity == nil {
		return ""
	}
	id, err := d.activity.RecordSubmission(ctx, sub)
	if err != nil {
		slog.Warn("failed to record submission", "action", sub.Action, "error", err)
		return ""
	}
	return id
}

func (d *Dashboard) settleSubmission(ctx context.Context, id string, waitErr error) {
	if d.activity == nil || id == "" {
		return
	}
	status, errText := models.SubmissionConfirmed, ""
	if waitErr != nil {
		status, errText = models.SubmissionFailed, waitErr.Error()
	}
	if err := d.activity.SettleSubmission(ctx, id, status, errText); err != nil {
		slog.Warn("failed to settle submission", "id", id, "error", err)
	}
}

func hasProposal(proposals []string, proposal string) bool {
	for _, p := range proposals {
		if p == proposal {
			return true
		}
	}
	return false
}
