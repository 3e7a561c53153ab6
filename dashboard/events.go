// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/votedeck/contract"
	"github.com/danielhkuo/votedeck/models"
)

// HandleEvent records a contract event, refreshes the state and sets the
// message or alert that goes with it.
func (d *Dashboard) HandleEvent(ctx context.Context, ev contract.Event) {
	slog.Info("contract event", "kind", ev.Kind, "block", ev.BlockNumber, "tx", ev.TxHash.Hex())

	if d.activity != nil {
		err := d.activity.RecordEvent(ctx, models.ContractEvent{
			Contract:    d.voting.Address().Hex(),
			Kind:        ev.Kind,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash.Hex(),
			LogIndex:    ev.LogIndex,
			Summary:     ev.Summary(),
		})
		if err != nil {
			slog.Warn("failed to record event", "kind", ev.Kind, "error", err)
		}
	}

	if err := d.Refresh(ctx); err != nil {
		return
	}

	message, alert := eventNotice(ev)
	if message == "" && alert == "" {
		return
	}
	d.update(func(s *models.State) {
		if message != "" {
			s.Message = message
		}
		if alert != "" {
			s.Alert = alert
		}
	})
}

func eventNotice(ev contract.Event) (message, alert string) {
	switch ev.Kind {
	case models.EventVoteCast:
		return voteMessage(ev.Voter.Hex(), ev.Votes, ev.Proposal), ""
	case models.EventVotingEnded:
		msg := "Voting ended! Winning proposal: " + ev.WinningProposal
		return msg, msg
	case models.EventWinnerDeclared:
		return "", fmt.Sprintf("The winner is %s with %d votes", ev.WinningProposal, ev.Votes)
	case models.EventOwnerChanged:
		return "", fmt.Sprintf("The ownership has been transferred from %s to %s", ev.OldOwner.Hex(), ev.NewOwner.Hex())
	case models.EventContractDestroyed:
		return "", "The contract has been destroyed"
	}
	return "", ""
}

func voteMessage(account string, votes uint64, proposal string) string {
	return fmt.Sprintf("Account %s gave %d votes to %s", account, votes, proposal)
}
