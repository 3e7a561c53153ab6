// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votedeck/models"
)

// IsManager reports whether the current account is the manager or the
// secondary manager.
func IsManager(s models.State) bool {
	if s.Account == (common.Address{}) {
		return false
	}
	return s.Account == s.Manager || s.Account == s.SecondaryManager
}

// Permissions derives what the current account may do. A destroyed contract
// or a disconnected wallet allows nothing.
func Permissions(s models.State) models.Permissions {
	p := models.Permissions{IsManager: IsManager(s)}
	if !s.Connected || s.Destroyed {
		return p
	}

	p.CanVote = !p.IsManager && !s.VotingEnded
	p.CanEndVoting = p.IsManager && !s.VotingEnded
	p.CanWithdraw = p.IsManager
	p.CanReset = p.IsManager && s.VotingEnded
	p.CanChangeOwner = p.IsManager && s.VotingEnded
	p.CanDestroy = p.IsManager && s.VotingEnded
	return p
}
