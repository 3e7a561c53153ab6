// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/danielhkuo/votedeck/models"
)

var eventNames = func() map[common.Hash]string {
	names := make(map[common.Hash]string, len(votingABI.Events))
	for name, ev := range votingABI.Events {
		names[ev.ID] = name
	}
	return names
}()

// Event is a decoded contract log. Only the fields of its Kind are set.
type Event struct {
	Kind        string
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint

	Voter           common.Address
	Proposal        string
	Votes           uint64
	WinningProposal string
	OldOwner        common.Address
	NewOwner        common.Address
}

// Summary renders the event as a one-line activity log entry.
func (e Event) Summary() string {
	switch e.Kind {
	case models.EventVoteCast:
		return fmt.Sprintf("%s gave %d votes to %s", e.Voter.Hex(), e.Votes, e.Proposal)
	case models.EventVotingEnded:
		return "voting ended, winning proposal " + e.WinningProposal
	case models.EventVotingReset:
		return "voting reset"
	case models.EventWinnerDeclared:
		return fmt.Sprintf("winner %s with %d votes", e.WinningProposal, e.Votes)
	case models.EventOwnerChanged:
		return fmt.Sprintf("owner changed from %s to %s", e.OldOwner.Hex(), e.NewOwner.Hex())
	case models.EventContractDestroyed:
		return "contract destroyed"
	}
	return e.Kind
}

// EventTopics returns the signature topics of every contract event.
func EventTopics() []common.Hash {
	topics := make([]common.Hash, 0, len(eventNames))
	for id := range eventNames {
		topics = append(topics, id)
	}
	return topics
}

// FilterQuery selects all voting events of this contract in [from, to].
// A nil to means the latest block.
func (v *Voting) FilterQuery(from, to *big.Int) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{v.address},
		Topics:    [][]common.Hash{EventTopics()},
	}
}

// DecodeEvent unpacks a log emitted by the voting contract.
func (v *Voting) DecodeEvent(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return Event{}, fmt.Errorf("%w: anonymous log", ErrUnknownEvent)
	}
	name, ok := eventNames[log.Topics[0]]
	if !ok {
		return Event{}, fmt.Errorf("%w: topic %s", ErrUnknownEvent, log.Topics[0].Hex())
	}

	ev := Event{
		Kind:        name,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}

	var err error
	switch name {
	case models.EventVoteCast:
		var out struct {
			Voter    common.Address
			Proposal string
			Votes    *big.Int
		}
		if err = v.bound.UnpackLog(&out, name, log); err == nil {
			ev.Voter, ev.Proposal = out.Voter, out.Proposal
			ev.Votes, err = toUint64(out.Votes)
		}
	case models.EventVotingEnded:
		var out struct {
			WinningProposal string
		}
		if err = v.bound.UnpackLog(&out, name, log); err == nil {
			ev.WinningProposal = out.WinningProposal
		}
	case models.EventWinnerDeclared:
		var out struct {
			WinningProposal string
			Votes           *big.Int
		}
		if err = v.bound.UnpackLog(&out, name, log); err == nil {
			ev.WinningProposal = out.WinningProposal
			ev.Votes, err = toUint64(out.Votes)
		}
	case models.EventOwnerChanged:
		var out struct {
			OldOwner common.Address
			NewOwner common.Address
		}
		if err = v.bound.UnpackLog(&out, name, log); err == nil {
			ev.OldOwner, ev.NewOwner = out.OldOwner, out.NewOwner
		}
	case models.EventVotingReset, models.EventContractDestroyed:
		// no arguments
	}
	if err != nil {
		return Event{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return ev, nil
}
