// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event kinds emitted by the voting contract
const (
	EventVoteCast          = "VoteCast"
	EventVotingEnded       = "VotingEnded"
	EventVotingReset       = "VotingReset"
	EventWinnerDeclared    = "WinnerDeclared"
	EventOwnerChanged      = "OwnerChanged"
	EventContractDestroyed = "ContractDestroyed"
)

// Transaction submission status constants
const (
	SubmissionPending   = "pending"
	SubmissionConfirmed = "confirmed"
	SubmissionFailed    = "failed"
)

// Command action names
const (
	ActionVote        = "vote"
	ActionEndVoting   = "end_voting"
	ActionWithdraw    = "withdraw"
	ActionResetVoting = "reset_voting"
	ActionChangeOwner = "change_owner"
	ActionDestroy     = "destroy"
)

// Request types

type VoteRequest struct {
	Proposal string `json:"proposal"`
	Votes    int64  `json:"votes"`
}

type ChangeOwnerRequest struct {
	NewOwner string `json:"new_owner"`
}

type SelectAccountRequest struct {
	Account string `json:"account"`
}

// Response types

type CommandResponse struct {
	Message string `json:"message"`
	TxHash  string `json:"tx_hash,omitempty"`
}

type StateResponse struct {
	State       State       `json:"state"`
	Permissions Permissions `json:"permissions"`
	Accounts    []string    `json:"accounts,omitempty"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

type ActivityResponse struct {
	Events      []ContractEvent `json:"events"`
	Submissions []Submission    `json:"submissions"`
}

// Domain types

// State mirrors the contract as seen by the current account.
type State struct {
	Account          common.Address    `json:"account"`
	Manager          common.Address    `json:"manager"`
	SecondaryManager common.Address    `json:"secondary_manager"`
	Proposals        []string          `json:"proposals"`
	Votes            map[string]uint64 `json:"votes"`
	RemainingVotes   uint64            `json:"remaining_votes"`
	VotingEnded      bool              `json:"voting_ended"`
	WinningProposal  string            `json:"winning_proposal,omitempty"`
	Balance          *big.Int          `json:"balance_wei"`
	History          []HistoryEntry    `json:"history"`
	Destroyed        bool              `json:"destroyed"`
	Connected        bool              `json:"connected"`
	Message          string            `json:"message,omitempty"`
	Alert            string            `json:"alert,omitempty"`
	FetchedAt        time.Time         `json:"fetched_at"`
}

// VotesFor returns the recorded vote count for a proposal, 0 when unknown.
func (s State) VotesFor(proposal string) uint64 {
	return s.Votes[proposal]
}

type HistoryEntry struct {
	ID       uint64 `json:"id"`
	Proposal string `json:"proposal"`
	Votes    uint64 `json:"votes"`
}

// Permissions is the render gating derived from a State.
type Permissions struct {
	IsManager      bool `json:"is_manager"`
	CanVote        bool `json:"can_vote"`
	CanEndVoting   bool `json:"can_end_voting"`
	CanWithdraw    bool `json:"can_withdraw"`
	CanReset       bool `json:"can_reset"`
	CanChangeOwner bool `json:"can_change_owner"`
	CanDestroy     bool `json:"can_destroy"`
}

// ContractEvent is an observed contract log kept in the activity store.
type ContractEvent struct {
	ID          string    `json:"id"`
	Contract    string    `json:"contract"`
	Kind        string    `json:"kind"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	Summary     string    `json:"summary"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Submission is a transaction sent through the wallet provider.
type Submission struct {
	ID          string     `json:"id"`
	Action      string     `json:"action"`
	Account     string     `json:"account"`
	TxHash      string     `json:"tx_hash"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
