// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the dashboard.

# Request Types

Types for parsing incoming JSON (form posts are mapped onto the same types):

  - VoteRequest: proposal, votes
  - ChangeOwnerRequest: new_owner
  - SelectAccountRequest: account

# Response Types

  - StateResponse: state, permissions, wallet accounts
  - CommandResponse: message, tx_hash
  - HistoryResponse: history
  - ActivityResponse: events, submissions
  - ErrorResponse: error, message

# Domain Types

  - State: read-only mirror of the contract for the current account
  - HistoryEntry: one entry of the contract's vote history
  - Permissions: which controls the current account may use
  - ContractEvent: an observed contract log
  - Submission: a transaction sent through the wallet

State is always replaced wholesale; nothing here enforces contract rules.
*/
package models
