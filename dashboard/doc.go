// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package dashboard holds the single view of the voting contract that every
page, API response and websocket push is rendered from.

A Dashboard owns the current wallet account and the last contract snapshot.
Snapshots are replaced wholesale by Refresh; a failed refresh keeps the
previous snapshot and only sets the status message.

# Triggers

The snapshot is refreshed after:
  - Connect and SelectAccount
  - every contract event delivered by HandleEvent
  - a change of the wallet's primary account (polled by Run)
  - every command, once its transaction is mined

Run also re-reads the contract balance on its own interval.

# Commands

Vote, EndVoting, Withdraw, ResetVoting, ChangeOwner and Destroy check the
same gating the page renders with (see Permissions) before asking the wallet
to send anything. A command blocks until the transaction is mined or the
receipt timeout elapses, and every submission is recorded in the activity
store when one is configured.
*/
package dashboard
