// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the voting dashboard.

# Handler Types

Each handler is a struct built around the shared dashboard:

  - DashboardHandler: the page, JSON state and history, wallet connect
  - CommandHandler: votes and manager transactions, account selection
  - ActivityHandler: observed events and sent transactions
  - LiveHandler: websocket snapshot push

Handlers are created via constructor functions:

	dashHandler := handlers.NewDashboardHandler(dash, catalog, cfg)
	cmdHandler := handlers.NewCommandHandler(dash, cfg)

# Pages

	GET /         → Page (fragment only when HX-Request: true)
	GET /history  → HistoryPage
	GET /activity → Activity (JSON with Accept: application/json)
	GET /ws       → Live

# Commands

	POST /vote       → Vote (proposal, votes)
	POST /end-voting → EndVoting
	POST /withdraw   → Withdraw
	POST /reset      → ResetVoting
	POST /owner      → ChangeOwner (new_owner)
	POST /destroy    → Destroy
	POST /account    → SelectAccount (account)
	POST /connect    → Connect

Commands accept a JSON body or a form post. Form posts carry a token bound
to the account the page was rendered for; a token for another account is
refused with 409 so a stale page cannot act as the wrong account. Form posts
redirect back to / and the outcome shows up as the dashboard message.

JSON commands return {"message": ...} on success. Errors use the JSON error
envelope with 400 for bad input, 409 when the current state does not allow
the command and 502 when the transaction fails.
*/
package handlers
