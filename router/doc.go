// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the voting dashboard.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{
		Dashboard: dash,
		Catalog:   catalog,
		Activity:  store,
		Config:    cfg,
	})

# Endpoints

Health:

	GET /health

Pages:

	GET /         - Dashboard (fragment for HX-Request)
	GET /history  - Vote history
	GET /activity - Observed events and sent transactions
	GET /ws       - Websocket snapshot push

JSON API (CORS enabled):

	GET /api/state   - Snapshot with permissions and wallet accounts
	GET /api/history - Vote history

Wallet:

	POST /connect - Retry the wallet connection
	POST /account - Switch the current account

Commands (JSON or form with token):

	POST /vote       - Cast votes
	POST /end-voting - Declare the winner
	POST /withdraw   - Withdraw the contract balance
	POST /reset      - Reset an ended vote
	POST /owner      - Transfer ownership
	POST /destroy    - Destroy the contract

Static files under Config.StaticDir are served at /assets/ when it is set.
*/
package router
