// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votedeck/auth"
	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/dashboard"
	"github.com/danielhkuo/votedeck/meta"
	"github.com/danielhkuo/votedeck/middleware"
	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/views"
)

type DashboardHandler struct {
	dash    *dashboard.Dashboard
	catalog *meta.Catalog
	cfg     cliparse.Config
}

func NewDashboardHandler(dash *dashboard.Dashboard, catalog *meta.Catalog, cfg cliparse.Config) *DashboardHandler {
	return &DashboardHandler{dash: dash, catalog: catalog, cfg: cfg}
}

// Page handles GET /
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	state := h.dash.Snapshot()
	accounts := hexAccounts(h.dash)

	token := ""
	if state.Connected {
		token = auth.GenerateFormToken(state.Account.Hex(), h.cfg.FormSecret)
	}

	page := views.NewPage(state, dashboard.Permissions(state), h.catalog, accounts, token)
	views.Render(w, r, views.DashboardFragment(page), views.Dashboard(page))
}

// State handles GET /api/state
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, stateResponse(h.dash))
}

// History handles GET /api/history
func (h *DashboardHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.dash.Snapshot().History
	if history == nil {
		history = []models.HistoryEntry{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.HistoryResponse{History: history})
}

// HistoryPage handles GET /history
func (h *DashboardHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	views.Render(w, r, views.History(h.dash.Snapshot().History), nil)
}

// Connect handles POST /connect
func (h *DashboardHandler) Connect(w http.ResponseWriter, r *http.Request) {
	err := h.dash.Connect(r.Context())
	state := h.dash.Snapshot()

	if !isJSONRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil && !state.Connected {
		slog.Warn("connect failed", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, state.Message)
		return
	}
	// Connected but the first load failed
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadGateway, dashboard.MsgLoadFailed)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stateResponse(h.dash))
}

func stateResponse(dash *dashboard.Dashboard) models.StateResponse {
	state := dash.Snapshot()
	return models.StateResponse{
		State:       state,
		Permissions: dashboard.Permissions(state),
		Accounts:    hexAccounts(dash),
	}
}

func hexAccounts(dash *dashboard.Dashboard) []string {
	accounts := dash.Accounts()
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Hex())
	}
	return out
}
