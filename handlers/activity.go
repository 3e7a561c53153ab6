// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/votedeck/middleware"
	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/views"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityReader lists what the dashboard has observed and sent.
type ActivityReader interface {
	RecentEvents(ctx context.Context, limit int) ([]models.ContractEvent, error)
	RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error)
}

type ActivityHandler struct {
	store ActivityReader
}

func NewActivityHandler(store ActivityReader) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// Activity handles GET /activity
func (h *ActivityHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := h.store.RecentEvents(r.Context(), limit)
	if err != nil {
		slog.Error("failed to load events", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	submissions, err := h.store.RecentSubmissions(r.Context(), limit)
	if err != nil {
		slog.Error("failed to load submissions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.ActivityResponse{Events: events, Submissions: submissions}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		middleware.JSONResponse(w, http.StatusOK, resp)
		return
	}
	views.Render(w, r, views.Activity(resp), nil)
}
