// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votedeck/auth"
	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/dashboard"
	"github.com/danielhkuo/votedeck/middleware"
	"github.com/danielhkuo/votedeck/models"
)

// CommandHandler accepts the dashboard's write operations either as JSON or
// as form posts from the rendered page.
type CommandHandler struct {
	dash *dashboard.Dashboard
	cfg  cliparse.Config
}

func NewCommandHandler(dash *dashboard.Dashboard, cfg cliparse.Config) *CommandHandler {
	return &CommandHandler{dash: dash, cfg: cfg}
}

// Vote handles POST /vote
func (h *CommandHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	isForm, ok := h.readRequest(w, r, &req, func(form url.Values) error {
		req.Proposal = form.Get("proposal")
		votes := strings.TrimSpace(form.Get("votes"))
		if votes == "" {
			req.Votes = 1
			return nil
		}
		n, err := strconv.ParseInt(votes, 10, 64)
		if err != nil {
			return errors.New("votes must be a number")
		}
		req.Votes = n
		return nil
	})
	if !ok {
		return
	}
	if req.Proposal == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "proposal is required")
		return
	}

	resp, err := h.dash.Vote(r.Context(), req.Proposal, req.Votes)
	h.respond(w, r, isForm, resp, err)
}

// EndVoting handles POST /end-voting
func (h *CommandHandler) EndVoting(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.dash.EndVoting)
}

// Withdraw handles POST /withdraw
func (h *CommandHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.dash.Withdraw)
}

// ResetVoting handles POST /reset
func (h *CommandHandler) ResetVoting(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.dash.ResetVoting)
}

// Destroy handles POST /destroy
func (h *CommandHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.dash.Destroy)
}

// ChangeOwner handles POST /owner
func (h *CommandHandler) ChangeOwner(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeOwnerRequest
	isForm, ok := h.readRequest(w, r, &req, func(form url.Values) error {
		req.NewOwner = strings.TrimSpace(form.Get("new_owner"))
		return nil
	})
	if !ok {
		return
	}
	if req.NewOwner == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "new_owner is required")
		return
	}

	resp, err := h.dash.ChangeOwner(r.Context(), req.NewOwner)
	h.respond(w, r, isForm, resp, err)
}

// SelectAccount handles POST /account
func (h *CommandHandler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	var req models.SelectAccountRequest
	isForm, ok := h.readRequest(w, r, &req, func(form url.Values) error {
		req.Account = strings.TrimSpace(form.Get("account"))
		return nil
	})
	if !ok {
		return
	}
	if !common.IsHexAddress(req.Account) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "account must be a hex address")
		return
	}

	err := h.dash.SelectAccount(r.Context(), common.HexToAddress(req.Account))
	resp := models.CommandResponse{}
	if err == nil {
		resp.Message = "Account switched to " + common.HexToAddress(req.Account).Hex()
	}
	h.respond(w, r, isForm, resp, err)
}

func (h *CommandHandler) simple(w http.ResponseWriter, r *http.Request, run func(ctx context.Context) (models.CommandResponse, error)) {
	isForm, ok := h.readRequest(w, r, nil, nil)
	if !ok {
		return
	}
	resp, err := run(r.Context())
	h.respond(w, r, isForm, resp, err)
}

// readRequest decodes a JSON body into v, or checks the form token and hands
// the form to fromForm. It writes the error response itself and reports
// whether the handler should go on.
func (h *CommandHandler) readRequest(w http.ResponseWriter, r *http.Request, v interface{}, fromForm func(url.Values) error) (isForm, ok bool) {
	if isJSONRequest(r) {
		if v == nil {
			return false, true
		}
		if err := middleware.ParseJSONBody(r, v); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return false, false
		}
		return false, true
	}

	if err := r.ParseForm(); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form")
		return true, false
	}

	account := h.dash.Snapshot().Account.Hex()
	err := auth.ValidateFormToken(account, r.PostForm.Get("token"), h.cfg.FormSecret)
	switch {
	case errors.Is(err, auth.ErrMissingFormToken):
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return true, false
	case err != nil:
		slog.Info("stale form token", "account", account)
		middleware.ErrorResponse(w, http.StatusConflict, dashboard.MsgAccountChanged)
		return true, false
	}

	if fromForm != nil {
		if err := fromForm(r.PostForm); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return true, false
		}
	}
	return true, true
}

// respond finishes a command. Form posts always go back to the page, with
// the outcome shown as the dashboard message.
func (h *CommandHandler) respond(w http.ResponseWriter, r *http.Request, isForm bool, resp models.CommandResponse, err error) {
	if isForm {
		if err != nil && resp.Message == "" {
			h.dash.Notify(formMessage(err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err == nil {
		middleware.JSONResponse(w, http.StatusOK, resp)
		return
	}

	message := resp.Message
	if message == "" {
		message = err.Error()
	}
	middleware.ErrorResponse(w, statusFor(err), message)
}

func formMessage(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrNotConnected):
		return dashboard.MsgNotConnected
	case errors.Is(err, dashboard.ErrNotAllowed):
		return dashboard.MsgNotAllowed
	case errors.Is(err, dashboard.ErrInvalidInput):
		return err.Error()
	}
	slog.Error("command failed", "error", err)
	return dashboard.MsgTxFailed
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotConnected), errors.Is(err, dashboard.ErrNotAllowed):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrTxFailed):
		return http.StatusBadGateway
	}
	slog.Error("command failed", "error", err)
	return http.StatusInternalServerError
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
