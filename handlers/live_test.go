// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/testutil"
)

func TestLive(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, testutil.VoterAddress)

	server := httptest.NewServer(http.HandlerFunc(NewLiveHandler(env.dash).Live))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// First message is the current snapshot
	var first models.StateResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if first.State.Account != testutil.VoterAddress || !first.Permissions.CanVote {
		t.Errorf("Unexpected first snapshot: %+v", first)
	}

	if env.dash.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", env.dash.Subscribers())
	}

	if _, err := env.dash.Vote(context.Background(), "Mark", 3); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}

	for {
		var update models.StateResponse
		if err := conn.ReadJSON(&update); err != nil {
			t.Fatalf("Failed to read update: %v", err)
		}
		if update.State.VotesFor("Mark") == 3 {
			break
		}
	}
}

func TestLive_RejectsPlainHTTP(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	NewLiveHandler(env.dash).Live(w, testutil.MakeRequest("GET", "/ws", nil, nil))

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
