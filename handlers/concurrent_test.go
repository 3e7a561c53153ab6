// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/testutil"
)

// TestConcurrentVotes verifies that simultaneous votes from one account are
// sent one at a time and all land on chain
func TestConcurrentVotes(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, testutil.VoterAddress)

	proposals := []string{"Sam", "Mark", "Elon", "Sam", "Mark"}
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for _, p := range proposals {
		wg.Add(1)
		go func(proposal string) {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/vote", models.VoteRequest{Proposal: proposal, Votes: 1}, nil)
			w := httptest.NewRecorder()
			env.cmd.Vote(w, req)
			if w.Code == http.StatusOK {
				successCount.Add(1)
			} else {
				t.Errorf("Vote for %s failed: %d - %s", proposal, w.Code, w.Body.String())
			}
		}(p)
	}

	// Readers run alongside the writers
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			env.page.State(w, testutil.MakeRequest("GET", "/api/state", nil, nil))
			if w.Code != http.StatusOK {
				t.Errorf("State failed: %d", w.Code)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(len(proposals)) {
		t.Fatalf("Expected %d successful votes, got %d", len(proposals), successCount.Load())
	}

	state := env.dash.Snapshot()
	if state.RemainingVotes != 0 {
		t.Errorf("Expected no votes left, got %d", state.RemainingVotes)
	}
	if state.VotesFor("Sam") != 2 || state.VotesFor("Mark") != 2 || state.VotesFor("Elon") != 1 {
		t.Errorf("Unexpected tally: %v", state.Votes)
	}

	subs, err := env.store.RecentSubmissions(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to load submissions: %v", err)
	}
	if len(subs) != len(proposals) {
		t.Errorf("Expected %d submissions, got %d", len(proposals), len(subs))
	}
}
