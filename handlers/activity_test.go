// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/testutil"
)

type failingStore struct{}

func (failingStore) RecentEvents(ctx context.Context, limit int) ([]models.ContractEvent, error) {
	return nil, errors.New("database is locked")
}

func (failingStore) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	return nil, errors.New("database is locked")
}

func TestActivity(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, testutil.VoterAddress)
	if _, err := env.dash.Vote(context.Background(), "Sam", 1); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}
	err := env.store.RecordEvent(context.Background(), models.ContractEvent{
		Contract:    testutil.ContractAddress.Hex(),
		Kind:        models.EventVotingReset,
		BlockNumber: 120,
		TxHash:      "0xfeed",
		Summary:     "voting reset",
	})
	if err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}
	handler := NewActivityHandler(env.store)

	t.Run("JSON", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/activity", nil, map[string]string{"Accept": "application/json"})
		w := httptest.NewRecorder()
		handler.Activity(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.ActivityResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp.Events) != 1 || resp.Events[0].Summary != "voting reset" {
			t.Errorf("Unexpected events: %+v", resp.Events)
		}
		if len(resp.Submissions) != 1 || resp.Submissions[0].Status != models.SubmissionConfirmed {
			t.Errorf("Unexpected submissions: %+v", resp.Submissions)
		}
	})

	t.Run("HTML", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/activity", nil, nil)
		w := httptest.NewRecorder()
		handler.Activity(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if !strings.Contains(w.Body.String(), "voting reset") {
			t.Error("Expected the event summary in the page")
		}
		if !strings.Contains(w.Body.String(), "status-confirmed") {
			t.Error("Expected the submission row in the page")
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/activity?limit=zero", nil, nil)
		w := httptest.NewRecorder()
		handler.Activity(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestActivity_StoreError(t *testing.T) {
	handler := NewActivityHandler(failingStore{})
	req := testutil.MakeRequest("GET", "/activity", nil, nil)
	w := httptest.NewRecorder()
	handler.Activity(w, req)

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
}
