// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package views

import (
	"bytes"
	"context"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votedeck/meta"
	"github.com/danielhkuo/votedeck/models"
)

var (
	manager = common.HexToAddress("0x1111111111111111111111111111111111111111")
	voter   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func sampleState() models.State {
	return models.State{
		Account:   voter,
		Manager:   manager,
		Proposals: []string{"Sam", "Mark", "Elon"},
		Votes:     map[string]uint64{"Mark": 1200},
		Balance:   big.NewInt(25_000_000_000_000_000),
		Connected: true,
		Message:   "hello",
	}
}

func render(t *testing.T, page Page, fragment bool) string {
	t.Helper()
	var buf bytes.Buffer
	c := Dashboard(page)
	if fragment {
		c = DashboardFragment(page)
	}
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234567, "1,234,567"},
		{math.MaxUint64, "18,446,744,073,709,551,615"},
	}
	for _, tt := range tests {
		if got := Count(tt.n); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{nil, "0"},
		{big.NewInt(0), "0"},
		{big.NewInt(1_000_000_000_000_000_000), "1"},
		{big.NewInt(10_000_000_000_000_000), "0.01"},
		{big.NewInt(1), "0.000000000000000001"},
		{big.NewInt(1_500_000_000_000_000_000), "1.5"},
		{big.NewInt(-2_000_000_000_000_000_000), "-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEther(tt.wei))
	}
}

func TestNewPage(t *testing.T) {
	catalog := meta.NewCatalog()
	page := NewPage(sampleState(), models.Permissions{CanVote: true}, catalog, []string{voter.Hex()}, "tok")

	assert.Equal(t, "0.025", page.Balance)
	require.Len(t, page.Proposals, 3)
	assert.Equal(t, "1,200", page.Proposals[1].Votes)
	assert.Equal(t, "0", page.Proposals[0].Votes)
	assert.Equal(t, meta.DefaultImages[2], page.Proposals[2].Image)
	assert.Equal(t, "tok", page.Token)
}

func TestDashboard_Voter(t *testing.T) {
	page := NewPage(sampleState(), models.Permissions{CanVote: true}, nil, nil, "tok")
	body := render(t, page, false)

	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "This contract is managed by "+manager.Hex())
	assert.Contains(t, body, "The contract balance is 0.025 ether.")
	assert.Contains(t, body, "Mark (Current votes: 1,200)")
	assert.Contains(t, body, `name="token" value="tok"`)
	assert.NotContains(t, body, "Declare Winner")
	assert.NotContains(t, body, "Withdraw")
	assert.Contains(t, body, "hello")
}

func TestDashboard_ManagerBeforeEnd(t *testing.T) {
	state := sampleState()
	state.Account = manager
	perms := models.Permissions{IsManager: true, CanEndVoting: true, CanWithdraw: true}
	body := render(t, NewPage(state, perms, nil, nil, "tok"), true)

	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Declare Winner")
	assert.Contains(t, body, "Withdraw")
	assert.Contains(t, body, "Reset Voting</button>")
	assert.NotContains(t, body, "Change Owner")
	assert.NotContains(t, body, "Destroy")
}

func TestDashboard_Ended(t *testing.T) {
	state := sampleState()
	state.Account = manager
	state.VotingEnded = true
	state.WinningProposal = "Mark"
	perms := models.Permissions{IsManager: true, CanWithdraw: true, CanReset: true, CanChangeOwner: true, CanDestroy: true}
	body := render(t, NewPage(state, perms, nil, nil, "tok"), true)

	assert.Contains(t, body, "The winning proposal is: Mark")
	assert.NotContains(t, body, "Vote for your preferred proposal")
	assert.Contains(t, body, "Change Owner")
	assert.Contains(t, body, "Destroy")
}

func TestDashboard_Destroyed(t *testing.T) {
	state := sampleState()
	state.Destroyed = true
	body := render(t, NewPage(state, models.Permissions{}, nil, nil, "tok"), true)

	assert.Contains(t, body, "The contract has been destroyed. Only history is available.")
	assert.NotContains(t, body, "Vote for your preferred proposal")
	assert.Contains(t, body, `href="/history"`)
}

func TestDashboard_Disconnected(t *testing.T) {
	state := models.State{Message: "Wallet is not available"}
	body := render(t, NewPage(state, models.Permissions{}, nil, nil, ""), true)

	assert.Contains(t, body, `action="/connect"`)
	assert.Contains(t, body, "Wallet is not available")
	assert.NotContains(t, body, "Remaining votes")
}

func TestDashboard_AccountSelector(t *testing.T) {
	accounts := []string{voter.Hex(), manager.Hex()}
	body := render(t, NewPage(sampleState(), models.Permissions{}, nil, accounts, "tok"), true)

	assert.Contains(t, body, `action="/account"`)
	assert.Contains(t, body, `<option value="`+voter.Hex()+`" selected>`)
}

func TestHistoryAndActivity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, History([]models.HistoryEntry{
		{ID: 1, Proposal: "Sam", Votes: 3},
		{ID: 2, Proposal: "Mark", Votes: 1500},
	}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Vote #1: Sam with 3 votes")
	assert.Contains(t, buf.String(), "Vote #2: Mark with 1500 votes")
	assert.NotContains(t, buf.String(), "No voting history available.")

	buf.Reset()
	require.NoError(t, History(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No voting history available.")

	buf.Reset()
	activity := models.ActivityResponse{
		Events: []models.ContractEvent{{BlockNumber: 1234, Summary: "voting reset", ObservedAt: time.Now().Add(-time.Hour)}},
		Submissions: []models.Submission{{
			Action:      models.ActionVote,
			Account:     voter.Hex(),
			TxHash:      "0xabcdef0123456789abcdef",
			Status:      models.SubmissionConfirmed,
			SubmittedAt: time.Now(),
		}},
	}
	require.NoError(t, Activity(activity).Render(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "#1,234")
	assert.Contains(t, out, "voting reset")
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "status-confirmed")
}

func TestRender_FragmentHeader(t *testing.T) {
	fragment := DashboardFragment(NewPage(sampleState(), models.Permissions{}, nil, nil, ""))
	full := Dashboard(NewPage(sampleState(), models.Permissions{}, nil, nil, ""))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	Render(w, r, fragment, full)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<!DOCTYPE html>"))

	r.Header.Set(HTMXHeader, "true")
	w = httptest.NewRecorder()
	Render(w, r, fragment, full)
	assert.False(t, strings.Contains(w.Body.String(), "<!DOCTYPE html>"))
	assert.Contains(t, w.Body.String(), "Voting Contract")
}
