// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package views renders the dashboard pages as templ components.
package views

import (
	"embed"
	"html/template"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/votedeck/meta"
	"github.com/danielhkuo/votedeck/models"
)

// HTMXHeader marks requests that only want the page fragment.
const HTMXHeader = "HX-Request"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"comma": Count,
	"ago":   humanize.Time,
	"iso":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"short": shortHex,
}).ParseFS(templateFS, "templates/*.html"))

// ProposalView is one row of the voting form.
type ProposalView struct {
	Name        string
	Votes       string
	Image       string
	Description string
}

// Page is everything the dashboard template reads.
type Page struct {
	Connected        bool
	Account          string
	Manager          string
	SecondaryManager string
	Accounts         []string
	Balance          string
	RemainingVotes   uint64
	Proposals        []ProposalView
	VotingEnded      bool
	WinningProposal  string
	Destroyed        bool
	Message          string
	Alert            string
	Permissions      models.Permissions
	Token            string
}

// NewPage builds the template data for a snapshot. catalog may be nil.
func NewPage(state models.State, perms models.Permissions, catalog *meta.Catalog, accounts []string, token string) Page {
	page := Page{
		Connected:        state.Connected,
		Account:          state.Account.Hex(),
		Manager:          state.Manager.Hex(),
		SecondaryManager: state.SecondaryManager.Hex(),
		Accounts:         accounts,
		Balance:          FormatEther(state.Balance),
		RemainingVotes:   state.RemainingVotes,
		VotingEnded:      state.VotingEnded,
		WinningProposal:  state.WinningProposal,
		Destroyed:        state.Destroyed,
		Message:          state.Message,
		Alert:            state.Alert,
		Permissions:      perms,
		Token:            token,
	}
	if catalog == nil {
		catalog = meta.NewCatalog()
	}
	for i, name := range state.Proposals {
		m := catalog.Lookup(name, i)
		page.Proposals = append(page.Proposals, ProposalView{
			Name:        name,
			Votes:       Count(state.VotesFor(name)),
			Image:       m.Image,
			Description: m.Description,
		})
	}
	return page
}

// Dashboard is the full HTML document.
func Dashboard(page Page) templ.Component {
	return templ.FromGoHTML(templates.Lookup("page"), page)
}

// DashboardFragment is the dashboard body without the document around it.
func DashboardFragment(page Page) templ.Component {
	return templ.FromGoHTML(templates.Lookup("dashboard"), page)
}

func History(entries []models.HistoryEntry) templ.Component {
	return templ.FromGoHTML(templates.Lookup("history"), entries)
}

func Activity(activity models.ActivityResponse) templ.Component {
	return templ.FromGoHTML(templates.Lookup("activity"), activity)
}

// IsFragmentRequest reports whether r asked for a partial page update.
func IsFragmentRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(HTMXHeader), "true")
}

// Render serves fragment for partial requests and full otherwise.
func Render(w http.ResponseWriter, r *http.Request, fragment, full templ.Component) {
	if IsFragmentRequest(r) || full == nil {
		full = fragment
	}
	templ.Handler(full).ServeHTTP(w, r)
}

// Count formats n with thousands separators.
func Count(n uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(n))
}

var weiPerEther = big.NewInt(1_000_000_000_000_000_000)

// FormatEther renders a wei amount in ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	sign := ""
	if wei.Sign() < 0 {
		sign = "-"
	}
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(wei), weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}
	digits := frac.String()
	decimals := strings.TrimRight(strings.Repeat("0", 18-len(digits))+digits, "0")
	return sign + whole.String() + "." + decimals
}

// shortHex abbreviates an address or hash for tables.
func shortHex(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "…" + s[len(s)-6:]
}
