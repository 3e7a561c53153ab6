// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/dashboard"
	"github.com/danielhkuo/votedeck/handlers"
	"github.com/danielhkuo/votedeck/meta"
	"github.com/danielhkuo/votedeck/middleware"
)

// Deps are the shared services the handlers are built from.
type Deps struct {
	Dashboard *dashboard.Dashboard
	Catalog   *meta.Catalog
	Activity  handlers.ActivityReader
	Config    cliparse.Config
}

func NewRouter(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()
	cfg := deps.Config

	// Initialize handlers
	dashHandler := handlers.NewDashboardHandler(deps.Dashboard, deps.Catalog, cfg)
	cmdHandler := handlers.NewCommandHandler(deps.Dashboard, cfg)
	activityHandler := handlers.NewActivityHandler(deps.Activity)
	liveHandler := handlers.NewLiveHandler(deps.Dashboard)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Pages
	mux.HandleFunc("GET /{$}", middleware.WithLogging(dashHandler.Page))
	mux.HandleFunc("GET /history", middleware.WithLogging(dashHandler.HistoryPage))
	mux.HandleFunc("GET /activity", middleware.WithLogging(activityHandler.Activity))
	mux.HandleFunc("GET /ws", middleware.WithLogging(liveHandler.Live))

	// JSON API (readable cross-origin)
	mux.Handle("GET /api/state", middleware.CORS(middleware.WithLogging(dashHandler.State)))
	mux.Handle("GET /api/history", middleware.CORS(middleware.WithLogging(dashHandler.History)))
	mux.Handle("OPTIONS /api/", middleware.CORS(http.NotFoundHandler()))

	// Wallet
	mux.HandleFunc("POST /connect", middleware.WithLogging(dashHandler.Connect))
	mux.HandleFunc("POST /account", middleware.WithLogging(cmdHandler.SelectAccount))

	// Contract commands
	mux.HandleFunc("POST /vote", middleware.WithLogging(cmdHandler.Vote))
	mux.HandleFunc("POST /end-voting", middleware.WithLogging(cmdHandler.EndVoting))
	mux.HandleFunc("POST /withdraw", middleware.WithLogging(cmdHandler.Withdraw))
	mux.HandleFunc("POST /reset", middleware.WithLogging(cmdHandler.ResetVoting))
	mux.HandleFunc("POST /owner", middleware.WithLogging(cmdHandler.ChangeOwner))
	mux.HandleFunc("POST /destroy", middleware.WithLogging(cmdHandler.Destroy))

	// Static assets (proposal images, stylesheet)
	if cfg.StaticDir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	return mux
}
