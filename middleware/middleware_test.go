// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/danielhkuo/votedeck/models"
)

// captureLogs sends the default logger to a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// completedEntry returns the "request completed" record from the captured logs.
func completedEntry(t *testing.T, logs *bytes.Buffer) map[string]interface{} {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(logs.Bytes()))
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Invalid log line %q: %v", scanner.Text(), err)
		}
		if entry["msg"] == "request completed" {
			return entry
		}
	}
	t.Fatalf("No completion log in %s", logs.String())
	return nil
}

func TestWithLogging_RequestID(t *testing.T) {
	captureLogs(t)

	var seen string
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	t.Run("generated when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/api/state", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("Expected a uuid request id, got %q", seen)
		}
		if w.Header().Get(RequestIDHeader) != seen {
			t.Errorf("Expected response header %q, got %q", seen, w.Header().Get(RequestIDHeader))
		}
	})

	t.Run("client id is kept", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/vote", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler(w, req)

		if seen != "abc-123" {
			t.Errorf("Expected request id 'abc-123', got %q", seen)
		}
		if w.Header().Get(RequestIDHeader) != "abc-123" {
			t.Error("Expected the client request id to be echoed")
		}
	})

	t.Run("absent outside the middleware", func(t *testing.T) {
		if id := RequestID(httptest.NewRequest("GET", "/", nil).Context()); id != "" {
			t.Errorf("Expected no request id, got %q", id)
		}
	})
}

func TestWithLogging_LogsStatus(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		status  float64
	}{
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(w, http.StatusConflict, "That action is not available right now")
			},
			status: http.StatusConflict,
		},
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("OK"))
			},
			status: http.StatusOK,
		},
		{
			name: "redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
			},
			status: http.StatusSeeOther,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logs := captureLogs(t)
			req := httptest.NewRequest("POST", "/end-voting", nil)
			req.Header.Set(RequestIDHeader, "req-1")

			WithLogging(tc.handler)(httptest.NewRecorder(), req)

			entry := completedEntry(t, logs)
			if entry["status"] != tc.status {
				t.Errorf("Expected logged status %v, got %v", tc.status, entry["status"])
			}
			if entry["request_id"] != "req-1" {
				t.Errorf("Expected request id req-1, got %v", entry["request_id"])
			}
			if entry["path"] != "/end-voting" {
				t.Errorf("Expected path /end-voting, got %v", entry["path"])
			}
		})
	}
}

func TestWithLogging_WebsocketUpgrade(t *testing.T) {
	logs := captureLogs(t)

	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	live := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade through the logging middleware failed: %v", err)
			return
		}
		defer conn.Close()
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(kind, msg)
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		live(w, r)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatal(err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "ping" {
		t.Errorf("Expected echo 'ping', got %q", msg)
	}

	<-done
	if entry := completedEntry(t, logs); entry["status"] != float64(http.StatusSwitchingProtocols) {
		t.Errorf("Expected logged status 101, got %v", entry["status"])
	}
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w}
	rec.Write([]byte("body"))
	rec.WriteHeader(http.StatusTeapot)

	if rec.status != http.StatusOK {
		t.Errorf("Expected implicit status 200 to stick, got %d", rec.status)
	}
	if rec.Unwrap() != w {
		t.Error("Expected Unwrap to return the underlying writer")
	}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("Expected hijack of a recorder to fail")
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(w, http.StatusBadGateway, "Transaction failed!")

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Bad Gateway" || resp.Message != "Transaction failed!" {
		t.Errorf("Unexpected envelope %+v", resp)
	}
}

func TestParseJSONBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/vote", strings.NewReader(`{"proposal":"Sam","votes":3}`))
	var vote models.VoteRequest
	if err := ParseJSONBody(req, &vote); err != nil {
		t.Fatal(err)
	}
	if vote.Proposal != "Sam" || vote.Votes != 3 {
		t.Errorf("Unexpected request %+v", vote)
	}

	req = httptest.NewRequest("POST", "/owner", strings.NewReader(`{"new_owner":`))
	var owner models.ChangeOwnerRequest
	if err := ParseJSONBody(req, &owner); err == nil {
		t.Error("Expected an error for truncated JSON")
	}
}

func TestCORS_API(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/state", CORS(WithLogging(func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, http.StatusOK, models.StateResponse{})
	})))
	mux.Handle("OPTIONS /api/", CORS(http.NotFoundHandler()))
	captureLogs(t)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/state", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("Expected the origin to be echoed, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, RequestIDHeader) {
			t.Errorf("Expected %s to be an allowed header, got %q", RequestIDHeader, got)
		}
	})

	t.Run("cross-origin read exposes the request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/state", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if w.Header().Get("Access-Control-Expose-Headers") != RequestIDHeader {
			t.Errorf("Expected %s to be exposed", RequestIDHeader)
		}
		if w.Header().Get(RequestIDHeader) == "" {
			t.Error("Expected a request id on the response")
		}
	})

	t.Run("no origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/state", nil))
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Expected wildcard origin, got %q", got)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:1", "203.0.113.195"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:1", "203.0.113.50"},
		{"remote with port", nil, "192.168.1.50:54321", "192.168.1.50"},
		{"remote without port", nil, "192.168.1.50", "192.168.1.50"},
		{"ipv6 remote", nil, "[::1]:12345", "::1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if got := GetClientIP(req); got != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, got)
			}
		})
	}
}
