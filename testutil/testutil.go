// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/db"
)

// TestFormSecret signs form tokens in tests
const TestFormSecret = "test-form-secret"

// SetupTestStore opens a fresh in-memory SQLite database with the full schema
func SetupTestStore(t *testing.T) (*db.Store, *sql.DB) {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db.NewStore(conn), conn
}

// GetTestConfig returns a standard test configuration pointed at the fake chain
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		RPCURL:           "http://127.0.0.1:8545",
		WalletURL:        "http://127.0.0.1:8545",
		ContractAddress:  ContractAddress.Hex(),
		SecondaryManager: SecondaryAddress.Hex(),
		VotePriceWei:     "10000000000000000",
		DatabaseType:     db.TypeSQLite,
		DatabaseURL:      ":memory:",
		FormSecret:       TestFormSecret,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// MakeFormRequest creates a url-encoded form POST like the dashboard page sends
func MakeFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
