// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrMissingFormToken = errors.New("missing form token")
	ErrInvalidFormToken = errors.New("invalid form token")
)

// GenerateFormToken creates an HMAC-based token for forms rendered for account.
// This is deterministic and verifiable; it changes whenever the account does.
func GenerateFormToken(account, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("form:"))
	h.Write([]byte(strings.ToLower(account)))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner tokens
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateFormToken checks that token was issued for account.
// Account comparison is case-insensitive, like addresses.
func ValidateFormToken(account, token, salt string) error {
	if token == "" {
		return ErrMissingFormToken
	}
	expected := GenerateFormToken(account, salt)
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return ErrInvalidFormToken
	}
	return nil
}
