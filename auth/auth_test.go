// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateFormToken(t *testing.T) {
	tests := []struct {
		name    string
		account string
		salt    string
	}{
		{"standard", "0x2222222222222222222222222222222222222222", "secret-salt"},
		{"empty account", "", "salt"},
		{"empty salt", "0x1111111111111111111111111111111111111111", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := GenerateFormToken(tt.account, tt.salt)

			// Should not be empty
			if token == "" {
				t.Error("GenerateFormToken() returned empty string")
			}

			// Should be deterministic
			if token != GenerateFormToken(tt.account, tt.salt) {
				t.Error("GenerateFormToken() is not deterministic")
			}

			// Should be URL-safe (no +, /, or =)
			if strings.ContainsAny(token, "+/=") {
				t.Errorf("GenerateFormToken() contains non-URL-safe chars: %s", token)
			}

			// Different accounts should produce different tokens
			if tt.salt != "" {
				if token == GenerateFormToken(tt.account+"0", tt.salt) {
					t.Error("GenerateFormToken() produced same token for different accounts")
				}
			}
		})
	}
}

func TestGenerateFormToken_CaseInsensitive(t *testing.T) {
	lower := GenerateFormToken("0xabcdef0000000000000000000000000000000001", "salt")
	mixed := GenerateFormToken("0xABCdef0000000000000000000000000000000001", "salt")
	if lower != mixed {
		t.Error("tokens should not depend on address checksum casing")
	}
}

func TestValidateFormToken(t *testing.T) {
	salt := "test-salt"
	account := "0x2222222222222222222222222222222222222222"
	valid := GenerateFormToken(account, salt)

	tests := []struct {
		name    string
		account string
		token   string
		salt    string
		wantErr error
	}{
		{"valid token", account, valid, salt, nil},
		{"missing token", account, "", salt, ErrMissingFormToken},
		{"other account", "0x3333333333333333333333333333333333333333", valid, salt, ErrInvalidFormToken},
		{"wrong salt", account, valid, "wrong", ErrInvalidFormToken},
		{"garbage", account, "not-a-token", salt, ErrInvalidFormToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormToken(tt.account, tt.token, tt.salt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFormToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
