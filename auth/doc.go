// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides form tokens for the dashboard's command forms.

Identity belongs to the wallet provider; this package only makes sure a form
was rendered for the account that is current when it is submitted. If the
wallet switches accounts between render and submit, the token no longer
validates and the command is refused instead of being sent from an account the
user did not see.

# Form Tokens

Form tokens use HMAC-SHA256 over the lowercased account address:

	token := auth.GenerateFormToken(account, secret)
	err := auth.ValidateFormToken(account, token, secret)

The token is URL-safe base64 encoded without padding. Since it's deterministic,
validation needs no server-side storage.

# Errors

	ErrMissingFormToken - no token submitted
	ErrInvalidFormToken - token was issued for another account or secret
*/
package auth
