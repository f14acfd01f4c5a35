// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers wrap them with %w and match with errors.Is.
var (
	// Fingerprinting errors
	ErrInvalidPlan    = errors.New("spamprint: invalid sampling plan")
	ErrDigestNotReady = errors.New("spamprint: digest not calculated yet")
	ErrDigesterReused = errors.New("spamprint: digester already consumed input")

	// Credential errors
	ErrInvalidKeystuff = errors.New("spamprint: invalid keystuff")
	ErrInvalidUsername = errors.New("spamprint: invalid username")
	ErrInvalidAddress  = errors.New("spamprint: invalid server address")

	// Communication errors
	ErrTimeout           = errors.New("spamprint: timeout waiting for server reply")
	ErrProtocol          = errors.New("spamprint: protocol violation")
	ErrMalformedMessage  = errors.New("spamprint: malformed message")
	ErrIncompleteMessage = errors.New("spamprint: incomplete message")
	ErrFieldMissing      = errors.New("spamprint: field not present")
	ErrSignatureMismatch = errors.New("spamprint: signature mismatch")
	ErrStaleTimestamp    = errors.New("spamprint: message timestamp out of range")

	// Configuration errors
	ErrConfigInvalid = errors.New("spamprint: invalid configuration")
	ErrNoServers     = errors.New("spamprint: no servers available")
)
