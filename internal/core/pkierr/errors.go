// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pkierr defines the error taxonomy shared across the SSH PKI core.
// Every error surfaced above the wire/container parsers carries a Kind so
// callers can branch on error class (as the C original's SSH_OK/SSH_ERROR/
// SSH_EOF exit codes let callers branch on outcome) without parsing message
// text, while still getting a normal wrapped error for %w/errors.Is chains.
package pkierr

import "errors"

// Kind classifies a PKI error into one of the seven classes from the
// component's error-handling design.
type Kind int

const (
	// KindInput covers null/empty arguments, unknown algorithm identifiers,
	// and files larger than the configured size cap.
	KindInput Kind = iota
	// KindNotFound covers a missing or unreadable source file.
	KindNotFound
	// KindParse covers malformed containers, truncated wire blobs, and
	// mismatched lengths.
	KindParse
	// KindPassphrase covers OpenSSH v1 check-byte mismatches and PEM
	// decrypt failures. Deliberately generic: it must never leak *why*
	// decryption failed, to avoid acting as a decryption oracle.
	KindPassphrase
	// KindCrypto covers provider-side failures during generate/sign/verify.
	KindCrypto
	// KindCompat covers hash/algorithm mismatches, FIPS violations, and
	// signature-algorithm/key-algorithm mismatches.
	KindCompat
	// KindMemory covers allocation failures.
	KindMemory
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	case KindPassphrase:
		return "passphrase"
	case KindCrypto:
		return "crypto"
	case KindCompat:
		return "compat"
	case KindMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Error is a PKI error carrying a Kind alongside the usual message/cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel for the same Kind, so callers can
// write errors.Is(err, pkierr.Passphrase) instead of matching strings.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinels for errors.Is checks against a bare Kind, independent of message.
var (
	Input      = &Error{Kind: KindInput}
	NotFound   = &Error{Kind: KindNotFound}
	Parse      = &Error{Kind: KindParse}
	Passphrase = &Error{Kind: KindPassphrase}
	Crypto     = &Error{Kind: KindCrypto}
	Compat     = &Error{Kind: KindCompat}
	Memory     = &Error{Kind: KindMemory}
)

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
