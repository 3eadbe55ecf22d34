package app

import "errors"

var (
	// ErrSessionNotFound is returned for any operation against a token that
	// has no live session (never created, expired, or already ended).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionFull is returned when a join races against an already
	// occupied responder slot. The slot is immutable once set.
	ErrSessionFull = errors.New("session full")
)
