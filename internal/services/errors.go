package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the public-access token path. The public handler
// collapses all three into one generic response so the failure mode
// cannot be used as an oracle for guessing tokens.
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
)

var ErrNotFound = errors.New("record not found")

// ErrSendPending means another send owns the dispatch claim for a quote
// that is still draft. The caller retries once that send completes or
// releases its claim.
var ErrSendPending = errors.New("quote send already in progress")

// ErrInvalidState is matched by errors.Is on any InvalidStateError.
var ErrInvalidState = errors.New("invalid state transition")

// InvalidStateError reports an illegal lifecycle transition.
type InvalidStateError struct {
	QuoteID uint
	From    string
	To      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("quote %d: cannot transition from %s to %s", e.QuoteID, e.From, e.To)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// DispatchError wraps an email transport failure. The quote state is
// untouched when one of these is returned, so the caller can retry.
type DispatchError struct {
	QuoteID uint
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("quote %d: email dispatch failed: %v", e.QuoteID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
