package chain

import (
	"errors"
	"fmt"
)

// ChainIntegrityViolation reports an append that would corrupt the
// bit-chain: a stale or missing previous-state hash, a duplicate event id,
// or an out-of-order write. The append is rejected with no partial effect.
type ChainIntegrityViolation struct {
	// Code identifies the violation category.
	Code ChainErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the offending event when known.
	EventID string

	// Expected and Actual carry the hash pair for mismatch violations.
	Expected string
	Actual   string
}

// ChainErrorCode categorizes chain integrity violations.
type ChainErrorCode string

const (
	// ErrCodePrevHashMismatch indicates previous_state_hash does not match
	// the manifestation's current state hash.
	ErrCodePrevHashMismatch ChainErrorCode = "PREV_HASH_MISMATCH"

	// ErrCodeNewHashMismatch indicates a caller-supplied new_state_hash
	// disagrees with the recomputed post-mutation state hash.
	ErrCodeNewHashMismatch ChainErrorCode = "NEW_HASH_MISMATCH"

	// ErrCodeDuplicateEventID indicates the event id already exists in this
	// manifestation's log.
	ErrCodeDuplicateEventID ChainErrorCode = "DUPLICATE_EVENT_ID"

	// ErrCodeOutOfOrder indicates a null previous_state_hash on a non-first
	// event, or a non-null one on the first.
	ErrCodeOutOfOrder ChainErrorCode = "OUT_OF_ORDER_APPEND"
)

// Error implements the error interface.
func (e *ChainIntegrityViolation) Error() string {
	if e.Expected != "" || e.Actual != "" {
		return fmt.Sprintf("%s: %s (expected=%s, actual=%s)", e.Code, e.Message, e.Expected, e.Actual)
	}
	if e.EventID != "" {
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.EventID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIntegrityViolation returns true if the error is a
// ChainIntegrityViolation. Uses errors.As to handle wrapped errors.
func IsIntegrityViolation(err error) bool {
	var cv *ChainIntegrityViolation
	return errors.As(err, &cv)
}
