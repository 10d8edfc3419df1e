package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorOperationInFlight is returned when another status change for the same
// purchase is still running.
var ErrorOperationInFlight = errors.New("another operation for this purchase is in progress")

// ValidationError blocks a mutation before any write happens.
// Warnings do not block; they are surfaced so the caller can confirm.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// SyncError means the warehouse apply/reverse failed after retries were
// exhausted. RolledBack reports whether a compensating status write restored
// the purchase to its pre-call state.
type SyncError struct {
	Op         string
	RolledBack bool
	Err        error
}

func (e *SyncError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s failed (status rolled back): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// PartialBatchFailure reports a bulk operation where some units succeeded and
// some failed; the caller gets counts and per-unit messages, not one flag.
type PartialBatchFailure struct {
	Successful int
	Failed     int
	Failures   map[string]string
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d dari %d gagal dihapus", e.Failed, e.Successful+e.Failed)
}
