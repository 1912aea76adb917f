// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package icerr defines the error kinds reported by the compositing
// core and a synchronous diagnostics channel for publishing them.
package icerr

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Kind identifies the class of a core error.
type Kind int

// Error kinds.
const (
	// InvalidEnum means an unknown state slot identifier was used.
	InvalidEnum Kind = iota
	// InvalidValue means an argument was out of range, or a handle
	// (e.g., a Context) failed validation.
	InvalidValue
	// BadCast means a type conversion was refused (e.g., a
	// floating-point read of an enumerated slot, or any conversion
	// on a pointer slot).
	BadCast
	// OutOfMemory means an allocation failed.
	OutOfMemory
	// SanityCheckFail means an internal invariant was violated
	// (a malformed sparse header, an under-provisioned buffer).
	SanityCheckFail
)

func (k Kind) String() string {
	switch k {
	case InvalidEnum:
		return "invalid_enum"
	case InvalidValue:
		return "invalid_value"
	case BadCast:
		return "bad_cast"
	case OutOfMemory:
		return "out_of_memory"
	case SanityCheckFail:
		return "sanity_check_fail"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by the core.
// Op names the operation that failed (e.g., "state.Store.GetI32Vec").
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// New creates an Error of the given kind and reports it on the
// diagnostics channel before returning it.
func New(kind Kind, op, msg string) *Error {
	e := &Error{Kind: kind, Op: op, Msg: msg}
	Report(e)
	return e
}

// Diagnostics channel.
//
// No example in the pack exercises a third-party structured-logging
// library with a real call site, so this mirrors the teacher's own
// practice (driver.Register logs with plain log.Printf) using the
// standard library's structured logger instead of inventing a bespoke
// one.
var (
	logger atomic.Pointer[slog.Logger]

	lastMu  sync.Mutex
	lastErr *Error
)

// SetLogger installs the logger used for severity-filtered reporting.
// A nil logger disables logging without disabling the last-error slot.
func SetLogger(l *slog.Logger) { logger.Store(l) }

// Report publishes err to the diagnostics channel: it updates the
// most-recent-error slot and, if a logger is installed, emits a log
// record. No error is silently swallowed by the core; every call that
// can fail calls Report exactly once via New.
func Report(err *Error) {
	lastMu.Lock()
	lastErr = err
	lastMu.Unlock()
	if l := logger.Load(); l != nil {
		l.Error("compositing error", "op", err.Op, "kind", err.Kind.String(), "msg", err.Msg)
	}
}

// LastError returns the most recently reported error, or nil if none
// has been reported since the last call to ClearLastError.
func LastError() *Error {
	lastMu.Lock()
	defer lastMu.Unlock()
	return lastErr
}

// ClearLastError resets the most-recent-error slot.
func ClearLastError() {
	lastMu.Lock()
	lastErr = nil
	lastMu.Unlock()
}
