package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedBatch is the only request-level sync failure: the entries array is missing.
	ErrMalformedBatch = errors.New("malformed batch: entries array is required")
	// ErrNotFound is returned by stores for unknown identifiers.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry is returned when (author, clientEntryId) already exists.
	ErrDuplicateEntry = errors.New("duplicate client entry")
)

// ConflictReasonModified is reported when server state advanced past the client's last sync.
const ConflictReasonModified = "modified after last sync"

// ConflictReasonDuplicate is reported when a client entry was already accepted earlier.
const ConflictReasonDuplicate = "already synced"

// EmptyContentError marks an entry whose text and transcript are both empty after normalization.
type EmptyContentError struct {
	ClientEntryID string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("entry %s has no text content or transcript", e.ClientEntryID)
}

// ConflictError is a recorded outcome rather than a failure.
type ConflictError struct {
	ClientEntryID string
	ServerEntryID string
	Reason        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entry %s conflicts with %s: %s", e.ClientEntryID, e.ServerEntryID, e.Reason)
}

// ProviderUnavailableError wraps a failed call to an analysis provider.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("analysis provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ProviderTimeoutError marks a provider call that exceeded its deadline.
type ProviderTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("analysis provider %s timed out after %s", e.Provider, e.Timeout)
}

// StoreWriteError wraps a failed persistence operation.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
