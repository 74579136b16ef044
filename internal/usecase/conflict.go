package usecase

import (
	"time"

	"JournalSync/internal/domain"
)

// Resolution is the verdict of ResolveConflict for one client entry.
type Resolution struct {
	Conflict bool
	ServerID string
	Reason   string
}

// Accepted reports whether the client entry may be persisted.
func (r Resolution) Accepted() bool {
	return !r.Conflict
}

// ResolveConflict decides whether a client entry collides with server state.
//
// Without a last sync point the client has never synced and is always
// accepted. Otherwise the entry conflicts when the author's latest server
// entry was updated after the client's last sync and the client entry was
// created before that update.
//
// The rule compares a single latest entry per author, so an author writing
// from several devices concurrently can see false conflicts.
func ResolveConflict(client domain.ClientEntry, latest *domain.Entry, lastSync *time.Time) Resolution {
	if lastSync == nil || latest == nil {
		return Resolution{}
	}

	serverUpdate := latest.UpdatedAt
	if serverUpdate.After(*lastSync) && client.CreatedAt.Before(serverUpdate) {
		return Resolution{
			Conflict: true,
			ServerID: latest.ID,
			Reason:   domain.ConflictReasonModified,
		}
	}

	return Resolution{}
}
