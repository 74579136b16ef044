package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
	"JournalSync/internal/textnorm"
)

// SyncDeps wires the driven adapters used by the sync coordinator.
type SyncDeps struct {
	Store  ports.EntryStore
	Queue  ports.TaskQueue
	Logger *slog.Logger
	Clock  func() time.Time
}

// SyncCoordinator merges client batches into server state.
type SyncCoordinator struct {
	store  ports.EntryStore
	queue  ports.TaskQueue
	logger *slog.Logger
	now    func() time.Time
	locks  *keyedMutex
}

// NewSyncCoordinator constructs the coordinator.
func NewSyncCoordinator(deps SyncDeps) *SyncCoordinator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SyncCoordinator{
		store:  deps.Store,
		queue:  deps.Queue,
		logger: logger,
		now:    func() time.Time { return clock().UTC() },
		locks:  newKeyedMutex(),
	}
}

// ProcessBatch reconciles every entry of the batch and reports one outcome per entry.
//
// Entries are processed sequentially against a snapshot of the author's
// latest server entry taken once at the start of the batch, so an entry
// accepted earlier in the same batch never becomes a conflict source for a
// later one. Batches of the same author are serialized; per-entry failures
// are recorded and never abort sibling entries.
func (c *SyncCoordinator) ProcessBatch(ctx context.Context, batch domain.SyncBatch) (domain.SyncOutcome, error) {
	if batch.Entries == nil {
		return domain.SyncOutcome{}, domain.ErrMalformedBatch
	}
	if strings.TrimSpace(batch.AuthorID) == "" {
		return domain.SyncOutcome{}, fmt.Errorf("%w: authorId is required", domain.ErrMalformedBatch)
	}

	unlock := c.locks.Lock(batch.AuthorID)
	defer unlock()

	outcome := domain.NewSyncOutcome()
	logger := c.logger.With("author", batch.AuthorID, "device", batch.DeviceID)

	latest, err := c.store.LatestForAuthor(ctx, batch.AuthorID)
	if err != nil {
		logger.Error("load latest entry", "error", err)
		for _, entry := range batch.Entries {
			outcome.Errors = append(outcome.Errors, domain.SyncError{
				ClientID: entry.ClientEntryID,
				Error:    fmt.Sprintf("load server state: %v", err),
			})
		}
		outcome.SyncedAt = c.now()
		return outcome, nil
	}

	for _, entry := range batch.Entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Errors = append(outcome.Errors, domain.SyncError{
				ClientID: entry.ClientEntryID,
				Error:    ctxErr.Error(),
			})
			continue
		}
		c.processEntry(ctx, logger, batch, entry, latest, &outcome)
	}

	now := c.now()
	if err := c.store.TouchAuthor(ctx, batch.AuthorID, batch.DeviceID, now); err != nil {
		logger.Warn("touch author", "error", err)
	}
	outcome.SyncedAt = now

	logger.Info("batch processed",
		"entries", len(batch.Entries),
		"synced", len(outcome.Synced),
		"conflicts", len(outcome.Conflicts),
		"errors", len(outcome.Errors),
	)
	return outcome, nil
}

func (c *SyncCoordinator) processEntry(
	ctx context.Context,
	logger *slog.Logger,
	batch domain.SyncBatch,
	client domain.ClientEntry,
	latest *domain.Entry,
	outcome *domain.SyncOutcome,
) {
	recordErr := func(err error) {
		logger.Warn("entry rejected", "client_entry", client.ClientEntryID, "error", err)
		outcome.Errors = append(outcome.Errors, domain.SyncError{
			ClientID: client.ClientEntryID,
			Error:    err.Error(),
		})
	}
	recordConflict := func(serverID, reason string) {
		logger.Info("entry conflict", "client_entry", client.ClientEntryID, "server_entry", serverID, "reason", reason)
		outcome.Conflicts = append(outcome.Conflicts, domain.SyncConflict{
			ClientID: client.ClientEntryID,
			ServerID: serverID,
			Reason:   reason,
		})
	}

	if strings.TrimSpace(client.ClientEntryID) == "" {
		recordErr(errors.New("clientEntryId is required"))
		return
	}

	content, ok := textnorm.Content(client.TextContent, client.Transcript)
	if !ok {
		recordErr(&domain.EmptyContentError{ClientEntryID: client.ClientEntryID})
		return
	}

	existing, err := c.store.FindByClientID(ctx, batch.AuthorID, client.ClientEntryID)
	switch {
	case err == nil:
		recordConflict(existing.ID, domain.ConflictReasonDuplicate)
		return
	case !errors.Is(err, domain.ErrNotFound):
		recordErr(fmt.Errorf("lookup client entry: %w", err))
		return
	}

	if res := ResolveConflict(client, latest, batch.LastSyncAt); !res.Accepted() {
		recordConflict(res.ServerID, res.Reason)
		return
	}

	entry := c.newEntry(batch, client, content)
	if err := c.store.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			serverID := ""
			if dup, findErr := c.store.FindByClientID(ctx, batch.AuthorID, client.ClientEntryID); findErr == nil {
				serverID = dup.ID
			}
			recordConflict(serverID, domain.ConflictReasonDuplicate)
			return
		}
		recordErr(&domain.StoreWriteError{Op: "create entry", Err: err})
		return
	}

	outcome.Synced = append(outcome.Synced, entry.ID)
	if c.queue != nil {
		c.queue.Enqueue(entry.ID)
	}
}

func (c *SyncCoordinator) newEntry(batch domain.SyncBatch, client domain.ClientEntry, content string) domain.Entry {
	now := c.now()
	created := client.CreatedAt.UTC()
	if client.CreatedAt.IsZero() {
		created = now
	}

	return domain.Entry{
		ID:            uuid.NewString(),
		ClientEntryID: client.ClientEntryID,
		AuthorID:      batch.AuthorID,
		DeviceID:      batch.DeviceID,
		Region:        batch.Region,
		TextContent:   client.TextContent,
		Transcript:    client.Transcript,
		AudioURL:      client.AudioURL,
		Content:       content,
		Context: domain.EntryContext{
			Grade:   strings.TrimSpace(client.Grade),
			Subject: strings.TrimSpace(client.Subject),
			Topic:   strings.TrimSpace(client.Topic),
			Tags:    client.TopicTags,
		},
		Status:    domain.StatusSubmitted,
		Keywords:  []string{},
		CreatedAt: created,
		UpdatedAt: now,
	}
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
