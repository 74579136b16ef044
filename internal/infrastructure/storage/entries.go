package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"JournalSync/internal/domain"
)

var entryColumns = []string{
	"id", "client_entry_id", "author_id", "device_id", "region",
	"text_content", "transcript", "audio_url", "content",
	"grade", "subject", "topic", "tags",
	"status", "sentiment", "keywords", "embedding",
	"created_at", "updated_at", "analyzed_at",
}

// CreateEntry inserts a new entry row.
func (s *SQLStore) CreateEntry(ctx context.Context, entry domain.Entry) error {
	tags, err := encodeStrings(entry.Context.Tags)
	if err != nil {
		return err
	}
	keywords, err := encodeStrings(entry.Keywords)
	if err != nil {
		return err
	}
	embedding, err := encodeVector(entry.Embedding)
	if err != nil {
		return err
	}

	var sentiment sql.NullFloat64
	if entry.Sentiment != nil {
		sentiment = sql.NullFloat64{Float64: *entry.Sentiment, Valid: true}
	}
	var analyzedAt sql.NullInt64
	if entry.AnalyzedAt != nil {
		analyzedAt = sql.NullInt64{Int64: toNanos(*entry.AnalyzedAt), Valid: true}
	}

	insert := s.sb.Insert("entries").Columns(entryColumns...).Values(
		entry.ID, entry.ClientEntryID, entry.AuthorID, entry.DeviceID, entry.Region,
		entry.TextContent, entry.Transcript, entry.AudioURL, entry.Content,
		entry.Context.Grade, entry.Context.Subject, entry.Context.Topic, tags,
		string(entry.Status), sentiment, keywords, embedding,
		toNanos(entry.CreatedAt), toNanos(entry.UpdatedAt), analyzedAt,
	)

	if _, err := s.exec(ctx, s.db, insert); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry loads one entry by server ID.
func (s *SQLStore) GetEntry(ctx context.Context, id string) (domain.Entry, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

// FindByClientID loads the entry an author submitted under a client-generated ID.
func (s *SQLStore) FindByClientID(ctx context.Context, authorID, clientEntryID string) (domain.Entry, error) {
	return s.getOne(ctx, sq.Eq{"author_id": authorID, "client_entry_id": clientEntryID})
}

// LatestForAuthor returns the author's most recently updated entry, or nil.
func (s *SQLStore) LatestForAuthor(ctx context.Context, authorID string) (*domain.Entry, error) {
	entries, err := s.list(ctx, s.sb.Select(entryColumns...).From("entries").
		Where(sq.Eq{"author_id": authorID}).
		OrderBy("updated_at DESC", "id DESC").
		Limit(1))
	if err != nil {
		return nil, fmt.Errorf("latest entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ListEntries returns entries matching the filter in ascending creation order.
func (s *SQLStore) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error) {
	q := s.sb.Select(entryColumns...).From("entries")

	if filter.AuthorID != "" {
		q = q.Where(sq.Eq{"author_id": filter.AuthorID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if filter.Region != "" {
		q = q.Where(sq.Eq{"region": filter.Region})
	}
	if filter.CreatedAfter != nil {
		q = q.Where(sq.GtOrEq{"created_at": toNanos(*filter.CreatedAfter)})
	}
	if filter.CreatedBefore != nil {
		q = q.Where(sq.Lt{"created_at": toNanos(*filter.CreatedBefore)})
	}
	if filter.UpdatedAfter != nil {
		q = q.Where(sq.Gt{"updated_at": toNanos(*filter.UpdatedAfter)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	order := []string{"created_at ASC", "id ASC"}
	if filter.Newest {
		order = []string{"created_at DESC", "id DESC"}
	}

	entries, err := s.list(ctx, q.OrderBy(order...))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if filter.Newest {
		slices.Reverse(entries)
	}
	return entries, nil
}

// UpdateAnalysis stores the analysis output. Status moves from submitted to
// analyzed; an entry that is already clustered keeps its status. updated_at is
// left alone so analysis never looks like a client-visible modification.
func (s *SQLStore) UpdateAnalysis(ctx context.Context, id string, analysis domain.Analysis, embedding []float32, at time.Time) error {
	keywords, err := encodeStrings(analysis.Keywords)
	if err != nil {
		return err
	}
	vector, err := encodeVector(embedding)
	if err != nil {
		return err
	}

	update := s.sb.Update("entries").
		Set("sentiment", analysis.Sentiment).
		Set("keywords", keywords).
		Set("embedding", vector).
		Set("analyzed_at", toNanos(at)).
		Set("status", sq.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(domain.StatusSubmitted), string(domain.StatusAnalyzed))).
		Where(sq.Eq{"id": id})

	res, err := s.exec(ctx, s.db, update)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkClustered advances submitted and analyzed entries to clustered.
func (s *SQLStore) MarkClustered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	update := s.sb.Update("entries").
		Set("status", string(domain.StatusClustered)).
		Where(sq.Eq{"id": ids}).
		Where(sq.Eq{"status": []string{string(domain.StatusSubmitted), string(domain.StatusAnalyzed)}})

	if _, err := s.exec(ctx, s.db, update); err != nil {
		return fmt.Errorf("mark clustered: %w", err)
	}
	return nil
}

// TouchAuthor records the author's latest device and activity time.
func (s *SQLStore) TouchAuthor(ctx context.Context, authorID, deviceID string, at time.Time) error {
	upsert := s.sb.Insert("authors").
		Columns("id", "last_device_id", "last_active_at").
		Values(authorID, deviceID, toNanos(at)).
		Suffix("ON CONFLICT (id) DO UPDATE SET last_device_id = excluded.last_device_id, last_active_at = excluded.last_active_at")

	if _, err := s.exec(ctx, s.db, upsert); err != nil {
		return fmt.Errorf("touch author: %w", err)
	}
	return nil
}

// GetAuthor loads the activity record of one author.
func (s *SQLStore) GetAuthor(ctx context.Context, authorID string) (domain.Author, error) {
	query, args, err := s.sb.Select("id", "last_device_id", "last_active_at").
		From("authors").
		Where(sq.Eq{"id": authorID}).
		ToSql()
	if err != nil {
		return domain.Author{}, fmt.Errorf("build query: %w", err)
	}

	var (
		author domain.Author
		active int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&author.ID, &author.LastDeviceID, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Author{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Author{}, fmt.Errorf("get author: %w", err)
	}
	author.LastActiveAt = fromNanos(active)
	return author, nil
}

func (s *SQLStore) getOne(ctx context.Context, where sq.Sqlizer) (domain.Entry, error) {
	entries, err := s.list(ctx, s.sb.Select(entryColumns...).From("entries").Where(where).Limit(1))
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	if len(entries) == 0 {
		return domain.Entry{}, domain.ErrNotFound
	}
	return entries[0], nil
}

func (s *SQLStore) list(ctx context.Context, q sq.SelectBuilder) ([]domain.Entry, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}

	var entries []domain.Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, closeRows(rows, scanErr)
		}
		entries = append(entries, entry)
	}

	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.Entry, error) {
	var (
		e          domain.Entry
		tags       string
		status     string
		sentiment  sql.NullFloat64
		keywords   string
		embedding  sql.NullString
		createdAt  int64
		updatedAt  int64
		analyzedAt sql.NullInt64
	)

	err := rows.Scan(
		&e.ID, &e.ClientEntryID, &e.AuthorID, &e.DeviceID, &e.Region,
		&e.TextContent, &e.Transcript, &e.AudioURL, &e.Content,
		&e.Context.Grade, &e.Context.Subject, &e.Context.Topic, &tags,
		&status, &sentiment, &keywords, &embedding,
		&createdAt, &updatedAt, &analyzedAt,
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	if e.Context.Tags, err = decodeStrings(tags); err != nil {
		return domain.Entry{}, err
	}
	if e.Keywords, err = decodeStrings(keywords); err != nil {
		return domain.Entry{}, err
	}
	if e.Embedding, err = decodeVector(embedding); err != nil {
		return domain.Entry{}, err
	}

	e.Status = domain.EntryStatus(status)
	if sentiment.Valid {
		v := sentiment.Float64
		e.Sentiment = &v
	}
	e.CreatedAt = fromNanos(createdAt)
	e.UpdatedAt = fromNanos(updatedAt)
	if analyzedAt.Valid {
		t := fromNanos(analyzedAt.Int64)
		e.AnalyzedAt = &t
	}
	return e, nil
}
