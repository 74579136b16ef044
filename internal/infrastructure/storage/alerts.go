package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"JournalSync/internal/domain"
)

// SaveAlerts inserts alerts. Existing IDs are left untouched: alerts are write-once.
func (s *SQLStore) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	insert := s.sb.Insert("alerts").
		Columns("id", "category", "severity", "message", "entry_ids", "cluster_id", "created_at")
	for _, a := range alerts {
		entryIDs, err := encodeStrings(a.EntryIDs)
		if err != nil {
			return err
		}
		insert = insert.Values(a.ID, string(a.Category), string(a.Severity), a.Message,
			entryIDs, a.ClusterID, toNanos(a.CreatedAt))
	}
	insert = insert.Suffix("ON CONFLICT (id) DO NOTHING")

	if _, err := s.exec(ctx, s.db, insert); err != nil {
		return fmt.Errorf("insert alerts: %w", err)
	}
	return nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *SQLStore) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	q := s.sb.Select("id", "category", "severity", "message", "entry_ids", "cluster_id", "created_at").
		From("alerts")
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": string(filter.Category)})
	}
	if filter.CreatedAfter != nil {
		q = q.Where(sq.GtOrEq{"created_at": toNanos(*filter.CreatedAfter)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	rows, err := s.query(ctx, q.OrderBy("created_at DESC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	var alerts []domain.Alert
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, closeRows(rows, scanErr)
		}
		alerts = append(alerts, alert)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return alerts, nil
}

func scanAlert(rows *sql.Rows) (domain.Alert, error) {
	var (
		a         domain.Alert
		category  string
		severity  string
		entryIDs  string
		createdAt int64
	)
	if err := rows.Scan(&a.ID, &category, &severity, &a.Message, &entryIDs, &a.ClusterID, &createdAt); err != nil {
		return domain.Alert{}, fmt.Errorf("scan alert: %w", err)
	}

	ids, err := decodeStrings(entryIDs)
	if err != nil {
		return domain.Alert{}, err
	}
	a.EntryIDs = ids
	a.Category = domain.AlertCategory(category)
	a.Severity = domain.Priority(severity)
	a.CreatedAt = fromNanos(createdAt)
	return a, nil
}
