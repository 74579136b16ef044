package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"JournalSync/internal/domain"
)

var clusterColumns = []string{
	"id", "title", "keywords", "priority", "sentiment", "confidence",
	"active", "region", "member_count", "created_at", "updated_at",
}

// SaveCluster upserts the cluster and its memberships in one transaction.
// Re-saving an existing cluster refreshes its attributes but keeps created_at.
func (s *SQLStore) SaveCluster(ctx context.Context, cluster domain.Cluster) error {
	keywords, err := encodeStrings(cluster.Keywords)
	if err != nil {
		return err
	}
	var sentiment sql.NullFloat64
	if cluster.Sentiment != nil {
		sentiment = sql.NullFloat64{Float64: *cluster.Sentiment, Valid: true}
	}
	active := 0
	if cluster.Active {
		active = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cluster tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := s.sb.Insert("clusters").Columns(clusterColumns...).Values(
		cluster.ID, cluster.Title, keywords, string(cluster.Priority), sentiment, cluster.Confidence,
		active, cluster.Region, len(cluster.EntryIDs), toNanos(cluster.CreatedAt), toNanos(cluster.UpdatedAt),
	).Suffix(`ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		keywords = excluded.keywords,
		priority = excluded.priority,
		sentiment = excluded.sentiment,
		confidence = excluded.confidence,
		active = excluded.active,
		region = excluded.region,
		member_count = excluded.member_count,
		updated_at = excluded.updated_at`)

	if _, err := s.exec(ctx, tx, upsert); err != nil {
		return fmt.Errorf("upsert cluster: %w", err)
	}

	if len(cluster.EntryIDs) > 0 {
		members := s.sb.Insert("cluster_members").Columns("cluster_id", "entry_id", "position")
		for i, entryID := range cluster.EntryIDs {
			members = members.Values(cluster.ID, entryID, i)
		}
		members = members.Suffix("ON CONFLICT (cluster_id, entry_id) DO NOTHING")

		if _, err := s.exec(ctx, tx, members); err != nil {
			return fmt.Errorf("insert memberships: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cluster tx: %w", err)
	}
	return nil
}

// ListClusters returns clusters matching the filter, oldest first, with member IDs.
func (s *SQLStore) ListClusters(ctx context.Context, filter domain.ClusterFilter) ([]domain.Cluster, error) {
	q := s.sb.Select(clusterColumns...).From("clusters")
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"active": 1})
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
	if filter.MinMembers > 0 {
		q = q.Where(sq.GtOrEq{"member_count": filter.MinMembers})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	rows, err := s.query(ctx, q.OrderBy("created_at ASC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	var (
		clusters []domain.Cluster
		index    = map[string]int{}
	)
	for rows.Next() {
		cluster, scanErr := scanCluster(rows)
		if scanErr != nil {
			return nil, closeRows(rows, scanErr)
		}
		index[cluster.ID] = len(clusters)
		clusters = append(clusters, cluster)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}

	if len(clusters) == 0 {
		return clusters, nil
	}

	ids := make([]string, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID
	}
	memberRows, err := s.query(ctx, s.sb.Select("cluster_id", "entry_id").
		From("cluster_members").
		Where(sq.Eq{"cluster_id": ids}).
		OrderBy("cluster_id", "position"))
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	for memberRows.Next() {
		var clusterID, entryID string
		if err := memberRows.Scan(&clusterID, &entryID); err != nil {
			return nil, closeRows(memberRows, fmt.Errorf("scan membership: %w", err))
		}
		if i, ok := index[clusterID]; ok {
			clusters[i].EntryIDs = append(clusters[i].EntryIDs, entryID)
		}
	}
	if err := closeRows(memberRows, nil); err != nil {
		return nil, err
	}

	return clusters, nil
}

func scanCluster(rows *sql.Rows) (domain.Cluster, error) {
	var (
		c         domain.Cluster
		keywords  string
		priority  string
		sentiment sql.NullFloat64
		active    int
		members   int
		createdAt int64
		updatedAt int64
	)
	err := rows.Scan(&c.ID, &c.Title, &keywords, &priority, &sentiment, &c.Confidence,
		&active, &c.Region, &members, &createdAt, &updatedAt)
	if err != nil {
		return domain.Cluster{}, fmt.Errorf("scan cluster: %w", err)
	}

	if c.Keywords, err = decodeStrings(keywords); err != nil {
		return domain.Cluster{}, err
	}
	c.Priority = domain.Priority(priority)
	if sentiment.Valid {
		v := sentiment.Float64
		c.Sentiment = &v
	}
	c.Active = active != 0
	c.EntryIDs = make([]string, 0, members)
	c.CreatedAt = fromNanos(createdAt)
	c.UpdatedAt = fromNanos(updatedAt)
	return c, nil
}
