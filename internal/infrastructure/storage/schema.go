package storage

// Timestamps are stored as unix nanoseconds so both dialects compare them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		id             TEXT PRIMARY KEY,
		last_device_id TEXT NOT NULL DEFAULT '',
		last_active_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		id              TEXT PRIMARY KEY,
		client_entry_id TEXT NOT NULL,
		author_id       TEXT NOT NULL,
		device_id       TEXT NOT NULL DEFAULT '',
		region          TEXT NOT NULL DEFAULT '',
		text_content    TEXT NOT NULL DEFAULT '',
		transcript      TEXT NOT NULL DEFAULT '',
		audio_url       TEXT NOT NULL DEFAULT '',
		content         TEXT NOT NULL,
		grade           TEXT NOT NULL DEFAULT '',
		subject         TEXT NOT NULL DEFAULT '',
		topic           TEXT NOT NULL DEFAULT '',
		tags            TEXT NOT NULL DEFAULT '[]',
		status          TEXT NOT NULL,
		sentiment       DOUBLE PRECISION,
		keywords        TEXT NOT NULL DEFAULT '[]',
		embedding       TEXT,
		created_at      BIGINT NOT NULL,
		updated_at      BIGINT NOT NULL,
		analyzed_at     BIGINT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS entries_author_client_idx ON entries (author_id, client_entry_id)`,
	`CREATE INDEX IF NOT EXISTS entries_author_updated_idx ON entries (author_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS entries_status_created_idx ON entries (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS clusters (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		keywords     TEXT NOT NULL DEFAULT '[]',
		priority     TEXT NOT NULL,
		sentiment    DOUBLE PRECISION,
		confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
		active       INTEGER NOT NULL DEFAULT 1,
		region       TEXT NOT NULL DEFAULT '',
		member_count INTEGER NOT NULL DEFAULT 0,
		created_at   BIGINT NOT NULL,
		updated_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS clusters_created_idx ON clusters (created_at)`,
	`CREATE TABLE IF NOT EXISTS cluster_members (
		cluster_id TEXT NOT NULL,
		entry_id   TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (cluster_id, entry_id)
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		severity   TEXT NOT NULL,
		message    TEXT NOT NULL,
		entry_ids  TEXT NOT NULL DEFAULT '[]',
		cluster_id TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_created_idx ON alerts (created_at)`,
}
