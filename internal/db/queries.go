package db

import (
	"context"
	"database/sql"
	"time"
)

type Fingerprint struct {
	ID           int64     `json:"id" yaml:"id"`
	Archive      string    `json:"archive" yaml:"archive"`
	Fingerprint  string    `json:"fingerprint" yaml:"fingerprint"`
	AssetCount   int64     `json:"asset_count" yaml:"asset_count"`
	MissingCount int64     `json:"missing_count" yaml:"missing_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

type InsertFingerprintParams struct {
	Archive      string
	Fingerprint  string
	AssetCount   int64
	MissingCount int64
	CreatedAt    time.Time
}

type Queries struct {
	db *sql.DB
}

const insertFingerprint = `
INSERT INTO fingerprints (archive, fingerprint, asset_count, missing_count, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, archive, fingerprint, asset_count, missing_count, created_at
`

func (q *Queries) InsertFingerprint(ctx context.Context, arg InsertFingerprintParams) (Fingerprint, error) {
	row := q.db.QueryRowContext(ctx, insertFingerprint,
		arg.Archive,
		arg.Fingerprint,
		arg.AssetCount,
		arg.MissingCount,
		arg.CreatedAt.UTC(),
	)
	return scanFingerprint(row)
}

const latestFingerprint = `
SELECT id, archive, fingerprint, asset_count, missing_count, created_at
FROM fingerprints
WHERE archive = ?
ORDER BY id DESC
LIMIT 1
`

// LatestFingerprint returns sql.ErrNoRows when nothing was recorded for archive.
func (q *Queries) LatestFingerprint(ctx context.Context, archive string) (Fingerprint, error) {
	row := q.db.QueryRowContext(ctx, latestFingerprint, archive)
	return scanFingerprint(row)
}

const listFingerprints = `
SELECT id, archive, fingerprint, asset_count, missing_count, created_at
FROM fingerprints
WHERE archive = ?
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListFingerprints(ctx context.Context, archive string, limit int64) ([]Fingerprint, error) {
	rows, err := q.db.QueryContext(ctx, listFingerprints, archive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Fingerprint
	for rows.Next() {
		i, err := scanFingerprint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFingerprint(s scanner) (Fingerprint, error) {
	var i Fingerprint
	err := s.Scan(
		&i.ID,
		&i.Archive,
		&i.Fingerprint,
		&i.AssetCount,
		&i.MissingCount,
		&i.CreatedAt,
	)
	return i, err
}
