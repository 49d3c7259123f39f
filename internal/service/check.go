package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/torfstack/assetprint/internal/db"
	"github.com/torfstack/assetprint/internal/inventory"
	"github.com/torfstack/assetprint/internal/logging"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusUnchanged Status = "unchanged"
	StatusChanged   Status = "changed"
	StatusUnknown   Status = "unknown"
)

type CheckResult struct {
	Inventory *inventory.Inventory
	Status    Status
	Previous  *db.Fingerprint
	Recorded  *db.Fingerprint
}

// Check builds the inventory and compares its fingerprint with the last one
// recorded for the archive. Known fingerprints are recorded when they differ
// from the previous record; an unknown fingerprint is never recorded.
func (s *Service) Check(ctx context.Context) (CheckResult, error) {
	inv, err := s.Inventory()
	if err != nil {
		return CheckResult{}, err
	}

	d, err := s.openDatabase(ctx)
	if err != nil {
		return CheckResult{}, err
	}
	defer d.Close()

	return record(ctx, d.Queries(), inv, time.Now())
}

func record(ctx context.Context, q *db.Queries, inv *inventory.Inventory, now time.Time) (CheckResult, error) {
	res := CheckResult{Inventory: inv, Status: StatusUnknown}
	key := archiveKey(inv.ArchivePath())

	prev, err := q.LatestFingerprint(ctx, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return res, fmt.Errorf("could not read latest fingerprint: %w", err)
	default:
		res.Previous = &prev
	}

	fp := inv.Result()
	if !fp.Known() {
		logging.Warnf("Fingerprint of '%s' is unknown, not recording", key)
		return res, nil
	}

	switch {
	case res.Previous == nil:
		res.Status = StatusNew
	case res.Previous.Fingerprint == fp.Value:
		res.Status = StatusUnchanged
		return res, nil
	default:
		res.Status = StatusChanged
	}

	stored, err := q.InsertFingerprint(ctx, db.InsertFingerprintParams{
		Archive:      key,
		Fingerprint:  fp.Value,
		AssetCount:   int64(len(inv.Assets())),
		MissingCount: int64(len(fp.Missing)),
		CreatedAt:    now,
	})
	if err != nil {
		return res, fmt.Errorf("could not record fingerprint: %w", err)
	}
	res.Recorded = &stored
	logging.Debugf("Recorded fingerprint %d for '%s' (%s)", stored.ID, key, res.Status)
	return res, nil
}

// History returns the most recent fingerprints of the configured archive.
func (s *Service) History(ctx context.Context, limit int) ([]db.Fingerprint, error) {
	if s.cfg.ArchivePath == "" {
		return nil, ErrNoArchive
	}
	d, err := s.openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	items, err := d.Queries().ListFingerprints(ctx, s.ArchiveKey(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("could not list fingerprints: %w", err)
	}
	return items, nil
}

// ArchiveKey is the name the configured archive is recorded under.
func (s *Service) ArchiveKey() string {
	return archiveKey(s.cfg.ArchivePath)
}

func archiveKey(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
