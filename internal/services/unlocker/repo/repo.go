// Package repo provides the unlock sweeper queries
//
// Due checks run against the database clock, the same clock the capsules
// repository guards its unlock write with, so no writer flips a flag early.
package repo

import (
	"context"
	"time"

	"timecapsule/internal/modkit/repokit"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/services/unlocker/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Repo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Repo { return &pg{q: q} }

// Repo defines the sweeper repository
type Repo interface {
	// Now reads the database clock; inside a transaction it is the transaction start
	Now(ctx context.Context) (time.Time, error)
	// LeaseDue locks up to limit capsules still flagged locked whose unlock_at is at or before now
	// rows another sweeper holds are skipped, not waited on
	LeaseDue(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error)
	// MarkUnlocked flips one flag if it is still false and due by the database clock
	MarkUnlocked(ctx context.Context, id string) (changed bool, err error)
	// CountDue reports how many capsules are due but still flagged locked
	CountDue(ctx context.Context) (int64, error)
}

// Now implements Repo
func (s *pg) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.q.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
		return time.Time{}, perr.FromPostgres(err, "read database clock")
	}
	return now.UTC(), nil
}

// LeaseDue implements Repo
func (s *pg) LeaseDue(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT id::text, owner_id, unlock_at, is_unlocked
		  FROM capsules
		 WHERE NOT is_unlocked AND unlock_at <= $1
		 ORDER BY unlock_at
		 LIMIT $2
		   FOR UPDATE SKIP LOCKED`, now.UTC(), limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "lease due capsules")
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, limit)
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.UnlockAt, &c.IsUnlocked); err != nil {
			return nil, perr.FromPostgres(err, "scan due capsule")
		}
		c.UnlockAt = c.UnlockAt.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "iterate due capsules")
	}
	return out, nil
}

// MarkUnlocked implements Repo
func (s *pg) MarkUnlocked(ctx context.Context, id string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE capsules
		   SET is_unlocked = true, revision = revision + 1, updated_at = now()
		 WHERE id = $1::uuid AND NOT is_unlocked AND unlock_at <= now()`, id)
	if err != nil {
		return false, perr.FromPostgresf(err, "mark capsule %s unlocked", id)
	}
	return tag.RowsAffected() == 1, nil
}

// CountDue implements Repo
func (s *pg) CountDue(ctx context.Context) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx, `
		SELECT count(*) FROM capsules
		 WHERE NOT is_unlocked AND unlock_at <= now()`).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "count due capsules")
	}
	return n, nil
}
