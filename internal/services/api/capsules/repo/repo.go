// Package repo provides the capsules repository implementation
package repo

import (
	"context"
	_ "embed"
	"encoding/json"

	"timecapsule/internal/modkit/repokit"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/store"
	"timecapsule/internal/services/api/capsules/domain"
)

//go:embed schema.sql
var schema string

// Migrate applies the capsules schema; every statement is idempotent
func Migrate(ctx context.Context, q repokit.Queryer) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return perr.FromPostgres(err, "apply capsules schema")
	}
	return nil
}

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Repo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Repo { return &pg{q: q} }

// Repo defines the capsules repository
type Repo interface {
	Create(ctx context.Context, c domain.Capsule) (domain.Capsule, error)
	Get(ctx context.Context, id string) (domain.Capsule, error)
	// GetForUpdate row locks the capsule; only meaningful inside a Tx
	GetForUpdate(ctx context.Context, id string) (domain.Capsule, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Capsule, error)
	// MarkUnlocked flips the flag once; changed is false when it was already set
	// or the database clock has not reached unlock_at yet
	MarkUnlocked(ctx context.Context, id string) (changed bool, err error)
	AppendMedia(ctx context.Context, id string, items []domain.MediaItem) (revision int64, err error)
}

const selectCols = `id::text, owner_id, title, message, unlock_at, is_unlocked, media, revision, created_at, updated_at`

func scanCapsule(r store.Row) (domain.Capsule, error) {
	var (
		c     domain.Capsule
		media []byte
	)
	if err := r.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Message, &c.UnlockAt, &c.IsUnlocked,
		&media, &c.Revision, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Capsule{}, err
	}
	if err := json.Unmarshal(media, &c.Media); err != nil {
		return domain.Capsule{}, perr.Wrapf(err, perr.ErrorCodeDB, "decode media of capsule %s", c.ID)
	}
	if c.Media == nil {
		c.Media = []domain.MediaItem{}
	}
	c.UnlockAt = c.UnlockAt.UTC()
	return c, nil
}

func mediaJSON(items []domain.MediaItem) (string, error) {
	if items == nil {
		items = []domain.MediaItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeJSON, "encode media")
	}
	return string(b), nil
}

// Create implements Repo
func (s *pg) Create(ctx context.Context, c domain.Capsule) (domain.Capsule, error) {
	media, err := mediaJSON(c.Media)
	if err != nil {
		return domain.Capsule{}, err
	}
	out, err := store.One(ctx, s.q, scanCapsule, `
		INSERT INTO capsules (id, owner_id, title, message, unlock_at, media)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+selectCols,
		c.ID, c.OwnerID, c.Title, c.Message, c.UnlockAt.UTC(), media,
	)
	if err != nil {
		return domain.Capsule{}, perr.FromPostgresf(err, "insert capsule %s", c.ID)
	}
	return out, nil
}

// Get implements Repo
func (s *pg) Get(ctx context.Context, id string) (domain.Capsule, error) {
	return s.get(ctx, id, "")
}

// GetForUpdate implements Repo
func (s *pg) GetForUpdate(ctx context.Context, id string) (domain.Capsule, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *pg) get(ctx context.Context, id, lock string) (domain.Capsule, error) {
	c, err := store.One(ctx, s.q, scanCapsule, `SELECT `+selectCols+` FROM capsules WHERE id = $1::uuid`+lock, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Capsule{}, perr.NotFoundf("capsule not found")
		}
		return domain.Capsule{}, perr.FromPostgresf(err, "load capsule %s", id)
	}
	return c, nil
}

// ListByOwner implements Repo; ordered by unlock time ascending
func (s *pg) ListByOwner(ctx context.Context, owner string) ([]domain.Capsule, error) {
	out, err := store.Many(ctx, s.q, scanCapsule,
		`SELECT `+selectCols+` FROM capsules WHERE owner_id = $1 ORDER BY unlock_at ASC, id ASC`, owner)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list capsules of %s", owner)
	}
	if out == nil {
		out = []domain.Capsule{}
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

// AppendMedia implements Repo; the caller holds the row lock
func (s *pg) AppendMedia(ctx context.Context, id string, items []domain.MediaItem) (int64, error) {
	media, err := mediaJSON(items)
	if err != nil {
		return 0, err
	}
	rev, err := store.Scalar[int64](ctx, s.q, `
		UPDATE capsules
		   SET media = media || $2::jsonb, revision = revision + 1, updated_at = now()
		 WHERE id = $1::uuid
		RETURNING revision`, id, media)
	if err != nil {
		return 0, perr.FromPostgresf(err, "append media to capsule %s", id)
	}
	return rev, nil
}
