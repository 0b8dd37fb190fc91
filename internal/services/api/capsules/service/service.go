// Package service contains capsule workflows: create, read with lazy unlock, and media append
package service

import (
	"context"
	"errors"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/core/unlock"
	"timecapsule/internal/modkit/repokit"
	"timecapsule/internal/platform/clock"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/logger"
	pstrings "timecapsule/internal/platform/strings"
	"timecapsule/internal/services/api/capsules/domain"
	"timecapsule/internal/services/api/capsules/repo"

	"github.com/google/uuid"
)

// Service is the public service port
type Service interface{ domain.ServicePort }

// Options control service behavior
type Options struct {
	// Blobs is required
	Blobs blob.Store

	// Limits defaults to admission.DefaultLimits
	Limits *admission.Limits

	// Events defaults to a no-op sink
	Events events.Sink

	// Clock defaults to wall time
	Clock clock.Clock

	// Retry bounds the locked append transaction
	Retry repokit.RetryPolicy
}

// Svc implements the service port
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	blobs  blob.Store
	limits admission.Limits
	events events.Sink
	clock  clock.Clock
	retry  repokit.RetryPolicy

	reconciler *unlock.Reconciler
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], opt Options) *Svc {
	if db == nil {
		panic("capsules.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("capsules.Service requires a non nil Repo binder")
	}
	if opt.Blobs == nil {
		panic("capsules.Service requires a non nil blob.Store")
	}

	s := &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		blobs:  opt.Blobs,
		limits: admission.DefaultLimits(),
		events: opt.Events,
		clock:  opt.Clock,
		retry:  opt.Retry,
	}
	if opt.Limits != nil {
		s.limits = *opt.Limits
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.retry.Attempts == 0 {
		s.retry = repokit.DefaultRetry
	}
	s.reconciler = unlock.NewReconciler(unlock.PersisterFunc(s.markUnlocked))
	return s
}

// markUnlocked is the reconciler edge write
func (s *Svc) markUnlocked(ctx context.Context, id string) error {
	changed, err := s.Repo.MarkUnlocked(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		s.events.Record(ctx, events.Event{At: s.clock.Now(), Kind: events.KindUnlocked, CapsuleID: id, Source: "api"})
	}
	return nil
}

// Create validates input, admits and stores images, then inserts the capsule
func (s *Svc) Create(ctx context.Context, owner string, in domain.CreateInput, images []domain.Upload) (domain.CapsuleView, error) {
	const op = "capsules.create"

	title := pstrings.Clean(in.Title)
	if title == "" {
		return domain.CapsuleView{}, perr.WithOp(perr.WithField(perr.BadInputf("title is required"), "title"), op)
	}
	message := pstrings.Clean(in.Message)
	if message == "" {
		return domain.CapsuleView{}, perr.WithOp(perr.WithField(perr.BadInputf("message is required"), "message"), op)
	}
	now := s.clock.Now()
	unlockAt, err := ParseUnlockDate(in.UnlockDate)
	if err != nil {
		return domain.CapsuleView{}, perr.WithOp(err, op)
	}
	if !unlockAt.After(now) {
		return domain.CapsuleView{}, perr.WithOp(perr.WithField(perr.BadInputf("unlockDate must be in the future"), "unlockDate"), op)
	}

	id := uuid.NewString()
	if len(images) > 0 {
		if err := s.admit(ctx, owner, id, nil, images, admission.Image); err != nil {
			return domain.CapsuleView{}, perr.WithOp(err, op)
		}
	}

	items, err := s.upload(ctx, admission.Image, images)
	if err != nil {
		return domain.CapsuleView{}, perr.WithOp(err, op)
	}

	c, err := s.Repo.Create(ctx, domain.Capsule{
		ID:       id,
		OwnerID:  owner,
		Title:    title,
		Message:  message,
		UnlockAt: unlockAt,
		Media:    items,
	})
	if err != nil {
		s.discard(ctx, items)
		return domain.CapsuleView{}, perr.WithOp(err, op)
	}

	evs := []events.Event{{At: now, Kind: events.KindCreated, CapsuleID: c.ID, OwnerID: owner, Source: "api"}}
	if len(items) > 0 {
		evs = append(evs, events.Event{
			At: now, Kind: events.KindMediaAppended, CapsuleID: c.ID, OwnerID: owner,
			MediaKind: string(admission.Image), Count: len(items), Source: "api",
		})
	}
	s.events.Record(ctx, evs...)
	return domain.View(c), nil
}

// List returns the caller's capsules ordered by unlock time, reconciling each one
func (s *Svc) List(ctx context.Context, owner string) ([]domain.ListEntry, error) {
	caps, err := s.Repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, perr.WithOp(err, "capsules.list")
	}

	now := s.clock.Now()
	out := make([]domain.ListEntry, 0, len(caps))
	for _, c := range caps {
		d, err := s.reconciler.Reconcile(ctx, c.Subject(), now)
		if err != nil {
			return nil, perr.WithOp(err, "capsules.list")
		}
		e := domain.ListEntry{
			ID:         c.ID,
			Title:      c.Title,
			UnlockDate: c.UnlockAt,
			Status:     domain.StatusUnlocked,
			IsLocked:   d.Locked(),
		}
		if d.Locked() {
			e.Status = domain.StatusLocked
			e.UnlocksIn = d.Remaining
		}
		out = append(out, e)
	}
	return out, nil
}

// Get returns a locked or unlocked view of one owned capsule
func (s *Svc) Get(ctx context.Context, owner, id string) (any, error) {
	const op = "capsules.get"

	c, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, perr.WithOp(err, op)
	}
	d, err := s.reconciler.Reconcile(ctx, c.Subject(), s.clock.Now())
	if err != nil {
		return nil, perr.WithOp(err, op)
	}

	if d.Locked() {
		return domain.LockedView{
			ID:         c.ID,
			Status:     domain.StatusLocked,
			IsLocked:   true,
			UnlockDate: c.UnlockAt,
			UnlocksIn:  d.Remaining,
			Notice:     domain.LockedNotice,
		}, nil
	}
	return domain.UnlockedView{
		ID:         c.ID,
		Status:     domain.StatusUnlocked,
		IsLocked:   false,
		Title:      c.Title,
		Message:    c.Message,
		Media:      c.Media,
		UnlockDate: c.UnlockAt,
	}, nil
}

// AddVideos appends a batch of videos to an owned capsule
func (s *Svc) AddVideos(ctx context.Context, owner, id string, videos []domain.Upload) (domain.AppendResult, error) {
	return s.appendMedia(ctx, owner, id, admission.Video, videos)
}

// AddAudio appends a batch of audio files to an owned capsule
func (s *Svc) AddAudio(ctx context.Context, owner, id string, audio []domain.Upload) (domain.AppendResult, error) {
	return s.appendMedia(ctx, owner, id, admission.Audio, audio)
}

// appendMedia admits the batch against the current row, uploads it, then re-admits
// against the row-locked capsule before appending so concurrent appends cannot overshoot
func (s *Svc) appendMedia(ctx context.Context, owner, id string, kind admission.Kind, ups []domain.Upload) (domain.AppendResult, error) {
	op := "capsules.add_" + string(kind)

	c, err := s.load(ctx, owner, id)
	if err != nil {
		return domain.AppendResult{}, perr.WithOp(err, op)
	}
	if err := s.admit(ctx, owner, c.ID, c.Kinds(), ups, kind); err != nil {
		return domain.AppendResult{}, perr.WithOp(err, op)
	}

	items, err := s.upload(ctx, kind, ups)
	if err != nil {
		return domain.AppendResult{}, perr.WithOp(err, op)
	}

	var rev int64
	err = repokit.WithTxRetry(ctx, s.db, s.retry, func(q repokit.Queryer) error {
		r := repokit.MustBind(s.binder, q)
		locked, err := r.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		if err := s.admit(ctx, owner, c.ID, locked.Kinds(), ups, kind); err != nil {
			return err
		}
		rev, err = r.AppendMedia(ctx, c.ID, items)
		return err
	})
	if err != nil {
		s.discard(ctx, items)
		return domain.AppendResult{}, perr.WithOp(err, op)
	}

	logger.C(ctx).Debug().Str("capsule_id", c.ID).Str("kind", string(kind)).
		Int("added", len(items)).Int64("revision", rev).Msg("media appended")
	s.events.Record(ctx, events.Event{
		At: s.clock.Now(), Kind: events.KindMediaAppended, CapsuleID: c.ID, OwnerID: owner,
		MediaKind: string(kind), Count: len(items), Source: "api",
	})
	return domain.AppendResult{Added: items}, nil
}

// load is the ownership gate: malformed id, then absent, then not yours
func (s *Svc) load(ctx context.Context, owner, id string) (domain.Capsule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Capsule{}, perr.WithField(perr.BadInputf("invalid capsule id"), "id")
	}
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Capsule{}, err
	}
	if c.OwnerID != owner {
		return domain.Capsule{}, perr.Forbiddenf("not authorized to access this capsule")
	}
	return c, nil
}

// admit runs the guard and records refusals
func (s *Svc) admit(ctx context.Context, owner, id string, existing []admission.Kind, ups []domain.Upload, kind admission.Kind) error {
	err := admission.Admit(existing, domain.Files(ups), kind, s.limits)
	if err == nil {
		return nil
	}
	var rej *admission.Rejection
	if !errors.As(err, &rej) {
		return err
	}
	s.events.Record(ctx, events.Event{
		At: s.clock.Now(), Kind: events.KindMediaRejected, CapsuleID: id, OwnerID: owner,
		MediaKind: string(kind), Count: len(ups), Reason: string(rej.Reason), Source: "api",
	})
	return rej.Err()
}

// upload stores every file; on failure the ones already stored are removed
func (s *Svc) upload(ctx context.Context, kind admission.Kind, ups []domain.Upload) ([]domain.MediaItem, error) {
	items := make([]domain.MediaItem, 0, len(ups))
	for _, u := range ups {
		item, err := s.put(ctx, kind, u)
		if err != nil {
			s.discard(ctx, items)
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Svc) put(ctx context.Context, kind admission.Kind, u domain.Upload) (domain.MediaItem, error) {
	if u.Open == nil {
		return domain.MediaItem{}, perr.Internalf("upload %s has no body", u.File.Name)
	}
	rc, err := u.Open()
	if err != nil {
		return domain.MediaItem{}, perr.Storage(err, "open upload "+u.File.Name)
	}
	defer rc.Close()

	obj, err := s.blobs.Put(ctx, kind.Folder(), u.File.Name, u.File.ContentType, rc)
	if err != nil {
		return domain.MediaItem{}, err
	}
	return domain.MediaItem{
		Kind:        kind,
		URL:         obj.URL,
		StorageID:   obj.Key,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Checksum:    obj.Checksum,
	}, nil
}

// discard deletes stored blobs best effort; it survives request cancellation
func (s *Svc) discard(ctx context.Context, items []domain.MediaItem) {
	if len(items) == 0 {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	for _, it := range items {
		if err := s.blobs.Delete(dctx, it.StorageID); err != nil {
			logger.C(ctx).Warn().Err(err).Str("storage_id", it.StorageID).Msg("orphaned blob left behind")
		}
	}
}
