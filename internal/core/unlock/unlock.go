// Package unlock decides whether a capsule is readable and when its persisted flag must flip
//
// A capsule is a two-state machine: Locked until the unlock instant, Unlocked afterwards.
// The state is computed from time on every read. The persisted is_unlocked flag caches the
// Locked to Unlocked edge and is written exactly once, never reset.
package unlock

import (
	"context"
	"fmt"
	"time"

	perr "timecapsule/internal/platform/errors"
)

// State is the lock state of a capsule at a given instant
type State uint8

const (
	// Locked means now is before the unlock instant
	Locked State = iota
	// Unlocked means the unlock instant has passed
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Decision is the outcome of evaluating one capsule against now
type Decision struct {
	State State

	// Transition is true when the persisted flag is still false and must be flipped
	Transition bool

	// Remaining is the human readable time left while Locked, nil otherwise
	Remaining *string
}

// Locked reports whether the decision hides content
func (d Decision) Locked() bool { return d.State == Locked }

// Decide is the pure transition function
// A persisted flag that is already true while now < unlockAt stays true but the capsule reads as Locked
func Decide(unlockAt time.Time, isUnlocked bool, now time.Time) Decision {
	if now.Before(unlockAt) {
		return Decision{State: Locked, Remaining: FormatRemaining(unlockAt, now)}
	}
	return Decision{State: Unlocked, Transition: !isUnlocked}
}

// FormatRemaining renders the largest non-zero unit of unlockAt-now as "N unit(s)"
// Units use fixed divisors: 60s minute, 60m hour, 24h day, 30d month. nil when nothing remains
func FormatRemaining(unlockAt, now time.Time) *string {
	diff := unlockAt.Sub(now)
	if diff <= 0 {
		return nil
	}
	seconds := int64(diff / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	months := days / 30

	var s string
	switch {
	case months > 0:
		s = fmt.Sprintf("%d month(s)", months)
	case days > 0:
		s = fmt.Sprintf("%d day(s)", days)
	case hours > 0:
		s = fmt.Sprintf("%d hour(s)", hours)
	case minutes > 0:
		s = fmt.Sprintf("%d minute(s)", minutes)
	default:
		s = fmt.Sprintf("%d second(s)", seconds)
	}
	return &s
}

// Persister flips the stored flag for one capsule
// implementations must only write when the flag is still false
type Persister interface {
	MarkUnlocked(ctx context.Context, id string) error
}

// PersisterFunc adapts a function to Persister
type PersisterFunc func(ctx context.Context, id string) error

// MarkUnlocked calls f
func (f PersisterFunc) MarkUnlocked(ctx context.Context, id string) error { return f(ctx, id) }

// Subject is the slice of a capsule the reconciler reads
type Subject struct {
	ID         string
	UnlockAt   time.Time
	IsUnlocked bool
}

// Reconciler couples Decide with the edge write
type Reconciler struct {
	p Persister
}

// NewReconciler builds a Reconciler over p
func NewReconciler(p Persister) *Reconciler {
	if p == nil {
		panic("unlock: nil Persister")
	}
	return &Reconciler{p: p}
}

// Reconcile decides the state of s at now and persists the edge when it is crossed
// A failed write is returned as a server error; the caller must not report Unlocked in that case
func (r *Reconciler) Reconcile(ctx context.Context, s Subject, now time.Time) (Decision, error) {
	d := Decide(s.UnlockAt, s.IsUnlocked, now)
	if !d.Transition {
		return d, nil
	}
	if err := r.p.MarkUnlocked(ctx, s.ID); err != nil {
		return Decision{}, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeDB, "persist unlock for capsule %s", s.ID), "unlock.reconcile")
	}
	return d, nil
}
