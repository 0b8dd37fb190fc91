// Package domain holds the unlock sweeper types and ports
package domain

import (
	"context"
	"time"
)

// Candidate is a capsule the sweeper leased for reconciliation
type Candidate struct {
	ID         string
	OwnerID    string
	UnlockAt   time.Time
	IsUnlocked bool
}

// Worker runs the periodic sweep until ctx ends
type Worker interface {
	Run(ctx context.Context) error
}

// Sweeper flips every due capsule once and reports how many changed
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
