// Package domain holds capsule types independent of transport or storage
package domain

import (
	"time"

	"timecapsule/internal/core/admission"
	"timecapsule/internal/core/unlock"
)

// MediaItem is one stored attachment; the list on a capsule is append only
type MediaItem struct {
	Kind        admission.Kind `json:"kind" example:"video"`
	URL         string         `json:"url" example:"https://media.example/digital-time-capsule/videos/3f2c.mp4"`
	StorageID   string         `json:"storageId" example:"digital-time-capsule/videos/3f2c.mp4"`
	ContentType string         `json:"contentType" example:"video/mp4"`
	Size        int64          `json:"size" example:"1048576"`
	Checksum    string         `json:"checksum,omitempty" example:"af1349b9f5f9a1a6a0404dea36dcc949..."`
}

// Capsule is the stored aggregate
type Capsule struct {
	ID         string
	OwnerID    string
	Title      string
	Message    string
	UnlockAt   time.Time
	IsUnlocked bool
	Media      []MediaItem
	Revision   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Kinds lists the kind of every attachment in order
func (c Capsule) Kinds() []admission.Kind {
	out := make([]admission.Kind, len(c.Media))
	for i, m := range c.Media {
		out[i] = m.Kind
	}
	return out
}

// Subject is the reconciler view of c
func (c Capsule) Subject() unlock.Subject {
	return unlock.Subject{ID: c.ID, UnlockAt: c.UnlockAt, IsUnlocked: c.IsUnlocked}
}

// Status strings used in responses
const (
	StatusLocked   = "locked"
	StatusUnlocked = "unlocked"
)

// LockedNotice accompanies a locked single capsule response
const LockedNotice = "This memory is waiting for the right moment…"
