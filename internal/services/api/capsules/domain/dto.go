package domain

import (
	"io"
	"time"

	"timecapsule/internal/core/admission"
)

// CreateInput is the create body; multipart requests carry the same fields as form values
type CreateInput struct {
	Title      string `json:"title" validate:"required,notblank,max=200" example:"Letter to 2030"`
	Message    string `json:"message" validate:"required,notblank,max=20000" example:"Hello from the past"`
	UnlockDate string `json:"unlockDate" validate:"required" example:"2030-01-01T00:00:00Z"`
}

// Upload is one incoming file: declared metadata plus a way to read its bytes
type Upload struct {
	File admission.File
	Open func() (io.ReadCloser, error)
}

// Files returns the declared metadata of every upload
func Files(ups []Upload) []admission.File {
	out := make([]admission.File, len(ups))
	for i, u := range ups {
		out[i] = u.File
	}
	return out
}

// CapsuleView is returned by create
type CapsuleView struct {
	ID         string      `json:"id" example:"9b2f0c1e-5d7a-4c3b-8f6e-2a1d0c9b8e7f"`
	Title      string      `json:"title" example:"Letter to 2030"`
	Message    string      `json:"message" example:"Hello from the past"`
	UnlockDate time.Time   `json:"unlockDate" example:"2030-01-01T00:00:00Z"`
	IsUnlocked bool        `json:"isUnlocked" example:"false"`
	Media      []MediaItem `json:"media"`
	CreatedAt  time.Time   `json:"createdAt" example:"2026-10-19T09:00:00Z"`
}

// ListEntry is one row of the owner listing
type ListEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UnlockDate time.Time `json:"unlockDate"`
	Status     string    `json:"status" example:"locked"`
	IsLocked   bool      `json:"isLocked" example:"true"`
	UnlocksIn  *string   `json:"unlocksIn,omitempty" example:"3 day(s)"`
}

// ListMeta rides in the envelope meta of the listing
type ListMeta struct {
	Count int `json:"count"`
}

// LockedView hides title, message and media
type LockedView struct {
	ID         string    `json:"id"`
	Status     string    `json:"status" example:"locked"`
	IsLocked   bool      `json:"isLocked" example:"true"`
	UnlockDate time.Time `json:"unlockDate"`
	UnlocksIn  *string   `json:"unlocksIn,omitempty" example:"2 month(s)"`
	Notice     string    `json:"notice"`
}

// UnlockedView is the full content
type UnlockedView struct {
	ID         string      `json:"id"`
	Status     string      `json:"status" example:"unlocked"`
	IsLocked   bool        `json:"isLocked" example:"false"`
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	Media      []MediaItem `json:"media"`
	UnlockDate time.Time   `json:"unlockDate"`
}

// AppendResult lists the items a media append stored
type AppendResult struct {
	Added []MediaItem `json:"added"`
}

// View builds the create response
func View(c Capsule) CapsuleView {
	media := c.Media
	if media == nil {
		media = []MediaItem{}
	}
	return CapsuleView{
		ID:         c.ID,
		Title:      c.Title,
		Message:    c.Message,
		UnlockDate: c.UnlockAt,
		IsUnlocked: c.IsUnlocked,
		Media:      media,
		CreatedAt:  c.CreatedAt,
	}
}
