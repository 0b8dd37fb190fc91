// Package admission decides whether a batch of uploads may be attached to a capsule
//
// The guard only looks at declared metadata: counts, content types and sizes.
// It never reads file content.
package admission

import (
	"fmt"
	"strings"

	perr "timecapsule/internal/platform/errors"
)

// Kind is the media class of an attachment
type Kind string

// Media kinds
const (
	Image Kind = "image"
	Video Kind = "video"
	Audio Kind = "audio"
)

// Kinds lists every known kind in display order
var Kinds = []Kind{Image, Video, Audio}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case Image, Video, Audio:
		return true
	}
	return false
}

// Prefix is the content type prefix a file of kind k must declare
func (k Kind) Prefix() string { return string(k) + "/" }

// Folder is the storage folder for kind k
func (k Kind) Folder() string {
	switch k {
	case Image:
		return "images"
	case Video:
		return "videos"
	}
	return string(k)
}

// File is the declared metadata of one incoming upload
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// Reason identifies why a batch was rejected
type Reason string

// Rejection reasons in evaluation order
const (
	EmptyBatch         Reason = "EMPTY_BATCH"
	KindLimitExceeded  Reason = "KIND_LIMIT_EXCEEDED"
	TotalLimitExceeded Reason = "TOTAL_LIMIT_EXCEEDED"
	InvalidFileType    Reason = "INVALID_FILE_TYPE"
	FileTooLarge       Reason = "FILE_TOO_LARGE"
)

// Outcome maps a reason to the envelope code clients branch on
func Outcome(r Reason) string {
	switch r {
	case EmptyBatch, InvalidFileType:
		return perr.WireBadRequest
	case KindLimitExceeded, TotalLimitExceeded, FileTooLarge:
		return perr.WireLimitExceeded
	}
	return perr.WireServerError
}

// Rejection is returned by Admit when a batch is refused
type Rejection struct {
	Reason  Reason
	Kind    Kind
	File    string
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// Err converts the rejection to a platform error with code, reason and field set
func (r *Rejection) Err() error {
	code := perr.ErrorCodeValidation
	if Outcome(r.Reason) == perr.WireLimitExceeded {
		code = perr.ErrorCodeLimitExceeded
	}
	err := perr.New(code, r.Message)
	err = perr.WithReason(err, string(r.Reason))
	if r.File != "" {
		err = perr.WithField(err, r.File)
	}
	return perr.WithOp(err, "admission.admit")
}

// Limits is the quota policy
// a kind missing from PerKindMax or MaxBytes is unlimited; TotalMax <= 0 is unlimited
type Limits struct {
	PerKindMax map[Kind]int
	TotalMax   int
	MaxBytes   map[Kind]int64
}

// Admit checks batch against the capsule's existing media for one kind
// Checks run in a fixed order and the first failure wins:
// empty batch, per-kind count, total count, content type, size
func Admit(existing []Kind, batch []File, kind Kind, l Limits) error {
	if len(batch) == 0 {
		return &Rejection{Reason: EmptyBatch, Kind: kind, Message: fmt.Sprintf("no %s files uploaded", kind)}
	}

	if limit, ok := l.PerKindMax[kind]; ok {
		have := Count(existing, kind)
		if have+len(batch) > limit {
			return &Rejection{
				Reason:  KindLimitExceeded,
				Kind:    kind,
				Message: fmt.Sprintf("%s limit is %d per capsule; %d already attached, %d uploaded", kind, limit, have, len(batch)),
			}
		}
	}

	if l.TotalMax > 0 && len(existing)+len(batch) > l.TotalMax {
		return &Rejection{
			Reason:  TotalLimitExceeded,
			Kind:    kind,
			Message: fmt.Sprintf("media limit is %d per capsule; %d already attached, %d uploaded", l.TotalMax, len(existing), len(batch)),
		}
	}

	prefix := kind.Prefix()
	for _, f := range batch {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.ContentType)), prefix) {
			return &Rejection{
				Reason:  InvalidFileType,
				Kind:    kind,
				File:    f.Name,
				Message: fmt.Sprintf("%s has content type %q; expected %s*", displayName(f), f.ContentType, prefix),
			}
		}
	}

	if limit, ok := l.MaxBytes[kind]; ok && limit > 0 {
		for _, f := range batch {
			if f.Size > limit {
				return &Rejection{
					Reason:  FileTooLarge,
					Kind:    kind,
					File:    f.Name,
					Message: fmt.Sprintf("%s is %d bytes; %s files are capped at %d bytes", displayName(f), f.Size, kind, limit),
				}
			}
		}
	}
	return nil
}

// Count returns how many entries of existing are of kind k
func Count(existing []Kind, k Kind) int {
	n := 0
	for _, e := range existing {
		if e == k {
			n++
		}
	}
	return n
}

func displayName(f File) string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}
