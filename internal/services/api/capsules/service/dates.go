package service

import (
	"strings"
	"time"

	perr "timecapsule/internal/platform/errors"
)

var unlockLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseUnlockDate accepts RFC3339, a zone-less local datetime (read as UTC) or YYYY-MM-DD
func ParseUnlockDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, perr.WithField(perr.BadInputf("unlockDate is required"), "unlockDate")
	}
	for _, layout := range unlockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.WithField(perr.BadInputf("unlockDate %q is not an RFC3339 timestamp or YYYY-MM-DD date", s), "unlockDate")
}
